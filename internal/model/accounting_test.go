package model

import (
	"testing"
	"time"
)

var trackingStart = time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

func minutesAfter(m int) time.Time {
	return trackingStart.Add(time.Duration(m) * time.Minute)
}

func TestPauseEntry_Duration(t *testing.T) {
	now := minutesAfter(60)
	closedEnd := minutesAfter(45)

	tests := []struct {
		name  string
		entry PauseEntry
		want  time.Duration
	}{
		{
			name:  "open pause runs until now",
			entry: PauseEntry{StartedAt: minutesAfter(30)},
			want:  30 * time.Minute,
		},
		{
			name:  "closed pause uses its end time",
			entry: PauseEntry{StartedAt: minutesAfter(30), EndedAt: &closedEnd},
			want:  15 * time.Minute,
		},
		{
			name:  "pause starting after now clamps to zero",
			entry: PauseEntry{StartedAt: minutesAfter(90)},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Duration(now); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNetMinutes(t *testing.T) {
	end30 := minutesAfter(30)
	end45 := minutesAfter(45)

	tests := []struct {
		name    string
		session TimeTrackingSession
		now     time.Time
		want    int
	}{
		{
			name:    "no pauses",
			session: TimeTrackingSession{StartedAt: trackingStart},
			now:     minutesAfter(75),
			want:    75,
		},
		{
			name: "one closed pause",
			session: TimeTrackingSession{
				StartedAt: trackingStart,
				Pauses:    []PauseEntry{{StartedAt: minutesAfter(15), EndedAt: &end30}},
			},
			now:  minutesAfter(75),
			want: 60,
		},
		{
			name: "closed pause plus open pause",
			session: TimeTrackingSession{
				StartedAt: trackingStart,
				Pauses: []PauseEntry{
					{StartedAt: minutesAfter(15), EndedAt: &end30},
					{StartedAt: minutesAfter(60)},
				},
			},
			now:  minutesAfter(75),
			want: 45,
		},
		{
			name: "paused immediately at start",
			session: TimeTrackingSession{
				StartedAt: trackingStart,
				Pauses:    []PauseEntry{{StartedAt: trackingStart}},
			},
			now:  trackingStart,
			want: 0,
		},
		{
			name:    "clock skew never goes negative",
			session: TimeTrackingSession{StartedAt: minutesAfter(10)},
			now:     trackingStart,
			want:    0,
		},
		{
			name: "pause longer than elapsed clamps to zero",
			session: TimeTrackingSession{
				StartedAt: trackingStart,
				Pauses:    []PauseEntry{{StartedAt: trackingStart, EndedAt: &end45}},
			},
			now:  minutesAfter(30),
			want: 0,
		},
		{
			name:    "sub-minute elapsed truncates to zero",
			session: TimeTrackingSession{StartedAt: trackingStart},
			now:     trackingStart.Add(59 * time.Second),
			want:    0,
		},
		{
			name:    "truncation floors toward zero",
			session: TimeTrackingSession{StartedAt: trackingStart},
			now:     trackingStart.Add(30*time.Minute + 59*time.Second),
			want:    30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.NetMinutes(tt.now); got != tt.want {
				t.Errorf("NetMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNetMinutes_Monotonic(t *testing.T) {
	end30 := minutesAfter(30)
	session := TimeTrackingSession{
		StartedAt: trackingStart,
		Pauses: []PauseEntry{
			{StartedAt: minutesAfter(15), EndedAt: &end30},
			{StartedAt: minutesAfter(50)},
		},
	}

	prev := -1
	for m := 0; m <= 120; m++ {
		got := session.NetMinutes(minutesAfter(m))
		if got < prev {
			t.Fatalf("NetMinutes decreased from %d to %d at minute %d", prev, got, m)
		}
		prev = got
	}
}

func TestNetMinutes_Pure(t *testing.T) {
	session := TimeTrackingSession{
		StartedAt: trackingStart,
		Pauses:    []PauseEntry{{StartedAt: minutesAfter(20)}},
	}
	now := minutesAfter(40)

	first := session.NetMinutes(now)
	second := session.NetMinutes(now)
	if first != second {
		t.Errorf("NetMinutes() not deterministic: %d then %d", first, second)
	}
	if session.TotalMinutes != 0 {
		t.Errorf("NetMinutes() mutated TotalMinutes to %d", session.TotalMinutes)
	}
	if session.Pauses[0].EndedAt != nil {
		t.Error("NetMinutes() closed the open pause entry")
	}
}

func TestOpenPause(t *testing.T) {
	end := minutesAfter(30)
	session := TimeTrackingSession{
		StartedAt: trackingStart,
		Pauses: []PauseEntry{
			{StartedAt: minutesAfter(15), EndedAt: &end},
			{StartedAt: minutesAfter(40), Reason: "lunch"},
		},
	}

	open := session.OpenPause()
	if open == nil {
		t.Fatal("OpenPause() = nil, want the lunch entry")
	}
	if open.Reason != "lunch" {
		t.Errorf("OpenPause().Reason = %q, want %q", open.Reason, "lunch")
	}

	session.Pauses[1].EndedAt = &end
	if session.OpenPause() != nil {
		t.Error("OpenPause() found an entry after all pauses were closed")
	}
}
