package model

import "time"

// Time accounting is a pure function of the session's timestamps and pause
// log. All durations truncate toward zero at minute granularity, and any
// negative interval (clock skew, out-of-order requests) clamps to 0.

// Duration returns the length of the pause at now. Open pauses run until now.
func (p *PauseEntry) Duration(now time.Time) time.Duration {
	end := now
	if p.EndedAt != nil {
		end = *p.EndedAt
	}
	d := end.Sub(p.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// ElapsedMinutes is the wall-clock minutes since the session started.
func (s *TimeTrackingSession) ElapsedMinutes(now time.Time) int {
	return clampMinutes(now.Sub(s.StartedAt))
}

// PausedMinutes is the sum of all pause durations up to now, counting a
// still-open pause until now.
func (s *TimeTrackingSession) PausedMinutes(now time.Time) int {
	total := 0
	for i := range s.Pauses {
		total += clampMinutes(s.Pauses[i].Duration(now))
	}
	return total
}

// NetMinutes is the working time at now: elapsed minus paused, floored at 0.
func (s *TimeTrackingSession) NetMinutes(now time.Time) int {
	net := s.ElapsedMinutes(now) - s.PausedMinutes(now)
	if net < 0 {
		return 0
	}
	return net
}

func clampMinutes(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
