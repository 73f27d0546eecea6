package model

import "time"

type WorkType string

const (
	WorkTypeRepair      WorkType = "repair"
	WorkTypeDiagnostic  WorkType = "diagnostic"
	WorkTypeMaintenance WorkType = "maintenance"
	WorkTypeWarranty    WorkType = "warranty"
	WorkTypeOther       WorkType = "other"
)

// ValidWorkType reports whether wt is one of the known work types.
func ValidWorkType(wt WorkType) bool {
	switch wt {
	case WorkTypeRepair, WorkTypeDiagnostic, WorkTypeMaintenance, WorkTypeWarranty, WorkTypeOther:
		return true
	}
	return false
}

// PauseEntry is one break in a tracking session. An entry without EndedAt
// is still open; a session carries at most one open entry at a time.
type PauseEntry struct {
	StartedAt time.Time  `json:"startedAt" bson:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
	Reason    string     `json:"reason,omitempty" bson:"reason,omitempty"`
}

// IsOpen reports whether the pause has not been resumed yet.
func (p *PauseEntry) IsOpen() bool {
	return p.EndedAt == nil
}

// TimeTrackingSession is one attempt by one technician to log work time
// against one work order. Timestamps and the pause log are the single
// source of truth; all minute totals are derived from them.
type TimeTrackingSession struct {
	ID           string       `json:"id" bson:"_id,omitempty"`
	WorkOrderID  string       `json:"workOrderId" bson:"workOrderId"`
	TechnicianID string       `json:"technicianId" bson:"technicianId"`
	OrgID        string       `json:"orgId" bson:"orgId"`
	WorkType     WorkType     `json:"workType" bson:"workType"`
	StartedAt    time.Time    `json:"startedAt" bson:"startedAt"`
	PausedAt     *time.Time   `json:"pausedAt,omitempty" bson:"pausedAt,omitempty"`
	ResumedAt    *time.Time   `json:"resumedAt,omitempty" bson:"resumedAt,omitempty"`
	Pauses       []PauseEntry `json:"pauses" bson:"pauses"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty" bson:"completedAt,omitempty"`

	// Open mirrors "completedAt absent" as an indexable marker; the store's
	// partial unique index hangs off it because Mongo cannot index on
	// field absence. Maintained by the repository, not by callers.
	Open bool `json:"-" bson:"open,omitempty"`

	TotalMinutes    int `json:"totalMinutes" bson:"totalMinutes"`
	BillableMinutes int `json:"billableMinutes" bson:"billableMinutes"`

	Notes       string `json:"notes,omitempty" bson:"notes,omitempty"`
	AutoStarted bool   `json:"autoStarted" bson:"autoStarted"`
}

// IsCompleted reports whether the session is terminal.
func (s *TimeTrackingSession) IsCompleted() bool {
	return s.CompletedAt != nil
}

// IsPaused reports whether the session is currently paused.
func (s *TimeTrackingSession) IsPaused() bool {
	return s.PausedAt != nil && s.CompletedAt == nil
}

// OpenPause returns the pause entry that has not been closed yet, or nil.
func (s *TimeTrackingSession) OpenPause() *PauseEntry {
	for i := range s.Pauses {
		if s.Pauses[i].IsOpen() {
			return &s.Pauses[i]
		}
	}
	return nil
}

// SessionSummary is returned on completion.
type SessionSummary struct {
	TotalMinutes    int     `json:"totalMinutes"`
	BillableMinutes int     `json:"billableMinutes"`
	PausedMinutes   int     `json:"pausedMinutes"`
	TotalHours      float64 `json:"totalHours"`
}

// ActiveSessionView is one open session as shown on the live dashboard.
type ActiveSessionView struct {
	Session               *TimeTrackingSession `json:"session"`
	CurrentSessionMinutes int                  `json:"currentSessionMinutes"`
	IsPaused              bool                 `json:"isPaused"`
}

// WorkTypeTotals aggregates completed time per work type.
type WorkTypeTotals struct {
	WorkType        WorkType `json:"workType"`
	Sessions        int      `json:"sessions"`
	TotalMinutes    int      `json:"totalMinutes"`
	BillableMinutes int      `json:"billableMinutes"`
}

// HistorySummary aggregates a page of completed sessions.
type HistorySummary struct {
	Sessions      int              `json:"sessions"`
	TotalMinutes  int              `json:"totalMinutes"`
	BillableHours float64          `json:"billableHours"`
	ByWorkType    []WorkTypeTotals `json:"byWorkType"`
}
