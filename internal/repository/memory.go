package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"garageops/internal/model"
)

// MemorySessionRepo is an in-memory SessionRepo for tests and local runs
// without Mongo. It enforces the same contract as the Mongo implementation:
// unique open session per (technician, work order) on create, and
// state-conditioned mutations that fail with ErrStaleState.
type MemorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.TimeTrackingSession
}

func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{
		sessions: make(map[string]*model.TimeTrackingSession),
	}
}

func (r *MemorySessionRepo) Create(_ context.Context, session *model.TimeTrackingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if existing.TechnicianID == session.TechnicianID &&
			existing.WorkOrderID == session.WorkOrderID &&
			!existing.IsCompleted() {
			return ErrDuplicateOpenSession
		}
	}

	if session.ID == "" {
		session.ID = primitive.NewObjectID().Hex()
	}
	if session.Pauses == nil {
		session.Pauses = []model.PauseEntry{}
	}
	session.Open = true
	r.sessions[session.ID] = copySession(session)
	return nil
}

func (r *MemorySessionRepo) GetByID(_ context.Context, orgID, id string) (*model.TimeTrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || session.OrgID != orgID {
		return nil, nil
	}
	return copySession(session), nil
}

func (r *MemorySessionRepo) FindOpen(_ context.Context, technicianID, workOrderID string) (*model.TimeTrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		if session.TechnicianID == technicianID &&
			session.WorkOrderID == workOrderID &&
			!session.IsCompleted() {
			return copySession(session), nil
		}
	}
	return nil, nil
}

func (r *MemorySessionRepo) FindOtherOpen(_ context.Context, technicianID, excludeWorkOrderID string) (*model.TimeTrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		if session.TechnicianID == technicianID &&
			session.WorkOrderID != excludeWorkOrderID &&
			!session.IsCompleted() {
			return copySession(session), nil
		}
	}
	return nil, nil
}

func (r *MemorySessionRepo) ListOpenByTechnician(_ context.Context, orgID, technicianID string) ([]*model.TimeTrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*model.TimeTrackingSession
	for _, session := range r.sessions {
		if session.OrgID == orgID && session.TechnicianID == technicianID && !session.IsCompleted() {
			result = append(result, copySession(session))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

func (r *MemorySessionRepo) ListCompleted(_ context.Context, orgID string, filter HistoryFilter) ([]*model.TimeTrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*model.TimeTrackingSession
	for _, session := range r.sessions {
		if session.OrgID != orgID || !session.IsCompleted() {
			continue
		}
		if filter.TechnicianID != "" && session.TechnicianID != filter.TechnicianID {
			continue
		}
		if filter.From != nil && session.CompletedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && session.CompletedAt.After(*filter.To) {
			continue
		}
		result = append(result, copySession(session))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CompletedAt.After(*result[j].CompletedAt)
	})
	if filter.Limit > 0 && int64(len(result)) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *MemorySessionRepo) Pause(_ context.Context, orgID, technicianID, id string, pausedAt time.Time, entry model.PauseEntry, totalMinutes int) (*model.TimeTrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.sessions[id]
	if session == nil || session.OrgID != orgID || session.TechnicianID != technicianID ||
		session.IsCompleted() || session.PausedAt != nil {
		return nil, ErrStaleState
	}

	session.PausedAt = &pausedAt
	session.TotalMinutes = totalMinutes
	session.Pauses = append(session.Pauses, entry)
	return copySession(session), nil
}

func (r *MemorySessionRepo) Resume(_ context.Context, orgID, technicianID, id string, resumedAt time.Time, totalMinutes int) (*model.TimeTrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.sessions[id]
	if session == nil || session.OrgID != orgID || session.TechnicianID != technicianID ||
		session.IsCompleted() || session.PausedAt == nil {
		return nil, ErrStaleState
	}

	closeOpenPause(session, resumedAt)
	session.PausedAt = nil
	session.ResumedAt = &resumedAt
	session.TotalMinutes = totalMinutes
	return copySession(session), nil
}

func (r *MemorySessionRepo) Complete(_ context.Context, orgID, technicianID, id string, completedAt time.Time, totalMinutes, billableMinutes int, notes string) (*model.TimeTrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.sessions[id]
	if session == nil || session.OrgID != orgID || session.TechnicianID != technicianID ||
		session.IsCompleted() {
		return nil, ErrStaleState
	}

	closeOpenPause(session, completedAt)
	session.PausedAt = nil
	session.CompletedAt = &completedAt
	session.Open = false
	session.TotalMinutes = totalMinutes
	session.BillableMinutes = billableMinutes
	if notes != "" {
		session.Notes = notes
	}
	return copySession(session), nil
}

func closeOpenPause(session *model.TimeTrackingSession, endedAt time.Time) {
	for i := range session.Pauses {
		if session.Pauses[i].IsOpen() {
			end := endedAt
			session.Pauses[i].EndedAt = &end
		}
	}
}

func copySession(session *model.TimeTrackingSession) *model.TimeTrackingSession {
	clone := *session
	clone.Pauses = append([]model.PauseEntry(nil), session.Pauses...)
	return &clone
}

// MemoryWorkOrderRepo is an in-memory WorkOrderRepo.
type MemoryWorkOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.WorkOrder
}

func NewMemoryWorkOrderRepo() *MemoryWorkOrderRepo {
	return &MemoryWorkOrderRepo{
		orders: make(map[string]*model.WorkOrder),
	}
}

func (r *MemoryWorkOrderRepo) Create(_ context.Context, order *model.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = primitive.NewObjectID().Hex()
	}
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *MemoryWorkOrderRepo) GetByID(_ context.Context, orgID, id string) (*model.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok || order.OrgID != orgID {
		return nil, nil
	}
	clone := *order
	return &clone, nil
}

func (r *MemoryWorkOrderRepo) MarkInProgress(_ context.Context, orgID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if ok && order.OrgID == orgID && order.Status == model.WorkOrderPending {
		order.Status = model.WorkOrderInProgress
	}
	return nil
}
