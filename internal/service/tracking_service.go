package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"garageops/internal/cache"
	"garageops/internal/model"
	"garageops/internal/repository"
)

// Dashboard event types pushed on lifecycle transitions.
const (
	EventSessionStarted   = "session_started"
	EventSessionPaused    = "session_paused"
	EventSessionResumed   = "session_resumed"
	EventSessionCompleted = "session_completed"
)

// TrackingService owns the session lifecycle: it validates every transition
// against the store's current state, derives minute totals from the pause
// log, and is the only writer of session state.
type TrackingService struct {
	sessions    repository.SessionRepo
	workOrders  repository.WorkOrderRepo
	activeCache cache.ActiveSessionCache
	broadcaster Broadcaster
	logger      *zap.Logger

	now func() time.Time
}

// NewTrackingService creates a new tracking service
func NewTrackingService(
	sessions repository.SessionRepo,
	workOrders repository.WorkOrderRepo,
	activeCache cache.ActiveSessionCache,
	logger *zap.Logger,
) *TrackingService {
	return &TrackingService{
		sessions:    sessions,
		workOrders:  workOrders,
		activeCache: activeCache,
		logger:      logger,
		now:         time.Now,
	}
}

// SetBroadcaster injects the dashboard event hub
func (s *TrackingService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// StartInput is the caller-supplied part of a new session.
type StartInput struct {
	WorkOrderID string
	WorkType    model.WorkType
	Notes       string
	AutoStarted bool
}

// Warning is advisory information returned alongside a successful start.
type Warning struct {
	Message     string    `json:"message"`
	TrackingID  string    `json:"trackingId"`
	WorkOrderID string    `json:"workOrderId"`
	StartedAt   time.Time `json:"startedAt"`
}

// StartResult is a created session plus any non-blocking warning.
type StartResult struct {
	Session *model.TimeTrackingSession `json:"session"`
	Warning *Warning                   `json:"warning,omitempty"`
}

// Start creates a session for (technician, work order). A duplicate open
// session is a conflict carrying the existing session's identity; an open
// session on a different work order only produces a warning.
func (s *TrackingService) Start(ctx context.Context, orgID, technicianID string, in StartInput) (*StartResult, error) {
	if in.WorkOrderID == "" {
		return nil, validationErr("workOrderId", "is required")
	}
	workType := in.WorkType
	if workType == "" {
		workType = model.WorkTypeOther
	}
	if !model.ValidWorkType(workType) {
		return nil, validationErr("workType", fmt.Sprintf("unknown work type %q", workType))
	}

	order, err := s.workOrders.GetByID(ctx, orgID, in.WorkOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrWorkOrderNotFound
	}
	if order.Status.IsTerminal() {
		return nil, &ConflictError{
			Code:    CodeWorkOrderTerminal,
			Message: fmt.Sprintf("work order is %s, time cannot be tracked against it", order.Status),
		}
	}

	if existing, err := s.sessions.FindOpen(ctx, technicianID, in.WorkOrderID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, s.duplicateConflict(existing)
	}

	var warning *Warning
	if other, err := s.sessions.FindOtherOpen(ctx, technicianID, in.WorkOrderID); err != nil {
		return nil, err
	} else if other != nil {
		warning = &Warning{
			Message:     "you already have an open session on another work order",
			TrackingID:  other.ID,
			WorkOrderID: other.WorkOrderID,
			StartedAt:   other.StartedAt,
		}
	}

	session := &model.TimeTrackingSession{
		WorkOrderID:  in.WorkOrderID,
		TechnicianID: technicianID,
		OrgID:        orgID,
		WorkType:     workType,
		StartedAt:    s.now(),
		Pauses:       []model.PauseEntry{},
		Notes:        in.Notes,
		AutoStarted:  in.AutoStarted,
	}

	err = s.sessions.Create(ctx, session)
	if errors.Is(err, repository.ErrDuplicateOpenSession) {
		// Lost the race on the store's uniqueness constraint. Fetch the
		// winner so the caller can resume it instead of retrying blindly.
		existing, ferr := s.sessions.FindOpen(ctx, technicianID, in.WorkOrderID)
		if ferr == nil && existing != nil {
			return nil, s.duplicateConflict(existing)
		}
		return nil, &ConflictError{Code: CodeSessionAlreadyOpen, Message: "an open session already exists for this work order"}
	}
	if err != nil {
		return nil, err
	}

	// Best-effort: first start on a pending order moves it to in_progress.
	// The conditional write is idempotent, so a failure here never blocks
	// the session and a retry never double-applies.
	if order.Status == model.WorkOrderPending {
		if err := s.workOrders.MarkInProgress(ctx, orgID, in.WorkOrderID); err != nil {
			s.logger.Warn("failed to mark work order in progress",
				zap.String("work_order_id", in.WorkOrderID),
				zap.Error(err),
			)
		}
	}

	s.afterWrite(ctx, session, EventSessionStarted)

	return &StartResult{Session: session, Warning: warning}, nil
}

// Pause freezes the running timer and opens a pause entry.
func (s *TrackingService) Pause(ctx context.Context, orgID, technicianID, trackingID, reason string) (*model.TimeTrackingSession, error) {
	session, err := s.loadOwned(ctx, orgID, technicianID, trackingID)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted() {
		return nil, s.completedConflict(session)
	}
	if session.IsPaused() {
		return nil, &ConflictError{
			Code:       CodeSessionPaused,
			Message:    "session is already paused",
			TrackingID: session.ID,
			StartedAt:  session.PausedAt,
		}
	}

	now := s.now()
	entry := model.PauseEntry{StartedAt: now, Reason: reason}
	updated, err := s.sessions.Pause(ctx, orgID, technicianID, trackingID, now, entry, session.NetMinutes(now))
	if errors.Is(err, repository.ErrStaleState) {
		return nil, s.refineStaleState(ctx, orgID, technicianID, trackingID)
	}
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, updated, EventSessionPaused)
	return updated, nil
}

// Resume closes the open pause entry and restarts the timer.
func (s *TrackingService) Resume(ctx context.Context, orgID, technicianID, trackingID string) (*model.TimeTrackingSession, error) {
	session, err := s.loadOwned(ctx, orgID, technicianID, trackingID)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted() {
		return nil, s.completedConflict(session)
	}
	if !session.IsPaused() {
		return nil, &ConflictError{
			Code:       CodeSessionNotPaused,
			Message:    "session is not paused",
			TrackingID: session.ID,
		}
	}

	now := s.now()
	updated, err := s.sessions.Resume(ctx, orgID, technicianID, trackingID, now, session.NetMinutes(now))
	if errors.Is(err, repository.ErrStaleState) {
		return nil, s.refineStaleState(ctx, orgID, technicianID, trackingID)
	}
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, updated, EventSessionResumed)
	return updated, nil
}

// Complete finalizes the session. billableMinutes defaults to the computed
// net total; an explicit override may exceed it (minimum-billing policies)
// but may not be negative.
func (s *TrackingService) Complete(ctx context.Context, orgID, technicianID, trackingID string, billableMinutes *int, notes string) (*model.TimeTrackingSession, *model.SessionSummary, error) {
	if billableMinutes != nil && *billableMinutes < 0 {
		return nil, nil, validationErr("billableMinutes", "must not be negative")
	}

	session, err := s.loadOwned(ctx, orgID, technicianID, trackingID)
	if err != nil {
		return nil, nil, err
	}
	if session.IsCompleted() {
		return nil, nil, s.completedConflict(session)
	}

	now := s.now()
	total := session.NetMinutes(now)
	billable := total
	if billableMinutes != nil {
		billable = *billableMinutes
	}

	updated, err := s.sessions.Complete(ctx, orgID, technicianID, trackingID, now, total, billable, notes)
	if errors.Is(err, repository.ErrStaleState) {
		return nil, nil, s.refineStaleState(ctx, orgID, technicianID, trackingID)
	}
	if err != nil {
		return nil, nil, err
	}

	summary := &model.SessionSummary{
		TotalMinutes:    updated.TotalMinutes,
		BillableMinutes: updated.BillableMinutes,
		PausedMinutes:   updated.PausedMinutes(now),
		TotalHours:      minutesToHours(updated.TotalMinutes),
	}

	s.afterWrite(ctx, updated, EventSessionCompleted)
	return updated, summary, nil
}

// ListActive returns the caller's open sessions with live minute counters.
func (s *TrackingService) ListActive(ctx context.Context, orgID, technicianID string) ([]*model.ActiveSessionView, error) {
	if views, err := s.activeCache.Get(ctx, orgID, technicianID); err != nil {
		s.logger.Warn("active session cache read failed", zap.Error(err))
	} else if views != nil {
		return views, nil
	}

	sessions, err := s.sessions.ListOpenByTechnician(ctx, orgID, technicianID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]*model.ActiveSessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, &model.ActiveSessionView{
			Session:               session,
			CurrentSessionMinutes: session.NetMinutes(now),
			IsPaused:              session.IsPaused(),
		})
	}

	if err := s.activeCache.Set(ctx, orgID, technicianID, views); err != nil {
		s.logger.Warn("active session cache write failed", zap.Error(err))
	}
	return views, nil
}

// HistoryQuery narrows the completed-session listing.
type HistoryQuery struct {
	TechnicianID string
	From         *time.Time
	To           *time.Time
	Limit        int64
}

// History returns completed sessions with aggregate totals per work type.
func (s *TrackingService) History(ctx context.Context, orgID string, q HistoryQuery) ([]*model.TimeTrackingSession, *model.HistorySummary, error) {
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, nil, validationErr("to", "must not be before from")
	}

	sessions, err := s.sessions.ListCompleted(ctx, orgID, repository.HistoryFilter{
		TechnicianID: q.TechnicianID,
		From:         q.From,
		To:           q.To,
		Limit:        q.Limit,
	})
	if err != nil {
		return nil, nil, err
	}

	summary := &model.HistorySummary{Sessions: len(sessions)}
	billableTotal := 0
	byType := map[model.WorkType]*model.WorkTypeTotals{}
	for _, session := range sessions {
		summary.TotalMinutes += session.TotalMinutes
		billableTotal += session.BillableMinutes

		totals := byType[session.WorkType]
		if totals == nil {
			totals = &model.WorkTypeTotals{WorkType: session.WorkType}
			byType[session.WorkType] = totals
		}
		totals.Sessions++
		totals.TotalMinutes += session.TotalMinutes
		totals.BillableMinutes += session.BillableMinutes
	}
	summary.BillableHours = minutesToHours(billableTotal)

	// Stable grouping order for API consumers.
	for _, wt := range []model.WorkType{
		model.WorkTypeRepair, model.WorkTypeDiagnostic, model.WorkTypeMaintenance,
		model.WorkTypeWarranty, model.WorkTypeOther,
	} {
		if totals, ok := byType[wt]; ok {
			summary.ByWorkType = append(summary.ByWorkType, *totals)
		}
	}

	return sessions, summary, nil
}

// loadOwned fetches a session scoped to org and owner. Sessions of other
// technicians or orgs surface as not found.
func (s *TrackingService) loadOwned(ctx context.Context, orgID, technicianID, trackingID string) (*model.TimeTrackingSession, error) {
	if trackingID == "" {
		return nil, validationErr("timeTrackingId", "is required")
	}
	session, err := s.sessions.GetByID(ctx, orgID, trackingID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.TechnicianID != technicianID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// refineStaleState re-reads a session after a lost conditional write and
// reports the state that actually holds, so the caller sees "already
// paused" or "already completed" instead of a generic failure.
func (s *TrackingService) refineStaleState(ctx context.Context, orgID, technicianID, trackingID string) error {
	session, err := s.sessions.GetByID(ctx, orgID, trackingID)
	if err != nil || session == nil || session.TechnicianID != technicianID {
		return ErrSessionNotFound
	}
	if session.IsCompleted() {
		return s.completedConflict(session)
	}
	if session.IsPaused() {
		return &ConflictError{
			Code:       CodeSessionPaused,
			Message:    "session is already paused",
			TrackingID: session.ID,
			StartedAt:  session.PausedAt,
		}
	}
	return &ConflictError{
		Code:       CodeConcurrentTransition,
		Message:    "session state changed concurrently, reload and retry",
		TrackingID: session.ID,
	}
}

func (s *TrackingService) duplicateConflict(existing *model.TimeTrackingSession) error {
	startedAt := existing.StartedAt
	return &ConflictError{
		Code:       CodeSessionAlreadyOpen,
		Message:    "an open session already exists for this work order",
		TrackingID: existing.ID,
		StartedAt:  &startedAt,
	}
}

func (s *TrackingService) completedConflict(session *model.TimeTrackingSession) error {
	return &ConflictError{
		Code:       CodeSessionCompleted,
		Message:    "session is already completed",
		TrackingID: session.ID,
		StartedAt:  session.CompletedAt,
	}
}

func (s *TrackingService) afterWrite(ctx context.Context, session *model.TimeTrackingSession, event string) {
	if err := s.activeCache.Invalidate(ctx, session.OrgID, session.TechnicianID); err != nil {
		s.logger.Warn("active session cache invalidation failed",
			zap.String("tracking_id", session.ID),
			zap.Error(err),
		)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToOrg(session.OrgID, event, session)
	}
}

func minutesToHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}
