package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"garageops/internal/model"
	"garageops/internal/service"
	"garageops/internal/transport/rest/middleware"
)

// TrackingHandler handles the time-tracking endpoints
type TrackingHandler struct {
	trackingSvc *service.TrackingService
	logger      *zap.Logger
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(trackingSvc *service.TrackingService, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{
		trackingSvc: trackingSvc,
		logger:      logger,
	}
}

// StartRequest is the request body for starting a session
type StartRequest struct {
	WorkOrderID string         `json:"workOrderId"`
	WorkType    model.WorkType `json:"workType,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	AutoStarted bool           `json:"autoStarted,omitempty"`
}

// Start handles POST /v1/time-tracking/start
func (h *TrackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	technicianID := middleware.GetTechnicianID(r.Context())

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.trackingSvc.Start(r.Context(), orgID, technicianID, service.StartInput{
		WorkOrderID: req.WorkOrderID,
		WorkType:    req.WorkType,
		Notes:       req.Notes,
		AutoStarted: req.AutoStarted,
	})
	if err != nil {
		h.logInternal("start session", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListActive handles GET /v1/time-tracking/start
func (h *TrackingHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	technicianID := middleware.GetTechnicianID(r.Context())

	views, err := h.trackingSvc.ListActive(r.Context(), orgID, technicianID)
	if err != nil {
		h.logInternal("list active sessions", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": views})
}

// PauseRequest is the request body for pausing a session
type PauseRequest struct {
	TimeTrackingID string `json:"timeTrackingId"`
	Reason         string `json:"reason,omitempty"`
}

// Pause handles POST /v1/time-tracking/pause
func (h *TrackingHandler) Pause(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	technicianID := middleware.GetTechnicianID(r.Context())

	var req PauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.trackingSvc.Pause(r.Context(), orgID, technicianID, req.TimeTrackingID, req.Reason)
	if err != nil {
		h.logInternal("pause session", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// ResumeRequest is the request body for resuming a paused session
type ResumeRequest struct {
	TimeTrackingID string `json:"timeTrackingId"`
}

// Resume handles PUT /v1/time-tracking/pause
func (h *TrackingHandler) Resume(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	technicianID := middleware.GetTechnicianID(r.Context())

	var req ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.trackingSvc.Resume(r.Context(), orgID, technicianID, req.TimeTrackingID)
	if err != nil {
		h.logInternal("resume session", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// CompleteRequest is the request body for completing a session
type CompleteRequest struct {
	TimeTrackingID  string `json:"timeTrackingId"`
	BillableMinutes *int   `json:"billableMinutes,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Complete handles POST /v1/time-tracking/complete
func (h *TrackingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	technicianID := middleware.GetTechnicianID(r.Context())

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, summary, err := h.trackingSvc.Complete(r.Context(), orgID, technicianID, req.TimeTrackingID, req.BillableMinutes, req.Notes)
	if err != nil {
		h.logInternal("complete session", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"summary": summary,
	})
}

// History handles GET /v1/time-tracking/complete
func (h *TrackingHandler) History(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())

	query := service.HistoryQuery{
		TechnicianID: r.URL.Query().Get("technicianId"),
	}

	from, err := parseDateParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	query.From = from

	to, err := parseDateParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}
	query.To = to

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.ParseInt(limitStr, 10, 64); err == nil && n > 0 {
			query.Limit = n
		}
	}

	sessions, summary, err := h.trackingSvc.History(r.Context(), orgID, query)
	if err != nil {
		h.logInternal("query session history", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"summary":  summary,
	})
}

// parseDateParam accepts RFC 3339 timestamps or plain dates.
func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// logInternal records unexpected failures; expected taxonomy errors
// (conflict, validation, not found) are the caller's problem, not ours.
func (h *TrackingHandler) logInternal(op string, err error) {
	var conflict *service.ConflictError
	var invalid *service.ValidationError
	if errors.As(err, &conflict) || errors.As(err, &invalid) ||
		errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrWorkOrderNotFound) {
		return
	}
	h.logger.Error("time tracking operation failed", zap.String("op", op), zap.Error(err))
}
