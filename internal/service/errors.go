package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// ErrSessionNotFound covers both a missing session and a session that
	// belongs to another organization; the two are indistinguishable to
	// the caller so existence does not leak across orgs.
	ErrSessionNotFound   = errors.New("time tracking session not found")
	ErrWorkOrderNotFound = errors.New("work order not found")
)

// ConflictError is a failed state-machine precondition. It carries the
// identity of the session that holds the state so the caller can recover
// without polling.
type ConflictError struct {
	Code       string
	Message    string
	TrackingID string
	StartedAt  *time.Time
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ValidationError is malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Conflict codes returned to API clients.
const (
	CodeSessionAlreadyOpen   = "session_already_open"
	CodeSessionPaused        = "session_already_paused"
	CodeSessionNotPaused     = "session_not_paused"
	CodeSessionCompleted     = "session_already_completed"
	CodeWorkOrderTerminal    = "work_order_terminal"
	CodeConcurrentTransition = "concurrent_transition"
)
