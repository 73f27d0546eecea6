package service

// Broadcaster pushes session lifecycle events to dashboard clients
// (avoids import cycle with the ws package)
type Broadcaster interface {
	BroadcastToOrg(orgID string, msgType string, payload interface{})
}
