package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Session lifecycle events pushed to org dashboards
const (
	MsgSessionStarted   MessageType = "session_started"
	MsgSessionPaused    MessageType = "session_paused"
	MsgSessionResumed   MessageType = "session_resumed"
	MsgSessionCompleted MessageType = "session_completed"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans session lifecycle events out to the dashboard clients of each
// organization. Events are advisory; dropping one only delays a timer
// refresh on screen.
type Hub struct {
	// Org -> connections
	conns map[string]map[*Connection]bool

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage

	logger *zap.Logger
}

// Connection represents one dashboard WebSocket connection
type Connection struct {
	OrgID        string
	TechnicianID string
	Send         chan []byte
	Hub          *Hub
}

// BroadcastMessage is a message to broadcast to an org's dashboards
type BroadcastMessage struct {
	OrgID   string
	Message *Message
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.OrgID] == nil {
				h.conns[conn.OrgID] = make(map[*Connection]bool)
			}
			h.conns[conn.OrgID][conn] = true
			h.mu.Unlock()
			h.logger.Debug("dashboard connected",
				zap.String("org_id", conn.OrgID),
				zap.String("technician_id", conn.TechnicianID),
			)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.conns[conn.OrgID]; ok {
				if conns[conn] {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.conns, conn.OrgID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("dashboard disconnected",
				zap.String("org_id", conn.OrgID),
				zap.String("technician_id", conn.TechnicianID),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)
			for conn := range h.conns[msg.OrgID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToOrg sends a message to every dashboard of an organization
// (implements service.Broadcaster)
func (h *Hub) BroadcastToOrg(orgID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("failed to marshal broadcast payload", zap.Error(err))
		return
	}
	h.broadcast <- &BroadcastMessage{
		OrgID: orgID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}
