// Package hub fans thread events out to websocket watchers.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
)

// Connection is a single watcher. ThreadID narrows the session's events to
// one thread when set.
type Connection struct {
	ID        string
	SessionID string
	ThreadID  string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex
}

// Hub manages all watcher connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Sessions maps session_id to set of connection IDs
	sessions map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan domain.ThreadEvent
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan domain.ThreadEvent, 256),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[string]bool)
			}
			h.sessions[conn.SessionID][conn.ID] = true
			h.mu.Unlock()
			logger.L.Debug("watcher registered", "conn_id", conn.ID, "session_id", conn.SessionID, "thread_id", conn.ThreadID)

		case conn := <-h.unregister:
			h.remove(conn)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if ids := h.sessions[conn.SessionID]; ids != nil {
		delete(ids, conn.ID)
		if len(ids) == 0 {
			delete(h.sessions, conn.SessionID)
		}
	}
	close(conn.Send)
	logger.L.Debug("watcher unregistered", "conn_id", conn.ID)
}

func (h *Hub) deliver(event domain.ThreadEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.L.Error("failed to encode thread event", "error", err)
		return
	}

	var slow []*Connection
	h.mu.RLock()
	for connID := range h.sessions[event.SessionID] {
		conn, ok := h.connections[connID]
		if !ok || (conn.ThreadID != "" && conn.ThreadID != event.ThreadID) {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range slow {
		logger.L.Warn("watcher buffer full, closing", "conn_id", conn.ID)
		h.remove(conn)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		close(conn.Send)
		delete(h.connections, id)
	}
	h.sessions = make(map[string]map[string]bool)
}

// NewConnection creates a connection watching sessionID, optionally
// restricted to threadID.
func (h *Hub) NewConnection(ws *websocket.Conn, sessionID, threadID string) *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		ThreadID:  threadID,
		Conn:      ws,
		Send:      make(chan []byte, 64),
	}
}

// Register adds a connection. It reports false once the hub has stopped.
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection and closes its Send channel.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish queues event for the watchers of its session. Events are dropped
// when the queue is full.
func (h *Hub) Publish(event domain.ThreadEvent) {
	if event.Ts == 0 {
		event.Ts = time.Now().Unix()
	}
	select {
	case h.broadcast <- event:
	default:
		logger.L.Warn("thread event dropped", "session_id", event.SessionID, "thread_id", event.ThreadID, "type", event.Type)
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasWatchers reports whether a session has any active connections.
func (h *Hub) HasWatchers(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Close closes the underlying websocket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
