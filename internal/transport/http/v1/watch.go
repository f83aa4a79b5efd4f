package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/hub"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
)

const (
	watchWriteTimeout  = 10 * time.Second
	watchReadTimeout   = 60 * time.Second
	watchPingInterval  = 30 * time.Second
	watchMaxMessageLen = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Watch upgrades to a websocket that receives the thread events of a
// session. thread_id narrows the stream to one thread.
// GET /api/ws?session_id=&thread_id=
func (h *Handler) Watch(c echo.Context) error {
	sessionID, ok := requiredParam(c, "session_id")
	if !ok {
		return badRequest(c, "session_id is required")
	}
	threadID, _ := requiredParam(c, "thread_id", "search_id")
	if threadID != "" && !domain.ValidThreadID(threadID) {
		return badRequest(c, "invalid thread_id")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.L.Warn("websocket upgrade failed", "error", err)
		return nil
	}

	conn := h.hub.NewConnection(ws, sessionID, threadID)
	if !h.hub.Register(conn) {
		ws.Close()
		return nil
	}
	ws.SetReadLimit(watchMaxMessageLen)

	go writePump(conn)
	go readPump(h.hub, conn)

	return nil
}

// readPump discards client frames and unregisters the watcher once the
// connection drops.
func readPump(h *hub.Hub, conn *hub.Connection) {
	defer func() {
		h.Unregister(conn)
		conn.Close()
	}()

	conn.Conn.SetReadDeadline(time.Now().Add(watchReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(watchReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L.Warn("websocket error", "conn_id", conn.ID, "error", err)
			}
			return
		}
	}
}

func writePump(conn *hub.Connection) {
	ticker := time.NewTicker(watchPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.L.Warn("failed to write thread event", "conn_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
