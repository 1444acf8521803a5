package api

import (
	"net/http"
	"sync"

	"bayaniquest/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message is the wire format pushed to connected clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// client owns one connection. All writes go through the send channel and
// a single writer goroutine; the connection is never written from more
// than one goroutine.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (cl *client) writeLoop() {
	for payload := range cl.send {
		if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
	_ = cl.conn.Close()
}

// EventHub fans lifecycle events out to connected websocket clients.
// Delivery is best effort: a slow or gone client is dropped, never
// waited on.
type EventHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *EventHub) Register(handler *gin.RouterGroup) {
	handler.GET("/ws", h.Serve)
}

func (h *EventHub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Logger().Error("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go cl.writeLoop()

	// Reader loop exists only to notice the close.
	go func() {
		defer h.drop(cl)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *EventHub) drop(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

func (h *EventHub) broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Logger().Error("failed to marshal event", zap.Error(err))
		return
	}

	h.mu.Lock()
	for cl := range h.clients {
		select {
		case cl.send <- payload:
		default:
			// Full buffer means the writer is stuck; drop the client
			// rather than block a lifecycle request on it.
			delete(h.clients, cl)
			close(cl.send)
		}
	}
	h.mu.Unlock()
}

// LifecycleNotifier implementation.

func (h *EventHub) QuestHired(questID, applicationID uuid.UUID) {
	h.broadcast(Message{Type: "quest_hired", Data: gin.H{
		"quest_id":       questID,
		"application_id": applicationID,
	}})
}

func (h *EventHub) QuestCompleted(questID uuid.UUID) {
	h.broadcast(Message{Type: "quest_completed", Data: gin.H{
		"quest_id": questID,
	}})
}

func (h *EventHub) QuestHireCancelled(questID, applicationID uuid.UUID) {
	h.broadcast(Message{Type: "quest_hire_cancelled", Data: gin.H{
		"quest_id":       questID,
		"application_id": applicationID,
	}})
}

func (h *EventHub) ApplicationRejected(applicationID uuid.UUID) {
	h.broadcast(Message{Type: "application_rejected", Data: gin.H{
		"application_id": applicationID,
	}})
}
