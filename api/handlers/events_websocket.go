package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Matkids/Video-Downloader/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

const eventWriteTimeout = 10 * time.Second

// EventsWebSocketHandler streams lifecycle transitions to WebSocket
// clients in real time
type EventsWebSocketHandler struct {
	events *app.EventHub
	logger *zap.Logger
}

// NewEventsWebSocketHandler creates a new WebSocket handler
func NewEventsWebSocketHandler(events *app.EventHub, log *zap.Logger) *EventsWebSocketHandler {
	return &EventsWebSocketHandler{events: events, logger: log}
}

// HandleWebSocket handles GET /api/v1/events
func (h *EventsWebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	h.logger.Info("Event stream client connected",
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Drain reads so close frames from the client are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("Event stream client dropped", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
