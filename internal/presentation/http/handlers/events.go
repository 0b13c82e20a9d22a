package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/messaging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// EventHandlers streams bridge events to the web layer over a WebSocket.
type EventHandlers struct {
	bus      *messaging.BridgeBus
	upgrader websocket.Upgrader
	logger   *logging.ChanneledLogger
}

// NewEventHandlers creates the event socket handlers. Origin checking is
// delegated to the CORS and token middleware in front of the route.
func NewEventHandlers(bus *messaging.BridgeBus, logger *logging.ChanneledLogger) *EventHandlers {
	return &EventHandlers{
		bus: bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// StreamEvents handles GET /bridge/events. Each connection gets its own bus
// subscription and receives every event published after it connects.
func (h *EventHandlers) StreamEvents(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.HTTP().Warn("Event socket upgrade failed", "error", err.Error())
		return
	}

	events, cancel := h.bus.Subscribe()
	h.logger.Bridge().Info("Event socket client connected", "remote", conn.RemoteAddr().String())

	// Reader detects the peer going away; its exit tears the writer down
	// through the subscription.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
		h.logger.Bridge().Info("Event socket client disconnected")
	}()

	for {
		select {
		case data, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
