package events

import (
	"encoding/json"
	"net/http"
	"sync"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// WSHandler serves a WebSocket feed carrying the same domain events as the
// SSE endpoint, one JSON text message per event ({"tipo":...,...payload}).
// Mobile dashboards that cannot hold an SSE connection use this instead.
type WSHandler struct {
	broadcaster *Broadcaster
	logger      zerolog.Logger
}

// NewWSHandler creates a WSHandler bound to the given Broadcaster.
func NewWSHandler(b *Broadcaster, logger zerolog.Logger) *WSHandler {
	return &WSHandler{broadcaster: b, logger: logger}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (h *WSHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/events/ws", h.HandleConnect)
}

// HandleConnect upgrades the connection, subscribes it to every domain event
// type, and forwards events until the client disconnects.
func (h *WSHandler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	send := make(chan []byte, streamBufferSize)
	done := make(chan struct{})
	cancels := make([]func(), 0, len(DomainEventTypes))
	for _, eventType := range DomainEventTypes {
		cancels = append(cancels, h.broadcaster.Subscribe(eventType, func(eventType string, payload Payload) {
			body := make(map[string]interface{}, len(payload)+1)
			for k, v := range payload {
				body[k] = v
			}
			body["tipo"] = eventType

			msg, err := json.Marshal(body)
			if err != nil {
				h.logger.Warn().Err(err).Str("event", eventType).Msg("dropping unserializable event")
				return
			}
			// A publish that snapshotted this subscriber before teardown
			// cancelled it may still land here; done keeps it from
			// touching a dead connection.
			select {
			case <-done:
			case send <- msg:
			default:
				// Client buffer full; skip to avoid blocking the publisher.
			}
		}))
	}

	var once sync.Once
	teardown := func() {
		once.Do(func() {
			close(done)
			for _, cancel := range cancels {
				cancel()
			}
			ws.Close()
		})
	}

	go h.writePump(ws, send, done, teardown)
	go h.readPump(ws, teardown)

	return nil
}

// readPump drains client messages to detect disconnection. Inbound content is
// ignored; the feed is one-way.
func (h *WSHandler) readPump(ws *gorillawebsocket.Conn, teardown func()) {
	defer teardown()
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) writePump(ws *gorillawebsocket.Conn, send chan []byte, done chan struct{}, teardown func()) {
	defer teardown()
	for {
		select {
		case <-done:
			return
		case msg := <-send:
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
