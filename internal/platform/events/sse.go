package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// streamBufferSize bounds the per-connection frame queue. A client that stops
// reading loses events rather than blocking publishers.
const streamBufferSize = 64

// Frame serializes an event into the SSE wire format:
//
//	data: {"tipo":<eventType>,...payload}\n\n
//
// Payload keys are merged beside "tipo"; a payload key named "tipo" is
// overwritten by the event type.
func Frame(eventType string, payload Payload) ([]byte, error) {
	body := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["tipo"] = eventType

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", eventType, err)
	}
	return []byte("data: " + string(data) + "\n\n"), nil
}

// ParseFrame decodes a wire frame back into its JSON object. Used by tests
// and by the WebSocket feed, which sends the same JSON without SSE framing.
func ParseFrame(frame []byte) (map[string]interface{}, error) {
	const prefix = "data: "
	s := string(frame)
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return nil, fmt.Errorf("frame missing %q prefix", prefix)
	}
	s = s[len(prefix):]
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("decode frame body: %w", err)
	}
	return obj, nil
}

// StreamHandler serves the long-lived SSE endpoint that dashboards connect
// to. Each connection subscribes to every domain event type, receives a
// synthetic "conectado" frame on open, and is kept alive with periodic ping
// comments so intermediaries do not drop the idle connection.
type StreamHandler struct {
	broadcaster *Broadcaster
	heartbeat   time.Duration
	logger      zerolog.Logger
}

// NewStreamHandler creates a StreamHandler bound to the given Broadcaster.
func NewStreamHandler(b *Broadcaster, heartbeat time.Duration, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{broadcaster: b, heartbeat: heartbeat, logger: logger}
}

// RegisterRoutes registers the SSE endpoint on the provided Echo group.
func (h *StreamHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/events/patients", h.HandleStream)
}

// HandleStream holds the connection open, forwarding published events as SSE
// frames until the client disconnects. Cleanup is synchronous with
// cancellation: the heartbeat timer stops and every subscription is removed
// before the handler returns, so disconnected clients leak nothing.
func (h *StreamHandler) HandleStream(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	frames := make(chan []byte, streamBufferSize)
	cancels := make([]func(), 0, len(DomainEventTypes))
	for _, eventType := range DomainEventTypes {
		cancels = append(cancels, h.broadcaster.Subscribe(eventType, func(eventType string, payload Payload) {
			frame, err := Frame(eventType, payload)
			if err != nil {
				h.logger.Warn().Err(err).Str("event", eventType).Msg("dropping unserializable event")
				return
			}
			select {
			case frames <- frame:
			default:
				// Client buffer full; skip to avoid blocking the publisher.
			}
		}))
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	hello, err := Frame(TypeConnected, Payload{"mensagem": "Canal de eventos conectado com sucesso."})
	if err != nil {
		return err
	}
	if _, err := w.Write(hello); err != nil {
		return nil
	}
	w.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	h.logger.Debug().Msg("event stream opened")

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug().Msg("event stream closed by client")
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return nil
			}
			w.Flush()
		case frame := <-frames:
			if _, err := w.Write(frame); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
