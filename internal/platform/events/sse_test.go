package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// syncRecorder wraps httptest.ResponseRecorder with a lock so the test can
// read the body while the stream handler is still writing.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *syncRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.Flush()
}

func (r *syncRecorder) BodyString() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// startStream opens a stream connection against handler and returns the
// recorder, a cancel for the client side, and a channel closed on handler exit.
func startStream(t *testing.T, h *StreamHandler) (*syncRecorder, context.CancelFunc, chan struct{}) {
	t.Helper()
	e := echo.New()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events/patients", nil).WithContext(ctx)
	rec := newSyncRecorder()
	c := e.NewContext(req, rec)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := h.HandleStream(c); err != nil {
			t.Errorf("HandleStream returned error: %v", err)
		}
	}()
	return rec, cancel, done
}

func TestStreamHandler_SendsConnectionEstablishedFrame(t *testing.T) {
	b := testBroadcaster()
	h := NewStreamHandler(b, time.Hour, zerolog.Nop())

	rec, cancel, done := startStream(t, h)
	defer func() { cancel(); <-done }()

	waitFor(t, func() bool {
		return strings.Contains(rec.BodyString(), `"tipo":"conectado"`)
	}, "expected a conectado frame on open")

	if got := rec.Header().Get(echo.HeaderContentType); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
}

func TestStreamHandler_ForwardsPublishedEvents(t *testing.T) {
	b := testBroadcaster()
	h := NewStreamHandler(b, time.Hour, zerolog.Nop())

	rec, cancel, done := startStream(t, h)
	defer func() { cancel(); <-done }()

	waitFor(t, func() bool {
		return b.SubscriberCount(TypeNewReminder) == 1
	}, "stream never subscribed to reminder events")

	b.Publish(TypeNewReminder, Payload{"alarme": map[string]interface{}{"id": "a1"}})

	waitFor(t, func() bool {
		body := rec.BodyString()
		return strings.Contains(body, `"tipo":"novo_alarme"`) && strings.Contains(body, `"id":"a1"`)
	}, "published event never reached the stream")
}

func TestStreamHandler_HeartbeatAndCleanupOnCancel(t *testing.T) {
	b := testBroadcaster()
	h := NewStreamHandler(b, 10*time.Millisecond, zerolog.Nop())

	rec, cancel, done := startStream(t, h)

	waitFor(t, func() bool {
		return strings.Contains(rec.BodyString(), ": ping\n\n")
	}, "expected at least one heartbeat")

	cancel()
	<-done

	// All subscriptions removed synchronously with handler exit.
	for _, eventType := range DomainEventTypes {
		if n := b.SubscriberCount(eventType); n != 0 {
			t.Fatalf("expected 0 residual subscribers for %s, got %d", eventType, n)
		}
	}

	// Heartbeat timer stopped: no further pings after cancellation.
	pings := strings.Count(rec.BodyString(), ": ping\n\n")
	time.Sleep(50 * time.Millisecond)
	if after := strings.Count(rec.BodyString(), ": ping\n\n"); after != pings {
		t.Fatalf("heartbeat fired after cancellation: %d -> %d", pings, after)
	}

	// Events published after disconnect reach nobody and must not panic.
	b.Publish(TypeNewReminder, Payload{"alarme": map[string]interface{}{"id": "late"}})
	if strings.Contains(rec.BodyString(), "late") {
		t.Fatal("event delivered to a closed stream")
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	frame, err := Frame(TypeNewReminder, Payload{
		"alarme": map[string]interface{}{"id": "a1"},
		"origem": "farmacia",
	})
	if err != nil {
		t.Fatalf("Frame returned error: %v", err)
	}

	if !strings.HasPrefix(string(frame), "data: ") || !strings.HasSuffix(string(frame), "\n\n") {
		t.Fatalf("malformed wire frame: %q", frame)
	}

	obj, err := ParseFrame(frame)
	if err != nil {
		t.Fatalf("ParseFrame returned error: %v", err)
	}
	if obj["tipo"] != TypeNewReminder {
		t.Errorf("tipo = %v, want %s", obj["tipo"], TypeNewReminder)
	}
	if obj["origem"] != "farmacia" {
		t.Errorf("payload key origem missing or wrong: %v", obj["origem"])
	}
	alarme, ok := obj["alarme"].(map[string]interface{})
	if !ok || alarme["id"] != "a1" {
		t.Errorf("payload key alarme not preserved: %v", obj["alarme"])
	}
}

func TestFrame_TipoOverridesPayloadKey(t *testing.T) {
	frame, err := Frame(TypeNewReminder, Payload{"tipo": "spoofed"})
	if err != nil {
		t.Fatalf("Frame returned error: %v", err)
	}
	obj, err := ParseFrame(frame)
	if err != nil {
		t.Fatalf("ParseFrame returned error: %v", err)
	}
	if obj["tipo"] != TypeNewReminder {
		t.Errorf("tipo = %v, want %s", obj["tipo"], TypeNewReminder)
	}
}
