package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	handler := RequestID()(func(c echo.Context) error {
		seen, _ = c.Get(RequestIDKey).(string)
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if seen == "" {
		t.Fatal("expected a generated request id in context")
	}
	if got := rec.Header().Get(echo.HeaderXRequestID); got != seen {
		t.Errorf("response header id = %q, want %q", got, seen)
	}
}

func TestRequestID_HonorsIncomingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "upstream-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestID()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "upstream-id" {
		t.Errorf("response header id = %q, want upstream-id", got)
	}
}

func TestLogger_EmitsRequestLine(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reminders", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(RequestIDKey, "rid-1")

	handler := Logger(logger)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	line := buf.String()
	for _, want := range []string{`"request_id":"rid-1"`, `"path":"/api/v1/reminders"`, `"method":"GET"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}

func TestRecovery_TurnsPanicInto500(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Recovery(logger)(func(c echo.Context) error {
		panic("boom")
	})
	err := handler(c)
	if err == nil {
		t.Fatal("expected an error after recovered panic")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v, want 500 HTTPError", err)
	}
	if !strings.Contains(buf.String(), `"panic":"boom"`) {
		t.Errorf("panic not logged: %s", buf.String())
	}
}
