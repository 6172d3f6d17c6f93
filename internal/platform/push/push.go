// Package push delivers mobile push notifications through Firebase Cloud
// Messaging. The reminder evaluator is its only in-process consumer; delivery
// failures are for the caller to log and tolerate, never to abort on.
package push

import (
	"context"
	"errors"
	"sync"
)

// ErrMissingToken is returned when a send is attempted with no device token.
var ErrMissingToken = errors.New("push: device token is required")

// Sender sends one notification to one device address.
type Sender interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// Call records a single Send invocation on MockSender.
type Call struct {
	DeviceToken string
	Title       string
	Body        string
	Data        map[string]string
}

// MockSender is a test double for Sender.
type MockSender struct {
	mu         sync.Mutex
	calls      []Call
	ShouldFail bool
	FailError  error
}

// Send records the call and optionally returns an error.
func (m *MockSender) Send(_ context.Context, deviceToken, title, body string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{DeviceToken: deviceToken, Title: title, Body: body, Data: data})
	if m.ShouldFail {
		if m.FailError != nil {
			return m.FailError
		}
		return errors.New("push send failed")
	}
	return nil
}

// Calls returns a copy of recorded calls.
func (m *MockSender) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
