package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mednow/mednow/internal/platform/push"
)

type stubSource struct {
	scheduled []*ScheduledReminder
	err       error
	calls     int
}

func (s *stubSource) ListScheduled(context.Context) ([]*ScheduledReminder, error) {
	s.calls++
	return s.scheduled, s.err
}

func token(s string) *string { return &s }

func scheduledFor(created time.Time, medication, patientName string, deviceToken *string) *ScheduledReminder {
	return &ScheduledReminder{
		Reminder: Reminder{
			ID:             uuid.New(),
			PrescriptionID: uuid.New(),
			StartTime:      "08:00",
			DailyFrequency: 1,
			DurationDays:   7,
			CreatedAt:      created,
		},
		Medication:  medication,
		PatientID:   uuid.New(),
		PatientName: patientName,
		DeviceToken: deviceToken,
	}
}

func TestEvaluator_DispatchesDueReminders(t *testing.T) {
	created := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	due := scheduledFor(created, "Amoxicilina", "Maria", token("tok-1"))
	notDue := scheduledFor(created, "Dipirona", "João", token("tok-2"))
	notDue.StartTime = "14:00"

	source := &stubSource{scheduled: []*ScheduledReminder{due, notDue}}
	sender := &push.MockSender{}
	e := NewEvaluator(source, sender, zerolog.Nop())

	if err := e.EvaluateAndDispatch(context.Background(), now); err != nil {
		t.Fatalf("EvaluateAndDispatch: %v", err)
	}

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d pushes, want 1", len(calls))
	}
	if calls[0].DeviceToken != "tok-1" {
		t.Errorf("pushed to %q, want tok-1", calls[0].DeviceToken)
	}
	if calls[0].Title != "Lembrete de Medicação" {
		t.Errorf("title = %q", calls[0].Title)
	}
	if calls[0].Body != "Hora de tomar Amoxicilina." {
		t.Errorf("body = %q", calls[0].Body)
	}
}

func TestEvaluator_SkipsPatientsWithoutToken(t *testing.T) {
	created := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	source := &stubSource{scheduled: []*ScheduledReminder{
		scheduledFor(created, "Amoxicilina", "Maria", nil),
		scheduledFor(created, "Dipirona", "João", token("")),
		scheduledFor(created, "Ibuprofeno", "Ana", token("tok-3")),
	}}
	sender := &push.MockSender{}
	e := NewEvaluator(source, sender, zerolog.Nop())

	if err := e.EvaluateAndDispatch(context.Background(), now); err != nil {
		t.Fatalf("EvaluateAndDispatch: %v", err)
	}
	calls := sender.Calls()
	if len(calls) != 1 || calls[0].DeviceToken != "tok-3" {
		t.Fatalf("calls = %+v, want only tok-3", calls)
	}
}

func TestEvaluator_StoreFailureAbortsPass(t *testing.T) {
	source := &stubSource{err: errors.New("connection refused")}
	sender := &push.MockSender{}
	e := NewEvaluator(source, sender, zerolog.Nop())

	err := e.EvaluateAndDispatch(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected error when the store read fails")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error does not wrap the cause: %v", err)
	}
	if len(sender.Calls()) != 0 {
		t.Error("no pushes may happen after a store failure")
	}
}

func TestEvaluator_PushFailureDoesNotAbortOthers(t *testing.T) {
	created := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	source := &stubSource{scheduled: []*ScheduledReminder{
		scheduledFor(created, "Amoxicilina", "Maria", token("tok-1")),
		scheduledFor(created, "Dipirona", "João", token("tok-2")),
	}}
	sender := &push.MockSender{ShouldFail: true}
	e := NewEvaluator(source, sender, zerolog.Nop())

	if err := e.EvaluateAndDispatch(context.Background(), now); err != nil {
		t.Fatalf("push failures must not fail the pass: %v", err)
	}
	if got := len(sender.Calls()); got != 2 {
		t.Errorf("got %d attempted pushes, want 2", got)
	}
}

func TestEvaluator_SameMinuteEvaluatedTwiceSendsTwice(t *testing.T) {
	created := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	source := &stubSource{scheduled: []*ScheduledReminder{
		scheduledFor(created, "Amoxicilina", "Maria", token("tok-1")),
	}}
	sender := &push.MockSender{}
	e := NewEvaluator(source, sender, zerolog.Nop())

	// The evaluator keeps no dispatch history. Two passes over the
	// same minute both send.
	for i := 0; i < 2; i++ {
		if err := e.EvaluateAndDispatch(context.Background(), now); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}
	if got := len(sender.Calls()); got != 2 {
		t.Errorf("got %d pushes across two same-minute passes, want 2", got)
	}
}
