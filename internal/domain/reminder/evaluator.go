package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mednow/mednow/internal/platform/push"
)

const (
	notificationTitle      = "Lembrete de Medicação"
	notificationBodyFormat = "Hora de tomar %s."
)

// ScheduleSource is the slice of the repository the evaluator needs.
type ScheduleSource interface {
	ListScheduled(ctx context.Context) ([]*ScheduledReminder, error)
}

// Evaluator computes which reminders are due at a given instant and
// dispatches one push notification per due dose. It keeps no state
// between runs; the same minute evaluated twice sends twice.
type Evaluator struct {
	source ScheduleSource
	sender push.Sender
	logger zerolog.Logger
}

func NewEvaluator(source ScheduleSource, sender push.Sender, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		source: source,
		sender: sender,
		logger: logger.With().Str("component", "reminder_evaluator").Logger(),
	}
}

// EvaluateAndDispatch runs one pass over every active reminder. A
// store read failure aborts the whole pass and is returned; a push
// failure is logged and the remaining reminders still get evaluated.
// Patients without a registered device token are skipped.
func (e *Evaluator) EvaluateAndDispatch(ctx context.Context, now time.Time) error {
	scheduled, err := e.source.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("load scheduled reminders: %w", err)
	}

	due := 0
	for _, sr := range scheduled {
		if sr.DeviceToken == nil || *sr.DeviceToken == "" {
			continue
		}
		if !sr.DueAt(now) {
			continue
		}

		due++
		body := fmt.Sprintf(notificationBodyFormat, sr.Medication)
		if err := e.sender.Send(ctx, *sr.DeviceToken, notificationTitle, body, nil); err != nil {
			e.logger.Error().Err(err).
				Str("reminder_id", sr.ID.String()).
				Str("patient_id", sr.PatientID.String()).
				Msg("push dispatch failed")
			continue
		}

		e.logger.Info().
			Str("reminder_id", sr.ID.String()).
			Str("patient_id", sr.PatientID.String()).
			Str("medication", sr.Medication).
			Msg("reminder dispatched")
	}

	e.logger.Debug().
		Time("tick", now).
		Int("scheduled", len(scheduled)).
		Int("due", due).
		Msg("evaluation pass completed")

	return nil
}
