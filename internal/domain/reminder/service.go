package reminder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mednow/mednow/internal/platform/events"
	"github.com/mednow/mednow/internal/platform/push"
)

var ErrPrescriptionNotFound = errors.New("prescription not found")

const (
	confirmationTitle      = "⏰ Novo alarme configurado"
	confirmationBodyFormat = "Um novo alarme para %s foi definido."
)

// PrescriptionDirectory answers prescription lookups without importing
// the prescription package.
type PrescriptionDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	PatientContact(ctx context.Context, id uuid.UUID) (medication string, deviceToken *string, err error)
}

type Service struct {
	repo          Repository
	prescriptions PrescriptionDirectory
	publisher     events.Publisher
	sender        push.Sender
	logger        zerolog.Logger
}

func NewService(repo Repository, prescriptions PrescriptionDirectory, publisher events.Publisher, sender push.Sender, logger zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		prescriptions: prescriptions,
		publisher:     publisher,
		sender:        sender,
		logger:        logger.With().Str("component", "reminder_service").Logger(),
	}
}

func validateSchedule(startTime string, frequency, durationDays int) error {
	if _, _, err := ParseStartTime(startTime); err != nil {
		return err
	}
	if frequency < 1 {
		return fmt.Errorf("daily_frequency must be at least 1")
	}
	if durationDays < 1 {
		return fmt.Errorf("duration_days must be at least 1")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, r *Reminder) error {
	if r.PrescriptionID == uuid.Nil {
		return fmt.Errorf("prescription_id is required")
	}
	if err := validateSchedule(r.StartTime, r.DailyFrequency, r.DurationDays); err != nil {
		return err
	}

	ok, err := s.prescriptions.Exists(ctx, r.PrescriptionID)
	if err != nil {
		return fmt.Errorf("check prescription: %w", err)
	}
	if !ok {
		return ErrPrescriptionNotFound
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return err
	}

	s.confirmToPatient(ctx, r)
	s.publisher.Publish(events.TypeNewReminder, events.Payload{"alarme": r})
	return nil
}

// confirmToPatient pushes a one-off confirmation to the patient's device
// when a token is registered. Failures are logged and do not fail the
// creation that already committed.
func (s *Service) confirmToPatient(ctx context.Context, r *Reminder) {
	medication, token, err := s.prescriptions.PatientContact(ctx, r.PrescriptionID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("reminder_id", r.ID.String()).
			Msg("patient contact lookup failed")
		return
	}
	if token == nil || *token == "" {
		return
	}

	body := fmt.Sprintf(confirmationBodyFormat, medication)
	data := map[string]string{"tipo": events.TypeNewReminder}
	if err := s.sender.Send(ctx, *token, confirmationTitle, body, data); err != nil {
		s.logger.Error().Err(err).
			Str("reminder_id", r.ID.String()).
			Msg("confirmation push failed")
	}
}

// Update applies partial changes to the schedule. Absent fields keep
// their stored values.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Reminder, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.StartTime != nil {
		r.StartTime = *params.StartTime
	}
	if params.DailyFrequency != nil {
		r.DailyFrequency = *params.DailyFrequency
	}
	if err := validateSchedule(r.StartTime, r.DailyFrequency, r.DurationDays); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.TypeReminderUpdated, events.Payload{"alarme": r})
	return r, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Reminder, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}
