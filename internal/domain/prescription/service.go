package prescription

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mednow/mednow/internal/platform/events"
)

var validClasses = map[string]bool{
	ClassOrdinary:   true,
	ClassAntibiotic: true,
	ClassControlled: true,
}

type Service struct {
	repo      Repository
	publisher events.Publisher
}

func NewService(repo Repository, publisher events.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if p.Medication == "" {
		return fmt.Errorf("medication is required")
	}
	if p.Dosage == "" {
		return fmt.Errorf("dosage is required")
	}
	if p.Frequency == "" {
		return fmt.Errorf("frequency is required")
	}
	if p.Duration == "" {
		return fmt.Errorf("duration is required")
	}
	if p.Class == "" {
		p.Class = ClassOrdinary
	}
	if !validClasses[p.Class] {
		return fmt.Errorf("invalid class: %s", p.Class)
	}

	// The regulated fields only mean something on a controlled
	// prescription; anything else submitted with them is stripped.
	if p.Class != ClassControlled {
		p.PrescriptionType = nil
		p.NotificationNumber = nil
		p.ValidUntil = nil
		p.CopyCount = nil
		p.DigitallySigned = nil
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}

	s.publisher.Publish(events.TypeNewPrescription, events.Payload{"prescricao": p})
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists satisfies the reminder and delivery packages' existence
// checks.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// PatientContact returns the prescription's medication name and the
// patient's registered device token, nil when none is set.
func (s *Service) PatientContact(ctx context.Context, id uuid.UUID) (string, *string, error) {
	return s.repo.PatientContact(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]*HistoryEntry, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	return s.repo.History(ctx, patientID)
}
