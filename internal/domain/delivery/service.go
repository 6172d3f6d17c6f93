package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mednow/mednow/internal/platform/events"
)

var ErrPrescriptionNotFound = errors.New("prescription not found")

// PrescriptionDirectory answers existence checks without importing the
// prescription package.
type PrescriptionDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo          Repository
	prescriptions PrescriptionDirectory
	publisher     events.Publisher
}

func NewService(repo Repository, prescriptions PrescriptionDirectory, publisher events.Publisher) *Service {
	return &Service{repo: repo, prescriptions: prescriptions, publisher: publisher}
}

// Register records one hand-off. DeliveredAt defaults to now when the
// caller leaves it zero.
func (s *Service) Register(ctx context.Context, d *Delivery) error {
	if d.PrescriptionID == uuid.Nil {
		return fmt.Errorf("prescription_id is required")
	}

	ok, err := s.prescriptions.Exists(ctx, d.PrescriptionID)
	if err != nil {
		return fmt.Errorf("check prescription: %w", err)
	}
	if !ok {
		return ErrPrescriptionNotFound
	}

	if d.DeliveredAt.IsZero() {
		d.DeliveredAt = time.Now()
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return err
	}

	s.publisher.Publish(events.TypeDeliveryRecorded, events.Payload{"entrega": d})
	return nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Delivery, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}
