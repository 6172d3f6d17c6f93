package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	PatientContact(ctx context.Context, id uuid.UUID) (medication string, deviceToken *string, err error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Prescription, int, error)
	History(ctx context.Context, patientID uuid.UUID) ([]*HistoryEntry, error)
}
