package reminder

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	Update(ctx context.Context, r *Reminder) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Reminder, int, error)
	ListScheduled(ctx context.Context) ([]*ScheduledReminder, error)
}
