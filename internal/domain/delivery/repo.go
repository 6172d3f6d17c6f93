package delivery

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, d *Delivery) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Delivery, int, error)
}
