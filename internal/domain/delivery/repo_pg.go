package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, d *Delivery) error {
	d.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO deliveries (id, prescription_id, pharmacist_id, delivered_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		d.ID, d.PrescriptionID, d.PharmacistID, d.DeliveredAt,
	).Scan(&d.CreatedAt)
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Delivery, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.PrescriptionID != uuid.Nil {
		add("d.prescription_id = $%d", filter.PrescriptionID)
	}
	if filter.PharmacistID != uuid.Nil {
		add("d.pharmacist_id = $%d", filter.PharmacistID)
	}
	if filter.PatientID != uuid.Nil {
		add("p.patient_id = $%d", filter.PatientID)
	}

	from := ` FROM deliveries d JOIN prescriptions p ON p.id = d.prescription_id`
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(args, limit, offset)
	query := `SELECT d.id, d.prescription_id, d.pharmacist_id, d.delivered_at, d.created_at` + from +
		fmt.Sprintf(" ORDER BY d.delivered_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, query, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.PrescriptionID, &d.PharmacistID, &d.DeliveredAt, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, rows.Err()
}
