package reminder

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const reminderCols = `id, prescription_id, created_by_id, start_time, daily_frequency, duration_days, created_at, updated_at`

func scanReminder(row pgx.Row) (*Reminder, error) {
	var r Reminder
	err := row.Scan(&r.ID, &r.PrescriptionID, &r.CreatedByID, &r.StartTime,
		&r.DailyFrequency, &r.DurationDays, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (p *repoPG) Create(ctx context.Context, r *Reminder) error {
	r.ID = uuid.New()
	return p.pool.QueryRow(ctx, `
		INSERT INTO reminders (id, prescription_id, created_by_id, start_time, daily_frequency, duration_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		r.ID, r.PrescriptionID, r.CreatedByID, r.StartTime, r.DailyFrequency, r.DurationDays,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+reminderCols+` FROM reminders WHERE id = $1`, id)
	return scanReminder(row)
}

func (p *repoPG) Update(ctx context.Context, r *Reminder) error {
	return p.pool.QueryRow(ctx, `
		UPDATE reminders
		SET start_time = $2, daily_frequency = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		r.ID, r.StartTime, r.DailyFrequency,
	).Scan(&r.UpdatedAt)
}

func (p *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Reminder, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.PrescriptionID != uuid.Nil {
		add("r.prescription_id = $%d", filter.PrescriptionID)
	}
	if filter.CreatedByID != uuid.Nil {
		add("r.created_by_id = $%d", filter.CreatedByID)
	}
	if filter.PatientID != uuid.Nil {
		add("p.patient_id = $%d", filter.PatientID)
	}

	from := ` FROM reminders r JOIN prescriptions p ON p.id = r.prescription_id`
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(args, limit, offset)
	query := `SELECT r.id, r.prescription_id, r.created_by_id, r.start_time, r.daily_frequency, r.duration_days, r.created_at, r.updated_at` +
		from + fmt.Sprintf(" ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := p.pool.Query(ctx, query, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

// ListScheduled returns every reminder joined with its prescription's
// medication and the patient's name and device token. The evaluator
// filters expired and tokenless rows itself.
func (p *repoPG) ListScheduled(ctx context.Context) ([]*ScheduledReminder, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT r.id, r.prescription_id, r.created_by_id, r.start_time, r.daily_frequency, r.duration_days,
		       r.created_at, r.updated_at,
		       p.medication, p.patient_id, u.name, u.device_token
		FROM reminders r
		JOIN prescriptions p ON p.id = r.prescription_id
		JOIN users u ON u.id = p.patient_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ScheduledReminder
	for rows.Next() {
		var sr ScheduledReminder
		if err := rows.Scan(&sr.ID, &sr.PrescriptionID, &sr.CreatedByID, &sr.StartTime,
			&sr.DailyFrequency, &sr.DurationDays, &sr.CreatedAt, &sr.UpdatedAt,
			&sr.Medication, &sr.PatientID, &sr.PatientName, &sr.DeviceToken); err != nil {
			return nil, err
		}
		items = append(items, &sr)
	}
	return items, rows.Err()
}
