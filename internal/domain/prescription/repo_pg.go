package prescription

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

const prescriptionCols = `id, patient_id, physician_id, medication, dosage, frequency, duration, notes, class,
	prescription_type, notification_number, valid_until, copy_count, digitally_signed,
	created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.PhysicianID, &p.Medication, &p.Dosage,
		&p.Frequency, &p.Duration, &p.Notes, &p.Class,
		&p.PrescriptionType, &p.NotificationNumber, &p.ValidUntil, &p.CopyCount, &p.DigitallySigned,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (id, patient_id, physician_id, medication, dosage, frequency, duration, notes, class,
			prescription_type, notification_number, valid_until, copy_count, digitally_signed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.PhysicianID, p.Medication, p.Dosage, p.Frequency, p.Duration, p.Notes, p.Class,
		p.PrescriptionType, p.NotificationNumber, p.ValidUntil, p.CopyCount, p.DigitallySigned,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id)
	return scanPrescription(row)
}

func (r *repoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM prescriptions WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repoPG) PatientContact(ctx context.Context, id uuid.UUID) (string, *string, error) {
	var (
		medication  string
		deviceToken *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT p.medication, u.device_token
		FROM prescriptions p
		JOIN users u ON u.id = p.patient_id
		WHERE p.id = $1`, id).Scan(&medication, &deviceToken)
	if err != nil {
		return "", nil, err
	}
	return medication, deviceToken, nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Prescription, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.PatientID != uuid.Nil {
		add("patient_id = $%d", filter.PatientID)
	}
	if filter.PhysicianID != uuid.Nil {
		add("physician_id = $%d", filter.PhysicianID)
	}
	if filter.Class != "" {
		add("class = $%d", filter.Class)
	}

	suffix := ""
	if len(where) > 0 {
		suffix = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions`+suffix, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(args, limit, offset)
	query := `SELECT ` + prescriptionCols + ` FROM prescriptions` + suffix +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, query, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) History(ctx context.Context, patientID uuid.UUID) ([]*HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.patient_id, p.physician_id, p.medication, p.dosage, p.frequency, p.duration, p.notes, p.class,
		       p.prescription_type, p.notification_number, p.valid_until, p.copy_count, p.digitally_signed,
		       p.created_at, p.updated_at,
		       u.name, pr.crm
		FROM prescriptions p
		JOIN users u ON u.id = p.physician_id
		LEFT JOIN profiles pr ON pr.user_id = p.physician_id AND pr.role = 'physician'
		WHERE p.patient_id = $1
		ORDER BY p.created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.PhysicianID, &e.Medication, &e.Dosage,
			&e.Frequency, &e.Duration, &e.Notes, &e.Class,
			&e.PrescriptionType, &e.NotificationNumber, &e.ValidUntil, &e.CopyCount, &e.DigitallySigned,
			&e.CreatedAt, &e.UpdatedAt,
			&e.PhysicianName, &e.PhysicianCRM); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}
