package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const userCols = `id, name, cpf, email, password_hash, device_token, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.CPF, &u.Email, &u.PasswordHash, &u.DeviceToken, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (r *repoPG) CreateUser(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, cpf, email, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		u.ID, u.Name, u.CPF, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt)
}

func (r *repoPG) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetUserByCPF(ctx context.Context, cpf string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE cpf = $1`, cpf))
}

func (r *repoPG) SetDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET device_token = $2 WHERE id = $1`, userID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const profileCols = `id, user_id, role, crm, crf, approved, pending_approval, created_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.UserID, &p.Role, &p.CRM, &p.CRF, &p.Approved, &p.PendingApproval, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) CreateProfile(ctx context.Context, p *Profile) error {
	p.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, user_id, role, crm, crf, approved, pending_approval)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		p.ID, p.UserID, p.Role, p.CRM, p.CRF, p.Approved, p.PendingApproval,
	).Scan(&p.CreatedAt)
}

func (r *repoPG) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
}

func (r *repoPG) ProfilesByUser(ctx context.Context, userID uuid.UUID) ([]*Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) SetProfileApproval(ctx context.Context, id uuid.UUID, approved bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET approved = $2, pending_approval = FALSE WHERE id = $1`,
		id, approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListProfiles(ctx context.Context, pending bool) ([]*ProfileSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.user_id, p.role, p.crm, p.crf, p.approved, p.pending_approval, p.created_at,
		       u.name, u.cpf
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.pending_approval = $1 AND ($1 OR p.approved)
		ORDER BY p.created_at`, pending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ProfileSummary
	for rows.Next() {
		var s ProfileSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.Role, &s.CRM, &s.CRF, &s.Approved, &s.PendingApproval,
			&s.CreatedAt, &s.UserName, &s.UserCPF); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *repoPG) SearchPatients(ctx context.Context, term string, limit, offset int) ([]*PatientSummary, int, error) {
	pattern := "%" + term + "%"
	const from = ` FROM users u
		WHERE EXISTS (
			SELECT 1 FROM profiles p
			WHERE p.user_id = u.id AND p.role = 'patient' AND p.approved
		) AND (u.name ILIKE $1 OR u.cpf LIKE $1)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.cpf`+from+` ORDER BY u.name LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*PatientSummary
	for rows.Next() {
		var p PatientSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.CPF); err != nil {
			return nil, 0, err
		}
		items = append(items, &p)
	}
	return items, total, rows.Err()
}
