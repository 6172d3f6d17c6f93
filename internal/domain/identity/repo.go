package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByCPF(ctx context.Context, cpf string) (*User, error)
	SetDeviceToken(ctx context.Context, userID uuid.UUID, token string) error

	CreateProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	ProfilesByUser(ctx context.Context, userID uuid.UUID) ([]*Profile, error)
	SetProfileApproval(ctx context.Context, id uuid.UUID, approved bool) error
	ListProfiles(ctx context.Context, pending bool) ([]*ProfileSummary, error)

	SearchPatients(ctx context.Context, term string, limit, offset int) ([]*PatientSummary, int, error)
}
