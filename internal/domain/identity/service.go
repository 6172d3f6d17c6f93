package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mednow/mednow/internal/platform/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid cpf or password")
	ErrProfileExists      = errors.New("profile already exists for this role")
	ErrNoApprovedRole     = errors.New("no approved role")
)

const bcryptCost = 10

// PatientSearchPageSize fixes the patient search page, matching the
// mobile app's result list.
const PatientSearchPageSize = 10

type Service struct {
	repo   Repository
	issuer *auth.TokenIssuer
}

func NewService(repo Repository, issuer *auth.TokenIssuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

func validateRegistration(in *RegisterInput) error {
	in.CPF = NormalizeCPF(in.CPF)
	if !ValidCPF(in.CPF) {
		return fmt.Errorf("invalid cpf")
	}

	switch in.Role {
	case auth.RolePatient:
	case auth.RolePhysician:
		if !ValidCouncilNumber(in.CRM) {
			return fmt.Errorf("invalid crm: want 123456-UF")
		}
	case auth.RolePharmacist:
		if !ValidCouncilNumber(in.CRF) {
			return fmt.Errorf("invalid crf: want 123456-UF")
		}
	default:
		return fmt.Errorf("invalid role: %s", in.Role)
	}
	return nil
}

// Register creates an account, or attaches a new role profile when the
// CPF already has one. Existing accounts keep their name, email and
// password untouched. Patient profiles are usable immediately;
// physician and pharmacist profiles wait in the approval queue.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, *Profile, error) {
	if err := validateRegistration(&in); err != nil {
		return nil, nil, err
	}

	user, err := s.repo.GetUserByCPF(ctx, in.CPF)
	switch {
	case errors.Is(err, ErrNotFound):
		if in.Name == "" {
			return nil, nil, fmt.Errorf("name is required")
		}
		if in.Password == "" {
			return nil, nil, fmt.Errorf("password is required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash password: %w", err)
		}
		user = &User{
			Name:         in.Name,
			CPF:          in.CPF,
			Email:        in.Email,
			PasswordHash: string(hash),
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, nil, err
		}
	case err != nil:
		return nil, nil, err
	default:
		existing, err := s.repo.ProfilesByUser(ctx, user.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range existing {
			if p.Role == in.Role {
				return nil, nil, ErrProfileExists
			}
		}
	}

	profile := &Profile{
		UserID:          user.ID,
		Role:            in.Role,
		Approved:        in.Role == auth.RolePatient,
		PendingApproval: in.Role != auth.RolePatient,
	}
	if in.Role == auth.RolePhysician {
		profile.CRM = &in.CRM
	}
	if in.Role == auth.RolePharmacist {
		profile.CRF = &in.CRF
	}
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

// Login verifies CPF and password and issues a session token carrying
// the approved roles. A user whose only profile is still pending can
// not sign in.
func (s *Service) Login(ctx context.Context, cpf, password string) (string, *User, []string, error) {
	user, err := s.repo.GetUserByCPF(ctx, NormalizeCPF(cpf))
	if errors.Is(err, ErrNotFound) {
		return "", nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, nil, ErrInvalidCredentials
	}

	profiles, err := s.repo.ProfilesByUser(ctx, user.ID)
	if err != nil {
		return "", nil, nil, err
	}
	var roles []string
	for _, p := range profiles {
		if p.Approved {
			roles = append(roles, p.Role)
		}
	}
	if len(roles) == 0 {
		return "", nil, nil, ErrNoApprovedRole
	}

	token, err := s.issuer.Issue(user.ID.String(), user.Name, user.CPF, roles)
	if err != nil {
		return "", nil, nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, roles, nil
}

// LookupCPF tells the registration screen whether a CPF already has an
// account and which role profiles it carries.
func (s *Service) LookupCPF(ctx context.Context, cpf string) (bool, []*Profile, error) {
	user, err := s.repo.GetUserByCPF(ctx, NormalizeCPF(cpf))
	if errors.Is(err, ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	profiles, err := s.repo.ProfilesByUser(ctx, user.ID)
	if err != nil {
		return false, nil, err
	}
	return true, profiles, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, []*Profile, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	profiles, err := s.repo.ProfilesByUser(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return user, profiles, nil
}

func (s *Service) RegisterDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	if token == "" {
		return fmt.Errorf("device token is required")
	}
	return s.repo.SetDeviceToken(ctx, userID, token)
}

func (s *Service) SearchPatients(ctx context.Context, term string, page int) ([]*PatientSummary, int, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * PatientSearchPageSize
	return s.repo.SearchPatients(ctx, term, PatientSearchPageSize, offset)
}

func (s *Service) PendingProfiles(ctx context.Context) ([]*ProfileSummary, error) {
	return s.repo.ListProfiles(ctx, true)
}

func (s *Service) ApprovedProfiles(ctx context.Context) ([]*ProfileSummary, error) {
	return s.repo.ListProfiles(ctx, false)
}

// SetApproval resolves one pending profile. A rejected profile stays
// on record, unapproved and no longer pending.
func (s *Service) SetApproval(ctx context.Context, profileID uuid.UUID, approved bool) (*Profile, error) {
	if err := s.repo.SetProfileApproval(ctx, profileID, approved); err != nil {
		return nil, err
	}
	return s.repo.GetProfile(ctx, profileID)
}
