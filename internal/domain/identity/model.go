// Package identity implements user accounts, role profiles, login and
// the admin approval queue for clinical roles.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table. One person holds one account per CPF;
// roles are attached as Profiles. DeviceToken is the push address the
// reminder evaluator delivers to, nil until the app registers one.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	CPF          string    `db:"cpf" json:"cpf"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DeviceToken  *string   `db:"device_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Profile maps to the profiles table: one role grant on one user.
// Clinical roles start out pending until an admin approves them,
// patient profiles are approved on creation.
type Profile struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	Role            string    `db:"role" json:"role"`
	CRM             *string   `db:"crm" json:"crm,omitempty"`
	CRF             *string   `db:"crf" json:"crf,omitempty"`
	Approved        bool      `db:"approved" json:"approved"`
	PendingApproval bool      `db:"pending_approval" json:"pending_approval"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ProfileSummary is a profile joined with its holder, as shown on the
// admin approval screens.
type ProfileSummary struct {
	Profile
	UserName string `db:"user_name" json:"user_name"`
	UserCPF  string `db:"user_cpf" json:"user_cpf"`
}

// PatientSummary is one row of a patient search result.
type PatientSummary struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	CPF  string    `db:"cpf" json:"cpf"`
}

// RegisterInput is the self-registration payload. Password is required
// only for a CPF with no existing account.
type RegisterInput struct {
	Name     string `json:"name"`
	CPF      string `json:"cpf"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	CRM      string `json:"crm"`
	CRF      string `json:"crf"`
}
