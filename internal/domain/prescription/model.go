// Package prescription implements prescription issuance and querying,
// including the regulated subset carried only by controlled
// medications.
package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Prescription classes. Controlled prescriptions carry the regulated
// fields; the other classes must not.
const (
	ClassOrdinary   = "ordinary"
	ClassAntibiotic = "antibiotic"
	ClassControlled = "controlled"
)

// Prescription maps to the prescriptions table.
type Prescription struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	PhysicianID uuid.UUID `db:"physician_id" json:"physician_id"`
	Medication  string    `db:"medication" json:"medication"`
	Dosage      string    `db:"dosage" json:"dosage"`
	Frequency   string    `db:"frequency" json:"frequency"`
	Duration    string    `db:"duration" json:"duration"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	Class       string    `db:"class" json:"class"`

	// Regulated subset, present only when Class is controlled.
	PrescriptionType   *string    `db:"prescription_type" json:"prescription_type,omitempty"`
	NotificationNumber *string    `db:"notification_number" json:"notification_number,omitempty"`
	ValidUntil         *time.Time `db:"valid_until" json:"valid_until,omitempty"`
	CopyCount          *int       `db:"copy_count" json:"copy_count,omitempty"`
	DigitallySigned    *bool      `db:"digitally_signed" json:"digitally_signed,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HistoryEntry is one row of a patient's prescription history with the
// prescriber attached.
type HistoryEntry struct {
	Prescription
	PhysicianName string  `db:"physician_name" json:"physician_name"`
	PhysicianCRM  *string `db:"physician_crm" json:"physician_crm,omitempty"`
}

// ListFilter narrows List results. Zero-value fields are ignored.
type ListFilter struct {
	PatientID   uuid.UUID
	PhysicianID uuid.UUID
	Class       string
}
