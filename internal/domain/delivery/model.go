// Package delivery records medication hand-offs at the pharmacy
// counter.
package delivery

import (
	"time"

	"github.com/google/uuid"
)

// Delivery maps to the deliveries table: one prescription handed to
// the patient by one pharmacist.
type Delivery struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	PharmacistID   uuid.UUID `db:"pharmacist_id" json:"pharmacist_id"`
	DeliveredAt    time.Time `db:"delivered_at" json:"delivered_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ListFilter narrows List results. Zero-value fields are ignored.
type ListFilter struct {
	PrescriptionID uuid.UUID
	PharmacistID   uuid.UUID
	PatientID      uuid.UUID
}
