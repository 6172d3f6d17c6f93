// Package reminder implements medication reminder schedules and the
// evaluator that turns them into push notifications.
package reminder

import (
	"time"

	"github.com/google/uuid"
)

// Reminder maps to the reminders table. StartTime is the first dose of
// the day in 24h "HH:MM" form; DailyFrequency spreads the remaining
// doses over the day and DurationDays bounds the treatment window,
// counted from CreatedAt.
type Reminder struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	CreatedByID    uuid.UUID `db:"created_by_id" json:"created_by_id"`
	StartTime      string    `db:"start_time" json:"start_time"`
	DailyFrequency int       `db:"daily_frequency" json:"daily_frequency"`
	DurationDays   int       `db:"duration_days" json:"duration_days"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduledReminder is the joined row the evaluator works from: the
// reminder plus the prescription's medication and the patient it
// belongs to. DeviceToken is nil when the patient never registered one.
type ScheduledReminder struct {
	Reminder
	Medication  string    `db:"medication" json:"medication"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	DeviceToken *string   `db:"device_token" json:"-"`
}

// UpdateParams carries the fields a PATCH may change. Nil means leave
// the current value alone.
type UpdateParams struct {
	StartTime      *string `json:"start_time"`
	DailyFrequency *int    `json:"daily_frequency"`
}

// ListFilter narrows List results. Zero-value fields are ignored.
type ListFilter struct {
	PatientID      uuid.UUID
	PrescriptionID uuid.UUID
	CreatedByID    uuid.UUID
}
