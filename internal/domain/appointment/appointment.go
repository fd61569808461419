package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is the admission core's view of an appointment. Clinical fields
// (patient demographics, notes, room) are owned by the patient-record system;
// this service only reads id and scheduled_at and moves status through the
// transition table. scheduled_at is stored UTC and rendered in clinic-local
// time only at guard evaluation and presentation boundaries.
type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	ScheduledAt time.Time `gorm:"column:scheduled_at;not null;index"`
	Status      Status    `gorm:"column:status;type:varchar(30);not null;default:'scheduled';index"`

	// PendingScheduledAt is set while status is Rescheduled: the target slot
	// of an in-flight reschedule whose second step has not landed yet. It is
	// cleared when the appointment returns to Scheduled.
	PendingScheduledAt *time.Time `gorm:"column:pending_scheduled_at"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}
