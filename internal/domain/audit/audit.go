package audit

import (
	"time"

	"github.com/clinicops/admissions/internal/domain/appointment"
	"github.com/google/uuid"
)

// Entry is one immutable record of a single accepted transition. The ordered
// sequence of entries for an appointment, replayed oldest-first, reduces to
// the appointment's current status; the status column on the appointment row
// is a materialized cache of that reduction. Entries are never edited or
// deleted; history is permanent for compliance.
type Entry struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`

	// Seq is a database-assigned insertion counter and the authoritative
	// replay order. Both reschedule steps are stamped with the same
	// occurred_at, so wall-clock time alone cannot order a history.
	Seq        int64     `gorm:"column:seq;autoIncrement;uniqueIndex"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index"`

	AppointmentID uuid.UUID          `gorm:"column:appointment_id;type:uuid;not null;index"`
	FromStatus    appointment.Status `gorm:"column:from_status;type:varchar(30);not null"`
	ToStatus      appointment.Status `gorm:"column:to_status;type:varchar(30);not null"`
	Action        appointment.Action `gorm:"column:action;type:varchar(30);not null"`

	ActorID uuid.UUID `gorm:"column:actor_id;type:uuid;not null;index"`
	Reason  string    `gorm:"column:reason;type:text"`

	// NewScheduledAt is present only on reschedule entries. Both steps carry
	// it, so a sequence scan of history shows the new time unambiguously even
	// while step 2 is still pending.
	NewScheduledAt *time.Time `gorm:"column:new_scheduled_at"`
}

func (Entry) TableName() string {
	return "audit.admission_entries"
}
