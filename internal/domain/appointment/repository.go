package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus writes the new status only if the stored status still
	// equals ExpectedFrom (compare-and-swap). A stale ExpectedFrom returns
	// ErrStatusConflict so the caller can surface a concurrency conflict.
	// Schedule fields are written when non-nil; ClearPending resets the
	// pending column.
	UpdateStatus(ctx context.Context, upd StatusUpdate) error
}

// StatusUpdate is a single conditional status write, optionally carrying
// schedule changes produced by the reschedule steps.
type StatusUpdate struct {
	ID           uuid.UUID
	ExpectedFrom Status
	To           Status

	// NewScheduledAt moves the appointment to a new slot (reschedule step 2).
	NewScheduledAt *time.Time
	// PendingScheduledAt records the target slot while Rescheduled
	// (reschedule step 1).
	PendingScheduledAt *time.Time
	// ClearPending resets pending_scheduled_at (reschedule step 2).
	ClearPending bool
}
