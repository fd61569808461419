package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicops/admissions/internal/domain/appointment"
)

type appointmentRepo struct {
	db *gorm.DB
}

func (r *appointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading appointment %s: %w", id, err)
	}
	return &a, nil
}

// UpdateStatus is a compare-and-swap on the status column. The WHERE clause
// on the expected source status means a concurrent transition that already
// moved the row makes this update match zero rows, which we report as
// ErrStatusConflict instead of silently overwriting.
func (r *appointmentRepo) UpdateStatus(ctx context.Context, upd appointment.StatusUpdate) error {
	values := map[string]any{"status": upd.To}
	if upd.NewScheduledAt != nil {
		values["scheduled_at"] = *upd.NewScheduledAt
	}
	if upd.PendingScheduledAt != nil {
		values["pending_scheduled_at"] = *upd.PendingScheduledAt
	}
	if upd.ClearPending {
		values["pending_scheduled_at"] = nil
	}

	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ? AND status = ?", upd.ID, upd.ExpectedFrom).
		Updates(values)
	if res.Error != nil {
		return fmt.Errorf("updating appointment %s status: %w", upd.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrStatusConflict
	}
	return nil
}
