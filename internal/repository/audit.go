package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicops/admissions/internal/domain/audit"
)

type auditRepo struct {
	db *gorm.DB
}

// Append inserts one entry. There is no corresponding update or delete
// anywhere in this package; the table is write-once by construction.
func (r *auditRepo) Append(ctx context.Context, entry *audit.Entry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("appending audit entry for appointment %s: %w", entry.AppointmentID, err)
	}
	return nil
}

func (r *auditRepo) HistoryFor(ctx context.Context, appointmentID uuid.UUID) ([]audit.Entry, error) {
	var entries []audit.Entry
	err := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("seq ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("loading audit history for appointment %s: %w", appointmentID, err)
	}
	return entries, nil
}
