package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/clinicops/admissions/internal/admission"
	"github.com/clinicops/admissions/internal/domain/appointment"
	"github.com/clinicops/admissions/internal/domain/audit"
)

type store struct {
	db *gorm.DB
}

// NewStore wraps a gorm handle as the admission service's transactional
// store. InTx hands the callback a store bound to the transaction, so both
// repositories write through the same connection.
func NewStore(db *gorm.DB) admission.Store {
	return &store{db: db}
}

func (s *store) Appointments() appointment.Repository {
	return &appointmentRepo{db: s.db}
}

func (s *store) AuditTrail() audit.Repository {
	return &auditRepo{db: s.db}
}

func (s *store) InTx(ctx context.Context, fn func(tx admission.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}
