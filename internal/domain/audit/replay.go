package audit

import (
	"errors"
	"fmt"

	"github.com/clinicops/admissions/internal/domain/appointment"
)

var ErrHistoryDiverged = errors.New("audit history does not reduce to appointment status")

// Replay folds an ordered history into the status it implies. An empty
// history means the appointment has never transitioned and is still in its
// creation status, Scheduled.
func Replay(history []Entry) appointment.Status {
	if len(history) == 0 {
		return appointment.StatusScheduled
	}
	return history[len(history)-1].ToStatus
}

// CheckConsistency verifies that history is internally chained (each entry's
// from_status equals the previous entry's to_status) and that its reduction
// matches the materialized status. A mismatch is a data-integrity bug, not a
// recoverable runtime condition.
func CheckConsistency(history []Entry, current appointment.Status) error {
	prev := appointment.StatusScheduled
	for i, e := range history {
		if e.FromStatus != prev {
			return fmt.Errorf("%w: entry %d transitions from %s but prior status was %s",
				ErrHistoryDiverged, i, e.FromStatus, prev)
		}
		prev = e.ToStatus
	}
	if prev != current {
		return fmt.Errorf("%w: history reduces to %s, appointment status is %s",
			ErrHistoryDiverged, prev, current)
	}
	return nil
}
