package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository is append-only on purpose: there is no update or delete. Append
// is expected to run inside the same transaction as the status write that the
// entry records, so a transition and its audit entry land atomically.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error

	// HistoryFor returns all entries for one appointment, oldest first.
	HistoryFor(ctx context.Context, appointmentID uuid.UUID) ([]Entry, error)
}
