package admission

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrLockNotAcquired = errors.New("appointment lock not acquired")

// Locker serializes transitions per appointment: at most one accepted
// transition per appointment can be in flight at a time. Implementations must
// guarantee that fn runs in mutual exclusion for the given appointment id and
// that abandoning before acquisition leaves no side effects.
type Locker interface {
	WithAppointmentLock(ctx context.Context, appointmentID uuid.UUID, fn func(ctx context.Context) error) error
}

type keyedLocker struct {
	mu      sync.Mutex
	locks   map[uuid.UUID]*lockEntry
	timeout time.Duration
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker returns an in-process per-appointment lock for single-node
// deployments. Acquisition waits up to timeout (or ctx cancellation) and then
// fails with ErrLockNotAcquired.
func NewKeyedLocker(timeout time.Duration) Locker {
	return &keyedLocker{
		locks:   make(map[uuid.UUID]*lockEntry),
		timeout: timeout,
	}
}

func (l *keyedLocker) WithAppointmentLock(ctx context.Context, appointmentID uuid.UUID, fn func(ctx context.Context) error) error {
	entry := l.retain(appointmentID)
	defer l.release(appointmentID)

	acquireCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	select {
	case entry.ch <- struct{}{}:
	case <-acquireCtx.Done():
		return ErrLockNotAcquired
	}
	defer func() { <-entry.ch }()

	return fn(ctx)
}

func (l *keyedLocker) retain(id uuid.UUID) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (l *keyedLocker) release(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.locks[id]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
}
