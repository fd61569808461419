package clock

import (
	"fmt"
	"time"

	"github.com/clinicops/admissions/internal/config"
)

// Clock resolves instants against the clinic's civil timezone. It is the only
// source of "now" for guard evaluation, so behavior does not depend on the
// host machine's configured timezone. The location is fixed at construction
// and never changes for the process lifetime.
type Clock struct {
	loc *time.Location
}

func New(cfg config.ClinicConfig) (*Clock, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading clinic timezone %q: %w", cfg.Timezone, err)
	}
	return &Clock{loc: loc}, nil
}

// NewFixed builds a Clock for an already-resolved location. Used by tests.
func NewFixed(loc *time.Location) *Clock {
	return &Clock{loc: loc}
}

// Now returns the current instant expressed in clinic-local time.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// In converts an absolute instant (typically UTC from storage) to
// clinic-local time.
func (c *Clock) In(t time.Time) time.Time {
	return t.In(c.loc)
}

// Location exposes the clinic timezone for callers that need to construct
// civil times, e.g. parsing operator-entered reschedule targets.
func (c *Clock) Location() *time.Location {
	return c.loc
}
