package admission

import (
	"math"
	"time"

	"github.com/clinicops/admissions/internal/config"
	"github.com/clinicops/admissions/internal/domain/appointment"
)

// GuardReason tags a guard denial so the UI can offer the right next action
// (wait, or fall through to no-show/reschedule).
type GuardReason string

const (
	ReasonTooEarly          GuardReason = "too_early"
	ReasonExpired           GuardReason = "expired"
	ReasonNotYetCheckedIn   GuardReason = "not_yet_checked_in"
	ReasonAlreadyTerminal   GuardReason = "already_terminal"
	ReasonStatusNotEligible GuardReason = "status_not_eligible"
)

// GuardResult is a value, never an error: callers must not infer permission
// from the absence of a failure.
type GuardResult struct {
	Allowed bool        `json:"allowed"`
	Reason  GuardReason `json:"reason,omitempty"`

	// MinutesRemaining accompanies TooEarly: minutes until the window opens.
	MinutesRemaining int `json:"minutes_remaining,omitempty"`
	// MinutesElapsed accompanies Expired: minutes since the window closed.
	MinutesElapsed int `json:"minutes_elapsed,omitempty"`
}

func allowed() GuardResult {
	return GuardResult{Allowed: true}
}

func denied(reason GuardReason) GuardResult {
	return GuardResult{Reason: reason}
}

// Policy is the clinic-wide admission window policy. The check-in window is
// [scheduled_at − OpensBefore, scheduled_at + ClosesAfter], inclusive of both
// bounds; no-show becomes available the instant the window closes.
type Policy struct {
	CheckInOpensBefore time.Duration
	CheckInClosesAfter time.Duration
}

func PolicyFromConfig(cfg config.ClinicConfig) Policy {
	return Policy{
		CheckInOpensBefore: cfg.CheckInOpensBefore,
		CheckInClosesAfter: cfg.CheckInClosesAfter,
	}
}

// Evaluator decides whether an action is permitted right now. It is pure:
// "now" arrives as a parameter, already resolved to clinic-local time by the
// caller, and no method touches ambient time or does I/O.
type Evaluator struct {
	policy Policy
}

func NewEvaluator(policy Policy) *Evaluator {
	return &Evaluator{policy: policy}
}

// CanCheckIn permits check-in for a scheduled or confirmed appointment while
// now is inside the check-in window.
func (e *Evaluator) CanCheckIn(a *appointment.Appointment, now time.Time) GuardResult {
	if r, ok := requireStatus(a, appointment.StatusScheduled, appointment.StatusConfirmed); !ok {
		return r
	}

	opens := a.ScheduledAt.Add(-e.policy.CheckInOpensBefore)
	closes := a.ScheduledAt.Add(e.policy.CheckInClosesAfter)

	if now.Before(opens) {
		r := denied(ReasonTooEarly)
		r.MinutesRemaining = ceilMinutes(opens.Sub(now))
		return r
	}
	if now.After(closes) {
		r := denied(ReasonExpired)
		r.MinutesElapsed = ceilMinutes(now.Sub(closes))
		return r
	}
	return allowed()
}

// CanComplete permits completion only from CheckedIn. A consultation in
// progress may finish at any wall-clock time, so there is no window.
func (e *Evaluator) CanComplete(a *appointment.Appointment) GuardResult {
	if a.Status == appointment.StatusCheckedIn {
		return allowed()
	}
	if a.Status.IsTerminal() {
		return denied(ReasonAlreadyTerminal)
	}
	return denied(ReasonNotYetCheckedIn)
}

// CanCancel permits cancellation of anything not yet terminal. Cancelling a
// checked-in appointment represents an aborted visit and is allowed.
func (e *Evaluator) CanCancel(a *appointment.Appointment) GuardResult {
	if a.Status.IsTerminal() {
		return denied(ReasonAlreadyTerminal)
	}
	return allowed()
}

// CanMarkNoShow permits a no-show for a scheduled or confirmed appointment
// once the check-in window has closed without a check-in. It is the exact
// complement of CanCheckIn's Expired case.
func (e *Evaluator) CanMarkNoShow(a *appointment.Appointment, now time.Time) GuardResult {
	if r, ok := requireStatus(a, appointment.StatusScheduled, appointment.StatusConfirmed); !ok {
		return r
	}

	closes := a.ScheduledAt.Add(e.policy.CheckInClosesAfter)
	if now.Before(closes) {
		r := denied(ReasonTooEarly)
		r.MinutesRemaining = ceilMinutes(closes.Sub(now))
		return r
	}
	return allowed()
}

// CanReschedule permits rescheduling of anything not completed or cancelled.
// A no-show may still be rescheduled.
func (e *Evaluator) CanReschedule(a *appointment.Appointment) GuardResult {
	switch a.Status {
	case appointment.StatusCompleted, appointment.StatusCancelled:
		return denied(ReasonAlreadyTerminal)
	}
	return allowed()
}

func requireStatus(a *appointment.Appointment, statuses ...appointment.Status) (GuardResult, bool) {
	for _, s := range statuses {
		if a.Status == s {
			return GuardResult{}, true
		}
	}
	if a.Status.IsTerminal() {
		return denied(ReasonAlreadyTerminal), false
	}
	return denied(ReasonStatusNotEligible), false
}

// ceilMinutes rounds a positive duration up to whole minutes so a denial
// never reports "0 minutes" for a window that is strictly open or closed.
func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
