package admission

import (
	"errors"
	"fmt"

	"github.com/clinicops/admissions/internal/domain/appointment"
)

var ErrMissingSchedule = errors.New("reschedule requires a new scheduled time")

// ErrorKind classifies transition failures. GuardRejected and
// IllegalTransition are deliberately distinct so a UI can tell "wrong time"
// from "wrong state".
type ErrorKind string

const (
	// KindIllegalTransition: the action is not defined for the current
	// status. A caller bug or stale UI state; never retried automatically.
	KindIllegalTransition ErrorKind = "illegal_transition"
	// KindGuardRejected: structurally legal but forbidden right now; the
	// guard payload is meant to be shown to the user.
	KindGuardRejected ErrorKind = "guard_rejected"
	// KindConcurrencyConflict: another transition on the same appointment won
	// the race. Safe to retry after re-reading status.
	KindConcurrencyConflict ErrorKind = "concurrency_conflict"
	// KindPartialReschedule: reschedule step 1 landed, step 2 did not. Safe
	// to retry by re-invoking Reschedule, which resumes at step 2.
	KindPartialReschedule ErrorKind = "partial_reschedule"
	// KindPersistenceFailure: the status or audit write failed for
	// infrastructure reasons. Retryable.
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

type TransitionError struct {
	Kind   ErrorKind
	From   appointment.Status
	Action appointment.Action

	// Guard carries the denial payload for KindGuardRejected.
	Guard *GuardResult

	cause error
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case KindIllegalTransition:
		return fmt.Sprintf("action %s is not legal from status %s", e.Action, e.From)
	case KindGuardRejected:
		return fmt.Sprintf("action %s rejected by guard: %s", e.Action, e.Guard.Reason)
	case KindConcurrencyConflict:
		return "a concurrent transition on this appointment won the race"
	case KindPartialReschedule:
		return fmt.Sprintf("reschedule incomplete, appointment left in %s: %v", appointment.StatusRescheduled, e.cause)
	case KindPersistenceFailure:
		return fmt.Sprintf("transition could not be persisted: %v", e.cause)
	}
	return string(e.Kind)
}

func (e *TransitionError) Unwrap() error {
	return e.cause
}

func illegalTransition(from appointment.Status, action appointment.Action) *TransitionError {
	return &TransitionError{Kind: KindIllegalTransition, From: from, Action: action}
}

func guardRejected(from appointment.Status, action appointment.Action, g GuardResult) *TransitionError {
	return &TransitionError{Kind: KindGuardRejected, From: from, Action: action, Guard: &g}
}

func conflict(from appointment.Status, action appointment.Action, cause error) *TransitionError {
	return &TransitionError{Kind: KindConcurrencyConflict, From: from, Action: action, cause: cause}
}

func partialReschedule(cause error) *TransitionError {
	return &TransitionError{Kind: KindPartialReschedule, Action: appointment.ActionReschedule, cause: cause}
}

func persistence(action appointment.Action, cause error) *TransitionError {
	return &TransitionError{Kind: KindPersistenceFailure, Action: action, cause: cause}
}

// KindOf extracts the error kind from err, or "" when err is not a
// TransitionError.
func KindOf(err error) ErrorKind {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
