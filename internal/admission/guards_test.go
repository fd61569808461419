package admission

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/admissions/internal/domain/appointment"
)

var testPolicy = Policy{
	CheckInOpensBefore: 30 * time.Minute,
	CheckInClosesAfter: 15 * time.Minute,
}

func appt(status appointment.Status, scheduledAt time.Time) *appointment.Appointment {
	return &appointment.Appointment{
		ID:          uuid.New(),
		PatientID:   uuid.New(),
		ScheduledAt: scheduledAt,
		Status:      status,
	}
}

func TestCanCheckInWindowBoundaries(t *testing.T) {
	e := NewEvaluator(testPolicy)
	scheduled := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name             string
		offset           time.Duration
		allowed          bool
		reason           GuardReason
		minutesRemaining int
		minutesElapsed   int
	}{
		{name: "opening bound inclusive", offset: -30 * time.Minute, allowed: true},
		{name: "closing bound inclusive", offset: 15 * time.Minute, allowed: true},
		{name: "exactly on time", offset: 0, allowed: true},
		{name: "one minute before opening", offset: -31 * time.Minute, reason: ReasonTooEarly, minutesRemaining: 1},
		{name: "one minute after closing", offset: 16 * time.Minute, reason: ReasonExpired, minutesElapsed: 1},
		{name: "an hour early", offset: -90 * time.Minute, reason: ReasonTooEarly, minutesRemaining: 60},
		{name: "partial minute early rounds up", offset: -30*time.Minute - 30*time.Second, reason: ReasonTooEarly, minutesRemaining: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.CanCheckIn(appt(appointment.StatusScheduled, scheduled), scheduled.Add(tt.offset))
			if got.Allowed != tt.allowed {
				t.Fatalf("Allowed = %v, want %v (result %+v)", got.Allowed, tt.allowed, got)
			}
			if got.Reason != tt.reason {
				t.Errorf("Reason = %s, want %s", got.Reason, tt.reason)
			}
			if got.MinutesRemaining != tt.minutesRemaining {
				t.Errorf("MinutesRemaining = %d, want %d", got.MinutesRemaining, tt.minutesRemaining)
			}
			if got.MinutesElapsed != tt.minutesElapsed {
				t.Errorf("MinutesElapsed = %d, want %d", got.MinutesElapsed, tt.minutesElapsed)
			}
		})
	}
}

func TestCanCheckInStatusEligibility(t *testing.T) {
	e := NewEvaluator(testPolicy)
	scheduled := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	inWindow := scheduled

	if got := e.CanCheckIn(appt(appointment.StatusConfirmed, scheduled), inWindow); !got.Allowed {
		t.Errorf("confirmed appointment inside window should check in, got %+v", got)
	}
	if got := e.CanCheckIn(appt(appointment.StatusCompleted, scheduled), inWindow); got.Allowed || got.Reason != ReasonAlreadyTerminal {
		t.Errorf("completed appointment: got %+v, want already_terminal denial", got)
	}
	if got := e.CanCheckIn(appt(appointment.StatusCheckedIn, scheduled), inWindow); got.Allowed || got.Reason != ReasonStatusNotEligible {
		t.Errorf("checked-in appointment: got %+v, want status_not_eligible denial", got)
	}
}

func TestCanMarkNoShowComplementsCheckInWindow(t *testing.T) {
	e := NewEvaluator(testPolicy)
	scheduled := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	closes := scheduled.Add(15 * time.Minute)

	if got := e.CanMarkNoShow(appt(appointment.StatusScheduled, scheduled), closes); !got.Allowed {
		t.Errorf("no-show at window close should be allowed, got %+v", got)
	}
	if got := e.CanMarkNoShow(appt(appointment.StatusConfirmed, scheduled), closes.Add(time.Hour)); !got.Allowed {
		t.Errorf("no-show well after close should be allowed, got %+v", got)
	}

	got := e.CanMarkNoShow(appt(appointment.StatusScheduled, scheduled), closes.Add(-time.Minute))
	if got.Allowed || got.Reason != ReasonTooEarly {
		t.Errorf("no-show before close: got %+v, want too_early denial", got)
	}
	if got.MinutesRemaining != 1 {
		t.Errorf("MinutesRemaining = %d, want 1", got.MinutesRemaining)
	}

	// At every instant a still-scheduled appointment is either inside the
	// check-in window or eligible for no-show, never both, never neither.
	for _, offset := range []time.Duration{-30 * time.Minute, 0, 15 * time.Minute, 15*time.Minute + time.Second, time.Hour} {
		now := scheduled.Add(offset)
		a := appt(appointment.StatusScheduled, scheduled)
		checkIn := e.CanCheckIn(a, now).Allowed
		noShow := e.CanMarkNoShow(a, now).Allowed
		if checkIn == noShow && offset != 15*time.Minute {
			t.Errorf("offset %v: checkIn=%v noShow=%v, want exactly one", offset, checkIn, noShow)
		}
		if offset == 15*time.Minute && (!checkIn || !noShow) {
			// The closing bound is the single instant both are legal:
			// check-in is inclusive and no-show opens at the same moment.
			t.Errorf("at closing bound: checkIn=%v noShow=%v, want both", checkIn, noShow)
		}
	}
}

func TestCanComplete(t *testing.T) {
	e := NewEvaluator(testPolicy)
	scheduled := time.Now().UTC()

	if got := e.CanComplete(appt(appointment.StatusCheckedIn, scheduled)); !got.Allowed {
		t.Errorf("checked-in should complete, got %+v", got)
	}
	if got := e.CanComplete(appt(appointment.StatusScheduled, scheduled)); got.Allowed || got.Reason != ReasonNotYetCheckedIn {
		t.Errorf("scheduled: got %+v, want not_yet_checked_in denial", got)
	}
	if got := e.CanComplete(appt(appointment.StatusCompleted, scheduled)); got.Allowed || got.Reason != ReasonAlreadyTerminal {
		t.Errorf("completed: got %+v, want already_terminal denial", got)
	}
}

func TestCanCancel(t *testing.T) {
	e := NewEvaluator(testPolicy)
	scheduled := time.Now().UTC()

	for _, s := range []appointment.Status{appointment.StatusScheduled, appointment.StatusConfirmed, appointment.StatusCheckedIn} {
		if got := e.CanCancel(appt(s, scheduled)); !got.Allowed {
			t.Errorf("cancel from %s should be allowed, got %+v", s, got)
		}
	}
	for _, s := range []appointment.Status{appointment.StatusCompleted, appointment.StatusCancelled, appointment.StatusNoShow} {
		if got := e.CanCancel(appt(s, scheduled)); got.Allowed || got.Reason != ReasonAlreadyTerminal {
			t.Errorf("cancel from %s: got %+v, want already_terminal denial", s, got)
		}
	}
}

func TestCanReschedule(t *testing.T) {
	e := NewEvaluator(testPolicy)
	scheduled := time.Now().UTC()

	for _, s := range []appointment.Status{appointment.StatusScheduled, appointment.StatusConfirmed, appointment.StatusCheckedIn, appointment.StatusNoShow} {
		if got := e.CanReschedule(appt(s, scheduled)); !got.Allowed {
			t.Errorf("reschedule from %s should be allowed, got %+v", s, got)
		}
	}
	for _, s := range []appointment.Status{appointment.StatusCompleted, appointment.StatusCancelled} {
		if got := e.CanReschedule(appt(s, scheduled)); got.Allowed || got.Reason != ReasonAlreadyTerminal {
			t.Errorf("reschedule from %s: got %+v, want already_terminal denial", s, got)
		}
	}
}
