package appointment

// Status is the admission lifecycle state of an appointment. Completed,
// Cancelled and NoShow are terminal for a given appointment instance.
// Rescheduled is a transient marker: the reschedule orchestrator immediately
// advances it back to Scheduled with a new scheduled_at.
//
// State transitions:
//
//	scheduled → confirmed → checked_in → completed
//	scheduled/confirmed/checked_in → cancelled
//	scheduled/confirmed → no_show (check-in window closed without a check-in)
//	scheduled/confirmed/checked_in/no_show → rescheduled → scheduled
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusCheckedIn   Status = "checked_in"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusCompleted,
		StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are defined from s,
// with the exception that a no-show can still be rescheduled.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Action is a requested admission operation on an appointment.
type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionCheckIn    Action = "check_in"
	ActionComplete   Action = "complete"
	ActionCancel     Action = "cancel"
	ActionMarkNoShow Action = "mark_no_show"
	// ActionReschedule is step 1 of a reschedule: it parks the appointment in
	// the Rescheduled marker status and records the new scheduled instant.
	ActionReschedule Action = "reschedule"
	// ActionRescheduleComplete is step 2, issued only by the reschedule
	// orchestrator: it returns the appointment to Scheduled on its new slot.
	ActionRescheduleComplete Action = "reschedule_complete"
)

func (a Action) IsValid() bool {
	_, ok := transitions[a]
	return ok
}

type transition struct {
	from map[Status]struct{}
	to   Status
}

// transitions is the single authority for legal (from status, action) pairs,
// independent of timing. Time windows are the guard evaluator's concern.
var transitions = map[Action]transition{
	ActionConfirm: {
		from: statusSet(StatusScheduled),
		to:   StatusConfirmed,
	},
	ActionCheckIn: {
		from: statusSet(StatusScheduled, StatusConfirmed),
		to:   StatusCheckedIn,
	},
	ActionComplete: {
		from: statusSet(StatusCheckedIn),
		to:   StatusCompleted,
	},
	ActionCancel: {
		from: statusSet(StatusScheduled, StatusConfirmed, StatusCheckedIn),
		to:   StatusCancelled,
	},
	ActionMarkNoShow: {
		from: statusSet(StatusScheduled, StatusConfirmed),
		to:   StatusNoShow,
	},
	ActionReschedule: {
		from: statusSet(StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusNoShow),
		to:   StatusRescheduled,
	},
	ActionRescheduleComplete: {
		from: statusSet(StatusRescheduled),
		to:   StatusScheduled,
	},
}

func statusSet(statuses ...Status) map[Status]struct{} {
	set := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

// NextStatus resolves the resulting status for applying action from the given
// status. ok is false when the pair is not in the transition table.
func NextStatus(from Status, action Action) (Status, bool) {
	t, defined := transitions[action]
	if !defined {
		return "", false
	}
	if _, allowed := t.from[from]; !allowed {
		return "", false
	}
	return t.to, true
}

// AllowedFrom reports whether action is defined for the given source status.
func AllowedFrom(from Status, action Action) bool {
	_, ok := NextStatus(from, action)
	return ok
}
