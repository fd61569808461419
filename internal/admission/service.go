package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/clinicops/admissions/internal/clock"
	"github.com/clinicops/admissions/internal/domain/appointment"
	"github.com/clinicops/admissions/internal/domain/audit"
	"github.com/clinicops/admissions/pkg/metrics"
)

// Store binds the appointment and audit repositories to one transactional
// boundary: inside InTx, writes through both land or fail together. The
// status column stays a faithful cache of the audit trail only because every
// status write goes through this path.
type Store interface {
	Appointments() appointment.Repository
	AuditTrail() audit.Repository
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type TransitionRequest struct {
	AppointmentID uuid.UUID
	Action        appointment.Action
	ActorID       uuid.UUID

	// Now overrides the clock for deterministic evaluation; zero means "use
	// the clinic clock".
	Now    time.Time
	Reason string

	// NewScheduledAt is required for reschedule actions.
	NewScheduledAt *time.Time
}

type RescheduleRequest struct {
	AppointmentID  uuid.UUID
	ActorID        uuid.UUID
	NewScheduledAt time.Time
	Reason         string
	Now            time.Time
}

// Outcome is the accepted half of a transition result: the new status and
// the audit entry that records it.
type Outcome struct {
	Status appointment.Status `json:"status"`
	Entry  audit.Entry        `json:"entry"`
}

// GuardSet answers "what can I do right now" for one appointment, used to
// drive UI affordances without attempting and failing a real transition.
type GuardSet struct {
	Confirm    GuardResult `json:"confirm"`
	CheckIn    GuardResult `json:"check_in"`
	Complete   GuardResult `json:"complete"`
	Cancel     GuardResult `json:"cancel"`
	MarkNoShow GuardResult `json:"mark_no_show"`
	Reschedule GuardResult `json:"reschedule"`
}

type Service struct {
	store   Store
	locker  Locker
	clock   *clock.Clock
	guards  *Evaluator
	log     *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

func NewService(
	store Store,
	locker Locker,
	clk *clock.Clock,
	policy Policy,
	log *zap.Logger,
	collector *metrics.Collector,
) *Service {
	return &Service{
		store:   store,
		locker:  locker,
		clock:   clk,
		guards:  NewEvaluator(policy),
		log:     log,
		metrics: collector,
		tracer:  otel.Tracer("admissions/admission"),
	}
}

// RequestTransition applies a single admission action. The whole
// read-check-write sequence runs under the per-appointment lock; the status
// write is additionally conditional on the status read, so a lost race
// surfaces as a concurrency conflict rather than a double transition.
func (s *Service) RequestTransition(ctx context.Context, req TransitionRequest) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "admission.RequestTransition",
		trace.WithAttributes(
			attribute.String("appointment.id", req.AppointmentID.String()),
			attribute.String("admission.action", string(req.Action)),
		))
	defer span.End()

	if !req.Action.IsValid() || req.Action == appointment.ActionRescheduleComplete {
		// reschedule_complete is internal to the orchestrator.
		return nil, fmt.Errorf("%w: %s", appointment.ErrInvalidAction, req.Action)
	}

	now := s.resolveNow(req.Now)

	var out *Outcome
	waitStart := time.Now()
	err := s.locker.WithAppointmentLock(ctx, req.AppointmentID, func(ctx context.Context) error {
		s.observeLockWait(time.Since(waitStart))
		var applyErr error
		out, applyErr = s.applyLocked(ctx, req, now)
		return applyErr
	})
	if errors.Is(err, ErrLockNotAcquired) {
		s.countLockFailure()
		err = conflict("", req.Action, err)
	}

	s.recordOutcome(req.Action, err)
	if err != nil {
		return nil, err
	}

	s.log.Info("transition accepted",
		zap.String("appointment_id", req.AppointmentID.String()),
		zap.String("action", string(req.Action)),
		zap.String("from", string(out.Entry.FromStatus)),
		zap.String("to", string(out.Status)),
		zap.String("actor_id", req.ActorID.String()),
	)
	return out, nil
}

// Reschedule presents "move to a new time" as one logical operation. It is
// internally two transitions: park in Rescheduled recording the target, then
// return to Scheduled with scheduled_at moved. If step 2 fails the
// appointment stays in Rescheduled, a valid recoverable state, and the next
// Reschedule call for the appointment resumes at step 2 instead of writing
// history twice.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "admission.Reschedule",
		trace.WithAttributes(attribute.String("appointment.id", req.AppointmentID.String())))
	defer span.End()

	if req.NewScheduledAt.IsZero() {
		return nil, ErrMissingSchedule
	}

	now := s.resolveNow(req.Now)
	target := req.NewScheduledAt.UTC()

	step := func(action appointment.Action) TransitionRequest {
		return TransitionRequest{
			AppointmentID:  req.AppointmentID,
			Action:         action,
			ActorID:        req.ActorID,
			Reason:         req.Reason,
			NewScheduledAt: &target,
		}
	}

	var out *Outcome
	waitStart := time.Now()
	err := s.locker.WithAppointmentLock(ctx, req.AppointmentID, func(ctx context.Context) error {
		s.observeLockWait(time.Since(waitStart))

		a, err := s.store.Appointments().GetByID(ctx, req.AppointmentID)
		if err != nil {
			return s.wrapLoadError(appointment.ActionReschedule, err)
		}

		if a.Status == appointment.StatusRescheduled {
			// A previous attempt got through step 1 only; resume step 2 on
			// the caller's target, which may differ from the parked one.
			s.countResume()
			if a.PendingScheduledAt != nil && !a.PendingScheduledAt.Equal(target) {
				s.log.Info("resuming reschedule with a revised target",
					zap.String("appointment_id", req.AppointmentID.String()),
					zap.Time("pending_scheduled_at", *a.PendingScheduledAt),
					zap.Time("new_scheduled_at", target),
				)
			}
			out, err = s.applyLocked(ctx, step(appointment.ActionRescheduleComplete), now)
			if err != nil {
				s.countPartial()
				return partialReschedule(err)
			}
			return nil
		}

		if _, err = s.applyLocked(ctx, step(appointment.ActionReschedule), now); err != nil {
			return err
		}

		out, err = s.applyLocked(ctx, step(appointment.ActionRescheduleComplete), now)
		if err != nil {
			s.countPartial()
			s.log.Error("reschedule step 2 failed, appointment left in rescheduled state",
				zap.String("appointment_id", req.AppointmentID.String()),
				zap.Error(err),
			)
			return partialReschedule(err)
		}
		return nil
	})
	if errors.Is(err, ErrLockNotAcquired) {
		s.countLockFailure()
		err = conflict("", appointment.ActionReschedule, err)
	}

	s.recordOutcome(appointment.ActionReschedule, err)
	if err != nil {
		return nil, err
	}

	s.log.Info("reschedule completed",
		zap.String("appointment_id", req.AppointmentID.String()),
		zap.Time("new_scheduled_at", target),
		zap.String("actor_id", req.ActorID.String()),
	)
	return out, nil
}

// EvaluateGuards is the read-only "what can I do right now" query. It takes
// no lock and writes nothing; the answer can be stale by the time the caller
// acts on it, which the transition pipeline handles anyway.
func (s *Service) EvaluateGuards(ctx context.Context, appointmentID uuid.UUID, nowOverride time.Time) (*GuardSet, error) {
	a, err := s.store.Appointments().GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	now := s.resolveNow(nowOverride)
	return &GuardSet{
		Confirm:    s.evaluate(a, appointment.ActionConfirm, now),
		CheckIn:    s.evaluate(a, appointment.ActionCheckIn, now),
		Complete:   s.evaluate(a, appointment.ActionComplete, now),
		Cancel:     s.evaluate(a, appointment.ActionCancel, now),
		MarkNoShow: s.evaluate(a, appointment.ActionMarkNoShow, now),
		Reschedule: s.evaluate(a, appointment.ActionReschedule, now),
	}, nil
}

// HistoryFor returns the appointment's full audit trail, oldest first, after
// verifying that it reduces to the materialized status. Divergence means a
// write bypassed the transition pipeline and is reported, never repaired.
func (s *Service) HistoryFor(ctx context.Context, appointmentID uuid.UUID) ([]audit.Entry, error) {
	a, err := s.store.Appointments().GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	history, err := s.store.AuditTrail().HistoryFor(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	if err := audit.CheckConsistency(history, a.Status); err != nil {
		s.countDivergence()
		s.log.Error("audit history diverged from appointment status",
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return history, nil
}

// applyLocked runs the core pipeline for one action. Callers must hold the
// appointment lock.
func (s *Service) applyLocked(ctx context.Context, req TransitionRequest, now time.Time) (*Outcome, error) {
	a, err := s.store.Appointments().GetByID(ctx, req.AppointmentID)
	if err != nil {
		return nil, s.wrapLoadError(req.Action, err)
	}

	next, ok := appointment.NextStatus(a.Status, req.Action)
	if !ok {
		return nil, illegalTransition(a.Status, req.Action)
	}

	switch req.Action {
	case appointment.ActionCheckIn:
		if g := s.guards.CanCheckIn(a, now); !g.Allowed {
			s.countDenial(req.Action, g.Reason)
			return nil, guardRejected(a.Status, req.Action, g)
		}
	case appointment.ActionMarkNoShow:
		if g := s.guards.CanMarkNoShow(a, now); !g.Allowed {
			s.countDenial(req.Action, g.Reason)
			return nil, guardRejected(a.Status, req.Action, g)
		}
	}

	entry := &audit.Entry{
		AppointmentID: a.ID,
		FromStatus:    a.Status,
		ToStatus:      next,
		Action:        req.Action,
		ActorID:       req.ActorID,
		Reason:        req.Reason,
		OccurredAt:    now.UTC(),
	}
	upd := appointment.StatusUpdate{
		ID:           a.ID,
		ExpectedFrom: a.Status,
		To:           next,
	}

	switch req.Action {
	case appointment.ActionReschedule:
		if req.NewScheduledAt == nil {
			return nil, ErrMissingSchedule
		}
		entry.NewScheduledAt = req.NewScheduledAt
		upd.PendingScheduledAt = req.NewScheduledAt
	case appointment.ActionRescheduleComplete:
		// The caller's target wins so a retried reschedule may revise the
		// slot; the pending value recorded by step 1 is the fallback.
		target := req.NewScheduledAt
		if target == nil {
			target = a.PendingScheduledAt
		}
		if target == nil {
			return nil, ErrMissingSchedule
		}
		entry.NewScheduledAt = target
		upd.NewScheduledAt = target
		upd.ClearPending = true
	}

	err = s.store.InTx(ctx, func(tx Store) error {
		if err := tx.Appointments().UpdateStatus(ctx, upd); err != nil {
			return err
		}
		return tx.AuditTrail().Append(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, appointment.ErrStatusConflict) {
			return nil, conflict(a.Status, req.Action, err)
		}
		return nil, persistence(req.Action, err)
	}

	s.countAuditEntry()
	return &Outcome{Status: next, Entry: *entry}, nil
}

// evaluate composes structural legality (the transition table) with the
// action's time guard, so the read-only query never promises an action the
// pipeline would refuse.
func (s *Service) evaluate(a *appointment.Appointment, action appointment.Action, now time.Time) GuardResult {
	if !appointment.AllowedFrom(a.Status, action) {
		if a.Status.IsTerminal() {
			return denied(ReasonAlreadyTerminal)
		}
		if action == appointment.ActionComplete {
			return denied(ReasonNotYetCheckedIn)
		}
		return denied(ReasonStatusNotEligible)
	}

	switch action {
	case appointment.ActionCheckIn:
		return s.guards.CanCheckIn(a, now)
	case appointment.ActionMarkNoShow:
		return s.guards.CanMarkNoShow(a, now)
	case appointment.ActionComplete:
		return s.guards.CanComplete(a)
	case appointment.ActionCancel:
		return s.guards.CanCancel(a)
	case appointment.ActionReschedule:
		return s.guards.CanReschedule(a)
	}
	return allowed()
}

func (s *Service) resolveNow(override time.Time) time.Time {
	if override.IsZero() {
		return s.clock.Now()
	}
	return s.clock.In(override)
}

func (s *Service) wrapLoadError(action appointment.Action, err error) error {
	if errors.Is(err, appointment.ErrAppointmentNotFound) {
		return err
	}
	return persistence(action, fmt.Errorf("loading appointment: %w", err))
}

func (s *Service) recordOutcome(action appointment.Action, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "accepted"
	if err != nil {
		if kind := KindOf(err); kind != "" {
			outcome = string(kind)
		} else {
			outcome = "error"
		}
	}
	s.metrics.TransitionsTotal.WithLabelValues(string(action), outcome).Inc()
}

func (s *Service) countDenial(action appointment.Action, reason GuardReason) {
	if s.metrics != nil {
		s.metrics.GuardDenialsTotal.WithLabelValues(string(action), string(reason)).Inc()
	}
}

func (s *Service) countResume() {
	if s.metrics != nil {
		s.metrics.ReschedulesResumed.Inc()
	}
}

func (s *Service) countPartial() {
	if s.metrics != nil {
		s.metrics.PartialReschedules.Inc()
	}
}

func (s *Service) countAuditEntry() {
	if s.metrics != nil {
		s.metrics.AuditEntriesTotal.Inc()
	}
}

func (s *Service) countDivergence() {
	if s.metrics != nil {
		s.metrics.HistoryDivergedTotal.Inc()
	}
}

func (s *Service) countLockFailure() {
	if s.metrics != nil {
		s.metrics.LockAcquireFailures.Inc()
	}
}

func (s *Service) observeLockWait(d time.Duration) {
	if s.metrics != nil {
		s.metrics.LockWaitDuration.Observe(d.Seconds())
	}
}
