package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clinicops/admissions/internal/admission"
	"github.com/clinicops/admissions/internal/domain/appointment"
)

type AdmissionHandler struct {
	svc *admission.Service
	log *zap.Logger
}

func NewAdmissionHandler(svc *admission.Service, log *zap.Logger) *AdmissionHandler {
	return &AdmissionHandler{svc: svc, log: log}
}

type transitionRequest struct {
	Action         string     `json:"action" binding:"required"`
	Reason         string     `json:"reason"`
	NewScheduledAt *time.Time `json:"new_scheduled_at"`
	// At overrides "now" for guard evaluation; used by deterministic tests
	// and accepted from staff tooling only.
	At *time.Time `json:"at"`
}

type rescheduleRequest struct {
	NewScheduledAt time.Time  `json:"new_scheduled_at" binding:"required"`
	Reason         string     `json:"reason"`
	At             *time.Time `json:"at"`
}

// RequestTransition handles POST /appointments/:id/transitions.
func (h *AdmissionHandler) RequestTransition(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if !bindJSON(c, &req) {
		return
	}

	action := appointment.Action(req.Action)
	if !action.IsValid() || action == appointment.ActionRescheduleComplete {
		respondError(c, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}

	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	treq := admission.TransitionRequest{
		AppointmentID:  id,
		Action:         action,
		ActorID:        actor.ID,
		Reason:         req.Reason,
		NewScheduledAt: req.NewScheduledAt,
	}
	if req.At != nil {
		treq.Now = *req.At
	}

	out, err := h.svc.RequestTransition(c.Request.Context(), treq)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

// Reschedule handles POST /appointments/:id/reschedule. One logical
// operation for the caller; the orchestration into two transitions is the
// service's business.
func (h *AdmissionHandler) Reschedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	rreq := admission.RescheduleRequest{
		AppointmentID:  id,
		ActorID:        actor.ID,
		NewScheduledAt: req.NewScheduledAt,
		Reason:         req.Reason,
	}
	if req.At != nil {
		rreq.Now = *req.At
	}

	out, err := h.svc.Reschedule(c.Request.Context(), rreq)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

// History handles GET /appointments/:id/history.
func (h *AdmissionHandler) History(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	entries, err := h.svc.HistoryFor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, entries)
}

// Guards handles GET /appointments/:id/guards?at=RFC3339.
func (h *AdmissionHandler) Guards(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var at time.Time
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid 'at': must be RFC3339")
			return
		}
		at = parsed
	}

	guards, err := h.svc.EvaluateGuards(c.Request.Context(), id, at)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, guards)
}
