package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicops/admissions/internal/admission"
	"github.com/clinicops/admissions/internal/domain/appointment"
	"github.com/clinicops/admissions/internal/domain/audit"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
	Guard     *admission.GuardResult `json:"guard,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondServiceError maps core error kinds onto HTTP statuses. GuardRejected
// keeps its payload: the UI renders "check-in opens in N minutes" style
// messages straight from it.
func respondServiceError(c *gin.Context, err error) {
	var te *admission.TransitionError
	if errors.As(err, &te) {
		switch te.Kind {
		case admission.KindIllegalTransition:
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: te.Error(),
				Code:  "ILLEGAL_TRANSITION",
			})
		case admission.KindGuardRejected:
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error: te.Error(),
				Code:  "GUARD_REJECTED",
				Guard: te.Guard,
			})
		case admission.KindConcurrencyConflict:
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:     te.Error(),
				Code:      "CONCURRENCY_CONFLICT",
				Retryable: true,
			})
		case admission.KindPartialReschedule:
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:     te.Error(),
				Code:      "PARTIAL_RESCHEDULE",
				Retryable: true,
			})
		case admission.KindPersistenceFailure:
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:     "transition could not be persisted",
				Code:      "PERSISTENCE_FAILURE",
				Retryable: true,
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, admission.ErrMissingSchedule),
		errors.Is(err, appointment.ErrInvalidAction),
		errors.Is(err, appointment.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, audit.ErrHistoryDiverged):
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "audit history is inconsistent with appointment status",
			Code:  "HISTORY_DIVERGED",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}
