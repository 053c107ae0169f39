package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/leagr/leagr/internal/domain/match"
	"github.com/leagr/leagr/internal/domain/schedule"
	"github.com/leagr/leagr/internal/domain/session"
	"github.com/leagr/leagr/internal/domain/teamgen"
	"github.com/leagr/leagr/internal/usecase"
)

const (
	googleAPIVersion = "2.0"
	errorDomain      = "leagr"
)

type googleResponseEnvelope struct {
	APIVersion string           `json:"apiVersion"`
	Data       any              `json:"data,omitempty"`
	Error      *googleErrorBody `json:"error,omitempty"`
}

type googleErrorBody struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Status  string            `json:"status"`
	Errors  []googleErrorItem `json:"errors,omitempty"`
}

type googleErrorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	ctx, span := startSpan(ctx, "httpapi.writeJSON")
	defer span.End()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	ctx, span := startSpan(ctx, "httpapi.writeSuccess")
	defer span.End()

	writeJSON(ctx, w, status, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Data:       data,
	})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	ctx, span := startSpan(ctx, "httpapi.writeError")
	defer span.End()

	mapped := mapError(err)
	writeJSON(ctx, w, mapped.HTTPStatus, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Error: &googleErrorBody{
			Code:    mapped.HTTPStatus,
			Message: err.Error(),
			Status:  mapped.Status,
			Errors: []googleErrorItem{
				{
					Domain:  errorDomain,
					Reason:  mapped.Reason,
					Message: err.Error(),
				},
			},
		},
	})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	ctx, span := startSpan(ctx, "httpapi.writeInternalError")
	defer span.End()

	const msg = "internal server error"

	writeJSON(ctx, w, http.StatusInternalServerError, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Error: &googleErrorBody{
			Code:    http.StatusInternalServerError,
			Message: msg,
			Status:  "INTERNAL",
			Errors: []googleErrorItem{
				{
					Domain:  errorDomain,
					Reason:  "internalError",
					Message: msg,
				},
			},
		},
	})
}

// mapError translates service and domain sentinels into the wire status.
// Domain errors that reach the handler unwrapped (roster transitions, score
// bookkeeping, team generation) are mapped here rather than re-wrapped in
// every service method.
func mapError(err error) mappedError {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput),
		errors.Is(err, session.ErrInvalidTarget),
		errors.Is(err, match.ErrScorerNotOnRoster),
		errors.Is(err, match.ErrNegativeCount),
		errors.Is(err, teamgen.ErrMissingSettings),
		errors.Is(err, teamgen.ErrInsufficientPlayers),
		errors.Is(err, teamgen.ErrInvalidConfig),
		errors.Is(err, schedule.ErrTooFewTeams):
		return mappedError{
			HTTPStatus: http.StatusBadRequest,
			Reason:     "invalidInput",
			Status:     "INVALID_ARGUMENT",
		}
	case errors.Is(err, usecase.ErrNotFound),
		errors.Is(err, session.ErrPlayerNotFound),
		errors.Is(err, session.ErrTeamNotFound):
		return mappedError{
			HTTPStatus: http.StatusNotFound,
			Reason:     "notFound",
			Status:     "NOT_FOUND",
		}
	case errors.Is(err, usecase.ErrAccessDenied):
		return mappedError{
			HTTPStatus: http.StatusForbidden,
			Reason:     "accessDenied",
			Status:     "PERMISSION_DENIED",
		}
	case errors.Is(err, usecase.ErrConflict),
		errors.Is(err, session.ErrDuplicatePlayer),
		errors.Is(err, session.ErrCapacityExceeded),
		errors.Is(err, session.ErrTeamFull),
		errors.Is(err, session.ErrStateInvalid),
		errors.Is(err, match.ErrScorerOverflow),
		errors.Is(err, match.ErrOwnGoalCap),
		errors.Is(err, teamgen.ErrNoValidCandidate):
		return mappedError{
			HTTPStatus: http.StatusConflict,
			Reason:     "conflict",
			Status:     "ABORTED",
		}
	default:
		return mappedError{
			HTTPStatus: http.StatusInternalServerError,
			Reason:     "internalError",
			Status:     "INTERNAL",
		}
	}
}
