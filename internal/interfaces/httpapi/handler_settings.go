package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/leagr/leagr/internal/usecase"
)

type recordNoShowRequest struct {
	Name string `json:"name" validate:"required,max=50"`
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// GetSettings returns the resolved settings for a session date, or the raw
// league-wide document when no date is given.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSettings")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if date := dateParam(r); date != "" {
		eff, err := h.settingsService.Effective(ctx, leagueID, date)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeSuccess(ctx, w, http.StatusOK, eff)
		return
	}

	raw, err := h.settingsService.League(ctx, leagueID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, raw)
}

// UpdateSettings patches the league-wide settings document, or the session
// override when a date is given. Null values delete league-wide keys.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateSettings")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var patch map[string]any
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if len(patch) == 0 {
		writeError(ctx, w, fmt.Errorf("%w: empty settings patch", usecase.ErrInvalidInput))
		return
	}

	if date := dateParam(r); date != "" {
		if err := h.settingsService.UpdateSession(ctx, leagueID, date, patch); err != nil {
			writeError(ctx, w, err)
			return
		}
		eff, err := h.settingsService.Effective(ctx, leagueID, date)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeSuccess(ctx, w, http.StatusOK, eff)
		return
	}

	updated, err := h.settingsService.UpdateLeague(ctx, leagueID, patch)
	if err != nil {
		h.logger.WarnContext(ctx, "update settings failed", "league", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, updated)
}

func (h *Handler) GetDiscipline(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDiscipline")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	records, err := h.disciplineService.List(ctx, leagueID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, records)
}

func (h *Handler) RecordNoShow(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordNoShow")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req recordNoShowRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	record, err := h.disciplineService.RecordNoShow(ctx, leagueID, req.Name, req.Date)
	if err != nil {
		h.logger.WarnContext(ctx, "record no-show failed", "league", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, record)
}
