package httpapi

import (
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/leagr/leagr/internal/domain/league"
	"github.com/leagr/leagr/internal/usecase"
)

type createLeagueRequest struct {
	ID          string `json:"id" validate:"required,max=63"`
	DisplayName string `json:"displayName" validate:"omitempty,max=100"`
	Icon        string `json:"icon" validate:"omitempty,max=16"`
	AccessCode  string `json:"accessCode" validate:"required,min=4,max=128"`
	OwnerEmail  string `json:"ownerEmail" validate:"omitempty,email"`
}

// leagueDTO is the public view of a league; the access-code hash stays
// server-side.
type leagueDTO struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Icon        string    `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func leagueToDTO(meta league.League) leagueDTO {
	return leagueDTO{
		ID:          meta.ID,
		DisplayName: meta.DisplayName,
		Icon:        meta.Icon,
		CreatedAt:   meta.CreatedAt,
	}
}

func (h *Handler) CreateLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateLeague")
	defer span.End()

	var req createLeagueRequest
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

	meta, err := h.leagueService.Create(ctx, usecase.CreateLeagueInput{
		ID:          req.ID,
		DisplayName: req.DisplayName,
		Icon:        req.Icon,
		AccessCode:  req.AccessCode,
		OwnerEmail:  req.OwnerEmail,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create league failed", "league", req.ID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, leagueToDTO(meta))
}

func (h *Handler) GetCurrentLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCurrentLeague")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	meta, err := h.leagueService.Get(ctx, leagueID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueToDTO(meta))
}
