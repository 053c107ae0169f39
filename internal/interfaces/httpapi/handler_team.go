package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/leagr/leagr/internal/domain/teamgen"
	"github.com/leagr/leagr/internal/usecase"
)

type teamConfigPayload struct {
	Teams     int   `json:"teams" validate:"required,min=2"`
	TeamSizes []int `json:"teamSizes" validate:"required,min=2,dive,min=1"`
}

type generateTeamsRequest struct {
	Method string            `json:"method" validate:"omitempty,oneof=random seeded"`
	Config teamConfigPayload `json:"teamConfig" validate:"required"`
}

type assignTeamPlayerRequest struct {
	PlayerName string `json:"playerName" validate:"required,max=50"`
	TeamName   string `json:"teamName" validate:"required,max=50"`
}

type unassignTeamPlayerRequest struct {
	PlayerName string `json:"playerName" validate:"required,max=50"`
	Action     string `json:"action" validate:"required,oneof=waitingList remove"`
}

type teamConfigurationsResponse struct {
	Configurations []teamgen.Config `json:"configurations"`
	PlayerCount    int              `json:"playerCount"`
}

func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeams")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	teams, err := h.teamService.Get(ctx, leagueID, dateParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teams)
}

func (h *Handler) ListTeamConfigurations(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeamConfigurations")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	configs, count, err := h.teamService.Configurations(ctx, leagueID, dateParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamConfigurationsResponse{
		Configurations: configs,
		PlayerCount:    count,
	})
}

func (h *Handler) GenerateTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GenerateTeams")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req generateTeamsRequest
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

	date := dateParam(r)
	result, err := h.teamService.Generate(ctx, leagueID, date, req.Method, teamgen.Config{
		Teams:     req.Config.Teams,
		TeamSizes: req.Config.TeamSizes,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "generate teams failed", "league", leagueID, "date", date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, result)
}

func (h *Handler) DeleteTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteTeams")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.teamService.Delete(ctx, leagueID, dateParam(r)); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, nil)
}

func (h *Handler) AssignTeamPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AssignTeamPlayer")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req assignTeamPlayerRequest
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

	teams, err := h.teamService.AssignPlayer(ctx, leagueID, dateParam(r), req.PlayerName, req.TeamName)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teams)
}

func (h *Handler) UnassignTeamPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UnassignTeamPlayer")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req unassignTeamPlayerRequest
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

	toWaiting := req.Action == "waitingList"
	teams, err := h.teamService.UnassignPlayer(ctx, leagueID, dateParam(r), req.PlayerName, toWaiting)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teams)
}
