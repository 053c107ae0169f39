package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/leagr/leagr/internal/domain/match"
	"github.com/leagr/leagr/internal/usecase"
)

// Game mutations share one route; the action field selects the operation.
const (
	gameActionSchedule = "schedule"
	gameActionSeed     = "seed"
	gameActionScore    = "score"
	gameActionScorer   = "scorer"
)

type gameActionRequest struct {
	Action string `json:"action" validate:"required,oneof=schedule score scorer"`
	Round  int    `json:"round" validate:"min=0"`
	Match  int    `json:"match" validate:"min=0"`
	Side   string `json:"side" validate:"omitempty,oneof=home away"`
	Score  *int   `json:"score" validate:"omitempty,min=0,max=99"`
	Scorer string `json:"scorer" validate:"omitempty,max=50"`
	Delta  int    `json:"delta" validate:"omitempty,oneof=-1 1"`
}

type knockoutActionRequest struct {
	Action    string `json:"action" validate:"required,oneof=seed score scorer"`
	TeamCount int    `json:"teamCount" validate:"omitempty,min=2,max=32"`
	Round     string `json:"round" validate:"omitempty,oneof=round-of-32 round-of-16 quarter semi final"`
	Match     int    `json:"match" validate:"min=0"`
	Side      string `json:"side" validate:"omitempty,oneof=home away"`
	Score     *int   `json:"score" validate:"omitempty,min=0,max=99"`
	Scorer    string `json:"scorer" validate:"omitempty,max=50"`
	Delta     int    `json:"delta" validate:"omitempty,oneof=-1 1"`
}

func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGames")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	games, err := h.gameService.Games(ctx, leagueID, dateParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, games)
}

func (h *Handler) PostGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PostGames")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req gameActionRequest
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
	var games usecase.SessionGames
	switch req.Action {
	case gameActionSchedule:
		games, err = h.gameService.GenerateSchedule(ctx, leagueID, date)
	case gameActionScore:
		games, err = h.gameService.SetScore(ctx, leagueID, date, req.Round, req.Match, match.Side(req.Side), req.Score)
	case gameActionScorer:
		games, err = h.gameService.ApplyScorer(ctx, leagueID, date, req.Round, req.Match, match.Side(req.Side), req.Scorer, req.Delta)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "game update failed", "league", leagueID, "date", date, "action", req.Action, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, games)
}

func (h *Handler) GetKnockout(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetKnockout")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	games, err := h.gameService.Games(ctx, leagueID, dateParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, games.Bracket)
}

func (h *Handler) PostKnockout(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PostKnockout")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req knockoutActionRequest
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
	var games usecase.SessionGames
	switch req.Action {
	case gameActionSeed:
		games, err = h.gameService.SeedKnockout(ctx, leagueID, date, req.TeamCount)
	case gameActionScore:
		games, err = h.gameService.SetKnockoutScore(ctx, leagueID, date, req.Round, req.Match, match.Side(req.Side), req.Score)
	case gameActionScorer:
		games, err = h.gameService.ApplyKnockoutScorer(ctx, leagueID, date, req.Round, req.Match, match.Side(req.Side), req.Scorer, req.Delta)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "knockout update failed", "league", leagueID, "date", date, "action", req.Action, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, games)
}
