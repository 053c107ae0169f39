package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/leagr/leagr/internal/domain/session"
	"github.com/leagr/leagr/internal/usecase"
)

type addPlayerRequest struct {
	Name   string `json:"name" validate:"required,max=50"`
	Target string `json:"target" validate:"omitempty,oneof=available waitingList auto"`
}

type movePlayerRequest struct {
	Name string `json:"name" validate:"required,max=50"`
	From string `json:"from" validate:"required,oneof=available waitingList"`
	To   string `json:"to" validate:"required,oneof=available waitingList"`
}

type renamePlayerRequest struct {
	OldName string `json:"oldName" validate:"required,max=50"`
	NewName string `json:"newName" validate:"required,max=50"`
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlayers")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	state, err := h.playerService.List(ctx, leagueID, dateParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, state.Players)
}

func (h *Handler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddPlayer")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req addPlayerRequest
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
	result, err := h.playerService.Add(ctx, leagueID, date, req.Name, session.Target(req.Target))
	if err != nil {
		h.logger.WarnContext(ctx, "add player failed", "league", leagueID, "date", date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, result)
}

func (h *Handler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemovePlayer")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(ctx, w, fmt.Errorf("%w: name query parameter is required", usecase.ErrInvalidInput))
		return
	}
	if err := h.authorizePlayerEdit(ctx, r, leagueID, name); err != nil {
		writeError(ctx, w, err)
		return
	}

	date := dateParam(r)
	players, err := h.playerService.Remove(ctx, leagueID, date, name)
	if err != nil {
		h.logger.WarnContext(ctx, "remove player failed", "league", leagueID, "date", date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, players)
}

func (h *Handler) MovePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.MovePlayer")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req movePlayerRequest
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

	players, err := h.playerService.Move(ctx, leagueID, dateParam(r), req.Name, session.Target(req.From), session.Target(req.To))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, players)
}

func (h *Handler) RenamePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RenamePlayer")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req renamePlayerRequest
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
	if err := h.authorizePlayerEdit(ctx, r, leagueID, req.OldName); err != nil {
		writeError(ctx, w, err)
		return
	}

	date := dateParam(r)
	players, err := h.playerService.Rename(ctx, leagueID, date, req.OldName, req.NewName)
	if err != nil {
		h.logger.WarnContext(ctx, "rename player failed", "league", leagueID, "date", date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, players)
}

// authorizePlayerEdit lets a player manage their own registration with the
// owner token minted at signup; anyone else needs the league access code.
func (h *Handler) authorizePlayerEdit(ctx context.Context, r *http.Request, leagueID, name string) error {
	if token := strings.TrimSpace(r.Header.Get(ownerTokenHeader)); token != "" {
		ok, err := h.playerService.VerifyOwner(ctx, leagueID, name, token)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	code := strings.TrimSpace(r.Header.Get(accessCodeHeader))
	if code == "" {
		return fmt.Errorf("%w: missing %s or valid %s header", usecase.ErrAccessDenied, accessCodeHeader, ownerTokenHeader)
	}
	return h.leagueService.Authorize(ctx, leagueID, code)
}
