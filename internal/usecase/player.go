package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/leagr/leagr/internal/domain/discipline"
	"github.com/leagr/leagr/internal/domain/session"
	"github.com/leagr/leagr/internal/domain/settings"
	"github.com/leagr/leagr/internal/domain/validate"
	"github.com/leagr/leagr/internal/infrastructure/store"
	"github.com/leagr/leagr/internal/platform/id"
	"github.com/leagr/leagr/internal/platform/logging"
)

// PlayerService owns session registration: the available and waiting lists,
// owner tokens, and the suspension gate on signup.
type PlayerService struct {
	store      DocumentStore
	settings   *SettingsService
	discipline *DisciplineService
	ids        id.Generator
	log        *logging.Logger
}

func NewPlayerService(store DocumentStore, settings *SettingsService, disc *DisciplineService, ids id.Generator, log *logging.Logger) *PlayerService {
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &PlayerService{
		store:      store,
		settings:   settings,
		discipline: disc,
		ids:        ids,
		log:        log,
	}
}

// SignupResult is the outcome of an add attempt: the new lists plus the
// owner token the caller can later use to remove or rename the signup.
type SignupResult struct {
	Players    session.Players          `json:"players"`
	OwnerToken string                   `json:"ownerToken,omitempty"`
	Discipline *discipline.SignupResult `json:"discipline,omitempty"`
}

func (s *PlayerService) loadState(ctx context.Context, leagueID, date string) (session.State, error) {
	if err := validate.SessionDate(date); err != nil {
		return session.State{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	eff, err := s.settings.Effective(ctx, leagueID, date)
	if err != nil {
		return session.State{}, err
	}
	tree, err := s.store.ReadDoc(ctx, leagueID, date)
	if err != nil {
		return session.State{}, mapStoreErr(err)
	}
	return decodeSessionState(tree, eff)
}

// commitState writes the registration lists, and the team assignment when
// it changed, in one atomic batch.
func (s *PlayerService) commitState(ctx context.Context, leagueID, date string, state session.State, withTeams bool) error {
	ops := []store.Op{
		{Key: "players.available", Value: state.Players.Available, Overwrite: true},
		{Key: "players.waitingList", Value: state.Players.WaitingList, Overwrite: true},
	}
	if withTeams {
		ops = append(ops, store.Op{Key: "teams", Value: state.Teams, Overwrite: true})
	}
	return mapStoreErr(s.store.SetMany(ctx, leagueID, date, ops))
}

// List returns the registration lists and team assignment of a session.
func (s *PlayerService) List(ctx context.Context, leagueID, date string) (session.State, error) {
	ctx, span := startUsecaseSpan(ctx, "PlayerService.List")
	defer span.End()

	return s.loadState(ctx, leagueID, date)
}

// Add registers a player for a session. A suspended player is rejected with
// ErrConflict and the suspension detail attached to the result. The first
// signup of a name mints an owner token.
func (s *PlayerService) Add(ctx context.Context, leagueID, date, rawName string, target session.Target) (SignupResult, error) {
	ctx, span := startUsecaseSpan(ctx, "PlayerService.Add")
	defer span.End()

	name, err := validate.PlayerName(rawName)
	if err != nil {
		return SignupResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	state, err := s.loadState(ctx, leagueID, date)
	if err != nil {
		return SignupResult{}, err
	}
	if !registrationWindowOpen(state.Settings.Registration, time.Now().UTC()) {
		return SignupResult{}, fmt.Errorf("%w: registration window is closed for %s", ErrConflict, date)
	}

	gate, err := s.discipline.EvaluateOnSignup(ctx, leagueID, name, date, state.Settings.Discipline)
	if err != nil {
		return SignupResult{}, err
	}
	if gate.Suspended {
		return SignupResult{Players: state.Players, Discipline: &gate},
			fmt.Errorf("%w: %s is suspended for %s", ErrConflict, name, date)
	}

	next, err := state.AddPlayer(name, target)
	if err != nil {
		return SignupResult{}, err
	}
	if err := s.commitState(ctx, leagueID, date, next, false); err != nil {
		return SignupResult{}, err
	}

	token, err := s.ensureOwnerToken(ctx, leagueID, name)
	if err != nil {
		// The signup itself succeeded; a token failure only degrades
		// self-service removal.
		s.log.WarnContext(ctx, "owner token mint failed", "league", leagueID, "player", name, "error", err)
	}

	s.log.InfoContext(ctx, "player registered", "league", leagueID, "date", date, "player", name)
	return SignupResult{Players: next.Players, OwnerToken: token}, nil
}

// registrationWindowOpen checks the optional signup window. Bounds that do
// not parse as RFC 3339 are ignored rather than blocking signups.
func registrationWindowOpen(win settings.RegistrationWindow, now time.Time) bool {
	if !win.Enabled {
		return true
	}
	if t, err := time.Parse(time.RFC3339, win.OpensAt); err == nil && now.Before(t) {
		return false
	}
	if t, err := time.Parse(time.RFC3339, win.ClosesAt); err == nil && now.After(t) {
		return false
	}
	return true
}

// Remove drops a player from the session, opening any team slot they held.
func (s *PlayerService) Remove(ctx context.Context, leagueID, date, name string) (session.Players, error) {
	ctx, span := startUsecaseSpan(ctx, "PlayerService.Remove")
	defer span.End()

	state, err := s.loadState(ctx, leagueID, date)
	if err != nil {
		return session.Players{}, err
	}
	next, err := state.RemovePlayer(name)
	if err != nil {
		return session.Players{}, err
	}
	if err := s.commitState(ctx, leagueID, date, next, true); err != nil {
		return session.Players{}, err
	}

	s.log.InfoContext(ctx, "player removed", "league", leagueID, "date", date, "player", name)
	return next.Players, nil
}

// Move shifts a player between the available and waiting lists.
func (s *PlayerService) Move(ctx context.Context, leagueID, date, name string, from, to session.Target) (session.Players, error) {
	ctx, span := startUsecaseSpan(ctx, "PlayerService.Move")
	defer span.End()

	state, err := s.loadState(ctx, leagueID, date)
	if err != nil {
		return session.Players{}, err
	}
	next, err := state.MovePlayer(name, from, to)
	if err != nil {
		return session.Players{}, err
	}
	if err := s.commitState(ctx, leagueID, date, next, true); err != nil {
		return session.Players{}, err
	}
	return next.Players, nil
}

// Rename remaps a name across the lists, team slots, and the owner-token
// map.
func (s *PlayerService) Rename(ctx context.Context, leagueID, date, oldName, rawNewName string) (session.Players, error) {
	ctx, span := startUsecaseSpan(ctx, "PlayerService.Rename")
	defer span.End()

	newName, err := validate.PlayerName(rawNewName)
	if err != nil {
		return session.Players{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	state, err := s.loadState(ctx, leagueID, date)
	if err != nil {
		return session.Players{}, err
	}
	next, err := state.RenamePlayer(oldName, newName)
	if err != nil {
		return session.Players{}, err
	}
	if err := s.commitState(ctx, leagueID, date, next, true); err != nil {
		return session.Players{}, err
	}

	err = s.store.Update(ctx, leagueID, store.DocPlayerOwners, func(tree map[string]any) (map[string]any, error) {
		if token, ok := tree[oldName]; ok {
			if _, taken := tree[newName]; !taken {
				tree[newName] = token
			}
			delete(tree, oldName)
		}
		return tree, nil
	})
	if err != nil {
		// The rename is already committed; the stranded token only blocks
		// self-service edits until the player signs up again.
		s.log.ErrorContext(ctx, "owner token remap failed", "league", leagueID, "player", newName, "error", err)
	}

	s.log.InfoContext(ctx, "player renamed", "league", leagueID, "date", date, "from", oldName, "to", newName)
	return next.Players, nil
}

// VerifyOwner reports whether the token matches the player's owner token.
func (s *PlayerService) VerifyOwner(ctx context.Context, leagueID, name, token string) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "PlayerService.VerifyOwner")
	defer span.End()

	if token == "" {
		return false, nil
	}
	raw, err := s.store.Get(ctx, leagueID, store.DocPlayerOwners, "")
	if err != nil {
		return false, mapStoreErr(err)
	}
	owners, ok := raw.(map[string]any)
	if !ok {
		return false, nil
	}
	stored, _ := owners[name].(string)
	return stored != "" && stored == token, nil
}

// ensureOwnerToken mints an owner token for a name on first signup and
// returns the existing one afterwards.
func (s *PlayerService) ensureOwnerToken(ctx context.Context, leagueID, name string) (string, error) {
	var token string
	err := s.store.Update(ctx, leagueID, store.DocPlayerOwners, func(tree map[string]any) (map[string]any, error) {
		if existing, ok := tree[name].(string); ok && existing != "" {
			token = existing
			return tree, nil
		}
		minted, err := s.ids.NewID()
		if err != nil {
			return nil, err
		}
		token = minted
		tree[name] = minted
		return tree, nil
	})
	if err != nil {
		return "", mapStoreErr(err)
	}
	return token, nil
}
