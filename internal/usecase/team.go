package usecase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/leagr/leagr/internal/domain/session"
	"github.com/leagr/leagr/internal/domain/teamgen"
	"github.com/leagr/leagr/internal/domain/validate"
	"github.com/leagr/leagr/internal/infrastructure/store"
	"github.com/leagr/leagr/internal/platform/logging"
)

// Generation methods.
const (
	MethodRandom = "random"
	MethodSeeded = "seeded"
)

// TeamService generates and edits the team assignment of a session. Seeded
// generation pulls its ratings from the rankings archive and its pairing
// history from the recent session documents.
type TeamService struct {
	store    DocumentStore
	settings *SettingsService
	rankings *RankingService
	gen      *teamgen.Generator
	log      *logging.Logger
}

func NewTeamService(store DocumentStore, settings *SettingsService, rankings *RankingService, gen *teamgen.Generator, log *logging.Logger) *TeamService {
	if gen == nil {
		gen = teamgen.New(nil)
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &TeamService{
		store:    store,
		settings: settings,
		rankings: rankings,
		gen:      gen,
		log:      log,
	}
}

// GeneratedTeams is the outcome of a generation run.
type GeneratedTeams struct {
	Teams      map[string][]*string `json:"teams"`
	Draw       []teamgen.DrawRecord `json:"draw,omitempty"`
	Score      float64              `json:"score"`
	Iterations int                  `json:"iterations"`
}

func (s *TeamService) loadState(ctx context.Context, leagueID, date string) (session.State, error) {
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

// Configurations lists the allowed team layouts for the current player
// count.
func (s *TeamService) Configurations(ctx context.Context, leagueID, date string) ([]teamgen.Config, int, error) {
	ctx, span := startUsecaseSpan(ctx, "TeamService.Configurations")
	defer span.End()

	state, err := s.loadState(ctx, leagueID, date)
	if err != nil {
		return nil, 0, err
	}
	count := len(state.Players.Available)
	return teamgen.Configurations(count, state.Settings.TeamGeneration), count, nil
}

// Get returns the current team assignment of a session.
func (s *TeamService) Get(ctx context.Context, leagueID, date string) (map[string][]*string, error) {
	ctx, span := startUsecaseSpan(ctx, "TeamService.Get")
	defer span.End()

	state, err := s.loadState(ctx, leagueID, date)
	if err != nil {
		return nil, err
	}
	if state.Teams == nil {
		return map[string][]*string{}, nil
	}
	return state.Teams, nil
}

// Generate drafts a fresh team assignment from the available list and
// persists it, discarding any existing schedule. MethodSeeded runs the full
// rating-aware optimizer; MethodRandom drafts off flat ratings with no
// pairing history.
func (s *TeamService) Generate(ctx context.Context, leagueID, date, method string, cfg teamgen.Config) (GeneratedTeams, error) {
	ctx, span := startUsecaseSpan(ctx, "TeamService.Generate")
	defer span.End()

	state, err := s.loadState(ctx, leagueID, date)
	if err != nil {
		return GeneratedTeams{}, err
	}
	players := state.Players.Available

	var (
		seeds []teamgen.PlayerSeed
		pairs *teamgen.PairIndex
	)
	switch method {
	case MethodRandom:
		seeds = make([]teamgen.PlayerSeed, len(players))
		for i, name := range players {
			seeds[i] = teamgen.PlayerSeed{Name: name, Elo: state.Settings.Elo.Baseline}
		}
	case MethodSeeded, "":
		ratings, err := s.rankings.RatingsSnapshot(ctx, leagueID, players, yearOf(date))
		if err != nil {
			return GeneratedTeams{}, err
		}
		seeds = teamgen.EffectiveSeeds(ratings, state.Settings.Elo)
		pairs, err = s.pairHistory(ctx, leagueID, date)
		if err != nil {
			return GeneratedTeams{}, err
		}
	default:
		return GeneratedTeams{}, fmt.Errorf("%w: unknown generation method %q", ErrInvalidInput, method)
	}

	result, err := s.gen.Generate(ctx, seeds, cfg, pairs)
	if err != nil {
		return GeneratedTeams{}, err
	}

	teams := make(map[string][]*string, len(result.TeamNames))
	for i, team := range result.TeamNames {
		slots := make([]*string, cfg.TeamSizes[i])
		for j, name := range result.Rosters[i] {
			v := name
			slots[j] = &v
		}
		teams[team] = slots
	}

	ops := []store.Op{
		{Key: "teams", Value: teams, Overwrite: true},
		{Key: "games", Value: map[string]any{}, Overwrite: true},
	}
	if len(result.Draw) > 0 {
		ops = append(ops, store.Op{Key: "meta.teamDraw", Value: result.Draw, Overwrite: true})
	}
	if err := s.store.SetMany(ctx, leagueID, date, ops); err != nil {
		return GeneratedTeams{}, mapStoreErr(err)
	}

	s.log.InfoContext(ctx, "teams generated", "league", leagueID, "date", date,
		"method", method, "teams", cfg.Teams, "score", result.Score, "iterations", result.Iterations)
	return GeneratedTeams{
		Teams:      teams,
		Draw:       result.Draw,
		Score:      result.Score,
		Iterations: result.Iterations,
	}, nil
}

// Delete clears the team assignment and the schedule built on it.
func (s *TeamService) Delete(ctx context.Context, leagueID, date string) error {
	ctx, span := startUsecaseSpan(ctx, "TeamService.Delete")
	defer span.End()

	if err := validate.SessionDate(date); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return mapStoreErr(s.store.SetMany(ctx, leagueID, date, []store.Op{
		{Key: "teams", Value: map[string]any{}, Overwrite: true},
		{Key: "games", Value: map[string]any{}, Overwrite: true},
	}))
}

// AssignPlayer places a player into the first open slot of a team,
// promoting from the waiting list when needed.
func (s *TeamService) AssignPlayer(ctx context.Context, leagueID, date, name, team string) (map[string][]*string, error) {
	ctx, span := startUsecaseSpan(ctx, "TeamService.AssignPlayer")
	defer span.End()

	state, err := s.loadState(ctx, leagueID, date)
	if err != nil {
		return nil, err
	}
	next, err := state.MovePlayerToTeam(name, team)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, leagueID, date, next); err != nil {
		return nil, err
	}
	return next.Teams, nil
}

// UnassignPlayer opens a player's team slot. With toWaiting the player is
// also demoted to the waiting list.
func (s *TeamService) UnassignPlayer(ctx context.Context, leagueID, date, name string, toWaiting bool) (map[string][]*string, error) {
	ctx, span := startUsecaseSpan(ctx, "TeamService.UnassignPlayer")
	defer span.End()

	state, err := s.loadState(ctx, leagueID, date)
	if err != nil {
		return nil, err
	}
	var next session.State
	if toWaiting {
		next, err = state.MovePlayerToWaiting(name)
	} else {
		next, err = state.RemoveFromTeam(name)
	}
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, leagueID, date, next); err != nil {
		return nil, err
	}
	return next.Teams, nil
}

func (s *TeamService) commit(ctx context.Context, leagueID, date string, state session.State) error {
	return mapStoreErr(s.store.SetMany(ctx, leagueID, date, []store.Op{
		{Key: "players.available", Value: state.Players.Available, Overwrite: true},
		{Key: "players.waitingList", Value: state.Players.WaitingList, Overwrite: true},
		{Key: "teams", Value: state.Teams, Overwrite: true},
	}))
}

// pairHistory indexes the team rosters of the most recent sessions before
// the given date.
func (s *TeamService) pairHistory(ctx context.Context, leagueID, date string) (*teamgen.PairIndex, error) {
	dates, err := s.store.ListSessionDates(ctx, leagueID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	var prior []string
	for _, d := range dates {
		if d < date {
			prior = append(prior, d)
		}
	}
	if len(prior) > teamgen.PairWindow {
		prior = prior[len(prior)-teamgen.PairWindow:]
	}

	pairs := teamgen.NewPairIndex(teamgen.PairWindow)
	for _, d := range prior {
		raw, err := s.store.Get(ctx, leagueID, d, "teams")
		if err != nil {
			return nil, mapStoreErr(err)
		}
		teams, err := remap[map[string][]*string](raw)
		if err != nil {
			return nil, err
		}
		if len(teams) == 0 {
			continue
		}
		var rosters [][]string
		for _, team := range teamNamesOf(teams) {
			if roster := rosterOf(teams, team); len(roster) > 1 {
				rosters = append(rosters, roster)
			}
		}
		if len(rosters) > 0 {
			pairs.Add(rosters)
		}
	}
	return pairs, nil
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
