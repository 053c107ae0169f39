package usecase

import (
	"context"
	"fmt"

	"github.com/leagr/leagr/internal/domain/match"
	"github.com/leagr/leagr/internal/domain/schedule"
	"github.com/leagr/leagr/internal/domain/validate"
	"github.com/leagr/leagr/internal/infrastructure/store"
	"github.com/leagr/leagr/internal/platform/logging"
)

// GameService builds the league schedule and the knockout bracket of a
// session and applies score and scorer writes. Every successful write
// triggers an idempotent rankings rebuild for the session's year.
type GameService struct {
	store    DocumentStore
	settings *SettingsService
	rankings *RankingService
	log      *logging.Logger
}

func NewGameService(store DocumentStore, settings *SettingsService, rankings *RankingService, log *logging.Logger) *GameService {
	if log == nil {
		log = logging.NewNop()
	}
	return &GameService{
		store:    store,
		settings: settings,
		rankings: rankings,
		log:      log,
	}
}

// SessionGames is the full games view of a session, standings included.
type SessionGames struct {
	Rounds   [][]match.Match      `json:"rounds,omitempty"`
	Bracket  []match.BracketMatch `json:"knockout,omitempty"`
	Table    []schedule.TableRow  `json:"table,omitempty"`
	Complete bool                 `json:"leagueComplete"`
}

func (s *GameService) load(ctx context.Context, leagueID, date string) (gamesState, map[string][]*string, error) {
	if err := validate.SessionDate(date); err != nil {
		return gamesState{}, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	tree, err := s.store.ReadDoc(ctx, leagueID, date)
	if err != nil {
		return gamesState{}, nil, mapStoreErr(err)
	}
	games, err := decodeGames(tree)
	if err != nil {
		return gamesState{}, nil, err
	}
	teams, err := remap[map[string][]*string](tree["teams"])
	if err != nil {
		return gamesState{}, nil, err
	}
	return games, teams, nil
}

func (s *GameService) view(games gamesState, teams map[string][]*string) SessionGames {
	out := SessionGames{
		Rounds:  games.Rounds,
		Bracket: games.bracket(),
	}
	if len(games.Rounds) > 0 {
		out.Table = schedule.Standings(teamNamesOf(teams), games.Rounds)
		out.Complete = schedule.AllRoundsComplete(games.Rounds)
	}
	return out
}

// Games returns the schedule, bracket, and standings of a session.
func (s *GameService) Games(ctx context.Context, leagueID, date string) (SessionGames, error) {
	ctx, span := startUsecaseSpan(ctx, "GameService.Games")
	defer span.End()

	games, teams, err := s.load(ctx, leagueID, date)
	if err != nil {
		return SessionGames{}, err
	}
	return s.view(games, teams), nil
}

// GenerateSchedule builds the round-robin schedule over the generated
// teams, replacing any existing rounds.
func (s *GameService) GenerateSchedule(ctx context.Context, leagueID, date string) (SessionGames, error) {
	ctx, span := startUsecaseSpan(ctx, "GameService.GenerateSchedule")
	defer span.End()

	games, teams, err := s.load(ctx, leagueID, date)
	if err != nil {
		return SessionGames{}, err
	}
	names := teamNamesOf(teams)
	if len(names) < 2 {
		return SessionGames{}, fmt.Errorf("%w: generate teams before the schedule", ErrConflict)
	}

	rounds, err := schedule.RoundRobin(names)
	if err != nil {
		return SessionGames{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	games.Rounds = rounds

	op := store.Op{Key: "games.rounds", Value: rounds, Overwrite: true}
	if err := s.store.Set(ctx, leagueID, date, op); err != nil {
		return SessionGames{}, mapStoreErr(err)
	}

	s.log.InfoContext(ctx, "schedule generated", "league", leagueID, "date", date, "teams", len(names), "rounds", len(rounds))
	return s.view(games, teams), nil
}

// SetScore writes one side's score of a league match, with the auto-fill
// rules of the match model.
func (s *GameService) SetScore(ctx context.Context, leagueID, date string, round, index int, side match.Side, score *int) (SessionGames, error) {
	ctx, span := startUsecaseSpan(ctx, "GameService.SetScore")
	defer span.End()

	games, teams, err := s.load(ctx, leagueID, date)
	if err != nil {
		return SessionGames{}, err
	}
	m, err := leagueMatchAt(games, round, index)
	if err != nil {
		return SessionGames{}, err
	}

	next, err := m.SetScore(side, score)
	if err != nil {
		return SessionGames{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	games.Rounds[round][index] = next

	if err := s.writeRounds(ctx, leagueID, date, games); err != nil {
		return SessionGames{}, err
	}
	s.afterResultWrite(ctx, leagueID, date)
	return s.view(games, teams), nil
}

// ApplyScorer adjusts one scorer tally of a league match by +1 or -1.
func (s *GameService) ApplyScorer(ctx context.Context, leagueID, date string, round, index int, side match.Side, scorer string, delta int) (SessionGames, error) {
	ctx, span := startUsecaseSpan(ctx, "GameService.ApplyScorer")
	defer span.End()

	games, teams, err := s.load(ctx, leagueID, date)
	if err != nil {
		return SessionGames{}, err
	}
	m, err := leagueMatchAt(games, round, index)
	if err != nil {
		return SessionGames{}, err
	}

	team := m.Home
	if side == match.SideAway {
		team = m.Away
	}
	next, err := m.ApplyScorerDelta(side, scorer, delta, rosterOf(teams, team))
	if err != nil {
		return SessionGames{}, err
	}
	games.Rounds[round][index] = next

	if err := s.writeRounds(ctx, leagueID, date, games); err != nil {
		return SessionGames{}, err
	}
	s.afterResultWrite(ctx, leagueID, date)
	return s.view(games, teams), nil
}

// SeedKnockout builds the bracket from the current standings. teamCount
// limits the field to the top N; zero takes every team.
func (s *GameService) SeedKnockout(ctx context.Context, leagueID, date string, teamCount int) (SessionGames, error) {
	ctx, span := startUsecaseSpan(ctx, "GameService.SeedKnockout")
	defer span.End()

	games, teams, err := s.load(ctx, leagueID, date)
	if err != nil {
		return SessionGames{}, err
	}
	if len(games.Rounds) == 0 {
		return SessionGames{}, fmt.Errorf("%w: generate the schedule before the knockout", ErrConflict)
	}

	rows := schedule.Standings(teamNamesOf(teams), games.Rounds)
	seeds := make([]string, 0, len(rows))
	for _, row := range rows {
		seeds = append(seeds, row.Team)
	}
	if teamCount > 0 && teamCount < len(seeds) {
		seeds = seeds[:teamCount]
	}

	bracket, err := schedule.SeedBracket(seeds)
	if err != nil {
		return SessionGames{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	games.Knockout = &knockoutState{Bracket: bracket}

	if err := s.writeBracket(ctx, leagueID, date, bracket); err != nil {
		return SessionGames{}, err
	}

	s.log.InfoContext(ctx, "knockout seeded", "league", leagueID, "date", date, "teams", len(seeds))
	return s.view(games, teams), nil
}

// SetKnockoutScore writes one side's score of a bracket match and
// propagates winners forward.
func (s *GameService) SetKnockoutScore(ctx context.Context, leagueID, date, round string, index int, side match.Side, score *int) (SessionGames, error) {
	ctx, span := startUsecaseSpan(ctx, "GameService.SetKnockoutScore")
	defer span.End()

	games, teams, err := s.load(ctx, leagueID, date)
	if err != nil {
		return SessionGames{}, err
	}
	bracket := games.bracket()
	at, err := bracketIndexOf(bracket, round, index)
	if err != nil {
		return SessionGames{}, err
	}
	bm := bracket[at]
	if bm.Home == nil || bm.Away == nil {
		return SessionGames{}, fmt.Errorf("%w: match %s/%d is not decided yet", ErrConflict, round, index)
	}

	flat := match.Match{Home: *bm.Home, Away: *bm.Away, HomeScore: bm.HomeScore, AwayScore: bm.AwayScore}
	next, err := flat.SetScore(side, score)
	if err != nil {
		return SessionGames{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	bm.HomeScore = next.HomeScore
	bm.AwayScore = next.AwayScore
	bracket[at] = bm

	bracket = schedule.Propagate(bracket)
	games.Knockout = &knockoutState{Bracket: bracket}

	if err := s.writeBracket(ctx, leagueID, date, bracket); err != nil {
		return SessionGames{}, err
	}
	s.afterResultWrite(ctx, leagueID, date)
	return s.view(games, teams), nil
}

// ApplyKnockoutScorer adjusts one scorer tally of a bracket match.
func (s *GameService) ApplyKnockoutScorer(ctx context.Context, leagueID, date, round string, index int, side match.Side, scorer string, delta int) (SessionGames, error) {
	ctx, span := startUsecaseSpan(ctx, "GameService.ApplyKnockoutScorer")
	defer span.End()

	games, teams, err := s.load(ctx, leagueID, date)
	if err != nil {
		return SessionGames{}, err
	}
	bracket := games.bracket()
	at, err := bracketIndexOf(bracket, round, index)
	if err != nil {
		return SessionGames{}, err
	}
	bm := bracket[at]
	if bm.Home == nil || bm.Away == nil {
		return SessionGames{}, fmt.Errorf("%w: match %s/%d is not decided yet", ErrConflict, round, index)
	}

	team := *bm.Home
	if side == match.SideAway {
		team = *bm.Away
	}
	flat := match.Match{
		Home:        *bm.Home,
		Away:        *bm.Away,
		HomeScore:   bm.HomeScore,
		AwayScore:   bm.AwayScore,
		HomeScorers: bm.HomeScorers,
		AwayScorers: bm.AwayScorers,
	}
	next, err := flat.ApplyScorerDelta(side, scorer, delta, rosterOf(teams, team))
	if err != nil {
		return SessionGames{}, err
	}
	bm.HomeScore = next.HomeScore
	bm.AwayScore = next.AwayScore
	bm.HomeScorers = next.HomeScorers
	bm.AwayScorers = next.AwayScorers
	bracket[at] = bm

	bracket = schedule.Propagate(bracket)
	games.Knockout = &knockoutState{Bracket: bracket}

	if err := s.writeBracket(ctx, leagueID, date, bracket); err != nil {
		return SessionGames{}, err
	}
	s.afterResultWrite(ctx, leagueID, date)
	return s.view(games, teams), nil
}

func (s *GameService) writeRounds(ctx context.Context, leagueID, date string, games gamesState) error {
	op := store.Op{Key: "games.rounds", Value: games.Rounds, Overwrite: true}
	return mapStoreErr(s.store.Set(ctx, leagueID, date, op))
}

func (s *GameService) writeBracket(ctx context.Context, leagueID, date string, bracket []match.BracketMatch) error {
	op := store.Op{Key: "games.knockout.bracket", Value: bracket, Overwrite: true}
	return mapStoreErr(s.store.Set(ctx, leagueID, date, op))
}

// afterResultWrite keeps the yearly rankings in step with the session
// archive. The rebuild is idempotent; a failure is logged and never fails
// the score write that triggered it.
func (s *GameService) afterResultWrite(ctx context.Context, leagueID, date string) {
	if s.rankings == nil {
		return
	}
	if _, err := s.rankings.Rebuild(ctx, leagueID, yearOf(date)); err != nil {
		s.log.WarnContext(ctx, "rankings rebuild failed", "league", leagueID, "date", date, "error", err)
	}
}

func leagueMatchAt(games gamesState, round, index int) (match.Match, error) {
	if round < 0 || round >= len(games.Rounds) {
		return match.Match{}, fmt.Errorf("%w: round %d", ErrNotFound, round)
	}
	if index < 0 || index >= len(games.Rounds[round]) {
		return match.Match{}, fmt.Errorf("%w: match %d in round %d", ErrNotFound, index, round)
	}
	m := games.Rounds[round][index]
	if m.IsBye() {
		return match.Match{}, fmt.Errorf("%w: match %d in round %d is a bye", ErrInvalidInput, index, round)
	}
	return m, nil
}

func bracketIndexOf(bracket []match.BracketMatch, round string, index int) (int, error) {
	for i, m := range bracket {
		if m.Round == round && m.Match == index {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: bracket match %s/%d", ErrNotFound, round, index)
}
