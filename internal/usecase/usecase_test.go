package usecase

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/leagr/leagr/internal/domain/league"
	"github.com/leagr/leagr/internal/domain/match"
	"github.com/leagr/leagr/internal/domain/session"
	"github.com/leagr/leagr/internal/domain/teamgen"
	"github.com/leagr/leagr/internal/infrastructure/store"
	"github.com/leagr/leagr/internal/platform/logging"
)

type env struct {
	store      *store.Store
	leagues    *LeagueService
	settings   *SettingsService
	discipline *DisciplineService
	players    *PlayerService
	rankings   *RankingService
	teams      *TeamService
	games      *GameService
	stats      *StatsService
}

func newTestEnv(t *testing.T) *env {
	t.Helper()

	log := logging.NewNop()
	st, err := store.New(t.TempDir(), false, log)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	settingsSvc := NewSettingsService(st, time.Minute, log)
	st.SetWriteHook(settingsSvc.InvalidateOnWrite)

	disc := NewDisciplineService(st, log)
	players := NewPlayerService(st, settingsSvc, disc, nil, log)
	rankingsSvc := NewRankingService(st, settingsSvc, disc, log)
	gen := teamgen.New(rand.New(rand.NewSource(7)))
	teams := NewTeamService(st, settingsSvc, rankingsSvc, gen, log)
	games := NewGameService(st, settingsSvc, rankingsSvc, log)
	stats := NewStatsService(st, rankingsSvc, log)
	leagues := NewLeagueService(st, log)

	e := &env{
		store:      st,
		leagues:    leagues,
		settings:   settingsSvc,
		discipline: disc,
		players:    players,
		rankings:   rankingsSvc,
		teams:      teams,
		games:      games,
		stats:      stats,
	}

	if _, err := leagues.Create(context.Background(), CreateLeagueInput{
		ID:          "monday",
		DisplayName: "Monday Crew",
		AccessCode:  "kickoff",
	}); err != nil {
		t.Fatalf("create league: %v", err)
	}
	return e
}

func TestLeagueCreateAndAuthorize(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ctx := context.Background()

	meta, err := e.leagues.Get(ctx, "monday")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if meta.DisplayName != "Monday Crew" {
		t.Fatalf("displayName = %q", meta.DisplayName)
	}
	if meta.AccessCodeHash != league.HashAccessCode("kickoff") {
		t.Fatalf("access code hash mismatch")
	}

	if err := e.leagues.Authorize(ctx, "monday", "kickoff"); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if err := e.leagues.Authorize(ctx, "monday", "wrong"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := e.leagues.Get(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = e.leagues.Create(ctx, CreateLeagueInput{ID: "monday", AccessCode: "kickoff"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	_, err = e.leagues.Create(ctx, CreateLeagueInput{ID: "Bad_Sub!", AccessCode: "kickoff"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSettingsResolutionAndInvalidation(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ctx := context.Background()
	date := "2025-03-03"

	eff, err := e.settings.Effective(ctx, "monday", date)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if eff.PlayerLimit != 24 {
		t.Fatalf("default playerLimit = %d", eff.PlayerLimit)
	}

	if _, err := e.settings.UpdateLeague(ctx, "monday", map[string]any{"playerLimit": 10}); err != nil {
		t.Fatalf("UpdateLeague: %v", err)
	}
	eff, err = e.settings.Effective(ctx, "monday", date)
	if err != nil {
		t.Fatalf("Effective after update: %v", err)
	}
	if eff.PlayerLimit != 10 {
		t.Fatalf("write hook must invalidate the cache, playerLimit = %d", eff.PlayerLimit)
	}

	// Session override wins over the league-wide value, for its date only.
	if err := e.settings.UpdateSession(ctx, "monday", date, map[string]any{"playerLimit": 8}); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	eff, err = e.settings.Effective(ctx, "monday", date)
	if err != nil {
		t.Fatalf("Effective with override: %v", err)
	}
	if eff.PlayerLimit != 8 {
		t.Fatalf("override playerLimit = %d", eff.PlayerLimit)
	}
	wide, err := e.settings.Effective(ctx, "monday", "")
	if err != nil {
		t.Fatalf("league-wide Effective: %v", err)
	}
	if wide.PlayerLimit != 10 {
		t.Fatalf("league-wide playerLimit = %d", wide.PlayerLimit)
	}
}

func TestPlayerRegistrationFlow(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ctx := context.Background()
	date := "2025-03-03"

	if err := e.settings.UpdateSession(ctx, "monday", date, map[string]any{"playerLimit": 2}); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	for _, name := range []string{"Alice", "Ben"} {
		if _, err := e.players.Add(ctx, "monday", date, name, session.TargetAuto); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}
	// Third signup overflows to the waiting list.
	res, err := e.players.Add(ctx, "monday", date, "Cara", session.TargetAuto)
	if err != nil {
		t.Fatalf("Add Cara: %v", err)
	}
	if len(res.Players.WaitingList) != 1 || res.Players.WaitingList[0] != "Cara" {
		t.Fatalf("waitingList = %v", res.Players.WaitingList)
	}
	if res.OwnerToken == "" {
		t.Fatalf("signup must mint an owner token")
	}

	if _, err := e.players.Add(ctx, "monday", date, "Alice", session.TargetAuto); !errors.Is(err, session.ErrDuplicatePlayer) {
		t.Fatalf("expected ErrDuplicatePlayer, got %v", err)
	}
	if _, err := e.players.Move(ctx, "monday", date, "Cara", session.TargetWaitingList, session.TargetAvailable); !errors.Is(err, session.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	if _, err := e.players.Remove(ctx, "monday", date, "Ben"); err != nil {
		t.Fatalf("Remove Ben: %v", err)
	}
	players, err := e.players.Move(ctx, "monday", date, "Cara", session.TargetWaitingList, session.TargetAvailable)
	if err != nil {
		t.Fatalf("promote Cara: %v", err)
	}
	if len(players.Available) != 2 || len(players.WaitingList) != 0 {
		t.Fatalf("players = %+v", players)
	}

	// Rename keeps the owner token attached to the player.
	ok, err := e.players.VerifyOwner(ctx, "monday", "Cara", res.OwnerToken)
	if err != nil || !ok {
		t.Fatalf("VerifyOwner before rename = %v, %v", ok, err)
	}
	if _, err := e.players.Rename(ctx, "monday", date, "Cara", "Carla"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	ok, err = e.players.VerifyOwner(ctx, "monday", "Carla", res.OwnerToken)
	if err != nil || !ok {
		t.Fatalf("VerifyOwner after rename = %v, %v", ok, err)
	}

	if _, err := e.players.Add(ctx, "monday", date, "__ownGoal__", session.TargetAuto); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("reserved prefix must be rejected, got %v", err)
	}
}

func TestSignupSuspensionGate(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ctx := context.Background()

	if _, err := e.settings.UpdateLeague(ctx, "monday", map[string]any{
		"discipline": map[string]any{"enabled": true, "noShowThreshold": 2},
	}); err != nil {
		t.Fatalf("UpdateLeague: %v", err)
	}

	for _, date := range []string{"2025-06-02", "2025-06-09"} {
		if _, err := e.discipline.RecordNoShow(ctx, "monday", "Dan", date); err != nil {
			t.Fatalf("RecordNoShow %s: %v", date, err)
		}
	}

	// Two active no-shows hit the threshold: the next signup attempt records
	// a suspension and is rejected.
	res, err := e.players.Add(ctx, "monday", "2025-06-16", "Dan", session.TargetAuto)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if res.Discipline == nil || !res.Discipline.NewSuspension {
		t.Fatalf("expected a fresh suspension, got %+v", res.Discipline)
	}

	// Retrying the same date stays blocked without stacking suspensions.
	res, err = e.players.Add(ctx, "monday", "2025-06-16", "Dan", session.TargetAuto)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on retry, got %v", err)
	}
	if res.Discipline == nil || res.Discipline.NewSuspension {
		t.Fatalf("retry must not stack suspensions, got %+v", res.Discipline)
	}
	records, err := e.discipline.List(ctx, "monday")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if records["Dan"].TotalSuspensions != 1 {
		t.Fatalf("totalSuspensions = %d", records["Dan"].TotalSuspensions)
	}
	if len(records["Dan"].ActiveNoShows) != 0 {
		t.Fatalf("suspension must clear active no-shows, got %v", records["Dan"].ActiveNoShows)
	}

	// The suspension covered one date; the following week is open again.
	if _, err := e.players.Add(ctx, "monday", "2025-06-23", "Dan", session.TargetAuto); err != nil {
		t.Fatalf("Add after suspension week: %v", err)
	}
}

func TestRegistrationWindowGate(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ctx := context.Background()
	date := "2025-07-07"

	if err := e.settings.UpdateSession(ctx, "monday", date, map[string]any{
		"registrationWindow": map[string]any{
			"enabled":  true,
			"closesAt": "2020-01-01T00:00:00Z",
		},
	}); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if _, err := e.players.Add(ctx, "monday", date, "Ivo", session.TargetAuto); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for a closed window, got %v", err)
	}

	// Reopen the window; signups flow again.
	if err := e.settings.UpdateSession(ctx, "monday", date, map[string]any{
		"registrationWindow": map[string]any{
			"enabled":  true,
			"opensAt":  "2020-01-01T00:00:00Z",
			"closesAt": "2100-01-01T00:00:00Z",
		},
	}); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if _, err := e.players.Add(ctx, "monday", date, "Ivo", session.TargetAuto); err != nil {
		t.Fatalf("Add inside window: %v", err)
	}

	// Bounds that do not parse never block a signup.
	if err := e.settings.UpdateSession(ctx, "monday", date, map[string]any{
		"registrationWindow": map[string]any{
			"enabled":  true,
			"closesAt": "soon",
		},
	}); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if _, err := e.players.Add(ctx, "monday", date, "Jules", session.TargetAuto); err != nil {
		t.Fatalf("Add with malformed bound: %v", err)
	}
}

func playSession(t *testing.T, e *env, date string) (winner string, winnerRoster, loserRoster []string) {
	t.Helper()
	ctx := context.Background()

	for _, name := range []string{"Alice", "Ben", "Cara", "Dan", "Eve", "Finn", "Gus", "Hana"} {
		if _, err := e.players.Add(ctx, "monday", date, name, session.TargetAuto); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}

	cfg := teamgen.Config{Teams: 2, TeamSizes: []int{4, 4}}
	generated, err := e.teams.Generate(ctx, "monday", date, MethodSeeded, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(generated.Teams) != 2 {
		t.Fatalf("teams = %v", generated.Teams)
	}

	games, err := e.games.GenerateSchedule(ctx, "monday", date)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(games.Rounds) != 1 || len(games.Rounds[0]) != 1 {
		t.Fatalf("rounds = %v", games.Rounds)
	}
	winner = games.Rounds[0][0].Home
	loser := games.Rounds[0][0].Away

	three := 3
	games, err = e.games.SetScore(ctx, "monday", date, 0, 0, match.SideHome, &three)
	if err != nil {
		t.Fatalf("SetScore: %v", err)
	}
	m := games.Rounds[0][0]
	if m.HomeScore == nil || m.AwayScore == nil || *m.AwayScore != 0 {
		t.Fatalf("away score must auto-zero, got %+v", m)
	}
	if !games.Complete {
		t.Fatalf("single-round league must be complete")
	}

	teams, err := e.teams.Get(ctx, "monday", date)
	if err != nil {
		t.Fatalf("teams.Get: %v", err)
	}
	winnerRoster = rosterOf(teams, winner)
	loserRoster = rosterOf(teams, loser)

	// Two claimed goals for the first winner-side player.
	scorer := winnerRoster[0]
	for i := 0; i < 2; i++ {
		if _, err := e.games.ApplyScorer(ctx, "monday", date, 0, 0, match.SideHome, scorer, 1); err != nil {
			t.Fatalf("ApplyScorer: %v", err)
		}
	}

	// Top-2 knockout: a single final, won by the league runner-up.
	games, err = e.games.SeedKnockout(ctx, "monday", date, 2)
	if err != nil {
		t.Fatalf("SeedKnockout: %v", err)
	}
	if len(games.Bracket) != 1 || games.Bracket[0].Round != match.Final {
		t.Fatalf("bracket = %+v", games.Bracket)
	}
	two := 2
	if _, err := e.games.SetKnockoutScore(ctx, "monday", date, match.Final, 0, match.SideAway, &two); err != nil {
		t.Fatalf("SetKnockoutScore: %v", err)
	}

	return winner, winnerRoster, loserRoster
}

func TestSessionToRankingsPipeline(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ctx := context.Background()
	date := "2025-03-03"

	winner, winnerRoster, loserRoster := playSession(t, e, date)

	doc, err := e.rankings.Year(ctx, "monday", 2025)
	if err != nil {
		t.Fatalf("rankings.Year: %v", err)
	}
	if len(doc.Players) != 8 {
		t.Fatalf("players in doc = %d", len(doc.Players))
	}

	// League winner: appearance 1 + match 3 + bonus 2. The cup final went to
	// the runner-up, so no knockout points here.
	wp := doc.Players[winnerRoster[0]]
	detail := wp.RankingDetail[date]
	if detail == nil {
		t.Fatalf("missing detail for %s", winnerRoster[0])
	}
	if detail.TotalPoints != 6 {
		t.Fatalf("winner totalPoints = %d", detail.TotalPoints)
	}
	if !detail.LeagueWinner || detail.CupWinner {
		t.Fatalf("winner flags = %+v", detail)
	}
	if detail.Team == nil || *detail.Team != winner {
		t.Fatalf("winner team = %v", detail.Team)
	}

	// Runner-up: appearance 1 + match 0 + runner-up 1 + knockout 4.
	lp := doc.Players[loserRoster[0]]
	ld := lp.RankingDetail[date]
	if ld == nil || ld.TotalPoints != 6 {
		t.Fatalf("runner-up detail = %+v", ld)
	}
	if ld.KnockoutPoints != 4 || !ld.CupWinner {
		t.Fatalf("cup winner detail = %+v", ld)
	}
	if ld.CupProgress == nil || *ld.CupProgress != "winner" {
		t.Fatalf("cupProgress = %v", ld.CupProgress)
	}
	if ld.LeaguePosition == nil || *ld.LeaguePosition != 2 {
		t.Fatalf("leaguePosition = %v", ld.LeaguePosition)
	}

	// League match moved ELO zero-sum; the cup final pulled some of it back.
	if wp.Elo.Rating <= 1000 {
		t.Fatalf("league winner elo = %v", wp.Elo.Rating)
	}
	if wp.Elo.GamesPlayed != 2 || lp.Elo.GamesPlayed != 2 {
		t.Fatalf("gamesPlayed = %d/%d", wp.Elo.GamesPlayed, lp.Elo.GamesPlayed)
	}
	sum := 0.0
	for _, p := range doc.Players {
		sum += p.Elo.Rating - 1000
	}
	if sum > 1e-6 || sum < -1e-6 {
		t.Fatalf("elo must stay zero-sum around the baseline, drift = %v", sum)
	}

	// Ranks are dense over all eight players.
	seen := make(map[int]bool)
	for _, p := range doc.Players {
		if p.Rank < 1 || p.Rank > 8 || seen[p.Rank] {
			t.Fatalf("bad rank %d", p.Rank)
		}
		seen[p.Rank] = true
		if p.RankingDetail[date].TotalPlayers != 8 {
			t.Fatalf("totalPlayers = %d", p.RankingDetail[date].TotalPlayers)
		}
		if !p.IsNew {
			t.Fatalf("first session players must be new")
		}
	}

	// Golden boot only counts claimed, non-reserved goals.
	boot, err := e.stats.GoldenBoot(ctx, "monday", 2025)
	if err != nil {
		t.Fatalf("GoldenBoot: %v", err)
	}
	if len(boot) != 1 || boot[0].Player != winnerRoster[0] || boot[0].Goals != 2 {
		t.Fatalf("golden boot = %+v", boot)
	}

	champs, err := e.stats.Champions(ctx, "monday", loserRoster[0], "")
	if err != nil {
		t.Fatalf("Champions: %v", err)
	}
	if champs.CupWins != 1 || champs.LeagueWins != 0 {
		t.Fatalf("champions = %+v", champs)
	}

	recap, err := e.stats.Recap(ctx, "monday", 2025)
	if err != nil {
		t.Fatalf("Recap: %v", err)
	}
	if recap.Overview.Sessions != 1 || recap.Overview.Players != 8 {
		t.Fatalf("overview = %+v", recap.Overview)
	}
	if recap.Overview.Goals != 5 {
		t.Fatalf("total goals = %d", recap.Overview.Goals)
	}
	if recap.HighestScoringMatch == nil || recap.HighestScoringMatch.Home != winner {
		t.Fatalf("highest scoring match = %+v", recap.HighestScoringMatch)
	}
}

func TestTeamConfigurationsAndEditing(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ctx := context.Background()
	date := "2025-03-10"

	for _, name := range []string{"Alice", "Ben", "Cara", "Dan", "Eve", "Finn", "Gus", "Hana", "Ivy", "Jude"} {
		if _, err := e.players.Add(ctx, "monday", date, name, session.TargetAuto); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}

	cfgs, count, err := e.teams.Configurations(ctx, "monday", date)
	if err != nil {
		t.Fatalf("Configurations: %v", err)
	}
	if count != 10 {
		t.Fatalf("player count = %d", count)
	}
	if len(cfgs) != 1 || cfgs[0].Teams != 2 {
		t.Fatalf("configs for 10 players = %+v", cfgs)
	}

	if _, err := e.teams.Generate(ctx, "monday", date, MethodRandom, cfgs[0]); err != nil {
		t.Fatalf("Generate random: %v", err)
	}
	teams, err := e.teams.Get(ctx, "monday", date)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	names := teamNamesOf(teams)
	if len(names) != 2 {
		t.Fatalf("team names = %v", names)
	}

	// Open a slot, then fill it again by hand.
	target := rosterOf(teams, names[0])[0]
	updated, err := e.teams.UnassignPlayer(ctx, "monday", date, target, false)
	if err != nil {
		t.Fatalf("UnassignPlayer: %v", err)
	}
	open := 0
	for _, slot := range updated[names[0]] {
		if slot == nil {
			open++
		}
	}
	if open != 1 {
		t.Fatalf("open slots = %d", open)
	}
	updated, err = e.teams.AssignPlayer(ctx, "monday", date, target, names[0])
	if err != nil {
		t.Fatalf("AssignPlayer: %v", err)
	}
	for _, slot := range updated[names[0]] {
		if slot == nil {
			t.Fatalf("slot must be refilled")
		}
	}

	if _, err := e.teams.AssignPlayer(ctx, "monday", date, "Nobody", names[0]); !errors.Is(err, session.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}

	if err := e.teams.Delete(ctx, "monday", date); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	teams, err = e.teams.Get(ctx, "monday", date)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if len(teams) != 0 {
		t.Fatalf("teams after delete = %v", teams)
	}
}
