package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/leagr/leagr/internal/domain/rankings"
	"github.com/leagr/leagr/internal/domain/schedule"
	"github.com/leagr/leagr/internal/domain/validate"
	"github.com/leagr/leagr/internal/platform/logging"
)

// statsFanout bounds the concurrent session-document reads of an
// aggregation.
const statsFanout = 8

// Trophy type filters for the champions view.
const (
	TrophyLeague = "league"
	TrophyCup    = "cup"
)

// StatsService aggregates across the session archive and the rankings
// documents: champions, the golden boot, and the year recap.
type StatsService struct {
	store    DocumentStore
	rankings *RankingService
	log      *logging.Logger
}

func NewStatsService(store DocumentStore, rankings *RankingService, log *logging.Logger) *StatsService {
	if log == nil {
		log = logging.NewNop()
	}
	return &StatsService{store: store, rankings: rankings, log: log}
}

type ChampionYear struct {
	Year       int `json:"year"`
	LeagueWins int `json:"leagueWins"`
	CupWins    int `json:"cupWins"`
}

type ChampionsSummary struct {
	Player     string         `json:"player"`
	LeagueWins int            `json:"leagueWins"`
	CupWins    int            `json:"cupWins"`
	Years      []ChampionYear `json:"years"`
}

// Champions sums a player's trophies across every rankings year. The trophy
// filter keeps only league or cup wins when set.
func (s *StatsService) Champions(ctx context.Context, leagueID, player, trophy string) (ChampionsSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "StatsService.Champions")
	defer span.End()

	switch trophy {
	case "", TrophyLeague, TrophyCup:
	default:
		return ChampionsSummary{}, fmt.Errorf("%w: unknown trophy type %q", ErrInvalidInput, trophy)
	}

	years, err := s.store.ListYears(ctx, leagueID)
	if err != nil {
		return ChampionsSummary{}, mapStoreErr(err)
	}

	out := ChampionsSummary{Player: player}
	for _, year := range years {
		doc, err := s.rankings.Year(ctx, leagueID, year)
		if err != nil {
			return ChampionsSummary{}, err
		}
		entry, ok := doc.Players[player]
		if !ok {
			continue
		}
		cy := ChampionYear{Year: year, LeagueWins: entry.LeagueWins, CupWins: entry.CupWins}
		if trophy == TrophyCup {
			cy.LeagueWins = 0
		}
		if trophy == TrophyLeague {
			cy.CupWins = 0
		}
		if cy.LeagueWins == 0 && cy.CupWins == 0 {
			continue
		}
		out.LeagueWins += cy.LeagueWins
		out.CupWins += cy.CupWins
		out.Years = append(out.Years, cy)
	}
	return out, nil
}

type GoldenBootEntry struct {
	Player string `json:"player"`
	Goals  int    `json:"goals"`
}

// GoldenBoot tallies claimed goals per player over one year, or all-time
// with year zero. Reserved scorer keys (own goals, unassigned) are
// excluded.
func (s *StatsService) GoldenBoot(ctx context.Context, leagueID string, year int) ([]GoldenBootEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "StatsService.GoldenBoot")
	defer span.End()

	dates, err := s.sessionDates(ctx, leagueID, year)
	if err != nil {
		return nil, err
	}

	stats, err := s.collectSessions(ctx, leagueID, dates)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	for _, st := range stats {
		for player, goals := range st.scorers {
			totals[player] += goals
		}
	}

	out := make([]GoldenBootEntry, 0, len(totals))
	for player, goals := range totals {
		out = append(out, GoldenBootEntry{Player: player, Goals: goals})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Goals != out[j].Goals {
			return out[i].Goals > out[j].Goals
		}
		return out[i].Player < out[j].Player
	})
	return out, nil
}

type NameCount struct {
	Player string `json:"player"`
	Count  int    `json:"count"`
}

type NameScore struct {
	Player string  `json:"player"`
	Score  float64 `json:"score"`
}

type Improvement struct {
	Player   string `json:"player"`
	FromRank int    `json:"fromRank"`
	ToRank   int    `json:"toRank"`
	Delta    int    `json:"delta"`
}

type TeamSessionStat struct {
	Date           string  `json:"date"`
	Team           string  `json:"team"`
	Points         int     `json:"points"`
	Played         int     `json:"played"`
	PointsPct      float64 `json:"pointsPct"`
	GoalDifference int     `json:"goalDifference"`
}

type MatchStat struct {
	Date      string `json:"date"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
}

type SessionGoalsStat struct {
	Date  string `json:"date"`
	Goals int    `json:"goals"`
}

type RecapOverview struct {
	Sessions int `json:"sessions"`
	Players  int `json:"players"`
	Goals    int `json:"goals"`
}

type YearRecap struct {
	Year                int               `json:"year"`
	Overview            RecapOverview     `json:"overview"`
	IronMan             []NameCount       `json:"ironMan,omitempty"`
	MostImproved        *Improvement      `json:"mostImproved,omitempty"`
	KingOfKings         []NameCount       `json:"kingOfKings,omitempty"`
	PlayerOfYear        *NameScore        `json:"playerOfYear,omitempty"`
	TeamOfYear          []string          `json:"teamOfYear,omitempty"`
	BestSessionTeam     *TeamSessionStat  `json:"bestSessionTeam,omitempty"`
	WorstSessionTeam    *TeamSessionStat  `json:"worstSessionTeam,omitempty"`
	HighestScoringMatch *MatchStat        `json:"highestScoringMatch,omitempty"`
	BiggestMargin       *MatchStat        `json:"biggestMargin,omitempty"`
	MostGoalsSession    *SessionGoalsStat `json:"mostGoalsSession,omitempty"`
	FewestGoalsSession  *SessionGoalsStat `json:"fewestGoalsSession,omitempty"`
}

// Recap assembles the year-in-review: totals, the endurance and improvement
// awards, and the superlative sessions and matches.
func (s *StatsService) Recap(ctx context.Context, leagueID string, year int) (YearRecap, error) {
	ctx, span := startUsecaseSpan(ctx, "StatsService.Recap")
	defer span.End()

	current, err := s.rankings.Year(ctx, leagueID, year)
	if err != nil {
		return YearRecap{}, err
	}
	if len(current.Players) == 0 {
		return YearRecap{}, fmt.Errorf("%w: no rankings for %d", ErrNotFound, year)
	}
	previous, err := s.rankings.Year(ctx, leagueID, year-1)
	if err != nil {
		return YearRecap{}, err
	}

	dates, err := s.sessionDates(ctx, leagueID, year)
	if err != nil {
		return YearRecap{}, err
	}
	sessions, err := s.collectSessions(ctx, leagueID, dates)
	if err != nil {
		return YearRecap{}, err
	}

	recap := YearRecap{Year: year, Overview: RecapOverview{Players: len(current.Players)}}

	for _, st := range sessions {
		if !st.played {
			continue
		}
		recap.Overview.Sessions++
		recap.Overview.Goals += st.goals

		if recap.MostGoalsSession == nil || st.goals > recap.MostGoalsSession.Goals {
			recap.MostGoalsSession = &SessionGoalsStat{Date: st.date, Goals: st.goals}
		}
		if recap.FewestGoalsSession == nil || st.goals < recap.FewestGoalsSession.Goals {
			recap.FewestGoalsSession = &SessionGoalsStat{Date: st.date, Goals: st.goals}
		}

		for _, m := range st.matches {
			total := m.HomeScore + m.AwayScore
			margin := abs(m.HomeScore - m.AwayScore)
			if recap.HighestScoringMatch == nil ||
				total > recap.HighestScoringMatch.HomeScore+recap.HighestScoringMatch.AwayScore {
				v := m
				recap.HighestScoringMatch = &v
			}
			if recap.BiggestMargin == nil ||
				margin > abs(recap.BiggestMargin.HomeScore-recap.BiggestMargin.AwayScore) {
				v := m
				recap.BiggestMargin = &v
			}
		}

		for _, row := range st.table {
			if row.Played == 0 {
				continue
			}
			stat := TeamSessionStat{
				Date:           st.date,
				Team:           row.Team,
				Points:         row.Points,
				Played:         row.Played,
				PointsPct:      float64(row.Points) / float64(3*row.Played),
				GoalDifference: row.GoalDifference(),
			}
			if recap.BestSessionTeam == nil || betterTeamStat(stat, *recap.BestSessionTeam) {
				v := stat
				recap.BestSessionTeam = &v
			}
			if recap.WorstSessionTeam == nil || betterTeamStat(*recap.WorstSessionTeam, stat) {
				v := stat
				recap.WorstSessionTeam = &v
			}
		}
	}

	recap.IronMan = topAppearances(current, 3)
	recap.TeamOfYear = topByRankingPoints(current, 6)

	if best := bestRanked(current); best != "" {
		recap.PlayerOfYear = &NameScore{Player: best, Score: current.Players[best].RankingPoints}
	}

	for name, p := range current.Players {
		prev, ok := previous.Players[name]
		if !ok || prev.Rank == 0 || p.Rank == 0 {
			continue
		}
		delta := prev.Rank - p.Rank
		if delta <= 0 {
			continue
		}
		if recap.MostImproved == nil || delta > recap.MostImproved.Delta ||
			(delta == recap.MostImproved.Delta && name < recap.MostImproved.Player) {
			recap.MostImproved = &Improvement{Player: name, FromRank: prev.Rank, ToRank: p.Rank, Delta: delta}
		}
	}

	kings, err := s.allTimeTrophies(ctx, leagueID)
	if err != nil {
		return YearRecap{}, err
	}
	recap.KingOfKings = kings

	return recap, nil
}

// sessionStats is the per-document aggregate one fan-out worker produces.
type sessionStats struct {
	date    string
	played  bool
	goals   int
	table   []schedule.TableRow
	matches []MatchStat
	scorers map[string]int
}

func (s *StatsService) sessionDates(ctx context.Context, leagueID string, year int) ([]string, error) {
	dates, err := s.store.ListSessionDates(ctx, leagueID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if year == 0 {
		return dates, nil
	}
	prefix := fmt.Sprintf("%d-", year)
	var out []string
	for _, date := range dates {
		if strings.HasPrefix(date, prefix) {
			out = append(out, date)
		}
	}
	return out, nil
}

// collectSessions loads and tallies the session documents concurrently.
func (s *StatsService) collectSessions(ctx context.Context, leagueID string, dates []string) ([]sessionStats, error) {
	p := pool.NewWithResults[sessionStats]().WithContext(ctx).WithMaxGoroutines(statsFanout)
	for _, date := range dates {
		date := date
		p.Go(func(ctx context.Context) (sessionStats, error) {
			return s.loadSessionStats(ctx, leagueID, date)
		})
	}
	stats, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].date < stats[j].date })
	return stats, nil
}

func (s *StatsService) loadSessionStats(ctx context.Context, leagueID, date string) (sessionStats, error) {
	tree, err := s.store.ReadDoc(ctx, leagueID, date)
	if err != nil {
		return sessionStats{}, mapStoreErr(err)
	}
	games, err := decodeGames(tree)
	if err != nil {
		return sessionStats{}, err
	}
	teams, err := remap[map[string][]*string](tree["teams"])
	if err != nil {
		return sessionStats{}, err
	}

	st := sessionStats{date: date, scorers: make(map[string]int)}
	st.played = games.hasCompletedMatch()
	if !st.played {
		return st, nil
	}
	st.table = schedule.Standings(teamNamesOf(teams), games.Rounds)

	tallyScorers := func(scorers map[string]int) {
		for key, count := range scorers {
			if strings.HasPrefix(key, validate.ReservedPrefix) {
				continue
			}
			st.scorers[key] += count
		}
	}

	for _, round := range games.Rounds {
		for _, m := range round {
			if m.IsBye() || !m.Completed() {
				continue
			}
			st.goals += *m.HomeScore + *m.AwayScore
			st.matches = append(st.matches, MatchStat{
				Date: date, Home: m.Home, Away: m.Away,
				HomeScore: *m.HomeScore, AwayScore: *m.AwayScore,
			})
			tallyScorers(m.HomeScorers)
			tallyScorers(m.AwayScorers)
		}
	}
	for _, m := range games.bracket() {
		if !m.Completed() {
			continue
		}
		st.goals += *m.HomeScore + *m.AwayScore
		st.matches = append(st.matches, MatchStat{
			Date: date, Home: *m.Home, Away: *m.Away,
			HomeScore: *m.HomeScore, AwayScore: *m.AwayScore,
		})
		tallyScorers(m.HomeScorers)
		tallyScorers(m.AwayScorers)
	}

	return st, nil
}

// allTimeTrophies counts league and cup wins per player across every
// rankings year.
func (s *StatsService) allTimeTrophies(ctx context.Context, leagueID string) ([]NameCount, error) {
	years, err := s.store.ListYears(ctx, leagueID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	totals := make(map[string]int)
	for _, year := range years {
		doc, err := s.rankings.Year(ctx, leagueID, year)
		if err != nil {
			return nil, err
		}
		for name, p := range doc.Players {
			if n := p.LeagueWins + p.CupWins; n > 0 {
				totals[name] += n
			}
		}
	}

	out := make([]NameCount, 0, len(totals))
	for name, count := range totals {
		out = append(out, NameCount{Player: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Player < out[j].Player
	})
	if len(out) > 3 {
		out = out[:3]
	}
	return out, nil
}

func topAppearances(doc *rankings.Year, limit int) []NameCount {
	out := make([]NameCount, 0, len(doc.Players))
	for name, p := range doc.Players {
		out = append(out, NameCount{Player: name, Count: p.Appearances})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Player < out[j].Player
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// topByRankingPoints orders players by weighted points and returns the top
// names.
func topByRankingPoints(doc *rankings.Year, limit int) []string {
	names := make([]string, 0, len(doc.Players))
	for name := range doc.Players {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := doc.Players[names[i]], doc.Players[names[j]]
		if a.RankingPoints != b.RankingPoints {
			return a.RankingPoints > b.RankingPoints
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}

func bestRanked(doc *rankings.Year) string {
	best := ""
	for name, p := range doc.Players {
		if p.Rank != 1 {
			continue
		}
		if best == "" || name < best {
			best = name
		}
	}
	if best == "" {
		if top := topByRankingPoints(doc, 1); len(top) == 1 {
			best = top[0]
		}
	}
	return best
}

func betterTeamStat(a, b TeamSessionStat) bool {
	if a.PointsPct != b.PointsPct {
		return a.PointsPct > b.PointsPct
	}
	if a.GoalDifference != b.GoalDifference {
		return a.GoalDifference > b.GoalDifference
	}
	return a.Team < b.Team
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
