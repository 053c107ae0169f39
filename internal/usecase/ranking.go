package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/leagr/leagr/internal/domain/elo"
	"github.com/leagr/leagr/internal/domain/match"
	"github.com/leagr/leagr/internal/domain/rankings"
	"github.com/leagr/leagr/internal/domain/schedule"
	"github.com/leagr/leagr/internal/domain/settings"
	"github.com/leagr/leagr/internal/domain/teamgen"
	"github.com/leagr/leagr/internal/platform/logging"
)

// Points composition of a session.
const (
	appearancePoints  = 1
	winnerBonus       = 2
	runnerUpBonus     = 1
	knockoutWinPoints = 4

	// rankingGamma dampens raw points by appearance share, so a player with
	// few sessions cannot top the table on a hot streak.
	rankingGamma = 0.5

	// provisionalScaleAnchor anchors the normalized attacking and control
	// scales when no established pool exists.
	provisionalScaleAnchor = 0.5

	sessionDateLayout = "2006-01-02"
)

var bracketRoundRank = map[string]int{
	match.RoundOf32: 0,
	match.RoundOf16: 1,
	match.Quarter:   2,
	match.Semi:      3,
	match.Final:     4,
}

// RankingService rebuilds the yearly rankings document from the session
// archive. The rebuild is a pure function of the stored sessions, so it can
// run after every score write and always lands on the same result.
type RankingService struct {
	store      DocumentStore
	settings   *SettingsService
	discipline *DisciplineService
	log        *logging.Logger
}

func NewRankingService(store DocumentStore, settings *SettingsService, disc *DisciplineService, log *logging.Logger) *RankingService {
	if log == nil {
		log = logging.NewNop()
	}
	return &RankingService{
		store:      store,
		settings:   settings,
		discipline: disc,
		log:        log,
	}
}

func rankingsDoc(year int) string {
	return fmt.Sprintf("rankings-%d", year)
}

// Year loads the rankings document of a year. A year with no data yields an
// empty document, not an error.
func (s *RankingService) Year(ctx context.Context, leagueID string, year int) (*rankings.Year, error) {
	ctx, span := startUsecaseSpan(ctx, "RankingService.Year")
	defer span.End()

	if year < 1000 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d", ErrInvalidInput, year)
	}
	tree, err := s.store.ReadDoc(ctx, leagueID, rankingsDoc(year))
	if err != nil {
		return nil, mapStoreErr(err)
	}
	y, err := remap[rankings.Year](tree)
	if err != nil {
		return nil, err
	}
	if y.Players == nil {
		y.Players = make(map[string]*rankings.PlayerRanking)
	}
	return &y, nil
}

// Player returns one player's yearly record.
func (s *RankingService) Player(ctx context.Context, leagueID, name string, year int) (*rankings.PlayerRanking, error) {
	ctx, span := startUsecaseSpan(ctx, "RankingService.Player")
	defer span.End()

	y, err := s.Year(ctx, leagueID, year)
	if err != nil {
		return nil, err
	}
	p, ok := y.Players[name]
	if !ok {
		return nil, fmt.Errorf("%w: no ranking for %q in %d", ErrNotFound, name, year)
	}
	return p, nil
}

// RatingsSnapshot resolves the raw rating inputs for team generation. The
// current year is preferred; an empty current year falls back to the
// previous one so January sessions still seed off last season.
func (s *RankingService) RatingsSnapshot(ctx context.Context, leagueID string, names []string, year int) ([]teamgen.PlayerRating, error) {
	ctx, span := startUsecaseSpan(ctx, "RankingService.RatingsSnapshot")
	defer span.End()

	doc, err := s.Year(ctx, leagueID, year)
	if err != nil {
		return nil, err
	}
	if len(doc.Players) == 0 {
		doc, err = s.Year(ctx, leagueID, year-1)
		if err != nil {
			return nil, err
		}
	}

	out := make([]teamgen.PlayerRating, 0, len(names))
	for _, name := range names {
		rating := teamgen.PlayerRating{Name: name}
		if p, ok := doc.Players[name]; ok {
			rating.Elo = p.Elo.Rating
			rating.GamesPlayed = p.Elo.GamesPlayed
			rating.RankingPoints = p.RankingPoints
			rating.Appearances = p.Appearances
			rating.Attacking = p.AttackingRating
			rating.Control = p.ControlRating
		}
		out = append(out, rating)
	}
	return out, nil
}

// Rebuild recomputes the rankings document for a year from every completed
// session, in date order, and persists it. ELO state carries over from the
// previous year's document; no-shows of participants are cleared as their
// sessions are absorbed.
func (s *RankingService) Rebuild(ctx context.Context, leagueID string, year int) (*rankings.Year, error) {
	ctx, span := startUsecaseSpan(ctx, "RankingService.Rebuild")
	defer span.End()

	dates, err := s.store.ListSessionDates(ctx, leagueID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	prefix := fmt.Sprintf("%d-", year)
	var yearDates []string
	for _, date := range dates {
		if strings.HasPrefix(date, prefix) {
			yearDates = append(yearDates, date)
		}
	}

	prev, err := s.Year(ctx, leagueID, year-1)
	if err != nil {
		return nil, err
	}

	b := &yearBuilder{
		year:         rankings.NewYear(),
		carry:        prev.Players,
		goalsFor:     make(map[string]int),
		goalsAgainst: make(map[string]int),
	}

	last := ""
	for _, date := range yearDates {
		tree, err := s.store.ReadDoc(ctx, leagueID, date)
		if err != nil {
			return nil, mapStoreErr(err)
		}
		games, err := decodeGames(tree)
		if err != nil {
			return nil, err
		}
		if !games.hasCompletedMatch() {
			continue
		}
		teams, err := remap[map[string][]*string](tree["teams"])
		if err != nil {
			return nil, err
		}
		eff, err := s.settings.Effective(ctx, leagueID, date)
		if err != nil {
			return nil, err
		}

		participants := b.absorbSession(date, teams, games, eff)
		b.rescore(date, eff.Elo.GamesThreshold)
		last = date

		if err := s.discipline.ClearForParticipants(ctx, leagueID, participants, date); err != nil {
			s.log.WarnContext(ctx, "no-show clearing failed", "league", leagueID, "date", date, "error", err)
		}
	}

	meta := rankings.Metadata{Gamma: rankingGamma, LastCalculated: last}
	if n := len(b.year.Players); n > 0 {
		total := 0
		for _, p := range b.year.Players {
			total += p.Points
		}
		meta.GlobalAverage = float64(total) / float64(n)
	}
	b.year.Metadata = meta

	doc, err := remap[map[string]any](b.year)
	if err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, leagueID, rankingsDoc(year), func(map[string]any) (map[string]any, error) {
		return doc, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.log.InfoContext(ctx, "rankings rebuilt", "league", leagueID, "year", year, "sessions", len(yearDates), "players", len(b.year.Players))
	return b.year, nil
}

// yearBuilder accumulates the rebuild state across sessions.
type yearBuilder struct {
	year         *rankings.Year
	carry        map[string]*rankings.PlayerRanking
	goalsFor     map[string]int
	goalsAgainst map[string]int
}

// absorbSession folds one completed session into the yearly record: points,
// appearances, goal tallies, winner flags, and the rated ELO updates. It
// returns the session participants.
func (b *yearBuilder) absorbSession(date string, teams map[string][]*string, games gamesState, eff settings.Effective) []string {
	names := teamNamesOf(teams)
	rosters := make(map[string][]string, len(names))
	var participants []string
	for _, team := range names {
		roster := rosterOf(teams, team)
		rosters[team] = roster
		participants = append(participants, roster...)
	}
	sort.Strings(participants)

	// First sight this year imports last year's ELO state; genuinely new
	// players start at the baseline with no pending decay.
	for _, name := range participants {
		p := b.year.Entry(name)
		if p.Appearances == 0 && p.Elo.Rating == 0 {
			if prev, ok := b.carry[name]; ok && prev != nil && prev.Elo.Rating != 0 {
				p.Elo = prev.Elo
			} else {
				p.Elo = rankings.EloState{Rating: eff.Elo.Baseline, LastDecayAt: date}
			}
		}
		p.Elo = decayElo(p.Elo, date, eff.Elo)
	}

	bracket := sortedBracket(games.bracket())

	for _, round := range games.Rounds {
		for _, m := range round {
			if m.IsBye() || !m.Completed() {
				continue
			}
			b.applyTeamResult(rosters, m.Home, m.Away, *m.HomeScore, *m.AwayScore, eff.Elo.KLeague)
		}
	}
	for _, m := range bracket {
		if m.Completed() {
			b.applyTeamResult(rosters, *m.Home, *m.Away, *m.HomeScore, *m.AwayScore, eff.Elo.KCup)
		}
	}

	rows := schedule.Standings(names, games.Rounds)
	leagueDone := len(games.Rounds) > 0 && schedule.AllRoundsComplete(games.Rounds)
	matchPoints := make(map[string]int, len(rows))
	position := make(map[string]int, len(rows))
	gfTeam := make(map[string]int, len(rows))
	gaTeam := make(map[string]int, len(rows))
	for i, row := range rows {
		matchPoints[row.Team] = row.Points
		position[row.Team] = i + 1
		gfTeam[row.Team] = row.GoalsFor
		gaTeam[row.Team] = row.GoalsAgainst
	}
	for _, m := range bracket {
		if !m.Completed() {
			continue
		}
		gfTeam[*m.Home] += *m.HomeScore
		gaTeam[*m.Home] += *m.AwayScore
		gfTeam[*m.Away] += *m.AwayScore
		gaTeam[*m.Away] += *m.HomeScore
	}

	koWins := schedule.KnockoutWins(bracket)
	cupWinner, cupDecided := schedule.CupWinner(bracket)

	for _, team := range names {
		for _, name := range rosters[team] {
			p := b.year.Entry(name)
			teamCopy := team
			d := &rankings.SessionDetail{
				Team:             &teamCopy,
				AppearancePoints: appearancePoints,
				MatchPoints:      matchPoints[team],
				KnockoutPoints:   knockoutWinPoints * koWins[team],
			}
			if leagueDone {
				switch position[team] {
				case 1:
					d.BonusPoints = winnerBonus
					d.LeagueWinner = true
					p.LeagueWins++
				case 2:
					d.BonusPoints = runnerUpBonus
				}
			}
			if pos := position[team]; pos > 0 {
				v := pos
				d.LeaguePosition = &v
			}
			if cupDecided && cupWinner == team {
				d.CupWinner = true
				p.CupWins++
			}
			if label, ok := schedule.FurthestRound(bracket, team); ok {
				v := label
				d.CupProgress = &v
			}
			d.TotalPoints = d.AppearancePoints + d.MatchPoints + d.BonusPoints + d.KnockoutPoints

			p.Points += d.TotalPoints
			p.Appearances++
			b.goalsFor[name] += gfTeam[team]
			b.goalsAgainst[name] += gaTeam[team]
			p.GoalsForPerSession = float64(b.goalsFor[name]) / float64(p.Appearances)
			p.GoalsAgainstPerSession = float64(b.goalsAgainst[name]) / float64(p.Appearances)
			p.RankingDetail[date] = d
		}
	}

	return participants
}

// rescore recomputes the weighted points, the normalized attacking and
// control scales, and the rank ladder as of one session date. Every player
// seen so far gets a detail entry for the date, participant or not.
func (b *yearBuilder) rescore(date string, gamesThreshold int) {
	maxApp := 0
	for _, p := range b.year.Players {
		if p.Appearances > maxApp {
			maxApp = p.Appearances
		}
	}
	if maxApp == 0 {
		return
	}
	for _, p := range b.year.Players {
		weight := math.Pow(float64(p.Appearances)/float64(maxApp), rankingGamma)
		p.RankingPoints = float64(p.Points) * weight
	}

	b.rescoreScales(gamesThreshold)

	prevRank := make(map[string]int, len(b.year.Players))
	for name, p := range b.year.Players {
		prevRank[name] = p.Rank
	}
	ordered := b.year.AssignRanks()
	for _, name := range ordered {
		p := b.year.Players[name]
		d := p.RankingDetail[date]
		if d == nil {
			d = &rankings.SessionDetail{}
			p.RankingDetail[date] = d
		}
		d.Rank = p.Rank
		d.TotalPlayers = len(ordered)
		d.EloRating = p.Elo.Rating
		d.EloGames = p.Elo.GamesPlayed
		d.AttackingRating = p.AttackingRating
		d.ControlRating = p.ControlRating

		pr := prevRank[name]
		p.PreviousRank = pr
		p.IsNew = pr == 0
		if pr > 0 {
			p.RankMovement = pr - p.Rank
		} else {
			p.RankMovement = 0
		}
	}
}

// rescoreScales maps per-session goal averages onto [0,1] attacking and
// control scales. Established players span the scale; provisional players
// are pulled toward an anchor just under the weakest established value.
func (b *yearBuilder) rescoreScales(gamesThreshold int) {
	var estGF, estGA []float64
	for _, p := range b.year.Players {
		if p.Elo.GamesPlayed >= gamesThreshold {
			estGF = append(estGF, p.GoalsForPerSession)
			estGA = append(estGA, p.GoalsAgainstPerSession)
		}
	}

	minGF, maxGF := bounds(estGF)
	minGA, maxGA := bounds(estGA)

	normAtk := func(v float64) float64 {
		if maxGF <= minGF {
			return provisionalScaleAnchor
		}
		return clamp01((v - minGF) / (maxGF - minGF))
	}
	normCtl := func(v float64) float64 {
		if maxGA <= minGA {
			return provisionalScaleAnchor
		}
		return clamp01((maxGA - v) / (maxGA - minGA))
	}

	var estAtk, estCtl []float64
	for _, v := range estGF {
		estAtk = append(estAtk, normAtk(v))
	}
	for _, v := range estGA {
		estCtl = append(estCtl, normCtl(v))
	}
	atkAnchor := elo.ProvisionalAnchor(estAtk, provisionalScaleAnchor)
	ctlAnchor := elo.ProvisionalAnchor(estCtl, provisionalScaleAnchor)

	for _, p := range b.year.Players {
		atk := normAtk(p.GoalsForPerSession)
		ctl := normCtl(p.GoalsAgainstPerSession)
		if p.Elo.GamesPlayed < gamesThreshold {
			atk = elo.Effective(atk, p.Elo.GamesPlayed, gamesThreshold, atkAnchor)
			ctl = elo.Effective(ctl, p.Elo.GamesPlayed, gamesThreshold, ctlAnchor)
		}
		p.AttackingRating = atk
		p.ControlRating = ctl
	}
}

// applyTeamResult runs one rated match: team averages, expected score, the
// margin-scaled K, and a zero-sum delta applied to every member.
func (b *yearBuilder) applyTeamResult(rosters map[string][]string, home, away string, hs, as int, k float64) {
	homeRoster, awayRoster := rosters[home], rosters[away]
	if len(homeRoster) == 0 || len(awayRoster) == 0 {
		return
	}

	expected := elo.Expected(b.teamAverage(homeRoster), b.teamAverage(awayRoster))
	actual := 0.5
	switch {
	case hs > as:
		actual = 1.0
	case hs < as:
		actual = 0.0
	}
	delta := k * elo.MarginMultiplier(hs-as) * (actual - expected)

	for _, name := range homeRoster {
		p := b.year.Entry(name)
		p.Elo.Rating += delta
		p.Elo.GamesPlayed++
	}
	for _, name := range awayRoster {
		p := b.year.Entry(name)
		p.Elo.Rating -= delta
		p.Elo.GamesPlayed++
	}
}

func (b *yearBuilder) teamAverage(roster []string) float64 {
	total := 0.0
	for _, name := range roster {
		total += b.year.Entry(name).Elo.Rating
	}
	return total / float64(len(roster))
}

// decayElo contracts a rating toward the baseline for the time elapsed
// since the last rated session.
func decayElo(state rankings.EloState, date string, cfg settings.Elo) rankings.EloState {
	if state.LastDecayAt != "" && state.LastDecayAt != date {
		from, errFrom := time.Parse(sessionDateLayout, state.LastDecayAt)
		to, errTo := time.Parse(sessionDateLayout, date)
		if errFrom == nil && errTo == nil {
			state.Rating = elo.Decay(state.Rating, cfg.Baseline, cfg.DecayRatePerWeek, elo.WeeksBetween(from, to))
		}
	}
	state.LastDecayAt = date
	return state
}

func sortedBracket(bracket []match.BracketMatch) []match.BracketMatch {
	out := append([]match.BracketMatch(nil), bracket...)
	sort.SliceStable(out, func(i, j int) bool {
		if bracketRoundRank[out[i].Round] != bracketRoundRank[out[j].Round] {
			return bracketRoundRank[out[i].Round] < bracketRoundRank[out[j].Round]
		}
		return out[i].Match < out[j].Match
	})
	return out
}

func bounds(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
