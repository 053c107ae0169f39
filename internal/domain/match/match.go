// Package match models a single game between two session teams, including
// the scorer ledger with its reserved keys.
package match

import (
	"errors"
	"fmt"

	"github.com/leagr/leagr/internal/domain/validate"
)

// Reserved scorer keys. Own goals count toward the scoring team's total but
// are capped; unassigned absorbs goals nobody claimed.
const (
	OwnGoalKey    = "__ownGoal__"
	UnassignedKey = "__unassigned__"

	maxOwnGoals = 2
)

var (
	ErrScorerNotOnRoster = errors.New("scorer is not on the team roster")
	ErrScorerOverflow    = errors.New("scorer counts exceed team score")
	ErrOwnGoalCap        = errors.New("own goal count exceeds cap")
	ErrNegativeCount     = errors.New("scorer count cannot go negative")
)

type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

type Match struct {
	Home        string         `json:"home,omitempty"`
	Away        string         `json:"away,omitempty"`
	HomeScore   *int           `json:"homeScore"`
	AwayScore   *int           `json:"awayScore"`
	HomeScorers map[string]int `json:"homeScorers,omitempty"`
	AwayScorers map[string]int `json:"awayScorers,omitempty"`
	Bye         string         `json:"bye,omitempty"`
}

// Round labels for bracket matches, outermost first.
const (
	RoundOf32 = "round-of-32"
	RoundOf16 = "round-of-16"
	Quarter   = "quarter"
	Semi      = "semi"
	Final     = "final"
)

// BracketMatch is a knockout fixture. Home/Away are pointers because slots
// stay null until propagation fills them.
type BracketMatch struct {
	Round       string         `json:"round"`
	Match       int            `json:"match"`
	Home        *string        `json:"home"`
	Away        *string        `json:"away"`
	HomeScore   *int           `json:"homeScore"`
	AwayScore   *int           `json:"awayScore"`
	HomeScorers map[string]int `json:"homeScorers,omitempty"`
	AwayScorers map[string]int `json:"awayScorers,omitempty"`
}

func (m Match) IsBye() bool {
	return m.Bye != ""
}

func (m Match) Completed() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

func (m BracketMatch) Completed() bool {
	return m.Home != nil && m.Away != nil && m.HomeScore != nil && m.AwayScore != nil
}

// Winner reports the winning team of a completed bracket match. Draws and
// incomplete matches yield no winner.
func (m BracketMatch) Winner() (string, bool) {
	if !m.Completed() || *m.HomeScore == *m.AwayScore {
		return "", false
	}
	if *m.HomeScore > *m.AwayScore {
		return *m.Home, true
	}
	return *m.Away, true
}

// SetScore applies the auto-fill rules: entering the first score of a match
// zeroes the opposite side; clearing a score clears both.
func (m Match) SetScore(side Side, score *int) (Match, error) {
	if err := validate.Score(score); err != nil {
		return m, err
	}

	next := m
	if score == nil {
		next.HomeScore = nil
		next.AwayScore = nil
		return next, nil
	}

	bothEmpty := m.HomeScore == nil && m.AwayScore == nil
	zero := 0
	switch side {
	case SideHome:
		next.HomeScore = score
		if bothEmpty {
			next.AwayScore = &zero
		}
	case SideAway:
		next.AwayScore = score
		if bothEmpty {
			next.HomeScore = &zero
		}
	default:
		return m, fmt.Errorf("unknown side %q", side)
	}

	return next, nil
}

// ApplyScorerDelta adjusts one scorer count by ±1 for the given side. The
// key must be a roster member or a reserved key. If neither score was set
// yet, both are initialized so the scorer constraint has a score to check
// against.
func (m Match) ApplyScorerDelta(side Side, key string, delta int, roster []string) (Match, error) {
	if delta != 1 && delta != -1 {
		return m, fmt.Errorf("delta must be +1 or -1, got %d", delta)
	}
	if key != OwnGoalKey && key != UnassignedKey && !containsName(roster, key) {
		return m, fmt.Errorf("%w: %s", ErrScorerNotOnRoster, key)
	}

	next := m
	if next.HomeScore == nil && next.AwayScore == nil {
		zero := 0
		z2 := 0
		next.HomeScore = &zero
		next.AwayScore = &z2
	}

	scorers := cloneScorers(next.scorersFor(side))
	count := scorers[key] + delta
	if count < 0 {
		return m, fmt.Errorf("%w: %s", ErrNegativeCount, key)
	}
	if key == OwnGoalKey && count > maxOwnGoals {
		return m, fmt.Errorf("%w: max %d per team per match", ErrOwnGoalCap, maxOwnGoals)
	}
	if count == 0 {
		delete(scorers, key)
	} else {
		scorers[key] = count
	}

	if side == SideHome {
		next.HomeScorers = scorers
	} else {
		next.AwayScorers = scorers
	}

	if err := next.checkScorerTotals(side); err != nil {
		return m, err
	}

	return next, nil
}

// checkScorerTotals enforces sum(non-own-goal counts) <= team score.
func (m Match) checkScorerTotals(side Side) error {
	scorers := m.scorersFor(side)
	score := m.scoreFor(side)
	if score == nil {
		return nil
	}

	total := 0
	for key, count := range scorers {
		if key == OwnGoalKey {
			continue
		}
		total += count
	}
	if total > *score {
		return fmt.Errorf("%w: %d goals claimed, score is %d", ErrScorerOverflow, total, *score)
	}

	return nil
}

func (m Match) scorersFor(side Side) map[string]int {
	if side == SideHome {
		return m.HomeScorers
	}
	return m.AwayScorers
}

func (m Match) scoreFor(side Side) *int {
	if side == SideHome {
		return m.HomeScore
	}
	return m.AwayScore
}

func cloneScorers(in map[string]int) map[string]int {
	out := make(map[string]int, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func containsName(roster []string, name string) bool {
	for _, n := range roster {
		if n == name {
			return true
		}
	}
	return false
}
