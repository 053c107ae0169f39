package schedule

import (
	"fmt"
	"sort"

	"github.com/leagr/leagr/internal/domain/match"
)

// roundOrder maps a bracket round label to its position, outermost first.
var roundOrder = map[string]int{
	match.RoundOf32: 0,
	match.RoundOf16: 1,
	match.Quarter:   2,
	match.Semi:      3,
	match.Final:     4,
}

func roundLabel(matchesInRound int) string {
	switch matchesInRound {
	case 16:
		return match.RoundOf32
	case 8:
		return match.RoundOf16
	case 4:
		return match.Quarter
	case 2:
		return match.Semi
	default:
		return match.Final
	}
}

// SeedBracket lays seeds (standings order, best first) onto the next
// power-of-two bracket in the standard order where seed 1 can only meet
// seed 2 in the final. Seeds beyond the field are walkover byes: the slot
// stays nil and the present seed advances on propagation.
func SeedBracket(seeds []string) ([]match.BracketMatch, error) {
	if len(seeds) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewTeams, len(seeds))
	}
	if len(seeds) > 32 {
		return nil, fmt.Errorf("bracket supports up to 32 teams, got %d", len(seeds))
	}

	size := 2
	for size < len(seeds) {
		size *= 2
	}

	positions := seedPositions(size)
	bracket := make([]match.BracketMatch, 0, size-1)

	firstRound := roundLabel(size / 2)
	for i := 0; i < size/2; i++ {
		m := match.BracketMatch{Round: firstRound, Match: i}
		if idx := positions[2*i] - 1; idx < len(seeds) {
			name := seeds[idx]
			m.Home = &name
		}
		if idx := positions[2*i+1] - 1; idx < len(seeds) {
			name := seeds[idx]
			m.Away = &name
		}
		bracket = append(bracket, m)
	}

	for matches := size / 4; matches >= 1; matches /= 2 {
		label := roundLabel(matches)
		for i := 0; i < matches; i++ {
			bracket = append(bracket, match.BracketMatch{Round: label, Match: i})
		}
	}

	return Propagate(bracket), nil
}

// seedPositions returns the 1-based seed for each first-round slot in the
// standard bracket order, e.g. size 8 -> [1 8 4 5 2 7 3 6].
func seedPositions(size int) []int {
	positions := []int{1}
	for len(positions) < size {
		grown := make([]int, 0, len(positions)*2)
		mirror := len(positions)*2 + 1
		for _, p := range positions {
			grown = append(grown, p, mirror-p)
		}
		positions = grown
	}
	return positions
}

// Propagate recomputes every downstream slot from scratch: completed
// matches advance their winner, first-round walkovers advance the present
// seed, and draws or incomplete matches leave the downstream slot nil.
// Called on every bracket write so corrections flow forward.
func Propagate(bracket []match.BracketMatch) []match.BracketMatch {
	out := append([]match.BracketMatch(nil), bracket...)
	sort.SliceStable(out, func(i, j int) bool {
		if roundOrder[out[i].Round] != roundOrder[out[j].Round] {
			return roundOrder[out[i].Round] < roundOrder[out[j].Round]
		}
		return out[i].Match < out[j].Match
	})

	rounds := groupRounds(out)
	for r := 0; r+1 < len(rounds); r++ {
		for i := range rounds[r] {
			m := &rounds[r][i]
			downstream := &rounds[r+1][i/2]

			winner, ok := m.Winner()
			if !ok && r == 0 {
				// Structural bye in the first round.
				if m.Home != nil && m.Away == nil {
					winner, ok = *m.Home, true
				} else if m.Home == nil && m.Away != nil {
					winner, ok = *m.Away, true
				}
			}

			var slot *string
			if ok {
				name := winner
				slot = &name
			}
			if i%2 == 0 {
				downstream.Home = slot
			} else {
				downstream.Away = slot
			}
		}
	}

	flat := make([]match.BracketMatch, 0, len(out))
	for _, round := range rounds {
		flat = append(flat, round...)
	}
	return flat
}

// CupWinner reports the final's winner, when decided.
func CupWinner(bracket []match.BracketMatch) (string, bool) {
	for _, m := range bracket {
		if m.Round == match.Final {
			return m.Winner()
		}
	}
	return "", false
}

// KnockoutWins counts decided bracket wins per team. Walkovers carry no
// scores and do not count.
func KnockoutWins(bracket []match.BracketMatch) map[string]int {
	wins := make(map[string]int)
	for _, m := range bracket {
		if winner, ok := m.Winner(); ok {
			wins[winner]++
		}
	}
	return wins
}

// FurthestRound reports how deep a team got in the bracket: the label of
// the last round the team appears in, or "winner" if it won the final.
func FurthestRound(bracket []match.BracketMatch, team string) (string, bool) {
	appeared := false
	best := ""
	for _, m := range bracket {
		inMatch := (m.Home != nil && *m.Home == team) || (m.Away != nil && *m.Away == team)
		if !inMatch {
			continue
		}
		appeared = true
		if best == "" || roundOrder[m.Round] > roundOrder[best] {
			best = m.Round
		}
		if m.Round == match.Final {
			if winner, ok := m.Winner(); ok && winner == team {
				return "winner", true
			}
		}
	}
	return best, appeared
}

func groupRounds(sorted []match.BracketMatch) [][]match.BracketMatch {
	var rounds [][]match.BracketMatch
	for _, m := range sorted {
		if len(rounds) == 0 || rounds[len(rounds)-1][0].Round != m.Round {
			rounds = append(rounds, []match.BracketMatch{m})
			continue
		}
		last := len(rounds) - 1
		rounds[last] = append(rounds[last], m)
	}
	return rounds
}
