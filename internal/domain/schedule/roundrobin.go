// Package schedule builds round-robin rounds, league standings, and the
// knockout bracket for a session.
package schedule

import (
	"errors"
	"fmt"

	"github.com/leagr/leagr/internal/domain/match"
)

var ErrTooFewTeams = errors.New("need at least two teams")

// RoundRobin produces the canonical circle-method schedule. With an odd
// team count a bye placeholder is inserted, so each round carries one bye
// match. k teams yield k-1 rounds (k rounds with the bye).
func RoundRobin(teams []string) ([][]match.Match, error) {
	if len(teams) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewTeams, len(teams))
	}

	ring := append([]string(nil), teams...)
	if len(ring)%2 == 1 {
		ring = append(ring, "")
	}

	n := len(ring)
	rounds := make([][]match.Match, 0, n-1)
	for r := 0; r < n-1; r++ {
		round := make([]match.Match, 0, n/2)
		for i := 0; i < n/2; i++ {
			home := ring[i]
			away := ring[n-1-i]
			switch {
			case home == "":
				round = append(round, match.Match{Bye: away})
			case away == "":
				round = append(round, match.Match{Bye: home})
			default:
				round = append(round, match.Match{Home: home, Away: away})
			}
		}
		rounds = append(rounds, round)

		// Rotate all positions but the first.
		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}

	return rounds, nil
}
