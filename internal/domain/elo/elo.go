// Package elo implements the rating arithmetic used by the rankings
// engine: expected scores, margin-of-victory multipliers, weekly decay
// toward the baseline, and the provisional anchor pull for new players.
package elo

import (
	"math"
	"time"
)

// MarginMultiplier scales K by the absolute goal difference of a match.
func MarginMultiplier(goalDifference int) float64 {
	if goalDifference < 0 {
		goalDifference = -goalDifference
	}
	switch {
	case goalDifference <= 1:
		return 1.0
	case goalDifference == 2:
		return 1.15
	case goalDifference == 3:
		return 1.25
	default:
		return 1.30
	}
}

// Expected returns the probability of the team beating the opponent under
// the logistic ELO model.
func Expected(teamAvg, opponentAvg float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponentAvg-teamAvg)/400.0))
}

// Update moves a rating by K x (actual - expected). Actual is 1 for a win,
// 0.5 for a draw, 0 for a loss.
func Update(rating, k, actual, expected float64) float64 {
	return rating + k*(actual-expected)
}

// Decay contracts a rating toward the baseline by ratePerWeek for the given
// number of weeks. Fractional weeks are allowed. The result never crosses
// the baseline.
func Decay(rating, baseline, ratePerWeek, weeks float64) float64 {
	if weeks <= 0 || ratePerWeek <= 0 {
		return rating
	}
	return baseline + (rating-baseline)*math.Pow(1.0-ratePerWeek, weeks)
}

// WeeksBetween returns the fractional number of weeks from one instant to a
// later one. Negative spans clamp to zero.
func WeeksBetween(from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	return to.Sub(from).Hours() / (24 * 7)
}

// ProvisionalAnchor is the pull target for players below the games
// threshold: just under the weakest established rating. With no established
// pool the baseline is the anchor.
func ProvisionalAnchor(establishedRatings []float64, baseline float64) float64 {
	if len(establishedRatings) == 0 {
		return baseline
	}
	min := establishedRatings[0]
	for _, r := range establishedRatings[1:] {
		if r < min {
			min = r
		}
	}
	return 0.99 * min
}

// Effective resolves a player's effective rating. Established players use
// their actual rating; provisional players are pulled toward the anchor in
// proportion to how many games they have played.
func Effective(actual float64, gamesPlayed, gamesThreshold int, anchor float64) float64 {
	if gamesThreshold <= 0 || gamesPlayed >= gamesThreshold {
		return actual
	}
	pull := float64(gamesPlayed) / float64(gamesThreshold)
	return anchor + (actual-anchor)*pull
}
