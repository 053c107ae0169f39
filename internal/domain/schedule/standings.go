package schedule

import (
	"sort"

	"github.com/leagr/leagr/internal/domain/match"
)

type TableRow struct {
	Team         string `json:"team"`
	Played       int    `json:"played"`
	Won          int    `json:"won"`
	Drawn        int    `json:"drawn"`
	Lost         int    `json:"lost"`
	GoalsFor     int    `json:"goalsFor"`
	GoalsAgainst int    `json:"goalsAgainst"`
	Points       int    `json:"points"`
}

func (r TableRow) GoalDifference() int {
	return r.GoalsFor - r.GoalsAgainst
}

// Standings tabulates completed league matches: 3 points per win, 1 per
// draw. Sorted by points, then goal difference, then goals for; name breaks
// remaining ties so the order is stable.
func Standings(teams []string, rounds [][]match.Match) []TableRow {
	byTeam := make(map[string]*TableRow, len(teams))
	order := make([]string, 0, len(teams))
	for _, team := range teams {
		if _, ok := byTeam[team]; ok {
			continue
		}
		byTeam[team] = &TableRow{Team: team}
		order = append(order, team)
	}

	for _, round := range rounds {
		for _, m := range round {
			if m.IsBye() || !m.Completed() {
				continue
			}
			home, okHome := byTeam[m.Home]
			away, okAway := byTeam[m.Away]
			if !okHome || !okAway {
				continue
			}

			hs, as := *m.HomeScore, *m.AwayScore
			home.Played++
			away.Played++
			home.GoalsFor += hs
			home.GoalsAgainst += as
			away.GoalsFor += as
			away.GoalsAgainst += hs

			switch {
			case hs > as:
				home.Won++
				home.Points += 3
				away.Lost++
			case hs < as:
				away.Won++
				away.Points += 3
				home.Lost++
			default:
				home.Drawn++
				away.Drawn++
				home.Points++
				away.Points++
			}
		}
	}

	rows := make([]TableRow, 0, len(order))
	for _, team := range order {
		rows = append(rows, *byTeam[team])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		if rows[i].GoalDifference() != rows[j].GoalDifference() {
			return rows[i].GoalDifference() > rows[j].GoalDifference()
		}
		if rows[i].GoalsFor != rows[j].GoalsFor {
			return rows[i].GoalsFor > rows[j].GoalsFor
		}
		return rows[i].Team < rows[j].Team
	})

	return rows
}

// AllRoundsComplete reports whether every non-bye league match has both
// scores entered.
func AllRoundsComplete(rounds [][]match.Match) bool {
	for _, round := range rounds {
		for _, m := range round {
			if m.IsBye() {
				continue
			}
			if !m.Completed() {
				return false
			}
		}
	}
	return true
}
