// Package rankings holds the persisted shape of a yearly rankings document
// and the rank-assignment helpers shared by the rebuild engine.
package rankings

import "sort"

// EloState is the baseline-anchored rating state carried per player.
type EloState struct {
	Rating      float64 `json:"rating"`
	GamesPlayed int     `json:"gamesPlayed"`
	LastDecayAt string  `json:"lastDecayAt,omitempty"`
}

// SessionDetail is the per-date entry in a player's rankingDetail.
type SessionDetail struct {
	Team             *string `json:"team"`
	AppearancePoints int     `json:"appearancePoints"`
	MatchPoints      int     `json:"matchPoints"`
	BonusPoints      int     `json:"bonusPoints"`
	KnockoutPoints   int     `json:"knockoutPoints"`
	TotalPoints      int     `json:"totalPoints"`
	Rank             int     `json:"rank"`
	TotalPlayers     int     `json:"totalPlayers"`
	EloRating        float64 `json:"eloRating"`
	EloGames         int     `json:"eloGames"`
	AttackingRating  float64 `json:"attackingRating"`
	ControlRating    float64 `json:"controlRating"`
	LeagueWinner     bool    `json:"leagueWinner"`
	CupWinner        bool    `json:"cupWinner"`
	LeaguePosition   *int    `json:"leaguePosition,omitempty"`
	CupProgress      *string `json:"cupProgress,omitempty"`
}

// PlayerRanking is the cumulative yearly record for one player.
type PlayerRanking struct {
	Points                 int                       `json:"points"`
	Appearances            int                       `json:"appearances"`
	RankingPoints          float64                   `json:"rankingPoints"`
	LeagueWins             int                       `json:"leagueWins"`
	CupWins                int                       `json:"cupWins"`
	AttackingRating        float64                   `json:"attackingRating"`
	ControlRating          float64                   `json:"controlRating"`
	GoalsForPerSession     float64                   `json:"goalsForPerSession"`
	GoalsAgainstPerSession float64                   `json:"goalsAgainstPerSession"`
	Rank                   int                       `json:"rank"`
	PreviousRank           int                       `json:"previousRank"`
	RankMovement           int                       `json:"rankMovement"`
	IsNew                  bool                      `json:"isNew"`
	Elo                    EloState                  `json:"elo"`
	RankingDetail          map[string]*SessionDetail `json:"rankingDetail"`
}

// Metadata documents the weighting constants a rankings document was built
// with, so readers can interpret rankingPoints.
type Metadata struct {
	Gamma          float64 `json:"gamma"`
	GlobalAverage  float64 `json:"globalAverage"`
	LastCalculated string  `json:"lastCalculated,omitempty"`
}

// Year is the full rankings-YYYY document.
type Year struct {
	Players  map[string]*PlayerRanking `json:"players"`
	Metadata Metadata                  `json:"rankingMetadata"`
}

func NewYear() *Year {
	return &Year{Players: make(map[string]*PlayerRanking)}
}

// Entry returns the ranking record for a name, creating it on first use.
func (y *Year) Entry(name string) *PlayerRanking {
	if y.Players == nil {
		y.Players = make(map[string]*PlayerRanking)
	}
	entry, ok := y.Players[name]
	if !ok {
		entry = &PlayerRanking{RankingDetail: make(map[string]*SessionDetail)}
		y.Players[name] = entry
	}
	return entry
}

// AssignRanks orders every player by ranking points then ELO and writes the
// 1-indexed rank back onto each record. The ordered names are returned.
func (y *Year) AssignRanks() []string {
	names := make([]string, 0, len(y.Players))
	for name := range y.Players {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := y.Players[names[i]], y.Players[names[j]]
		if a.RankingPoints != b.RankingPoints {
			return a.RankingPoints > b.RankingPoints
		}
		if a.Elo.Rating != b.Elo.Rating {
			return a.Elo.Rating > b.Elo.Rating
		}
		return names[i] < names[j]
	})

	for i, name := range names {
		y.Players[name].Rank = i + 1
	}
	return names
}
