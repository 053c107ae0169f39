package teamgen

import (
	"sort"

	"github.com/leagr/leagr/internal/domain/elo"
	"github.com/leagr/leagr/internal/domain/settings"
)

// PlayerRating is the raw rankings snapshot for one registered player.
// Zero-value fields are fine for players with no history.
type PlayerRating struct {
	Name          string
	Elo           float64
	GamesPlayed   int
	RankingPoints float64
	Appearances   int
	Attacking     float64
	Control       float64
}

// PlayerSeed carries the effective ratings the draft operates on.
type PlayerSeed struct {
	Name          string
	Elo           float64
	RankingPoints float64
	Appearances   int
	Attacking     float64
	Control       float64
	Provisional   bool
}

// provisionalScaleAnchor is the anchor for the normalized [0,1] attacking
// and control scales when no established players exist.
const provisionalScaleAnchor = 0.5

// EffectiveSeeds resolves effective ratings for the pool: established
// players keep their actual values, provisional players are pulled toward
// an anchor just under the weakest established player. Players absent from
// the snapshot enter at the baseline.
func EffectiveSeeds(ratings []PlayerRating, eloCfg settings.Elo) []PlayerSeed {
	var establishedElo, establishedAtk, establishedCtl []float64
	for _, r := range ratings {
		if r.GamesPlayed >= eloCfg.GamesThreshold {
			establishedElo = append(establishedElo, r.Elo)
			establishedAtk = append(establishedAtk, r.Attacking)
			establishedCtl = append(establishedCtl, r.Control)
		}
	}

	eloAnchor := elo.ProvisionalAnchor(establishedElo, eloCfg.Baseline)
	atkAnchor := elo.ProvisionalAnchor(establishedAtk, provisionalScaleAnchor)
	ctlAnchor := elo.ProvisionalAnchor(establishedCtl, provisionalScaleAnchor)

	seeds := make([]PlayerSeed, 0, len(ratings))
	for _, r := range ratings {
		actual := r.Elo
		if actual == 0 {
			actual = eloCfg.Baseline
		}
		provisional := r.GamesPlayed < eloCfg.GamesThreshold
		seed := PlayerSeed{
			Name:          r.Name,
			Elo:           actual,
			RankingPoints: r.RankingPoints,
			Appearances:   r.Appearances,
			Attacking:     r.Attacking,
			Control:       r.Control,
			Provisional:   provisional,
		}
		if provisional {
			seed.Elo = elo.Effective(actual, r.GamesPlayed, eloCfg.GamesThreshold, eloAnchor)
			seed.Attacking = elo.Effective(r.Attacking, r.GamesPlayed, eloCfg.GamesThreshold, atkAnchor)
			seed.Control = elo.Effective(r.Control, r.GamesPlayed, eloCfg.GamesThreshold, ctlAnchor)
		}
		seeds = append(seeds, seed)
	}

	return seeds
}

// sortSeeds orders the pool for pot construction: effective ELO descending,
// ranking points, appearances, then name as the deterministic tiebreak.
func sortSeeds(seeds []PlayerSeed) {
	sort.SliceStable(seeds, func(i, j int) bool {
		if seeds[i].Elo != seeds[j].Elo {
			return seeds[i].Elo > seeds[j].Elo
		}
		if seeds[i].RankingPoints != seeds[j].RankingPoints {
			return seeds[i].RankingPoints > seeds[j].RankingPoints
		}
		if seeds[i].Appearances != seeds[j].Appearances {
			return seeds[i].Appearances > seeds[j].Appearances
		}
		return seeds[i].Name < seeds[j].Name
	})
}
