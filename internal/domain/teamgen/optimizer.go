package teamgen

import (
	"math/rand"
	"sort"
)

// draftPool holds the immutable inputs of one generation run: the sorted
// seeds, their pot assignment, the pair history, and the pool-wide ELO
// range the normalizations are anchored on.
type draftPool struct {
	seeds     []PlayerSeed
	cfg       Config
	pairs     *PairIndex
	potOf     []int
	potBounds [][2]int
	poolRange float64
	hardDelta float64
	pairBound float64
}

type candidate struct {
	assignment [][]int
	score      float64
}

func newPool(sorted []PlayerSeed, cfg Config, pairs *PairIndex) *draftPool {
	p := &draftPool{
		seeds: sorted,
		cfg:   cfg,
		pairs: pairs,
		potOf: make([]int, len(sorted)),
	}

	potSize := 2 * cfg.Teams
	for start := 0; start < len(sorted); start += potSize {
		end := start + potSize
		if end > len(sorted) {
			end = len(sorted)
		}
		pot := len(p.potBounds)
		for i := start; i < end; i++ {
			p.potOf[i] = pot
		}
		p.potBounds = append(p.potBounds, [2]int{start, end})
	}

	minElo, maxElo := sorted[0].Elo, sorted[0].Elo
	for _, s := range sorted[1:] {
		if s.Elo < minElo {
			minElo = s.Elo
		}
		if s.Elo > maxElo {
			maxElo = s.Elo
		}
	}
	p.poolRange = maxElo - minElo

	p.hardDelta = hardEloDeltaFrac * p.poolRange
	if p.hardDelta < hardEloDeltaMin {
		p.hardDelta = hardEloDeltaMin
	}

	totalPairs := 0
	for _, size := range cfg.TeamSizes {
		totalPairs += size * (size - 1) / 2
	}
	// Each surviving pair contributes at most hardPairLimit-1 repeats + 1.
	p.pairBound = float64(hardPairLimit * totalPairs)

	return p
}

// draw produces one candidate: shuffle each pot, snake-assign across teams
// honoring size caps, then score. Constrained candidates fail with
// errCandidateConstrained.
func (p *draftPool) draw(rng *rand.Rand) (*candidate, error) {
	assignment := make([][]int, p.cfg.Teams)
	for t := range assignment {
		assignment[t] = make([]int, 0, p.cfg.TeamSizes[t])
	}

	forward := true
	for _, bounds := range p.potBounds {
		pot := make([]int, 0, bounds[1]-bounds[0])
		for i := bounds[0]; i < bounds[1]; i++ {
			pot = append(pot, i)
		}
		rng.Shuffle(len(pot), func(i, j int) {
			pot[i], pot[j] = pot[j], pot[i]
		})

		order := teamOrder(p.cfg.Teams, forward)
		cursor := 0
		for _, idx := range pot {
			placed := false
			for probe := 0; probe < p.cfg.Teams; probe++ {
				t := order[(cursor+probe)%p.cfg.Teams]
				if len(assignment[t]) < p.cfg.TeamSizes[t] {
					assignment[t] = append(assignment[t], idx)
					cursor = (cursor + probe + 1) % p.cfg.Teams
					placed = true
					break
				}
			}
			if !placed {
				return nil, errCandidateConstrained
			}
		}
		forward = !forward
	}

	if err := p.checkHardConstraints(assignment); err != nil {
		return nil, err
	}

	return &candidate{
		assignment: assignment,
		score:      p.score(assignment),
	}, nil
}

func teamOrder(teams int, forward bool) []int {
	order := make([]int, teams)
	for i := range order {
		if forward {
			order[i] = i
		} else {
			order[i] = teams - 1 - i
		}
	}
	return order
}

func (p *draftPool) checkHardConstraints(assignment [][]int) error {
	// Pairing history: reject any pair at or past the repeat limit.
	if p.pairs != nil {
		for _, members := range assignment {
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					a := p.seeds[members[i]].Name
					b := p.seeds[members[j]].Name
					if p.pairs.Count(a, b) >= hardPairLimit {
						return errCandidateConstrained
					}
				}
			}
		}
	}

	// Team-average ELO delta cap.
	averages := p.teamAverages(assignment)
	minAvg, maxAvg := averages[0], averages[0]
	for _, avg := range averages[1:] {
		if avg < minAvg {
			minAvg = avg
		}
		if avg > maxAvg {
			maxAvg = avg
		}
	}
	if maxAvg-minAvg > p.hardDelta {
		return errCandidateConstrained
	}

	return nil
}

// score is the normalized objective: lower is better, each component in
// [0,1].
func (p *draftPool) score(assignment [][]int) float64 {
	nElo := p.normalizedEloSpread(assignment)
	nSpread := p.normalizedDistribution(assignment)
	nPair := p.normalizedPairScore(assignment)

	return (weightElo*nElo + weightSpread*nSpread + weightPair*nPair) /
		(weightElo + weightSpread + weightPair)
}

func (p *draftPool) teamAverages(assignment [][]int) []float64 {
	averages := make([]float64, len(assignment))
	for t, members := range assignment {
		total := 0.0
		for _, idx := range members {
			total += p.seeds[idx].Elo
		}
		averages[t] = total / float64(len(members))
	}
	return averages
}

func (p *draftPool) normalizedEloSpread(assignment [][]int) float64 {
	averages := p.teamAverages(assignment)
	minAvg, maxAvg := averages[0], averages[0]
	for _, avg := range averages[1:] {
		if avg < minAvg {
			minAvg = avg
		}
		if avg > maxAvg {
			maxAvg = avg
		}
	}
	return normalize(maxAvg-minAvg, 0, p.poolRange)
}

// normalizedDistribution scores how differently the teams are shaped: a
// weighted blend of each team's median, best, and worst ELO, compared
// across teams.
func (p *draftPool) normalizedDistribution(assignment [][]int) float64 {
	blends := make([]float64, len(assignment))
	for t, members := range assignment {
		elos := make([]float64, len(members))
		for i, idx := range members {
			elos[i] = p.seeds[idx].Elo
		}
		sort.Float64s(elos)

		median := elos[len(elos)/2]
		if len(elos)%2 == 0 {
			median = (elos[len(elos)/2-1] + elos[len(elos)/2]) / 2
		}
		blends[t] = 1.0*median + 0.6*elos[len(elos)-1] + 0.4*elos[0]
	}

	minBlend, maxBlend := blends[0], blends[0]
	for _, b := range blends[1:] {
		if b < minBlend {
			minBlend = b
		}
		if b > maxBlend {
			maxBlend = b
		}
	}
	return normalize(maxBlend-minBlend, 0.5*p.poolRange, 1.5*p.poolRange)
}

func (p *draftPool) normalizedPairScore(assignment [][]int) float64 {
	if p.pairs == nil || p.pairBound == 0 {
		return 0
	}
	total := 0.0
	for _, members := range assignment {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a := p.seeds[members[i]].Name
				b := p.seeds[members[j]].Name
				total += float64(p.pairs.Count(a, b) + 1)
			}
		}
	}
	return normalize(total, 0, p.pairBound)
}

func normalize(value, low, high float64) float64 {
	if high <= low {
		return 0
	}
	out := (value - low) / (high - low)
	if out < 0 {
		return 0
	}
	if out > 1 {
		return 1
	}
	return out
}
