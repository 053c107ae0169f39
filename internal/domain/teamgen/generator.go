// Package teamgen builds balanced session teams: an ELO-aware pot draft
// followed by an iterative optimizer minimizing a normalized multi-objective
// score under hard pairing and ELO-delta constraints.
package teamgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/leagr/leagr/internal/domain/settings"
)

var (
	ErrMissingSettings      = errors.New("team generation settings missing")
	ErrInsufficientPlayers  = errors.New("insufficient players")
	ErrInvalidConfig        = errors.New("invalid team configuration")
	ErrNoValidCandidate     = errors.New("no candidate satisfied the hard constraints")
	errCandidateConstrained = errors.New("candidate violates hard constraints")
)

// Optimizer tuning. Weights follow the balance objective: ELO dominates,
// pairing novelty matters more than intra-team spread.
const (
	DefaultMaxIterations = 5000
	earlyExitIteration   = 2000
	earlyExitScore       = 0.25

	weightElo    = 2.0
	weightSpread = 0.7
	weightPair   = 1.3

	hardPairLimit    = 4
	hardEloDeltaMin  = 60.0
	hardEloDeltaFrac = 0.15
)

// Config selects the team count and per-team sizes; sizes must sum to the
// player count.
type Config struct {
	Teams     int   `json:"teams"`
	TeamSizes []int `json:"teamSizes"`
}

// DrawRecord documents where each player was drawn from and where they
// ended up.
type DrawRecord struct {
	Player    string `json:"player"`
	FromPot   int    `json:"fromPot"`
	ToTeam    string `json:"toTeam"`
	FinalTeam string `json:"finalTeam"`
}

// Result is one generated session assignment.
type Result struct {
	TeamNames  []string     `json:"teamNames"`
	Rosters    [][]string   `json:"rosters"`
	Draw       []DrawRecord `json:"draw,omitempty"`
	Score      float64      `json:"score"`
	Iterations int          `json:"iterations"`
}

// Generator runs the seeded draft and optimization. A zero Workers value
// runs single-threaded; higher values fan the candidate search out on a
// worker pool.
type Generator struct {
	MaxIterations int
	Workers       int
	RecordDraw    bool

	mu  sync.Mutex
	rng *rand.Rand
}

func New(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Generator{
		MaxIterations: DefaultMaxIterations,
		RecordDraw:    true,
		rng:           rng,
	}
}

// Configurations enumerates the balanced {teams, teamSizes} choices allowed
// for a player count under the team-generation settings.
func Configurations(playerCount int, tg settings.TeamGeneration) []Config {
	minTeams := tg.MinTeams
	if minTeams < 2 {
		minTeams = 2
	}
	maxTeams := tg.MaxTeams
	if maxTeams <= 0 || maxTeams > MaxTeams {
		maxTeams = MaxTeams
	}

	var out []Config
	for k := minTeams; k <= maxTeams; k++ {
		if playerCount < k {
			break
		}
		base := playerCount / k
		rem := playerCount % k
		largest := base
		if rem > 0 {
			largest = base + 1
		}
		if tg.MinPlayersPerTeam > 0 && base < tg.MinPlayersPerTeam {
			continue
		}
		if tg.MaxPlayersPerTeam > 0 && largest > tg.MaxPlayersPerTeam {
			continue
		}

		sizes := make([]int, k)
		for i := range sizes {
			sizes[i] = base
			if i < rem {
				sizes[i] = base + 1
			}
		}
		out = append(out, Config{Teams: k, TeamSizes: sizes})
	}

	return out
}

func (c Config) validate(playerCount int) error {
	if c.Teams < 2 {
		return fmt.Errorf("%w: need at least 2 teams, got %d", ErrInvalidConfig, c.Teams)
	}
	if len(c.TeamSizes) != c.Teams {
		return fmt.Errorf("%w: %d sizes for %d teams", ErrInvalidConfig, len(c.TeamSizes), c.Teams)
	}
	total := 0
	for _, size := range c.TeamSizes {
		if size < 1 {
			return fmt.Errorf("%w: team size %d", ErrInvalidConfig, size)
		}
		total += size
	}
	if total != playerCount {
		return fmt.Errorf("%w: sizes sum to %d, have %d players", ErrInvalidConfig, total, playerCount)
	}
	return nil
}

// Generate runs the full draft: sort, pot, snake, optimize, name. The
// context is checked between iterations so long searches cancel promptly.
func (g *Generator) Generate(ctx context.Context, seeds []PlayerSeed, cfg Config, pairs *PairIndex) (Result, error) {
	if len(seeds) < 2*cfg.Teams {
		return Result{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientPlayers, 2*cfg.Teams, len(seeds))
	}
	if err := cfg.validate(len(seeds)); err != nil {
		return Result{}, err
	}

	ordered := append([]PlayerSeed(nil), seeds...)
	sortSeeds(ordered)

	pool := newPool(ordered, cfg, pairs)

	maxIter := g.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	best, iterations, err := g.search(ctx, pool, maxIter)
	if err != nil {
		return Result{}, err
	}
	if best == nil {
		return Result{}, fmt.Errorf("%w: after %d iterations", ErrNoValidCandidate, iterations)
	}

	g.mu.Lock()
	names := teamNames(g.rng, cfg.Teams)
	g.mu.Unlock()

	result := Result{
		TeamNames:  names,
		Rosters:    make([][]string, cfg.Teams),
		Score:      best.score,
		Iterations: iterations,
	}
	for t, members := range best.assignment {
		roster := make([]string, len(members))
		for i, idx := range members {
			roster[i] = pool.seeds[idx].Name
		}
		result.Rosters[t] = roster
	}
	if g.RecordDraw {
		for t, members := range best.assignment {
			for _, idx := range members {
				result.Draw = append(result.Draw, DrawRecord{
					Player:    pool.seeds[idx].Name,
					FromPot:   pool.potOf[idx],
					ToTeam:    names[t],
					FinalTeam: names[t],
				})
			}
		}
		sort.Slice(result.Draw, func(i, j int) bool {
			return result.Draw[i].Player < result.Draw[j].Player
		})
	}

	return result, nil
}

func (g *Generator) search(ctx context.Context, pool *draftPool, maxIter int) (*candidate, int, error) {
	workers := g.Workers
	if workers <= 1 {
		return g.searchSerial(ctx, pool, maxIter)
	}
	return g.searchParallel(ctx, pool, maxIter, workers)
}

func (g *Generator) searchSerial(ctx context.Context, pool *draftPool, maxIter int) (*candidate, int, error) {
	var best *candidate
	for iteration := 1; iteration <= maxIter; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, iteration, err
		}

		g.mu.Lock()
		cand, err := pool.draw(g.rng)
		g.mu.Unlock()
		if err != nil {
			continue
		}

		if best == nil || cand.score < best.score {
			best = cand
		}
		if iteration > earlyExitIteration && best.score <= earlyExitScore {
			return best, iteration, nil
		}
	}
	return best, maxIter, nil
}

func (g *Generator) searchParallel(ctx context.Context, pool *draftPool, maxIter, workers int) (*candidate, int, error) {
	antsPool, err := ants.NewPool(workers)
	if err != nil {
		return g.searchSerial(ctx, pool, maxIter)
	}
	defer antsPool.Release()

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu         sync.Mutex
		best       *candidate
		iterations int
		wg         sync.WaitGroup
	)

	perWorker := (maxIter + workers - 1) / workers
	for w := 0; w < workers; w++ {
		g.mu.Lock()
		seed := g.rng.Int63()
		g.mu.Unlock()

		wg.Add(1)
		task := func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for i := 1; i <= perWorker; i++ {
				if searchCtx.Err() != nil {
					mu.Lock()
					iterations += i - 1
					mu.Unlock()
					return
				}

				cand, drawErr := pool.draw(rng)
				if drawErr != nil {
					continue
				}

				mu.Lock()
				if best == nil || cand.score < best.score {
					best = cand
				}
				done := iterations+i > earlyExitIteration && best.score <= earlyExitScore
				mu.Unlock()
				if done {
					cancel()
					mu.Lock()
					iterations += i
					mu.Unlock()
					return
				}
			}
			mu.Lock()
			iterations += perWorker
			mu.Unlock()
		}
		if submitErr := antsPool.Submit(task); submitErr != nil {
			wg.Done()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, iterations, err
	}
	return best, iterations, nil
}
