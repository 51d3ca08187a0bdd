// Package aco samples turn lists from a pheromone-weighted distribution that
// is reinforced by the contact scores of previous ants.
package aco

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"hpfold/internal/lattice"
	"hpfold/internal/search"
)

const (
	DefaultAnts        = 20
	DefaultAlpha       = 1.0
	DefaultBeta        = 1.0
	DefaultGamma       = -2.0
	DefaultEvaporation = 0.9
)

// Config parameterizes the colony. The heuristic factor of a turn is
// exp(-lookahead/Gamma)^Beta, so a negative Gamma favours turns that keep or
// add contacts and a positive Gamma penalises them.
type Config struct {
	Dim          lattice.Dimension
	Ants         int
	Alpha        float64
	Beta         float64
	Gamma        float64
	Evaporation  float64
	Workers      int
	SeedAttempts int
	Logger       *slog.Logger
}

// DefaultConfig returns the colony defaults for dim.
func DefaultConfig(dim lattice.Dimension) Config {
	return Config{
		Dim:         dim,
		Ants:        DefaultAnts,
		Alpha:       DefaultAlpha,
		Beta:        DefaultBeta,
		Gamma:       DefaultGamma,
		Evaporation: DefaultEvaporation,
	}
}

type Colony struct {
	cfg       Config
	seq       lattice.Sequence
	src       search.Source
	log       *slog.Logger
	pheromone *PheromoneTable
	best      lattice.ScoredWalk
	last      []lattice.ScoredWalk
	seeded    bool
}

var _ search.Optimizer = (*Colony)(nil)

func New(seq lattice.Sequence, src search.Source, cfg Config) (*Colony, error) {
	if len(seq) < lattice.MinSequenceLength {
		return nil, fmt.Errorf("%w: length %d", lattice.ErrInvalidSequence, len(seq))
	}
	if src == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if !cfg.Dim.Valid() {
		return nil, fmt.Errorf("dimension must be 2 or 3, got %d", int(cfg.Dim))
	}
	if cfg.Ants <= 0 {
		return nil, fmt.Errorf("ants must be > 0")
	}
	if cfg.Gamma == 0 {
		return nil, fmt.Errorf("gamma must be non-zero")
	}
	if cfg.Evaporation < 0 || cfg.Evaporation > 1 {
		return nil, fmt.Errorf("evaporation must be in [0, 1]")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Colony{
		cfg:       cfg,
		seq:       seq,
		src:       src,
		log:       log.With("optimizer", "aco"),
		pheromone: NewPheromoneTable(),
	}, nil
}

func (c *Colony) Name() string { return "aco" }

func (c *Colony) Seed(ctx context.Context) error {
	w, attempts, err := search.RandomWalk(ctx, c.seq, c.cfg.Dim, c.src, c.cfg.SeedAttempts)
	if err != nil {
		return err
	}
	c.best = lattice.Assess(w)
	c.last = []lattice.ScoredWalk{c.best}
	c.seeded = true
	c.log.Debug("colony seeded", "attempts", attempts, "score", c.best.Score)
	return nil
}

func (c *Colony) Best() lattice.ScoredWalk { return c.best }

// Population returns the valid trails of the last iteration.
func (c *Colony) Population() []lattice.ScoredWalk {
	return append([]lattice.ScoredWalk(nil), c.last...)
}

func (c *Colony) Pheromone() *PheromoneTable { return c.pheromone }

// Step sends out one generation of ants and reinforces the trails they took.
func (c *Colony) Step(ctx context.Context) (search.Stats, error) {
	if !c.seeded {
		return search.Stats{}, fmt.Errorf("aco: seed before stepping")
	}
	var stats search.Stats
	alphabet := c.cfg.Dim.Turns()
	positions := len(c.seq) - 2

	base := c.best.Walk
	lookahead, err := search.Collect(ctx, c.cfg.Workers, positions, func(_ context.Context, i int) ([]int, error) {
		scores := make([]int, len(alphabet))
		for j, t := range alphabet {
			if w := base.WithTurn(i, t); w.Valid {
				scores[j] = w.Score
			}
		}
		return scores, nil
	})
	if err != nil {
		return stats, err
	}
	stats.Evaluations += positions * len(alphabet)

	rngs := make([]*rand.Rand, c.cfg.Ants)
	for a := range rngs {
		rngs[a] = search.Derive(c.src, uint64(a))
	}
	ants, err := search.Collect(ctx, c.cfg.Workers, c.cfg.Ants, func(_ context.Context, a int) (lattice.Walk, error) {
		turns := make([]lattice.Turn, positions)
		weights := make([]float64, len(alphabet))
		for i := range turns {
			for j, t := range alphabet {
				weights[j] = c.weight(c.pheromone.Get(i, t), lookahead[i][j])
			}
			turns[i] = alphabet[roulette(weights, rngs[a])]
		}
		return lattice.Evaluate(c.seq, turns, c.cfg.Dim), nil
	})
	if err != nil {
		return stats, err
	}

	trails := make([][]lattice.Turn, len(ants))
	scores := make([]int, len(ants))
	valid := make([]lattice.ScoredWalk, 0, len(ants))
	for a, w := range ants {
		stats.Evaluations++
		trails[a] = w.Turns
		if !w.Valid {
			stats.Invalid++
			continue
		}
		scores[a] = w.Score
		sw := lattice.Assess(w)
		valid = append(valid, sw)
		if sw.Score > c.best.Score || (sw.Score == c.best.Score && sw.Value > c.best.Value) {
			c.best = sw
		}
	}
	c.pheromone.Update(trails, scores, c.cfg.Evaporation)
	if len(valid) > 0 {
		c.last = valid
	} else {
		stats.FellBack = true
		c.log.Warn("no ant produced a valid walk", "ants", c.cfg.Ants)
	}

	stats.Candidates = len(valid)
	stats.Population = len(c.last)
	stats.BestScore = c.best.Score
	stats.BestValue = c.best.Value
	return stats, nil
}

func (c *Colony) weight(pheromone float64, lookahead int) float64 {
	heuristic := math.Exp(-float64(lookahead) / c.cfg.Gamma)
	return math.Pow(pheromone, c.cfg.Alpha) * math.Pow(heuristic, c.cfg.Beta)
}

// roulette draws an index with probability proportional to its weight, or
// uniformly when the weights do not form a usable distribution.
func roulette(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		return rng.Intn(len(weights))
	}
	r := rng.Float64() * sum
	for j, w := range weights {
		if r < w {
			return j
		}
		r -= w
	}
	return len(weights) - 1
}
