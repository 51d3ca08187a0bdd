// Package anneal is a single-trajectory Metropolis search over turn lists.
//
// Proposals are judged against the walk the chain currently sits on, or
// against the best walk found so far when Config.CompareBest is set.
package anneal

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"hpfold/internal/lattice"
	"hpfold/internal/search"
)

const (
	DefaultTemperature   = 10.0
	DefaultMutations     = 5
	DefaultStepsPerRound = 1000
)

// Config sizes one annealing run. Rounds only matters to cooling schedules,
// which spread their range over Rounds*StepsPerRound moves.
type Config struct {
	Dim           lattice.Dimension
	Mutations     int
	StepsPerRound int
	Rounds        int
	Schedule      Schedule
	SeedAttempts  int
	// CompareBest measures proposals against the best walk instead of the
	// current one.
	CompareBest bool
	Logger      *slog.Logger
}

type Annealer struct {
	cfg     Config
	seq     lattice.Sequence
	src     search.Source
	log     *slog.Logger
	current lattice.ScoredWalk
	best    lattice.ScoredWalk
	iter    int
	seeded  bool
}

var _ search.Optimizer = (*Annealer)(nil)

func New(seq lattice.Sequence, src search.Source, cfg Config) (*Annealer, error) {
	if len(seq) < lattice.MinSequenceLength {
		return nil, fmt.Errorf("%w: length %d", lattice.ErrInvalidSequence, len(seq))
	}
	if src == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if !cfg.Dim.Valid() {
		return nil, fmt.Errorf("dimension must be 2 or 3, got %d", int(cfg.Dim))
	}
	if cfg.Mutations < 0 || cfg.StepsPerRound < 0 || cfg.Rounds < 0 {
		return nil, fmt.Errorf("mutations, steps per round and rounds must be >= 0")
	}
	if cfg.Mutations == 0 {
		cfg.Mutations = DefaultMutations
	}
	if cfg.StepsPerRound == 0 {
		cfg.StepsPerRound = DefaultStepsPerRound
	}
	if cfg.Rounds == 0 {
		cfg.Rounds = 1
	}
	if cfg.Schedule == nil {
		cfg.Schedule = ConstantSchedule{T: DefaultTemperature}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Annealer{cfg: cfg, seq: seq, src: src, log: log.With("optimizer", "anneal")}, nil
}

func (a *Annealer) Name() string { return "anneal" }

func (a *Annealer) Seed(ctx context.Context) error {
	w, attempts, err := search.RandomWalk(ctx, a.seq, a.cfg.Dim, a.src, a.cfg.SeedAttempts)
	if err != nil {
		return err
	}
	a.current = lattice.Assess(w)
	a.best = a.current
	a.iter = 0
	a.seeded = true
	a.log.Debug("anneal seeded", "attempts", attempts, "score", a.current.Score)
	return nil
}

func (a *Annealer) Best() lattice.ScoredWalk { return a.best }

// Current is the walk the chain is sitting on.
func (a *Annealer) Current() lattice.ScoredWalk { return a.current }

func (a *Annealer) Population() []lattice.ScoredWalk {
	return []lattice.ScoredWalk{a.current}
}

// Temperature is the temperature the next move will use.
func (a *Annealer) Temperature() float64 {
	return a.cfg.Schedule.Temperature(a.iter, a.cfg.Rounds*a.cfg.StepsPerRound)
}

// Step runs StepsPerRound moves.
func (a *Annealer) Step(ctx context.Context) (search.Stats, error) {
	if !a.seeded {
		return search.Stats{}, fmt.Errorf("anneal: seed before stepping")
	}
	var stats search.Stats
	for i := 0; i < a.cfg.StepsPerRound; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		if !a.move() {
			stats.Invalid++
		}
		stats.Evaluations++
	}
	stats.Candidates = stats.Evaluations - stats.Invalid
	stats.Population = 1
	stats.BestScore = a.best.Score
	stats.BestValue = a.best.Value
	return stats, nil
}

// move proposes one mutated walk and applies the Metropolis rule against the
// reference walk. It reports whether the proposal was a valid walk.
func (a *Annealer) move() bool {
	temp := a.Temperature()
	a.iter++
	if len(a.current.Turns) == 0 {
		return true
	}

	turns := append([]lattice.Turn(nil), a.current.Turns...)
	alphabet := a.cfg.Dim.Turns()
	for m := 0; m < a.cfg.Mutations; m++ {
		idx := a.src.Intn(len(turns))
		pick := a.src.Intn(len(alphabet))
		if alphabet[pick] == turns[idx] {
			pick = (pick + 1) % len(alphabet)
		}
		turns[idx] = alphabet[pick]
	}

	w := lattice.Evaluate(a.seq, turns, a.cfg.Dim)
	if !w.Valid {
		return false
	}
	cand := lattice.Assess(w)
	if accept(a.reference(), cand.Value, temp, a.src) {
		a.current = cand
		if cand.Score > a.best.Score || (cand.Score == a.best.Score && cand.Value > a.best.Value) {
			a.best = cand
		}
	}
	return true
}

// reference is the value a proposal has to beat.
func (a *Annealer) reference() int {
	if a.cfg.CompareBest {
		return a.best.Value
	}
	return a.current.Value
}

func accept(current, candidate int, temp float64, src search.Source) bool {
	if candidate > current {
		return true
	}
	if temp <= 0 {
		return false
	}
	return src.Float64() < math.Exp(float64(candidate-current)/temp)
}
