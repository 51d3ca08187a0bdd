// Package beam implements the population-based fold search: a bounded beam of
// valid walks refined by per-position turn expansion and by exhaustive
// re-routing of short chain windows.
package beam

import (
	"context"
	"fmt"
	"log/slog"

	"hpfold/internal/lattice"
	"hpfold/internal/search"
)

const (
	DefaultStepSize = 5
	// MaxStepSize bounds reconstruction windows. Every extra step multiplies
	// the orderings enumerated per window.
	MaxStepSize = 8
	// DefaultStride samples every third beam member for reconstruction.
	DefaultStride = 3
)

type Config struct {
	Width        int
	Dim          lattice.Dimension
	StepSize     int
	Stride       int
	Workers      int
	SeedAttempts int
	Logger       *slog.Logger
}

// Search owns one beam for one sequence. It is not safe for concurrent use;
// parallelism happens inside each step.
type Search struct {
	cfg  Config
	seq  lattice.Sequence
	src  search.Source
	log  *slog.Logger
	beam []lattice.ScoredWalk
	best lattice.ScoredWalk
}

var _ search.Optimizer = (*Search)(nil)

func New(seq lattice.Sequence, src search.Source, cfg Config) (*Search, error) {
	if len(seq) < lattice.MinSequenceLength {
		return nil, fmt.Errorf("%w: length %d", lattice.ErrInvalidSequence, len(seq))
	}
	if src == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if cfg.Width <= 0 {
		return nil, fmt.Errorf("beam width must be > 0")
	}
	if !cfg.Dim.Valid() {
		return nil, fmt.Errorf("dimension must be 2 or 3, got %d", int(cfg.Dim))
	}
	if cfg.StepSize < 0 || cfg.StepSize > MaxStepSize {
		return nil, fmt.Errorf("step size must be in [1, %d], got %d", MaxStepSize, cfg.StepSize)
	}
	if cfg.StepSize == 0 {
		cfg.StepSize = DefaultStepSize
	}
	if cfg.Stride <= 0 {
		cfg.Stride = DefaultStride
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SeedAttempts <= 0 {
		cfg.SeedAttempts = search.DefaultSeedAttempts
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Search{
		cfg: cfg,
		seq: seq,
		src: src,
		log: log.With("optimizer", "beam"),
	}, nil
}

func (s *Search) Name() string { return "beam" }

// Seed replaces the beam with a single random valid walk, which also becomes
// the running best.
func (s *Search) Seed(ctx context.Context) error {
	w, attempts, err := search.RandomWalk(ctx, s.seq, s.cfg.Dim, s.src, s.cfg.SeedAttempts)
	if err != nil {
		return err
	}
	seed := lattice.Assess(w)
	s.beam = []lattice.ScoredWalk{seed}
	s.best = seed
	s.log.Debug("beam seeded", "attempts", attempts, "score", seed.Score)
	return nil
}

// Best returns the best walk seen so far. Its turn and position slices must be
// treated as read-only.
func (s *Search) Best() lattice.ScoredWalk { return s.best }

func (s *Search) BestScore() int { return s.best.Score }

// Population returns a copy of the current beam.
func (s *Search) Population() []lattice.ScoredWalk {
	return append([]lattice.ScoredWalk(nil), s.beam...)
}

// Beam returns the walks currently held in the beam.
func (s *Search) Beam() []lattice.Walk {
	out := make([]lattice.Walk, len(s.beam))
	for i, c := range s.beam {
		out[i] = c.Walk
	}
	return out
}

// ExpandPosition tries every turn at chain position c on every beam member and
// keeps a rank-decayed random subset of the distinct valid results.
func (s *Search) ExpandPosition(ctx context.Context, c int) (search.Stats, error) {
	if len(s.beam) == 0 {
		return search.Stats{}, ErrNotSeeded
	}
	if c < 0 || c >= len(s.seq)-2 {
		return search.Stats{}, fmt.Errorf("position %d out of range [0, %d)", c, len(s.seq)-2)
	}

	alphabet := s.cfg.Dim.Turns()
	members := s.beam
	results, err := search.Collect(ctx, s.cfg.Workers, len(members), func(_ context.Context, i int) (windowResult, error) {
		var res windowResult
		for _, t := range alphabet {
			res.evaluations++
			w := members[i].WithTurn(c, t)
			if !w.Valid {
				res.invalid++
				continue
			}
			res.candidates = append(res.candidates, lattice.Assess(w))
		}
		return res, nil
	})
	if err != nil {
		return search.Stats{}, err
	}

	p, stats := s.merge(results)
	ranked := p.ranked()
	for _, cand := range ranked {
		s.offerBest(cand)
	}
	s.replace(selectStochastic(ranked, s.cfg.Width, s.src), &stats)
	return s.finish(stats), nil
}

// Sweep expands every chain position in order.
func (s *Search) Sweep(ctx context.Context) (search.Stats, error) {
	var total search.Stats
	for c := 0; c < len(s.seq)-2; c++ {
		stats, err := s.ExpandPosition(ctx, c)
		if err != nil {
			return total, err
		}
		total.Add(stats)
	}
	return s.finish(total), nil
}

// LocalReconstruct re-routes every window of StepSize residues on every
// Stride-th beam member and keeps the top Width distinct results.
func (s *Search) LocalReconstruct(ctx context.Context) (search.Stats, error) {
	if len(s.beam) == 0 {
		return search.Stats{}, ErrNotSeeded
	}
	windows := windowCount(len(s.seq), s.cfg.StepSize)
	if windows == 0 {
		return s.finish(search.Stats{}), nil
	}

	var sampled []lattice.Walk
	for i := 0; i < len(s.beam); i += s.cfg.Stride {
		sampled = append(sampled, s.beam[i].Walk)
	}
	results, err := search.Collect(ctx, s.cfg.Workers, len(sampled)*windows, func(_ context.Context, task int) (windowResult, error) {
		return reconstructWindow(sampled[task/windows], 1+task%windows, s.cfg.StepSize), nil
	})
	if err != nil {
		return search.Stats{}, err
	}

	p, stats := s.merge(results)
	top := selectTop(p.ranked(), s.cfg.Width)
	if len(top) > 0 {
		s.offerBest(top[0])
	}
	s.replace(top, &stats)
	return s.finish(stats), nil
}

// Step runs one round: a full sweep followed by one local reconstruction.
func (s *Search) Step(ctx context.Context) (search.Stats, error) {
	stats, err := s.Sweep(ctx)
	if err != nil {
		return stats, err
	}
	local, err := s.LocalReconstruct(ctx)
	if err != nil {
		return stats, err
	}
	stats.Add(local)
	return s.finish(stats), nil
}

// Run seeds the beam and runs rounds rounds. It returns ErrEmptyBeam alongside
// the best walk when every round had to fall back to its prior beam.
func (s *Search) Run(ctx context.Context, rounds int) (lattice.ScoredWalk, error) {
	if rounds <= 0 {
		return lattice.ScoredWalk{}, fmt.Errorf("rounds must be > 0")
	}
	if err := s.Seed(ctx); err != nil {
		return lattice.ScoredWalk{}, err
	}
	fellBack := 0
	for round := 0; round < rounds; round++ {
		stats, err := s.Step(ctx)
		if err != nil {
			return s.best, err
		}
		if stats.FellBack {
			fellBack++
		}
		s.log.Debug("beam round", "round", round, "best_score", s.best.Score, "beam_size", len(s.beam))
	}
	if fellBack == rounds {
		return s.best, fmt.Errorf("%w: %d rounds", ErrEmptyBeam, rounds)
	}
	return s.best, nil
}

func (s *Search) merge(results []windowResult) (*pool, search.Stats) {
	var stats search.Stats
	size := 0
	for _, r := range results {
		size += len(r.candidates)
	}
	p := newPool(size)
	for _, r := range results {
		stats.Evaluations += r.evaluations
		stats.Invalid += r.invalid
		for _, c := range r.candidates {
			p.add(c)
		}
	}
	stats.Candidates = len(p.items)
	return p, stats
}

// replace installs next as the beam, or keeps the prior beam when next is empty.
func (s *Search) replace(next []lattice.ScoredWalk, stats *search.Stats) {
	if len(next) == 0 {
		stats.FellBack = true
		s.log.Warn("no valid candidate survived selection, keeping prior beam", "beam_size", len(s.beam))
		return
	}
	s.beam = next
}

func (s *Search) offerBest(c lattice.ScoredWalk) {
	if c.Score > s.best.Score || (c.Score == s.best.Score && c.Value > s.best.Value) {
		s.best = c
	}
}

func (s *Search) finish(stats search.Stats) search.Stats {
	stats.Population = len(s.beam)
	stats.BestScore = s.best.Score
	stats.BestValue = s.best.Value
	return stats
}
