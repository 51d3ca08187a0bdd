package search

import (
	"context"

	"hpfold/internal/lattice"
)

// Stats describes one optimizer step.
type Stats struct {
	Evaluations int
	Invalid     int
	// Candidates is the number of distinct valid candidates ranked.
	Candidates int
	Population int
	FellBack   bool
	BestScore  int
	BestValue  int
}

// Add accumulates evaluation counters from a sub-step.
func (s *Stats) Add(o Stats) {
	s.Evaluations += o.Evaluations
	s.Invalid += o.Invalid
	s.Candidates += o.Candidates
	s.FellBack = s.FellBack || o.FellBack
}

// Optimizer is a folding search bound to one sequence.
type Optimizer interface {
	Name() string
	Seed(ctx context.Context) error
	Step(ctx context.Context) (Stats, error)
	Best() lattice.ScoredWalk
	Population() []lattice.ScoredWalk
}
