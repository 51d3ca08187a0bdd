package beam

import (
	"math"
	"sort"

	"hpfold/internal/lattice"
	"hpfold/internal/search"
)

// pool collects valid candidates, keeping the first walk seen per fitness key.
type pool struct {
	seen  map[lattice.FitnessKey]struct{}
	items []lattice.ScoredWalk
}

func newPool(capacity int) *pool {
	return &pool{
		seen:  make(map[lattice.FitnessKey]struct{}, capacity),
		items: make([]lattice.ScoredWalk, 0, capacity),
	}
}

func (p *pool) add(c lattice.ScoredWalk) bool {
	key := c.Key()
	if _, dup := p.seen[key]; dup {
		return false
	}
	p.seen[key] = struct{}{}
	p.items = append(p.items, c)
	return true
}

func (p *pool) ranked() []lattice.ScoredWalk {
	sort.SliceStable(p.items, func(i, j int) bool {
		return lattice.Better(p.items[i], p.items[j])
	})
	return p.items
}

// acceptance is the probability of keeping the candidate at rank k.
func acceptance(k, width int) float64 {
	x := float64(k)
	w := float64(width)
	return math.Exp(-8 * x * x / (w * w))
}

// selectStochastic walks the ranked list, keeping rank k with probability
// acceptance(k, width), until width candidates are kept.
func selectStochastic(ranked []lattice.ScoredWalk, width int, src search.Source) []lattice.ScoredWalk {
	out := make([]lattice.ScoredWalk, 0, min(width, len(ranked)))
	for k, c := range ranked {
		if len(out) >= width {
			break
		}
		if src.Float64() < acceptance(k, width) {
			out = append(out, c)
		}
	}
	return out
}

// selectTop keeps the width best candidates.
func selectTop(ranked []lattice.ScoredWalk, width int) []lattice.ScoredWalk {
	if len(ranked) > width {
		ranked = ranked[:width]
	}
	return append([]lattice.ScoredWalk(nil), ranked...)
}
