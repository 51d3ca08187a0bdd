package aco

import "hpfold/internal/lattice"

// InitialPheromone is the weight of a (position, turn) pair never updated.
const InitialPheromone = 1.0

type trailKey struct {
	index int
	turn  lattice.Turn
}

// PheromoneTable maps (position index, turn) to a non-negative weight. Entries
// read as InitialPheromone until their first update. Reads may run
// concurrently; Update must not overlap them.
type PheromoneTable struct {
	values map[trailKey]float64
}

func NewPheromoneTable() *PheromoneTable {
	return &PheromoneTable{values: make(map[trailKey]float64)}
}

func (p *PheromoneTable) Get(index int, turn lattice.Turn) float64 {
	if v, ok := p.values[trailKey{index, turn}]; ok {
		return v
	}
	return InitialPheromone
}

// Len is the number of entries that have been updated at least once.
func (p *PheromoneTable) Len() int { return len(p.values) }

// Update evaporates and reinforces every pair used by at least one trail:
// p(i,d) = max(0, p(i,d)*evaporation + sum of scores of trails using (i,d)).
// Pairs no trail used are left as they are.
func (p *PheromoneTable) Update(trails [][]lattice.Turn, scores []int, evaporation float64) {
	deposit := make(map[trailKey]float64)
	for k, trail := range trails {
		for i, turn := range trail {
			deposit[trailKey{i, turn}] += float64(scores[k])
		}
	}
	for key, sum := range deposit {
		next := p.Get(key.index, key.turn)*evaporation + sum
		if next < 0 {
			next = 0
		}
		p.values[key] = next
	}
}
