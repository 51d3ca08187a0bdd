package lattice

import "math"

// Value is the ranking fitness: round((score - compactness/3) * 10), where
// compactness is the maximum pairwise Euclidean distance between residues.
func Value(score, spreadSquared int) int {
	compactness := math.Sqrt(float64(spreadSquared))
	return int(math.Round((float64(score) - compactness/3) * 10))
}

// FitnessKey identifies a candidate for deduplication. Both parts are exact
// integers so near-equal fitness values never alias.
type FitnessKey struct {
	Score         int
	SpreadSquared int
}

// ScoredWalk is a valid walk with its ranking data attached.
type ScoredWalk struct {
	Walk
	SpreadSquared int
	Value         int
}

// Assess computes the compactness and value of a valid walk.
func Assess(w Walk) ScoredWalk {
	spread := SpreadSquared(w.Positions)
	return ScoredWalk{Walk: w, SpreadSquared: spread, Value: Value(w.Score, spread)}
}

func (s ScoredWalk) Key() FitnessKey {
	return FitnessKey{Score: s.Score, SpreadSquared: s.SpreadSquared}
}

// Compactness is the maximum pairwise Euclidean distance.
func (s ScoredWalk) Compactness() float64 {
	return math.Sqrt(float64(s.SpreadSquared))
}

// Better orders candidates by value, then score, then tighter spread.
func Better(a, b ScoredWalk) bool {
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SpreadSquared < b.SpreadSquared
}
