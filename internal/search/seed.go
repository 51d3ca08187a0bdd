package search

import (
	"context"
	"errors"
	"fmt"

	"hpfold/internal/lattice"
)

// DefaultSeedAttempts bounds RandomWalk when the caller passes no budget.
const DefaultSeedAttempts = 200000

var ErrUnsatisfiableSeed = errors.New("no valid random walk within attempt budget")

// RandomTurns fills a turn list of the right length for seq with uniform draws
// from the dimension's alphabet.
func RandomTurns(seq lattice.Sequence, dim lattice.Dimension, src Source) []lattice.Turn {
	alphabet := dim.Turns()
	turns := make([]lattice.Turn, len(seq)-2)
	for i := range turns {
		turns[i] = alphabet[src.Intn(len(alphabet))]
	}
	return turns
}

// RandomWalk resamples full turn lists until one is valid. It returns the walk
// and the number of evaluations spent, or ErrUnsatisfiableSeed once
// maxAttempts draws have all collided.
func RandomWalk(ctx context.Context, seq lattice.Sequence, dim lattice.Dimension, src Source, maxAttempts int) (lattice.Walk, int, error) {
	if len(seq) < lattice.MinSequenceLength {
		return lattice.Walk{}, 0, fmt.Errorf("%w: length %d", lattice.ErrInvalidSequence, len(seq))
	}
	if !dim.Valid() {
		return lattice.Walk{}, 0, fmt.Errorf("unsupported dimension %d", int(dim))
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultSeedAttempts
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return lattice.Walk{}, attempt - 1, err
			}
		}
		w := lattice.Evaluate(seq, RandomTurns(seq, dim, src), dim)
		if w.Valid {
			return w, attempt, nil
		}
	}
	return lattice.Walk{}, maxAttempts, fmt.Errorf("%w: %d attempts for length %d", ErrUnsatisfiableSeed, maxAttempts, len(seq))
}
