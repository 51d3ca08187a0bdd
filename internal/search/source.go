// Package search holds the pieces shared by every folding optimizer: the
// random source, seeding, per-step statistics and the parallel fan-out used to
// evaluate candidate walks.
package search

import "math/rand"

// Source is the randomness an optimizer consumes. *rand.Rand satisfies it.
// A Source is not safe for concurrent use; use Derive to hand a stream to a
// goroutine.
type Source interface {
	Intn(n int) int
	Int63() int64
	Float64() float64
}

// DefaultSeed replaces a zero seed so the zero value stays reproducible.
const DefaultSeed int64 = 1

// NewSource returns a deterministic generator for seed.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = DefaultSeed
	}
	return rand.New(rand.NewSource(seed))
}

// DeriveSeed mixes a parent seed and a stream id with the SplitMix64 finalizer.
func DeriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// Derive draws one value from src and returns an independent stream for it.
// Call it on the owning goroutine before fanning out.
func Derive(src Source, stream uint64) *rand.Rand {
	return rand.New(rand.NewSource(DeriveSeed(src.Int63(), stream)))
}
