package lattice

import "fmt"

// Benchmark is a standard HP test chain with its best known 2D contact score.
type Benchmark struct {
	Name      string
	Notation  string
	BestKnown int
}

var benchmarks = []Benchmark{
	{Name: "S1-20", Notation: "(HP)2PH2PHP2HPH2P2HPH", BestKnown: 9},
	{Name: "S2-24", Notation: "H2(P2H)7H", BestKnown: 9},
	{Name: "S3-25", Notation: "P2HP2(H2P4)3H2", BestKnown: 8},
	{Name: "S4-36", Notation: "P3H2P2H2P5H7P2H2P4H2P2HP2", BestKnown: 14},
	{Name: "S5-48", Notation: "P2H(P2H2)2P5H10P6(H2P2)2HP2H5", BestKnown: 23},
	{Name: "S6-51", Notation: "H2(PH)3PH4PH(P3H)2P4H(P3H)2PHPH4(HP)3H2", BestKnown: 21},
	{Name: "S7-60", Notation: "P2H3PH8P3H10PHP3H12P4H6PH2PHP", BestKnown: 36},
	{Name: "S8-64", Notation: "H12(PH)2(P2H2)2P2HP2H2PPH2P2HP2(H2P2)2(HP)2H12", BestKnown: 42},
	{Name: "S9-85", Notation: "H4P4H12P6(H12P3)3HP2(H2P2)2HPH", BestKnown: 53},
	{Name: "S10-100a", Notation: "P3H2P2H4P2H3(PH2)2PH4P8H6P2H6P9HPH2PH11P2H3PH2PHP2HPH3P6H3", BestKnown: 50},
	{Name: "S11-100b", Notation: "P6HPH2P5H3PH5PH2P4H2P2H2PH5PH10PH2PH7P11H7P2HPH3P6HPH2", BestKnown: 48},
}

// Benchmarks returns the standard benchmark chains.
func Benchmarks() []Benchmark {
	return append([]Benchmark(nil), benchmarks...)
}

// BenchmarkByName looks up a benchmark chain.
func BenchmarkByName(name string) (Benchmark, bool) {
	for _, b := range benchmarks {
		if b.Name == name {
			return b, true
		}
	}
	return Benchmark{}, false
}

// Sequence decodes the benchmark notation.
func (b Benchmark) Sequence() (Sequence, error) {
	seq, err := ParseSequence(b.Notation)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", b.Name, err)
	}
	return seq, nil
}
