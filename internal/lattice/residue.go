package lattice

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Residue is one monomer of an HP chain.
type Residue uint8

const (
	Hydrophobic Residue = iota + 1
	Polar
)

func (r Residue) String() string {
	switch r {
	case Hydrophobic:
		return "H"
	case Polar:
		return "P"
	default:
		return "?"
	}
}

// Sequence is an ordered residue chain. It is treated as immutable once built.
type Sequence []Residue

var ErrInvalidSequence = errors.New("invalid sequence")

const (
	// MinSequenceLength is the shortest chain that can be placed: the two seed cells.
	MinSequenceLength = 2
	// MaxSequenceLength bounds the decoded chain. Nested repeat counts
	// multiply, so the limit applies to every expansion.
	MaxSequenceLength = 1 << 16
)

func (s Sequence) String() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteString(r.String())
	}
	return b.String()
}

// Hydrophobics returns the number of H residues in the chain.
func (s Sequence) Hydrophobics() int {
	count := 0
	for _, r := range s {
		if r == Hydrophobic {
			count++
		}
	}
	return count
}

// ParseSequence decodes plain and run-length encoded HP notation.
//
// A count after a residue repeats that residue ("H3" is "HHH"); a count after a
// parenthesized group repeats the group ("(HP)2" is "HPHP"). Groups may nest.
// Letters are case-insensitive and whitespace is ignored.
func ParseSequence(input string) (Sequence, error) {
	p := &sequenceParser{src: []rune(input)}
	seq, err := p.parseGroup(0)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrInvalidSequence, p.src[p.pos], p.pos)
	}
	if len(seq) < MinSequenceLength {
		return nil, fmt.Errorf("%w: need at least %d residues, got %d", ErrInvalidSequence, MinSequenceLength, len(seq))
	}
	return seq, nil
}

// MustParseSequence is ParseSequence for literals known to be well formed.
func MustParseSequence(input string) Sequence {
	seq, err := ParseSequence(input)
	if err != nil {
		panic(err)
	}
	return seq
}

type sequenceParser struct {
	src []rune
	pos int
}

func (p *sequenceParser) parseGroup(depth int) (Sequence, error) {
	var out Sequence
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
		case unicode.IsSpace(ch):
			p.pos++
		case ch == 'H' || ch == 'h' || ch == 'P' || ch == 'p':
			residue := Hydrophobic
			if ch == 'P' || ch == 'p' {
				residue = Polar
			}
			p.pos++
			count, err := p.parseCount()
			if err != nil {
				return nil, err
			}
			if err := checkExpansion(len(out), 1, count); err != nil {
				return nil, err
			}
			for i := 0; i < count; i++ {
				out = append(out, residue)
			}
		case ch == '(':
			open := p.pos
			p.pos++
			inner, err := p.parseGroup(depth + 1)
			if err != nil {
				return nil, err
			}
			if p.pos >= len(p.src) || p.src[p.pos] != ')' {
				return nil, fmt.Errorf("%w: unclosed group at offset %d", ErrInvalidSequence, open)
			}
			p.pos++
			count, err := p.parseCount()
			if err != nil {
				return nil, err
			}
			if err := checkExpansion(len(out), len(inner), count); err != nil {
				return nil, err
			}
			for i := 0; i < count; i++ {
				out = append(out, inner...)
			}
		case ch == ')':
			if depth == 0 {
				return nil, fmt.Errorf("%w: unbalanced ')' at offset %d", ErrInvalidSequence, p.pos)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrInvalidSequence, ch, p.pos)
		}
	}
	if depth > 0 {
		return nil, fmt.Errorf("%w: missing ')'", ErrInvalidSequence)
	}
	return out, nil
}

// checkExpansion rejects appending count copies of an n-residue unit to a
// chain of length have when the result would exceed MaxSequenceLength.
func checkExpansion(have, n, count int) error {
	if n == 0 {
		return nil
	}
	if count > (MaxSequenceLength-have)/n {
		return fmt.Errorf("%w: decoded chain longer than %d residues", ErrInvalidSequence, MaxSequenceLength)
	}
	return nil
}

// parseCount reads an optional repeat count; absent means 1.
func (p *sequenceParser) parseCount() (int, error) {
	start := p.pos
	count := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		count = count*10 + int(p.src[p.pos]-'0')
		if count > 1<<20 {
			return 0, fmt.Errorf("%w: repeat count too large at offset %d", ErrInvalidSequence, start)
		}
		p.pos++
	}
	if p.pos == start {
		return 1, nil
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: zero repeat count at offset %d", ErrInvalidSequence, start)
	}
	return count, nil
}
