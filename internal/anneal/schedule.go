package anneal

import "math"

// Schedule gives the temperature for step iter of a run of total steps.
type Schedule interface {
	Temperature(iter, total int) float64
}

// ConstantSchedule holds the temperature fixed for the whole run, which makes
// the search a plain Metropolis walk.
type ConstantSchedule struct {
	T float64
}

func (c ConstantSchedule) Temperature(int, int) float64 { return c.T }

// ExponentialSchedule cools geometrically from Start to End.
type ExponentialSchedule struct {
	Start float64
	End   float64
}

func (e ExponentialSchedule) Temperature(iter, total int) float64 {
	if total <= 1 {
		return e.End
	}
	if e.Start <= 0 || e.End <= 0 {
		return 1e-9
	}
	frac := float64(min(iter, total-1)) / float64(total-1)
	return e.Start * math.Pow(e.End/e.Start, frac)
}
