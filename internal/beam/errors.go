package beam

import "errors"

var (
	// ErrEmptyBeam reports that no valid candidate survived selection in any
	// round of a run. The best walk found so far is still returned with it.
	ErrEmptyBeam = errors.New("beam emptied in every round")
	ErrNotSeeded = errors.New("beam search not seeded")
)
