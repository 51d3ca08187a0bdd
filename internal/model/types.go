package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarises one finished folding run.
type RunRecord struct {
	VersionedRecord
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Optimizer      string    `json:"optimizer"`
	Sequence       string    `json:"sequence"`
	Benchmark      string    `json:"benchmark,omitempty"`
	Dimension      int       `json:"dimension"`
	Rounds         int       `json:"rounds"`
	Seed           int64     `json:"seed"`
	BestScore      int       `json:"best_score"`
	BestValue      int       `json:"best_value"`
	BestTurns      string    `json:"best_turns"`
	Evaluations    int       `json:"evaluations"`
	FallbackRounds int       `json:"fallback_rounds"`
	DurationMillis int64     `json:"duration_ms"`
	Error          string    `json:"error,omitempty"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// FoldRecord is one ranked walk kept from a run's final population.
type FoldRecord struct {
	VersionedRecord
	Rank          int        `json:"rank"`
	Turns         string     `json:"turns"`
	Score         int        `json:"score"`
	Value         int        `json:"value"`
	SpreadSquared int        `json:"spread_squared"`
	Positions     []Position `json:"positions"`
}

type RoundDiagnostics struct {
	Round          int     `json:"round"`
	BestScore      int     `json:"best_score"`
	BestValue      int     `json:"best_value"`
	PopulationSize int     `json:"population_size"`
	Candidates     int     `json:"candidates"`
	Evaluations    int     `json:"evaluations"`
	Invalid        int     `json:"invalid"`
	FellBack       bool    `json:"fell_back,omitempty"`
	DurationMillis float64 `json:"duration_ms"`
}
