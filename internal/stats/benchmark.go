package stats

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"hpfold/internal/lattice"
	"hpfold/internal/model"
)

// BenchmarkSummary aggregates the runs made on one benchmark chain.
type BenchmarkSummary struct {
	Benchmark  string   `json:"benchmark"`
	Dimension  int      `json:"dimension"`
	Length     int      `json:"length"`
	BestKnown  int      `json:"best_known"`
	Runs       int      `json:"runs"`
	BestScore  int      `json:"best_score"`
	MeanScore  float64  `json:"mean_score"`
	StdScore   float64  `json:"std_score"`
	Gap        int      `json:"gap"`
	Optimizers []string `json:"optimizers"`
	// Reached is set when some run matched or beat the best known score.
	Reached bool `json:"reached"`
}

// SummarizeBenchmark groups runs by benchmark and dimension and reports the
// gap between the best score found and the best known one. Runs made on
// plain sequences are ignored. Best known scores refer to the planar lattice
// and are only a lower bound in three dimensions.
func SummarizeBenchmark(runs []model.RunRecord) ([]BenchmarkSummary, error) {
	type groupKey struct {
		name string
		dim  int
	}
	groups := map[groupKey][]model.RunRecord{}
	for _, run := range runs {
		if run.Benchmark == "" || run.Error != "" {
			continue
		}
		key := groupKey{name: run.Benchmark, dim: run.Dimension}
		groups[key] = append(groups[key], run)
	}

	out := make([]BenchmarkSummary, 0, len(groups))
	for key, group := range groups {
		bench, ok := lattice.BenchmarkByName(key.name)
		if !ok {
			return nil, fmt.Errorf("unknown benchmark %q", key.name)
		}
		seq, err := bench.Sequence()
		if err != nil {
			return nil, err
		}

		summary := BenchmarkSummary{
			Benchmark: key.name,
			Dimension: key.dim,
			Length:    len(seq),
			BestKnown: bench.BestKnown,
			Runs:      len(group),
		}
		scores := make([]float64, 0, len(group))
		optimizers := map[string]struct{}{}
		for i, run := range group {
			if i == 0 || run.BestScore > summary.BestScore {
				summary.BestScore = run.BestScore
			}
			scores = append(scores, float64(run.BestScore))
			optimizers[run.Optimizer] = struct{}{}
		}
		summary.MeanScore, summary.StdScore = meanStd(scores)
		summary.Gap = bench.BestKnown - summary.BestScore
		summary.Reached = summary.Gap <= 0
		for name := range optimizers {
			summary.Optimizers = append(summary.Optimizers, name)
		}
		sort.Strings(summary.Optimizers)
		out = append(out, summary)
	}

	order := map[string]int{}
	for i, b := range lattice.Benchmarks() {
		order[b.Name] = i
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Benchmark != out[j].Benchmark {
			return order[out[i].Benchmark] < order[out[j].Benchmark]
		}
		return out[i].Dimension < out[j].Dimension
	})
	return out, nil
}

func WriteBenchmarkSummary(baseDir string, summaries []BenchmarkSummary) (string, error) {
	path := filepath.Join(baseDir, benchmarkFile)
	if summaries == nil {
		summaries = []BenchmarkSummary{}
	}
	return path, writeJSON(path, summaries)
}

// meanStd returns the population standard deviation.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
