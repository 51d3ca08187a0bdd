package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"hpfold/internal/config"
	"hpfold/internal/model"
)

const (
	runIndexFile = "run_index.json"
	// fixed width so the index sorts lexically
	indexTimeLayout = "2006-01-02T15:04:05.000000000Z"

	configFile      = "config.json"
	historyFile     = "score_history.json"
	diagnosticsFile = "round_diagnostics.json"
	topFoldsFile    = "top_folds.json"
	bestFoldFile    = "best_fold.csv"
	benchmarkFile   = "benchmark_summary.json"
)

var ErrMissingRunID = errors.New("run id is required")

// RunArtifacts is everything written to a run directory.
type RunArtifacts struct {
	Run          model.RunRecord          `json:"run"`
	Config       config.RunConfig         `json:"config"`
	ScoreHistory []int                    `json:"score_history"`
	Diagnostics  []model.RoundDiagnostics `json:"round_diagnostics,omitempty"`
	TopFolds     []model.FoldRecord       `json:"top_folds"`
}

type RunIndexEntry struct {
	RunID        string `json:"run_id"`
	Optimizer    string `json:"optimizer"`
	Sequence     string `json:"sequence"`
	Benchmark    string `json:"benchmark,omitempty"`
	Dimension    int    `json:"dimension"`
	Rounds       int    `json:"rounds"`
	Seed         int64  `json:"seed"`
	BestScore    int    `json:"best_score"`
	BestValue    int    `json:"best_value"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// IndexEntryFor summarises a run record for run_index.json.
func IndexEntryFor(run model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:        run.ID,
		Optimizer:    run.Optimizer,
		Sequence:     run.Sequence,
		Benchmark:    run.Benchmark,
		Dimension:    run.Dimension,
		Rounds:       run.Rounds,
		Seed:         run.Seed,
		BestScore:    run.BestScore,
		BestValue:    run.BestValue,
		CreatedAtUTC: run.CreatedAt.UTC().Format(indexTimeLayout),
	}
}

// WriteRunArtifacts writes the run directory baseDir/<run id> and returns it.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", ErrMissingRunID
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	cfg := artifacts.Config
	cfg.RunID = artifacts.Run.ID
	if err := writeJSON(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	history := map[string]any{
		"score_by_round": nonNilInts(artifacts.ScoreHistory),
		"best_score":     artifacts.Run.BestScore,
		"best_value":     artifacts.Run.BestValue,
	}
	if err := writeJSON(filepath.Join(runDir, historyFile), history); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), nonNilDiagnostics(artifacts.Diagnostics)); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, topFoldsFile), nonNilFolds(artifacts.TopFolds)); err != nil {
		return "", err
	}
	if len(artifacts.TopFolds) > 0 {
		if err := WriteFoldCSV(filepath.Join(runDir, bestFoldFile), artifacts.Run.Sequence, artifacts.TopFolds[0]); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

// WriteFoldCSV writes one row per residue: index, residue letter and lattice
// coordinates.
func WriteFoldCSV(path, sequence string, fold model.FoldRecord) error {
	if len(sequence) != len(fold.Positions) {
		return fmt.Errorf("fold has %d positions for a %d residue sequence", len(fold.Positions), len(sequence))
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"index", "residue", "x", "y", "z"}); err != nil {
		return err
	}
	for i, p := range fold.Positions {
		if err := writer.Write([]string{
			strconv.Itoa(i),
			sequence[i : i+1],
			strconv.Itoa(p.X),
			strconv.Itoa(p.Y),
			strconv.Itoa(p.Z),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadFoldCSV loads a best_fold.csv back into its sequence and positions.
func ReadFoldCSV(path string) (string, []model.Position, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 5
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil, fmt.Errorf("%s: missing header", path)
		}
		return "", nil, err
	}

	var (
		sequence  []byte
		positions []model.Position
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		var coords [3]int
		for k := range coords {
			coords[k], err = strconv.Atoi(record[2+k])
			if err != nil {
				return "", nil, fmt.Errorf("%s row %s: %w", path, record[0], err)
			}
		}
		if len(record[1]) != 1 {
			return "", nil, fmt.Errorf("%s row %s: bad residue %q", path, record[0], record[1])
		}
		sequence = append(sequence, record[1][0])
		positions = append(positions, model.Position{X: coords[0], Y: coords[1], Z: coords[2]})
	}
	return string(sequence), positions, nil
}

func ReadRunConfig(baseDir, runID string) (config.RunConfig, bool, error) {
	var cfg config.RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadTopFolds(baseDir, runID string) ([]model.FoldRecord, bool, error) {
	var top []model.FoldRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, topFoldsFile), &top)
	return top, ok, err
}

func ReadScoreHistory(baseDir, runID string) ([]int, bool, error) {
	var history struct {
		ScoreByRound []int `json:"score_by_round"`
	}
	ok, err := readJSON(filepath.Join(baseDir, runID, historyFile), &history)
	return history.ScoreByRound, ok, err
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return ErrMissingRunID
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first. Entries sharing a timestamp
// keep the later-appended one in front.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []RunIndexEntry{}, nil
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := entries[order[i]], entries[order[j]]
		if a.CreatedAtUTC == b.CreatedAtUTC {
			return order[i] > order[j]
		}
		return a.CreatedAtUTC > b.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(entries))
	for _, idx := range order {
		sorted = append(sorted, entries[idx])
	}
	return sorted, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilDiagnostics(v []model.RoundDiagnostics) []model.RoundDiagnostics {
	if v == nil {
		return []model.RoundDiagnostics{}
	}
	return v
}

func nonNilFolds(v []model.FoldRecord) []model.FoldRecord {
	if v == nil {
		return []model.FoldRecord{}
	}
	return v
}
