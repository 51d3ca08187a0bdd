// Package hpfold is the public entry point for folding HP chains: it runs the
// optimizers, keeps their results in a store and exports run artifacts.
package hpfold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hpfold/internal/config"
	"hpfold/internal/lattice"
	"hpfold/internal/metrics"
	"hpfold/internal/model"
	"hpfold/internal/platform"
	"hpfold/internal/stats"
	"hpfold/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "hpfold.db"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrNoRuns      = errors.New("no runs available")
	// ErrRunSelector reports a request naming both or neither of a run id and latest.
	ErrRunSelector = errors.New("use exactly one of run id or latest")
)

type (
	RunConfig        = config.RunConfig
	FoldRecord       = model.FoldRecord
	Position         = model.Position
	RoundDiagnostics = model.RoundDiagnostics
	BenchmarkSummary = stats.BenchmarkSummary
)

// DefaultConfig returns a complete run config without a sequence.
func DefaultConfig() RunConfig { return config.Default() }

// LoadConfig reads a YAML or JSON run config on top of DefaultConfig.
func LoadConfig(path string) (RunConfig, error) { return config.Load(path) }

type Options struct {
	// StoreKind is memory, sqlite or badger. Empty means memory.
	StoreKind string
	// DBPath is the sqlite file or badger directory. An empty badger path
	// keeps the data in memory.
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
	// Registry receives the run metrics; nil uses a private registry.
	Registry *prometheus.Registry
}

type Client struct {
	store    storage.Store
	lab      *platform.Lab
	registry *prometheus.Registry
	log      *slog.Logger

	artifactsDir string
	exportsDir   string
}

type RunRequest struct {
	Config RunConfig
}

type RunSummary struct {
	RunID          string
	ArtifactsDir   string
	Optimizer      string
	Sequence       string
	BestScore      int
	BestValue      int
	BestTurns      string
	ScoreHistory   []int
	Evaluations    int
	FallbackRounds int
	Duration       time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	CreatedAt      time.Time
	Optimizer      string
	Sequence       string
	Benchmark      string
	Dimension      int
	Rounds         int
	Seed           int64
	BestScore      int
	BestValue      int
	BestTurns      string
	Evaluations    int
	FallbackRounds int
	Duration       time.Duration
	Error          string
}

type FoldRequest struct {
	RunID  string
	Latest bool
	// Limit caps the ranked folds returned; 0 returns all of them.
	Limit int
}

type FoldDetail struct {
	Run          RunItem
	ScoreHistory []int
	Folds        []FoldRecord
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type EvaluateRequest struct {
	Sequence  string
	Turns     string
	Dimension int
}

// Evaluation is a single walk placed on the lattice. Invalid walks carry no
// positions and a zero score.
type Evaluation struct {
	Sequence      string
	Turns         string
	Dimension     int
	Valid         bool
	Score         int
	Value         int
	SpreadSquared int
	Positions     []Position
}

type BenchmarkItem struct {
	Name      string
	Notation  string
	Sequence  string
	Length    int
	BestKnown int
	// Results summarises stored runs on this chain, one entry per dimension.
	Results []BenchmarkSummary
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.BackendMemory
	}
	dbPath := opts.DBPath
	if dbPath == "" && storeKind == storage.BackendSQLite {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store: store,
		lab: platform.NewLab(platform.Config{
			Store:    store,
			Recorder: metrics.NewRecorder(registry),
			Logger:   logger,
		}),
		registry:     registry,
		log:          logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	c.lab.Stop()
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.lab.Init(ctx)
}

// Reset drops every stored run.
func (c *Client) Reset(ctx context.Context) error {
	return c.lab.Reset(ctx)
}

// Run folds the configured chain, stores the result and writes the run
// artifacts. A run that stopped early is still stored and summarised; its
// error is returned with the summary.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	result, runErr := c.lab.Run(ctx, req.Config)
	if result.Run.ID == "" {
		return RunSummary{}, runErr
	}

	cfg := req.Config
	cfg.RunID = result.Run.ID
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Run:          result.Run,
		Config:       cfg,
		ScoreHistory: result.ScoreHistory,
		Diagnostics:  result.Diagnostics,
		TopFolds:     result.TopFolds,
	})
	if err != nil {
		return RunSummary{}, errors.Join(runErr, fmt.Errorf("write artifacts: %w", err))
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.IndexEntryFor(result.Run)); err != nil {
		return RunSummary{}, errors.Join(runErr, fmt.Errorf("update run index: %w", err))
	}

	return RunSummary{
		RunID:          result.Run.ID,
		ArtifactsDir:   filepath.Clean(runDir),
		Optimizer:      result.Run.Optimizer,
		Sequence:       result.Run.Sequence,
		BestScore:      result.Run.BestScore,
		BestValue:      result.Run.BestValue,
		BestTurns:      result.Run.BestTurns,
		ScoreHistory:   append([]int(nil), result.ScoreHistory...),
		Evaluations:    result.Run.Evaluations,
		FallbackRounds: result.Run.FallbackRounds,
		Duration:       time.Duration(result.Run.DurationMillis) * time.Millisecond,
	}, runErr
}

// Runs lists stored runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunItem(run))
	}
	return out, nil
}

// Fold returns a run with its score history and ranked folds.
func (c *Client) Fold(ctx context.Context, req FoldRequest) (FoldDetail, error) {
	if req.Limit < 0 {
		return FoldDetail{}, errors.New("limit must be >= 0")
	}
	run, err := c.resolveRun(ctx, req.RunID, req.Latest)
	if err != nil {
		return FoldDetail{}, err
	}
	history, _, err := c.store.GetScoreHistory(ctx, run.ID)
	if err != nil {
		return FoldDetail{}, err
	}
	folds, _, err := c.store.GetTopFolds(ctx, run.ID)
	if err != nil {
		return FoldDetail{}, err
	}
	if req.Limit > 0 && len(folds) > req.Limit {
		folds = folds[:req.Limit]
	}
	return FoldDetail{Run: toRunItem(run), ScoreHistory: history, Folds: folds}, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]RoundDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	run, err := c.resolveRun(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetRoundDiagnostics(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no diagnostics for %s", ErrRunNotFound, run.ID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

// Export writes a run's artifacts from the store into OutDir/<run id>. The
// config saved next to the run artifacts is reused when present; otherwise it
// is rebuilt from the run record.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	run, err := c.resolveRun(ctx, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}

	history, _, err := c.store.GetScoreHistory(ctx, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}
	diagnostics, _, err := c.store.GetRoundDiagnostics(ctx, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}
	folds, _, err := c.store.GetTopFolds(ctx, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}
	cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		cfg = configFromRun(run)
	}

	dir, err := stats.WriteRunArtifacts(outDir, stats.RunArtifacts{
		Run:          run,
		Config:       cfg,
		ScoreHistory: history,
		Diagnostics:  diagnostics,
		TopFolds:     folds,
	})
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: run.ID, Directory: filepath.Clean(dir)}, nil
}

// Evaluate places one turn string on the lattice. Malformed input is an
// error; a self-intersecting walk is a valid answer with Valid unset.
func (c *Client) Evaluate(_ context.Context, req EvaluateRequest) (Evaluation, error) {
	seq, err := lattice.ParseSequence(req.Sequence)
	if err != nil {
		return Evaluation{}, err
	}
	dim := lattice.Dimension(req.Dimension)
	if req.Dimension == 0 {
		dim = lattice.Dim2
	}
	if !dim.Valid() {
		return Evaluation{}, fmt.Errorf("dimension must be 2 or 3, got %d", req.Dimension)
	}
	turns, err := lattice.ParseTurns(req.Turns)
	if err != nil {
		return Evaluation{}, err
	}
	if len(turns) != len(seq)-2 {
		return Evaluation{}, fmt.Errorf("%d residues need %d turns, got %d", len(seq), len(seq)-2, len(turns))
	}

	out := Evaluation{Sequence: seq.String(), Turns: lattice.FormatTurns(turns), Dimension: int(dim)}
	w := lattice.Evaluate(seq, turns, dim)
	if !w.Valid {
		return out, nil
	}
	fold := platform.ToFoldRecord(1, lattice.Assess(w))
	out.Valid = true
	out.Score = fold.Score
	out.Value = fold.Value
	out.SpreadSquared = fold.SpreadSquared
	out.Positions = fold.Positions
	return out, nil
}

// Benchmarks lists the standard chains with a summary of the stored runs on
// each of them.
func (c *Client) Benchmarks(ctx context.Context) ([]BenchmarkItem, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := stats.SummarizeBenchmark(runs)
	if err != nil {
		return nil, err
	}
	byName := map[string][]BenchmarkSummary{}
	for _, s := range summaries {
		byName[s.Benchmark] = append(byName[s.Benchmark], s)
	}

	all := lattice.Benchmarks()
	out := make([]BenchmarkItem, 0, len(all))
	for _, b := range all {
		seq, err := b.Sequence()
		if err != nil {
			return nil, err
		}
		out = append(out, BenchmarkItem{
			Name:      b.Name,
			Notation:  b.Notation,
			Sequence:  seq.String(),
			Length:    len(seq),
			BestKnown: b.BestKnown,
			Results:   byName[b.Name],
		})
	}
	return out, nil
}

// WriteMetrics dumps the client's metrics in the Prometheus text format.
func (c *Client) WriteMetrics(path string) error {
	return metrics.WriteTextfile(path, c.registry)
}

func (c *Client) resolveRun(ctx context.Context, runID string, latest bool) (model.RunRecord, error) {
	if (runID == "") == !latest {
		return model.RunRecord{}, ErrRunSelector
	}
	if err := c.Init(ctx); err != nil {
		return model.RunRecord{}, err
	}
	if latest {
		runs, err := c.store.ListRuns(ctx)
		if err != nil {
			return model.RunRecord{}, err
		}
		if len(runs) == 0 {
			return model.RunRecord{}, ErrNoRuns
		}
		return runs[0], nil
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

func toRunItem(run model.RunRecord) RunItem {
	return RunItem{
		RunID:          run.ID,
		CreatedAt:      run.CreatedAt,
		Optimizer:      run.Optimizer,
		Sequence:       run.Sequence,
		Benchmark:      run.Benchmark,
		Dimension:      run.Dimension,
		Rounds:         run.Rounds,
		Seed:           run.Seed,
		BestScore:      run.BestScore,
		BestValue:      run.BestValue,
		BestTurns:      run.BestTurns,
		Evaluations:    run.Evaluations,
		FallbackRounds: run.FallbackRounds,
		Duration:       time.Duration(run.DurationMillis) * time.Millisecond,
		Error:          run.Error,
	}
}

func configFromRun(run model.RunRecord) RunConfig {
	cfg := config.Default()
	cfg.RunID = run.ID
	cfg.Optimizer = run.Optimizer
	cfg.Dimension = run.Dimension
	cfg.Rounds = run.Rounds
	cfg.Seed = run.Seed
	if run.Benchmark != "" {
		cfg.Benchmark = run.Benchmark
	} else {
		cfg.Sequence = run.Sequence
	}
	return cfg
}
