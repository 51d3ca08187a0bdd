// Package platform runs folding experiments end to end: it builds the
// optimizer a run config asks for, drives its rounds and persists what the
// run produced.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"hpfold/internal/beam"
	"hpfold/internal/config"
	"hpfold/internal/lattice"
	"hpfold/internal/metrics"
	"hpfold/internal/model"
	"hpfold/internal/search"
	"hpfold/internal/storage"
)

const (
	DefaultTopFolds         = 5
	DefaultProgressInterval = 2 * time.Second
)

var (
	ErrNotStarted    = errors.New("lab is not initialized")
	ErrRunActive     = errors.New("run already active")
	ErrRunNotActive  = errors.New("run not active")
	ErrStoreRequired = errors.New("store is required")
)

type Config struct {
	Store    storage.Store
	Recorder *metrics.Recorder
	Logger   *slog.Logger
	// TopFolds caps the ranked folds kept per run.
	TopFolds int
	// ProgressInterval throttles the per-round info log.
	ProgressInterval time.Duration
	Now              func() time.Time
}

// RunResult is what one finished run produced.
type RunResult struct {
	Run          model.RunRecord
	Best         lattice.ScoredWalk
	ScoreHistory []int
	Diagnostics  []model.RoundDiagnostics
	TopFolds     []model.FoldRecord
}

// Lab owns the store and instrumentation shared by every run.
type Lab struct {
	store    storage.Store
	recorder *metrics.Recorder
	log      *slog.Logger
	topFolds int
	progress time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelFunc
}

func NewLab(cfg Config) *Lab {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topFolds := cfg.TopFolds
	if topFolds <= 0 {
		topFolds = DefaultTopFolds
	}
	progress := cfg.ProgressInterval
	if progress <= 0 {
		progress = DefaultProgressInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Lab{
		store:    cfg.Store,
		recorder: cfg.Recorder,
		log:      logger,
		topFolds: topFolds,
		progress: progress,
		now:      now,
		runs:     make(map[string]context.CancelFunc),
	}
}

func (l *Lab) Init(ctx context.Context) error {
	if l.store == nil {
		return ErrStoreRequired
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if err := l.store.Init(ctx); err != nil {
		return err
	}
	l.started = true
	return nil
}

func (l *Lab) Started() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started
}

func (l *Lab) Store() storage.Store { return l.store }

// Stop cancels every active run and marks the lab stopped.
func (l *Lab) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, cancel := range l.runs {
		cancel()
	}
	l.runs = make(map[string]context.CancelFunc)
	l.started = false
}

// Reset stops the lab, drops persisted data when the store supports it and
// initializes again.
func (l *Lab) Reset(ctx context.Context) error {
	l.Stop()
	if resetter, ok := l.store.(storage.Resetter); ok {
		if err := resetter.Reset(ctx); err != nil {
			return err
		}
	}
	return l.Init(ctx)
}

// StopRun cancels an active run. The run still persists what it found.
func (l *Lab) StopRun(runID string) error {
	l.mu.RLock()
	cancel, ok := l.runs[runID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	cancel()
	return nil
}

func (l *Lab) ActiveRuns() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.runs))
	for id := range l.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run validates cfg, folds the sequence and persists the outcome. A run that
// fails after seeding is still stored with its error, and its partial result
// is returned alongside that error.
func (l *Lab) Run(ctx context.Context, cfg config.RunConfig) (RunResult, error) {
	if !l.Started() {
		return RunResult{}, ErrNotStarted
	}
	if err := cfg.Validate(); err != nil {
		return RunResult{}, err
	}
	seq, err := cfg.ResolveSequence()
	if err != nil {
		return RunResult{}, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
		cfg.RunID = runID
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := l.register(runID, cancel); err != nil {
		return RunResult{}, err
	}
	defer l.unregister(runID)

	log := l.log.With("run_id", runID, "optimizer", cfg.Optimizer)
	opt, err := NewOptimizer(seq, cfg, search.NewSource(cfg.Seed), log)
	if err != nil {
		return RunResult{}, err
	}

	started := l.now()
	if err := opt.Seed(runCtx); err != nil {
		return RunResult{}, fmt.Errorf("seed %s: %w", runID, err)
	}
	log.Info("run started", "length", len(seq), "dimension", cfg.Dimension, "rounds", cfg.Rounds)

	result := RunResult{
		ScoreHistory: make([]int, 0, cfg.Rounds),
		Diagnostics:  make([]model.RoundDiagnostics, 0, cfg.Rounds),
	}
	progress := rate.Sometimes{First: 1, Interval: l.progress}
	var (
		total    search.Stats
		fellBack int
		runErr   error
	)
	for round := 1; round <= cfg.Rounds; round++ {
		roundStart := time.Now()
		stats, err := opt.Step(runCtx)
		elapsed := time.Since(roundStart)
		total.Add(stats)
		if err != nil {
			runErr = fmt.Errorf("round %d: %w", round, err)
			break
		}
		if stats.FellBack {
			fellBack++
		}
		l.recorder.ObserveRound(opt.Name(), stats, elapsed)
		result.ScoreHistory = append(result.ScoreHistory, stats.BestScore)
		result.Diagnostics = append(result.Diagnostics, model.RoundDiagnostics{
			Round:          round,
			BestScore:      stats.BestScore,
			BestValue:      stats.BestValue,
			PopulationSize: stats.Population,
			Candidates:     stats.Candidates,
			Evaluations:    stats.Evaluations,
			Invalid:        stats.Invalid,
			FellBack:       stats.FellBack,
			DurationMillis: float64(elapsed.Microseconds()) / 1000,
		})
		progress.Do(func() {
			log.Info("round finished", "round", round, "best_score", stats.BestScore, "population", stats.Population)
		})
	}
	if runErr == nil && opt.Name() == config.OptimizerBeam && fellBack == cfg.Rounds {
		runErr = fmt.Errorf("%w: %d rounds", beam.ErrEmptyBeam, cfg.Rounds)
	}

	result.Best = opt.Best()
	result.TopFolds = rankFolds(opt.Best(), opt.Population(), l.topFolds)
	result.Run = model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		CreatedAt:       started.UTC(),
		Optimizer:       opt.Name(),
		Sequence:        seq.String(),
		Benchmark:       cfg.Benchmark,
		Dimension:       cfg.Dimension,
		Rounds:          len(result.ScoreHistory),
		Seed:            cfg.Seed,
		BestScore:       result.Best.Score,
		BestValue:       result.Best.Value,
		BestTurns:       lattice.FormatTurns(result.Best.Turns),
		Evaluations:     total.Evaluations,
		FallbackRounds:  fellBack,
		DurationMillis:  l.now().Sub(started).Milliseconds(),
	}
	if runErr != nil {
		result.Run.Error = runErr.Error()
	}

	if err := l.persist(context.WithoutCancel(ctx), result); err != nil {
		return result, errors.Join(runErr, fmt.Errorf("persist %s: %w", runID, err))
	}
	if runErr != nil {
		log.Warn("run ended early", "error", runErr, "best_score", result.Best.Score)
		return result, runErr
	}
	log.Info("run finished", "best_score", result.Best.Score, "best_value", result.Best.Value,
		"evaluations", total.Evaluations, "duration_ms", result.Run.DurationMillis)
	return result, nil
}

func (l *Lab) persist(ctx context.Context, result RunResult) error {
	id := result.Run.ID
	if err := l.store.SaveRun(ctx, result.Run); err != nil {
		return err
	}
	if err := l.store.SaveScoreHistory(ctx, id, result.ScoreHistory); err != nil {
		return err
	}
	if err := l.store.SaveRoundDiagnostics(ctx, id, result.Diagnostics); err != nil {
		return err
	}
	return l.store.SaveTopFolds(ctx, id, result.TopFolds)
}

func (l *Lab) register(runID string, cancel context.CancelFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	if _, exists := l.runs[runID]; exists {
		return fmt.Errorf("%w: %s", ErrRunActive, runID)
	}
	l.runs[runID] = cancel
	return nil
}

func (l *Lab) unregister(runID string) {
	l.mu.Lock()
	delete(l.runs, runID)
	l.mu.Unlock()
}

// rankFolds orders the best walk and the final population, drops repeated
// turn lists and keeps the first limit.
func rankFolds(best lattice.ScoredWalk, population []lattice.ScoredWalk, limit int) []model.FoldRecord {
	candidates := make([]lattice.ScoredWalk, 0, len(population)+1)
	if best.Valid {
		candidates = append(candidates, best)
	}
	candidates = append(candidates, population...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return lattice.Better(candidates[i], candidates[j])
	})

	seen := make(map[string]struct{}, len(candidates))
	folds := make([]model.FoldRecord, 0, limit)
	for _, c := range candidates {
		if len(folds) == limit {
			break
		}
		turns := lattice.FormatTurns(c.Turns)
		if _, dup := seen[turns]; dup {
			continue
		}
		seen[turns] = struct{}{}
		folds = append(folds, ToFoldRecord(len(folds)+1, c))
	}
	return folds
}

// ToFoldRecord converts a scored walk into its persisted form.
func ToFoldRecord(rank int, w lattice.ScoredWalk) model.FoldRecord {
	positions := make([]model.Position, len(w.Positions))
	for i, p := range w.Positions {
		positions[i] = model.Position{X: p.X, Y: p.Y, Z: p.Z}
	}
	return model.FoldRecord{
		VersionedRecord: storage.CurrentVersion(),
		Rank:            rank,
		Turns:           lattice.FormatTurns(w.Turns),
		Score:           w.Score,
		Value:           w.Value,
		SpreadSquared:   w.SpreadSquared,
		Positions:       positions,
	}
}
