package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"hpfold/internal/model"
)

const (
	runPrefix         = "run/"
	historyPrefix     = "history/"
	diagnosticsPrefix = "diagnostics/"
	topFoldsPrefix    = "top/"
)

type BadgerConfig struct {
	Path     string
	InMemory bool
	// Logger receives badger's internal log lines; nil silences them.
	Logger *slog.Logger
}

// BadgerStore keeps every record as a JSON value under a typed key prefix.
type BadgerStore struct {
	cfg BadgerConfig

	mu sync.RWMutex
	db *badger.DB
}

func NewBadgerStore(cfg BadgerConfig) *BadgerStore {
	return &BadgerStore{cfg: cfg}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (s *BadgerStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if !s.cfg.InMemory && s.cfg.Path == "" {
		return errors.New("badger path is required for a persistent store")
	}

	var opts badger.Options
	if s.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(s.cfg.Path, 0o750); err != nil {
			return fmt.Errorf("create badger directory %s: %w", s.cfg.Path, err)
		}
		opts = badger.DefaultOptions(s.cfg.Path)
	}
	if s.cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: s.cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger database: %w", err)
	}
	s.db = db
	return nil
}

func (s *BadgerStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	return s.put(ctx, runPrefix+run.ID, payload)
}

func (s *BadgerStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	payload, ok, err := s.get(ctx, runPrefix+id)
	if err != nil || !ok {
		return model.RunRecord{}, ok, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *BadgerStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB(ctx)
	if err != nil {
		return nil, err
	}

	var runs []model.RunRecord
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			payload, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			run, err := DecodeRun(payload)
			if err != nil {
				return fmt.Errorf("decode run %s: %w", item.Key(), err)
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRunsNewestFirst(runs)
	return runs, nil
}

func (s *BadgerStore) SaveScoreHistory(ctx context.Context, runID string, history []int) error {
	payload, err := EncodeScoreHistory(history)
	if err != nil {
		return err
	}
	return s.put(ctx, historyPrefix+runID, payload)
}

func (s *BadgerStore) GetScoreHistory(ctx context.Context, runID string) ([]int, bool, error) {
	payload, ok, err := s.get(ctx, historyPrefix+runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	history, err := DecodeScoreHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode score history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *BadgerStore) SaveRoundDiagnostics(ctx context.Context, runID string, diagnostics []model.RoundDiagnostics) error {
	payload, err := EncodeRoundDiagnostics(diagnostics)
	if err != nil {
		return err
	}
	return s.put(ctx, diagnosticsPrefix+runID, payload)
}

func (s *BadgerStore) GetRoundDiagnostics(ctx context.Context, runID string) ([]model.RoundDiagnostics, bool, error) {
	payload, ok, err := s.get(ctx, diagnosticsPrefix+runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	diagnostics, err := DecodeRoundDiagnostics(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode round diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

func (s *BadgerStore) SaveTopFolds(ctx context.Context, runID string, top []model.FoldRecord) error {
	payload, err := EncodeTopFolds(top)
	if err != nil {
		return err
	}
	return s.put(ctx, topFoldsPrefix+runID, payload)
}

func (s *BadgerStore) GetTopFolds(ctx context.Context, runID string) ([]model.FoldRecord, bool, error) {
	payload, ok, err := s.get(ctx, topFoldsPrefix+runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	top, err := DecodeTopFolds(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode top folds %s: %w", runID, err)
	}
	return top, true, nil
}

func (s *BadgerStore) Reset(ctx context.Context) error {
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}
	return db.DropAll()
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *BadgerStore) put(ctx context.Context, key string, payload []byte) error {
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), payload)
	})
}

func (s *BadgerStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	db, err := s.getDB(ctx)
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *BadgerStore) getDB(ctx context.Context) (*badger.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}
