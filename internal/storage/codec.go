package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"hpfold/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps records written by this build.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeTopFolds(top []model.FoldRecord) ([]byte, error) {
	return json.Marshal(top)
}

func DecodeTopFolds(data []byte) ([]model.FoldRecord, error) {
	var top []model.FoldRecord
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	for _, fold := range top {
		if err := checkVersion(fold.VersionedRecord); err != nil {
			return nil, fmt.Errorf("fold rank %d: %w", fold.Rank, err)
		}
	}
	return top, nil
}

func EncodeScoreHistory(history []int) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeScoreHistory(data []byte) ([]int, error) {
	var history []int
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeRoundDiagnostics(diagnostics []model.RoundDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeRoundDiagnostics(data []byte) ([]model.RoundDiagnostics, error) {
	var diagnostics []model.RoundDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func cloneFolds(top []model.FoldRecord) []model.FoldRecord {
	out := make([]model.FoldRecord, len(top))
	for i, fold := range top {
		out[i] = fold
		out[i].Positions = append([]model.Position(nil), fold.Positions...)
	}
	return out
}

// sortRunsNewestFirst orders by creation time, then id for a stable listing.
func sortRunsNewestFirst(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})
}
