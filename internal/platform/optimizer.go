package platform

import (
	"fmt"
	"log/slog"

	"hpfold/internal/aco"
	"hpfold/internal/anneal"
	"hpfold/internal/beam"
	"hpfold/internal/config"
	"hpfold/internal/lattice"
	"hpfold/internal/search"
)

// NewOptimizer builds the optimizer named by cfg.Optimizer for seq.
func NewOptimizer(seq lattice.Sequence, cfg config.RunConfig, src search.Source, logger *slog.Logger) (search.Optimizer, error) {
	dim := lattice.Dimension(cfg.Dimension)
	switch cfg.Optimizer {
	case config.OptimizerBeam:
		return beam.New(seq, src, beam.Config{
			Width:        cfg.Beam.Width,
			Dim:          dim,
			StepSize:     cfg.Beam.StepSize,
			Workers:      cfg.Workers,
			SeedAttempts: cfg.SeedAttempts,
			Logger:       logger,
		})
	case config.OptimizerAnneal:
		return anneal.New(seq, src, anneal.Config{
			Dim:           dim,
			Mutations:     cfg.Anneal.Mutations,
			StepsPerRound: cfg.Anneal.StepsPerRound,
			Rounds:        cfg.Rounds,
			Schedule:      annealSchedule(cfg.Anneal),
			SeedAttempts:  cfg.SeedAttempts,
			CompareBest:   cfg.Anneal.CompareBest,
			Logger:        logger,
		})
	case config.OptimizerACO:
		return aco.New(seq, src, aco.Config{
			Dim:          dim,
			Ants:         cfg.ACO.Ants,
			Alpha:        cfg.ACO.Alpha,
			Beta:         cfg.ACO.Beta,
			Gamma:        cfg.ACO.Gamma,
			Evaporation:  cfg.ACO.Evaporation,
			Workers:      cfg.Workers,
			SeedAttempts: cfg.SeedAttempts,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("%w: unknown optimizer %q", config.ErrInvalidConfig, cfg.Optimizer)
	}
}

func annealSchedule(cfg config.AnnealConfig) anneal.Schedule {
	if cfg.Schedule == config.ScheduleExponential {
		return anneal.ExponentialSchedule{Start: cfg.Temperature, End: cfg.FinalTemperature}
	}
	return anneal.ConstantSchedule{T: cfg.Temperature}
}
