package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hpfold/pkg/hpfold"
)

type runFlags struct {
	configPath string
	cfg        hpfold.RunConfig
}

func (a *app) runCommand() *cobra.Command {
	rf := &runFlags{cfg: hpfold.DefaultConfig()}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fold a sequence or benchmark chain",
		Long: `Fold a sequence or benchmark chain with beam search, simulated annealing
or an ant colony. Flags override values read from --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rf.resolve(cmd)
			if err != nil {
				return err
			}
			summary, err := a.client.Run(cmd.Context(), hpfold.RunRequest{Config: cfg})
			if summary.RunID != "" {
				fmt.Fprintf(a.out, "run completed run_id=%s optimizer=%s best_score=%d best_value=%d evaluations=%s fallback_rounds=%d duration=%s\n",
					summary.RunID,
					summary.Optimizer,
					summary.BestScore,
					summary.BestValue,
					humanize.Comma(int64(summary.Evaluations)),
					summary.FallbackRounds,
					summary.Duration,
				)
				fmt.Fprintf(a.out, "best_turns=%s\n", summary.BestTurns)
				fmt.Fprintf(a.out, "artifacts=%s\n", summary.ArtifactsDir)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&rf.configPath, "config", "", "YAML or JSON run config")
	f.StringVar(&rf.cfg.RunID, "run-id", "", "run id (default: random UUID)")
	f.StringVar(&rf.cfg.Sequence, "sequence", "", "HP sequence, run-length notation allowed, e.g. (HP)2PH2")
	f.StringVar(&rf.cfg.Benchmark, "benchmark", "", "benchmark chain name, e.g. S1-20")
	f.StringVar(&rf.cfg.Optimizer, "optimizer", rf.cfg.Optimizer, "optimizer: beam|anneal|aco")
	f.IntVar(&rf.cfg.Dimension, "dim", rf.cfg.Dimension, "lattice dimension: 2|3")
	f.IntVar(&rf.cfg.Rounds, "rounds", rf.cfg.Rounds, "optimizer rounds")
	f.Int64Var(&rf.cfg.Seed, "seed", rf.cfg.Seed, "random seed")
	f.IntVar(&rf.cfg.Workers, "workers", rf.cfg.Workers, "parallel workers for candidate evaluation")
	f.IntVar(&rf.cfg.SeedAttempts, "seed-attempts", rf.cfg.SeedAttempts, "random walks tried before seeding fails")
	f.IntVar(&rf.cfg.Beam.Width, "width", rf.cfg.Beam.Width, "beam width")
	f.IntVar(&rf.cfg.Beam.StepSize, "step-size", rf.cfg.Beam.StepSize, "local reconstruction window size")
	f.Float64Var(&rf.cfg.Anneal.Temperature, "temperature", rf.cfg.Anneal.Temperature, "annealing temperature")
	f.IntVar(&rf.cfg.Anneal.Mutations, "mutations", rf.cfg.Anneal.Mutations, "turn mutations per annealing move")
	f.IntVar(&rf.cfg.Anneal.StepsPerRound, "steps-per-round", rf.cfg.Anneal.StepsPerRound, "annealing moves per round")
	f.StringVar(&rf.cfg.Anneal.Schedule, "schedule", rf.cfg.Anneal.Schedule, "annealing schedule: constant|exponential")
	f.Float64Var(&rf.cfg.Anneal.FinalTemperature, "final-temperature", rf.cfg.Anneal.FinalTemperature, "last temperature of the exponential schedule")
	f.BoolVar(&rf.cfg.Anneal.CompareBest, "compare-best", rf.cfg.Anneal.CompareBest, "judge annealing moves against the best walk")
	f.IntVar(&rf.cfg.ACO.Ants, "ants", rf.cfg.ACO.Ants, "ants per colony step")
	f.Float64Var(&rf.cfg.ACO.Alpha, "alpha", rf.cfg.ACO.Alpha, "pheromone exponent")
	f.Float64Var(&rf.cfg.ACO.Beta, "beta", rf.cfg.ACO.Beta, "heuristic exponent")
	f.Float64Var(&rf.cfg.ACO.Gamma, "gamma", rf.cfg.ACO.Gamma, "heuristic scale, non-zero")
	f.Float64Var(&rf.cfg.ACO.Evaporation, "evaporation", rf.cfg.ACO.Evaporation, "pheromone retained per step, in [0, 1]")
	return cmd
}

// resolve returns the flag config, or the --config file with every changed
// flag applied on top of it.
func (rf *runFlags) resolve(cmd *cobra.Command) (hpfold.RunConfig, error) {
	if rf.configPath == "" {
		return rf.cfg, nil
	}
	cfg, err := hpfold.LoadConfig(rf.configPath)
	if err != nil {
		return hpfold.RunConfig{}, err
	}

	f := cmd.Flags()
	overrides := map[string]func(){
		"run-id":            func() { cfg.RunID = rf.cfg.RunID },
		"optimizer":         func() { cfg.Optimizer = rf.cfg.Optimizer },
		"dim":               func() { cfg.Dimension = rf.cfg.Dimension },
		"rounds":            func() { cfg.Rounds = rf.cfg.Rounds },
		"seed":              func() { cfg.Seed = rf.cfg.Seed },
		"workers":           func() { cfg.Workers = rf.cfg.Workers },
		"seed-attempts":     func() { cfg.SeedAttempts = rf.cfg.SeedAttempts },
		"width":             func() { cfg.Beam.Width = rf.cfg.Beam.Width },
		"step-size":         func() { cfg.Beam.StepSize = rf.cfg.Beam.StepSize },
		"temperature":       func() { cfg.Anneal.Temperature = rf.cfg.Anneal.Temperature },
		"mutations":         func() { cfg.Anneal.Mutations = rf.cfg.Anneal.Mutations },
		"steps-per-round":   func() { cfg.Anneal.StepsPerRound = rf.cfg.Anneal.StepsPerRound },
		"schedule":          func() { cfg.Anneal.Schedule = rf.cfg.Anneal.Schedule },
		"final-temperature": func() { cfg.Anneal.FinalTemperature = rf.cfg.Anneal.FinalTemperature },
		"compare-best":      func() { cfg.Anneal.CompareBest = rf.cfg.Anneal.CompareBest },
		"ants":              func() { cfg.ACO.Ants = rf.cfg.ACO.Ants },
		"alpha":             func() { cfg.ACO.Alpha = rf.cfg.ACO.Alpha },
		"beta":              func() { cfg.ACO.Beta = rf.cfg.ACO.Beta },
		"gamma":             func() { cfg.ACO.Gamma = rf.cfg.ACO.Gamma },
		"evaporation":       func() { cfg.ACO.Evaporation = rf.cfg.ACO.Evaporation },
	}
	for name, apply := range overrides {
		if f.Changed(name) {
			apply()
		}
	}
	// a chain chosen on the command line replaces the file's choice
	if f.Changed("sequence") || f.Changed("benchmark") {
		cfg.Sequence = rf.cfg.Sequence
		cfg.Benchmark = rf.cfg.Benchmark
	}
	return cfg, nil
}
