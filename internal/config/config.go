// Package config holds the run configuration shared by the CLI, the public
// client and the run orchestrator.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"hpfold/internal/beam"
	"hpfold/internal/lattice"
)

const (
	OptimizerBeam   = "beam"
	OptimizerAnneal = "anneal"
	OptimizerACO    = "aco"

	ScheduleConstant    = "constant"
	ScheduleExponential = "exponential"
)

var ErrInvalidConfig = errors.New("invalid run config")

// RunConfig describes one folding run. JSON files load through the YAML
// decoder, so both formats share the yaml tags.
type RunConfig struct {
	RunID        string       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Sequence     string       `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Benchmark    string       `json:"benchmark,omitempty" yaml:"benchmark,omitempty"`
	Optimizer    string       `json:"optimizer" yaml:"optimizer"`
	Dimension    int          `json:"dimension" yaml:"dimension"`
	Rounds       int          `json:"rounds" yaml:"rounds"`
	Seed         int64        `json:"seed" yaml:"seed"`
	Workers      int          `json:"workers" yaml:"workers"`
	SeedAttempts int          `json:"seed_attempts" yaml:"seed_attempts"`
	Beam         BeamConfig   `json:"beam" yaml:"beam"`
	Anneal       AnnealConfig `json:"anneal" yaml:"anneal"`
	ACO          ACOConfig    `json:"aco" yaml:"aco"`
}

type BeamConfig struct {
	Width    int `json:"width" yaml:"width"`
	StepSize int `json:"step_size" yaml:"step_size"`
}

type AnnealConfig struct {
	Temperature      float64 `json:"temperature" yaml:"temperature"`
	Mutations        int     `json:"mutations" yaml:"mutations"`
	StepsPerRound    int     `json:"steps_per_round" yaml:"steps_per_round"`
	Schedule         string  `json:"schedule" yaml:"schedule"`
	FinalTemperature float64 `json:"final_temperature" yaml:"final_temperature"`
	// CompareBest judges proposals against the best walk rather than the
	// current one.
	CompareBest bool `json:"compare_best,omitempty" yaml:"compare_best,omitempty"`
}

type ACOConfig struct {
	Ants        int     `json:"ants" yaml:"ants"`
	Alpha       float64 `json:"alpha" yaml:"alpha"`
	Beta        float64 `json:"beta" yaml:"beta"`
	Gamma       float64 `json:"gamma" yaml:"gamma"`
	Evaporation float64 `json:"evaporation" yaml:"evaporation"`
}

// Default returns a beam search over the planar lattice with every tunable
// set. A sequence or benchmark still has to be chosen.
func Default() RunConfig {
	return RunConfig{
		Optimizer:    OptimizerBeam,
		Dimension:    2,
		Rounds:       10,
		Seed:         1,
		Workers:      1,
		SeedAttempts: 200000,
		Beam: BeamConfig{
			Width:    100,
			StepSize: 5,
		},
		Anneal: AnnealConfig{
			Temperature:      10,
			Mutations:        5,
			StepsPerRound:    1000,
			Schedule:         ScheduleConstant,
			FinalTemperature: 0.1,
		},
		ACO: ACOConfig{
			Ants:        20,
			Alpha:       1,
			Beta:        1,
			Gamma:       -2,
			Evaporation: 0.9,
		},
	}
}

// Load reads a YAML or JSON file on top of Default. Unknown keys are errors.
func Load(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return RunConfig{}, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (RunConfig, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return RunConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c RunConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c RunConfig) Validate() error {
	var problems []string
	if (c.Sequence == "") == (c.Benchmark == "") {
		problems = append(problems, "exactly one of sequence or benchmark is required")
	}
	switch c.Optimizer {
	case OptimizerBeam, OptimizerAnneal, OptimizerACO:
	default:
		problems = append(problems, fmt.Sprintf("unknown optimizer %q", c.Optimizer))
	}
	if !lattice.Dimension(c.Dimension).Valid() {
		problems = append(problems, "dimension must be 2 or 3")
	}
	if c.Rounds <= 0 {
		problems = append(problems, "rounds must be > 0")
	}
	if c.Workers < 0 {
		problems = append(problems, "workers must be >= 0")
	}
	if c.SeedAttempts < 0 {
		problems = append(problems, "seed_attempts must be >= 0")
	}
	switch c.Optimizer {
	case OptimizerBeam:
		if c.Beam.Width <= 0 {
			problems = append(problems, "beam.width must be > 0")
		}
		if c.Beam.StepSize <= 0 || c.Beam.StepSize > beam.MaxStepSize {
			problems = append(problems, fmt.Sprintf("beam.step_size must be in [1, %d]", beam.MaxStepSize))
		}
	case OptimizerAnneal:
		if c.Anneal.Temperature < 0 {
			problems = append(problems, "anneal.temperature must be >= 0")
		}
		if c.Anneal.Mutations <= 0 || c.Anneal.StepsPerRound <= 0 {
			problems = append(problems, "anneal.mutations and anneal.steps_per_round must be > 0")
		}
		switch c.Anneal.Schedule {
		case ScheduleConstant:
		case ScheduleExponential:
			if c.Anneal.Temperature <= 0 || c.Anneal.FinalTemperature <= 0 {
				problems = append(problems, "exponential schedule needs positive temperature and final_temperature")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown anneal.schedule %q", c.Anneal.Schedule))
		}
	case OptimizerACO:
		if c.ACO.Ants <= 0 {
			problems = append(problems, "aco.ants must be > 0")
		}
		if c.ACO.Gamma == 0 {
			problems = append(problems, "aco.gamma must be non-zero")
		}
		if c.ACO.Evaporation < 0 || c.ACO.Evaporation > 1 {
			problems = append(problems, "aco.evaporation must be in [0, 1]")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	if _, err := c.ResolveSequence(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ResolveSequence decodes the configured sequence or benchmark.
func (c RunConfig) ResolveSequence() (lattice.Sequence, error) {
	if c.Benchmark != "" {
		b, ok := lattice.BenchmarkByName(c.Benchmark)
		if !ok {
			return nil, fmt.Errorf("unknown benchmark %q", c.Benchmark)
		}
		return b.Sequence()
	}
	return lattice.ParseSequence(c.Sequence)
}

func (c RunConfig) Dim() lattice.Dimension { return lattice.Dimension(c.Dimension) }
