package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hpfold/pkg/hpfold"
)

func (a *app) evaluateCommand() *cobra.Command {
	var (
		req     hpfold.EvaluateRequest
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Place a turn string on the lattice and score it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eval, err := a.client.Evaluate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(a.out, eval)
			}
			if !eval.Valid {
				fmt.Fprintf(a.out, "sequence=%s turns=%s dim=%d valid=false\n", eval.Sequence, eval.Turns, eval.Dimension)
				return nil
			}
			fmt.Fprintf(a.out, "sequence=%s turns=%s dim=%d valid=true score=%d value=%d spread_sq=%d\n",
				eval.Sequence, eval.Turns, eval.Dimension, eval.Score, eval.Value, eval.SpreadSquared)
			for i, p := range eval.Positions {
				fmt.Fprintf(a.out, "%d %c %d %d %d\n", i, eval.Sequence[i], p.X, p.Y, p.Z)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Sequence, "sequence", "", "HP sequence")
	cmd.Flags().StringVar(&req.Turns, "turns", "", "turn string over S, L, R, U, D")
	cmd.Flags().IntVar(&req.Dimension, "dim", 2, "lattice dimension: 2|3")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the evaluation as JSON")
	_ = cmd.MarkFlagRequired("sequence")
	return cmd
}

func (a *app) benchmarksCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "benchmarks",
		Short: "List benchmark chains and the best scores stored for them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.client.Benchmarks(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(a.out, items)
			}
			for _, b := range items {
				fmt.Fprintf(a.out, "benchmark=%s length=%d best_known=%d sequence=%s\n", b.Name, b.Length, b.BestKnown, b.Sequence)
				for _, r := range b.Results {
					fmt.Fprintf(a.out, "  dim=%d runs=%d best_score=%d mean_score=%.2f gap=%d reached=%t optimizers=%v\n",
						r.Dimension, r.Runs, r.BestScore, r.MeanScore, r.Gap, r.Reached, r.Optimizers)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit benchmarks as JSON")
	return cmd
}
