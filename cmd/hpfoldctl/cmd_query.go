package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hpfold/pkg/hpfold"
)

func (a *app) runsCommand() *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			runs, err := a.client.Runs(cmd.Context(), hpfold.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(a.out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "no runs found")
				return nil
			}
			for _, r := range runs {
				chain := r.Benchmark
				if chain == "" {
					chain = r.Sequence
				}
				fmt.Fprintf(a.out, "run_id=%s created=%s optimizer=%s chain=%s dim=%d rounds=%d seed=%d best_score=%d best_value=%d evaluations=%s%s\n",
					r.RunID,
					humanize.Time(r.CreatedAt),
					r.Optimizer,
					chain,
					r.Dimension,
					r.Rounds,
					r.Seed,
					r.BestScore,
					r.BestValue,
					humanize.Comma(int64(r.Evaluations)),
					errorSuffix(r.Error),
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs as JSON")
	return cmd
}

func (a *app) showCommand() *cobra.Command {
	var (
		latest      bool
		folds       int
		diagnostics bool
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a run with its best folds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := firstArg(args)
			detail, err := a.client.Fold(cmd.Context(), hpfold.FoldRequest{RunID: runID, Latest: latest, Limit: folds})
			if err != nil {
				return err
			}
			var diags []hpfold.RoundDiagnostics
			if diagnostics {
				diags, err = a.client.Diagnostics(cmd.Context(), hpfold.DiagnosticsRequest{RunID: detail.Run.RunID})
				if err != nil {
					return err
				}
			}
			if jsonOut {
				return writeJSON(a.out, struct {
					hpfold.FoldDetail
					Diagnostics []hpfold.RoundDiagnostics `json:",omitempty"`
				}{detail, diags})
			}

			r := detail.Run
			fmt.Fprintf(a.out, "run_id=%s optimizer=%s sequence=%s dim=%d rounds=%d seed=%d created=%s duration=%s%s\n",
				r.RunID, r.Optimizer, r.Sequence, r.Dimension, r.Rounds, r.Seed,
				r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), r.Duration, errorSuffix(r.Error))
			fmt.Fprintf(a.out, "best_score=%d best_value=%d best_turns=%s\n", r.BestScore, r.BestValue, r.BestTurns)
			fmt.Fprintf(a.out, "score_history=%s\n", joinInts(detail.ScoreHistory))
			for _, f := range detail.Folds {
				fmt.Fprintf(a.out, "fold rank=%d score=%d value=%d spread_sq=%d turns=%s\n", f.Rank, f.Score, f.Value, f.SpreadSquared, f.Turns)
			}
			for _, d := range diags {
				fmt.Fprintf(a.out, "round=%d best_score=%d population=%d candidates=%d evaluations=%d invalid=%d fell_back=%t duration_ms=%.3f\n",
					d.Round, d.BestScore, d.PopulationSize, d.Candidates, d.Evaluations, d.Invalid, d.FellBack, d.DurationMillis)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "show the most recent run")
	cmd.Flags().IntVar(&folds, "folds", 0, "max folds to print (0 prints all)")
	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "also print per-round diagnostics")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the run as JSON")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var (
		latest bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Write a stored run's artifacts to a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.client.Export(cmd.Context(), hpfold.ExportRequest{
				RunID:  firstArg(args),
				Latest: latest,
				OutDir: outDir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "exported run_id=%s to=%s\n", summary.RunID, summary.Directory)
			return nil
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "export the most recent run")
	cmd.Flags().StringVar(&outDir, "out", "", "export output directory (default: --exports-dir)")
	return cmd
}

func (a *app) resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "reset store=%s\n", a.storeKind)
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func errorSuffix(msg string) string {
	if msg == "" {
		return ""
	}
	return " error=" + strconv.Quote(msg)
}

func joinInts(values []int) string {
	out := make([]byte, 0, 4*len(values))
	for i, v := range values {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendInt(out, int64(v), 10)
	}
	return string(out)
}
