package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"hpfold/internal/storage"
	"hpfold/pkg/hpfold"
)

const (
	defaultDataDir      = "hpfold-data"
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the global flags and the client built from them.
type app struct {
	out    io.Writer
	errOut io.Writer

	storeKind    string
	dbPath       string
	artifactsDir string
	exportsDir   string
	logLevel     string
	logFormat    string
	metricsOut   string

	client *hpfold.Client
}

func execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := &app{out: out, errOut: errOut}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.ExecuteContext(ctx)
	if a.client != nil {
		if a.metricsOut != "" {
			if werr := a.client.WriteMetrics(a.metricsOut); werr != nil && err == nil {
				err = fmt.Errorf("write metrics: %w", werr)
			}
		}
		if cerr := a.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "hpfoldctl",
		Short:         "Fold HP lattice proteins and inspect stored runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.storeKind, "store", storage.BackendBadger, "store backend: memory|badger|sqlite")
	flags.StringVar(&a.dbPath, "db-path", defaultDataDir, "badger directory or sqlite file")
	flags.StringVar(&a.artifactsDir, "artifacts-dir", defaultArtifactsDir, "directory for per-run artifacts")
	flags.StringVar(&a.exportsDir, "exports-dir", defaultExportsDir, "default export directory")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flags.StringVar(&a.logFormat, "log-format", "auto", "log format: auto|text|json")
	flags.StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		a.runCommand(),
		a.runsCommand(),
		a.showCommand(),
		a.exportCommand(),
		a.evaluateCommand(),
		a.benchmarksCommand(),
		a.resetCommand(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	logger, err := newLogger(a.errOut, a.logLevel, a.logFormat)
	if err != nil {
		return err
	}
	client, err := hpfold.New(hpfold.Options{
		StoreKind:    a.storeKind,
		DBPath:       a.dbPath,
		ArtifactsDir: a.artifactsDir,
		ExportsDir:   a.exportsDir,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	a.client = client
	return client.Init(ctx)
}

// newLogger picks a text handler for terminals and JSON otherwise when format
// is auto.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "auto":
		if isTerminal(w) {
			return slog.New(slog.NewTextHandler(w, opts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
