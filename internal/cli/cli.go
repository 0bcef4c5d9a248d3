package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/ssa-datasets/internal/fetch"
	"github.com/pfrederiksen/ssa-datasets/internal/lifetable"
	"github.com/pfrederiksen/ssa-datasets/internal/logging"
	"github.com/pfrederiksen/ssa-datasets/internal/metrics"
	"github.com/pfrederiksen/ssa-datasets/internal/names"
	"github.com/pfrederiksen/ssa-datasets/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagDataDir string
	flagTimeout time.Duration
	flagFormat  string
	flagVerbose bool
	flagDebug   bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssa-datasets",
		Short: "Download and reshape public SSA datasets into flat CSV files",
		Long: `ssa-datasets downloads two datasets published by the Social Security
Administration and reshapes each into a single flat CSV artifact:

  names       historical baby-name counts       -> names.csv.gz
  lifetables  period life tables per decade     -> lifetables.csv

Each run rebuilds its artifact from scratch; nothing is cached between
runs and a failed build leaves no artifact behind.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", defaultDataDir(), "Directory artifacts are written into (env: SSA_DATA_DIR)")
	cmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", fetch.Timeout, "Timeout for a single HTTP request")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log progress at info level")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log at debug level, including build metrics")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Setup(flagVerbose, flagDebug)

		format := OutputFormat(strings.ToLower(flagFormat))
		if format != FormatText && format != FormatJSON {
			return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
		}
		return nil
	}

	cmd.AddCommand(newNamesCmd())
	cmd.AddCommand(newLifetablesCmd())
	cmd.AddCommand(newAllCmd())

	return cmd
}

func defaultDataDir() string {
	if dir := os.Getenv("SSA_DATA_DIR"); dir != "" {
		return dir
	}
	return "."
}

// runEnv carries the dependencies each subcommand builds from the
// persistent flags.
type runEnv struct {
	store   *storage.Storage
	client  *fetch.Client
	tracker *metrics.Tracker
}

func newRunEnv() (*runEnv, error) {
	store, err := storage.New(flagDataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	opts := fetch.DefaultOptions()
	opts.Timeout = flagTimeout

	return &runEnv{
		store:   store,
		client:  fetch.New(opts),
		tracker: metrics.New(),
	}, nil
}

// newNamesCmd creates the names subcommand
func newNamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "Build the baby-name counts artifact (names.csv.gz)",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRunEnv()
			if err != nil {
				return err
			}

			started := time.Now()
			res, err := names.Build(cmd.Context(), env.store, names.Options{
				Client:  env.client,
				Metrics: env.tracker,
			})
			if err != nil {
				return fmt.Errorf("building name counts: %w", err)
			}

			return writeResult(cmd, &RunResult{
				StartedAt: started.UTC(),
				Elapsed:   time.Since(started),
				Names:     res,
			})
		},
	}
}

// newLifetablesCmd creates the lifetables subcommand
func newLifetablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lifetables",
		Short: "Build the period life tables artifact (lifetables.csv)",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRunEnv()
			if err != nil {
				return err
			}

			started := time.Now()
			res, err := lifetable.Build(cmd.Context(), env.store, lifetable.Options{
				Client:  env.client,
				Metrics: env.tracker,
			})
			if err != nil {
				return fmt.Errorf("building life tables: %w", err)
			}

			return writeResult(cmd, &RunResult{
				StartedAt:  started.UTC(),
				Elapsed:    time.Since(started),
				Lifetables: res,
			})
		},
	}
}

// newAllCmd creates the all subcommand
func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Build both artifacts, names first",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRunEnv()
			if err != nil {
				return err
			}

			started := time.Now()
			nres, err := names.Build(cmd.Context(), env.store, names.Options{
				Client:  env.client,
				Metrics: env.tracker,
			})
			if err != nil {
				return fmt.Errorf("building name counts: %w", err)
			}

			lres, err := lifetable.Build(cmd.Context(), env.store, lifetable.Options{
				Client:  env.client,
				Metrics: env.tracker,
			})
			if err != nil {
				return fmt.Errorf("building life tables: %w", err)
			}

			return writeResult(cmd, &RunResult{
				StartedAt:  started.UTC(),
				Elapsed:    time.Since(started),
				Names:      nres,
				Lifetables: lres,
			})
		},
	}
}

func writeResult(cmd *cobra.Command, result *RunResult) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if err := WriteOutput(cmd.OutOrStdout(), result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// Execute runs the CLI, canceling in-flight work on interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
