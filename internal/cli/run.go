package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/flotillasim/flotilla/internal/compiler"
	"github.com/flotillasim/flotilla/internal/engine"
	"github.com/flotillasim/flotilla/internal/observer"
	"github.com/flotillasim/flotilla/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Metrics  string
	RunID    string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <world-dir>",
		Short: "Run a simulation from a world spec",
		Long: `Run a cargo transport market simulation from a CUE world spec.

The world spec defines ports, companies, fleets and the trade book. The
simulation runs to event-queue exhaustion. With --db the executed event
log and contracts are persisted to SQLite; with --metrics the run metrics
are exported as JSON.

Example:
  flotilla run ./worlds/demo
  flotilla run ./worlds/demo --db ./runs.db --metrics ./metrics.json --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (optional)")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "path to write JSON run metrics (optional)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run identifier for the run log (default: random)")

	return cmd
}

func runSimulation(opts *RunOptions, worldDir string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	log.Info("compiling world", "dir", worldDir)
	spec, err := compiler.LoadWorldDir(worldDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile world", err)
	}
	log.Info("world compiled",
		"ports", len(spec.Ports),
		"companies", len(spec.Companies),
		"trades", len(spec.Trades))

	metrics := observer.NewMetrics()
	engineOpts := []engine.Option{engine.WithObserver(metrics)}
	if opts.Verbose {
		engineOpts = append(engineOpts, engine.WithObserver(observer.NewLog(log)))
	}

	if opts.Database != "" {
		log.Info("opening run log", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open run log", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing run log", "error", closeErr)
			}
		}()

		runID := opts.RunID
		if runID == "" {
			runID = uuid.NewString()
		}
		log.Info("recording run", "run_id", runID)
		engineOpts = append(engineOpts, engine.WithObserver(observer.NewRecorder(st, runID, log)))
	}

	eng, err := compiler.Build(spec, log, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build world", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info("simulation starting", "seed", spec.Seed)
	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "simulation error", err)
	}
	log.Info("simulation finished", "time", eng.World().CurrentTime())

	if opts.Metrics != "" {
		f, err := os.Create(opts.Metrics)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create metrics file", err)
		}
		defer f.Close()
		if err := metrics.Export(f); err != nil {
			return WrapExitError(ExitFailure, "failed to export metrics", err)
		}
		log.Info("metrics exported", "path", opts.Metrics)
	}

	report := metrics.Report()
	fmt.Fprintf(cmd.OutOrStdout(), "Simulation complete at t=%.2f\n", eng.World().CurrentTime())
	for _, c := range eng.Companies() {
		m := report.Companies[c.Name()]
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d contract(s), %d delivered, revenue %.2f\n",
			c.Name(), m.ContractsWon, m.Deliveries, m.Revenue)
	}
	return nil
}
