package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cueline/internal/cache"
	"github.com/roach88/cueline/internal/config"
	"github.com/roach88/cueline/internal/engine"
	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database     string
	RundownID    string
	TickInterval time.Duration
	MetricsAddr  string
	Console      bool

	// Clock overrides the wall clock (for testing).
	Clock engine.Clock
	// Input overrides the console input (for testing). Defaults to stdin.
	Input io.Reader
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the show engine",
		Long: `Start the cueline engine on a stored rundown.

The engine loads the configured rundown from the SQLite database, restores
playback from the last restore point and then ticks until interrupted.
With --console, commands are read line by line from standard input
(for example "load cue 1", "start", "addtime 1m", "roll").

Example:
  cueline run --db ./show.db --rundown main --console
  cueline run --config /etc/cueline.yaml --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.RundownID, "rundown", "", "rundown id to load (overrides config)")
	cmd.Flags().DurationVar(&opts.TickInterval, "tick", 0, "timer update period (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "listen address for /metrics (overrides config)")
	cmd.Flags().BoolVar(&opts.Console, "console", false, "read commands from standard input")

	return cmd
}

// applyFlags lets explicitly set flags win over the config file.
func (o *RunOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = o.Database
	}
	if flags.Changed("rundown") {
		cfg.RundownID = o.RundownID
	}
	if flags.Changed("tick") {
		cfg.TickInterval = o.TickInterval
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = o.MetricsAddr
	}
}

func runServer(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	opts.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	st, err := openStore(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	c := cache.New(st, cache.WithLogger(logger), cache.WithStrict(cfg.Strict))
	if err := loadRundown(ctx, c, st, cfg.RundownID, logger); err != nil {
		return err
	}

	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{Location: loc}
	}
	eng := engine.New(c, clock,
		engine.WithLogger(logger),
		engine.WithTickInterval(cfg.TickInterval),
		engine.WithRestoreStore(st),
		engine.WithNotifier(engine.NotifierFunc(func(s engine.Snapshot) {
			logger.Debug("state published", "revision", s.Revision, "status", statusLine(s))
		})),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return c.RunPersister(gctx) })
	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Addr, logger) })
	}
	if opts.Console {
		in := opts.Input
		if in == nil {
			in = cmd.InOrStdin()
		}
		con := &console{engine: eng, out: opts.formatter(cmd), logger: logger}
		g.Go(func() error {
			defer cancel()
			return con.run(gctx, in)
		})
	}

	logger.Info("engine starting",
		"db", cfg.Database,
		"rundown", cfg.RundownID,
		"tick", cfg.TickInterval,
		"console", opts.Console)
	if !opts.Console {
		fmt.Fprintln(cmd.ErrOrStderr(), "Engine started. Press Ctrl-C to stop.")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	logger.Info("engine stopped gracefully")
	return nil
}

// openStore opens the database, creating its directory first.
func openStore(path string, logger *slog.Logger) (*store.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}
	logger.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadRundown makes id current. A rundown missing from the store starts
// empty; it is written on its first edit.
func loadRundown(ctx context.Context, c *cache.Cache, st *store.Store, id string, logger *slog.Logger) error {
	err := c.Load(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return WrapExitError(ExitCommandError, "failed to load rundown", err)
	}
	defs, err := st.GetCustomFields(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load custom fields", err)
	}
	logger.Warn("rundown not found, starting empty", "rundown", id)
	c.Init(rundown.New(id, id), defs)
	return nil
}

// serveMetrics serves the default Prometheus registry until ctx is done.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
		return nil
	}
}
