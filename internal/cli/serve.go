package cli

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vmsite/collector/internal/metrics"
	"github.com/vmsite/collector/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Host      string
	Port      int
	NoWatcher bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP collector and the bulletin watcher",
		Long: `Start the HTTP collector. Unless disabled, the bulletin watcher runs
alongside it in the same process.

Example:
  collector serve --db ./data/runtime/analytics.db
  ANALYTICS_TOKEN=s3cret collector serve --port 9000 --no-watcher`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&opts.NoWatcher, "no-watcher", false, "do not run the bulletin watcher")
	_ = opts.v.BindPFlag("host", cmd.Flags().Lookup("host"))
	_ = opts.v.BindPFlag("port", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	st, closeStore, err := openStore(cfg.DB, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	srv, err := server.New(cfg, st,
		server.WithLogger(logger),
		server.WithMetrics(m),
		server.WithClock(opts.now),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build server", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if cfg.Watcher.Enabled && !opts.NoWatcher {
		w := newWatcher(cfg, logger, m)
		g.Go(func() error { return w.Run(gctx) })
	}

	logger.Info("collector started", "addr", cfg.Addr(), "db", cfg.DB,
		"watcher", cfg.Watcher.Enabled && !opts.NoWatcher)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "collector stopped", err)
	}
	logger.Info("collector stopped gracefully")
	return nil
}
