package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmsite/collector/internal/bulletin"
	"github.com/vmsite/collector/internal/config"
	"github.com/vmsite/collector/internal/metrics"
	"github.com/vmsite/collector/internal/store"
	"github.com/vmsite/collector/internal/watcher"
)

// signalContext is cancelled on SIGINT or SIGTERM, or when the command's
// own context ends (tests cancel it directly).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func openStore(path string, logger *slog.Logger) (*store.Store, func(), error) {
	logger.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeFn := func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}
	return st, closeFn, nil
}

// newWatcher wires the bulletin converter and the site rebuild command
// into a document watcher.
func newWatcher(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *watcher.Watcher {
	wc := cfg.Watcher
	conv := bulletin.NewConverter(wc.DataDir, wc.AssetsDir, bulletin.WithLogger(logger))
	rb := watcher.NewCommandRebuilder(wc.SiteRoot, wc.RebuildCommand, logger)
	return watcher.New(wc.SourceDir, conv, rb,
		watcher.WithInterval(wc.Interval),
		watcher.WithLogger(logger),
		watcher.WithMetrics(m),
	)
}
