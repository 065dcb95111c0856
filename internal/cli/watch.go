package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vmsite/collector/internal/watcher"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Once bool
}

// WatchReport is the result of a single pass.
type WatchReport struct {
	Changed bool              `json:"changed"`
	Slugs   []string          `json:"slugs"`
	Failed  map[string]string `json:"failed,omitempty"`
	Rebuilt bool              `json:"rebuilt"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert bulletin documents into site records",
		Long: `Watch the bulletin source directory and regenerate records whenever a
document is added or modified. With --once, run a single pass and exit.

Example:
  collector watch --once
  ANALYTICS_WATCHER_REBUILD_COMMAND="python3 scripts/build_bulten.py" collector watch`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Once, "once", false, "run one pass and exit")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	w := newWatcher(cfg, logger, nil)

	ctx, stop := signalContext(cmd)
	defer stop()

	if !opts.Once {
		logger.Info("watching", "dir", cfg.Watcher.SourceDir, "interval", cfg.Watcher.Interval)
		if err := w.Run(ctx); err != nil {
			return WrapExitError(ExitFailure, "watcher stopped", err)
		}
		return nil
	}

	res, err := w.Poll(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "watch pass failed", err)
	}
	report := newWatchReport(res)

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := out.Success(report, report.render); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) failed", len(report.Failed)))
	}
	return nil
}

func newWatchReport(res watcher.PassResult) WatchReport {
	r := WatchReport{Changed: res.Changed, Slugs: res.Slugs, Rebuilt: res.Rebuilt}
	if r.Slugs == nil {
		r.Slugs = []string{}
	}
	if len(res.Failed) > 0 {
		r.Failed = make(map[string]string, len(res.Failed))
		for path, err := range res.Failed {
			r.Failed[path] = err.Error()
		}
	}
	return r
}

func (r WatchReport) render(w io.Writer) error {
	if !r.Changed {
		_, err := fmt.Fprintln(w, "No changes.")
		return err
	}
	for _, slug := range r.Slugs {
		fmt.Fprintf(w, "wrote %s\n", slug)
	}
	paths := make([]string, 0, len(r.Failed))
	for p := range r.Failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(w, "failed %s: %s\n", p, r.Failed[p])
	}
	_, err := fmt.Fprintf(w, "%d record(s), %d failed, rebuilt=%t\n", len(r.Slugs), len(r.Failed), r.Rebuilt)
	return err
}
