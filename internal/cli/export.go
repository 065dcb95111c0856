package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmsite/collector/internal/export"
	"github.com/vmsite/collector/internal/stats"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Days   int
	Limit  int
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	names := make([]string, 0, len(export.Views))
	for _, v := range export.Views {
		names = append(names, string(v))
	}

	cmd := &cobra.Command{
		Use:   "export <view>",
		Short: "Write a CSV export to stdout or a file",
		Long: fmt.Sprintf(`Render one export view as CSV, exactly as served by /api/export/<view>.

Views: %s

Example:
  collector export top_blogs --days 30
  collector export events --limit 500 -o events.csv`, strings.Join(names, ", ")),
		Args:          cobra.ExactArgs(1),
		ValidArgs:     names,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", export.DefaultDays, "window in days")
	cmd.Flags().IntVar(&opts.Limit, "limit", export.DefaultLimit, "row limit for the events view")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions, name string) error {
	view, err := export.ParseView(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid view", err)
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	st, closeStore, err := openStore(cfg.DB, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var w io.Writer = cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)

	x := export.New(stats.New(st, logger), st)
	params := export.Params{Days: opts.Days, Limit: opts.Limit}
	if err := x.Write(cmd.Context(), bw, view, params, opts.now()); err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}
	if err := bw.Flush(); err != nil {
		return WrapExitError(ExitFailure, "failed to write export", err)
	}
	logger.Debug("export written", "view", view, "output", opts.Output)
	return nil
}
