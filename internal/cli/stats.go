package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vmsite/collector/internal/stats"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard",
		Long: `Compute the admin dashboard from the local database.

With --format json the output is the same document /api/stats/dashboard
serves, wrapped in the CLI response envelope.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, rootOpts)
		},
	}
	return cmd
}

func runStats(cmd *cobra.Command, opts *RootOptions) error {
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

	d, err := stats.New(st, logger).Dashboard(cmd.Context(), opts.now())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compute dashboard", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(d, func(w io.Writer) error { return renderDashboard(w, d) })
}

func renderDashboard(w io.Writer, d *stats.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "WINDOW\tVIEWS\tSEARCHES\tCLICKS\tAPPOINTMENTS\tEMAILS")
	for _, row := range []struct {
		name string
		c    stats.Counters
	}{{"24h", d.Last24}, {"7d", d.Last7}, {"30d", d.Last30}} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			row.name, row.c.Views, row.c.Searches, row.c.Clicks, row.c.Appointments, row.c.Emails)
	}

	fmt.Fprintln(tw, "\nTOP BLOGS (7d)\t")
	for _, p := range d.Tops.Blogs {
		fmt.Fprintf(tw, "  %s\t%d\n", p.Page, p.C)
	}
	fmt.Fprintln(tw, "\nTOP SEARCHES (7d)\t")
	for _, q := range d.Tops.Searches {
		fmt.Fprintf(tw, "  %s\t%d\n", q.Q, q.C)
	}
	fmt.Fprintln(tw, "\nSUBSCRIBE CLICKS (7d)\t")
	for _, k := range d.Tops.Subs {
		fmt.Fprintf(tw, "  %s\t%d\n", k.K, k.C)
	}

	fmt.Fprintln(tw, "\nDATE\tAPPOINTMENTS\tEMAILS")
	for i, date := range d.TimeSeries.Dates {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", date, d.TimeSeries.Appointments[i], d.TimeSeries.Emails[i])
	}
	return tw.Flush()
}
