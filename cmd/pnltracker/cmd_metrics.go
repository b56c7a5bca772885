package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pnl-tracker/internal/dates"
	"github.com/joseph-ayodele/pnl-tracker/internal/metrics"
)

var (
	metricsWeek   string
	metricsFormat string
	metricsShare  bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Weekly performance report",
	Long: `Report net PnL, win rate, profit factor, drawdown and best/worst day for
one ISO week (the selected week by default), plus the trailing weekly series.

Examples:
  pnltracker metrics
  pnltracker metrics --week 2024-W02 --format json
  pnltracker metrics --share`,
	RunE: runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().StringVar(&metricsWeek, "week", "", "ISO week (YYYY-Www); default is the selected week")
	metricsCmd.Flags().StringVar(&metricsFormat, "format", "table", "Output format: table or json")
	metricsCmd.Flags().BoolVar(&metricsShare, "share", false, "Print only the shareable text summary")
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.book.Snapshot()
	week := metricsWeek
	if week == "" {
		week = snap.CurrentWeek()
	}
	list := snap.Trades()
	w, err := metrics.ComputeWeekly(list, week)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if metricsShare {
		_, err := fmt.Fprintln(out, metrics.ShareSummary(w))
		return err
	}
	if metricsFormat == "json" {
		return writeJSON(out, map[string]any{
			"weekly":  w,
			"equity":  metrics.EquityCurve(list),
			"pnl":     metrics.WeeklyPnlSeries(list),
			"winLoss": metrics.WeeklyWinLossSeries(list),
		})
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Week\t%s (%s)\n", w.WeekKey, dates.FormatWeekRange(w.WeekKey))
	fmt.Fprintf(tw, "Net PnL\t%s\n", metrics.FormatPnl(w.NetPnl))
	fmt.Fprintf(tw, "Trades\t%d (%d win / %d loss)\n", w.TotalTrades, w.WinCount, w.LossCount)
	fmt.Fprintf(tw, "Win rate\t%s\n", metrics.FormatPercentage(w.WinRate))
	fmt.Fprintf(tw, "Avg win / loss\t%s / %s\n", metrics.FormatPnl(w.AvgWin), metrics.FormatPnl(-w.AvgLoss))
	fmt.Fprintf(tw, "Profit factor\t%s\n", metrics.FormatProfitFactor(w))
	fmt.Fprintf(tw, "Max drawdown\t%s\n", metrics.FormatPnl(-w.MaxDrawdown))
	if w.BestDay != nil {
		fmt.Fprintf(tw, "Best day\t%s %s\n", w.BestDay.Date, metrics.FormatPnl(w.BestDay.Pnl))
		fmt.Fprintf(tw, "Worst day\t%s %s\n", w.WorstDay.Date, metrics.FormatPnl(w.WorstDay.Pnl))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "WEEK\tPNL\tWINS\tLOSSES\t")
	pnl := metrics.WeeklyPnlSeries(list)
	wl := metrics.WeeklyWinLossSeries(list)
	for i := range pnl {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t\n", pnl[i].Label, metrics.FormatPnl(pnl[i].Pnl), wl[i].Wins, wl[i].Losses)
	}
	return tw.Flush()
}
