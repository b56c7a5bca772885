package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/dates"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
	"github.com/joseph-ayodele/pnl-tracker/internal/metrics"
	"github.com/joseph-ayodele/pnl-tracker/internal/trades"
)

var (
	listWeek   string
	listFormat string
	clearYes   bool
	weekList   bool

	editTime    string
	editSymbol  string
	editSide    string
	editPnl     float64
	editFees    float64
	editROI     float64
	editRemarks string
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List and manage recorded trades",
}

var tradesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades, newest first",
	RunE:  runTradesList,
}

var tradesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a trade by hand",
	Long: `Record a trade by hand. Manual trades are trusted: confidence is high
and they never need review.

Example:
  pnltracker trades add --symbol BTCUSDT --side long --pnl 125.5 --time "2024-01-08 14:32"`,
	RunE: runTradesAdd,
}

var tradesEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Correct a recorded trade",
	Long: `Correct a recorded trade. Unset flags keep the stored value.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTradesEdit,
}

var tradesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradesDelete,
}

var tradesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every trade",
	RunE:  runTradesClear,
}

const weekOptionCount = 12

var weekCmd = &cobra.Command{
	Use:   "week [YYYY-Www]",
	Short: "Show or select the current reporting week",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWeek,
}

func init() {
	rootCmd.AddCommand(tradesCmd, weekCmd)
	tradesCmd.AddCommand(tradesListCmd, tradesAddCmd, tradesEditCmd, tradesDeleteCmd, tradesClearCmd)

	tradesListCmd.Flags().StringVar(&listWeek, "week", "", "Only trades of this ISO week (YYYY-Www)")
	tradesListCmd.Flags().StringVar(&listFormat, "format", "table", "Output format: table or json")
	tradesClearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm deleting every trade")
	weekCmd.Flags().BoolVar(&weekList, "list", false, "List the last 12 weeks to choose from")

	for _, c := range []*cobra.Command{tradesAddCmd, tradesEditCmd} {
		c.Flags().StringVar(&editTime, "time", "", "Close time, any supported date format")
		c.Flags().StringVar(&editSymbol, "symbol", "", "Instrument, e.g. BTCUSDT")
		c.Flags().StringVar(&editSide, "side", "", "long, short or unknown")
		c.Flags().Float64Var(&editPnl, "pnl", 0, "Realized PnL in USDT")
		c.Flags().Float64Var(&editFees, "fees", 0, "Trading fees in USDT")
		c.Flags().Float64Var(&editROI, "roi", 0, "ROI in percent")
		c.Flags().StringVar(&editRemarks, "remarks", "", "Free-form note")
	}
}

func runTradesList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	list := a.book.Snapshot().Trades()
	if listWeek != "" {
		if _, _, err := dates.ParseWeekKey(listWeek); err != nil {
			return err
		}
		list = metrics.InWeek(list, listWeek)
	}
	if listFormat == "json" {
		if list == nil {
			list = []entity.Trade{}
		}
		return writeJSON(cmd.OutOrStdout(), list)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLOSED\tSYMBOL\tSIDE\tPNL\tRESULT\tREVIEW")
	for _, t := range list {
		review := ""
		if t.NeedsReview {
			review = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Timestamp.Format("2006-01-02 15:04"), t.Symbol, t.Side,
			metrics.FormatPnl(t.RealizedPnl), t.Result, review)
	}
	return tw.Flush()
}

func runTradesAdd(cmd *cobra.Command, _ []string) error {
	e, err := editFromFlags(cmd, trades.Edit{Side: constants.SideUnknown}, true)
	if err != nil {
		return err
	}
	t, err := trades.NewManualTrade(e)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.book.Add(cmd.Context(), t, constants.DuplicateAdd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.ID)
	reportOutcome(cmd.ErrOrStderr(), out)
	return nil
}

func runTradesEdit(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid trade id %q", args[0])
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	current, ok := a.book.Snapshot().Find(id)
	if !ok {
		return fmt.Errorf("trade %s not found", id)
	}
	pnl := current.RealizedPnl
	e, err := editFromFlags(cmd, trades.Edit{
		Timestamp:   current.Timestamp,
		Symbol:      current.Symbol,
		Side:        current.Side,
		RealizedPnl: &pnl,
		Fees:        current.Fees,
		ROI:         current.ROI,
		Remarks:     current.Remarks,
	}, false)
	if err != nil {
		return err
	}
	out, err := a.book.Update(cmd.Context(), id, e)
	if err != nil {
		return err
	}
	reportOutcome(cmd.ErrOrStderr(), out)
	return nil
}

// editFromFlags overlays the flags the user set onto base. defaultNow fills
// a missing close time with the current time.
func editFromFlags(cmd *cobra.Command, base trades.Edit, defaultNow bool) (trades.Edit, error) {
	f := cmd.Flags()
	if f.Changed("time") {
		ts, ok := dates.ParseFlexible(editTime)
		if !ok {
			return trades.Edit{}, fmt.Errorf("unrecognized date %q", editTime)
		}
		base.Timestamp = ts
	}
	if f.Changed("symbol") {
		base.Symbol = editSymbol
	}
	if f.Changed("side") {
		base.Side = constants.Side(strings.ToLower(editSide))
	}
	if f.Changed("pnl") {
		v := editPnl
		base.RealizedPnl = &v
	}
	if f.Changed("fees") {
		v := editFees
		base.Fees = &v
	}
	if f.Changed("roi") {
		v := editROI
		base.ROI = &v
	}
	if f.Changed("remarks") {
		base.Remarks = editRemarks
	}
	if defaultNow && base.Timestamp.IsZero() {
		base.Timestamp = time.Now().UTC()
	}
	return base, nil
}

func runTradesDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid trade id %q", args[0])
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.book.Delete(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d trade(s) left\n", out.Snapshot.Len())
	reportOutcome(cmd.ErrOrStderr(), out)
	return nil
}

func runTradesClear(cmd *cobra.Command, _ []string) error {
	if !clearYes {
		return errors.New("refusing to delete every trade without --yes")
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.book.Clear(cmd.Context())
	if err != nil {
		return err
	}
	reportOutcome(cmd.ErrOrStderr(), out)
	return nil
}

func runWeek(cmd *cobra.Command, args []string) error {
	if weekList {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, o := range dates.WeekOptions(weekOptionCount, time.Now()) {
			fmt.Fprintf(tw, "%s\t%s\n", o.Key, o.Label)
		}
		return tw.Flush()
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		out, err := a.book.SetCurrentWeek(cmd.Context(), strings.ToUpper(args[0]))
		if err != nil {
			return err
		}
		reportOutcome(cmd.ErrOrStderr(), out)
	}
	key := a.book.Snapshot().CurrentWeek()
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", key, dates.FormatWeekRange(key))
	return nil
}
