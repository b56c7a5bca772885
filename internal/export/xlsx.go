package export

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pnl-tracker/internal/dates"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
	"github.com/joseph-ayodele/pnl-tracker/internal/metrics"
)

const (
	tradesSheet = "Trades"
	weeklySheet = "Weekly"
)

// TradesXLSX returns a workbook with one row per trade, newest first, and a
// weekly summary sheet covering every week that has trades.
func TradesXLSX(trades []entity.Trade) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for _, sheet := range []string{tradesSheet, weeklySheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("xlsx sheet %s: %w", sheet, err)
		}
	}
	idx, _ := f.GetSheetIndex(tradesSheet)
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	sorted := entity.CloneTrades(trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })

	writeRow(f, tradesSheet, 1, "Date", "Symbol", "Side", "Realized PnL", "Fees", "ROI %", "Result", "Needs Review", "Confidence", "Remarks", "ID")
	for i, t := range sorted {
		row := i + 2
		writeRow(f, tradesSheet, row,
			t.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			t.Symbol,
			string(t.Side),
			amount(t.RealizedPnl),
			optionalAmount(t.Fees),
			optionalAmount(t.ROI),
			string(t.Result),
			t.NeedsReview,
			t.Confidence.Overall.String(),
			t.Remarks,
			t.ID.String(),
		)
	}
	if n := len(sorted); n > 0 {
		_ = f.SetCellStyle(tradesSheet, "D2", fmt.Sprintf("F%d", n+1), money)
	}
	_ = f.SetColWidth(tradesSheet, "A", "A", 20)
	_ = f.SetColWidth(tradesSheet, "B", "B", 14)
	_ = f.SetColWidth(tradesSheet, "D", "F", 14)
	_ = f.SetColWidth(tradesSheet, "J", "J", 40)
	_ = f.SetColWidth(tradesSheet, "K", "K", 38)

	writeRow(f, weeklySheet, 1, "Week", "Range", "Net PnL", "Trades", "Wins", "Losses", "Win Rate %", "Profit Factor", "Max Drawdown")
	for i, key := range weekKeys(sorted) {
		m, err := metrics.ComputeWeekly(sorted, key)
		if err != nil {
			return nil, fmt.Errorf("weekly metrics %s: %w", key, err)
		}
		writeRow(f, weeklySheet, i+2,
			key,
			dates.FormatWeekRange(key),
			amount(m.NetPnl),
			m.TotalTrades,
			m.WinCount,
			m.LossCount,
			amount(m.WinRate),
			metrics.FormatProfitFactor(m),
			amount(m.MaxDrawdown),
		)
	}
	_ = f.SetColWidth(weeklySheet, "B", "B", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

// amount rounds to cents so the sheet never shows float noise.
func amount(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func optionalAmount(p *float64) any {
	if p == nil {
		return ""
	}
	return amount(*p)
}

// weekKeys lists the distinct weeks of trades, newest first.
func weekKeys(trades []entity.Trade) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, t := range trades {
		k := dates.WeekKey(t.Timestamp)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}
