package metrics

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPnl renders a signed amount with two decimals: "+1129.50 USDT".
func FormatPnl(v float64) string {
	d := decimal.NewFromFloat(v)
	prefix := ""
	if !d.IsNegative() {
		prefix = "+"
	}
	return prefix + d.StringFixed(2) + " USDT"
}

// FormatPercentage renders one decimal place: "62.5%".
func FormatPercentage(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// FormatProfitFactor renders the weekly profit factor, "∞" when unbounded.
func FormatProfitFactor(w Weekly) string {
	if w.ProfitFactorUnbounded {
		return "∞"
	}
	return decimal.NewFromFloat(w.ProfitFactor).StringFixed(2)
}

// ShareSummary is a plain-text weekly report suitable for pasting into chat.
func ShareSummary(w Weekly) string {
	return strings.Join([]string{
		"PnL Weekly Report",
		"Week: " + w.WeekKey,
		"",
		"Net PnL: " + FormatPnl(w.NetPnl),
		"Win Rate: " + FormatPercentage(w.WinRate),
		fmt.Sprintf("Total Trades: %d", w.TotalTrades),
		"Profit Factor: " + FormatProfitFactor(w),
	}, "\n")
}
