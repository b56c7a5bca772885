// Package metrics aggregates trades into weekly performance figures and
// chart series. All functions are pure and never retain their inputs.
package metrics

import (
	"sort"
	"time"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/dates"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
)

// DayPnl is the summed PnL of one calendar day.
type DayPnl struct {
	Date   string  `json:"date"`
	Pnl    float64 `json:"pnl"`
	Trades int     `json:"trades"`
}

// Weekly is the aggregate for one ISO week.
//
// ProfitFactor is gross wins over absolute gross losses. When there are wins
// but no losses it is reported as 0 with ProfitFactorUnbounded set.
type Weekly struct {
	WeekKey               string  `json:"weekKey"`
	WeekStart             string  `json:"weekStart"`
	WeekEnd               string  `json:"weekEnd"`
	NetPnl                float64 `json:"netPnl"`
	TotalTrades           int     `json:"totalTrades"`
	WinCount              int     `json:"winCount"`
	LossCount             int     `json:"lossCount"`
	WinRate               float64 `json:"winRate"`
	AvgWin                float64 `json:"avgWin"`
	AvgLoss               float64 `json:"avgLoss"`
	ProfitFactor          float64 `json:"profitFactor"`
	ProfitFactorUnbounded bool    `json:"profitFactorUnbounded"`
	MaxDrawdown           float64 `json:"maxDrawdown"`
	BestDay               *DayPnl `json:"bestDay"`
	WorstDay              *DayPnl `json:"worstDay"`
}

// InWeek returns the trades whose timestamp falls inside weekKey.
func InWeek(trades []entity.Trade, weekKey string) []entity.Trade {
	var out []entity.Trade
	for _, t := range trades {
		if dates.InWeek(t.Timestamp, weekKey) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// ComputeWeekly aggregates the trades of weekKey. It fails only for a
// malformed key.
func ComputeWeekly(trades []entity.Trade, weekKey string) (Weekly, error) {
	start, end, err := dates.WeekRange(weekKey)
	if err != nil {
		return Weekly{}, err
	}
	week := InWeek(trades, weekKey)

	m := Weekly{
		WeekKey:     weekKey,
		WeekStart:   dates.DateKey(start),
		WeekEnd:     dates.DateKey(end),
		TotalTrades: len(week),
	}

	var grossWin, grossLoss float64
	for _, t := range week {
		m.NetPnl += t.RealizedPnl
		switch t.Result {
		case constants.ResultWin:
			m.WinCount++
			grossWin += t.RealizedPnl
		case constants.ResultLoss:
			m.LossCount++
			grossLoss += t.RealizedPnl
		}
	}
	if grossLoss < 0 {
		grossLoss = -grossLoss
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinCount) / float64(m.TotalTrades) * 100
	}
	if m.WinCount > 0 {
		m.AvgWin = grossWin / float64(m.WinCount)
	}
	if m.LossCount > 0 {
		m.AvgLoss = grossLoss / float64(m.LossCount)
	}
	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossWin / grossLoss
	case grossWin > 0:
		m.ProfitFactorUnbounded = true
	}

	days := DailyPnl(week)
	m.MaxDrawdown = Drawdown(days)
	m.BestDay, m.WorstDay = extremes(days)
	return m, nil
}

// DailyPnl buckets trades by calendar day, ordered by date.
func DailyPnl(trades []entity.Trade) []DayPnl {
	byDay := make(map[string]*DayPnl)
	for _, t := range trades {
		key := dates.DateKey(t.Timestamp)
		d, ok := byDay[key]
		if !ok {
			d = &DayPnl{Date: key}
			byDay[key] = d
		}
		d.Pnl += t.RealizedPnl
		d.Trades++
	}
	out := make([]DayPnl, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Drawdown is the largest fall of the running daily total below its previous
// peak. The peak starts at zero, so a losing first day counts.
func Drawdown(days []DayPnl) float64 {
	var peak, cum, worst float64
	for _, d := range days {
		cum += d.Pnl
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > worst {
			worst = dd
		}
	}
	return worst
}

// extremes keeps the earliest day on ties.
func extremes(days []DayPnl) (best, worst *DayPnl) {
	if len(days) == 0 {
		return nil, nil
	}
	b, w := days[0], days[0]
	for _, d := range days[1:] {
		if d.Pnl > b.Pnl {
			b = d
		}
		if d.Pnl < w.Pnl {
			w = d
		}
	}
	return &b, &w
}

// EquityPoint is the running total at the end of a day.
type EquityPoint struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}

// EquityCurve accumulates PnL in timestamp order and keeps one point per day.
func EquityCurve(trades []entity.Trade) []EquityPoint {
	sorted := entity.CloneTrades(trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var out []EquityPoint
	var cum float64
	for _, t := range sorted {
		cum += t.RealizedPnl
		key := dates.DateKey(t.Timestamp)
		if n := len(out); n > 0 && out[n-1].Date == key {
			out[n-1].Equity = cum
			continue
		}
		out = append(out, EquityPoint{Date: key, Equity: cum})
	}
	return out
}

// SeriesWeeks is the length of the trailing weekly chart series.
const SeriesWeeks = 12

// WeekPnl is one bar of the weekly net PnL chart.
type WeekPnl struct {
	Week  string  `json:"week"`
	Pnl   float64 `json:"pnl"`
	Label string  `json:"label"`
}

// WeekWinLoss is one bar of the weekly win/loss chart.
type WeekWinLoss struct {
	Week   string `json:"week"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Label  string `json:"label"`
}

// WeeklyPnlSeries returns net PnL for the trailing weeks ending with the current one.
func WeeklyPnlSeries(trades []entity.Trade) []WeekPnl {
	return weeklyPnlSeriesAt(trades, time.Now())
}

// WeeklyWinLossSeries returns win and loss counts for the trailing weeks.
func WeeklyWinLossSeries(trades []entity.Trade) []WeekWinLoss {
	return weeklyWinLossSeriesAt(trades, time.Now())
}

func weeklyPnlSeriesAt(trades []entity.Trade, now time.Time) []WeekPnl {
	keys := dates.LastWeeks(SeriesWeeks, now)
	out := make([]WeekPnl, 0, len(keys))
	for _, key := range keys {
		var pnl float64
		for _, t := range trades {
			if dates.InWeek(t.Timestamp, key) {
				pnl += t.RealizedPnl
			}
		}
		out = append(out, WeekPnl{Week: key, Pnl: pnl, Label: dates.FormatWeekShort(key)})
	}
	return out
}

func weeklyWinLossSeriesAt(trades []entity.Trade, now time.Time) []WeekWinLoss {
	keys := dates.LastWeeks(SeriesWeeks, now)
	out := make([]WeekWinLoss, 0, len(keys))
	for _, key := range keys {
		p := WeekWinLoss{Week: key, Label: dates.FormatWeekShort(key)}
		for _, t := range trades {
			if !dates.InWeek(t.Timestamp, key) {
				continue
			}
			switch t.Result {
			case constants.ResultWin:
				p.Wins++
			case constants.ResultLoss:
				p.Losses++
			}
		}
		out = append(out, p)
	}
	return out
}
