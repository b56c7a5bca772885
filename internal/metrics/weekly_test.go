package metrics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/common"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(day, hour int, pnl float64) entity.Trade {
	return entity.Trade{
		ID:          uuid.New(),
		Timestamp:   time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC),
		Symbol:      "BTCUSDT",
		RealizedPnl: pnl,
		Result:      constants.ResultFor(pnl),
	}
}

func TestComputeWeekly_Empty(t *testing.T) {
	m, err := ComputeWeekly(nil, "2024-W02")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", m.WeekStart)
	assert.Equal(t, "2024-01-14", m.WeekEnd)
	assert.Zero(t, m.NetPnl)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitFactor)
	assert.False(t, m.ProfitFactorUnbounded)
	assert.Zero(t, m.MaxDrawdown)
	assert.Nil(t, m.BestDay)
	assert.Nil(t, m.WorstDay)
}

func TestComputeWeekly_InvalidKey(t *testing.T) {
	_, err := ComputeWeekly(nil, "2024-W99")
	assert.ErrorIs(t, err, common.ErrInvalidWeekKey)
}

func TestComputeWeekly_Drawdown(t *testing.T) {
	trades := []entity.Trade{trade(8, 10, 100), trade(9, 10, -40), trade(10, 10, 20)}
	m, err := ComputeWeekly(trades, "2024-W02")
	require.NoError(t, err)

	assert.InDelta(t, 40, m.MaxDrawdown, 1e-9)
	assert.InDelta(t, 80, m.NetPnl, 1e-9)
	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinCount)
	assert.Equal(t, 1, m.LossCount)
	assert.InDelta(t, 66.666, m.WinRate, 0.001)
	assert.InDelta(t, 60, m.AvgWin, 1e-9)
	assert.InDelta(t, 40, m.AvgLoss, 1e-9)
	assert.InDelta(t, 3, m.ProfitFactor, 1e-9)
	require.NotNil(t, m.BestDay)
	assert.Equal(t, "2024-01-08", m.BestDay.Date)
	require.NotNil(t, m.WorstDay)
	assert.Equal(t, "2024-01-09", m.WorstDay.Date)
}

func TestComputeWeekly_ProfitFactor(t *testing.T) {
	m, err := ComputeWeekly([]entity.Trade{trade(8, 1, 200), trade(8, 2, 100), trade(9, 1, -150)}, "2024-W02")
	require.NoError(t, err)
	assert.Equal(t, 2.0, m.ProfitFactor)
	assert.Equal(t, "2.00", FormatProfitFactor(m))

	m, err = ComputeWeekly([]entity.Trade{trade(8, 1, 200)}, "2024-W02")
	require.NoError(t, err)
	assert.Zero(t, m.ProfitFactor)
	assert.True(t, m.ProfitFactorUnbounded)
	assert.Equal(t, "∞", FormatProfitFactor(m))
}

func TestComputeWeekly_FirstDayLossCountsAsDrawdown(t *testing.T) {
	m, err := ComputeWeekly([]entity.Trade{trade(8, 1, -30), trade(9, 1, 10)}, "2024-W02")
	require.NoError(t, err)
	assert.InDelta(t, 30, m.MaxDrawdown, 1e-9)
}

func TestComputeWeekly_FiltersOtherWeeks(t *testing.T) {
	trades := []entity.Trade{trade(7, 23, 500), trade(8, 0, 10), trade(14, 23, 5), trade(15, 0, 700)}
	m, err := ComputeWeekly(trades, "2024-W02")
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalTrades)
	assert.InDelta(t, 15, m.NetPnl, 1e-9)
}

func TestComputeWeekly_BreakevenCountsOnlyInTotal(t *testing.T) {
	m, err := ComputeWeekly([]entity.Trade{trade(8, 1, 0), trade(8, 2, 10)}, "2024-W02")
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalTrades)
	assert.Equal(t, 1, m.WinCount)
	assert.Equal(t, 0, m.LossCount)
	assert.InDelta(t, 50, m.WinRate, 1e-9)
}

func TestDailyPnl_TiesKeepEarliestExtreme(t *testing.T) {
	days := DailyPnl([]entity.Trade{trade(10, 1, 5), trade(8, 1, 5), trade(8, 5, 0), trade(9, 1, 5)})
	require.Len(t, days, 3)
	assert.Equal(t, "2024-01-08", days[0].Date)
	assert.Equal(t, 2, days[0].Trades)

	best, worst := extremes(days)
	assert.Equal(t, "2024-01-08", best.Date)
	assert.Equal(t, "2024-01-08", worst.Date)
}

func TestEquityCurve(t *testing.T) {
	curve := EquityCurve([]entity.Trade{trade(9, 12, -20), trade(8, 9, 50), trade(8, 18, 25), trade(11, 1, 5)})
	assert.Equal(t, []EquityPoint{
		{Date: "2024-01-08", Equity: 75},
		{Date: "2024-01-09", Equity: 55},
		{Date: "2024-01-11", Equity: 60},
	}, curve)
	assert.Empty(t, EquityCurve(nil))
}

func TestEquityCurve_DoesNotReorderInput(t *testing.T) {
	in := []entity.Trade{trade(9, 1, 1), trade(8, 1, 1)}
	first := in[0].ID
	EquityCurve(in)
	assert.Equal(t, first, in[0].ID)
}

func TestWeeklySeries(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	trades := []entity.Trade{trade(8, 1, 30), trade(9, 1, -10), trade(2, 1, 7)}

	pnl := weeklyPnlSeriesAt(trades, now)
	require.Len(t, pnl, SeriesWeeks)
	last := pnl[len(pnl)-1]
	assert.Equal(t, "2024-W02", last.Week)
	assert.Equal(t, "Jan 8", last.Label)
	assert.InDelta(t, 20, last.Pnl, 1e-9)
	assert.InDelta(t, 7, pnl[len(pnl)-2].Pnl, 1e-9)
	assert.Zero(t, pnl[0].Pnl)

	wl := weeklyWinLossSeriesAt(trades, now)
	require.Len(t, wl, SeriesWeeks)
	assert.Equal(t, 1, wl[SeriesWeeks-1].Wins)
	assert.Equal(t, 1, wl[SeriesWeeks-1].Losses)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "+1129.50 USDT", FormatPnl(1129.5))
	assert.Equal(t, "-8.45 USDT", FormatPnl(-8.45))
	assert.Equal(t, "+0.00 USDT", FormatPnl(0))
	assert.Equal(t, "66.7%", FormatPercentage(66.666))
}

func TestShareSummary(t *testing.T) {
	m, err := ComputeWeekly([]entity.Trade{trade(8, 1, 200), trade(9, 1, -100)}, "2024-W02")
	require.NoError(t, err)
	s := ShareSummary(m)
	assert.Contains(t, s, "Week: 2024-W02")
	assert.Contains(t, s, "Net PnL: +100.00 USDT")
	assert.Contains(t, s, "Win Rate: 50.0%")
	assert.Contains(t, s, "Total Trades: 2")
	assert.Contains(t, s, "Profit Factor: 2.00")
}
