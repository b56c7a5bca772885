package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/common"
	"github.com/joseph-ayodele/pnl-tracker/internal/dates"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
)

const closeSummary = "BTCUSDT Perpetual\nDate: 2024-01-08 14:32:15\nRealized PNL: +1129.50 USDT\nROI: +2.68%\nTrading Fee: -8.45 USDT"

// setupCLI points the CLI at a fresh sqlite file with no remote store.
func setupCLI(t *testing.T) {
	t.Helper()
	t.Setenv("LOCAL_DB_PATH", filepath.Join(t.TempDir(), "pnl.db"))
	t.Setenv("DB_URL", "")
	t.Setenv("DUPLICATE_ACTION", "skip")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
}

// resetFlags restores every flag to its default so runs do not leak into
// each other through the package-level command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errb bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	err := rootCmd.Execute()
	return out.String(), err
}

func listTrades(t *testing.T) []entity.Trade {
	t.Helper()
	out, err := run(t, "", "trades", "list", "--format", "json")
	require.NoError(t, err)
	var list []entity.Trade
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	return list
}

func TestParseStdin(t *testing.T) {
	setupCLI(t)

	out, err := run(t, closeSummary, "parse")
	require.NoError(t, err)

	var results []struct {
		NeedsReview bool          `json:"needsReview"`
		Trade       *entity.Trade `json:"trade"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Trade)
	assert.False(t, results[0].NeedsReview)
	assert.Equal(t, "BTCUSDT", results[0].Trade.Symbol)
	assert.InDelta(t, 1129.50, results[0].Trade.RealizedPnl, 1e-9)
	assert.Equal(t, "stdin", results[0].Trade.SourceImageID)

	assert.Empty(t, listTrades(t), "parse without --add records nothing")
}

func TestParseStdinAdd(t *testing.T) {
	setupCLI(t)

	_, err := run(t, closeSummary, "parse", "--add")
	require.NoError(t, err)
	list := listTrades(t)
	require.Len(t, list, 1)
	assert.Equal(t, "BTCUSDT", list[0].Symbol)

	// the same screenshot text again is a duplicate and DUPLICATE_ACTION=skip
	_, err = run(t, closeSummary, "parse", "--add")
	require.NoError(t, err)
	assert.Len(t, listTrades(t), 1)
}

func TestTradesAddWithTime(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "", "trades", "add",
		"--symbol", "ethusdt", "--side", "short", "--pnl=-12.5", "--time", "2024-01-09 10:00")
	require.NoError(t, err)
	id, err := uuid.Parse(strings.TrimSpace(out))
	require.NoError(t, err)

	list := listTrades(t)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "ETHUSDT", got.Symbol)
	assert.Equal(t, constants.SideShort, got.Side)
	assert.Equal(t, time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC), got.Timestamp.UTC())
	assert.Equal(t, constants.ResultLoss, got.Result)
	assert.False(t, got.NeedsReview)
}

func TestTradesAddWithoutTimeUsesNow(t *testing.T) {
	setupCLI(t)

	_, err := run(t, "", "trades", "add", "--symbol", "SOLUSDT", "--pnl", "3")
	require.NoError(t, err)

	list := listTrades(t)
	require.Len(t, list, 1)
	assert.WithinDuration(t, time.Now(), list[0].Timestamp, time.Minute)
	assert.Equal(t, constants.SideUnknown, list[0].Side)
}

func TestTradesAddInvalid(t *testing.T) {
	setupCLI(t)

	_, err := run(t, "", "trades", "add", "--pnl", "3")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = run(t, "", "trades", "add", "--symbol", "BTCUSDT", "--pnl", "3", "--time", "someday")
	assert.Error(t, err)
	assert.Empty(t, listTrades(t))
}

func TestTradesEditKeepsUnsetFields(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "", "trades", "add",
		"--symbol", "BTCUSDT", "--side", "long", "--pnl=-20", "--fees=-1.5",
		"--remarks", "late entry", "--time", "2024-01-08 14:32")
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	_, err = run(t, "", "trades", "edit", id, "--pnl", "45")
	require.NoError(t, err)

	list := listTrades(t)
	require.Len(t, list, 1)
	got := list[0]
	assert.InDelta(t, 45, got.RealizedPnl, 1e-9)
	assert.Equal(t, constants.ResultWin, got.Result)
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.Equal(t, constants.SideLong, got.Side)
	require.NotNil(t, got.Fees)
	assert.InDelta(t, -1.5, *got.Fees, 1e-9)
	assert.Equal(t, "late entry", got.Remarks)
	assert.Equal(t, time.Date(2024, 1, 8, 14, 32, 0, 0, time.UTC), got.Timestamp.UTC())

	_, err = run(t, "", "trades", "edit", uuid.NewString(), "--pnl", "1")
	assert.Error(t, err)
}

func TestTradesDeleteAndClear(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "", "trades", "add", "--symbol", "BTCUSDT", "--pnl", "1")
	require.NoError(t, err)
	_, err = run(t, "", "trades", "add", "--symbol", "ETHUSDT", "--pnl", "2")
	require.NoError(t, err)

	_, err = run(t, "", "trades", "delete", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, listTrades(t), 1)

	_, err = run(t, "", "trades", "clear")
	assert.Error(t, err)
	_, err = run(t, "", "trades", "clear", "--yes")
	require.NoError(t, err)
	assert.Empty(t, listTrades(t))
}

func TestWeek(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "", "week", "2024-W02")
	require.NoError(t, err)
	assert.Equal(t, "2024-W02 (Jan 8 - Jan 14, 2024)\n", out)

	out, err = run(t, "", "week")
	require.NoError(t, err)
	assert.Equal(t, "2024-W02 (Jan 8 - Jan 14, 2024)\n", out)

	_, err = run(t, "", "week", "2024-W60")
	assert.ErrorIs(t, err, common.ErrInvalidWeekKey)
}

func TestWeekList(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "", "week", "--list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, weekOptionCount)
	assert.True(t, strings.HasPrefix(lines[0], dates.WeekKey(time.Now())), lines[0])
}
