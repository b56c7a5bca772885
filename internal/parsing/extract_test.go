package parsing

import (
	"testing"
	"time"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const closeSummary = "BTCUSDT Perpetual\nDate: 2024-01-08 14:32:15\nRealized PNL: +1129.50 USDT\nROI: +2.68%\nTrading Fee: -8.45 USDT"

func TestNewDocument(t *testing.T) {
	doc := NewDocument("  first \r\n\n\t\nsecond\n", 87.5)
	assert.Equal(t, []string{"first", "second"}, doc.Lines)
	assert.Equal(t, 87.5, doc.Confidence)
}

func TestExtractFields_CloseSummary(t *testing.T) {
	fs := ExtractFields(NewDocument(closeSummary, 90))

	require.NotNil(t, fs.Timestamp.Value)
	assert.Equal(t, time.Date(2024, 1, 8, 14, 32, 15, 0, time.UTC), *fs.Timestamp.Value)
	assert.Equal(t, constants.ConfidenceHigh, fs.Timestamp.Confidence)

	require.NotNil(t, fs.Symbol.Value)
	assert.Equal(t, "BTCUSDT", *fs.Symbol.Value)
	assert.Equal(t, constants.ConfidenceHigh, fs.Symbol.Confidence)

	require.NotNil(t, fs.RealizedPnl.Value)
	assert.InDelta(t, 1129.50, *fs.RealizedPnl.Value, 1e-9)
	assert.Equal(t, constants.ConfidenceHigh, fs.RealizedPnl.Confidence)

	require.NotNil(t, fs.ROI.Value)
	assert.InDelta(t, 2.68, *fs.ROI.Value, 1e-9)
	assert.Equal(t, constants.ConfidenceHigh, fs.ROI.Confidence)

	require.NotNil(t, fs.Fees.Value)
	assert.InDelta(t, -8.45, *fs.Fees.Value, 1e-9)
	assert.Equal(t, constants.ConfidenceHigh, fs.Fees.Confidence)

	assert.Nil(t, fs.Side.Value)
	assert.Equal(t, constants.ConfidenceLow, fs.Side.Confidence)

	assert.Equal(t, constants.ConfidenceHigh, OverallConfidence(fs))
	assert.False(t, NeedsReview(fs))
}

func TestExtractFields_RealizedPnlNearKeyword(t *testing.T) {
	fs := ExtractFields(NewDocument("ETHUSDT\nRealized PnL: +125.50 USDT", 0))
	require.NotNil(t, fs.RealizedPnl.Value)
	assert.InDelta(t, 125.50, *fs.RealizedPnl.Value, 1e-9)
	assert.Equal(t, constants.ConfidenceHigh, fs.RealizedPnl.Confidence)
}

func TestExtractFields_DemotesWithoutKeyword(t *testing.T) {
	text := "SOLUSDT\n\n2024-02-01 09:00\nfiller one\nfiller two\nfiller three\n+42.10 USDT"
	fs := ExtractFields(NewDocument(text, 0))

	require.NotNil(t, fs.Timestamp.Value)
	assert.Equal(t, constants.ConfidenceMedium, fs.Timestamp.Confidence)
	require.NotNil(t, fs.RealizedPnl.Value)
	assert.InDelta(t, 42.10, *fs.RealizedPnl.Value, 1e-9)
	assert.Equal(t, constants.ConfidenceMedium, fs.RealizedPnl.Confidence)

	assert.Equal(t, constants.ConfidenceMedium, OverallConfidence(fs))
	assert.False(t, NeedsReview(fs))
}

func TestExtractFields_BarePercentageIsLow(t *testing.T) {
	fs := ExtractFields(NewDocument("gain 12.5%", 0))
	require.NotNil(t, fs.ROI.Value)
	assert.InDelta(t, 12.5, *fs.ROI.Value, 1e-9)
	assert.Equal(t, constants.ConfidenceLow, fs.ROI.Confidence)
}

func TestExtractFields_Symbols(t *testing.T) {
	tests := []struct {
		text string
		want string
		conf constants.Confidence
	}{
		{"ethusdt closed", "ETHUSDT", constants.ConfidenceHigh},
		{"Pair: BTCUSD", "BTCUSD", constants.ConfidenceHigh},
		{"SOL-PERP", "SOLUSDT", constants.ConfidenceMedium},
		{"ARB/ETH", "ARBETH", constants.ConfidenceMedium},
	}
	for _, tt := range tests {
		fs := ExtractFields(NewDocument(tt.text, 0))
		require.NotNil(t, fs.Symbol.Value, tt.text)
		assert.Equal(t, tt.want, *fs.Symbol.Value, tt.text)
		assert.Equal(t, tt.conf, fs.Symbol.Confidence, tt.text)
	}
}

func TestExtractFields_Side(t *testing.T) {
	long := ExtractFields(NewDocument("Open Long BTCUSDT", 0))
	require.NotNil(t, long.Side.Value)
	assert.Equal(t, constants.SideLong, *long.Side.Value)

	short := ExtractFields(NewDocument("Close Short\nSell", 0))
	require.NotNil(t, short.Side.Value)
	assert.Equal(t, constants.SideShort, *short.Side.Value)
}

func TestExtractFields_PnlVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"thousands separator", "Net PnL\n+1,234.56 USDT", 1234.56},
		{"spaced sign", "Profit - 12.5 USD", -12.5},
		{"parenthesized loss", "Loss (37.20)", -37.20},
		{"label only", "PNL: -3.5", -3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := ExtractFields(NewDocument(tt.text, 0))
			require.NotNil(t, fs.RealizedPnl.Value)
			assert.InDelta(t, tt.want, *fs.RealizedPnl.Value, 1e-9)
		})
	}
}

func TestExtractFields_ZeroPnlIsFound(t *testing.T) {
	fs := ExtractFields(NewDocument("Realized PNL: 0.00 USDT", 0))
	require.NotNil(t, fs.RealizedPnl.Value)
	assert.Zero(t, *fs.RealizedPnl.Value)
}

func TestExtractFields_Nothing(t *testing.T) {
	fs := ExtractFields(NewDocument("hello world\nnothing to see", 12))
	assert.Nil(t, fs.Timestamp.Value)
	assert.Nil(t, fs.Symbol.Value)
	assert.Nil(t, fs.RealizedPnl.Value)
	assert.Equal(t, constants.ConfidenceLow, OverallConfidence(fs))
	assert.True(t, NeedsReview(fs))
}

func TestNeedsReview_MissingCriticalEvenIfOthersHigh(t *testing.T) {
	fs := ExtractFields(NewDocument("BTCUSDT\nRealized PNL: +10 USDT", 0))
	assert.Nil(t, fs.Timestamp.Value)
	assert.True(t, NeedsReview(fs))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"+1,129.50", 1129.5, true},
		{"- 8.45", -8.45, true},
		{"12.", 12, true},
		{",", 0, false},
		{"-", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}
