package parsing

import (
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/dates"
	"github.com/shopspring/decimal"
)

// Rule is one (pattern, extractor, confidence) entry. Extract receives the
// submatches of Pattern and may reject them, in which case the next rule is tried.
type Rule[T any] struct {
	Name       string
	Pattern    *regexp.Regexp
	Extract    func(m []string) (T, bool)
	Confidence constants.Confidence
}

// KeywordAnchors are the labels searched for near a candidate line.
type KeywordAnchors struct {
	Pnl    []string
	ROI    []string
	Fee    []string
	Symbol []string
	Date   []string
}

// Anchors is the fixed keyword table. Only Date and Pnl affect confidence.
var Anchors = KeywordAnchors{
	Pnl:    []string{"PNL", "P&L", "Profit", "Loss", "Realized", "Net"},
	ROI:    []string{"ROI", "Return", "%"},
	Fee:    []string{"Fee", "Fees", "Commission"},
	Symbol: []string{"Pair", "Symbol", "Contract", "Asset"},
	Date:   []string{"Date", "Time", "Closed", "Close"},
}

// keywordWindow is how many lines above and below a candidate are searched.
const keywordWindow = 2

const amount = `([+-]?\s*[\d,]+\.?\d*)`

var TimestampRules = []Rule[time.Time]{
	{
		Name:       "iso",
		Pattern:    regexp.MustCompile(`(\d{4}-\d{2}-\d{2}[\sT]\d{2}:\d{2}(?::\d{2})?)`),
		Extract:    parseDate,
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "slash",
		Pattern:    regexp.MustCompile(`(\d{2}/\d{2}/\d{4}\s+\d{2}:\d{2})`),
		Extract:    parseDate,
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "ymd slash",
		Pattern:    regexp.MustCompile(`(\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2})`),
		Extract:    parseDate,
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "day first",
		Pattern:    regexp.MustCompile(`(\d{2}-\d{2}-\d{4}\s+\d{2}:\d{2})`),
		Extract:    parseDate,
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "month name",
		Pattern:    regexp.MustCompile(`(?i)\b([A-Z]{3,9}\.?\s+\d{1,2},?\s+\d{4}(?:\s+\d{1,2}:\d{2}(?::\d{2})?)?)`),
		Extract:    parseDate,
		Confidence: constants.ConfidenceMedium,
	},
	{
		Name:       "short date",
		Pattern:    regexp.MustCompile(`(\d{2}-\d{2}-\d{4})`),
		Extract:    parseDate,
		Confidence: constants.ConfidenceMedium,
	},
}

var SymbolRules = []Rule[string]{
	{
		Name:       "usdt pair",
		Pattern:    regexp.MustCompile(`(?i)([A-Z]{2,10}USDT)`),
		Extract:    func(m []string) (string, bool) { return strings.ToUpper(m[1]), true },
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "usd pair",
		Pattern:    regexp.MustCompile(`(?i)([A-Z]{2,10}USD)\b`),
		Extract:    func(m []string) (string, bool) { return strings.ToUpper(m[1]), true },
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "perpetual",
		Pattern:    regexp.MustCompile(`(?i)([A-Z]{2,10})[\s/-]?(PERP|PERPETUAL)`),
		Extract:    func(m []string) (string, bool) { return strings.ToUpper(m[1]) + "USDT", true },
		Confidence: constants.ConfidenceMedium,
	},
	{
		Name:       "slash pair",
		Pattern:    regexp.MustCompile(`(?i)([A-Z]{2,10})/([A-Z]{2,5})`),
		Extract:    func(m []string) (string, bool) { return strings.ToUpper(m[1] + m[2]), true },
		Confidence: constants.ConfidenceMedium,
	},
}

var SideRules = []Rule[constants.Side]{
	{
		Name:       "long",
		Pattern:    regexp.MustCompile(`(?i)\b(LONG|Buy|Open\s+Long)\b`),
		Extract:    func([]string) (constants.Side, bool) { return constants.SideLong, true },
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "short",
		Pattern:    regexp.MustCompile(`(?i)\b(SHORT|Sell|Open\s+Short)\b`),
		Extract:    func([]string) (constants.Side, bool) { return constants.SideShort, true },
		Confidence: constants.ConfidenceHigh,
	},
}

var PnlRules = []Rule[float64]{
	{
		Name:       "signed amount",
		Pattern:    regexp.MustCompile(`(?i)` + amount + `\s*(?:USDT|USD)`),
		Extract:    amountAt(1),
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:    "parenthesized loss",
		Pattern: regexp.MustCompile(`(?i)\((\d+\.?\d*)\)\s*(?:USDT|USD)?`),
		Extract: func(m []string) (float64, bool) {
			v, ok := parseAmount(m[1])
			return -v, ok
		},
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "pnl label",
		Pattern:    regexp.MustCompile(`(?i)PNL[:\s]+` + amount),
		Extract:    amountAt(1),
		Confidence: constants.ConfidenceMedium,
	},
	{
		Name:       "realized label",
		Pattern:    regexp.MustCompile(`(?i)Realized\s+(?:PnL|P&L|Profit)[:\s]+` + amount),
		Extract:    amountAt(1),
		Confidence: constants.ConfidenceHigh,
	},
}

var RoiRules = []Rule[float64]{
	{
		Name:       "roi label",
		Pattern:    regexp.MustCompile(`(?i)ROI[:\s]+` + amount + `\s*%`),
		Extract:    amountAt(1),
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "return label",
		Pattern:    regexp.MustCompile(`(?i)Return[:\s]+` + amount + `\s*%`),
		Extract:    amountAt(1),
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "bare percentage",
		Pattern:    regexp.MustCompile(`([+-]?\d+\.?\d*)\s*%`),
		Extract:    amountAt(1),
		Confidence: constants.ConfidenceLow,
	},
}

var FeeRules = []Rule[float64]{
	{
		Name:       "fee label",
		Pattern:    regexp.MustCompile(`(?i)Fee[s]?[:\s]+` + amount + `\s*(?:USDT|USD)?`),
		Extract:    amountAt(1),
		Confidence: constants.ConfidenceHigh,
	},
	{
		Name:       "trading fee",
		Pattern:    regexp.MustCompile(`(?i)Trading\s+Fee[:\s]+` + amount),
		Extract:    amountAt(1),
		Confidence: constants.ConfidenceHigh,
	},
}

var reAmountNoise = regexp.MustCompile(`[,\s]`)

// parseAmount reads a signed decimal after dropping thousands separators and
// whitespace ("+ 1,129.50" -> 1129.5).
func parseAmount(s string) (float64, bool) {
	s = reAmountNoise.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimPrefix(s, "+"), ".")
	if s == "" || s == "-" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

func amountAt(group int) func([]string) (float64, bool) {
	return func(m []string) (float64, bool) {
		return parseAmount(m[group])
	}
}

func parseDate(m []string) (time.Time, bool) {
	return dates.ParseFlexible(m[1])
}
