package parsing

import (
	"strings"

	"github.com/joseph-ayodele/pnl-tracker/constants"
)

// ExtractFields runs every rule table over doc. A field no rule matches is
// left empty; extraction itself never fails.
func ExtractFields(doc Document) FieldSet {
	return FieldSet{
		Timestamp:   scanLines(doc.Lines, TimestampRules, Anchors.Date),
		Symbol:      matchText(doc.Text, SymbolRules),
		Side:        matchText(doc.Text, SideRules),
		RealizedPnl: scanLines(doc.Lines, PnlRules, Anchors.Pnl),
		Fees:        matchText(doc.Text, FeeRules),
		ROI:         scanLines(doc.Lines, RoiRules, nil),
	}
}

// firstMatch tries rules in order against s and keeps the first extraction
// that succeeds.
func firstMatch[T any](rules []Rule[T], s string) (Field[T], bool) {
	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		v, ok := r.Extract(m)
		if !ok {
			continue
		}
		return Field[T]{Value: &v, Confidence: r.Confidence, RawText: m[0]}, true
	}
	return Field[T]{}, false
}

func matchText[T any](text string, rules []Rule[T]) Field[T] {
	f, _ := firstMatch(rules, text)
	return f
}

// scanLines returns the first line-level match. With anchors set, a match
// with no keyword within keywordWindow lines is demoted one level.
func scanLines[T any](lines []string, rules []Rule[T], anchors []string) Field[T] {
	for i, line := range lines {
		f, ok := firstMatch(rules, line)
		if !ok {
			continue
		}
		if anchors != nil && !nearKeyword(lines, anchors, i) {
			f.Confidence = f.Confidence.Lower()
		}
		return f
	}
	return Field[T]{}
}

func nearKeyword(lines []string, keywords []string, at int) bool {
	start := max(0, at-keywordWindow)
	end := min(len(lines), at+keywordWindow+1)
	for _, line := range lines[start:end] {
		l := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(l, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

// OverallConfidence is high when every critical field is high, low when any
// is low, and medium otherwise.
func OverallConfidence(fs FieldSet) constants.Confidence {
	critical := []constants.Confidence{
		fs.Timestamp.Confidence,
		fs.Symbol.Confidence,
		fs.RealizedPnl.Confidence,
	}
	overall := constants.ConfidenceHigh
	for _, c := range critical {
		if c == constants.ConfidenceLow {
			return constants.ConfidenceLow
		}
		if c < overall {
			overall = c
		}
	}
	return overall
}

// NeedsReview is true when a critical field is missing or the overall
// confidence is low.
func NeedsReview(fs FieldSet) bool {
	return !fs.HasCritical() || OverallConfidence(fs) == constants.ConfidenceLow
}
