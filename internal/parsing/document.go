// Package parsing extracts trade fields from recognized screenshot text using
// ordered, static rule tables. Everything here is pure.
package parsing

import (
	"strings"
	"time"

	"github.com/joseph-ayodele/pnl-tracker/constants"
)

// Document is the text of one recognized image. Confidence is the
// recognizer's own 0-100 score and is informational only.
type Document struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Lines      []string `json:"lines"`
}

// NewDocument splits text into its non-empty, trimmed lines.
func NewDocument(text string, confidence float64) Document {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return Document{Text: text, Confidence: confidence, Lines: lines}
}

// Field is one extracted value. Value is nil when no rule matched, in which
// case Confidence is low.
type Field[T any] struct {
	Value      *T                   `json:"value"`
	Confidence constants.Confidence `json:"confidence"`
	RawText    string               `json:"rawText,omitempty"`
}

// Found reports whether a rule produced a value.
func (f Field[T]) Found() bool { return f.Value != nil }

// FieldSet holds the six fields extracted from one document. Timestamp,
// Symbol and RealizedPnl are the critical fields.
type FieldSet struct {
	Timestamp   Field[time.Time]      `json:"timestamp"`
	Symbol      Field[string]         `json:"symbol"`
	Side        Field[constants.Side] `json:"side"`
	RealizedPnl Field[float64]        `json:"realizedPnl"`
	Fees        Field[float64]        `json:"fees"`
	ROI         Field[float64]        `json:"roi"`
}

// HasCritical reports whether every critical field was found.
func (fs FieldSet) HasCritical() bool {
	return fs.Timestamp.Found() && fs.Symbol.Found() && fs.RealizedPnl.Found()
}
