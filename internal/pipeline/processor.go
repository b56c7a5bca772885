// Package pipeline runs one screenshot through recognition, field extraction
// and trade assembly.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
	"github.com/joseph-ayodele/pnl-tracker/internal/parsing"
	"github.com/joseph-ayodele/pnl-tracker/internal/trades"
)

// Recognizer turns an image into text. *ocr.Tesseract satisfies it.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (parsing.Document, error)
}

// Result is everything learned from one document. Trade is nil when a
// critical field could not be found.
type Result struct {
	Document    parsing.Document     `json:"document"`
	Fields      parsing.FieldSet     `json:"fields"`
	Overall     constants.Confidence `json:"overall"`
	NeedsReview bool                 `json:"needsReview"`
	Trade       *entity.Trade        `json:"trade,omitempty"`
}

// Processor coordinates recognition then extraction.
type Processor struct {
	logger     *slog.Logger
	recognizer Recognizer
	metrics    *Metrics
}

func NewProcessor(logger *slog.Logger, recognizer Recognizer, metrics *Metrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Processor{logger: logger, recognizer: recognizer, metrics: metrics}
}

// ProcessImage recognizes the image at path and extracts a trade from it.
// The file's base name becomes the trade's source image id.
func (p *Processor) ProcessImage(ctx context.Context, path string) (Result, error) {
	if p.recognizer == nil {
		return Result{}, fmt.Errorf("no recognizer configured")
	}
	start := time.Now()
	doc, err := p.recognizer.Recognize(ctx, path)
	p.metrics.RecognizeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.Documents.WithLabelValues(OutcomeFailed).Inc()
		p.logger.Error("pipeline.recognize.failed", "path", path, "error", err)
		return Result{}, fmt.Errorf("recognize %s: %w", filepath.Base(path), err)
	}
	p.logger.Info("pipeline.recognize.ok",
		"path", path,
		"lines", len(doc.Lines),
		"confidence", doc.Confidence,
	)
	return p.process(doc, filepath.Base(path)), nil
}

// ProcessText extracts a trade from already recognized text.
func (p *Processor) ProcessText(text string, confidence float64, sourceID string) Result {
	return p.process(parsing.NewDocument(text, confidence), sourceID)
}

func (p *Processor) process(doc parsing.Document, sourceID string) Result {
	fs := parsing.ExtractFields(doc)
	res := Result{
		Document:    doc,
		Fields:      fs,
		Overall:     parsing.OverallConfidence(fs),
		NeedsReview: parsing.NeedsReview(fs),
		Trade:       trades.Assemble(fs, sourceID),
	}
	if res.NeedsReview {
		p.metrics.NeedsReview.Inc()
	}
	if res.Trade == nil {
		p.metrics.Documents.WithLabelValues(OutcomeIncomplete).Inc()
		p.logger.Warn("pipeline.extract.incomplete",
			"source", sourceID,
			"timestamp", fs.Timestamp.Found(),
			"symbol", fs.Symbol.Found(),
			"pnl", fs.RealizedPnl.Found(),
		)
		return res
	}
	p.metrics.Documents.WithLabelValues(OutcomeAssembled).Inc()
	p.logger.Info("pipeline.extract.ok",
		"source", sourceID,
		"trade_id", res.Trade.ID,
		"symbol", res.Trade.Symbol,
		"overall", res.Overall,
		"needs_review", res.NeedsReview,
	)
	return res
}
