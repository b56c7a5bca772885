package ingest

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/async"
	"github.com/joseph-ayodele/pnl-tracker/internal/book"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
	"github.com/joseph-ayodele/pnl-tracker/internal/pipeline"
)

// ImageProcessor is satisfied by *pipeline.Processor.
type ImageProcessor interface {
	ProcessImage(ctx context.Context, path string) (pipeline.Result, error)
}

// TradeSink is satisfied by *book.Book.
type TradeSink interface {
	Add(ctx context.Context, t entity.Trade, action constants.DuplicateAction) (book.Outcome, error)
}

// NewImageHandler processes queued screenshots and records every trade that
// extracted cleanly. Trades that need review are logged and left out.
func NewImageHandler(proc ImageProcessor, sink TradeSink, action constants.DuplicateAction, logger *slog.Logger) async.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return async.HandlerFunc(func(ctx context.Context, job async.Job) error {
		res, err := proc.ProcessImage(ctx, job.Path)
		if err != nil {
			return err
		}
		if res.Trade == nil {
			logger.Warn("ingest.trade.incomplete", "path", job.Path, "overall", res.Overall)
			return nil
		}
		if res.NeedsReview {
			logger.Warn("ingest.trade.needs_review", "path", job.Path, "symbol", res.Trade.Symbol)
			return nil
		}
		out, err := sink.Add(ctx, *res.Trade, action)
		if err != nil {
			return err
		}
		switch {
		case out.Duplicate != nil && out.Added == 0 && action == constants.DuplicateSkip:
			logger.Info("ingest.trade.duplicate_skipped", "path", job.Path, "existing_id", out.Duplicate.ID)
		default:
			logger.Info("ingest.trade.recorded", "path", job.Path, "trade_id", res.Trade.ID, "action", action)
		}
		if out.Warning != nil {
			logger.Warn("ingest.trade.persist_warning", "path", job.Path, "error", out.Warning)
		}
		return nil
	})
}
