package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pnl-tracker/internal/async"
)

// Enqueuer accepts jobs; *async.Queue satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// Feed forwards every path from paths to q until paths closes or ctx ends.
// It returns the number of jobs accepted.
func Feed(ctx context.Context, paths <-chan string, q Enqueuer, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n
		case p, ok := <-paths:
			if !ok {
				return n
			}
			if err := q.Enqueue(ctx, async.Job{Path: p, SubmittedAt: time.Now()}); err != nil {
				logger.Warn("ingest.feed.enqueue_failed", "path", p, "error", err)
				continue
			}
			n++
		}
	}
}
