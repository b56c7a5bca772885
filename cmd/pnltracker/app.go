package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/pnl-tracker/internal/book"
	"github.com/joseph-ayodele/pnl-tracker/internal/ocr"
	"github.com/joseph-ayodele/pnl-tracker/internal/pipeline"
	"github.com/joseph-ayodele/pnl-tracker/internal/repository"
)

// app holds the stores and the loaded book for one command run.
type app struct {
	local  *repository.Store
	remote *repository.Store
	book   *book.Book
}

// openApp opens the local cache, connects to the remote store when DB_URL
// is set, and loads the book. A remote that cannot be reached is logged and
// skipped.
func openApp(ctx context.Context) (*app, error) {
	local, err := repository.OpenSQLite(ctx, cfg.Database.LocalPath, logger)
	if err != nil {
		return nil, err
	}
	if err := local.Migrate(ctx); err != nil {
		local.Close()
		return nil, err
	}
	a := &app{local: local}

	var remoteRepo repository.TradeRepository
	if cfg.Database.DSN != "" {
		remote, err := repository.OpenPostgres(ctx, remoteConfig(), logger)
		switch {
		case err != nil:
			logger.Warn("remote store unavailable, using local cache only", "error", err)
		case remote.HealthCheck(ctx, 5*time.Second) != nil:
			logger.Warn("remote store failed health check, using local cache only")
			remote.Close()
		default:
			if err := remote.Migrate(ctx); err != nil {
				remote.Close()
				local.Close()
				return nil, err
			}
			a.remote = remote
			remoteRepo = repository.NewTradeRepository(remote, logger)
		}
	}

	a.book = book.New(repository.NewStateStore(local, logger), remoteRepo, logger)
	out, err := a.book.Load(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if out.Warning != nil {
		logger.Warn("book loaded from local cache", "error", out.Warning)
	}
	return a, nil
}

func remoteConfig() repository.Config {
	return repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}
}

func (a *app) Close() {
	if a.remote != nil {
		a.remote.Close()
	}
	if a.local != nil {
		a.local.Close()
	}
}

func newRecognizer() *ocr.Tesseract {
	return ocr.NewTesseract(ocr.Config{
		Tesseract:     cfg.OCR.Binary,
		Lang:          cfg.OCR.Lang,
		TessdataDir:   cfg.OCR.TessdataDir,
		PSM:           cfg.OCR.PSM,
		HeicConverter: cfg.OCR.HeicConverter,
		CacheTTL:      cfg.OCR.CacheTTL,
	}, logger)
}

// newProcessor registers the pipeline metrics with reg when it is non-nil.
func newProcessor(reg prometheus.Registerer) (*pipeline.Processor, error) {
	m := pipeline.NewMetrics()
	if reg != nil {
		if err := m.Register(reg); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return pipeline.NewProcessor(logger, newRecognizer(), m), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func reportOutcome(w io.Writer, o book.Outcome) {
	if o.Added > 0 || o.Dropped > 0 {
		fmt.Fprintf(w, "added %d, skipped %d duplicate(s); %d trade(s) in book\n", o.Added, o.Dropped, o.Snapshot.Len())
	}
	if o.Duplicate != nil && o.Added == 0 {
		fmt.Fprintf(w, "duplicate of %s (%s %s), not added\n", o.Duplicate.ID, o.Duplicate.Symbol, o.Duplicate.Timestamp.Format(time.RFC3339))
	}
	if o.Warning != nil {
		slog.Warn("change kept locally only", "error", o.Warning)
	}
}
