package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/common"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
	"github.com/joseph-ayodele/pnl-tracker/internal/trades"
)

const tradesTable = "trades"

var tradeColumns = []string{
	"id", "closed_at", "symbol", "side", "realized_pnl", "fees", "roi", "result",
	"needs_review", "conf_timestamp", "conf_symbol", "conf_pnl", "conf_overall",
	"source_image_id", "remarks", "created_at", "updated_at", "imported_at",
}

type TradeRepository interface {
	// List returns every trade, newest first.
	List(ctx context.Context) ([]entity.Trade, error)
	// Insert stores t, overwriting a stored trade with the same id.
	Insert(ctx context.Context, t entity.Trade) error
	InsertMany(ctx context.Context, ts []entity.Trade) error
	// Update overwrites an existing trade; common.ErrNotFound when absent.
	Update(ctx context.Context, t entity.Trade) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
	// FindNear returns a stored duplicate of t, or nil.
	FindNear(ctx context.Context, t entity.Trade) (*entity.Trade, error)
}

type tradeRepository struct {
	store  *Store
	logger *slog.Logger
}

func NewTradeRepository(store *Store, logger *slog.Logger) TradeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &tradeRepository{store: store, logger: logger}
}

func (r *tradeRepository) List(ctx context.Context) ([]entity.Trade, error) {
	q, args := entsql.Dialect(r.store.Dialect()).
		Select(tradeColumns...).
		From(entsql.Table(tradesTable)).
		OrderBy(entsql.Desc("closed_at"), entsql.Desc("created_at")).
		Query()
	out, err := r.query(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to list trades", "error", err)
		return nil, err
	}
	return out, nil
}

func (r *tradeRepository) Insert(ctx context.Context, t entity.Trade) error {
	return r.InsertMany(ctx, []entity.Trade{t})
}

func (r *tradeRepository) InsertMany(ctx context.Context, ts []entity.Trade) error {
	if len(ts) == 0 {
		return nil
	}
	b := entsql.Dialect(r.store.Dialect()).
		Insert(tradesTable).
		Columns(tradeColumns...)
	for _, t := range ts {
		b.Values(r.values(t)...)
	}
	q, args := b.OnConflict(
		entsql.ConflictColumns("id"),
		entsql.ResolveWithNewValues(),
	).Query()

	if err := r.store.drv.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to insert trades", "count", len(ts), "error", err)
		return fmt.Errorf("insert trades: %w", err)
	}
	return nil
}

func (r *tradeRepository) Update(ctx context.Context, t entity.Trade) error {
	b := entsql.Dialect(r.store.Dialect()).Update(tradesTable)
	vals := r.values(t)
	for i, col := range tradeColumns[1:] {
		b.Set(col, vals[i+1])
	}
	q, args := b.Where(entsql.EQ("id", t.ID.String())).Query()

	var res sql.Result
	if err := r.store.drv.Exec(ctx, q, args, &res); err != nil {
		r.logger.Error("failed to update trade", "id", t.ID, "error", err)
		return fmt.Errorf("update trade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("trade %s: %w", t.ID, common.ErrNotFound)
	}
	return nil
}

func (r *tradeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := entsql.Dialect(r.store.Dialect()).
		Delete(tradesTable).
		Where(entsql.EQ("id", id.String())).
		Query()
	if err := r.store.drv.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to delete trade", "id", id, "error", err)
		return fmt.Errorf("delete trade: %w", err)
	}
	return nil
}

func (r *tradeRepository) DeleteAll(ctx context.Context) error {
	q, args := entsql.Dialect(r.store.Dialect()).Delete(tradesTable).Query()
	if err := r.store.drv.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to delete trades", "error", err)
		return fmt.Errorf("delete trades: %w", err)
	}
	return nil
}

func (r *tradeRepository) FindNear(ctx context.Context, t entity.Trade) (*entity.Trade, error) {
	q, args := entsql.Dialect(r.store.Dialect()).
		Select(tradeColumns...).
		From(entsql.Table(tradesTable)).
		Where(entsql.And(
			entsql.EQ("symbol", t.Symbol),
			entsql.GTE("closed_at", r.store.timeArg(t.Timestamp.Add(-trades.DuplicateWindow))),
			entsql.LTE("closed_at", r.store.timeArg(t.Timestamp.Add(trades.DuplicateWindow))),
			entsql.GTE("realized_pnl", t.RealizedPnl-trades.PnlTolerance),
			entsql.LTE("realized_pnl", t.RealizedPnl+trades.PnlTolerance),
		)).
		OrderBy("closed_at").
		Query()
	candidates, err := r.query(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to look up near trades", "symbol", t.Symbol, "error", err)
		return nil, err
	}
	return trades.FindDuplicate(t, candidates), nil
}

func (r *tradeRepository) values(t entity.Trade) []any {
	return []any{
		t.ID.String(),
		r.store.timeArg(t.Timestamp),
		t.Symbol,
		string(t.Side),
		t.RealizedPnl,
		nullableFloat(t.Fees),
		nullableFloat(t.ROI),
		string(t.Result),
		t.NeedsReview,
		t.Confidence.Timestamp.String(),
		t.Confidence.Symbol.String(),
		t.Confidence.Pnl.String(),
		t.Confidence.Overall.String(),
		t.SourceImageID,
		t.Remarks,
		r.store.timeArg(t.CreatedAt),
		r.store.timeArg(t.UpdatedAt),
		r.store.optionalTimeArg(t.ImportedAt),
	}
}

func (r *tradeRepository) query(ctx context.Context, q string, args []any) ([]entity.Trade, error) {
	var rows entsql.Rows
	if err := r.store.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []entity.Trade
	for rows.Next() {
		t, err := scanTrade(&rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return out, nil
}

func scanTrade(rows *entsql.Rows) (entity.Trade, error) {
	var (
		t                          entity.Trade
		id, side, result           string
		fees, roi                  sql.NullFloat64
		cTs, cSym, cPnl, cOverall  string
		closedAt, created, updated dbTime
		imported                   dbTime
	)
	if err := rows.Scan(
		&id, &closedAt, &t.Symbol, &side, &t.RealizedPnl, &fees, &roi, &result,
		&t.NeedsReview, &cTs, &cSym, &cPnl, &cOverall,
		&t.SourceImageID, &t.Remarks, &created, &updated, &imported,
	); err != nil {
		return entity.Trade{}, fmt.Errorf("scan trade: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return entity.Trade{}, fmt.Errorf("scan trade id %q: %w", id, err)
	}
	t.ID = parsed
	t.Timestamp = closedAt.Time
	t.Side = constants.Side(side)
	t.Result = constants.Result(result)
	if fees.Valid {
		t.Fees = &fees.Float64
	}
	if roi.Valid {
		t.ROI = &roi.Float64
	}
	for _, c := range []struct {
		dst *constants.Confidence
		src string
	}{
		{&t.Confidence.Timestamp, cTs},
		{&t.Confidence.Symbol, cSym},
		{&t.Confidence.Pnl, cPnl},
		{&t.Confidence.Overall, cOverall},
	} {
		if *c.dst, err = constants.ParseConfidence(c.src); err != nil {
			return entity.Trade{}, fmt.Errorf("scan trade %s: %w", id, err)
		}
	}
	t.CreatedAt = created.Time
	t.UpdatedAt = updated.Time
	if imported.Valid {
		ts := imported.Time
		t.ImportedAt = &ts
	}
	return t, nil
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
