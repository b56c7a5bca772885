package book

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/common"
	"github.com/joseph-ayodele/pnl-tracker/internal/dates"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
	"github.com/joseph-ayodele/pnl-tracker/internal/repository"
	"github.com/joseph-ayodele/pnl-tracker/internal/trades"
)

// StateKey is the key the snapshot is cached under in the local store.
const StateKey = "bitget-pnl-tracker"

var nowFunc = time.Now

// Outcome reports what a mutation did. Warning carries store failures that
// did not stop the in-memory change from taking effect.
type Outcome struct {
	Snapshot  Snapshot
	Added     int
	Dropped   int
	Duplicate *entity.Trade
	Warning   error
}

type Book struct {
	mu     sync.Mutex
	snap   Snapshot
	local  repository.StateStore
	remote repository.TradeRepository
	logger *slog.Logger
}

// New returns an empty book. remote may be nil.
func New(local repository.StateStore, remote repository.TradeRepository, logger *slog.Logger) *Book {
	if logger == nil {
		logger = slog.Default()
	}
	return &Book{
		snap:   Snapshot{trades: []entity.Trade{}, currentWeek: dates.WeekKey(nowFunc())},
		local:  local,
		remote: remote,
		logger: logger,
	}
}

// Snapshot returns the current state.
func (b *Book) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Load restores the cached snapshot, then prefers the remote trade list when
// the remote store answers. A remote failure keeps the cached trades.
func (b *Book) Load(ctx context.Context) (Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{trades: []entity.Trade{}}
	if b.local != nil {
		raw, err := b.local.Get(ctx, StateKey)
		switch {
		case errors.Is(err, common.ErrNotFound):
		case err != nil:
			return Outcome{}, fmt.Errorf("load state: %w", err)
		default:
			if err := json.Unmarshal([]byte(raw), &snap); err != nil {
				b.logger.Warn("book.load.corrupt_state", "error", err)
				snap = Snapshot{trades: []entity.Trade{}}
			}
		}
	}
	if snap.currentWeek == "" {
		snap.currentWeek = dates.WeekKey(nowFunc())
	}

	var warning error
	if b.remote != nil {
		list, err := b.remote.List(ctx)
		if err != nil {
			warning = fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
			b.logger.Warn("book.load.remote_failed", "error", err)
		} else {
			snap.trades = list
		}
	}
	b.snap = snap
	b.logger.Info("book.load.ok", "trades", snap.Len(), "current_week", snap.currentWeek)
	return Outcome{Snapshot: snap, Warning: warning}, nil
}

// Add records t. A trade whose id is already in the book replaces it. When t
// duplicates another trade, action decides: skip leaves the book alone and
// reports the duplicate, replace overwrites the existing trade keeping its id,
// add keeps both.
func (b *Book) Add(ctx context.Context, t entity.Trade, action constants.DuplicateAction) (Outcome, error) {
	if err := common.NewValidator().
		Field("symbol", t.Symbol, common.Required).
		Field("realizedPnl", t.RealizedPnl, common.Finite).
		Field("side", string(t.Side), common.OneOf(string(constants.SideLong), string(constants.SideShort), string(constants.SideUnknown))).
		Error(); err != nil {
		return Outcome{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.snap.Find(t.ID); exists {
		t = t.Clone()
		return b.commit(ctx, b.snap.Replaced(t), func(r repository.TradeRepository) error {
			return r.Update(ctx, t)
		}, Outcome{})
	}

	dup := trades.FindDuplicate(t, b.snap.trades)
	if dup != nil {
		switch action {
		case constants.DuplicateReplace:
			t = t.Clone()
			t.ID = dup.ID
			t.CreatedAt = dup.CreatedAt
			t.UpdatedAt = nowFunc().UTC()
			return b.commit(ctx, b.snap.Replaced(t), func(r repository.TradeRepository) error {
				return r.Update(ctx, t)
			}, Outcome{Duplicate: dup})
		case constants.DuplicateAdd:
		default:
			b.logger.Info("book.add.duplicate_skipped", "symbol", t.Symbol, "existing_id", dup.ID)
			return Outcome{Snapshot: b.snap, Duplicate: dup}, nil
		}
	}
	t = t.Clone()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return b.commit(ctx, b.snap.WithTrade(t), func(r repository.TradeRepository) error {
		return r.Insert(ctx, t)
	}, Outcome{Added: 1, Duplicate: dup})
}

// Import adds every trade in ts that duplicates nothing already in the book.
func (b *Book) Import(ctx context.Context, ts []entity.Trade) (Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept, dropped := trades.FilterDuplicates(ts, b.snap.trades)
	if len(kept) == 0 {
		b.logger.Info("book.import.nothing_new", "dropped", len(dropped))
		return Outcome{Snapshot: b.snap, Dropped: len(dropped)}, nil
	}
	return b.commit(ctx, b.snap.WithTrades(kept), func(r repository.TradeRepository) error {
		return r.InsertMany(ctx, kept)
	}, Outcome{Added: len(kept), Dropped: len(dropped)})
}

// Update applies a manual correction to the trade with id.
func (b *Book) Update(ctx context.Context, id uuid.UUID, e trades.Edit) (Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	base, ok := b.snap.Find(id)
	if !ok {
		return Outcome{}, fmt.Errorf("trade %s: %w", id, common.ErrNotFound)
	}
	updated, err := trades.ApplyEdit(base, e)
	if err != nil {
		return Outcome{}, err
	}
	return b.commit(ctx, b.snap.Replaced(updated), func(r repository.TradeRepository) error {
		return r.Update(ctx, updated)
	}, Outcome{})
}

// Delete removes the trade with id. Unknown ids are not an error.
func (b *Book) Delete(ctx context.Context, id uuid.UUID) (Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commit(ctx, b.snap.Without(id), func(r repository.TradeRepository) error {
		return r.Delete(ctx, id)
	}, Outcome{})
}

// Clear drops every trade and resets the selected week to the current one.
func (b *Book) Clear(ctx context.Context) (Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commit(ctx, b.snap.Cleared(dates.WeekKey(nowFunc())), func(r repository.TradeRepository) error {
		return r.DeleteAll(ctx)
	}, Outcome{})
}

// SetCurrentWeek selects the week the dashboard reports on.
func (b *Book) SetCurrentWeek(ctx context.Context, key string) (Outcome, error) {
	if _, _, err := dates.ParseWeekKey(key); err != nil {
		return Outcome{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commit(ctx, b.snap.WithWeek(key), nil, Outcome{})
}

// commit installs next, then writes it through. Store failures become the
// outcome's warning. Callers hold b.mu.
func (b *Book) commit(ctx context.Context, next Snapshot, remote func(repository.TradeRepository) error, out Outcome) (Outcome, error) {
	b.snap = next
	out.Snapshot = next

	var warns []error
	if remote != nil && b.remote != nil {
		if err := remote(b.remote); err != nil {
			b.logger.Warn("book.persist.remote_failed", "error", err)
			warns = append(warns, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err))
		}
	}
	if err := b.saveLocal(ctx, next); err != nil {
		b.logger.Warn("book.persist.local_failed", "error", err)
		warns = append(warns, err)
	}
	out.Warning = errors.Join(warns...)
	return out, nil
}

func (b *Book) saveLocal(ctx context.Context, s Snapshot) error {
	if b.local == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return b.local.Put(ctx, StateKey, string(raw))
}
