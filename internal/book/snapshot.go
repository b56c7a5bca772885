// Package book holds the trade list in memory and keeps it in sync with the
// local state cache and, when configured, the remote trade store.
package book

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
)

// Snapshot is an immutable view of the book. Reducers return a new
// snapshot and never touch the receiver's trades.
type Snapshot struct {
	trades      []entity.Trade
	currentWeek string
}

// NewSnapshot copies trades, newest entries first as given.
func NewSnapshot(trades []entity.Trade, currentWeek string) Snapshot {
	return Snapshot{trades: entity.CloneTrades(trades), currentWeek: currentWeek}
}

// Trades returns a copy of the trade list.
func (s Snapshot) Trades() []entity.Trade { return entity.CloneTrades(s.trades) }

func (s Snapshot) CurrentWeek() string { return s.currentWeek }

func (s Snapshot) Len() int { return len(s.trades) }

// Find returns a copy of the trade with id.
func (s Snapshot) Find(id uuid.UUID) (entity.Trade, bool) {
	for _, t := range s.trades {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return entity.Trade{}, false
}

// WithTrade puts t in front of the list.
func (s Snapshot) WithTrade(t entity.Trade) Snapshot {
	return s.WithTrades([]entity.Trade{t})
}

// WithTrades puts ts, in order, in front of the list.
func (s Snapshot) WithTrades(ts []entity.Trade) Snapshot {
	out := make([]entity.Trade, 0, len(ts)+len(s.trades))
	out = append(out, entity.CloneTrades(ts)...)
	out = append(out, s.trades...)
	return Snapshot{trades: out, currentWeek: s.currentWeek}
}

// Replaced swaps in t for the trade with the same id; unknown ids are a no-op.
func (s Snapshot) Replaced(t entity.Trade) Snapshot {
	out := make([]entity.Trade, len(s.trades))
	copy(out, s.trades)
	for i := range out {
		if out[i].ID == t.ID {
			out[i] = t.Clone()
		}
	}
	return Snapshot{trades: out, currentWeek: s.currentWeek}
}

// Without drops the trade with id.
func (s Snapshot) Without(id uuid.UUID) Snapshot {
	out := make([]entity.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return Snapshot{trades: out, currentWeek: s.currentWeek}
}

// Cleared empties the list and moves to week.
func (s Snapshot) Cleared(week string) Snapshot {
	return Snapshot{trades: []entity.Trade{}, currentWeek: week}
}

func (s Snapshot) WithWeek(week string) Snapshot {
	return Snapshot{trades: s.trades, currentWeek: week}
}

type persisted struct {
	Trades      []entity.Trade `json:"trades"`
	CurrentWeek string         `json:"currentWeek"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	ts := s.trades
	if ts == nil {
		ts = []entity.Trade{}
	}
	return json.Marshal(persisted{Trades: ts, CurrentWeek: s.currentWeek})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.trades = p.Trades
	s.currentWeek = p.CurrentWeek
	return nil
}
