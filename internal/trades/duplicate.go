package trades

import (
	"math"
	"time"

	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
)

const (
	// DuplicateWindow is the largest timestamp gap (exclusive) between duplicates.
	DuplicateWindow = 60 * time.Second
	// PnlTolerance is the largest PnL difference (exclusive) between duplicates.
	PnlTolerance = 0.01
)

// IsDuplicate reports whether a and b describe the same closed position.
func IsDuplicate(a, b entity.Trade) bool {
	if a.Symbol != b.Symbol {
		return false
	}
	dt := a.Timestamp.Sub(b.Timestamp)
	if dt < 0 {
		dt = -dt
	}
	return dt < DuplicateWindow && math.Abs(a.RealizedPnl-b.RealizedPnl) < PnlTolerance
}

// FindDuplicate returns the first trade in existing that duplicates candidate, or nil.
func FindDuplicate(candidate entity.Trade, existing []entity.Trade) *entity.Trade {
	for i := range existing {
		if IsDuplicate(candidate, existing[i]) {
			t := existing[i].Clone()
			return &t
		}
	}
	return nil
}

// FilterDuplicates splits candidates into those that duplicate no existing
// trade and those that do. Candidates are not compared with each other, so a
// batch that deliberately holds near-identical trades survives intact.
func FilterDuplicates(candidates, existing []entity.Trade) (kept, dropped []entity.Trade) {
	for _, c := range candidates {
		if FindDuplicate(c, existing) != nil {
			dropped = append(dropped, c.Clone())
			continue
		}
		kept = append(kept, c.Clone())
	}
	return kept, dropped
}
