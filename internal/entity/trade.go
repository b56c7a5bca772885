package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/pnl-tracker/constants"
)

// ConfidenceSnapshot records how sure extraction was about the critical fields.
type ConfidenceSnapshot struct {
	Timestamp constants.Confidence `json:"timestamp"`
	Symbol    constants.Confidence `json:"symbol"`
	Pnl       constants.Confidence `json:"pnl"`
	Overall   constants.Confidence `json:"overall"`
}

// HighConfidence is attached to trades a human entered or corrected.
var HighConfidence = ConfidenceSnapshot{
	Timestamp: constants.ConfidenceHigh,
	Symbol:    constants.ConfidenceHigh,
	Pnl:       constants.ConfidenceHigh,
	Overall:   constants.ConfidenceHigh,
}

// Trade represents one closed position for data transfer between layers.
type Trade struct {
	ID            uuid.UUID          `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	Symbol        string             `json:"symbol"`
	Side          constants.Side     `json:"side"`
	RealizedPnl   float64            `json:"realizedPnl"`
	Fees          *float64           `json:"fees"`
	ROI           *float64           `json:"roi"`
	Result        constants.Result   `json:"result"`
	NeedsReview   bool               `json:"needsReview"`
	Confidence    ConfidenceSnapshot `json:"confidence"`
	SourceImageID string             `json:"sourceImageId,omitempty"`
	Remarks       string             `json:"remarks,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	ImportedAt    *time.Time         `json:"importedAt,omitempty"`
}

// Clone returns a copy that shares no pointers with t.
func (t Trade) Clone() Trade {
	c := t
	c.Fees = clonePtr(t.Fees)
	c.ROI = clonePtr(t.ROI)
	c.ImportedAt = clonePtr(t.ImportedAt)
	return c
}

// CloneTrades copies a slice of trades element by element.
func CloneTrades(in []Trade) []Trade {
	if in == nil {
		return nil
	}
	out := make([]Trade, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
