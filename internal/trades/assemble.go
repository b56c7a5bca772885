// Package trades turns extracted fields into trade records, applies manual
// corrections and detects duplicates.
package trades

import (
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
	"github.com/joseph-ayodele/pnl-tracker/internal/parsing"
)

var nowFunc = time.Now

// Assemble builds a trade from fs, or returns nil when a critical field is
// missing. The caller supplies the id of the source image, if any.
func Assemble(fs parsing.FieldSet, sourceImageID string) *entity.Trade {
	if !fs.HasCritical() {
		return nil
	}

	side := constants.SideUnknown
	if fs.Side.Value != nil {
		side = *fs.Side.Value
	}
	pnl := *fs.RealizedPnl.Value
	now := nowFunc().UTC()

	return &entity.Trade{
		ID:          uuid.New(),
		Timestamp:   *fs.Timestamp.Value,
		Symbol:      *fs.Symbol.Value,
		Side:        side,
		RealizedPnl: pnl,
		Fees:        valueOf(fs.Fees),
		ROI:         valueOf(fs.ROI),
		Result:      constants.ResultFor(pnl),
		NeedsReview: parsing.NeedsReview(fs),
		Confidence: entity.ConfidenceSnapshot{
			Timestamp: fs.Timestamp.Confidence,
			Symbol:    fs.Symbol.Confidence,
			Pnl:       fs.RealizedPnl.Confidence,
			Overall:   parsing.OverallConfidence(fs),
		},
		SourceImageID: sourceImageID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func valueOf(f parsing.Field[float64]) *float64 {
	if f.Value == nil {
		return nil
	}
	v := *f.Value
	return &v
}
