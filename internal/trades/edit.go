package trades

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/common"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
)

// Edit is a full replacement of the user-editable fields of a trade.
type Edit struct {
	Timestamp   time.Time      `json:"timestamp"`
	Symbol      string         `json:"symbol"`
	Side        constants.Side `json:"side"`
	RealizedPnl *float64       `json:"realizedPnl"`
	Fees        *float64       `json:"fees"`
	ROI         *float64       `json:"roi"`
	Remarks     string         `json:"remarks"`
}

func (e Edit) normalized() Edit {
	e.Symbol = strings.ToUpper(strings.TrimSpace(e.Symbol))
	e.Remarks = strings.TrimSpace(e.Remarks)
	if e.Side == "" {
		e.Side = constants.SideUnknown
	}
	return e
}

// Validate reports every problem with e at once.
func (e Edit) Validate() error {
	e = e.normalized()
	return common.NewValidator().
		Field("timestamp", e.Timestamp, nonZeroTime).
		Field("symbol", e.Symbol, common.Required, common.Symbol).
		Field("side", string(e.Side), common.OneOf(string(constants.SideLong), string(constants.SideShort), string(constants.SideUnknown))).
		Field("realizedPnl", e.RealizedPnl, common.Required, common.Finite).
		Field("fees", e.Fees, common.Finite).
		Field("roi", e.ROI, common.Finite).
		Error()
}

// ApplyEdit replaces the editable fields of base. A corrected trade is trusted:
// all confidence is high and it no longer needs review.
func ApplyEdit(base entity.Trade, e Edit) (entity.Trade, error) {
	if err := e.Validate(); err != nil {
		return entity.Trade{}, err
	}
	e = e.normalized()

	out := base.Clone()
	out.Timestamp = e.Timestamp.UTC()
	out.Symbol = e.Symbol
	out.Side = e.Side
	out.RealizedPnl = *e.RealizedPnl
	out.Fees = copyFloat(e.Fees)
	out.ROI = copyFloat(e.ROI)
	out.Remarks = e.Remarks
	out.Result = constants.ResultFor(out.RealizedPnl)
	out.NeedsReview = false
	out.Confidence = entity.HighConfidence
	out.UpdatedAt = nowFunc().UTC()
	return out, nil
}

// NewManualTrade creates a trade entered by hand.
func NewManualTrade(e Edit) (entity.Trade, error) {
	now := nowFunc().UTC()
	t, err := ApplyEdit(entity.Trade{ID: uuid.New(), CreatedAt: now}, e)
	if err != nil {
		return entity.Trade{}, err
	}
	t.UpdatedAt = now
	return t, nil
}

func nonZeroTime(fieldName string, value interface{}) *common.ValidationError {
	if t, ok := value.(time.Time); ok && !t.IsZero() {
		return nil
	}
	return &common.ValidationError{Field: fieldName, Value: value, Message: "is required"}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
