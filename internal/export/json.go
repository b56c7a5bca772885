// Package export serializes trades for backup, sharing and spreadsheets.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/common"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
)

// FormatVersion is written into every export.
const FormatVersion = "1.0.0"

// Envelope is the export document.
type Envelope struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exportedAt"`
	Trades     []entity.Trade `json:"trades"`
}

const importSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "trade": {
      "type": "object",
      "required": ["timestamp", "symbol", "realizedPnl"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "timestamp": {"type": "string", "minLength": 1},
        "symbol": {"type": "string", "minLength": 1},
        "side": {"enum": ["long", "short", "unknown", ""]},
        "realizedPnl": {"type": "number"},
        "fees": {"type": ["number", "null"]},
        "roi": {"type": ["number", "null"]},
        "result": {"enum": ["win", "loss", "breakeven"]},
        "needsReview": {"type": "boolean"},
        "confidence": {
          "type": "object",
          "properties": {
            "timestamp": {"$ref": "#/definitions/confidence"},
            "symbol": {"$ref": "#/definitions/confidence"},
            "pnl": {"$ref": "#/definitions/confidence"},
            "overall": {"$ref": "#/definitions/confidence"}
          }
        },
        "sourceImageId": {"type": "string"},
        "remarks": {"type": "string"},
        "createdAt": {"type": "string"},
        "updatedAt": {"type": "string"},
        "importedAt": {"type": "string"}
      }
    },
    "confidence": {"enum": ["high", "medium", "low"]},
    "trades": {"type": "array", "items": {"$ref": "#/definitions/trade"}}
  },
  "oneOf": [
    {"type": "object", "required": ["trades"], "properties": {"trades": {"$ref": "#/definitions/trades"}}},
    {"$ref": "#/definitions/trades"}
  ]
}`

var schema = jsonschema.MustCompileString("import.json", importSchema)

// ExportJSON renders trades as an indented envelope stamped with now.
func ExportJSON(trades []entity.Trade, now time.Time) ([]byte, error) {
	env := Envelope{
		Version:    FormatVersion,
		ExportedAt: now.UTC(),
		Trades:     entity.CloneTrades(trades),
	}
	if env.Trades == nil {
		env.Trades = []entity.Trade{}
	}
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return b, nil
}

// ImportJSON accepts an export envelope or a bare array of trades. Trades from
// an envelope are stamped with importedAt = now; a bare array is taken as is.
// Results are re-derived from PnL. Either every trade is returned or none.
func ImportJSON(data []byte, now time.Time) ([]entity.Trade, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, invalidImport("empty input", nil)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, invalidImport("not valid JSON", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, invalidImport("expected an export object with a trades array or an array of trades", err)
	}

	var (
		trades  []entity.Trade
		wrapped bool
	)
	if _, isArray := doc.([]any); isArray {
		if err := json.Unmarshal(data, &trades); err != nil {
			return nil, invalidImport("decode trades", err)
		}
	} else {
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, invalidImport("decode export", err)
		}
		trades, wrapped = env.Trades, true
	}

	stamp := now.UTC()
	out := make([]entity.Trade, 0, len(trades))
	for _, t := range trades {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if t.Side == "" {
			t.Side = constants.SideUnknown
		}
		t.Result = constants.ResultFor(t.RealizedPnl)
		if t.CreatedAt.IsZero() {
			t.CreatedAt = stamp
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		if wrapped {
			ts := stamp
			t.ImportedAt = &ts
		}
		out = append(out, t)
	}
	return out, nil
}

func invalidImport(msg string, cause error) error {
	if cause != nil {
		cause = fmt.Errorf("%w: %v", common.ErrInvalidImport, cause)
	} else {
		cause = common.ErrInvalidImport
	}
	return common.NewAppError("INVALID_IMPORT", msg, cause)
}
