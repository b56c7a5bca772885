package constants

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceOrderAndLower(t *testing.T) {
	assert.True(t, ConfidenceLow < ConfidenceMedium)
	assert.True(t, ConfidenceMedium < ConfidenceHigh)

	assert.Equal(t, ConfidenceMedium, ConfidenceHigh.Lower())
	assert.Equal(t, ConfidenceLow, ConfidenceMedium.Lower())
	assert.Equal(t, ConfidenceLow, ConfidenceLow.Lower())

	var zero Confidence
	assert.Equal(t, ConfidenceLow, zero)
}

func TestConfidenceJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Confidence{"pnl": ConfidenceHigh})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pnl":"high"}`, string(b))

	var out map[string]Confidence
	require.NoError(t, json.Unmarshal([]byte(`{"a":"medium","b":"low"}`), &out))
	assert.Equal(t, ConfidenceMedium, out["a"])
	assert.Equal(t, ConfidenceLow, out["b"])

	assert.Error(t, json.Unmarshal([]byte(`{"a":"certain"}`), &out))
}

func TestResultFor(t *testing.T) {
	assert.Equal(t, ResultWin, ResultFor(0.01))
	assert.Equal(t, ResultLoss, ResultFor(-0.01))
	assert.Equal(t, ResultBreakeven, ResultFor(0))
}

func TestParseDuplicateAction(t *testing.T) {
	assert.Equal(t, DuplicateReplace, ParseDuplicateAction("replace"))
	assert.Equal(t, DuplicateAdd, ParseDuplicateAction("add"))
	assert.Equal(t, DuplicateSkip, ParseDuplicateAction("whatever"))
}
