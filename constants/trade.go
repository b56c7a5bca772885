package constants

// Side is the position direction shown on the close summary.
type Side string

const (
	SideLong    Side = "long"
	SideShort   Side = "short"
	SideUnknown Side = "unknown"
)

// Valid reports whether s is one of the stored values.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort || s == SideUnknown
}

// Result is derived from the sign of the realized PnL.
type Result string

const (
	ResultWin       Result = "win"
	ResultLoss      Result = "loss"
	ResultBreakeven Result = "breakeven"
)

// ResultFor returns win for pnl > 0, loss for pnl < 0 and breakeven for exactly zero.
func ResultFor(pnl float64) Result {
	switch {
	case pnl > 0:
		return ResultWin
	case pnl < 0:
		return ResultLoss
	default:
		return ResultBreakeven
	}
}

// DuplicateAction is the caller's choice when a single new trade collides with an existing one.
type DuplicateAction string

const (
	DuplicateSkip    DuplicateAction = "skip"
	DuplicateReplace DuplicateAction = "replace"
	DuplicateAdd     DuplicateAction = "add"
)

// ParseDuplicateAction accepts the lowercase names; anything else falls back to skip.
func ParseDuplicateAction(s string) DuplicateAction {
	switch DuplicateAction(s) {
	case DuplicateReplace:
		return DuplicateReplace
	case DuplicateAdd:
		return DuplicateAdd
	default:
		return DuplicateSkip
	}
}
