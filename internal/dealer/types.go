package dealer

import (
	"encoding/json"
	"time"

	"github.com/kappalabs/hedging-dealer/internal/strategy"
)

// Direction identifies which side of the exchange/wallet boundary an
// on-chain transfer moves funds toward.
type Direction string

const (
	DepositToExchange   Direction = "DepositToExchange"
	WithdrawFromExchange Direction = "WithdrawFromExchange"
)

// Transfer is a single in-flight (or settled) on-chain movement. Direction
// and SizeSats are immutable after insertion; Completed is flipped false to
// true by the reconciler only.
type Transfer struct {
	ID        string
	Direction Direction
	Address   string
	SizeSats  int64
	Memo      string
	Completed bool
	CreatedAt time.Time
}

// PositionDelta and LeverageDelta are opaque to the core; the strategy
// fills them in and the core only logs them verbatim.
type PositionDelta = strategy.PositionDelta
type LeverageDelta = strategy.LeverageDelta

// TickOutcome aggregates the per-phase results of a single tick. Each phase
// that completes sets exactly one of Skipped, Result (success) or Err
// (strategy failure); a tick that returns early leaves the fields of the
// phases it did not complete at their zero values.
type TickOutcome struct {
	PositionSkipped bool
	PositionResult  *PositionDelta
	PositionErr     error

	LeverageSkipped bool
	LeverageResult  *LeverageDelta
	LeverageErr     error

	PendingTransferCount int
}

// MarshalJSON serializes errors as strings so TickOutcome is usable
// directly from internal/httpapi's /status endpoint.
func (o TickOutcome) MarshalJSON() ([]byte, error) {
	type alias struct {
		PositionSkipped bool           `json:"position_skipped"`
		PositionResult  *PositionDelta `json:"position_result,omitempty"`
		PositionErr     string         `json:"position_error,omitempty"`

		LeverageSkipped bool           `json:"leverage_skipped"`
		LeverageResult  *LeverageDelta `json:"leverage_result,omitempty"`
		LeverageErr     string         `json:"leverage_error,omitempty"`

		PendingTransferCount int `json:"pending_transfer_count"`
	}
	a := alias{
		PositionSkipped:      o.PositionSkipped,
		PositionResult:       o.PositionResult,
		LeverageSkipped:      o.LeverageSkipped,
		LeverageResult:       o.LeverageResult,
		PendingTransferCount: o.PendingTransferCount,
	}
	if o.PositionErr != nil {
		a.PositionErr = o.PositionErr.Error()
	}
	if o.LeverageErr != nil {
		a.LeverageErr = o.LeverageErr.Error()
	}
	return json.Marshal(a)
}
