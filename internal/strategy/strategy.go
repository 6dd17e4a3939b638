// Package strategy defines the HedgingStrategy collaborator (spec §6): the
// position/leverage math and exchange API adapter the core delegates
// execution to. Real spot/futures math is a Non-goal of the core; strategy
// implementations live entirely behind this interface.
package strategy

import "context"

// WithdrawCallback is invoked by the strategy when it decides to drain
// collateral from the exchange back to the wallet. The strategy supplies
// sizeBtc; the dealer records the expectation in the ledger.
type WithdrawCallback func(ctx context.Context, address string, sizeBtc float64) error

// DepositCallback is invoked by the strategy when it decides to add
// collateral to the exchange. The dealer both executes the on-chain
// payment and records the expectation in the ledger.
type DepositCallback func(ctx context.Context, address string, sizeBtc float64) error

// HedgingStrategy is implemented once per exchange/instrument. All
// operations may block on I/O; callers thread ctx through for
// cancellation.
type HedgingStrategy interface {
	// Name identifies the strategy for telemetry and memo construction.
	Name() string

	// GetBtcSpotPriceInUsd returns the current BTC/USD price.
	GetBtcSpotPriceInUsd(ctx context.Context) (float64, error)

	// UpdatePosition resizes the exchange position to neutralize
	// usdLiability at the given price.
	UpdatePosition(ctx context.Context, usdLiability, btcPriceInUsd float64) (PositionDelta, error)

	// ClosePosition flattens the exchange position. Its error is
	// deliberately not inspected by the caller (spec §9); implementations
	// are responsible for their own idempotence.
	ClosePosition(ctx context.Context) error

	// UpdateLeverage rebalances collateral toward the target band,
	// calling withdraw or deposit via the injected callbacks as needed.
	// Neither callback is called if leverage is already within band.
	UpdateLeverage(ctx context.Context, usdLiability, btcPriceInUsd float64, depositAddress string, withdraw WithdrawCallback, deposit DepositCallback) (LeverageDelta, error)

	// IsDepositCompleted reports whether a previously initiated deposit to
	// address for sizeSats has settled on-chain and on the exchange.
	IsDepositCompleted(ctx context.Context, address string, sizeSats int64) (bool, error)

	// IsWithdrawalCompleted reports whether a previously initiated
	// withdrawal from address for sizeSats has settled.
	IsWithdrawalCompleted(ctx context.Context, address string, sizeSats int64) (bool, error)
}

// PositionDelta is opaque to the core; logged verbatim. Defined here
// (rather than imported from internal/dealer) so strategy implementations
// do not need to depend on the dealer package.
type PositionDelta struct {
	OriginalPosition float64
	UpdatedPosition  float64
}

// LeverageDelta is opaque to the core; logged verbatim.
type LeverageDelta struct {
	Detail string
}
