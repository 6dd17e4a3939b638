package dealer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kappalabs/hedging-dealer/internal/observ"
)

// Tick runs one end-to-end pass of the control loop (spec §4.H): reconcile
// in-flight transfers, then adjust position, then rebalance collateral.
// Phases run strictly sequentially; only one Tick executes at a time per
// Dealer (single-writer, enforced by the caller never re-entering this
// method concurrently for the same instance).
func (d *Dealer) Tick(ctx context.Context) (TickOutcome, error) {
	start := time.Now()
	outcome, price, err := d.tick(ctx)

	observ.Observe("dealer_tick_latency_ms", float64(time.Since(start).Milliseconds()), nil)
	observ.IncCounter("dealer_ticks_total", nil)
	if err == nil {
		observ.IncCounter("dealer_ticks_ok_total", nil)
	}
	observ.SetGauge("dealer_pending_transfers", float64(outcome.PendingTransferCount), nil)
	d.recordTickResult(price, outcome, err)
	return outcome, err
}

func (d *Dealer) tick(ctx context.Context) (TickOutcome, float64, error) {
	var outcome TickOutcome

	if err := d.reconcile(ctx); err != nil {
		return outcome, 0, err
	}

	btcPriceInUsd, err := d.strategy.GetBtcSpotPriceInUsd(ctx)
	if err != nil {
		return outcome, 0, wrapUpstream("get spot price", err)
	}
	if btcPriceInUsd <= 0 || math.IsNaN(btcPriceInUsd) {
		return outcome, 0, fmt.Errorf("%w: spot price is non-positive or NaN", ErrUpstreamUnavailable)
	}

	rawUsdBalance, err := d.wallet.GetUsdWalletBalance(ctx)
	if err != nil {
		return outcome, btcPriceInUsd, wrapUpstream("get USD wallet balance", err)
	}
	usdLiability := -rawUsdBalance // wallet reports negative when user owes USD
	if math.IsNaN(usdLiability) || math.IsInf(usdLiability, 0) {
		return outcome, btcPriceInUsd, fmt.Errorf("%w: Liabilities is unavailable or NaN.", ErrUpstreamUnavailable)
	}

	d.runPositionPhase(ctx, &outcome, usdLiability, btcPriceInUsd)

	if err := d.runRebalancePhase(ctx, &outcome, usdLiability, btcPriceInUsd); err != nil {
		return outcome, btcPriceInUsd, err
	}

	return outcome, btcPriceInUsd, d.aggregate(outcome)
}

// aggregate selects the single error to surface from the two phase
// results (spec §4.H): success iff each phase was either skipped or
// succeeded. If both phases produced an error, the position error wins;
// the leverage error is logged instead of discarded. Unknown states
// collapse to a generic error rather than panicking.
func (d *Dealer) aggregate(outcome TickOutcome) error {
	positionFailed := !outcome.PositionSkipped && outcome.PositionResult == nil && outcome.PositionErr != nil
	leverageFailed := !outcome.LeverageSkipped && outcome.LeverageResult == nil && outcome.LeverageErr != nil

	switch {
	case !positionFailed && !leverageFailed:
		return nil
	case positionFailed && leverageFailed:
		observ.LogError("tick_leverage_error_suppressed", map[string]any{"error": outcome.LeverageErr.Error()})
		return outcome.PositionErr
	case positionFailed:
		return outcome.PositionErr
	case leverageFailed:
		return outcome.LeverageErr
	default:
		return fmt.Errorf("unknown error")
	}
}
