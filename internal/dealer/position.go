package dealer

import (
	"context"

	"github.com/kappalabs/hedging-dealer/internal/observ"
)

// runPositionPhase decides whether to close, skip, or resize the position
// (spec §4.E). usdLiability is finite; it is negative when the wallet
// reports a USD credit, which is below any non-negative threshold and so
// closes the position.
func (d *Dealer) runPositionPhase(ctx context.Context, outcome *TickOutcome, usdLiability, btcPriceInUsd float64) {
	if usdLiability < d.minimumPositiveLiabilityUSD {
		outcome.PositionSkipped = true

		// closePosition's error is deliberately not inspected here (spec
		// §9): the strategy owns its own idempotence, and surfacing this
		// would make an already-flat position a tick failure.
		if err := d.strategy.ClosePosition(ctx); err != nil {
			observ.LogDebug("position_close_failed", map[string]any{"error": err.Error()})
		}
		observ.Log("position_closed", map[string]any{"usd_liability": usdLiability})
		return
	}

	delta, err := d.strategy.UpdatePosition(ctx, usdLiability, btcPriceInUsd)
	if err != nil {
		outcome.PositionErr = wrapStrategy("update position", err)
		observ.LogError("position_update_failed", map[string]any{"error": err.Error()})
		return
	}
	outcome.PositionResult = &delta
	observ.Log("position_updated", map[string]any{
		"usd_liability": usdLiability,
		"btc_price":     btcPriceInUsd,
		"original":      delta.OriginalPosition,
		"updated":       delta.UpdatedPosition,
	})
}
