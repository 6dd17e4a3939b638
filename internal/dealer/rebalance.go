package dealer

import (
	"context"
	"fmt"

	"github.com/kappalabs/hedging-dealer/internal/observ"
	"github.com/kappalabs/hedging-dealer/internal/strategy"
)

// runRebalancePhase runs only if the ledger has zero pending transfers
// (spec §4.F) — a pending transfer represents uncommitted collateral the
// strategy cannot yet see, so rebalancing while one is open would
// double-count.
func (d *Dealer) runRebalancePhase(ctx context.Context, outcome *TickOutcome, usdLiability, btcPriceInUsd float64) error {
	span := observ.StartSpan("app.dealer.updatePositionAndLeverage", map[string]any{
		"usdLiability":  usdLiability,
		"btcPriceInUsd": btcPriceInUsd,
	})
	defer span.End()

	pendingCount, err := d.ledger.GetPendingCount(ctx)
	if err != nil {
		span.SetAttr("error", err.Error())
		return wrapLedger("read pending count", err)
	}
	outcome.PendingTransferCount = pendingCount

	if pendingCount != 0 {
		outcome.LeverageSkipped = true
		span.SetAttr("leverageSkipped", true)
		observ.Log("rebalance_skipped_pending_transfers", map[string]any{"pending_count": pendingCount})
		return nil
	}

	address, err := d.wallet.DepositAddress(ctx)
	if err != nil || address == "" {
		span.SetAttr("error", "deposit address unavailable")
		return fmt.Errorf("%w: WalletOnChainAddress is unavailable or invalid.", ErrInvariantViolation)
	}

	delta, err := d.strategy.UpdateLeverage(ctx, usdLiability, btcPriceInUsd, address,
		strategy.WithdrawCallback(d.withdraw), strategy.DepositCallback(d.deposit))
	if err != nil {
		outcome.LeverageErr = wrapStrategy("update leverage", err)
		span.SetAttr("leverage_success", false)
		span.SetAttr("error", err.Error())
		observ.LogError("leverage_update_failed", map[string]any{"error": err.Error()})
		return nil
	}

	outcome.LeverageResult = &delta
	span.SetAttr("leverage_success", true)
	span.SetAttr("activeStrategy", d.strategy.Name())
	observ.Log("leverage_updated", map[string]any{"detail": delta.Detail})
	return nil
}
