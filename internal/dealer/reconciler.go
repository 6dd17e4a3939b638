package dealer

import (
	"context"

	"github.com/kappalabs/hedging-dealer/internal/observ"
)

// reconcile sweeps pending deposits and withdrawals (spec §4.D), asking
// the strategy whether each has settled. A failed settlement check or
// ledger write for one row never aborts the sweep; the row is revisited on
// the next tick.
func (d *Dealer) reconcile(ctx context.Context) error {
	span := observ.StartSpan("app.dealer.updateInFlightTransfer", nil)
	defer span.End()

	pendingDeposits, err := d.ledger.GetPendingDeposit(ctx)
	if err != nil {
		span.SetAttr("error", err.Error())
		return wrapLedger("read pending deposits", err)
	}
	d.sweep(ctx, pendingDeposits, d.strategy.IsDepositCompleted)

	pendingWithdrawals, err := d.ledger.GetPendingWithdraw(ctx)
	if err != nil {
		span.SetAttr("error", err.Error())
		return wrapLedger("read pending withdrawals", err)
	}
	d.sweep(ctx, pendingWithdrawals, d.strategy.IsWithdrawalCompleted)

	span.SetAttr("deposits_swept", len(pendingDeposits))
	span.SetAttr("withdrawals_swept", len(pendingWithdrawals))
	return nil
}

type settlementCheck func(ctx context.Context, address string, sizeSats int64) (bool, error)

func (d *Dealer) sweep(ctx context.Context, pending map[string][]Transfer, isSettled settlementCheck) {
	for address, rows := range pending {
		for _, row := range rows {
			settled, err := isSettled(ctx, address, row.SizeSats)
			if err != nil {
				observ.LogError("reconcile_settlement_check_failed", map[string]any{
					"address": address, "direction": row.Direction, "error": err.Error(),
				})
				continue
			}
			if !settled {
				continue
			}
			if err := d.ledger.Completed(ctx, address); err != nil {
				observ.LogError("reconcile_mark_completed_failed", map[string]any{
					"address": address, "direction": row.Direction, "error": err.Error(),
				})
				continue
			}
			observ.Log("reconcile_transfer_completed", map[string]any{
				"address": address, "direction": row.Direction, "size_sats": row.SizeSats,
			})
		}
	}
}
