package dealer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kappalabs/hedging-dealer/internal/observ"
)

const (
	satsPerBtc      = 100_000_000
	btcPrecision    = 1e8 // round to 8 decimal places before halving
	defaultRetries  = 2   // bound: retries+1 = 3 payOnChain calls
)

func btcToSats(btc float64) int64 {
	return int64(math.Round(btc * satsPerBtc))
}

func roundBtc(btc float64) float64 {
	return math.Round(btc*btcPrecision) / btcPrecision
}

// deposit is the deposit callback bound to this Dealer instance (spec
// §4.G). It is passed to the strategy's UpdateLeverage as the deposit
// capability; the strategy decides if/when to invoke it.
func (d *Dealer) deposit(ctx context.Context, address string, sizeBtc float64) error {
	return d.depositWithRetries(ctx, address, sizeBtc, defaultRetries)
}

func (d *Dealer) depositWithRetries(ctx context.Context, address string, sizeBtc float64, retries int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deposit callback panicked: %v", r)
		}
	}()

	sizeBtc = roundBtc(sizeBtc)
	sizeSats := btcToSats(sizeBtc)
	memo := fmt.Sprintf("%s-deposit-%s", d.strategy.Name(), uuid.NewString()[:8])

	payErr := d.wallet.PayOnChain(ctx, address, sizeSats, memo)
	if payErr != nil {
		if retries > 0 {
			observ.Log("deposit_retry_halving", map[string]any{
				"address": address, "size_btc": sizeBtc, "retries_left": retries - 1, "error": payErr.Error(),
			})
			observ.IncCounter("dealer_deposit_retry_total", map[string]string{"attempt": fmt.Sprint(defaultRetries - retries + 1)})
			return d.depositWithRetries(ctx, address, sizeBtc/2, retries-1)
		}
		return fmt.Errorf("deposit: on-chain pay failed after exhausting retries: %w", payErr)
	}

	// Money-safety gap (spec §9, flagged not fixed): the on-chain payment
	// above has already succeeded. If the process crashes before the
	// insert below completes, the payment has no ledger record and the
	// next tick's reconciler has nothing to sweep for this address.
	insertErr := d.ledger.Insert(ctx, Transfer{
		ID:        uuid.NewString(),
		Direction: DepositToExchange,
		Address:   address,
		SizeSats:  sizeSats,
		Memo:      memo,
		CreatedAt: time.Now(),
	})
	if insertErr != nil {
		observ.IncCounter("dealer_money_safety_gap_total", nil)
		observ.LogError("deposit_ledger_insert_failed_after_pay", map[string]any{
			"address": address, "size_sats": sizeSats, "error": insertErr.Error(),
		})
		return wrapLedger("insert deposit row after successful on-chain pay", insertErr)
	}
	return nil
}

// withdraw is the withdraw callback bound to this Dealer instance (spec
// §4.G). No on-chain action is taken here — the strategy itself initiates
// the exchange-side withdrawal; the callback only records the
// expectation.
func (d *Dealer) withdraw(ctx context.Context, address string, sizeBtc float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("withdraw callback panicked: %v", r)
		}
	}()

	sizeBtc = roundBtc(sizeBtc)
	sizeSats := btcToSats(sizeBtc)
	memo := fmt.Sprintf("%s-withdraw-%s", d.strategy.Name(), uuid.NewString()[:8])

	insertErr := d.ledger.Insert(ctx, Transfer{
		ID:        uuid.NewString(),
		Direction: WithdrawFromExchange,
		Address:   address,
		SizeSats:  sizeSats,
		Memo:      memo,
		CreatedAt: time.Now(),
	})
	if insertErr != nil {
		return wrapLedger("insert withdraw row", insertErr)
	}
	return nil
}
