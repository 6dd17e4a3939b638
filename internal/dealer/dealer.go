package dealer

import (
	"fmt"
	"sync"
)

// Dealer is the control loop's receiver. The threshold and the
// wallet/strategy collaborators are constructor inputs (spec §9 —
// "specified as constructor inputs rather than ambient globals in the
// re-architecture") rather than package-level globals.
type Dealer struct {
	wallet   WalletClient
	strategy HedgingStrategy
	ledger   TransferLedger

	minimumPositiveLiabilityUSD float64

	mu            sync.RWMutex
	lastPrice     float64
	lastOutcome   *TickOutcome
	lastTickErr   error
}

// New constructs a Dealer. A nil wallet or strategy is a ConfigurationError
// (spec §6/§7), fatal at construction and never surfaced from Tick.
func New(wallet WalletClient, strategy HedgingStrategy, ledger TransferLedger, minimumPositiveLiabilityUSD float64) (*Dealer, error) {
	if wallet == nil {
		return nil, fmt.Errorf("%w: wallet client is required", ErrConfiguration)
	}
	if strategy == nil {
		return nil, fmt.Errorf("%w: strategy is required", ErrConfiguration)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: transfer ledger is required", ErrConfiguration)
	}
	if minimumPositiveLiabilityUSD < 0 {
		return nil, fmt.Errorf("%w: minimum positive liability must be non-negative", ErrConfiguration)
	}

	return &Dealer{
		wallet:                      wallet,
		strategy:                    strategy,
		ledger:                      ledger,
		minimumPositiveLiabilityUSD: minimumPositiveLiabilityUSD,
	}, nil
}

// LastSpotPrice returns the BTC/USD price from the most recent tick that
// obtained a valid price, for the outward-facing query surface
// (internal/httpapi). Zero means no tick has obtained a price yet.
func (d *Dealer) LastSpotPrice() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastPrice
}

// LastStatus returns the most recently completed tick's outcome and
// error, for internal/httpapi's /status endpoint.
func (d *Dealer) LastStatus() (*TickOutcome, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastOutcome, d.lastTickErr
}

func (d *Dealer) recordTickResult(price float64, outcome TickOutcome, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if price > 0 {
		d.lastPrice = price
	}
	d.lastOutcome = &outcome
	d.lastTickErr = err
}
