package dealer

import (
	"errors"
	"fmt"

	"github.com/kappalabs/hedging-dealer/internal/observ"
)

// Error taxonomy (spec §7). Wrapped with fmt.Errorf("...: %w", ErrX) at the
// call site so errors.Is still matches the sentinel.
var (
	// ErrConfiguration marks a missing strategy/wallet selector. Fatal at
	// construction; never returned from Tick.
	ErrConfiguration = errors.New("configuration error")

	// ErrUpstreamUnavailable marks a wallet or exchange call that returned
	// failure or a non-finite value.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvariantViolation marks a precondition the core itself enforces,
	// e.g. an empty deposit address.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrLedger marks a TransferLedger insert/query/mark-complete failure.
	ErrLedger = errors.New("ledger error")

	// ErrStrategy marks an opaque failure surfaced from a HedgingStrategy
	// operation.
	ErrStrategy = errors.New("strategy error")
)

func wrapLedger(op string, err error) error {
	observ.IncCounter("dealer_ledger_errors_total", map[string]string{"op": op})
	return fmt.Errorf("%s: %w: %v", op, ErrLedger, err)
}

func wrapStrategy(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStrategy, err)
}

func wrapUpstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUpstreamUnavailable, err)
}
