package dealer

import (
	"context"

	"github.com/kappalabs/hedging-dealer/internal/strategy"
	"github.com/kappalabs/hedging-dealer/internal/walletclient"
)

// WalletClient and HedgingStrategy are re-exported here so dealer.go's
// constructor can accept them without every caller importing three
// packages; the canonical interface definitions live in
// internal/walletclient and internal/strategy.
type WalletClient = walletclient.WalletClient
type HedgingStrategy = strategy.HedgingStrategy

// TransferLedger is the persistence collaborator (spec §6). Defined here,
// rather than in internal/ledger, because its methods are expressed in
// terms of dealer.Transfer and internal/ledger's concrete implementations
// (PostgresLedger, InMemoryLedger) import this package for that type —
// putting the interface there too would cycle.
type TransferLedger interface {
	Insert(ctx context.Context, t Transfer) error

	// GetPendingDeposit returns pending deposit rows keyed by address.
	GetPendingDeposit(ctx context.Context) (map[string][]Transfer, error)

	// GetPendingWithdraw returns pending withdrawal rows keyed by address.
	GetPendingWithdraw(ctx context.Context) (map[string][]Transfer, error)

	// Completed flips the row(s) at address to completed = true.
	// Idempotent: marking an already-completed row again must not error.
	Completed(ctx context.Context, address string) error

	// GetPendingCount returns the total count of not-yet-completed rows
	// across both directions.
	GetPendingCount(ctx context.Context) (int, error)
}
