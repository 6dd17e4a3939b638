// Package walletclient defines the WalletClient collaborator (spec §6):
// USD/BTC balance queries, on-chain payment, and deposit-address issuance
// for the custodial wallet backing the dealer's liability.
package walletclient

import "context"

// WalletClient is implemented once per wallet backend. All operations may
// block on I/O; callers thread ctx through for cancellation.
type WalletClient interface {
	// GetUsdWalletBalance returns the wallet's USD balance. May be negative
	// (user owes USD), zero, positive (user in credit), or NaN.
	GetUsdWalletBalance(ctx context.Context) (float64, error)

	// GetBtcWalletBalance returns the wallet's BTC balance.
	GetBtcWalletBalance(ctx context.Context) (float64, error)

	// DepositAddress returns a fresh or reusable on-chain address to
	// deposit collateral into.
	DepositAddress(ctx context.Context) (string, error)

	// PayOnChain sends sizeSats to address, tagged with memo.
	PayOnChain(ctx context.Context, address string, sizeSats int64, memo string) error
}
