package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kappalabs/hedging-dealer/internal/dealer"
)

func TestInMemoryLedgerInsertAndPending(t *testing.T) {
	l := NewInMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.Insert(ctx, dealer.Transfer{
		Direction: dealer.DepositToExchange,
		Address:   "addrA",
		SizeSats:  1_000_000,
		CreatedAt: time.Now(),
	}))

	count, err := l.GetPendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	pending, err := l.GetPendingDeposit(ctx)
	require.NoError(t, err)
	require.Len(t, pending["addrA"], 1)
}

func TestInMemoryLedgerRejectsDuplicatePendingAddressPerDirection(t *testing.T) {
	l := NewInMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.Insert(ctx, dealer.Transfer{Direction: dealer.DepositToExchange, Address: "addrA", SizeSats: 1, CreatedAt: time.Now()}))
	err := l.Insert(ctx, dealer.Transfer{Direction: dealer.DepositToExchange, Address: "addrA", SizeSats: 2, CreatedAt: time.Now()})
	require.Error(t, err)
}

func TestInMemoryLedgerCompletedIsIdempotent(t *testing.T) {
	l := NewInMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.Insert(ctx, dealer.Transfer{Direction: dealer.DepositToExchange, Address: "addrA", SizeSats: 1, CreatedAt: time.Now()}))
	require.NoError(t, l.Completed(ctx, "addrA"))
	require.NoError(t, l.Completed(ctx, "addrA")) // idempotent, no error

	count, err := l.GetPendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestInMemoryLedgerAllowsSameAddressAndDirectionOnceCompleted(t *testing.T) {
	l := NewInMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.Insert(ctx, dealer.Transfer{Direction: dealer.DepositToExchange, Address: "addrA", SizeSats: 1, CreatedAt: time.Now()}))
	require.NoError(t, l.Completed(ctx, "addrA"))
	// A new pending row for the same address+direction is now allowed.
	require.NoError(t, l.Insert(ctx, dealer.Transfer{Direction: dealer.DepositToExchange, Address: "addrA", SizeSats: 2, CreatedAt: time.Now()}))
}
