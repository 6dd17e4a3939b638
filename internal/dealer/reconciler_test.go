package dealer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kappalabs/hedging-dealer/internal/ledger"
	"github.com/kappalabs/hedging-dealer/internal/strategy"
	"github.com/kappalabs/hedging-dealer/internal/walletclient"
)

// A failed settlement check for one row must not abort the sweep (spec §4.D).
func TestReconcileToleratesPerRowSettlementFailure(t *testing.T) {
	w := walletclient.NewMockWalletClient()
	s := strategy.NewMockStrategy("test-strategy")
	l := ledger.NewInMemoryLedger()
	d, err := New(w, s, l, threshold)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, Transfer{Direction: DepositToExchange, Address: "A", SizeSats: 1}))
	require.NoError(t, l.Insert(ctx, Transfer{Direction: DepositToExchange, Address: "B", SizeSats: 1}))
	s.MarkDepositCompleted("B")

	// A's settlement check errors; reconcile must still settle B.
	badStrategy := &failingSettlementStrategy{MockStrategy: s, failAddress: "A"}
	d2, err := New(w, badStrategy, l, threshold)
	require.NoError(t, err)

	require.NoError(t, d2.reconcile(ctx))

	count, err := l.GetPendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count) // only A remains pending
	_ = d
}

type failingSettlementStrategy struct {
	*strategy.MockStrategy
	failAddress string
}

func (f *failingSettlementStrategy) IsDepositCompleted(ctx context.Context, address string, sizeSats int64) (bool, error) {
	if address == f.failAddress {
		return false, errors.New("strategy unavailable")
	}
	return f.MockStrategy.IsDepositCompleted(ctx, address, sizeSats)
}

func TestWithdrawCallbackInsertsLedgerRowWithoutOnChainPay(t *testing.T) {
	w := walletclient.NewMockWalletClient()
	s := strategy.NewMockStrategy("test-strategy")
	l := ledger.NewInMemoryLedger()
	d, err := New(w, s, l, threshold)
	require.NoError(t, err)

	require.NoError(t, d.withdraw(context.Background(), "addrW", 0.05))
	require.Equal(t, 0, w.CallCount())

	pending, err := l.GetPendingWithdraw(context.Background())
	require.NoError(t, err)
	require.Len(t, pending["addrW"], 1)
	require.Equal(t, int64(5_000_000), pending["addrW"][0].SizeSats)
}

func TestWithdrawCallbackReturnsLedgerError(t *testing.T) {
	w := walletclient.NewMockWalletClient()
	s := strategy.NewMockStrategy("test-strategy")
	l := ledger.NewInMemoryLedger()
	d, err := New(w, s, l, threshold)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, Transfer{Direction: WithdrawFromExchange, Address: "dup", SizeSats: 1}))

	err = d.withdraw(ctx, "dup", 0.01)
	require.ErrorIs(t, err, ErrLedger)
}
