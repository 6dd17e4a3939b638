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

const threshold = 5.0

func newTestDealer(t *testing.T) (*Dealer, *walletclient.MockWalletClient, *strategy.MockStrategy, *ledger.InMemoryLedger) {
	t.Helper()
	w := walletclient.NewMockWalletClient()
	s := strategy.NewMockStrategy("test-strategy")
	l := ledger.NewInMemoryLedger()

	d, err := New(w, s, l, threshold)
	require.NoError(t, err)
	return d, w, s, l
}

// S1 — no liability, no position.
func TestTickS1NoLiability(t *testing.T) {
	d, w, s, _ := newTestDealer(t)
	w.UsdBalance = 0
	s.SpotPrice = 50000

	outcome, err := d.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, outcome.PositionSkipped)
	require.Equal(t, 1, s.ClosePositionCalls)
	require.Equal(t, 0, s.UpdatePositionCalls)
}

// S2 — liability below threshold.
func TestTickS2LiabilityBelowThreshold(t *testing.T) {
	d, w, s, _ := newTestDealer(t)
	w.UsdBalance = -2 // liability = 2
	s.SpotPrice = 50000

	outcome, err := d.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, outcome.PositionSkipped)
	require.Equal(t, 1, s.ClosePositionCalls)
	require.Equal(t, 0, s.UpdatePositionCalls)
}

// S3 — liability above threshold, clean rebalance.
func TestTickS3CleanRebalance(t *testing.T) {
	d, w, s, _ := newTestDealer(t)
	w.UsdBalance = -1000
	s.SpotPrice = 50000

	var capturedLiability, capturedPrice float64
	var capturedAddr string
	s.UpdateLeverageFunc = func(ctx context.Context, usdLiability, btcPriceInUsd float64, depositAddress string, withdraw strategy.WithdrawCallback, deposit strategy.DepositCallback) (strategy.LeverageDelta, error) {
		capturedLiability = usdLiability
		capturedPrice = btcPriceInUsd
		capturedAddr = depositAddress
		return strategy.LeverageDelta{Detail: "ok"}, nil
	}

	outcome, err := d.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, outcome.PositionSkipped)
	require.Equal(t, 1, s.UpdatePositionCalls)
	require.False(t, outcome.LeverageSkipped)
	require.Equal(t, 1000.0, capturedLiability)
	require.Equal(t, 50000.0, capturedPrice)
	require.Equal(t, w.Address, capturedAddr)
}

// S4 — rebalance blocked by pending transfer.
func TestTickS4RebalanceBlockedByPending(t *testing.T) {
	d, w, s, l := newTestDealer(t)
	w.UsdBalance = -1000
	s.SpotPrice = 50000

	require.NoError(t, l.Insert(context.Background(), Transfer{
		Direction: DepositToExchange, Address: "addrPending", SizeSats: 1,
	}))

	leverageCalled := false
	s.UpdateLeverageFunc = func(ctx context.Context, usdLiability, btcPriceInUsd float64, depositAddress string, withdraw strategy.WithdrawCallback, deposit strategy.DepositCallback) (strategy.LeverageDelta, error) {
		leverageCalled = true
		return strategy.LeverageDelta{}, nil
	}

	outcome, err := d.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, outcome.LeverageSkipped)
	require.False(t, leverageCalled)
	require.Equal(t, 1, outcome.PendingTransferCount)
}

// S5 — halving retry.
func TestDepositCallbackHalvingRetry(t *testing.T) {
	d, w, _, l := newTestDealer(t)

	attempts := 0
	w.PayOnChainFunc = func(ctx context.Context, address string, sizeSats int64, memo string) error {
		attempts++
		if attempts < 3 {
			return errors.New("per-tx cap exceeded")
		}
		return nil
	}

	err := d.deposit(context.Background(), "addrHalving", 0.4)
	require.NoError(t, err)
	require.Equal(t, 3, w.CallCount())
	require.Equal(t, int64(40_000_000), w.Payments[0].SizeSats)
	require.Equal(t, int64(20_000_000), w.Payments[1].SizeSats)
	require.Equal(t, int64(10_000_000), w.Payments[2].SizeSats)

	pending, err := l.GetPendingDeposit(context.Background())
	require.NoError(t, err)
	require.Len(t, pending["addrHalving"], 1)
	require.Equal(t, int64(10_000_000), pending["addrHalving"][0].SizeSats)
}

// Invariant 4: at most retries+1 = 3 calls even if every call fails.
func TestDepositCallbackBoundedAtThreeCalls(t *testing.T) {
	d, w, _, _ := newTestDealer(t)
	w.PayOnChainFunc = func(ctx context.Context, address string, sizeSats int64, memo string) error {
		return errors.New("always fails")
	}

	err := d.deposit(context.Background(), "addrFail", 0.4)
	require.Error(t, err)
	require.Equal(t, 3, w.CallCount())
}

// S6 — settlement sweep.
func TestReconcileSettlesCompletedDeposit(t *testing.T) {
	d, _, s, l := newTestDealer(t)
	ctx := context.Background()

	require.NoError(t, l.Insert(ctx, Transfer{
		Direction: DepositToExchange, Address: "A", SizeSats: 1_000_000,
	}))
	s.MarkDepositCompleted("A")

	require.NoError(t, d.reconcile(ctx))

	count, err := l.GetPendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

// S7 — NaN liability.
func TestTickS7NaNLiability(t *testing.T) {
	d, w, s, _ := newTestDealer(t)
	w.UsdBalance = nan()
	s.SpotPrice = 50000

	_, err := d.Tick(context.Background())
	require.ErrorContains(t, err, "Liabilities is unavailable or NaN")
	require.Equal(t, 0, s.ClosePositionCalls)
	require.Equal(t, 0, s.UpdatePositionCalls)
}

func nan() float64 {
	var zero float64
	return zero / zero
}

// Invariant 7: liability sign inversion.
func TestLiabilitySignInversion(t *testing.T) {
	d, w, s, _ := newTestDealer(t)
	w.UsdBalance = 50 // user in credit -> inverted liability is negative, below threshold
	s.SpotPrice = 50000

	outcome, err := d.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, outcome.PositionSkipped)
	require.Equal(t, 1, s.ClosePositionCalls)
}

// closePosition's error is never surfaced (spec §9 open question).
func TestClosePositionErrorIsNotSurfaced(t *testing.T) {
	d, w, s, _ := newTestDealer(t)
	w.UsdBalance = 0
	s.SpotPrice = 50000
	s.ClosePositionErr = errors.New("exchange unavailable")

	outcome, err := d.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, outcome.PositionSkipped)
}

func TestRebalanceAbortsOnMissingDepositAddress(t *testing.T) {
	d, w, s, _ := newTestDealer(t)
	w.UsdBalance = -1000
	s.SpotPrice = 50000
	w.AddressErr = errors.New("wallet down")

	_, err := d.Tick(context.Background())
	require.ErrorIs(t, err, ErrInvariantViolation)
	require.ErrorContains(t, err, "WalletOnChainAddress is unavailable or invalid")
}

func TestAggregatePrefersPositionErrorOverLeverageError(t *testing.T) {
	d, w, s, _ := newTestDealer(t)
	w.UsdBalance = -1000
	s.SpotPrice = 50000
	s.UpdatePositionErr = errors.New("position update failed")
	s.UpdateLeverageErr = errors.New("leverage update failed")

	_, err := d.Tick(context.Background())
	require.ErrorContains(t, err, "position update failed")
}
