package strategy

import (
	"context"
	"sync"
)

// MockStrategy is the only shipped HedgingStrategy implementation (spec
// §1 Non-goals keep real spot/futures math out of scope). Behavior is
// injectable via closures, so dealer tests can script any scenario
// without a real exchange.
type MockStrategy struct {
	mu sync.Mutex

	StrategyName string
	SpotPrice    float64

	SpotPriceErr      error
	UpdatePositionErr error
	ClosePositionErr  error
	UpdateLeverageErr error

	// UpdateLeverageFunc, when set, overrides the default no-op leverage
	// update and lets a test drive the withdraw/deposit callbacks.
	UpdateLeverageFunc func(ctx context.Context, usdLiability, btcPriceInUsd float64, depositAddress string, withdraw WithdrawCallback, deposit DepositCallback) (LeverageDelta, error)

	DepositCompleted    map[string]bool
	WithdrawalCompleted map[string]bool

	ClosePositionCalls  int
	UpdatePositionCalls int
}

func NewMockStrategy(name string) *MockStrategy {
	return &MockStrategy{
		StrategyName:        name,
		SpotPrice:           50000,
		DepositCompleted:    map[string]bool{},
		WithdrawalCompleted: map[string]bool{},
	}
}

func (m *MockStrategy) Name() string { return m.StrategyName }

func (m *MockStrategy) GetBtcSpotPriceInUsd(ctx context.Context) (float64, error) {
	return m.SpotPrice, m.SpotPriceErr
}

func (m *MockStrategy) UpdatePosition(ctx context.Context, usdLiability, btcPriceInUsd float64) (PositionDelta, error) {
	m.mu.Lock()
	m.UpdatePositionCalls++
	m.mu.Unlock()

	if m.UpdatePositionErr != nil {
		return PositionDelta{}, m.UpdatePositionErr
	}
	return PositionDelta{OriginalPosition: 0, UpdatedPosition: usdLiability / btcPriceInUsd}, nil
}

func (m *MockStrategy) ClosePosition(ctx context.Context) error {
	m.mu.Lock()
	m.ClosePositionCalls++
	m.mu.Unlock()
	return m.ClosePositionErr
}

func (m *MockStrategy) UpdateLeverage(ctx context.Context, usdLiability, btcPriceInUsd float64, depositAddress string, withdraw WithdrawCallback, deposit DepositCallback) (LeverageDelta, error) {
	if m.UpdateLeverageFunc != nil {
		return m.UpdateLeverageFunc(ctx, usdLiability, btcPriceInUsd, depositAddress, withdraw, deposit)
	}
	if m.UpdateLeverageErr != nil {
		return LeverageDelta{}, m.UpdateLeverageErr
	}
	return LeverageDelta{Detail: "no-op"}, nil
}

func (m *MockStrategy) IsDepositCompleted(ctx context.Context, address string, sizeSats int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DepositCompleted[address], nil
}

func (m *MockStrategy) IsWithdrawalCompleted(ctx context.Context, address string, sizeSats int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.WithdrawalCompleted[address], nil
}

// MarkDepositCompleted lets a test flip a deposit's settlement state.
func (m *MockStrategy) MarkDepositCompleted(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DepositCompleted[address] = true
}

// MarkWithdrawalCompleted lets a test flip a withdrawal's settlement state.
func (m *MockStrategy) MarkWithdrawalCompleted(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WithdrawalCompleted[address] = true
}
