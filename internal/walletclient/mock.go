package walletclient

import (
	"context"
	"fmt"
	"sync"
)

// MockWalletClient is a deterministic WalletClient for tests and the
// dry-run path. Behavior is injectable via closures so tests can script
// any failure or latency scenario without touching the network.
type MockWalletClient struct {
	mu sync.Mutex

	UsdBalance float64
	BtcBalance float64
	Address    string

	UsdBalanceErr error
	BtcBalanceErr error
	AddressErr    error

	// PayOnChainFunc, when set, is invoked instead of the default
	// always-succeeds behavior. Tests use this to script retry scenarios.
	PayOnChainFunc func(ctx context.Context, address string, sizeSats int64, memo string) error

	Payments []PaymentCall
}

// PaymentCall records one PayOnChain invocation for assertions.
type PaymentCall struct {
	Address  string
	SizeSats int64
	Memo     string
}

func NewMockWalletClient() *MockWalletClient {
	return &MockWalletClient{Address: "bc1qmockaddress"}
}

func (m *MockWalletClient) GetUsdWalletBalance(ctx context.Context) (float64, error) {
	return m.UsdBalance, m.UsdBalanceErr
}

func (m *MockWalletClient) GetBtcWalletBalance(ctx context.Context) (float64, error) {
	return m.BtcBalance, m.BtcBalanceErr
}

func (m *MockWalletClient) DepositAddress(ctx context.Context) (string, error) {
	if m.AddressErr != nil {
		return "", m.AddressErr
	}
	return m.Address, nil
}

func (m *MockWalletClient) PayOnChain(ctx context.Context, address string, sizeSats int64, memo string) error {
	m.mu.Lock()
	m.Payments = append(m.Payments, PaymentCall{Address: address, SizeSats: sizeSats, Memo: memo})
	m.mu.Unlock()

	if m.PayOnChainFunc != nil {
		return m.PayOnChainFunc(ctx, address, sizeSats, memo)
	}
	return nil
}

// CallCount returns the number of PayOnChain calls recorded so far.
func (m *MockWalletClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payments)
}

func (m *MockWalletClient) String() string {
	return fmt.Sprintf("MockWalletClient{usd=%v btc=%v addr=%q}", m.UsdBalance, m.BtcBalance, m.Address)
}
