package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/kappalabs/hedging-dealer/internal/dealer"
)

// InMemoryLedger is a TransferLedger for tests and the dry-run/paper path.
// It enforces the address-uniqueness-per-direction invariant (spec §9)
// with a map keyed by (direction, address), mirroring the partial unique
// index PostgresLedger uses.
type InMemoryLedger struct {
	mu   sync.Mutex
	rows map[string]*dealer.Transfer // key: direction|address, one pending row at a time
	all  []*dealer.Transfer
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{rows: map[string]*dealer.Transfer{}}
}

func pendingKey(direction dealer.Direction, address string) string {
	return string(direction) + "|" + address
}

func (l *InMemoryLedger) Insert(ctx context.Context, t dealer.Transfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := pendingKey(t.Direction, t.Address)
	if existing, ok := l.rows[key]; ok && !existing.Completed {
		return fmt.Errorf("ledger: address %q already has a pending %s transfer", t.Address, t.Direction)
	}

	row := t
	l.rows[key] = &row
	l.all = append(l.all, &row)
	return nil
}

func (l *InMemoryLedger) GetPendingDeposit(ctx context.Context) (map[string][]dealer.Transfer, error) {
	return l.pendingByDirection(dealer.DepositToExchange), nil
}

func (l *InMemoryLedger) GetPendingWithdraw(ctx context.Context) (map[string][]dealer.Transfer, error) {
	return l.pendingByDirection(dealer.WithdrawFromExchange), nil
}

func (l *InMemoryLedger) pendingByDirection(direction dealer.Direction) map[string][]dealer.Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := map[string][]dealer.Transfer{}
	for _, t := range l.all {
		if t.Direction == direction && !t.Completed {
			out[t.Address] = append(out[t.Address], *t)
		}
	}
	return out
}

func (l *InMemoryLedger) Completed(ctx context.Context, address string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range l.all {
		if t.Address == address {
			t.Completed = true
		}
	}
	return nil
}

func (l *InMemoryLedger) GetPendingCount(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, t := range l.all {
		if !t.Completed {
			count++
		}
	}
	return count, nil
}
