package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kappalabs/hedging-dealer/internal/dealer"
)

// PostgresLedger is a database/sql + lib/pq TransferLedger. Expects a
// transfers table:
//
//	CREATE TABLE transfers (
//	    id UUID PRIMARY KEY,
//	    direction TEXT NOT NULL,
//	    address TEXT NOT NULL,
//	    size_sats BIGINT NOT NULL,
//	    memo TEXT NOT NULL,
//	    completed BOOLEAN NOT NULL DEFAULT false,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX transfers_pending_address_direction
//	    ON transfers (address, direction) WHERE NOT completed;
//
// The partial unique index is the address-uniqueness-per-direction
// invariant from spec §9, enforced by the database rather than the Go
// code so concurrent dealer instances (should one ever be misconfigured to
// run more than one) cannot race past it.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func Open(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

func (l *PostgresLedger) Insert(ctx context.Context, t dealer.Transfer) error {
	const query = `
		INSERT INTO transfers (id, direction, address, size_sats, memo, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := l.db.ExecContext(ctx, query, t.ID, string(t.Direction), t.Address, t.SizeSats, t.Memo, t.Completed, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("ledger: insert transfer: %w", err)
	}
	return nil
}

func (l *PostgresLedger) GetPendingDeposit(ctx context.Context) (map[string][]dealer.Transfer, error) {
	return l.pendingByDirection(ctx, dealer.DepositToExchange)
}

func (l *PostgresLedger) GetPendingWithdraw(ctx context.Context) (map[string][]dealer.Transfer, error) {
	return l.pendingByDirection(ctx, dealer.WithdrawFromExchange)
}

func (l *PostgresLedger) pendingByDirection(ctx context.Context, direction dealer.Direction) (map[string][]dealer.Transfer, error) {
	const query = `
		SELECT id, direction, address, size_sats, memo, completed, created_at
		FROM transfers
		WHERE direction = $1 AND NOT completed
		ORDER BY created_at`

	rows, err := l.db.QueryContext(ctx, query, string(direction))
	if err != nil {
		return nil, fmt.Errorf("ledger: query pending %s: %w", direction, err)
	}
	defer rows.Close()

	out := map[string][]dealer.Transfer{}
	for rows.Next() {
		var t dealer.Transfer
		var dir string
		if err := rows.Scan(&t.ID, &dir, &t.Address, &t.SizeSats, &t.Memo, &t.Completed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan pending %s row: %w", direction, err)
		}
		t.Direction = dealer.Direction(dir)
		out[t.Address] = append(out[t.Address], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate pending %s rows: %w", direction, err)
	}
	return out, nil
}

func (l *PostgresLedger) Completed(ctx context.Context, address string) error {
	const query = `UPDATE transfers SET completed = true WHERE address = $1 AND NOT completed`

	_, err := l.db.ExecContext(ctx, query, address)
	if err != nil {
		return fmt.Errorf("ledger: mark completed %q: %w", address, err)
	}
	return nil
}

func (l *PostgresLedger) GetPendingCount(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM transfers WHERE NOT completed`

	var count int
	if err := l.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ledger: count pending: %w", err)
	}
	return count, nil
}
