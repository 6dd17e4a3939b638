package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kappalabs/hedging-dealer/internal/dealer"
)

func TestPostgresLedgerInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPostgresLedger(db)
	tr := dealer.Transfer{
		ID:        uuid.NewString(),
		Direction: dealer.DepositToExchange,
		Address:   "addr1",
		SizeSats:  10_000_000,
		Memo:      "test",
		CreatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO transfers`).
		WithArgs(tr.ID, string(tr.Direction), tr.Address, tr.SizeSats, tr.Memo, tr.Completed, tr.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, l.Insert(context.Background(), tr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPostgresLedger(db)
	tr := dealer.Transfer{ID: uuid.NewString(), Direction: dealer.WithdrawFromExchange, Address: "addr2", SizeSats: 1, CreatedAt: time.Now()}

	mock.ExpectExec(`INSERT INTO transfers`).WillReturnError(errors.New("connection reset"))

	err = l.Insert(context.Background(), tr)
	require.Error(t, err)
}

func TestPostgresLedgerGetPendingDeposit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPostgresLedger(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM transfers WHERE direction`).
		WithArgs(string(dealer.DepositToExchange)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "direction", "address", "size_sats", "memo", "completed", "created_at"}).
			AddRow("id-1", string(dealer.DepositToExchange), "addrA", int64(1_000_000), "memo", false, now))

	pending, err := l.GetPendingDeposit(context.Background())
	require.NoError(t, err)
	require.Len(t, pending["addrA"], 1)
	require.Equal(t, int64(1_000_000), pending["addrA"][0].SizeSats)
}

func TestPostgresLedgerCompletedIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPostgresLedger(db)

	mock.ExpectExec(`UPDATE transfers SET completed`).
		WithArgs("addrA").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, l.Completed(context.Background(), "addrA"))
}

func TestPostgresLedgerGetPendingCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPostgresLedger(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transfers WHERE NOT completed`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := l.GetPendingCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, count)
}
