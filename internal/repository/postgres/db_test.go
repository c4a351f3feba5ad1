package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestDB_Ping(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectPing()
	require.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	require.Error(t, db.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_InTx(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users`).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	err := db.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE users SET name='x'`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = db.InTx(ctx, func(pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))
	require.Error(t, db.InTx(ctx, func(pgx.Tx) error { return nil }))

	require.NoError(t, mock.ExpectationsWereMet())
}
