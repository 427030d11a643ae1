package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock, quietLogger()), mock
}

func TestPostgresInsertBuildsMultiRowStatement(t *testing.T) {
	pg, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "positions" ("asset_id", "principal", "user_id") VALUES ($1, $2, $3), ($4, $5, $6)`)).
		WithArgs("AAPL", nil, "u1", "FD1", 5000.0, "u1").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	err := pg.Insert(context.Background(), TablePositions,
		Row{"user_id": "u1", "asset_id": "AAPL"},
		Row{"user_id": "u1", "asset_id": "FD1", "principal": 5000.0},
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSelectReturnsRows(t *testing.T) {
	pg, mock := newMockPostgres(t)
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "transactions" WHERE "user_id" = $1 ORDER BY "created_at" DESC`)).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"tx_id", "quantity", "created_at"}).
			AddRow("t2", 1.0, stamp).
			AddRow("t1", 2.0, stamp.Add(-time.Millisecond)))

	rows, err := pg.Select(context.Background(), TableTransactions,
		Filter{"user_id": "u1"}, Order{Column: "created_at", Desc: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "t2", rows[0]["tx_id"])
	assert.Equal(t, 2.0, rows[1]["quantity"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteWhere(t *testing.T) {
	pg, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "markets" WHERE "asset_type" IS NULL AND "user_id" = $1`)).
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, pg.DeleteWhere(context.Background(), TableMarkets, Filter{"user_id": "u1", "asset_type": nil}))
	assert.ErrorIs(t, pg.DeleteWhere(context.Background(), TableMarkets, Filter{}), ErrEmptyFilter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInTxCommits(t *testing.T) {
	pg, mock := newMockPostgres(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "profiles" WHERE "user_id" = $1`)).
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "profiles" ("name", "user_id") VALUES ($1, $2)`)).
		WithArgs("Asha", "u1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := pg.InTx(context.Background(), func(gw Gateway) error {
		if err := gw.DeleteWhere(context.Background(), TableProfiles, Filter{"user_id": "u1"}); err != nil {
			return err
		}
		return gw.Insert(context.Background(), TableProfiles, Row{"user_id": "u1", "name": "Asha"})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInTxRollsBackOnError(t *testing.T) {
	pg, mock := newMockPostgres(t)
	boom := errors.New("boom")

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "positions"`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)
	mock.ExpectRollback()

	err := pg.InTx(context.Background(), func(gw Gateway) error {
		return gw.Insert(context.Background(), TablePositions, Row{"user_id": "u1", "created_at": time.Now()})
	})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnsureSchema(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS profiles")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, pg.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
