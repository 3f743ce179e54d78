package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/classwork/internal/db"
	"github.com/mind-engage/classwork/internal/db/dbtest"
)

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]db.Driver{
		"":         db.DriverSQLite,
		"sqlite3":  db.DriverSQLite,
		"Postgres": db.DriverPostgres,
		"pgx":      db.DriverPostgres,
	} {
		got, err := db.ParseDriver(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := db.ParseDriver("mysql")
	assert.Error(t, err)
}

func TestSchemaIsIdempotentAndEnforcesUniqueness(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	_, err := conn.ExecContext(ctx, `INSERT INTO users (id,email,password_hash,created_at) VALUES ('u1','a@x','h',1)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO users (id,email,password_hash,created_at) VALUES ('u2','a@x','h',1)`)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
	assert.False(t, db.IsUniqueViolation(errors.New("boom")))
	assert.False(t, db.IsUniqueViolation(nil))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (id,email,password_hash,created_at) VALUES ('u1','a@x','h',1)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (id,email,password_hash,created_at) VALUES ('u1','a@x','h',1)`)
		return err
	}))
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 1, n)
}
