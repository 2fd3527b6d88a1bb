package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type counterQueries struct {
	tx *sql.Tx
}

func (q *counterQueries) incr(ctx context.Context) error {
	_, err := q.tx.ExecContext(ctx, `UPDATE counter SET n = n + 1`)
	return err
}

func newCounterDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE counter (n INTEGER NOT NULL); INSERT INTO counter (n) VALUES (0)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT n FROM counter`).Scan(&n))
	return n
}

func newCounterQueries(tx *sql.Tx) *counterQueries { return &counterQueries{tx: tx} }

func TestRunCommits(t *testing.T) {
	ctx := context.Background()
	db := newCounterDB(t)

	err := Run(ctx, db, newCounterQueries, func(q *counterQueries) error {
		return q.incr(ctx)
	})

	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db))
}

func TestRunRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := newCounterDB(t)
	errStop := errors.New("stop")

	err := Run(ctx, db, newCounterQueries, func(q *counterQueries) error {
		require.NoError(t, q.incr(ctx))
		return errStop
	})

	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, 0, count(t, db))
}

func TestRunRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	db := newCounterDB(t)

	assert.Panics(t, func() {
		_ = Run(ctx, db, newCounterQueries, func(q *counterQueries) error {
			require.NoError(t, q.incr(ctx))
			panic("boom")
		})
	})
	assert.Equal(t, 0, count(t, db))
}
