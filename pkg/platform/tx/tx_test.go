package tx

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE items (name TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestRun_Commits(t *testing.T) {
	db := openDB(t)
	err := Run(context.Background(), db, func(ctx context.Context) error {
		_, ok := From(ctx)
		assert.True(t, ok)
		_, err := Conn(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db))
}

func TestRun_RollsBackOnError(t *testing.T) {
	db := openDB(t)
	boom := errors.New("boom")
	err := Run(context.Background(), db, func(ctx context.Context) error {
		if _, err := Conn(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}

func TestRun_RejectsNesting(t *testing.T) {
	db := openDB(t)
	err := Run(context.Background(), db, func(ctx context.Context) error {
		return Run(ctx, db, func(context.Context) error { return nil })
	})
	require.Error(t, err)
}

func TestConn_FallsBackToPool(t *testing.T) {
	db := openDB(t)
	assert.Same(t, db, Conn(context.Background(), db))
	assert.Equal(t, context.Background(), WithTx(context.Background(), nil))
}
