package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbc, err := Open(filepath.Join(t.TempDir(), "nested", "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbc.Close() })
	require.NoError(t, Migrate(context.Background(), dbc))
	return dbc
}

func TestMigrateIsIdempotent(t *testing.T) {
	dbc := setupTestDB(t)
	assert.NoError(t, Migrate(context.Background(), dbc))

	var count int
	err := dbc.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('users','tokens','profiles','posts')`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestDeletingUserCascades(t *testing.T) {
	dbc := setupTestDB(t)
	now := time.Now()

	res, err := dbc.Exec(`INSERT INTO users(username,password_hash,created_at) VALUES(?,?,?)`, "ann", "x", now)
	require.NoError(t, err)
	uid, _ := res.LastInsertId()

	_, err = dbc.Exec(`INSERT INTO profiles(user_id) VALUES(?)`, uid)
	require.NoError(t, err)
	_, err = dbc.Exec(`INSERT INTO tokens(key,user_id,created_at) VALUES(?,?,?)`, "k", uid, now)
	require.NoError(t, err)
	_, err = dbc.Exec(`INSERT INTO posts(author_id,title,description,created_at) VALUES(?,?,?,?)`, uid, "t", "d", now)
	require.NoError(t, err)

	_, err = dbc.Exec(`DELETE FROM users WHERE id = ?`, uid)
	require.NoError(t, err)

	for _, table := range []string{"profiles", "tokens", "posts"} {
		var n int
		require.NoError(t, dbc.QueryRow(`SELECT count(*) FROM `+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	dbc := setupTestDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), dbc, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO users(username,password_hash,created_at) VALUES(?,?,?)`, "bob", "x", time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, dbc.QueryRow(`SELECT count(*) FROM users`).Scan(&n))
	assert.Zero(t, n)
}
