package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB);`)
	require.NoError(t, err)
	return db
}

func TestSetGetDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	got, err := r.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.Set(ctx, KeyUsername, []byte("alice")))
	got, err = r.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.Equal(t, []byte("alice"), got)

	require.NoError(t, r.Set(ctx, KeyUsername, []byte("bob")))
	got, err = r.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.Equal(t, []byte("bob"), got)

	require.NoError(t, r.Delete(ctx, KeyUsername))
	got, err = r.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCursor_DefaultsToZero(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	cursor, err := r.GetCursor(ctx)
	require.NoError(t, err)
	assert.Zero(t, cursor)
}

func TestCursor_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.SetCursor(ctx, 1234))
	cursor, err := r.GetCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), cursor)
}

func TestCursor_CorruptValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeySyncCursor, []byte("not-a-number")))
	_, err := r.GetCursor(ctx)
	assert.ErrorIs(t, err, common.ErrStorageFailure)
}
