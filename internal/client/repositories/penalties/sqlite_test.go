package penalties

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
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

	_, err = db.Exec(`
CREATE TABLE penalties (
  id             TEXT PRIMARY KEY,
  member_id      TEXT NOT NULL,
  type_id        TEXT NOT NULL,
  reason         TEXT NOT NULL DEFAULT '',
  amount_cents   INTEGER NOT NULL CHECK (amount_cents >= 0),
  currency       TEXT NOT NULL,
  archived       INTEGER NOT NULL DEFAULT 0,
  paid_at        INTEGER NULL,
  created_at     INTEGER NOT NULL,
  updated_at     INTEGER NOT NULL,
  version        INTEGER NOT NULL DEFAULT 0,
  pending        INTEGER NOT NULL DEFAULT 0,
  pending_delete INTEGER NOT NULL DEFAULT 0
);
`)
	require.NoError(t, err)
	return db
}

func testPenalty(id string) *models.Penalty {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Penalty{
		ID:          id,
		MemberID:    "m1",
		TypeID:      "late",
		Reason:      "late for training",
		AmountCents: 500,
		Currency:    models.CurrencyEUR,
		CreatedAt:   now,
		UpdatedAt:   now,
		Pending:     true,
	}
}

func TestUpsert_InsertAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	p := testPenalty("p1")
	require.NoError(t, r.Upsert(ctx, p))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.MemberID, got.MemberID)
	assert.Equal(t, p.AmountCents, got.AmountCents)
	assert.Equal(t, p.Currency, got.Currency)
	assert.True(t, got.CreatedAt.Equal(p.CreatedAt))
	assert.Nil(t, got.PaidAt)
	assert.True(t, got.Pending)
}

func TestUpsert_UpdatesExistingRow(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	p := testPenalty("p1")
	require.NoError(t, r.Upsert(ctx, p))

	paidAt := p.CreatedAt.Add(time.Hour)
	p.PaidAt = &paidAt
	p.Reason = "edited"
	p.Version = 7
	require.NoError(t, r.Upsert(ctx, p))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Reason)
	assert.Equal(t, int64(7), got.Version)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(paidAt))
}

func TestGetByID_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestQueryActive_ExcludesArchivedAndPendingDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	active := testPenalty("p1")
	require.NoError(t, r.Upsert(ctx, active))

	archived := testPenalty("p2")
	archived.Archived = true
	require.NoError(t, r.Upsert(ctx, archived))

	deleted := testPenalty("p3")
	require.NoError(t, r.Upsert(ctx, deleted))
	require.NoError(t, r.MarkPendingDelete(ctx, "p3"))

	rows, err := r.QueryActive(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].ID)
}

func TestMarkPendingDelete_MissingRow(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	err := r.MarkPendingDelete(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestHardDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, testPenalty("p1")))
	require.NoError(t, r.HardDelete(ctx, "p1"))

	_, err := r.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSetSynced_StoresVersionAndClearsPending(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, testPenalty("p1")))
	require.NoError(t, r.SetSynced(ctx, "p1", 42))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Version)
	assert.False(t, got.Pending)
}
