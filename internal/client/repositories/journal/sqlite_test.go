package journal

import (
	"context"
	"database/sql"
	"testing"

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
CREATE TABLE journal (
  seq             INTEGER PRIMARY KEY AUTOINCREMENT,
  penalty_id      TEXT NOT NULL,
  op              TEXT NOT NULL,
  snapshot        TEXT NOT NULL,
  attempts        INTEGER NOT NULL DEFAULT 0,
  last_attempt_at INTEGER NULL,
  last_error      TEXT NOT NULL DEFAULT '',
  state           TEXT NOT NULL DEFAULT 'pending'
);
`)
	require.NoError(t, err)
	return db
}

func appendEntry(t *testing.T, r *SQLiteRepository, penaltyID string, op models.Operation) *models.JournalEntry {
	t.Helper()
	e := &models.JournalEntry{PenaltyID: penaltyID, Op: op, Snapshot: []byte(`{"updated_at":"2026-01-02T03:04:05Z"}`)}
	require.NoError(t, r.Append(context.Background(), e))
	return e
}

func TestAppend_AssignsIncreasingSequence(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	e1 := appendEntry(t, r, "p1", models.OpCreate)
	e2 := appendEntry(t, r, "p1", models.OpUpdate)

	assert.Greater(t, e2.Seq, e1.Seq)
	assert.Equal(t, models.JournalPending, e1.State)
}

func TestNextBatch_GroupsEntriesPerPenalty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	// Interleave two penalties; the batch must keep each penalty contiguous
	// while preserving per-penalty sequence order.
	appendEntry(t, r, "p1", models.OpCreate)  // seq 1
	appendEntry(t, r, "p2", models.OpCreate)  // seq 2
	appendEntry(t, r, "p1", models.OpUpdate)  // seq 3
	appendEntry(t, r, "p2", models.OpUpdate)  // seq 4
	appendEntry(t, r, "p1", models.OpMarkPaid) // seq 5

	batch, err := r.NextBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 5)

	var order []string
	for _, e := range batch {
		order = append(order, e.PenaltyID)
	}
	assert.Equal(t, []string{"p1", "p1", "p1", "p2", "p2"}, order)

	// Per-penalty sequence order must be ascending.
	assert.Equal(t, []int64{1, 3, 5}, []int64{batch[0].Seq, batch[1].Seq, batch[2].Seq})
	assert.Equal(t, []int64{2, 4}, []int64{batch[3].Seq, batch[4].Seq})
}

func TestNextBatch_RespectsLimit(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	for i := 0; i < 10; i++ {
		appendEntry(t, r, "p1", models.OpUpdate)
	}

	batch, err := r.NextBatch(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, batch, 3)
}

func TestAcknowledge_RemovesEntry(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := appendEntry(t, r, "p1", models.OpCreate)
	require.NoError(t, r.Acknowledge(ctx, e.Seq))

	n, err := r.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, r.Acknowledge(ctx, e.Seq), common.ErrNotFound)
}

func TestRecordFailure_TransitionsToFailedAtCeiling(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := appendEntry(t, r, "p2", models.OpCreate)

	const ceiling = 5
	for i := 1; i < ceiling; i++ {
		failed, err := r.RecordFailure(ctx, e.Seq, "connection reset", ceiling)
		require.NoError(t, err)
		assert.False(t, failed, "attempt %d should not be terminal", i)
	}

	failed, err := r.RecordFailure(ctx, e.Seq, "connection reset", ceiling)
	require.NoError(t, err)
	assert.True(t, failed)

	// Failed entries leave the automatic batch.
	batch, err := r.NextBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)

	nf, err := r.CountFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, nf)

	list, err := r.FailedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ceiling, list[0].Attempts)
	assert.Equal(t, "connection reset", list[0].LastError)
	assert.NotNil(t, list[0].LastAttemptAt)
}

func TestMarkFailed_IsTerminalImmediately(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := appendEntry(t, r, "p1", models.OpUpdate)
	require.NoError(t, r.MarkFailed(ctx, e.Seq, "validation rejected"))

	batch, err := r.NextBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestRetry_ResetsFailedEntry(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := appendEntry(t, r, "p1", models.OpUpdate)
	require.NoError(t, r.MarkFailed(ctx, e.Seq, "rejected"))
	require.NoError(t, r.Retry(ctx, e.Seq))

	batch, err := r.NextBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Zero(t, batch[0].Attempts)
	assert.Empty(t, batch[0].LastError)

	// Retrying a pending entry is a no-op error.
	assert.ErrorIs(t, r.Retry(ctx, e.Seq), common.ErrNotFound)
}

func TestPendingForPenalty_OrderedBySeq(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	appendEntry(t, r, "p1", models.OpCreate)
	appendEntry(t, r, "p2", models.OpCreate)
	appendEntry(t, r, "p1", models.OpMarkPaid)

	list, err := r.PendingForPenalty(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.OpCreate, list[0].Op)
	assert.Equal(t, models.OpMarkPaid, list[1].Op)
}

func TestDeleteForPenalty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	appendEntry(t, r, "p1", models.OpCreate)
	appendEntry(t, r, "p1", models.OpUpdate)
	appendEntry(t, r, "p2", models.OpCreate)

	require.NoError(t, r.DeleteForPenalty(ctx, "p1"))

	n, err := r.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
