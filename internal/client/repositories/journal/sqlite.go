package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/Psheikomaniac/cashcow-go/internal/dbx"
)

// SQLiteRepository implements Repository over a dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, e *models.JournalEntry) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO journal (penalty_id, op, snapshot, state)
		VALUES (?, ?, ?, ?)`,
		e.PenaltyID, string(e.Op), string(e.Snapshot), string(models.JournalPending))
	if err != nil {
		return fmt.Errorf("%w: failed to append journal entry: %v", common.ErrStorageFailure, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: last insert id: %v", common.ErrStorageFailure, err)
	}
	e.Seq = seq
	e.State = models.JournalPending
	return nil
}

const journalColumns = `seq, penalty_id, op, snapshot, attempts, last_attempt_at, last_error, state`

func scanEntry(row interface{ Scan(...any) error }) (*models.JournalEntry, error) {
	var (
		e        models.JournalEntry
		op       string
		snapshot string
		lastAt   sql.NullInt64
		state    string
	)
	if err := row.Scan(&e.Seq, &e.PenaltyID, &op, &snapshot,
		&e.Attempts, &lastAt, &e.LastError, &state); err != nil {
		return nil, err
	}
	e.Op = models.Operation(op)
	e.Snapshot = []byte(snapshot)
	e.State = models.JournalState(state)
	if lastAt.Valid {
		t := time.UnixMicro(lastAt.Int64).UTC()
		e.LastAttemptAt = &t
	}
	return &e, nil
}

// NextBatch orders entries by the first pending sequence of their penalty, so
// each penalty's entries appear as one contiguous run, oldest penalty first,
// and within a run in sequence order.
func (r *SQLiteRepository) NextBatch(ctx context.Context, maxCount int) ([]models.JournalEntry, error) {
	// Columns must be j-qualified: the joined subquery also exposes
	// penalty_id, and SQLite rejects the bare name as ambiguous.
	query := `
		SELECT j.seq, j.penalty_id, j.op, j.snapshot, j.attempts,
			j.last_attempt_at, j.last_error, j.state
		FROM journal j
		JOIN (
			SELECT penalty_id, MIN(seq) AS first_seq
			FROM journal
			WHERE state = 'pending'
			GROUP BY penalty_id
		) g ON g.penalty_id = j.penalty_id
		WHERE j.state = 'pending'
		ORDER BY g.first_seq, j.seq
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, maxCount)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select journal batch: %v", common.ErrStorageFailure, err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]models.JournalEntry, error) {
	var result []models.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", common.ErrStorageFailure, err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", common.ErrStorageFailure, err)
	}
	return result, nil
}

func (r *SQLiteRepository) Acknowledge(ctx context.Context, seq int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journal WHERE seq = ?`, seq)
	if err != nil {
		return fmt.Errorf("%w: failed to acknowledge entry %d: %v", common.ErrStorageFailure, seq, err)
	}
	return oneRowAffected(res)
}

func (r *SQLiteRepository) RecordFailure(ctx context.Context, seq int64, cause string, ceiling int) (bool, error) {
	now := time.Now().UTC().UnixMicro()
	res, err := r.db.ExecContext(ctx, `
		UPDATE journal
		SET attempts = attempts + 1,
		    last_attempt_at = ?,
		    last_error = ?,
		    state = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE state END
		WHERE seq = ?`,
		now, cause, ceiling, seq)
	if err != nil {
		return false, fmt.Errorf("%w: failed to record failure for %d: %v", common.ErrStorageFailure, seq, err)
	}
	if err := oneRowAffected(res); err != nil {
		return false, err
	}

	var state string
	if err := r.db.QueryRowContext(ctx, `SELECT state FROM journal WHERE seq = ?`, seq).Scan(&state); err != nil {
		return false, fmt.Errorf("%w: failed to read state for %d: %v", common.ErrStorageFailure, seq, err)
	}
	return models.JournalState(state) == models.JournalFailed, nil
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, seq int64, cause string) error {
	now := time.Now().UTC().UnixMicro()
	res, err := r.db.ExecContext(ctx, `
		UPDATE journal
		SET attempts = attempts + 1, last_attempt_at = ?, last_error = ?, state = 'failed'
		WHERE seq = ?`,
		now, cause, seq)
	if err != nil {
		return fmt.Errorf("%w: failed to mark entry %d failed: %v", common.ErrStorageFailure, seq, err)
	}
	return oneRowAffected(res)
}

func (r *SQLiteRepository) Retry(ctx context.Context, seq int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE journal
		SET state = 'pending', attempts = 0, last_error = ''
		WHERE seq = ? AND state = 'failed'`,
		seq)
	if err != nil {
		return fmt.Errorf("%w: failed to retry entry %d: %v", common.ErrStorageFailure, seq, err)
	}
	return oneRowAffected(res)
}

func (r *SQLiteRepository) PendingForPenalty(ctx context.Context, penaltyID string) ([]models.JournalEntry, error) {
	query := `
		SELECT ` + journalColumns + `
		FROM journal
		WHERE penalty_id = ? AND state = 'pending'
		ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, penaltyID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select entries for %s: %v", common.ErrStorageFailure, penaltyID, err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *SQLiteRepository) DeleteForPenalty(ctx context.Context, penaltyID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM journal WHERE penalty_id = ?`, penaltyID); err != nil {
		return fmt.Errorf("%w: failed to delete entries for %s: %v", common.ErrStorageFailure, penaltyID, err)
	}
	return nil
}

func (r *SQLiteRepository) FailedEntries(ctx context.Context) ([]models.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal WHERE state = 'failed' ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select failed entries: %v", common.ErrStorageFailure, err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	return r.countByState(ctx, models.JournalPending)
}

func (r *SQLiteRepository) CountFailed(ctx context.Context) (int, error) {
	return r.countByState(ctx, models.JournalFailed)
}

func (r *SQLiteRepository) countByState(ctx context.Context, state models.JournalState) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal WHERE state = ?`, string(state)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count journal entries: %v", common.ErrStorageFailure, err)
	}
	return n, nil
}

func oneRowAffected(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrStorageFailure, err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}
