package penalties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/Psheikomaniac/cashcow-go/internal/dbx"
)

// SQLiteRepository implements Repository over a dbx.DBTX
// (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Timestamps are stored as unix microseconds so the schema does not depend on
// driver-specific time handling.
func toMicros(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromMicros(us int64) time.Time { return time.UnixMicro(us).UTC() }

func nullMicros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMicros(*t), Valid: true}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.Penalty) error {
	query := `
		INSERT INTO penalties (id, member_id, type_id, reason, amount_cents, currency,
			archived, paid_at, created_at, updated_at, version, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			member_id = excluded.member_id,
			type_id = excluded.type_id,
			reason = excluded.reason,
			amount_cents = excluded.amount_cents,
			currency = excluded.currency,
			archived = excluded.archived,
			paid_at = excluded.paid_at,
			updated_at = excluded.updated_at,
			version = excluded.version,
			pending = excluded.pending
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.MemberID, p.TypeID, p.Reason, p.AmountCents, string(p.Currency),
		p.Archived, nullMicros(p.PaidAt), toMicros(p.CreatedAt), toMicros(p.UpdatedAt),
		p.Version, p.Pending)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert penalty: %v", common.ErrStorageFailure, err)
	}
	return nil
}

const penaltyColumns = `id, member_id, type_id, reason, amount_cents, currency,
	archived, paid_at, created_at, updated_at, version, pending`

func scanPenalty(row interface{ Scan(...any) error }) (*models.Penalty, error) {
	var (
		p        models.Penalty
		currency string
		paidAt   sql.NullInt64
		created  int64
		updated  int64
	)
	if err := row.Scan(&p.ID, &p.MemberID, &p.TypeID, &p.Reason, &p.AmountCents,
		&currency, &p.Archived, &paidAt, &created, &updated, &p.Version, &p.Pending); err != nil {
		return nil, err
	}
	p.Currency = models.Currency(currency)
	if paidAt.Valid {
		t := fromMicros(paidAt.Int64)
		p.PaidAt = &t
	}
	p.CreatedAt = fromMicros(created)
	p.UpdatedAt = fromMicros(updated)
	return &p, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Penalty, error) {
	query := `SELECT ` + penaltyColumns + ` FROM penalties WHERE id = ?`
	p, err := scanPenalty(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to read penalty: %v", common.ErrStorageFailure, err)
	}
	return p, nil
}

func (r *SQLiteRepository) QueryActive(ctx context.Context) ([]models.Penalty, error) {
	query := `SELECT ` + penaltyColumns + `
		FROM penalties
		WHERE archived = 0 AND pending_delete = 0
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select penalties: %v", common.ErrStorageFailure, err)
	}
	defer rows.Close()

	var result []models.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", common.ErrStorageFailure, err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", common.ErrStorageFailure, err)
	}
	return result, nil
}

func (r *SQLiteRepository) MarkPendingDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE penalties SET pending_delete = 1, pending = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to mark pending delete: %v", common.ErrStorageFailure, err)
	}
	return oneRowAffected(res)
}

func (r *SQLiteRepository) HardDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM penalties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete penalty: %v", common.ErrStorageFailure, err)
	}
	return oneRowAffected(res)
}

func (r *SQLiteRepository) SetSynced(ctx context.Context, id string, version int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE penalties SET version = ?, pending = 0 WHERE id = ?`, version, id)
	if err != nil {
		return fmt.Errorf("%w: failed to mark synced: %v", common.ErrStorageFailure, err)
	}
	return oneRowAffected(res)
}

func (r *SQLiteRepository) SetVersion(ctx context.Context, id string, version int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE penalties SET version = ? WHERE id = ?`, version, id)
	if err != nil {
		return fmt.Errorf("%w: failed to set version: %v", common.ErrStorageFailure, err)
	}
	return oneRowAffected(res)
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
