package penalties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/Psheikomaniac/cashcow-go/internal/dbx"
	"github.com/Psheikomaniac/cashcow-go/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX
// (either *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository returns a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, p *models.Penalty) error {
	query := `
		INSERT INTO penalties (id, user_id, member_id, type_id, reason, amount_cents,
			currency, archived, paid_at, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.MemberID, p.TypeID, p.Reason, p.AmountCents,
		p.Currency, p.Archived, p.PaidAt, p.CreatedAt, p.UpdatedAt, p.Version)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Penalty) error {
	query := `
		UPDATE penalties
		SET reason = $1, amount_cents = $2, archived = $3, paid_at = $4,
			updated_at = $5, version = $6
		WHERE user_id = $7 AND id = $8
	`
	res, err := r.db.ExecContext(ctx, query,
		p.Reason, p.AmountCents, p.Archived, p.PaidAt,
		p.UpdatedAt, p.Version, p.UserID, p.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Penalty, error) {
	query := `
		SELECT id, user_id, member_id, type_id, reason, amount_cents,
			currency, archived, paid_at, created_at, updated_at, version
		FROM penalties
		WHERE user_id = $1 AND id = $2
	`
	p, err := scanPenalty(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) SelectSince(ctx context.Context, userID string, cursor int64) ([]models.Penalty, error) {
	query := `
		SELECT id, user_id, member_id, type_id, reason, amount_cents,
			currency, archived, paid_at, created_at, updated_at, version
		FROM penalties
		WHERE user_id = $1 AND version > $2
		ORDER BY version
	`
	rows, err := r.db.QueryContext(ctx, query, userID, cursor)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPenalty(row rowScanner) (*models.Penalty, error) {
	p := &models.Penalty{}
	var paidAt sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.MemberID, &p.TypeID, &p.Reason, &p.AmountCents,
		&p.Currency, &p.Archived, &paidAt, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return p, nil
}
