package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

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

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get metadata[%s]: %v", common.ErrStorageFailure, key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: failed to set metadata[%s]: %v", common.ErrStorageFailure, key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("%w: failed to delete metadata[%s]: %v", common.ErrStorageFailure, key, err)
	}
	return nil
}

func (r *SQLiteRepository) GetCursor(ctx context.Context) (int64, error) {
	raw, err := r.Get(ctx, KeySyncCursor)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	cursor, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt sync cursor %q: %v", common.ErrStorageFailure, raw, err)
	}
	return cursor, nil
}

func (r *SQLiteRepository) SetCursor(ctx context.Context, cursor int64) error {
	return r.Set(ctx, KeySyncCursor, []byte(strconv.FormatInt(cursor, 10)))
}
