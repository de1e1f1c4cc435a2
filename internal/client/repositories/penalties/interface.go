// Package penalties is the local durable store for penalty records, backed
// by SQLite. All writes that represent user intent must run in the same
// transaction as their change-journal append; repositories therefore bind to
// a dbx.DBTX rather than owning a connection.
package penalties

import (
	"context"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
)

// Repository describes the local durable store contract for penalties.
type Repository interface {
	// Upsert inserts or fully replaces a record by ID.
	Upsert(ctx context.Context, p *models.Penalty) error

	// GetByID returns a record or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Penalty, error)

	// QueryActive lists records that are neither archived nor awaiting
	// deletion, ordered by creation time.
	QueryActive(ctx context.Context) ([]models.Penalty, error)

	// MarkPendingDelete flags a record as deleted locally while the delete
	// still awaits server confirmation.
	MarkPendingDelete(ctx context.Context, id string) error

	// HardDelete physically removes a record. Callers must ensure the record
	// is local-only (never synced, never paid).
	HardDelete(ctx context.Context, id string) error

	// SetSynced stores the server-confirmed version and clears the pending
	// marker.
	SetSynced(ctx context.Context, id string, version int64) error

	// SetVersion stores the server-confirmed version without touching the
	// pending marker. Used when further journal entries for the record are
	// still queued.
	SetVersion(ctx context.Context, id string, version int64) error
}
