// Package penalties is the Postgres-backed authoritative store for penalty
// records. Every row is scoped to its owning user; versions come from the
// users package counter.
package penalties

import (
	"context"

	"github.com/Psheikomaniac/cashcow-go/internal/server/models"
)

// Repository describes the authoritative penalty store contract.
type Repository interface {
	// Insert creates a new record with its already-allocated version.
	Insert(ctx context.Context, p *models.Penalty) error

	// Update replaces the mutable columns of an existing record.
	Update(ctx context.Context, p *models.Penalty) error

	// GetByID returns the record for (userID, id) or common.ErrNotFound.
	GetByID(ctx context.Context, userID, id string) (*models.Penalty, error)

	// SelectSince lists the user's records with version > cursor, ordered by
	// version. This is the change feed.
	SelectSince(ctx context.Context, userID string, cursor int64) ([]models.Penalty, error)
}
