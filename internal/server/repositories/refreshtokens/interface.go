// Package refreshtokens is the Postgres-backed store for server-side refresh
// tokens used in the rotation flow.
package refreshtokens

import (
	"context"
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/server/models"
)

// Repository describes the refresh-token store contract.
type Repository interface {
	// Create inserts a token for userID expiring at now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find returns the token row or common.ErrNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a token by its token string.
	Delete(ctx context.Context, token string) error
}
