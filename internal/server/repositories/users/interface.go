// Package users is the Postgres-backed account store. It also owns the
// per-user version counter that allocates version tokens for penalty writes.
package users

import (
	"context"

	"github.com/Psheikomaniac/cashcow-go/internal/server/models"
)

// Repository describes the account store contract.
type Repository interface {
	// Create inserts a new account. A taken username yields
	// common.ErrUserAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns an account or common.ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// IncrementCurrentVersion atomically bumps the user's version counter and
	// returns the new value. Every penalty write claims its version token
	// here, inside the same transaction as the write itself.
	IncrementCurrentVersion(ctx context.Context, userID string) (int64, error)
}
