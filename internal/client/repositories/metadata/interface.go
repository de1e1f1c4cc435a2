// Package metadata is a small key/value table for client-side state that is
// not a penalty or a journal entry: the sync cursor, stored auth tokens and
// the device identity.
package metadata

import "context"

// Well-known metadata keys.
const (
	KeySyncCursor   = "sync_cursor"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUsername     = "username"
)

type Repository interface {
	// Get returns the value for key, or nil if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// GetCursor and SetCursor read and persist the last successfully pulled
	// remote change marker. A missing cursor reads as 0.
	GetCursor(ctx context.Context) (int64, error)
	SetCursor(ctx context.Context, cursor int64) error
}
