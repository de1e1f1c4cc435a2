// Package models defines the server-side persistence types.
package models

import "time"

// User is one account. Every penalty belongs to a user, and the per-user
// CurrentVersion counter allocates version tokens for that user's records.
type User struct {
	ID             string
	Username       string
	PasswordHash   []byte
	CurrentVersion int64
	CreatedAt      time.Time
}
