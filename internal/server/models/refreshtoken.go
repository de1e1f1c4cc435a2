package models

import "time"

// RefreshToken is a server-stored opaque token. It is single-use: a refresh
// deletes the old row and creates a new one in the same transaction.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
