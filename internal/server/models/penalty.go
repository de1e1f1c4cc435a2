package models

import "time"

// Penalty is the authoritative copy of a penalty record. The ID is the
// client-generated UUID, which makes creation idempotent: replaying the same
// create hits the same primary key. Version is allocated from the owning
// user's counter and grows strictly monotonically across all of that user's
// records, so it doubles as the change-feed cursor.
type Penalty struct {
	ID          string
	UserID      string
	MemberID    string
	TypeID      string
	Reason      string
	AmountCents int64
	Currency    string
	Archived    bool
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
}

// Paid reports whether the penalty has a payment recorded.
func (p *Penalty) Paid() bool {
	return p.PaidAt != nil
}
