package models

import (
	"encoding/json"
	"time"
)

// Operation is the kind of mutation a journal entry carries.
type Operation string

const (
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpMarkPaid Operation = "mark_paid"
	OpDelete   Operation = "delete"
)

// JournalState is the delivery state of a journal entry.
type JournalState string

const (
	// JournalPending entries are eligible for the next sync batch.
	JournalPending JournalState = "pending"
	// JournalFailed is terminal: the entry is excluded from automatic batches
	// but stays queryable for reporting and manual retry.
	JournalFailed JournalState = "failed"
)

// JournalEntry is one durable record of a local mutation not yet confirmed by
// the server. Entries for the same penalty are applied in Seq order and never
// reordered.
type JournalEntry struct {
	// Seq is the per-device monotonically increasing sequence number.
	Seq       int64
	PenaltyID string
	Op        Operation

	// Snapshot holds the JSON-encoded fields relevant to Op.
	Snapshot []byte

	Attempts      int
	LastAttemptAt *time.Time
	LastError     string
	State         JournalState
}

// Snapshot carries the field values captured when a mutation was journaled.
// Only the fields relevant to the operation are set; UpdatedAt is always
// present because the conflict resolver compares it.
type Snapshot struct {
	MemberID    string     `json:"member_id,omitempty"`
	TypeID      string     `json:"type_id,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
	AmountCents *int64     `json:"amount_cents,omitempty"`
	Currency    Currency   `json:"currency,omitempty"`
	Archived    *bool      `json:"archived,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DecodeSnapshot unmarshals the entry's snapshot payload.
func (e *JournalEntry) DecodeSnapshot() (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(e.Snapshot, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// NewCreateEntry journals the full initial state of p.
func NewCreateEntry(p *Penalty) (*JournalEntry, error) {
	reason := p.Reason
	amount := p.AmountCents
	created := p.CreatedAt
	return encodeEntry(p.ID, OpCreate, Snapshot{
		MemberID:    p.MemberID,
		TypeID:      p.TypeID,
		Reason:      &reason,
		AmountCents: &amount,
		Currency:    p.Currency,
		CreatedAt:   &created,
		UpdatedAt:   p.UpdatedAt,
	})
}

// NewUpdateEntry journals an edit to the non-payment fields of p.
func NewUpdateEntry(p *Penalty) (*JournalEntry, error) {
	reason := p.Reason
	amount := p.AmountCents
	archived := p.Archived
	return encodeEntry(p.ID, OpUpdate, Snapshot{
		Reason:      &reason,
		AmountCents: &amount,
		Archived:    &archived,
		UpdatedAt:   p.UpdatedAt,
	})
}

// NewMarkPaidEntry journals the payment of p. PaidAt must already be set.
func NewMarkPaidEntry(p *Penalty) (*JournalEntry, error) {
	return encodeEntry(p.ID, OpMarkPaid, Snapshot{
		PaidAt:    p.PaidAt,
		UpdatedAt: p.UpdatedAt,
	})
}

// NewDeleteEntry journals the (soft) deletion of p.
func NewDeleteEntry(p *Penalty) (*JournalEntry, error) {
	return encodeEntry(p.ID, OpDelete, Snapshot{
		UpdatedAt: p.UpdatedAt,
	})
}

func encodeEntry(penaltyID string, op Operation, s Snapshot) (*JournalEntry, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &JournalEntry{
		PenaltyID: penaltyID,
		Op:        op,
		Snapshot:  b,
		State:     JournalPending,
	}, nil
}
