// Package models defines the client-side domain types: penalty records,
// change-journal entries and their snapshots.
package models

import (
	"fmt"
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/common"
)

// Currency is an ISO 4217 code from the fixed set the team treasurer accepts.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
)

// ParseCurrency validates s against the supported set.
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(s); c {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyCHF:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownCurrency, s)
	}
}

// MaxReasonLength bounds the free-text reason field.
const MaxReasonLength = 500

// Penalty is one financial penalty, persisted locally and synced with the
// server. Amounts are integer minor currency units; money never touches
// floating point.
type Penalty struct {
	// ID is a client-generated UUID, so creation succeeds offline without a
	// server round-trip. It is the durable cross-system identifier.
	ID string

	// MemberID references the owing team member.
	MemberID string

	// TypeID references the penalty type (lateness, missed training, ...).
	TypeID string

	// Reason is free text, bounded by MaxReasonLength.
	Reason string

	// AmountCents is the penalty amount in minor currency units, >= 0.
	AmountCents int64

	Currency Currency

	// Archived soft-deletes the record. Paid-and-synced penalties are never
	// physically removed, only archived.
	Archived bool

	// PaidAt is nil while unpaid. If set, it is never before CreatedAt.
	PaidAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is the server-assigned version token, 0 until the first
	// successful sync.
	Version int64

	// Pending marks the record as having local changes awaiting sync.
	Pending bool
}

// Validate checks the record invariants.
func (p *Penalty) Validate() error {
	if p.AmountCents < 0 {
		return common.ErrNegativeAmount
	}
	if _, err := ParseCurrency(string(p.Currency)); err != nil {
		return err
	}
	if len(p.Reason) > MaxReasonLength {
		return common.ErrReasonTooLong
	}
	if p.PaidAt != nil && p.PaidAt.Before(p.CreatedAt) {
		return common.ErrPaidBeforeCreate
	}
	return nil
}

// Paid reports whether the penalty has a payment timestamp.
func (p *Penalty) Paid() bool {
	return p.PaidAt != nil
}

// LocalOnly reports whether the record never reached the server and was never
// paid. Only such records may be hard-deleted.
func (p *Penalty) LocalOnly() bool {
	return p.Version == 0 && p.PaidAt == nil
}
