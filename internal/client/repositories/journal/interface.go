// Package journal is the durable change journal: an ordered log of local
// mutations awaiting server confirmation. It survives process restarts and
// drives retry; entries for one penalty are delivered strictly in sequence
// order.
package journal

import (
	"context"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
)

// Repository describes the change-journal contract.
type Repository interface {
	// Append persists a new entry. It must be called from the same
	// transaction as the store mutation it records. The assigned sequence
	// number is written back into e.Seq.
	Append(ctx context.Context, e *models.JournalEntry) error

	// NextBatch returns up to maxCount pending entries in ascending sequence
	// order, grouped so all entries for one penalty are contiguous. Failed
	// entries are excluded.
	NextBatch(ctx context.Context, maxCount int) ([]models.JournalEntry, error)

	// Acknowledge removes an entry after the server durably accepted it.
	Acknowledge(ctx context.Context, seq int64) error

	// RecordFailure increments the attempt counter and stores the error.
	// When the counter reaches ceiling the entry transitions to the terminal
	// failed state; the return value reports whether that happened.
	RecordFailure(ctx context.Context, seq int64, cause string, ceiling int) (failed bool, err error)

	// MarkFailed moves an entry straight to the terminal failed state
	// (permanent server rejection).
	MarkFailed(ctx context.Context, seq int64, cause string) error

	// Retry resets a failed entry to pending for a user-requested retry.
	Retry(ctx context.Context, seq int64) error

	// PendingForPenalty returns the pending entries for one penalty in
	// sequence order.
	PendingForPenalty(ctx context.Context, penaltyID string) ([]models.JournalEntry, error)

	// DeleteForPenalty removes all entries for a penalty. Used when a
	// local-only record is hard-deleted.
	DeleteForPenalty(ctx context.Context, penaltyID string) error

	// FailedEntries lists terminal entries for user-visible reporting.
	FailedEntries(ctx context.Context) ([]models.JournalEntry, error)

	// CountPending and CountFailed feed the sync-status observable.
	CountPending(ctx context.Context) (int, error)
	CountFailed(ctx context.Context) (int, error)
}
