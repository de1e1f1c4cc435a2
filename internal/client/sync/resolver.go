// Package sync contains the synchronization core: the conflict resolver and
// the orchestrator that drives push/pull cycles between the local store and
// the remote API.
package sync

import (
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
)

// Resolution is the resolver's verdict for one conflicting entity.
type Resolution struct {
	// Merged is the state to persist locally. Its Version is always the
	// server's (the server remains the version authority).
	Merged models.Penalty

	// LocalFieldsWon reports that at least one locally written non-payment
	// field survived over the remote state, so the merged record must be
	// pushed back to the server.
	LocalFieldsWon bool

	// PaidNoop reports that both sides had already marked the penalty paid;
	// the competing mark-paid collapses to a no-op and the remote payment
	// timestamp is kept.
	PaidNoop bool
}

// Resolve merges a local record carrying pending changes with the server's
// current version of the same penalty.
//
// The policy is field-level, not record-level:
//
//   - payment state: a mark-paid always wins over edits to other fields,
//     regardless of timestamps. If both sides are paid the remote timestamp
//     is kept (no duplicate payment).
//   - all other fields: last-writer-wins on updatedAt, with an exact tie
//     resolving to the remote version (the server is the tie-breaker).
//
// The result is deterministic for any pair of inputs.
func Resolve(local, remote *models.Penalty) *Resolution {
	res := &Resolution{}

	// Start from the remote record: server-assigned fields (version,
	// creation time) are authoritative.
	merged := *remote

	// Payment field. MarkPaid outranks concurrent metadata edits because
	// money-state correctness outranks descriptive-field correctness.
	switch {
	case local.PaidAt != nil && remote.PaidAt != nil:
		res.PaidNoop = true
		merged.PaidAt = remote.PaidAt
	case local.PaidAt != nil:
		merged.PaidAt = local.PaidAt
	case remote.PaidAt != nil:
		merged.PaidAt = remote.PaidAt
	}

	// Non-payment fields: LWW on updatedAt, ties go to the remote side.
	if local.UpdatedAt.After(remote.UpdatedAt) {
		if local.Reason != remote.Reason {
			merged.Reason = local.Reason
			res.LocalFieldsWon = true
		}
		if local.AmountCents != remote.AmountCents {
			merged.AmountCents = local.AmountCents
			res.LocalFieldsWon = true
		}
		if local.Archived != remote.Archived {
			merged.Archived = local.Archived
			res.LocalFieldsWon = true
		}
		if local.MemberID != remote.MemberID {
			merged.MemberID = local.MemberID
			res.LocalFieldsWon = true
		}
		if local.TypeID != remote.TypeID {
			merged.TypeID = local.TypeID
			res.LocalFieldsWon = true
		}
	}

	merged.UpdatedAt = maxTime(local.UpdatedAt, remote.UpdatedAt)
	merged.Version = remote.Version

	res.Merged = merged
	return res
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
