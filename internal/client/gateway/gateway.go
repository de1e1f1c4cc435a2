// Package gateway translates domain sync operations to and from the remote
// penalty API: JSON over HTTP, bearer auth, If-Match version tokens. Every
// failure is classified into exactly one of the four kinds the orchestrator
// acts on: Unauthorized, Conflict, Transient, Rejected.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
)

// ErrorKind classifies a failed gateway call.
type ErrorKind int

const (
	// KindUnauthorized means the credential was rejected even after one
	// refresh attempt. The orchestrator enters its Error state until
	// re-authentication completes.
	KindUnauthorized ErrorKind = iota
	// KindConflict means the server holds a newer version of the entity.
	// Remote carries the server's current state for the conflict resolver.
	KindConflict
	// KindTransient covers network errors, timeouts and 5xx responses;
	// eligible for retry with backoff.
	KindTransient
	// KindRejected is a permanent application-level rejection (validation);
	// never retried automatically.
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every gateway call.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string

	// Remote is the server's current version of the entity. Set only for
	// KindConflict.
	Remote *models.Penalty
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Message)
}

// Unwrap maps the kind onto the shared sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindUnauthorized:
		return common.ErrUnauthorized
	case KindConflict:
		return common.ErrVersionConflict
	case KindTransient:
		return common.ErrTransient
	case KindRejected:
		return common.ErrRejected
	default:
		return nil
	}
}

// AsError returns err as a *Error if it is one.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// Confirmation is the server's durable acknowledgment of a submitted change.
type Confirmation struct {
	// Version is the server-assigned version token for the entity after the
	// change was applied.
	Version int64
}

// ChangeSet is a page of remote changes newer than the requested cursor.
type ChangeSet struct {
	Penalties []models.Penalty

	// NextCursor is persisted by the orchestrator after the whole set is
	// applied locally.
	NextCursor int64
}

// Gateway is the remote API surface the sync orchestrator drives. Each
// submit call is idempotent from the server's perspective when given the same
// client-generated entity ID: retransmission after a lost acknowledgment
// never creates a duplicate.
type Gateway interface {
	// SubmitCreate pushes a locally created penalty. Version 0 means "must
	// not exist remotely yet"; replays of the same ID upsert the same row.
	SubmitCreate(ctx context.Context, id string, s *models.Snapshot) (*Confirmation, error)

	// SubmitUpdate pushes an edit of non-payment fields, guarded by the last
	// known server version.
	SubmitUpdate(ctx context.Context, id string, s *models.Snapshot, version int64) (*Confirmation, error)

	// SubmitMarkPaid pushes a payment confirmation. The server treats a
	// repeated mark-paid for an already paid penalty as a no-op success.
	SubmitMarkPaid(ctx context.Context, id string, s *models.Snapshot, version int64) (*Confirmation, error)

	// SubmitDelete archives the penalty remotely.
	SubmitDelete(ctx context.Context, id string, s *models.Snapshot, version int64) (*Confirmation, error)

	// FetchChangesSince returns all remote changes with a version token
	// greater than cursor.
	FetchChangesSince(ctx context.Context, cursor int64) (*ChangeSet, error)

	// Ping probes server reachability; used by the connectivity monitor.
	Ping(ctx context.Context) error
}

// CredentialSource supplies the bearer credential for gateway calls.
type CredentialSource interface {
	// Token returns the current access token, or "" when not logged in.
	Token(ctx context.Context) (string, error)

	// Refresh obtains a fresh access token. Called at most once per gateway
	// call after an Unauthorized response.
	Refresh(ctx context.Context) error
}
