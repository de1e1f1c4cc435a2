package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/Psheikomaniac/cashcow-go/internal/dbx"
	"github.com/Psheikomaniac/cashcow-go/internal/server/models"
	"github.com/Psheikomaniac/cashcow-go/internal/server/repositories/penalties"
	"github.com/Psheikomaniac/cashcow-go/internal/server/repositories/users"
)

// ConflictError reports a version-token mismatch. It carries the server's
// current copy so the client can merge without an extra round trip.
type ConflictError struct {
	Current *models.Penalty
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on penalty %s (current %d)", e.Current.ID, e.Current.Version)
}

func (e *ConflictError) Unwrap() error { return common.ErrVersionConflict }

// CreatePenaltyInput is the full record a client submits on create. The ID is
// the client-generated UUID.
type CreatePenaltyInput struct {
	ID          string
	MemberID    string
	TypeID      string
	Reason      string
	AmountCents int64
	Currency    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpdatePenaltyInput carries an edit of non-payment fields. Nil pointers
// leave the stored value untouched.
type UpdatePenaltyInput struct {
	Reason      *string
	AmountCents *int64
	Archived    *bool
	UpdatedAt   time.Time
}

// PenaltyService implements the penalty write path and the change feed.
// Every write claims its version token from the owning user's counter inside
// the same transaction, so versions grow without gaps visible to the feed.
type PenaltyService struct {
	db        *sql.DB
	penalties penalties.Repository
	now       func() time.Time
}

// NewPenaltyService constructs a PenaltyService over the server database.
func NewPenaltyService(db *sql.DB) *PenaltyService {
	return &PenaltyService{
		db:        db,
		penalties: penalties.NewPostgresRepository(db),
		now:       time.Now,
	}
}

// Create stores a new penalty. A replay of an already-stored create is a
// no-op returning the existing record, keyed by the client UUID.
func (s *PenaltyService) Create(ctx context.Context, userID string, in CreatePenaltyInput) (*models.Penalty, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	existing, err := s.penalties.GetByID(ctx, userID, in.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	p := &models.Penalty{
		ID:          in.ID,
		UserID:      userID,
		MemberID:    in.MemberID,
		TypeID:      in.TypeID,
		Reason:      in.Reason,
		AmountCents: in.AmountCents,
		Currency:    in.Currency,
		CreatedAt:   in.CreatedAt,
		UpdatedAt:   in.UpdatedAt,
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		version, err := users.NewPostgresRepository(tx).IncrementCurrentVersion(ctx, userID)
		if err != nil {
			return err
		}
		p.Version = version
		return penalties.NewPostgresRepository(tx).Insert(ctx, p)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// Update edits non-payment fields. The caller's version token must match the
// stored one; otherwise the current record travels back in a ConflictError.
func (s *PenaltyService) Update(ctx context.Context, userID, id string, in UpdatePenaltyInput, ifMatch int64) (*models.Penalty, error) {
	if in.AmountCents != nil && *in.AmountCents < 0 {
		return nil, common.ErrNegativeAmount
	}

	var result *models.Penalty
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := penalties.NewPostgresRepository(tx)
		p, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if p.Version != ifMatch {
			return &ConflictError{Current: p}
		}

		if in.Reason != nil {
			p.Reason = *in.Reason
		}
		if in.AmountCents != nil {
			p.AmountCents = *in.AmountCents
		}
		if in.Archived != nil {
			p.Archived = *in.Archived
		}
		p.UpdatedAt = in.UpdatedAt
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = s.now().UTC()
		}

		version, err := users.NewPostgresRepository(tx).IncrementCurrentVersion(ctx, userID)
		if err != nil {
			return err
		}
		p.Version = version
		result = p
		return repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkPaid records a payment. Paying an already-paid penalty is a no-op that
// keeps the stored payment timestamp, regardless of the version token; the
// client treats the returned record as authoritative.
func (s *PenaltyService) MarkPaid(ctx context.Context, userID, id string, paidAt *time.Time, updatedAt time.Time, ifMatch int64) (*models.Penalty, error) {
	var result *models.Penalty
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := penalties.NewPostgresRepository(tx)
		p, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if p.Paid() {
			result = p
			return nil
		}
		if p.Version != ifMatch {
			return &ConflictError{Current: p}
		}

		when := updatedAt
		if paidAt != nil {
			when = *paidAt
		}
		if when.IsZero() {
			when = s.now().UTC()
		}
		p.PaidAt = &when
		p.UpdatedAt = updatedAt
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = when
		}

		version, err := users.NewPostgresRepository(tx).IncrementCurrentVersion(ctx, userID)
		if err != nil {
			return err
		}
		p.Version = version
		result = p
		return repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete archives a penalty. Records are never physically removed once the
// server has seen them; archiving keeps them out of active listings while
// the change feed still propagates the state.
func (s *PenaltyService) Delete(ctx context.Context, userID, id string, ifMatch int64) (*models.Penalty, error) {
	var result *models.Penalty
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := penalties.NewPostgresRepository(tx)
		p, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if p.Version != ifMatch {
			return &ConflictError{Current: p}
		}

		p.Archived = true
		p.UpdatedAt = s.now().UTC()

		version, err := users.NewPostgresRepository(tx).IncrementCurrentVersion(ctx, userID)
		if err != nil {
			return err
		}
		p.Version = version
		result = p
		return repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ChangesSince returns the user's records with version > cursor, oldest
// version first, plus the cursor for the next pull.
func (s *PenaltyService) ChangesSince(ctx context.Context, userID string, cursor int64) ([]models.Penalty, int64, error) {
	changed, err := s.penalties.SelectSince(ctx, userID, cursor)
	if err != nil {
		return nil, 0, err
	}
	next := cursor
	if n := len(changed); n > 0 {
		next = changed[n-1].Version
	}
	return changed, next, nil
}

func validateCreate(in CreatePenaltyInput) error {
	if in.ID == "" || in.MemberID == "" || in.TypeID == "" {
		return fmt.Errorf("%w: id, member and type are required", common.ErrRejected)
	}
	if in.AmountCents < 0 {
		return common.ErrNegativeAmount
	}
	if in.Currency == "" {
		return fmt.Errorf("%w: %q", common.ErrUnknownCurrency, in.Currency)
	}
	return nil
}
