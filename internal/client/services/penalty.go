package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
	"github.com/Psheikomaniac/cashcow-go/internal/client/repositories/journal"
	"github.com/Psheikomaniac/cashcow-go/internal/client/repositories/penalties"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/Psheikomaniac/cashcow-go/internal/dbx"
)

// PenaltyService is the mutation and query API for penalty records. Every
// mutation commits instantly against the local store and journals itself in
// the same transaction; no call ever waits for the network.
type PenaltyService struct {
	db *sql.DB

	// notify fires after every committed local mutation. The app wires it to
	// the sync trigger and to UI refresh.
	notify func()

	now func() time.Time
}

// NewPenaltyService builds the service over the client database. notify may
// be nil.
func NewPenaltyService(db *sql.DB, notify func()) *PenaltyService {
	return &PenaltyService{
		db:     db,
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *PenaltyService) notifyChanged() {
	if s.notify != nil {
		s.notify()
	}
}

// Create records a new penalty. The ID is generated locally so creation works
// without any server round-trip.
func (s *PenaltyService) Create(ctx context.Context, memberID, typeID, reason string, amountCents int64, currency models.Currency) (*models.Penalty, error) {
	now := s.now()
	p := &models.Penalty{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		TypeID:      typeID,
		Reason:      reason,
		AmountCents: amountCents,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
		Pending:     true,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	entry, err := models.NewCreateEntry(p)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := penalties.NewSQLiteRepository(tx).Upsert(ctx, p); err != nil {
			return err
		}
		return journal.NewSQLiteRepository(tx).Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	s.notifyChanged()
	return p, nil
}

// UpdateReason edits the free-text reason.
func (s *PenaltyService) UpdateReason(ctx context.Context, id, reason string) (*models.Penalty, error) {
	return s.applyEdit(ctx, id, func(p *models.Penalty) { p.Reason = reason })
}

// UpdateAmount edits the amount in minor currency units.
func (s *PenaltyService) UpdateAmount(ctx context.Context, id string, amountCents int64) (*models.Penalty, error) {
	return s.applyEdit(ctx, id, func(p *models.Penalty) { p.AmountCents = amountCents })
}

// Archive soft-hides the record without deleting it.
func (s *PenaltyService) Archive(ctx context.Context, id string) (*models.Penalty, error) {
	return s.applyEdit(ctx, id, func(p *models.Penalty) { p.Archived = true })
}

// applyEdit runs a non-payment field edit: mutate, bump updatedAt, journal.
func (s *PenaltyService) applyEdit(ctx context.Context, id string, mutate func(*models.Penalty)) (*models.Penalty, error) {
	var out *models.Penalty
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		pr := penalties.NewSQLiteRepository(tx)
		p, err := pr.GetByID(ctx, id)
		if err != nil {
			return err
		}
		mutate(p)
		p.UpdatedAt = s.now()
		p.Pending = true
		if err := p.Validate(); err != nil {
			return err
		}
		entry, err := models.NewUpdateEntry(p)
		if err != nil {
			return err
		}
		if err := pr.Upsert(ctx, p); err != nil {
			return err
		}
		if err := journal.NewSQLiteRepository(tx).Append(ctx, entry); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyChanged()
	return out, nil
}

// MarkPaid records the payment of a penalty. Paying twice is an error at the
// UI boundary; a concurrent payment on another device resolves to a no-op
// during sync instead.
func (s *PenaltyService) MarkPaid(ctx context.Context, id string) (*models.Penalty, error) {
	var out *models.Penalty
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		pr := penalties.NewSQLiteRepository(tx)
		p, err := pr.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Paid() {
			return common.ErrAlreadyPaid
		}
		now := s.now()
		p.PaidAt = &now
		p.UpdatedAt = now
		p.Pending = true
		entry, err := models.NewMarkPaidEntry(p)
		if err != nil {
			return err
		}
		if err := pr.Upsert(ctx, p); err != nil {
			return err
		}
		if err := journal.NewSQLiteRepository(tx).Append(ctx, entry); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyChanged()
	return out, nil
}

// Delete removes a penalty. A record the server has never seen disappears for
// real, journal entries included; anything else is only flagged and the
// server-side archive happens through sync. Paid records always survive as
// archived history.
func (s *PenaltyService) Delete(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		pr := penalties.NewSQLiteRepository(tx)
		jr := journal.NewSQLiteRepository(tx)
		p, err := pr.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.LocalOnly() {
			if err := jr.DeleteForPenalty(ctx, id); err != nil {
				return err
			}
			return pr.HardDelete(ctx, id)
		}
		p.UpdatedAt = s.now()
		entry, err := models.NewDeleteEntry(p)
		if err != nil {
			return err
		}
		if err := pr.MarkPendingDelete(ctx, id); err != nil {
			return err
		}
		return jr.Append(ctx, entry)
	})
	if err != nil {
		return err
	}
	s.notifyChanged()
	return nil
}

// List returns the active (not archived, not deleted) penalties.
func (s *PenaltyService) List(ctx context.Context) ([]models.Penalty, error) {
	return penalties.NewSQLiteRepository(s.db).QueryActive(ctx)
}

// Get returns one penalty by ID.
func (s *PenaltyService) Get(ctx context.Context, id string) (*models.Penalty, error) {
	return penalties.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

// FailedChanges lists journal entries the server permanently rejected or that
// ran out of delivery attempts.
func (s *PenaltyService) FailedChanges(ctx context.Context) ([]models.JournalEntry, error) {
	return journal.NewSQLiteRepository(s.db).FailedEntries(ctx)
}

// RetryChange re-queues a failed journal entry at the user's request.
func (s *PenaltyService) RetryChange(ctx context.Context, seq int64) error {
	if err := journal.NewSQLiteRepository(s.db).Retry(ctx, seq); err != nil {
		return err
	}
	s.notifyChanged()
	return nil
}
