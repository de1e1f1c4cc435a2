package penalties

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/Psheikomaniac/cashcow-go/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func testPenalty() *models.Penalty {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Penalty{
		ID:          "p1",
		UserID:      "u-1",
		MemberID:    "m1",
		TypeID:      "late",
		Reason:      "late to training",
		AmountCents: 500,
		Currency:    "EUR",
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     3,
	}
}

func penaltyColumns() []string {
	return []string{"id", "user_id", "member_id", "type_id", "reason", "amount_cents",
		"currency", "archived", "paid_at", "created_at", "updated_at", "version"}
}

func addPenaltyRow(rows *sqlmock.Rows, p *models.Penalty) *sqlmock.Rows {
	var paidAt any
	if p.PaidAt != nil {
		paidAt = *p.PaidAt
	}
	return rows.AddRow(p.ID, p.UserID, p.MemberID, p.TypeID, p.Reason, p.AmountCents,
		p.Currency, p.Archived, paidAt, p.CreatedAt, p.UpdatedAt, p.Version)
}

func TestInsert_WritesAllColumns(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	p := testPenalty()

	mock.ExpectExec(`INSERT INTO penalties`).
		WithArgs(p.ID, p.UserID, p.MemberID, p.TypeID, p.Reason, p.AmountCents,
			p.Currency, p.Archived, nil, p.CreatedAt, p.UpdatedAt, p.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_MissingRowIsNotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	p := testPenalty()

	mock.ExpectExec(`UPDATE penalties`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Update(context.Background(), p), common.ErrNotFound)
}

func TestGetByID_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	p := testPenalty()
	paid := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	p.PaidAt = &paid

	mock.ExpectQuery(`SELECT .+ FROM penalties\s+WHERE user_id = \$1 AND id = \$2`).
		WithArgs("u-1", "p1").
		WillReturnRows(addPenaltyRow(sqlmock.NewRows(penaltyColumns()), p))

	got, err := repo.GetByID(context.Background(), "u-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, p.Reason, got.Reason)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(paid))
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .+ FROM penalties\s+WHERE user_id = \$1 AND id = \$2`).
		WithArgs("u-1", "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "u-1", "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSelectSince_ReturnsRowsAboveCursor(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	p := testPenalty()

	mock.ExpectQuery(`SELECT .+ FROM penalties\s+WHERE user_id = \$1 AND version > \$2`).
		WithArgs("u-1", int64(2)).
		WillReturnRows(addPenaltyRow(sqlmock.NewRows(penaltyColumns()), p))

	got, err := repo.SelectSince(context.Background(), "u-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, int64(3), got[0].Version)
}

func TestSelectSince_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .+ FROM penalties\s+WHERE user_id = \$1 AND version > \$2`).
		WithArgs("u-1", int64(99)).
		WillReturnRows(sqlmock.NewRows(penaltyColumns()))

	got, err := repo.SelectSince(context.Background(), "u-1", 99)
	require.NoError(t, err)
	assert.Empty(t, got)
}
