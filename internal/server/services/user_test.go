package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/Psheikomaniac/cashcow-go/internal/server/auth"
	"github.com/Psheikomaniac/cashcow-go/internal/server/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: time.Hour,
	}
}

func newUserServiceWithMock(t *testing.T) (*UserService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserService(db, testConfig()), mock
}

func TestRegister_CreatesAccount(t *testing.T) {
	s, mock := newUserServiceWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))

	user, err := s.Register(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	// The stored hash must verify against the original password.
	assert.True(t, auth.CheckPassword(user.PasswordHash, "pw"))
}

func TestRegister_EmptyCredentialsRejected(t *testing.T) {
	s, _ := newUserServiceWithMock(t)

	_, err := s.Register(context.Background(), "  ", "pw")
	assert.ErrorIs(t, err, common.ErrRejected)

	_, err = s.Register(context.Background(), "alice", "")
	assert.ErrorIs(t, err, common.ErrRejected)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	s, mock := newUserServiceWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.Register(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, common.ErrUserAlreadyExists)
}

func userRow(t *testing.T, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "current_version"}).
		AddRow("u-1", "alice", hash, int64(0))
}

func TestLogin_ReturnsVerifiableTokenPair(t *testing.T) {
	s, mock := newUserServiceWithMock(t)

	mock.ExpectQuery(`SELECT id, username, password_hash, current_version\s+FROM users`).
		WithArgs("alice").
		WillReturnRows(userRow(t, "pw"))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs("u-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pair, err := s.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)

	userID, err := auth.GetUserIDFromToken(pair.AccessToken, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
}

func TestLogin_WrongPassword(t *testing.T) {
	s, mock := newUserServiceWithMock(t)

	mock.ExpectQuery(`SELECT id, username, password_hash, current_version\s+FROM users`).
		WithArgs("alice").
		WillReturnRows(userRow(t, "pw"))

	_, err := s.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_UnknownUser(t *testing.T) {
	s, mock := newUserServiceWithMock(t)

	mock.ExpectQuery(`SELECT id, username, password_hash, current_version\s+FROM users`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Login(context.Background(), "ghost", "pw")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestRefreshToken_RotatesPair(t *testing.T) {
	s, mock := newUserServiceWithMock(t)

	mock.ExpectQuery(`SELECT user_id, expires_at\s+FROM refresh_tokens`).
		WithArgs("old-token").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow("u-1", time.Now().Add(time.Hour)))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM refresh_tokens`).
		WithArgs("old-token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs("u-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pair, err := s.RefreshToken(context.Background(), "old-token")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, "old-token", pair.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_Expired(t *testing.T) {
	s, mock := newUserServiceWithMock(t)

	mock.ExpectQuery(`SELECT user_id, expires_at\s+FROM refresh_tokens`).
		WithArgs("stale").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow("u-1", time.Now().Add(-time.Minute)))

	_, err := s.RefreshToken(context.Background(), "stale")
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestRefreshToken_Unknown(t *testing.T) {
	s, mock := newUserServiceWithMock(t)

	mock.ExpectQuery(`SELECT user_id, expires_at\s+FROM refresh_tokens`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.RefreshToken(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}
