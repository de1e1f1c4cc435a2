// Package services contains the application services of the client: account
// handling and the penalty mutation API that every UI command goes through.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Psheikomaniac/cashcow-go/internal/client/repositories/metadata"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
)

// AuthGateway is the authentication surface of the remote API.
type AuthGateway interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (access, refresh string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (access, refresh string, err error)
}

// AuthService manages the account session: registration, login, logout and
// the stored token pair. It also serves as the gateway's credential source,
// rotating the pair when an access token expires mid-sync.
type AuthService struct {
	gw       AuthGateway
	metadata metadata.Repository
}

// NewAuthService binds the service to the remote auth API and the local
// metadata store.
func NewAuthService(gw AuthGateway, md metadata.Repository) *AuthService {
	return &AuthService{gw: gw, metadata: md}
}

// SetGateway binds the remote API after construction. The service is the
// gateway's credential source, so one of the two has to be wired up late.
func (a *AuthService) SetGateway(gw AuthGateway) {
	a.gw = gw
}

// Register creates a new account on the server. It does not log in.
func (a *AuthService) Register(ctx context.Context, username, password string) error {
	if err := a.gw.Register(ctx, username, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// Login authenticates against the server and stores the issued token pair for
// later sync cycles.
func (a *AuthService) Login(ctx context.Context, username, password string) error {
	access, refresh, err := a.gw.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := a.storeSession(ctx, username, access, refresh); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Logout drops the stored session. Local penalty data stays untouched.
func (a *AuthService) Logout(ctx context.Context) error {
	for _, key := range []string{metadata.KeyAccessToken, metadata.KeyRefreshToken, metadata.KeyUsername} {
		if err := a.metadata.Delete(ctx, key); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Username returns the logged-in account name, or "" when logged out.
func (a *AuthService) Username(ctx context.Context) (string, error) {
	v, err := a.metadata.Get(ctx, metadata.KeyUsername)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// Token implements gateway.CredentialSource.
func (a *AuthService) Token(ctx context.Context) (string, error) {
	v, err := a.metadata.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// Refresh implements gateway.CredentialSource: it exchanges the stored
// refresh token for a new pair. A missing or rejected refresh token means the
// session is gone and the user must log in again.
func (a *AuthService) Refresh(ctx context.Context) error {
	v, err := a.metadata.Get(ctx, metadata.KeyRefreshToken)
	if err != nil {
		return err
	}
	if len(v) == 0 {
		return common.ErrUnauthorized
	}

	access, refresh, err := a.gw.RefreshToken(ctx, string(v))
	if err != nil {
		return err
	}

	username, err := a.Username(ctx)
	if err != nil {
		return err
	}
	return a.storeSession(ctx, username, access, refresh)
}

func (a *AuthService) storeSession(ctx context.Context, username, access, refresh string) error {
	if err := a.metadata.Set(ctx, metadata.KeyUsername, []byte(username)); err != nil {
		return err
	}
	if err := a.metadata.Set(ctx, metadata.KeyAccessToken, []byte(access)); err != nil {
		return err
	}
	return a.metadata.Set(ctx, metadata.KeyRefreshToken, []byte(refresh))
}
