package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/longbark/outpost/pkg/api"
	"github.com/longbark/outpost/pkg/log"
	"github.com/longbark/outpost/pkg/outcome"
	"github.com/longbark/outpost/pkg/storage"
	"github.com/longbark/outpost/pkg/types"
)

// Manager owns the credential lifecycle: login persists the full token
// set atomically, logout clears it even when the remote call fails, and
// refresh is an explicit operation that requires a stored refresh
// token. Manager also implements TokenSource for the authenticating
// transport.
type Manager struct {
	api    *api.Client
	store  storage.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates an auth manager over the API client and local
// store.
func NewManager(apiClient *api.Client, store storage.Store) *Manager {
	return &Manager{
		api:    apiClient,
		store:  store,
		logger: log.WithComponent("auth"),
		now:    time.Now,
	}
}

// Login exchanges email/password for tokens and persists them as a
// unit.
func (m *Manager) Login(ctx context.Context, email, password string) outcome.Outcome[*types.User] {
	res := m.api.Login(ctx, email, password)
	grant, ok := res.Value()
	if !ok {
		return outcome.Failure[*types.User](res.Fault())
	}

	creds := &types.Credentials{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(grant.ExpiresIn) * time.Second),
		User:         grant.User,
	}
	if err := m.store.SaveCredentials(creds); err != nil {
		return outcome.Failure[*types.User](outcome.WrapFault(outcome.StoreFault, err))
	}

	m.logger.Info().Str("email", email).Msg("logged in")
	return outcome.Success(grant.User)
}

// Logout invalidates the session. Local credential clearing is
// authoritative: the remote call is best-effort and its failure is only
// logged.
func (m *Manager) Logout(ctx context.Context) error {
	if res := m.api.Logout(ctx); res.IsError() {
		m.logger.Warn().Err(res.Err()).Msg("remote logout failed, clearing local credentials anyway")
	}

	if err := m.store.ClearCredentials(); err != nil {
		return outcome.WrapFault(outcome.StoreFault, err)
	}
	m.logger.Info().Msg("logged out")
	return nil
}

// Refresh exchanges the stored refresh token for a new token set. It is
// not wired into automatic 401 recovery; callers invoke it explicitly
// when an AuthFault surfaces.
func (m *Manager) Refresh(ctx context.Context) outcome.Outcome[*types.User] {
	creds, err := m.store.GetCredentials()
	if err != nil || creds.RefreshToken == "" {
		return outcome.Failuref[*types.User](outcome.AuthFault, "no refresh token, re-authentication required")
	}

	res := m.api.RefreshToken(ctx, creds.RefreshToken)
	grant, ok := res.Value()
	if !ok {
		return outcome.Failure[*types.User](res.Fault())
	}

	// Servers may omit the refresh token on rotation-less grants; keep
	// the one we have.
	refresh := grant.RefreshToken
	if refresh == "" {
		refresh = creds.RefreshToken
	}
	user := grant.User
	if user == nil {
		user = creds.User
	}

	next := &types.Credentials{
		AccessToken:  grant.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    m.now().Add(time.Duration(grant.ExpiresIn) * time.Second),
		User:         user,
	}
	if err := m.store.SaveCredentials(next); err != nil {
		return outcome.Failure[*types.User](outcome.WrapFault(outcome.StoreFault, err))
	}
	return outcome.Success(user)
}

// IsLoggedIn reports whether an access token is present. Expiry is not
// checked here; an expired token surfaces as an API rejection.
func (m *Manager) IsLoggedIn() bool {
	creds, err := m.store.GetCredentials()
	return err == nil && creds.AccessToken != ""
}

// Token implements TokenSource.
func (m *Manager) Token() (string, bool) {
	creds, err := m.store.GetCredentials()
	if err != nil || creds.AccessToken == "" {
		return "", false
	}
	return creds.AccessToken, true
}

// CurrentUser returns the signed-in principal if any.
func (m *Manager) CurrentUser() (*types.User, bool) {
	creds, err := m.store.GetCredentials()
	if err != nil || creds.AccessToken == "" || creds.User == nil {
		return nil, false
	}
	return creds.User, true
}
