package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longbark/outpost/pkg/api"
	"github.com/longbark/outpost/pkg/storage"
)

func newTestManager(t *testing.T, handler http.Handler) (*Manager, *storage.BoltStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewManager(api.NewClient(srv.URL, nil), store), store
}

func TestLoginPersistsCredentials(t *testing.T) {
	m, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u1","email":"ops@example.com","name":"Ops"}}`)
	}))

	res := m.Login(context.Background(), "ops@example.com", "secret")
	user, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, "Ops", user.Name)

	creds, err := store.GetCredentials()
	require.NoError(t, err)
	assert.Equal(t, "at", creds.AccessToken)
	assert.Equal(t, "rt", creds.RefreshToken)
	assert.NotNil(t, creds.User)

	assert.True(t, m.IsLoggedIn())
	token, ok := m.Token()
	require.True(t, ok)
	assert.Equal(t, "at", token)
}

func TestLoginFailureLeavesNoCredentials(t *testing.T) {
	m, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"bad credentials"}`)
	}))

	res := m.Login(context.Background(), "ops@example.com", "wrong")
	require.True(t, res.IsError())

	_, err := store.GetCredentials()
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, m.IsLoggedIn())
}

func TestLogoutClearsEvenWhenRemoteFails(t *testing.T) {
	m, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","expires_in":3600}`)
			return
		}
		// Remote logout always fails.
		w.WriteHeader(http.StatusInternalServerError)
	}))

	require.True(t, m.Login(context.Background(), "a@b.c", "pw").IsSuccess())
	require.True(t, m.IsLoggedIn())

	require.NoError(t, m.Logout(context.Background()))

	assert.False(t, m.IsLoggedIn())
	_, err := store.GetCredentials()
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRefreshWithoutStoredTokenFails(t *testing.T) {
	m, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no remote call expected")
	}))

	res := m.Refresh(context.Background())
	require.True(t, res.IsError())
	assert.Contains(t, res.Err().Error(), "re-authentication required")
}

func TestRefreshKeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	m, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			fmt.Fprint(w, `{"access_token":"at1","refresh_token":"rt1","expires_in":60,"user":{"id":"u1"}}`)
		case "/auth/refresh":
			// Rotation-less grant: no refresh_token in the response.
			fmt.Fprint(w, `{"access_token":"at2","expires_in":3600}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	require.True(t, m.Login(context.Background(), "a@b.c", "pw").IsSuccess())
	require.True(t, m.Refresh(context.Background()).IsSuccess())

	creds, err := store.GetCredentials()
	require.NoError(t, err)
	assert.Equal(t, "at2", creds.AccessToken)
	assert.Equal(t, "rt1", creds.RefreshToken)
	assert.Equal(t, "u1", creds.User.ID)
}
