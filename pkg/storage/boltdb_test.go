package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longbark/outpost/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestClientUpsertGetList(t *testing.T) {
	store := newTestStore(t)

	c := &types.Client{ID: "c1", Name: "Acme", SiteCount: 2, HealthStatus: types.HealthHealthy}
	require.NoError(t, store.UpsertClient(c))

	got, err := store.GetClient("c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, 2, got.SiteCount)

	// Upsert with the same ID overwrites.
	c.Name = "Acme Corp"
	require.NoError(t, store.UpsertClient(c))
	got, err = store.GetClient("c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)

	_, err = store.GetClient("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListClientsSorted(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertClient(&types.Client{ID: "c1", Name: "Zebra"}))
	require.NoError(t, store.UpsertClient(&types.Client{ID: "c2", Name: "Alpha"}))
	require.NoError(t, store.UpsertClient(&types.Client{ID: "c3", Name: "Mango"}))

	clients, err := store.ListClients()
	require.NoError(t, err)
	require.Len(t, clients, 3)
	assert.Equal(t, "Alpha", clients[0].Name)
	assert.Equal(t, "Mango", clients[1].Name)
	assert.Equal(t, "Zebra", clients[2].Name)
}

func TestReplaceClientsDropsStaleRows(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertClient(&types.Client{ID: "old", Name: "Old"}))
	require.NoError(t, store.ReplaceClients([]*types.Client{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B"},
	}))

	_, err := store.GetClient("old")
	assert.ErrorIs(t, err, ErrNotFound)

	clients, err := store.ListClients()
	require.NoError(t, err)
	assert.Len(t, clients, 2)
}

func TestReplaceClientsCascadesToSites(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertClient(&types.Client{ID: "keep", Name: "Keep"}))
	require.NoError(t, store.UpsertClient(&types.Client{ID: "drop", Name: "Drop"}))
	require.NoError(t, store.UpsertSite(&types.Site{ID: "s1", ClientID: "keep", Name: "kept site"}))
	require.NoError(t, store.UpsertSite(&types.Site{ID: "s2", ClientID: "drop", Name: "orphan site"}))

	require.NoError(t, store.ReplaceClients([]*types.Client{{ID: "keep", Name: "Keep"}}))

	_, err := store.GetSite("s1")
	assert.NoError(t, err)
	_, err = store.GetSite("s2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteClientCascadesToSites(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertClient(&types.Client{ID: "c1", Name: "Acme"}))
	require.NoError(t, store.UpsertSite(&types.Site{ID: "s1", ClientID: "c1"}))
	require.NoError(t, store.UpsertSite(&types.Site{ID: "s2", ClientID: "c1"}))
	require.NoError(t, store.UpsertSite(&types.Site{ID: "s3", ClientID: "other"}))

	require.NoError(t, store.DeleteClient("c1"))

	sites, err := store.ListSites()
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "s3", sites[0].ID)
}

func TestSiteCountByHealth(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertSite(&types.Site{ID: "s1", HealthStatus: types.HealthHealthy}))
	require.NoError(t, store.UpsertSite(&types.Site{ID: "s2", HealthStatus: types.HealthHealthy}))
	require.NoError(t, store.UpsertSite(&types.Site{ID: "s3", HealthStatus: types.HealthCritical}))

	total, err := store.SiteCount()
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	healthy, err := store.SiteCountByHealth(types.HealthHealthy)
	require.NoError(t, err)
	assert.Equal(t, 2, healthy)

	warning, err := store.SiteCountByHealth(types.HealthWarning)
	require.NoError(t, err)
	assert.Equal(t, 0, warning)
}

func TestNotificationsNewestFirstAndMarkRead(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertNotification(&types.Notification{ID: "n1", Title: "old", Timestamp: 100}))
	require.NoError(t, store.UpsertNotification(&types.Notification{ID: "n2", Title: "new", Timestamp: 300}))
	require.NoError(t, store.UpsertNotification(&types.Notification{ID: "n3", Title: "mid", Timestamp: 200}))

	ns, err := store.ListNotifications()
	require.NoError(t, err)
	require.Len(t, ns, 3)
	assert.Equal(t, "new", ns[0].Title)
	assert.Equal(t, "mid", ns[1].Title)
	assert.Equal(t, "old", ns[2].Title)

	require.NoError(t, store.MarkNotificationRead("n1"))
	n, err := store.GetNotification("n1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	assert.ErrorIs(t, store.MarkNotificationRead("missing"), ErrNotFound)

	require.NoError(t, store.MarkAllNotificationsRead())
	ns, err = store.ListNotifications()
	require.NoError(t, err)
	for _, n := range ns {
		assert.True(t, n.IsRead)
	}
}

func TestDashboardSingleton(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDashboard()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveDashboard(&types.DashboardStats{TotalSites: 5}))
	require.NoError(t, store.SaveDashboard(&types.DashboardStats{TotalSites: 7}))

	stats, err := store.GetDashboard()
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalSites)
}

func TestCredentialsLifecycle(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCredentials()
	assert.ErrorIs(t, err, ErrNotFound)

	creds := &types.Credentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
		User:         &types.User{ID: "u1", Email: "ops@example.com"},
	}
	require.NoError(t, store.SaveCredentials(creds))

	got, err := store.GetCredentials()
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "ops@example.com", got.User.Email)

	require.NoError(t, store.ClearCredentials())
	_, err = store.GetCredentials()
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing an empty bucket is not an error.
	require.NoError(t, store.ClearCredentials())
}
