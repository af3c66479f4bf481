package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longbark/outpost/pkg/api"
	"github.com/longbark/outpost/pkg/events"
	"github.com/longbark/outpost/pkg/outcome"
	"github.com/longbark/outpost/pkg/storage"
	"github.com/longbark/outpost/pkg/types"
)

// testRemote is a fake monitoring API whose failure mode can be
// toggled mid-test to simulate the network dropping out.
type testRemote struct {
	mux     *http.ServeMux
	failing atomic.Bool
}

func newTestRemote() *testRemote {
	r := &testRemote{mux: http.NewServeMux()}
	return r
}

func (r *testRemote) handle(pattern string, body func() string) {
	r.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		if r.failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, body())
	})
}

func (r *testRemote) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func newTestDeps(t *testing.T, remote *testRemote) (*api.Client, *storage.BoltStore, *events.Broker) {
	t.Helper()
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)
	store.SetBroker(broker)

	return api.NewClient(srv.URL, nil), store, broker
}

func TestClientGetByIDWritesThrough(t *testing.T) {
	remote := newTestRemote()
	remote.handle("/clients/c1", func() string {
		return `{"id":"c1","name":"Acme","site_count":3}`
	})
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewClients(apiClient, store, broker)

	res := repo.GetByID(context.Background(), "c1")
	client, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, "Acme", client.Name)

	// The returned payload is now readable from the cache.
	cached, err := store.GetClient("c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", cached.Name)
	assert.Equal(t, 3, cached.SiteCount)
}

func TestClientGetByIDFallsBackToCache(t *testing.T) {
	remote := newTestRemote()
	remote.handle("/clients/c1", func() string {
		return `{"id":"c1","name":"Acme"}`
	})
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewClients(apiClient, store, broker)

	// Prime the cache, then kill the remote.
	require.True(t, repo.GetByID(context.Background(), "c1").IsSuccess())
	remote.failing.Store(true)

	res := repo.GetByID(context.Background(), "c1")
	client, ok := res.Value()
	require.True(t, ok, "fallback must surface as success")
	assert.Equal(t, "Acme", client.Name)
}

func TestClientGetByIDNoCacheKeepsOriginalFault(t *testing.T) {
	remote := newTestRemote()
	remote.failing.Store(true)
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewClients(apiClient, store, broker)

	res := repo.GetByID(context.Background(), "missing")
	require.True(t, res.IsError())
	assert.Equal(t, outcome.APIFault, res.Fault().Kind)
}

func TestClientRefreshReplacesAndIsIdempotent(t *testing.T) {
	remote := newTestRemote()
	remote.handle("/clients", func() string {
		return `{"clients":[{"id":"a","name":"A"},{"id":"b","name":"B"}],"total":2}`
	})
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewClients(apiClient, store, broker)

	// A stale row that the remote no longer knows about.
	require.NoError(t, store.UpsertClient(&types.Client{ID: "stale", Name: "Stale"}))

	require.NoError(t, repo.Refresh(context.Background()))
	require.NoError(t, repo.Refresh(context.Background()))

	clients, err := repo.List()
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "A", clients[0].Name)
	assert.Equal(t, "B", clients[1].Name)
}

func TestClientRefreshFailureLeavesCacheUntouched(t *testing.T) {
	remote := newTestRemote()
	remote.handle("/clients", func() string {
		return `{"clients":[{"id":"a","name":"A"}]}`
	})
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewClients(apiClient, store, broker)

	require.NoError(t, repo.Refresh(context.Background()))
	remote.failing.Store(true)

	err := repo.Refresh(context.Background())
	require.Error(t, err)

	clients, listErr := repo.List()
	require.NoError(t, listErr)
	assert.Len(t, clients, 1)
}

func TestSiteFallbackCarriesNoExtendedSections(t *testing.T) {
	remote := newTestRemote()
	remote.handle("/sites/s1", func() string {
		return `{"site":{"id":"s1","client_id":"c1","name":"Shop"},"ssl_info":{"is_valid":true,"issuer":"LE"}}`
	})
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewSites(apiClient, store, broker)

	res := repo.GetByID(context.Background(), "s1")
	details, ok := res.Value()
	require.True(t, ok)
	require.NotNil(t, details.SSLInfo)

	remote.failing.Store(true)
	res = repo.GetByID(context.Background(), "s1")
	details, ok = res.Value()
	require.True(t, ok)
	assert.Equal(t, "Shop", details.Site.Name)
	assert.Nil(t, details.SSLInfo, "extended sections are never cached")
	assert.Nil(t, details.WordPressInfo)
	assert.Nil(t, details.SEOInfo)
	assert.Nil(t, details.PerformanceMetrics)
}

type fixedLastSync struct {
	t time.Time
}

func (f fixedLastSync) LastSyncTimestamp() time.Time { return f.t }

func TestDashboardRecomputeFallback(t *testing.T) {
	remote := newTestRemote()
	remote.failing.Store(true)
	apiClient, store, broker := newTestDeps(t, remote)

	require.NoError(t, store.UpsertSite(&types.Site{ID: "s1", HealthStatus: types.HealthHealthy}))
	require.NoError(t, store.UpsertSite(&types.Site{ID: "s2", HealthStatus: types.HealthCritical}))
	require.NoError(t, store.UpsertNotification(&types.Notification{ID: "n1", Title: "down", Timestamp: 100}))

	lastSync := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo := NewDashboard(apiClient, store, broker, fixedLastSync{t: lastSync})

	res := repo.Get(context.Background())
	stats, ok := res.Value()
	require.True(t, ok, "recompute must satisfy the request")
	assert.Equal(t, 2, stats.TotalSites)
	assert.Equal(t, 1, stats.HealthySites)
	assert.Equal(t, 1, stats.CriticalSites)
	require.Len(t, stats.RecentAlerts, 1)
	assert.Equal(t, lastSync.UnixMilli(), stats.LastSyncTimestamp)
}

func TestDashboardGetWritesSnapshotThrough(t *testing.T) {
	remote := newTestRemote()
	remote.handle("/dashboard/stats", func() string {
		return `{"total_sites":4,"healthy_sites":4}`
	})
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewDashboard(apiClient, store, broker, fixedLastSync{})

	res := repo.Get(context.Background())
	require.True(t, res.IsSuccess())

	snap, err := store.GetDashboard()
	require.NoError(t, err)
	assert.Equal(t, 4, snap.TotalSites)
}

func TestWatchEmitsSnapshotOnChange(t *testing.T) {
	remote := newTestRemote()
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewClients(apiClient, store, broker)

	ch, cancel := repo.Watch()
	defer cancel()

	// Initial snapshot: empty cache.
	select {
	case snap := <-ch:
		assert.Empty(t, snap)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	require.NoError(t, store.UpsertClient(&types.Client{ID: "c1", Name: "Acme"}))

	select {
	case snap := <-ch:
		require.Len(t, snap, 1)
		assert.Equal(t, "Acme", snap[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after write")
	}
}

func TestReportsRefreshAndList(t *testing.T) {
	remote := newTestRemote()
	remote.handle("/reports", func() string {
		return `{"reports":[{"id":"r1","title":"Monthly uptime","type":"uptime","format":"pdf","generated_at":200},{"id":"r2","title":"SEO summary","type":"seo","format":"html","generated_at":100}],"total":2}`
	})
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewReports(apiClient, store, broker)

	// A report the server has since deleted.
	require.NoError(t, store.ReplaceReports([]*types.Report{{ID: "stale", Title: "Old"}}))

	require.NoError(t, repo.Refresh(context.Background()))

	reports, err := repo.List()
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "Monthly uptime", reports[0].Title)
	assert.Equal(t, "pdf", reports[0].Format)
	assert.Equal(t, "SEO summary", reports[1].Title)
}

func TestNotificationsRefreshReplaces(t *testing.T) {
	remote := newTestRemote()
	remote.handle("/notifications", func() string {
		return `[{"id":"n1","title":"Site down","severity":"CRITICAL","timestamp":500},{"id":"n2","title":"Cert expiring","severity":"WARNING","timestamp":300}]`
	})
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewNotifications(apiClient, store, broker)

	require.NoError(t, store.UpsertNotification(&types.Notification{ID: "stale", Title: "Gone", Timestamp: 900}))

	require.NoError(t, repo.Refresh(context.Background()))

	ns, err := repo.List()
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.Equal(t, "Site down", ns[0].Title)
	assert.Equal(t, "Cert expiring", ns[1].Title)

	// Failure once cached must keep the last good listing.
	remote.failing.Store(true)
	require.Error(t, repo.Refresh(context.Background()))
	ns, err = repo.List()
	require.NoError(t, err)
	assert.Len(t, ns, 2)
}

func TestNotificationMarkReadWritesThrough(t *testing.T) {
	remote := newTestRemote()
	remote.handle("/notifications/n1/read", func() string {
		return `{"success":true}`
	})
	apiClient, store, broker := newTestDeps(t, remote)
	repo := NewNotifications(apiClient, store, broker)

	require.NoError(t, store.UpsertNotification(&types.Notification{ID: "n1", Title: "down"}))

	res := repo.MarkRead(context.Background(), "n1")
	require.True(t, res.IsSuccess())

	n, err := store.GetNotification("n1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)
}
