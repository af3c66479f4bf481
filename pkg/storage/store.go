package storage

import (
	"errors"

	"github.com/longbark/outpost/pkg/types"
)

// ErrNotFound is returned when a row with the requested identifier does
// not exist. Callers distinguish it from I/O failures when deciding
// whether a cache fallback is possible.
var ErrNotFound = errors.New("storage: not found")

// Store is the local structured cache. Repositories own all writes for
// their entity family; readers go through the List/Get methods or
// subscribe to the change broker for reactive snapshots.
//
// Write methods commit in a single transaction so concurrent readers
// never observe a half-applied refresh.
type Store interface {
	// Clients
	UpsertClient(client *types.Client) error
	GetClient(id string) (*types.Client, error)
	ListClients() ([]*types.Client, error)
	ReplaceClients(clients []*types.Client) error
	DeleteClient(id string) error
	ClientCount() (int, error)

	// Sites
	UpsertSite(site *types.Site) error
	GetSite(id string) (*types.Site, error)
	ListSites() ([]*types.Site, error)
	ListSitesByClient(clientID string) ([]*types.Site, error)
	ReplaceSites(sites []*types.Site) error
	DeleteSite(id string) error
	SiteCount() (int, error)
	SiteCountByHealth(status types.HealthStatus) (int, error)

	// Notifications
	UpsertNotification(n *types.Notification) error
	GetNotification(id string) (*types.Notification, error)
	ListNotifications() ([]*types.Notification, error)
	ReplaceNotifications(ns []*types.Notification) error
	MarkNotificationRead(id string) error
	MarkAllNotificationsRead() error

	// Reports
	GetReport(id string) (*types.Report, error)
	ListReports() ([]*types.Report, error)
	ReplaceReports(rs []*types.Report) error

	// Dashboard snapshot (single row, fixed key)
	SaveDashboard(stats *types.DashboardStats) error
	GetDashboard() (*types.DashboardStats, error)

	// Credentials (single row, fixed key, saved and cleared atomically)
	SaveCredentials(creds *types.Credentials) error
	GetCredentials() (*types.Credentials, error)
	ClearCredentials() error

	// Utility
	Close() error
}
