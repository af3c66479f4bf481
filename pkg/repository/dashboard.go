package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/longbark/outpost/pkg/api"
	"github.com/longbark/outpost/pkg/events"
	"github.com/longbark/outpost/pkg/log"
	"github.com/longbark/outpost/pkg/metrics"
	"github.com/longbark/outpost/pkg/outcome"
	"github.com/longbark/outpost/pkg/storage"
	"github.com/longbark/outpost/pkg/types"
)

const recentAlertLimit = 10

// LastSyncSource exposes the last successful sync completion time,
// written by the sync scheduler into the preference store.
type LastSyncSource interface {
	LastSyncTimestamp() time.Time
}

// Dashboard is the cache-aside repository for the aggregate dashboard
// view. Unlike clients and sites its fallback is a recompute: when the
// remote fetch fails the stats are derived from the cached sites and
// notifications the other repositories maintain.
type Dashboard struct {
	api      *api.Client
	store    storage.Store
	broker   *events.Broker
	lastSync LastSyncSource
	logger   zerolog.Logger
}

// NewDashboard creates the dashboard repository.
func NewDashboard(apiClient *api.Client, store storage.Store, broker *events.Broker, lastSync LastSyncSource) *Dashboard {
	return &Dashboard{
		api:      apiClient,
		store:    store,
		broker:   broker,
		lastSync: lastSync,
		logger:   log.WithComponent("repo.dashboard"),
	}
}

// Name identifies this repository in scheduler logs and metrics.
func (r *Dashboard) Name() string { return "dashboard" }

// Get fetches the dashboard stats remote-first, writing the snapshot
// through on success. On remote failure the stats are recomputed from
// the local store; only when that recompute also fails does the
// original fault propagate.
func (r *Dashboard) Get(ctx context.Context) outcome.Outcome[*types.DashboardStats] {
	res := r.api.GetDashboardStats(ctx)

	if stats, ok := res.Value(); ok {
		if err := r.store.SaveDashboard(stats); err != nil {
			return outcome.Failure[*types.DashboardStats](outcome.WrapFault(outcome.StoreFault, err))
		}
		return outcome.Success(stats)
	}

	stats, err := r.recompute()
	if err != nil {
		return res
	}
	metrics.CacheFallbacksTotal.WithLabelValues(r.Name()).Inc()
	r.logger.Debug().Msg("remote fetch failed, recomputed dashboard from cache")
	return outcome.Success(stats)
}

// Watch emits recomputed dashboard stats whenever the underlying sites
// or notifications change, so the aggregate stays consistent with the
// entities it summarizes.
func (r *Dashboard) Watch() (<-chan *types.DashboardStats, func()) {
	return watch(r.broker, r.recompute, r.logger,
		events.TableDashboard, events.TableSites, events.TableNotifications)
}

// Refresh fetches the stats and writes the snapshot through. The
// last-sync timestamp is recorded by the scheduler, not here.
func (r *Dashboard) Refresh(ctx context.Context) error {
	res := r.api.GetDashboardStats(ctx)
	stats, ok := res.Value()
	if !ok {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return res.Err()
	}

	if err := r.store.SaveDashboard(stats); err != nil {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return outcome.WrapFault(outcome.StoreFault, err)
	}
	metrics.RefreshesTotal.WithLabelValues(r.Name(), "success").Inc()
	return nil
}

// recompute derives dashboard stats from cached sites, the newest
// cached notifications and the persisted last-sync timestamp.
func (r *Dashboard) recompute() (*types.DashboardStats, error) {
	total, err := r.store.SiteCount()
	if err != nil {
		return nil, err
	}
	healthy, err := r.store.SiteCountByHealth(types.HealthHealthy)
	if err != nil {
		return nil, err
	}
	warning, err := r.store.SiteCountByHealth(types.HealthWarning)
	if err != nil {
		return nil, err
	}
	critical, err := r.store.SiteCountByHealth(types.HealthCritical)
	if err != nil {
		return nil, err
	}
	alerts, err := r.store.ListNotifications()
	if err != nil {
		return nil, err
	}
	if len(alerts) > recentAlertLimit {
		alerts = alerts[:recentAlertLimit]
	}

	stats := &types.DashboardStats{
		TotalSites:    total,
		HealthySites:  healthy,
		WarningSites:  warning,
		CriticalSites: critical,
		RecentAlerts:  alerts,
	}
	if r.lastSync != nil {
		if t := r.lastSync.LastSyncTimestamp(); !t.IsZero() {
			stats.LastSyncTimestamp = t.UnixMilli()
		}
	}
	return stats, nil
}
