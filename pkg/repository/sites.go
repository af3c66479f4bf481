package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/longbark/outpost/pkg/api"
	"github.com/longbark/outpost/pkg/events"
	"github.com/longbark/outpost/pkg/log"
	"github.com/longbark/outpost/pkg/metrics"
	"github.com/longbark/outpost/pkg/outcome"
	"github.com/longbark/outpost/pkg/storage"
	"github.com/longbark/outpost/pkg/types"
)

// Sites is the cache-aside repository for monitored sites.
type Sites struct {
	api    *api.Client
	store  storage.Store
	broker *events.Broker
	logger zerolog.Logger
}

// NewSites creates the site repository.
func NewSites(apiClient *api.Client, store storage.Store, broker *events.Broker) *Sites {
	return &Sites{
		api:    apiClient,
		store:  store,
		broker: broker,
		logger: log.WithComponent("repo.sites"),
	}
}

// Name identifies this repository in scheduler logs and metrics.
func (r *Sites) Name() string { return "sites" }

// List returns all cached sites, sorted by name.
func (r *Sites) List() ([]*types.Site, error) {
	return r.store.ListSites()
}

// ListByClient returns cached sites owned by one client.
func (r *Sites) ListByClient(clientID string) ([]*types.Site, error) {
	return r.store.ListSitesByClient(clientID)
}

// Watch emits a fresh site snapshot after every write-through.
func (r *Sites) Watch() (<-chan []*types.Site, func()) {
	return watch(r.broker, r.store.ListSites, r.logger, events.TableSites)
}

// GetByID fetches the full site detail view remote-first. A cache
// fallback carries only the core site row; the SSL, WordPress, SEO and
// performance sections are nil because they are never cached.
func (r *Sites) GetByID(ctx context.Context, id string) outcome.Outcome[*types.SiteDetails] {
	res := r.api.GetSiteByID(ctx, id)

	if details, ok := res.Value(); ok {
		if details.Site != nil {
			if err := r.store.UpsertSite(details.Site); err != nil {
				return outcome.Failure[*types.SiteDetails](outcome.WrapFault(outcome.StoreFault, err))
			}
		}
		return outcome.Success(details)
	}

	cached, err := r.store.GetSite(id)
	if err != nil {
		return res
	}
	metrics.CacheFallbacksTotal.WithLabelValues(r.Name()).Inc()
	r.logger.Debug().Str("site_id", id).Msg("remote fetch failed, serving cached site")
	return outcome.Success(&types.SiteDetails{Site: cached})
}

// Refresh replaces the local site table from a full remote fetch.
func (r *Sites) Refresh(ctx context.Context) error {
	res := r.api.ListSites(ctx, "")
	sites, ok := res.Value()
	if !ok {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return res.Err()
	}

	if err := r.store.ReplaceSites(sites); err != nil {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return outcome.WrapFault(outcome.StoreFault, err)
	}
	metrics.RefreshesTotal.WithLabelValues(r.Name(), "success").Inc()
	r.logger.Debug().Int("count", len(sites)).Msg("site cache refreshed")
	return nil
}

// TriggerCheck asks the server to re-check one site immediately.
func (r *Sites) TriggerCheck(ctx context.Context, id string) outcome.Outcome[bool] {
	return r.api.TriggerSiteCheck(ctx, id)
}

// TriggerAllChecks asks the server to re-check every site.
func (r *Sites) TriggerAllChecks(ctx context.Context) outcome.Outcome[bool] {
	return r.api.TriggerAllChecks(ctx)
}
