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

// Clients is the cache-aside repository for agency clients.
type Clients struct {
	api    *api.Client
	store  storage.Store
	broker *events.Broker
	logger zerolog.Logger
}

// NewClients creates the client repository.
func NewClients(apiClient *api.Client, store storage.Store, broker *events.Broker) *Clients {
	return &Clients{
		api:    apiClient,
		store:  store,
		broker: broker,
		logger: log.WithComponent("repo.clients"),
	}
}

// Name identifies this repository in scheduler logs and metrics.
func (r *Clients) Name() string { return "clients" }

// List returns the cached client list, sorted by name. Never blocks on
// the network.
func (r *Clients) List() ([]*types.Client, error) {
	return r.store.ListClients()
}

// Watch emits a fresh client snapshot after every write-through. Call
// cancel to release the subscription.
func (r *Clients) Watch() (<-chan []*types.Client, func()) {
	return watch(r.broker, r.store.ListClients, r.logger, events.TableClients)
}

// GetByID fetches one client remote-first. On remote failure the cached
// row satisfies the request silently; with no cached row the original
// fault propagates untouched.
func (r *Clients) GetByID(ctx context.Context, id string) outcome.Outcome[*types.Client] {
	res := r.api.GetClientByID(ctx, id)

	if client, ok := res.Value(); ok {
		if err := r.store.UpsertClient(client); err != nil {
			return outcome.Failure[*types.Client](outcome.WrapFault(outcome.StoreFault, err))
		}
		return outcome.Success(client)
	}

	cached, err := r.store.GetClient(id)
	if err != nil {
		return res
	}
	metrics.CacheFallbacksTotal.WithLabelValues(r.Name()).Inc()
	r.logger.Debug().Str("client_id", id).Msg("remote fetch failed, serving cached client")
	return outcome.Success(cached)
}

// Refresh replaces the local client table from a full remote fetch.
// The store is untouched when the fetch fails.
func (r *Clients) Refresh(ctx context.Context) error {
	res := r.api.ListClients(ctx)
	clients, ok := res.Value()
	if !ok {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return res.Err()
	}

	if err := r.store.ReplaceClients(clients); err != nil {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return outcome.WrapFault(outcome.StoreFault, err)
	}
	metrics.RefreshesTotal.WithLabelValues(r.Name(), "success").Inc()
	r.logger.Debug().Int("count", len(clients)).Msg("client cache refreshed")
	return nil
}
