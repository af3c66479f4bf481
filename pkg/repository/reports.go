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

// Reports is the cache-aside repository for generated report metadata.
// Report bodies stay on the server; only the listing is cached.
type Reports struct {
	api    *api.Client
	store  storage.Store
	broker *events.Broker
	logger zerolog.Logger
}

// NewReports creates the report repository.
func NewReports(apiClient *api.Client, store storage.Store, broker *events.Broker) *Reports {
	return &Reports{
		api:    apiClient,
		store:  store,
		broker: broker,
		logger: log.WithComponent("repo.reports"),
	}
}

// Name identifies this repository in scheduler logs and metrics.
func (r *Reports) Name() string { return "reports" }

// List returns cached report metadata, newest first.
func (r *Reports) List() ([]*types.Report, error) {
	return r.store.ListReports()
}

// Watch emits a fresh report snapshot after every write.
func (r *Reports) Watch() (<-chan []*types.Report, func()) {
	return watch(r.broker, r.store.ListReports, r.logger, events.TableReports)
}

// Refresh replaces the local report table from a full remote fetch.
func (r *Reports) Refresh(ctx context.Context) error {
	res := r.api.ListReports(ctx, api.ReportFilter{})
	reports, ok := res.Value()
	if !ok {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return res.Err()
	}

	if err := r.store.ReplaceReports(reports); err != nil {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return outcome.WrapFault(outcome.StoreFault, err)
	}
	metrics.RefreshesTotal.WithLabelValues(r.Name(), "success").Inc()
	return nil
}
