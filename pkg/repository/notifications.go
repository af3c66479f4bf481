package repository

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/longbark/outpost/pkg/api"
	"github.com/longbark/outpost/pkg/events"
	"github.com/longbark/outpost/pkg/log"
	"github.com/longbark/outpost/pkg/metrics"
	"github.com/longbark/outpost/pkg/outcome"
	"github.com/longbark/outpost/pkg/storage"
	"github.com/longbark/outpost/pkg/types"
)

// Notifications is the cache-aside repository for the alert history.
// Rows arrive two ways: the periodic refresh pulls the server's feed,
// and the notification router records alerts delivered by the live
// stream.
type Notifications struct {
	api    *api.Client
	store  storage.Store
	broker *events.Broker
	logger zerolog.Logger
}

// NewNotifications creates the notification repository.
func NewNotifications(apiClient *api.Client, store storage.Store, broker *events.Broker) *Notifications {
	return &Notifications{
		api:    apiClient,
		store:  store,
		broker: broker,
		logger: log.WithComponent("repo.notifications"),
	}
}

// Name identifies this repository in scheduler logs and metrics.
func (r *Notifications) Name() string { return "notifications" }

// List returns cached notifications, newest first.
func (r *Notifications) List() ([]*types.Notification, error) {
	return r.store.ListNotifications()
}

// Watch emits a fresh notification snapshot after every write.
func (r *Notifications) Watch() (<-chan []*types.Notification, func()) {
	return watch(r.broker, r.store.ListNotifications, r.logger, events.TableNotifications)
}

// Refresh replaces the local notification table from the remote feed.
func (r *Notifications) Refresh(ctx context.Context) error {
	res := r.api.ListNotifications(ctx, 0, 0)
	ns, ok := res.Value()
	if !ok {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return res.Err()
	}

	if err := r.store.ReplaceNotifications(ns); err != nil {
		metrics.RefreshesTotal.WithLabelValues(r.Name(), "error").Inc()
		return outcome.WrapFault(outcome.StoreFault, err)
	}
	metrics.RefreshesTotal.WithLabelValues(r.Name(), "success").Inc()
	return nil
}

// MarkRead marks a notification read on the server and writes through
// locally on success. On remote failure the local row keeps its state
// and the fault propagates.
func (r *Notifications) MarkRead(ctx context.Context, id string) outcome.Outcome[bool] {
	res := r.api.MarkNotificationRead(ctx, id)
	if res.IsError() {
		return res
	}
	if err := r.store.MarkNotificationRead(id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return outcome.Failure[bool](outcome.WrapFault(outcome.StoreFault, err))
	}
	return res
}

// MarkAllRead marks every notification read remotely and locally.
func (r *Notifications) MarkAllRead(ctx context.Context) outcome.Outcome[bool] {
	res := r.api.MarkAllNotificationsRead(ctx)
	if res.IsError() {
		return res
	}
	if err := r.store.MarkAllNotificationsRead(); err != nil {
		return outcome.Failure[bool](outcome.WrapFault(outcome.StoreFault, err))
	}
	return res
}

// Record stores a locally generated notification, used by the router
// when the live stream delivers an alert.
func (r *Notifications) Record(n *types.Notification) error {
	if err := r.store.UpsertNotification(n); err != nil {
		return outcome.WrapFault(outcome.StoreFault, err)
	}
	return nil
}
