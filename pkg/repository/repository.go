package repository

import (
	"github.com/rs/zerolog"

	"github.com/longbark/outpost/pkg/events"
)

// watch subscribes to store changes for the given tables and emits a
// fresh snapshot after every relevant write. The latest snapshot wins:
// a slow consumer sees the newest state, not every intermediate one.
// The returned cancel func must be called to release the subscription.
func watch[T any](broker *events.Broker, load func() (T, error), logger zerolog.Logger, tables ...events.Table) (<-chan T, func()) {
	relevant := make(map[events.Table]bool, len(tables))
	for _, t := range tables {
		relevant[t] = true
	}

	sub := broker.Subscribe()
	out := make(chan T, 1)

	go func() {
		defer close(out)

		if snap, err := load(); err == nil {
			out <- snap
		}

		for change := range sub {
			if !relevant[change.Table] {
				continue
			}
			snap, err := load()
			if err != nil {
				logger.Error().Err(err).Str("table", string(change.Table)).Msg("failed to load snapshot")
				continue
			}
			// Replace a pending snapshot instead of blocking the
			// broker fan-out.
			select {
			case out <- snap:
			default:
				select {
				case <-out:
				default:
				}
				out <- snap
			}
		}
	}()

	cancel := func() { broker.Unsubscribe(sub) }
	return out, cancel
}
