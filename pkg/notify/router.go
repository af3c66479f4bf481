package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/longbark/outpost/pkg/log"
	"github.com/longbark/outpost/pkg/metrics"
	"github.com/longbark/outpost/pkg/types"
)

// DefaultTitle is used for alerts that arrive without one.
const DefaultTitle = "LongBark Alert"

// Deliverer is a delivery sink for routed alerts: a desktop notifier,
// a webhook, or the log deliverer below. The channel carries the
// configured metadata so sinks can honor name and importance
// overrides.
type Deliverer interface {
	Deliver(ch Channel, title, body, deepLink string) error
}

// Recorder persists a local history row for each routed alert.
type Recorder interface {
	Record(n *types.Notification) error
}

// Router maps feed alerts to channels by priority and fans them out to
// the deliverer, keeping a local notification record per alert.
type Router struct {
	deliverer Deliverer
	recorder  Recorder
	channels  map[string]Channel
	logger    zerolog.Logger
	now       func() int64
	newID     func() string
}

// NewRouter creates a router over the given channel set. A nil
// recorder disables local history.
func NewRouter(deliverer Deliverer, recorder Recorder, channels []Channel) *Router {
	if len(channels) == 0 {
		channels = DefaultChannels()
	}
	byID := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}
	return &Router{
		deliverer: deliverer,
		recorder:  recorder,
		channels:  byID,
		logger:    log.WithComponent("notify"),
		now:       func() int64 { return time.Now().UnixMilli() },
		newID:     func() string { return uuid.NewString() },
	}
}

// channel resolves configured metadata for a channel ID.
func (r *Router) channel(id string) Channel {
	if ch, ok := r.channels[id]; ok {
		return ch
	}
	return Channel{ID: id}
}

// channelFor selects the severity channel: priority 4 and 5 are
// critical, 3 is warning, everything else informational.
func channelFor(priority int) (string, types.Severity) {
	switch {
	case priority >= 4:
		return ChannelCritical, types.SeverityCritical
	case priority == 3:
		return ChannelWarning, types.SeverityWarning
	default:
		return ChannelInfo, types.SeverityInfo
	}
}

// HandleAlert routes one feed message. Implements the stream handler.
func (r *Router) HandleAlert(ctx context.Context, ev *types.AlertEvent) {
	channelID, severity := channelFor(ev.Priority)

	title := ev.Title
	if title == "" {
		title = DefaultTitle
	}

	if err := r.deliverer.Deliver(r.channel(channelID), title, ev.Message, ev.Click); err != nil {
		r.logger.Error().Err(err).Str("channel", channelID).Msg("alert delivery failed")
	}
	metrics.AlertsRoutedTotal.WithLabelValues(channelID).Inc()

	if r.recorder == nil {
		return
	}
	ts := ev.Time * 1000
	if ts <= 0 {
		ts = r.now()
	}
	n := &types.Notification{
		ID:        r.newID(),
		Title:     title,
		Message:   ev.Message,
		Type:      "live_alert",
		Severity:  severity,
		Timestamp: ts,
		ActionURL: ev.Click,
	}
	if err := r.recorder.Record(n); err != nil {
		r.logger.Error().Err(err).Msg("failed to record routed alert")
	}
}

// ServiceNotice posts an agent presence message on the service
// channel. Delivery failures are logged, never fatal.
func (r *Router) ServiceNotice(body string) {
	if err := r.deliverer.Deliver(r.channel(ChannelService), "Outpost Agent", body, ""); err != nil {
		r.logger.Error().Err(err).Msg("service notice delivery failed")
		return
	}
	metrics.AlertsRoutedTotal.WithLabelValues(ChannelService).Inc()
}

// LogDeliverer writes routed alerts to the structured log. It is the
// default sink for a headless agent.
type LogDeliverer struct {
	logger zerolog.Logger
}

// NewLogDeliverer creates the log sink.
func NewLogDeliverer() *LogDeliverer {
	return &LogDeliverer{logger: log.WithComponent("alerts")}
}

func (d *LogDeliverer) Deliver(ch Channel, title, body, deepLink string) error {
	ev := d.logger.Info().
		Str("channel", ch.ID).
		Int("importance", ch.Importance).
		Str("title", title)
	if ch.Name != "" {
		ev = ev.Str("channel_name", ch.Name)
	}
	if deepLink != "" {
		ev = ev.Str("link", deepLink)
	}
	ev.Msg(body)
	return nil
}
