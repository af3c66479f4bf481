package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/longbark/outpost/pkg/log"
	"github.com/longbark/outpost/pkg/metrics"
	"github.com/longbark/outpost/pkg/types"
)

// State is the lifecycle state of the feed connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateStreaming    State = "streaming"
	StateStopped      State = "stopped"
)

// Handler consumes message events as they arrive on the feed.
type Handler interface {
	HandleAlert(ctx context.Context, ev *types.AlertEvent)
}

const (
	defaultReconnectDelay = 5 * time.Second

	// maxLineSize bounds a single feed line. Alert payloads are small;
	// anything past this is a broken feed, not a real alert.
	maxLineSize = 1 << 20
)

// Client holds a long-lived subscription to a ntfy-style topic: a GET
// of {server}/{topic}/json that the server keeps open, writing one JSON
// event per line. Lost connections reconnect after a fixed delay until
// the context is cancelled.
type Client struct {
	serverURL string
	topic     string
	httpc     *http.Client
	handler   Handler
	delay     time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	state   State
	attempt int
}

// Option adjusts client construction.
type Option func(*Client)

// WithReconnectDelay overrides the fixed delay between reconnect
// attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithHTTPClient overrides the HTTP client. The default carries no
// overall timeout: the subscription request is meant to stay open, and
// cancellation comes from the context.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// NewClient creates a feed client for one topic.
func NewClient(serverURL, topic string, handler Handler, opts ...Option) *Client {
	c := &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		topic:     topic,
		httpc:     &http.Client{},
		handler:   handler,
		delay:     defaultReconnectDelay,
		logger:    log.WithTopic(topic),
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state and the reconnect attempt
// count since the last established stream.
func (c *Client) State() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.attempt
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	switch s {
	case StateStreaming:
		c.attempt = 0
	case StateConnecting:
		c.attempt++
	}
}

// Run subscribes and consumes the feed until ctx is cancelled. It
// blocks; callers run it in a goroutine. Every exit path other than
// cancellation leads back to a reconnect after the fixed delay.
func (c *Client) Run(ctx context.Context) {
	defer c.setState(StateStopped)

	for {
		c.setState(StateConnecting)
		if err := c.subscribe(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn().Err(err).Dur("retry_in", c.delay).Msg("feed connection lost")
			metrics.StreamReconnectsTotal.Inc()
		}
		c.setState(StateDisconnected)

		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return
		}
	}
}

// subscribe opens one connection and consumes lines until it breaks.
func (c *Client) subscribe(ctx context.Context) error {
	u := fmt.Sprintf("%s/%s/json", c.serverURL, c.topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	c.setState(StateStreaming)
	metrics.StreamConnectsTotal.Inc()
	c.logger.Info().Str("url", u).Msg("feed connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var ev types.AlertEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			// A bad line never tears down the stream.
			metrics.StreamParseFailuresTotal.Inc()
			c.logger.Warn().Err(err).Msg("discarding unparseable feed line")
			continue
		}

		if ev.Event != types.AlertEventMessage {
			// Keepalives and open markers carry no alert payload.
			continue
		}
		c.handler.HandleAlert(ctx, &ev)
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("feed closed by server")
}
