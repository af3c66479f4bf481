// Package netcheck provides the connectivity signal the sync scheduler
// consults before starting a run.
package netcheck

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/longbark/outpost/pkg/log"
)

// Checker reports whether the remote endpoint is reachable.
type Checker interface {
	Online(ctx context.Context) bool
}

// DialChecker probes reachability with a TCP dial against the API
// host. A failed dial means offline; no request is sent.
type DialChecker struct {
	addr    string
	timeout time.Duration
}

// NewDialChecker builds a checker for the given base URL. The port
// defaults to 443 for https and 80 otherwise.
func NewDialChecker(baseURL string) (*DialChecker, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return &DialChecker{
		addr:    net.JoinHostPort(host, port),
		timeout: 5 * time.Second,
	}, nil
}

func (c *DialChecker) Online(ctx context.Context) bool {
	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		logger := log.WithComponent("netcheck")
		logger.Debug().Err(err).Str("addr", c.addr).Msg("connectivity probe failed")
		return false
	}
	conn.Close()
	return true
}

// Always reports a fixed connectivity state, used when the gate is
// disabled by configuration.
type Always bool

func (a Always) Online(context.Context) bool { return bool(a) }
