package network

import (
	"context"
	"errors"
	"log"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// reconnect dials with exponential backoff until it succeeds, the client
// is closed or the elapsed limit passes
func (c *Client) reconnect() (net.Conn, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = c.cfg.MaxReconnectInterval

	return backoff.Retry(c.ctx, func() (net.Conn, error) {
		conn, err := c.dial(c.ctx)
		if errors.Is(err, ErrClosed) {
			return nil, backoff.Permanent(err)
		}
		return conn, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(c.cfg.MaxReconnectElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Printf("🔄 [network] reconnect failed: %v, retrying in %v", err, next)
		}),
	)
}

// RunKeepalive calls ping every interval while connected, until ctx ends.
// Failures are logged; the receive loop is what notices a dead connection.
func (c *Client) RunKeepalive(ctx context.Context, interval time.Duration, ping func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		if !c.IsConnected() {
			continue
		}
		if err := ping(ctx); err != nil {
			log.Printf("⚠️  [network] keepalive failed: %v", err)
		}
	}
}
