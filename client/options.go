package client

// Functional options that configure the Client during construction.

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/storynest/storynest/client/internal/shardqueue"
)

// Option configures a Client during construction in New.
//
// Options are applied before the authorization and debug transports are
// installed, so WithHTTPClient may be combined freely with the others.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client Timeout used by the SDK.
//
// Prefer per-request context deadlines where possible; this timeout bounds
// the total time spent on a single HTTP request. The value must be greater
// than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithDebugLogging logs every request and response at debug level when
// enabled is true. Dumps include bodies and the Authorization header, so
// keep it out of production.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		c.debug = c.debug || enabled
		return nil
	}
}

// WithAPIKey sets the bearer credential used while no session token is set.
func WithAPIKey(key string) Option {
	return func(c *Client) error {
		c.apiKey = key
		return nil
	}
}

// WithCacheTTL sets how long fetched kids and stories are served from cache.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("cache ttl must be > 0")
		}
		c.ttl = d
		return nil
	}
}

// WithClock replaces time.Now for cache expiry and the parent unlock window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		c.now = now
		return nil
	}
}

// WithLogger sets the logger used by the client and its repositories.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithHTTPClient uses hc for all requests. The client is copied, so hc
// itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client must not be nil")
		}
		cp := *hc
		c.http = &cp
		return nil
	}
}

// WithGenerationErrorHandler is called once for every background generation
// that finally fails.
func WithGenerationErrorHandler(fn func(kidID string, err error)) Option {
	return func(c *Client) error {
		c.onGenerationError = fn
		return nil
	}
}

// WithParentUnlockWindow sets how long a correct parent PIN keeps the
// parent area open.
func WithParentUnlockWindow(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("parent unlock window must be > 0")
		}
		c.unlockWindow = d
		return nil
	}
}

// WithQueueConfig tunes the background generation queue.
func WithQueueConfig(cfg shardqueue.Config) Option {
	return func(c *Client) error {
		c.queue = cfg
		return nil
	}
}
