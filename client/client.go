// Package client is the storynest SDK: cached access to kid profiles and
// stories, the signed-in session and background story generation.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/storynest/storynest/client/internal/api"
	"github.com/storynest/storynest/client/internal/job"
	"github.com/storynest/storynest/client/internal/repository"
	"github.com/storynest/storynest/client/internal/shardqueue"
	"github.com/storynest/storynest/client/internal/types"
	"github.com/storynest/storynest/devmode"
)

// Client is safe for concurrent use. Call Close to drain the generation queue.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	debug   bool
	log     zerolog.Logger

	ttl               time.Duration
	now               func() time.Time
	unlockWindow      time.Duration
	queue             shardqueue.Config
	onGenerationError func(kidID string, err error)

	exec    executor
	kids    *repository.KidRepository
	stories *repository.StoryRepository
	session *Session

	closed atomic.Bool
}

// New constructs a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("baseURL cannot be empty")
	}

	c := &Client{
		baseURL:      baseURL,
		http:         &http.Client{Timeout: 30 * time.Second},
		log:          log.Logger.With().Str("component", "storynest-client").Logger(),
		ttl:          repository.DefaultTTL,
		now:          time.Now,
		unlockWindow: DefaultParentUnlockWindow,
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	c.installTransport()

	c.session = newSession(c.now, c.unlockWindow, c.ClearCaches)
	tr := api.NewTransport(c.baseURL, c.http, c.log)
	ro := repository.Options{TTL: c.ttl, Now: c.now, Logger: c.log}
	c.kids = repository.NewKids(tr, ro)
	c.stories = repository.NewStories(tr, ro)

	qc := c.queue
	qc.ErrorHandler = c.generationFailed
	qc.Logger = &c.log
	c.exec = shardqueue.NewShardExecutor(qc)
	return c, nil
}

// NewWithDevMode constructs a Client that authenticates with the shared
// development key accepted by storynest-fakeapi.
func NewWithDevMode(baseURL string, opts ...Option) (*Client, error) {
	return New(baseURL, append([]Option{WithAPIKey(devmode.APIKey)}, opts...)...)
}

// NewFromConfig constructs a Client from environment configuration. Extra
// options are applied after those derived from cfg.
func NewFromConfig(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(cfg.BaseURL, append(cfg.Options(), opts...)...)
}

// installTransport wraps the HTTP transport with request logging (when
// enabled) underneath the authorization header.
func (c *Client) installTransport() {
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if c.debug {
		base = &debugTransport{base: base, log: c.log}
	}
	c.http.Transport = &authTransport{base: base, bearer: func() string {
		return c.session.bearer(c.apiKey)
	}}
}

// authTransport sets "Authorization: Bearer" from the session token, or the
// API key while signed out. Nothing is sent when neither is set.
type authTransport struct {
	base   http.RoundTripper
	bearer func() string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok := t.bearer()
	if tok == "" {
		return t.base.RoundTrip(req)
	}
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+tok)
	return t.base.RoundTrip(cloned)
}

// Kids returns the kid profile repository.
func (c *Client) Kids() *KidRepository { return c.kids }

// Stories returns the story repository.
func (c *Client) Stories() *StoryRepository { return c.stories }

// Session returns the signed-in state.
func (c *Client) Session() *Session { return c.session }

// DeleteKid deletes a kid. The backend deletes the kid's stories with it, so
// every cached story of that kid and every pending list go too.
func (c *Client) DeleteKid(ctx context.Context, kidID string) error {
	if err := c.kids.Delete(ctx, kidID); err != nil {
		return err
	}
	c.stories.ClearKidCache(kidID)
	return nil
}

// ClearCaches drops every cached kid and story.
func (c *Client) ClearCaches() {
	c.kids.ClearCache()
	c.stories.ClearCache()
}

// SubmitGeneration queues a story generation for req.KidID and returns once
// it is accepted. Generations for the same kid run in submission order;
// recoverable failures are retried and final failures go to the handler set
// by WithGenerationErrorHandler.
//
// The job outlives ctx: canceling ctx after SubmitGeneration returns does not
// abort the generation.
func (c *Client) SubmitGeneration(ctx context.Context, req GenerateStoryRequest) (*EnqueueAck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateGenerateStory(req); err != nil {
		return nil, err
	}
	if c.closed.Load() {
		return nil, ErrClosed
	}

	requestID := uuid.NewString()
	l := c.log.With().Str("kid_id", req.KidID).Str("request_id", requestID).Logger()
	gen := job.Generation(req, c.stories.Generate, func(st types.Story) {
		l.Info().Str("story_id", st.ID).Msg("story generated")
	})

	if err := c.exec.Submit(context.WithoutCancel(ctx), req.KidID, gen); err != nil {
		if errors.Is(err, shardqueue.ErrQueueFull) {
			return nil, fmt.Errorf("%w: %v", ErrBackPressure, err)
		}
		return nil, err
	}
	generationsEnqueuedTotal.WithLabelValues(job.ShardLabel(req.KidID)).Inc()
	l.Debug().Msg("generation enqueued")
	return &EnqueueAck{KidID: req.KidID, RequestID: requestID, Status: "enqueued"}, nil
}

// AwaitGenerations blocks until every generation submitted for kidID before
// the call has finished, successfully or not.
func (c *Client) AwaitGenerations(ctx context.Context, kidID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(kidID, "kidId"); err != nil {
		return err
	}
	return c.exec.Barrier(ctx, kidID)
}

func (c *Client) generationFailed(kidID string, err error) {
	generationsFailedTotal.WithLabelValues(job.ShardLabel(kidID)).Inc()
	if c.onGenerationError != nil {
		c.onGenerationError(kidID, err)
	}
}

// Close drains the generation queue. Safe to call multiple times.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.exec.Stop()
	return nil
}
