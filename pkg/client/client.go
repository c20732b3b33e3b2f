// Package client implements the path-addressed data client: reads, writes,
// tree reads, and bounded atomic batches over a flat document store, with a
// read cache, retry-with-backoff, and optimistic-update masking.
package client

import (
	"log/slog"
	"time"

	"github.com/trellisdb/trellis/pkg/cache"
	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/pathkey"
	"github.com/trellisdb/trellis/pkg/syncstate"
)

const (
	// DefaultMaxAttempts bounds retries of transient failures (first try
	// included).
	DefaultMaxAttempts = 3
	// DefaultAttemptTimeout is the per-attempt deadline; each retry gets a
	// fresh one, independent of backoff delay.
	DefaultAttemptTimeout = 5 * time.Second
	// DefaultInitialBackoff seeds the exponential backoff between attempts.
	DefaultInitialBackoff = 100 * time.Millisecond
	// DefaultMaxBackoff caps the backoff between attempts.
	DefaultMaxBackoff = 2 * time.Second
	// DefaultTreeLimit caps how many documents a tree read may return before
	// failing with TooManyItems instead of silently truncating.
	DefaultTreeLimit = 500
)

// Config holds the collaborators and tuning of a Client. Store and Session
// are required; everything else has defaults.
type Config struct {
	Store   core.Store
	Session core.Session
	Cache   *cache.Cache       // optional read cache
	Tracker *syncstate.Tracker // optional optimistic-update mask
	Logger  *slog.Logger

	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	TreeLimit      int
}

// Client is the path-addressed document client. All methods are safe for
// concurrent use; the client holds no per-call state.
type Client struct {
	store   core.Store
	session core.Session
	cache   *cache.Cache
	tracker *syncstate.Tracker
	logger  *slog.Logger

	maxAttempts    int
	attemptTimeout time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration
	treeLimit      int

	now func() time.Time
}

// New validates the configuration and builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, core.Errorf(core.KindValidation, "client requires a store")
	}
	if err := pathkey.ValidateWorkspace(cfg.Session.Workspace); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		store:          cfg.Store,
		session:        cfg.Session,
		cache:          cfg.Cache,
		tracker:        cfg.Tracker,
		logger:         logger,
		maxAttempts:    cfg.MaxAttempts,
		attemptTimeout: cfg.AttemptTimeout,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		treeLimit:      cfg.TreeLimit,
		now:            time.Now,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.attemptTimeout <= 0 {
		c.attemptTimeout = DefaultAttemptTimeout
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = DefaultInitialBackoff
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = DefaultMaxBackoff
	}
	if c.treeLimit <= 0 {
		c.treeLimit = DefaultTreeLimit
	}
	return c, nil
}

// Session returns the authenticated identity the client is bound to.
func (c *Client) Session() core.Session {
	return c.session
}

// authorize gates every call: the requested workspace must match the
// session's, never silently substituted.
func (c *Client) authorize(workspace string) error {
	return c.session.Authorize(workspace)
}

// meta stamps audit metadata for a write attributed to the session actor.
// Store adapters preserve existing Created* fields on update.
func (c *Client) meta() core.Meta {
	now := c.now()
	return core.Meta{
		CreatedAt: now,
		CreatedBy: c.session.Actor,
		UpdatedAt: now,
		UpdatedBy: c.session.Actor,
	}
}
