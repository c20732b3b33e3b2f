package platform

import (
	"log/slog"
	"time"

	"github.com/trellisdb/trellis/pkg/core"
)

// options holds the internal configuration for a trellis service.
type options struct {
	store          core.Store
	logger         *slog.Logger
	actor          string
	workspace      string
	cacheTTL       time.Duration
	treeLimit      int
	maxAttempts    int
	attemptTimeout time.Duration
	eventBuffer    int
	parallelism    int
	tracking       bool
}

// Option defines a functional option for configuring a trellis service.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		actor:    "anonymous",
		tracking: true,
	}
}

// WithStore injects a custom store adapter. When set, the default filestore
// adapter is skipped and the root path argument is ignored.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithActor sets the identity writes are attributed to.
func WithActor(actor string) Option {
	return func(o *options) {
		o.actor = actor
	}
}

// WithWorkspace binds the service to a workspace. Required: every operation
// is scoped to exactly one workspace.
func WithWorkspace(workspace string) Option {
	return func(o *options) {
		o.workspace = workspace
	}
}

// WithCacheTTL overrides the cache entry lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithTreeLimit caps how many documents a tree read may return.
func WithTreeLimit(limit int) Option {
	return func(o *options) {
		o.treeLimit = limit
	}
}

// WithMaxAttempts bounds retries of transient store failures.
func WithMaxAttempts(attempts int) Option {
	return func(o *options) {
		o.maxAttempts = attempts
	}
}

// WithAttemptTimeout sets the per-attempt deadline.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.attemptTimeout = timeout
	}
}

// WithEventBuffer sets the per-subscriber notification buffer size.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithParallelism bounds concurrent store transactions in recursive
// filesystem operations.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithoutTracking disables the optimistic-update tracker; reads then always
// reflect confirmed state.
func WithoutTracking() Option {
	return func(o *options) {
		o.tracking = false
	}
}
