package trellis

import (
	"log/slog"
	"time"

	"github.com/trellisdb/trellis/internal/platform"
	"github.com/trellisdb/trellis/pkg/core"
)

// --- Types ---

// Service is the assembled data layer.
type Service = platform.Service

// Session is the authenticated identity a service is bound to.
type Session = core.Session

// Document is one JSON value stored at a hierarchical path.
type Document = core.Document

// BatchOperation is one entry of an ordered atomic batch.
type BatchOperation = core.BatchOperation

// BatchResult is the per-operation outcome of a batch.
type BatchResult = core.BatchResult

// --- Configuration ---

// Option defines a functional option for configuring trellis.
type Option = platform.Option

// WithStore injects a custom store adapter (in-memory, remote, ...).
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithActor sets the identity writes are attributed to.
func WithActor(actor string) Option {
	return platform.WithActor(actor)
}

// WithWorkspace binds the service to a workspace.
func WithWorkspace(workspace string) Option {
	return platform.WithWorkspace(workspace)
}

// WithCacheTTL overrides the cache entry lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return platform.WithCacheTTL(ttl)
}

// WithTreeLimit caps how many documents a tree read may return.
func WithTreeLimit(limit int) Option {
	return platform.WithTreeLimit(limit)
}

// WithMaxAttempts bounds retries of transient store failures.
func WithMaxAttempts(attempts int) Option {
	return platform.WithMaxAttempts(attempts)
}

// WithAttemptTimeout sets the per-attempt deadline.
func WithAttemptTimeout(timeout time.Duration) Option {
	return platform.WithAttemptTimeout(timeout)
}

// WithEventBuffer sets the per-subscriber notification buffer size.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithParallelism bounds concurrent store transactions in recursive
// filesystem operations.
func WithParallelism(n int) Option {
	return platform.WithParallelism(n)
}

// WithoutTracking disables optimistic-update masking.
func WithoutTracking() Option {
	return platform.WithoutTracking()
}

// --- Factory ---

// New creates a trellis Service rooted at the given filestore directory
// (unless WithStore injects another adapter).
func New(root string, opts ...Option) (*Service, error) {
	return platform.New(root, opts...)
}
