package client

import (
	"github.com/aretw0/introspection"
)

// ClientState exposes internal state for observability.
type ClientState struct {
	Workspace      string `json:"workspace"`
	Actor          string `json:"actor"`
	MaxAttempts    int    `json:"max_attempts"`
	AttemptTimeout string `json:"attempt_timeout"`
	TreeLimit      int    `json:"tree_limit"`
	CacheEntries   int    `json:"cache_entries,omitempty"`
	Masked         int    `json:"masked_paths,omitempty"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	s := ClientState{
		Workspace:      c.session.Workspace,
		Actor:          c.session.Actor,
		MaxAttempts:    c.maxAttempts,
		AttemptTimeout: c.attemptTimeout.String(),
		TreeLimit:      c.treeLimit,
	}
	if c.cache != nil {
		s.CacheEntries = c.cache.Len()
	}
	if c.tracker != nil {
		s.Masked = c.tracker.PendingCount(c.session.Workspace)
	}
	return s
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "data-client"
}

var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
