// Package cache provides the in-memory read cache of the data layer: TTL
// expiry as a backstop, explicit path/pattern invalidation as the rule.
package cache

import (
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/introspection"
	gocache "github.com/patrickmn/go-cache"

	"github.com/trellisdb/trellis/pkg/pathkey"
)

// DefaultTTL bounds how long an entry may be served without revalidation.
// Mutations never rely on it; every committed command invalidates explicitly.
const DefaultTTL = 30 * time.Second

// Key namespaces. A cache key is "<workspace>#<namespace><path>" so that
// exact lookups, listing entries, and tree-query entries can be invalidated
// independently.
const (
	nsDoc    = "doc:"
	nsExists = "exists:"
	nsLs     = "ls:"
	nsTree   = "tree:"
)

// DocKey is the cache key for a single-document read.
func DocKey(path string) string { return nsDoc + path }

// ExistsKey is the cache key for an existence check.
func ExistsKey(path string) string { return nsExists + path }

// LsKey is the cache key for a directory listing.
func LsKey(path string) string { return nsLs + path }

// TreeKey is the cache key for a tree read; query distinguishes filtered
// variants of the same prefix.
func TreeKey(prefix, query string) string {
	if query == "" {
		return nsTree + prefix
	}
	return nsTree + prefix + "?" + query
}

// Cache is a workspace-qualified TTL cache. It is an explicit component
// injected into the data client and filesystem emulation, never ambient
// state, so tests can isolate instances.
type Cache struct {
	ttl   time.Duration
	store *gocache.Cache
}

// New creates a cache with the given TTL. Zero or negative falls back to
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:   ttl,
		store: gocache.New(ttl, 2*ttl),
	}
}

func compose(workspace, key string) string {
	return workspace + pathkey.Separator + key
}

// Get returns the cached value for (workspace, key). Entries older than the
// TTL are never served.
func (c *Cache) Get(workspace, key string) (any, bool) {
	return c.store.Get(compose(workspace, key))
}

// Set stores a value under (workspace, key) with the configured TTL.
func (c *Cache) Set(workspace, key string, value any) {
	c.store.Set(compose(workspace, key), value, gocache.DefaultExpiration)
}

// Delete removes the exact entry for (workspace, key).
func (c *Cache) Delete(workspace, key string) {
	c.store.Delete(compose(workspace, key))
}

// InvalidatePath removes the document, existence, and listing entries stored
// directly at path, the existence entries of every ancestor (a mutation at
// path can create or dissolve the implicit directories above it), plus every
// tree-query and listing entry whose prefix covers path at a segment
// boundary. TTL expiry never substitutes for this.
func (c *Cache) InvalidatePath(workspace, path string) {
	c.store.Delete(compose(workspace, DocKey(path)))
	c.store.Delete(compose(workspace, ExistsKey(path)))
	c.store.Delete(compose(workspace, LsKey(path)))

	for p := path; p != "/"; {
		p = pathkey.Parent(p)
		c.store.Delete(compose(workspace, ExistsKey(p)))
	}

	wsPrefix := workspace + pathkey.Separator
	for k := range c.store.Items() {
		rest, ok := strings.CutPrefix(k, wsPrefix)
		if !ok {
			continue
		}
		var scope string
		switch {
		case strings.HasPrefix(rest, nsTree):
			scope = strings.TrimPrefix(rest, nsTree)
			if i := strings.Index(scope, "?"); i >= 0 {
				scope = scope[:i]
			}
		case strings.HasPrefix(rest, nsLs):
			scope = strings.TrimPrefix(rest, nsLs)
		default:
			continue
		}
		if pathkey.MatchesPrefix(path, scope) {
			c.store.Delete(k)
		}
	}
}

// InvalidatePattern removes every entry in the workspace whose key (with its
// namespace stripped) matches the regular expression.
func (c *Cache) InvalidatePattern(workspace string, re *regexp.Regexp) {
	wsPrefix := workspace + pathkey.Separator
	for k := range c.store.Items() {
		rest, ok := strings.CutPrefix(k, wsPrefix)
		if !ok {
			continue
		}
		if i := strings.Index(rest, ":"); i >= 0 {
			rest = rest[i+1:]
		}
		if re.MatchString(rest) {
			c.store.Delete(k)
		}
	}
}

// Flush drops every entry belonging to the workspace.
func (c *Cache) Flush(workspace string) {
	wsPrefix := workspace + pathkey.Separator
	for k := range c.store.Items() {
		if strings.HasPrefix(k, wsPrefix) {
			c.store.Delete(k)
		}
	}
}

// Len reports the number of live entries across all workspaces.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// TTL reports the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// State implements introspection.Introspectable.
func (c *Cache) State() any {
	return struct {
		TTL     string `json:"ttl"`
		Entries int    `json:"entries"`
	}{
		TTL:     c.ttl.String(),
		Entries: c.store.ItemCount(),
	}
}

// ComponentType implements introspection.Component.
func (c *Cache) ComponentType() string {
	return "cache"
}

var _ introspection.Introspectable = (*Cache)(nil)
var _ introspection.Component = (*Cache)(nil)
