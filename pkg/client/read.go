package client

import (
	"context"

	"github.com/trellisdb/trellis/pkg/cache"
	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/pathkey"
)

// Read returns the value stored at (workspace, path). An absent document and
// a tombstoned one both yield (nil, nil); use Exists to tell them apart.
// Pending optimistic updates mask the stored value. A canceled read never
// populates the cache.
func (c *Client) Read(ctx context.Context, workspace, path string) (any, error) {
	if err := c.authorize(workspace); err != nil {
		return nil, err
	}
	if err := pathkey.Validate(path); err != nil {
		return nil, err
	}

	if c.tracker != nil {
		if v, ok := c.tracker.Pending(workspace, path); ok {
			return v, nil
		}
	}
	if c.cache != nil {
		if v, ok := c.cache.Get(workspace, cache.DocKey(path)); ok {
			return v, nil
		}
	}

	var value any
	err := c.withRetry(ctx, "read", func(actx context.Context) error {
		doc, err := c.store.Get(actx, workspace, path)
		if err != nil {
			return err
		}
		if doc != nil {
			value = doc.Value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if c.cache != nil && ctx.Err() == nil {
		c.cache.Set(workspace, cache.DocKey(path), value)
	}
	return value, nil
}

// ReadWithDefault reads a path and substitutes def when the document is
// absent or tombstoned. The boolean reports whether the default was used.
func (c *Client) ReadWithDefault(ctx context.Context, workspace, path string, def any) (any, bool, error) {
	value, err := c.Read(ctx, workspace, path)
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		return def, true, nil
	}
	return value, false, nil
}

// ReadTree returns full-path → value for every document under prefix at a
// segment boundary ("/ab" never matches prefix "/a"). Tombstoned documents
// are excluded. When the match count exceeds the configured ceiling the read
// fails with TooManyItems rather than silently truncating.
func (c *Client) ReadTree(ctx context.Context, workspace, prefix string) (map[string]any, error) {
	if err := c.authorize(workspace); err != nil {
		return nil, err
	}
	if err := pathkey.ValidatePrefix(prefix); err != nil {
		return nil, err
	}

	key := cache.TreeKey(prefix, "")
	if c.cache != nil {
		if v, ok := c.cache.Get(workspace, key); ok {
			if tree, ok := v.(map[string]any); ok {
				return copyTree(tree), nil
			}
		}
	}

	docs, err := c.scan(ctx, workspace, prefix)
	if err != nil {
		return nil, err
	}
	if len(docs) > c.treeLimit {
		return nil, core.Errorf(core.KindTooManyItems,
			"tree read matched %d documents, limit is %d", len(docs), c.treeLimit).At(workspace, prefix)
	}

	tree := make(map[string]any, len(docs))
	for _, doc := range docs {
		if doc.Tombstone() {
			continue
		}
		tree[doc.Path] = doc.Value
	}
	if c.cache != nil && ctx.Err() == nil {
		c.cache.Set(workspace, key, copyTree(tree))
	}
	return tree, nil
}

// Exists reports whether a document is stored directly at path, or at least
// one document lives below it. Tombstones count: the document exists even
// though its value was cleared.
func (c *Client) Exists(ctx context.Context, workspace, path string) (bool, error) {
	if err := c.authorize(workspace); err != nil {
		return false, err
	}
	if err := pathkey.ValidatePrefix(path); err != nil {
		return false, err
	}
	if path == "/" {
		return true, nil
	}

	if c.cache != nil {
		if v, ok := c.cache.Get(workspace, cache.ExistsKey(path)); ok {
			if b, ok := v.(bool); ok {
				return b, nil
			}
		}
	}

	var found bool
	err := c.withRetry(ctx, "exists", func(actx context.Context) error {
		doc, err := c.store.Get(actx, workspace, path)
		if err != nil {
			return err
		}
		if doc != nil {
			found = true
			return nil
		}
		docs, err := c.store.QueryByPrefix(actx, workspace, path)
		if err != nil {
			return err
		}
		found = len(docs) > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if c.cache != nil && ctx.Err() == nil {
		c.cache.Set(workspace, cache.ExistsKey(path), found)
	}
	return found, nil
}

// Scan returns every document under prefix, tombstones included, bypassing
// both the cache and the tree ceiling. It is the plumbing the filesystem
// emulation builds rm/mv write sets from; ordinary readers want ReadTree.
func (c *Client) Scan(ctx context.Context, workspace, prefix string) ([]core.Document, error) {
	if err := c.authorize(workspace); err != nil {
		return nil, err
	}
	if err := pathkey.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	return c.scan(ctx, workspace, prefix)
}

func (c *Client) scan(ctx context.Context, workspace, prefix string) ([]core.Document, error) {
	var docs []core.Document
	err := c.withRetry(ctx, "scan", func(actx context.Context) error {
		var err error
		docs, err = c.store.QueryByPrefix(actx, workspace, prefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func copyTree(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		out[k] = v
	}
	return out
}
