package client

import (
	"context"
	"sort"

	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/pathkey"
)

// Write stores value at (workspace, path). A nil value writes a tombstone:
// the document exists with its value cleared, which is distinct from
// deleting it. CreatedAt/CreatedBy survive updates; UpdatedAt/UpdatedBy are
// refreshed from the session actor.
func (c *Client) Write(ctx context.Context, workspace, path string, value any) error {
	if err := c.authorize(workspace); err != nil {
		return err
	}
	if err := pathkey.Validate(path); err != nil {
		return err
	}

	doc := core.Document{
		Workspace: workspace,
		Path:      path,
		Value:     value,
		Meta:      c.meta(),
	}
	err := c.withRetry(ctx, "write", func(actx context.Context) error {
		return c.store.Put(actx, doc)
	})
	if err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.InvalidatePath(workspace, path)
	}
	return nil
}

// Delete removes the document at (workspace, path). Deleting an absent
// document is a no-op. Ordinary callers clear values with a tombstone write;
// deletion is how the filesystem emulation removes documents outright.
func (c *Client) Delete(ctx context.Context, workspace, path string) error {
	if err := c.authorize(workspace); err != nil {
		return err
	}
	if err := pathkey.Validate(path); err != nil {
		return err
	}

	err := c.withRetry(ctx, "delete", func(actx context.Context) error {
		return c.store.Delete(actx, workspace, path)
	})
	if err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.InvalidatePath(workspace, path)
	}
	return nil
}

// Transact applies puts and deletes as one atomic write set. The combined
// count must fit the transaction ceiling; either everything commits or the
// store is left exactly as before. Put order is deterministic (sorted by
// path) so failures are reproducible.
func (c *Client) Transact(ctx context.Context, workspace string, puts map[string]any, deletes []string) error {
	if err := c.authorize(workspace); err != nil {
		return err
	}
	total := len(puts) + len(deletes)
	if total == 0 {
		return nil
	}
	if total > core.MaxTransactItems {
		return core.Errorf(core.KindTooManyItems,
			"transaction of %d operations exceeds the %d-item ceiling", total, core.MaxTransactItems)
	}

	paths := make([]string, 0, len(puts))
	for path := range puts {
		if err := pathkey.Validate(path); err != nil {
			return err
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range deletes {
		if err := pathkey.Validate(path); err != nil {
			return err
		}
	}

	ops := make([]core.TxOp, 0, total)
	meta := c.meta()
	for _, path := range paths {
		ops = append(ops, core.TxOp{Put: &core.Document{
			Workspace: workspace,
			Path:      path,
			Value:     puts[path],
			Meta:      meta,
		}})
	}
	for _, path := range deletes {
		ops = append(ops, core.TxOp{Delete: path})
	}

	err := c.withRetry(ctx, "transact", func(actx context.Context) error {
		return c.store.TransactWrite(actx, workspace, ops)
	})
	if err != nil {
		return err
	}
	if c.cache != nil {
		for _, path := range paths {
			c.cache.InvalidatePath(workspace, path)
		}
		for _, path := range deletes {
			c.cache.InvalidatePath(workspace, path)
		}
	}
	return nil
}
