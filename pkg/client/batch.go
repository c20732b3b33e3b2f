package client

import (
	"context"

	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/pathkey"
)

// Batch executes an ordered list of 1..25 operations scoped to one
// workspace. All writes commit atomically or none do; reads observe the
// state as it was before the batch. Any validation failure rejects the whole
// batch before the store is contacted, and callers must treat a failed batch
// as a complete no-op.
func (c *Client) Batch(ctx context.Context, workspace string, ops []core.BatchOperation) ([]core.BatchResult, error) {
	if err := c.authorize(workspace); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, core.Errorf(core.KindValidation, "batch is empty")
	}
	if len(ops) > core.MaxTransactItems {
		return nil, core.Errorf(core.KindTooManyItems,
			"batch of %d operations exceeds the %d-item ceiling", len(ops), core.MaxTransactItems)
	}
	for i, op := range ops {
		switch op.Type {
		case core.BatchRead, core.BatchWrite:
		default:
			return nil, core.Errorf(core.KindValidation, "batch operation %d has unknown type %q", i, op.Type)
		}
		if err := pathkey.Validate(op.Path); err != nil {
			return nil, err
		}
	}

	// Reads first, against pre-batch state.
	results := make([]core.BatchResult, len(ops))
	for i, op := range ops {
		if op.Type != core.BatchRead {
			continue
		}
		var value any
		err := c.withRetry(ctx, "batch read", func(actx context.Context) error {
			doc, err := c.store.Get(actx, workspace, op.Path)
			if err != nil {
				return err
			}
			value = nil
			if doc != nil {
				value = doc.Value
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		res := core.BatchResult{Path: op.Path, Value: value}
		if value == nil && op.Default != nil {
			res.Value = op.Default
			res.UsedDefault = true
		}
		results[i] = res
	}

	// Then every write in one atomic transaction.
	var txOps []core.TxOp
	meta := c.meta()
	for _, op := range ops {
		if op.Type != core.BatchWrite {
			continue
		}
		txOps = append(txOps, core.TxOp{Put: &core.Document{
			Workspace: workspace,
			Path:      op.Path,
			Value:     op.Value,
			Meta:      meta,
		}})
	}
	if len(txOps) > 0 {
		err := c.withRetry(ctx, "batch write", func(actx context.Context) error {
			return c.store.TransactWrite(actx, workspace, txOps)
		})
		if err != nil {
			return nil, err
		}
	}

	for i, op := range ops {
		if op.Type != core.BatchWrite {
			continue
		}
		results[i] = core.BatchResult{Path: op.Path, Written: true}
		if c.cache != nil {
			c.cache.InvalidatePath(workspace, op.Path)
		}
	}
	return results, nil
}
