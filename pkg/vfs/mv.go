package vfs

import (
	"context"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/pathkey"
)

// Mv moves the document (or subtree) at src to dst. The complete write set
// is built first: when it fits the transaction ceiling the move is a single
// atomic batch, so no reader can observe a half-moved state. Larger moves
// copy everything before deleting anything and roll partial copies back on
// failure, so at every moment at least one complete copy exists.
func (f *FS) Mv(ctx context.Context, workspace, src, dst string) error {
	if err := pathkey.Validate(src); err != nil {
		return err
	}
	if err := pathkey.Validate(dst); err != nil {
		return err
	}
	if src == dst {
		return core.Errorf(core.KindValidation, "source and target are the same path").At(workspace, src)
	}
	if pathkey.MatchesPrefix(dst, src) {
		return core.Errorf(core.KindValidation, "cannot move %q into its own subtree %q", src, dst)
	}

	docs, err := f.client.Scan(ctx, workspace, src)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return core.Errorf(core.KindNotFound, "source does not exist").At(workspace, src)
	}

	puts := make(map[string]any, len(docs))
	deletes := make([]string, 0, len(docs))
	for _, doc := range docs {
		target := dst + doc.Path[len(src):]
		puts[target] = doc.Value
		deletes = append(deletes, doc.Path)
	}

	if len(puts)+len(deletes) <= core.MaxTransactItems {
		if err := f.client.Transact(ctx, workspace, puts, deletes); err != nil {
			return core.Wrap(core.KindTransactionFailed, err, "move of "+src+" rejected; nothing changed")
		}
		return nil
	}
	return f.moveLarge(ctx, workspace, src, puts, deletes)
}

// moveLarge is the copy-then-delete fallback for write sets beyond the
// transaction ceiling. The copy phase completes fully before any delete
// begins; a copy failure rolls back the targets already written.
func (f *FS) moveLarge(ctx context.Context, workspace, src string, puts map[string]any, deletes []string) error {
	targets := make([]string, 0, len(puts))
	for path := range puts {
		targets = append(targets, path)
	}
	sort.Strings(targets)

	var mu sync.Mutex
	var copied []string

	p := pool.New().WithMaxGoroutines(f.parallel).WithContext(ctx).WithCancelOnError()
	for _, chunk := range chunkPaths(targets, core.MaxTransactItems) {
		p.Go(func(ctx context.Context) error {
			chunkPuts := make(map[string]any, len(chunk))
			for _, path := range chunk {
				chunkPuts[path] = puts[path]
			}
			if err := f.client.Transact(ctx, workspace, chunkPuts, nil); err != nil {
				return err
			}
			mu.Lock()
			copied = append(copied, chunk...)
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		f.rollbackCopies(ctx, workspace, copied)
		return core.Wrap(core.KindTransactionFailed, err,
			"move of "+src+" aborted during copy; partial targets rolled back")
	}

	// Source removal, deepest first like Rm.
	sort.Slice(deletes, func(i, j int) bool {
		return pathkey.Depth(deletes[i]) > pathkey.Depth(deletes[j])
	})
	for _, chunk := range chunkPaths(deletes, core.MaxTransactItems) {
		if err := f.client.Transact(ctx, workspace, nil, chunk); err != nil {
			return core.Wrap(core.KindTransactionFailed, err,
				"move of "+src+" copied but source removal is incomplete; re-run to finish")
		}
	}
	return nil
}

// rollbackCopies best-effort deletes targets written by an aborted copy
// phase. Errors are logged, not surfaced: the caller already has the
// original failure.
func (f *FS) rollbackCopies(ctx context.Context, workspace string, copied []string) {
	// The pool's context is canceled by the failure that got us here; the
	// rollback itself must still run.
	ctx = context.WithoutCancel(ctx)
	for _, chunk := range chunkPaths(copied, core.MaxTransactItems) {
		if err := f.client.Transact(ctx, workspace, nil, chunk); err != nil {
			f.logger.Error("rollback of partial copy failed", "workspace", workspace, "error", err)
		}
	}
}
