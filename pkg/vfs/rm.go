package vfs

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/pathkey"
)

// Rm removes the document at path. When path is a directory (marker or
// inferred from descendants) every descendant is removed first, deepest
// level first, so an interrupted removal never leaves orphans above
// survivors. Removing an absent path is a no-op. Partial failure surfaces
// as TransactionFailed so callers re-run from a known state instead of
// assuming success.
func (f *FS) Rm(ctx context.Context, workspace, path string) error {
	if err := pathkey.Validate(path); err != nil {
		return err
	}
	docs, err := f.client.Scan(ctx, workspace, path)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	byDepth := make(map[int][]string)
	maxDepth, minDepth := 0, -1
	for _, doc := range docs {
		d := pathkey.Depth(doc.Path)
		byDepth[d] = append(byDepth[d], doc.Path)
		if d > maxDepth {
			maxDepth = d
		}
		if minDepth < 0 || d < minDepth {
			minDepth = d
		}
	}

	// Deepest level first; within a level, bounded-parallel chunks.
	for depth := maxDepth; depth >= minDepth; depth-- {
		paths := byDepth[depth]
		if len(paths) == 0 {
			continue
		}
		p := pool.New().WithMaxGoroutines(f.parallel).WithContext(ctx).WithCancelOnError()
		for _, chunk := range chunkPaths(paths, core.MaxTransactItems) {
			p.Go(func(ctx context.Context) error {
				return f.client.Transact(ctx, workspace, nil, chunk)
			})
		}
		if err := p.Wait(); err != nil {
			return core.Wrap(core.KindTransactionFailed, err,
				"removal of "+path+" is incomplete; re-run to finish")
		}
	}
	f.logger.Debug("removed subtree", "workspace", workspace, "path", path, "documents", len(docs))
	return nil
}

// chunkPaths splits paths into slices of at most n entries.
func chunkPaths(paths []string, n int) [][]string {
	var chunks [][]string
	for len(paths) > n {
		chunks = append(chunks, paths[:n])
		paths = paths[n:]
	}
	if len(paths) > 0 {
		chunks = append(chunks, paths)
	}
	return chunks
}
