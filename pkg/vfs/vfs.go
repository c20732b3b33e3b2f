// Package vfs emulates directory-style filesystem semantics (mkdir, rm, ls,
// exists, mv) over the flat path-addressed data client. Directories are not
// a store concept: they are derived from descendant-key existence plus a
// reserved marker document, so the hierarchy can never diverge from the data.
package vfs

import (
	"context"
	"log/slog"
	"sort"

	"github.com/trellisdb/trellis/pkg/cache"
	"github.com/trellisdb/trellis/pkg/client"
	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/pathkey"
)

const (
	markerKey = "__trellis__"
	markerDir = "directory"
)

// DefaultParallelism bounds how many store transactions the recursive
// operations run concurrently.
const DefaultParallelism = 4

// Marker returns the reserved sentinel value a directory document holds.
// It is distinguishable from any legitimate user value via IsMarker.
func Marker() map[string]any {
	return map[string]any{markerKey: markerDir}
}

// IsMarker reports whether a value is the directory sentinel.
func IsMarker(v any) bool {
	m, ok := v.(map[string]any)
	return ok && m[markerKey] == markerDir
}

// Config holds the collaborators of the filesystem emulation. Client is
// required; Cache is the same explicit cache component the client uses and
// may be nil.
type Config struct {
	Client      *client.Client
	Cache       *cache.Cache
	Logger      *slog.Logger
	Parallelism int
}

// FS is the filesystem emulation. Safe for concurrent use.
type FS struct {
	client   *client.Client
	cache    *cache.Cache
	logger   *slog.Logger
	parallel int
}

// New builds the filesystem emulation over a data client.
func New(cfg Config) (*FS, error) {
	if cfg.Client == nil {
		return nil, core.Errorf(core.KindValidation, "vfs requires a data client")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	parallel := cfg.Parallelism
	if parallel <= 0 {
		parallel = DefaultParallelism
	}
	return &FS{
		client:   cfg.Client,
		cache:    cfg.Cache,
		logger:   logger,
		parallel: parallel,
	}, nil
}

// Exists reports whether a document is stored directly at path or at least
// one document lives below it.
func (f *FS) Exists(ctx context.Context, workspace, path string) (bool, error) {
	return f.client.Exists(ctx, workspace, path)
}

// Read returns the value at path. Reading a directory yields its marker.
func (f *FS) Read(ctx context.Context, workspace, path string) (any, error) {
	return f.client.Read(ctx, workspace, path)
}

// Write stores a value at path.
func (f *FS) Write(ctx context.Context, workspace, path string, value any) error {
	return f.client.Write(ctx, workspace, path, value)
}

// Mkdir writes the directory marker at path. Creating a directory that
// already exists is a no-op, not an error; a path occupied by a regular
// value is rejected.
func (f *FS) Mkdir(ctx context.Context, workspace, path string) error {
	existing, err := f.client.Read(ctx, workspace, path)
	if err != nil {
		return err
	}
	if IsMarker(existing) {
		return nil
	}
	if existing != nil {
		return core.Errorf(core.KindValidation, "path holds a value, not a directory").At(workspace, path)
	}
	return f.client.Write(ctx, workspace, path, Marker())
}

// Ls lists the distinct immediate child names under path, sorted.
// Tombstoned leaves are excluded; subdirectories appear by name.
func (f *FS) Ls(ctx context.Context, workspace, path string) ([]string, error) {
	if err := pathkey.ValidatePrefix(path); err != nil {
		return nil, err
	}
	if f.cache != nil {
		if v, ok := f.cache.Get(workspace, cache.LsKey(path)); ok {
			if names, ok := v.([]string); ok {
				return append([]string(nil), names...), nil
			}
		}
	}

	tree, err := f.client.ReadTree(ctx, workspace, path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for docPath := range tree {
		if name, ok := pathkey.ChildName(docPath, path); ok {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	if f.cache != nil && ctx.Err() == nil {
		f.cache.Set(workspace, cache.LsKey(path), append([]string(nil), names...))
	}
	return names, nil
}
