// Package filestore implements the flat document store port on the local
// filesystem: one JSON file per document, named by its escaped path inside a
// workspace directory. Writes are atomic (temp file + rename) and an
// fsnotify watcher reports external mutations so callers can invalidate
// their caches.
package filestore

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/pathkey"
)

const docExt = ".json"

// Config holds the configuration for the filestore adapter.
type Config struct {
	Root   string
	Logger *slog.Logger
}

// Store is a file-backed flat document store. One process owns the root at
// a time for write consistency; external edits are surfaced through Watch.
type Store struct {
	root   string
	logger *slog.Logger

	mu sync.RWMutex // serializes multi-file transactions against writes

	stateMu       sync.RWMutex
	watcherActive bool
}

// New creates the store, ensuring the root directory exists.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, core.Errorf(core.KindValidation, "filestore requires a root directory")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(cfg.Root, 0755); err != nil {
		return nil, core.Wrap(core.KindUnavailable, err, "failed to create store root")
	}
	return &Store{root: cfg.Root, logger: logger}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// fileFor maps (workspace, path) to the flat filename holding the document.
// Escaping keeps the store flat: "/a/b" and "/a" are sibling files, the
// hierarchy lives only in the path strings.
func (s *Store) fileFor(workspace, path string) string {
	return filepath.Join(s.root, workspace, url.PathEscape(path)+docExt)
}

// pathFromFile recovers the document path from a store filename.
func pathFromFile(name string) (string, bool) {
	if !strings.HasSuffix(name, docExt) || strings.HasPrefix(name, TempFilePrefix) {
		return "", false
	}
	path, err := url.PathUnescape(strings.TrimSuffix(name, docExt))
	if err != nil || !strings.HasPrefix(path, "/") {
		return "", false
	}
	return path, true
}

// Get implements core.Store.
func (s *Store) Get(ctx context.Context, workspace, path string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Wrap(core.KindUnavailable, err, "get aborted")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readDoc(workspace, path)
}

func (s *Store) readDoc(workspace, path string) (*core.Document, error) {
	data, err := os.ReadFile(s.fileFor(workspace, path))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Wrap(core.KindUnavailable, err, "failed to read document")
	}
	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &core.Error{
			Kind:      core.KindValidation,
			Message:   "corrupt document file",
			Workspace: workspace,
			Path:      path,
			Err:       err,
		}
	}
	return &doc, nil
}

// Put implements core.Store, preserving Created* metadata of an existing
// document and writing atomically.
func (s *Store) Put(ctx context.Context, doc core.Document) error {
	if err := ctx.Err(); err != nil {
		return core.Wrap(core.KindUnavailable, err, "put aborted")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDoc(doc)
}

func (s *Store) writeDoc(doc core.Document) error {
	existing, err := s.readDoc(doc.Workspace, doc.Path)
	if err != nil {
		return err
	}
	if existing != nil {
		doc.Meta.CreatedAt = existing.Meta.CreatedAt
		doc.Meta.CreatedBy = existing.Meta.CreatedBy
		doc.Meta.Version = existing.Meta.Version + 1
	} else {
		doc.Meta.Version = 1
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return core.Wrap(core.KindValidation, err, "value is not JSON-serializable")
	}

	file := s.fileFor(doc.Workspace, doc.Path)
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return core.Wrap(core.KindUnavailable, err, "failed to create workspace directory")
	}
	if err := writeFileAtomic(file, data, 0644); err != nil {
		return core.Wrap(core.KindUnavailable, err, "failed to write document")
	}
	return nil
}

// Delete implements core.Store. Deleting an absent document is a no-op.
func (s *Store) Delete(ctx context.Context, workspace, path string) error {
	if err := ctx.Err(); err != nil {
		return core.Wrap(core.KindUnavailable, err, "delete aborted")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeDoc(workspace, path)
}

func (s *Store) removeDoc(workspace, path string) error {
	err := os.Remove(s.fileFor(workspace, path))
	if err != nil && !os.IsNotExist(err) {
		return core.Wrap(core.KindUnavailable, err, "failed to delete document")
	}
	return nil
}

// QueryByPrefix implements core.Store: segment-boundary matching over the
// workspace directory listing.
func (s *Store) QueryByPrefix(ctx context.Context, workspace, prefix string) ([]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Wrap(core.KindUnavailable, err, "query aborted")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.root, workspace))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Wrap(core.KindUnavailable, err, "failed to list workspace")
	}

	var out []core.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path, ok := pathFromFile(entry.Name())
		if !ok || !pathkey.MatchesPrefix(path, prefix) {
			continue
		}
		doc, err := s.readDoc(workspace, path)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			out = append(out, *doc)
		}
	}
	return out, nil
}

// TransactWrite implements core.Store. Every target file is snapshotted
// before anything is applied; a failure mid-apply restores the snapshots so
// the write set commits fully or not at all.
func (s *Store) TransactWrite(ctx context.Context, workspace string, ops []core.TxOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > core.MaxTransactItems {
		return core.Errorf(core.KindTooManyItems,
			"transaction of %d operations exceeds the %d-item ceiling", len(ops), core.MaxTransactItems)
	}
	if err := ctx.Err(); err != nil {
		return core.Wrap(core.KindUnavailable, err, "transaction aborted")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type snapshot struct {
		path    string
		data    []byte // nil when the file did not exist
		existed bool
	}
	snapshots := make([]snapshot, 0, len(ops))
	snapFor := func(path string) error {
		data, err := os.ReadFile(s.fileFor(workspace, path))
		switch {
		case os.IsNotExist(err):
			snapshots = append(snapshots, snapshot{path: path})
		case err != nil:
			return core.Wrap(core.KindUnavailable, err, "failed to snapshot document")
		default:
			snapshots = append(snapshots, snapshot{path: path, data: data, existed: true})
		}
		return nil
	}

	for i, op := range ops {
		switch {
		case op.Put != nil && op.Delete == "":
			if err := snapFor(op.Put.Path); err != nil {
				return err
			}
		case op.Delete != "" && op.Put == nil:
			if err := snapFor(op.Delete); err != nil {
				return err
			}
		default:
			return core.Errorf(core.KindTransactionFailed, "transaction operation %d is neither put nor delete", i)
		}
	}

	restore := func() {
		for _, snap := range snapshots {
			file := s.fileFor(workspace, snap.path)
			if snap.existed {
				if err := writeFileAtomic(file, snap.data, 0644); err != nil {
					s.logger.Error("transaction rollback failed", "path", snap.path, "error", err)
				}
			} else {
				_ = os.Remove(file)
			}
		}
	}

	for _, op := range ops {
		var err error
		if op.Put != nil {
			doc := *op.Put
			doc.Workspace = workspace
			err = s.writeDoc(doc)
		} else {
			err = s.removeDoc(workspace, op.Delete)
		}
		if err != nil {
			restore()
			return core.Wrap(core.KindTransactionFailed, err, "transaction rolled back")
		}
	}
	return nil
}

var _ core.Store = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)
