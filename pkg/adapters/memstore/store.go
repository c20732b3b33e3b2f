// Package memstore implements the flat document store port in memory. It is
// the reference adapter: deterministic, dependency-free, and equipped with a
// failure hook so tests can exercise retry and atomicity behavior.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/pathkey"
)

// Store is an in-memory, workspace-partitioned flat document store. Safe for
// concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string]core.Document // workspace -> path -> document

	// FailureHook, when set, runs before every store call with the operation
	// name ("get", "query", "put", "delete", "transact"). Returning an error
	// aborts the call before any state changes. Tests use it to inject
	// transient faults.
	FailureHook func(op string) error
}

// New creates an empty store.
func New() *Store {
	return &Store{docs: make(map[string]map[string]core.Document)}
}

// Get implements core.Store.
func (s *Store) Get(ctx context.Context, workspace, path string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Wrap(core.KindUnavailable, err, "get aborted")
	}
	if err := s.fail("get"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[workspace][path]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// Put implements core.Store. The value is normalized through a JSON
// round-trip, matching what a real document backend stores; values that do
// not serialize are rejected. Created* metadata of an existing document is
// preserved.
func (s *Store) Put(ctx context.Context, doc core.Document) error {
	if err := s.fail("put"); err != nil {
		return err
	}
	normalized, err := normalize(doc.Value)
	if err != nil {
		return err
	}
	doc.Value = normalized

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(doc)
	return nil
}

// put stores doc under the lock, preserving existing Created* metadata.
func (s *Store) put(doc core.Document) {
	byPath := s.docs[doc.Workspace]
	if byPath == nil {
		byPath = make(map[string]core.Document)
		s.docs[doc.Workspace] = byPath
	}
	if existing, ok := byPath[doc.Path]; ok {
		doc.Meta.CreatedAt = existing.Meta.CreatedAt
		doc.Meta.CreatedBy = existing.Meta.CreatedBy
		doc.Meta.Version = existing.Meta.Version + 1
	} else {
		doc.Meta.Version = 1
	}
	byPath[doc.Path] = doc
}

// Delete implements core.Store. Deleting an absent document is a no-op.
func (s *Store) Delete(ctx context.Context, workspace, path string) error {
	if err := s.fail("delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[workspace], path)
	return nil
}

// QueryByPrefix implements core.Store: segment-boundary prefix matching,
// results sorted by path.
func (s *Store) QueryByPrefix(ctx context.Context, workspace, prefix string) ([]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Wrap(core.KindUnavailable, err, "query aborted")
	}
	if err := s.fail("query"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Document
	for path, doc := range s.docs[workspace] {
		if pathkey.MatchesPrefix(path, prefix) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// TransactWrite implements core.Store. Operations are validated and
// normalized first; only then, under one lock, are they all applied. A
// rejected transaction leaves the store exactly as before.
func (s *Store) TransactWrite(ctx context.Context, workspace string, ops []core.TxOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > core.MaxTransactItems {
		return core.Errorf(core.KindTooManyItems,
			"transaction of %d operations exceeds the %d-item ceiling", len(ops), core.MaxTransactItems)
	}
	if err := s.fail("transact"); err != nil {
		return err
	}

	// Validation phase: nothing is applied until every op is acceptable.
	staged := make([]core.TxOp, len(ops))
	for i, op := range ops {
		switch {
		case op.Put != nil && op.Delete == "":
			normalized, err := normalize(op.Put.Value)
			if err != nil {
				return core.Wrap(core.KindTransactionFailed, err, "transaction rejected")
			}
			doc := *op.Put
			doc.Value = normalized
			doc.Workspace = workspace
			staged[i] = core.TxOp{Put: &doc}
		case op.Delete != "" && op.Put == nil:
			staged[i] = op
		default:
			return core.Errorf(core.KindTransactionFailed, "transaction operation %d is neither put nor delete", i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range staged {
		if op.Put != nil {
			s.put(*op.Put)
		} else {
			delete(s.docs[workspace], op.Delete)
		}
	}
	return nil
}

// Len reports the number of documents in a workspace.
func (s *Store) Len(workspace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[workspace])
}

func (s *Store) fail(op string) error {
	if s.FailureHook != nil {
		if err := s.FailureHook(op); err != nil {
			return err
		}
	}
	return nil
}

// normalize round-trips a value through JSON so stored values have the same
// shape a remote document backend would return (maps, slices, float64s).
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, core.Wrap(core.KindValidation, err, "value is not JSON-serializable")
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, core.Wrap(core.KindValidation, err, "value round-trip failed")
	}
	return out, nil
}

var _ core.Store = (*Store)(nil)
