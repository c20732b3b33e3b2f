// Package syncstate tracks in-flight local mutations: optimistic updates
// applied before server confirmation, their reconciliation against confirmed
// state, and the connection state reported to consumers.
package syncstate

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/google/uuid"

	"github.com/trellisdb/trellis/pkg/cache"
)

// ConnState reports how the layer currently relates to its backend.
type ConnState string

const (
	Connected    ConnState = "connected"
	Reconnecting ConnState = "reconnecting"
	Offline      ConnState = "offline"
)

// SaveState is the consumer-facing persistence state of a path, derived from
// the tracker: Saving while an update is pending, SaveFailed after a
// rollback, Saved otherwise.
type SaveState string

const (
	Saved      SaveState = "saved"
	Saving     SaveState = "saving"
	SaveFailed SaveState = "save_failed"
)

// StateKind tags a ValueState variant.
type StateKind string

const (
	StateConfirmed  StateKind = "confirmed"
	StatePending    StateKind = "pending"
	StateRolledBack StateKind = "rolled_back"
)

// ValueState is the tagged display state of a path's value. Representing it
// as a variant rather than one mutable field lets consumers (and tests)
// assert exactly what a reader would see.
type ValueState struct {
	Kind   StateKind
	Value  any
	Since  time.Time // populated for pending states
	Reason string    // populated for rolled-back states
}

// Update is one optimistic, unconfirmed local mutation. At most one update
// is authoritative per (workspace, path); a newer one supersedes an older
// unconfirmed one while keeping the original known-good value for rollback.
type Update struct {
	ID        uuid.UUID
	Workspace string
	Path      string
	Value     any
	AppliedAt time.Time

	previous    any
	hasPrevious bool
}

// Tracker is the optimistic-update registry. It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	cache   *cache.Cache // optional: refreshed on confirmation
	logger  *slog.Logger
	pending map[string]map[string]*Update // workspace -> path -> update
	failed  map[string]map[string]string  // workspace -> path -> rollback reason
	conn    ConnState

	now func() time.Time
}

// New creates a tracker. The cache may be nil; confirmations then skip the
// cache refresh.
func New(c *cache.Cache, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		cache:   c,
		logger:  logger,
		pending: make(map[string]map[string]*Update),
		failed:  make(map[string]map[string]string),
		conn:    Connected,
		now:     time.Now,
	}
}

// Add registers an optimistic update for (workspace, path) and returns it.
// Reads of the path are masked with value until the update is confirmed or
// rolled back. previous is the last known-good value used for rollback; when
// an unconfirmed update already exists it is superseded and its original
// known-good value is carried over.
func (t *Tracker) Add(workspace, path string, value, previous any) Update {
	return t.add(workspace, path, value, previous, true)
}

// AddUnknownPrevious registers an optimistic update whose last known-good
// value could not be read. A rollback then invalidates the cached document
// instead of restoring a value that was never observed.
func (t *Tracker) AddUnknownPrevious(workspace, path string, value any) Update {
	return t.add(workspace, path, value, nil, false)
}

func (t *Tracker) add(workspace, path string, value, previous any, hasPrevious bool) Update {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := &Update{
		ID:          uuid.New(),
		Workspace:   workspace,
		Path:        path,
		Value:       value,
		AppliedAt:   t.now(),
		previous:    previous,
		hasPrevious: hasPrevious,
	}
	if byPath, ok := t.pending[workspace]; ok {
		if old, ok := byPath[path]; ok {
			u.previous = old.previous
			u.hasPrevious = old.hasPrevious
		}
	} else {
		t.pending[workspace] = make(map[string]*Update)
	}
	t.pending[workspace][path] = u
	delete(t.failed[workspace], path)

	t.logger.Debug("optimistic update applied", "workspace", workspace, "path", path, "id", u.ID)
	return *u
}

// Pending returns the masking value for (workspace, path), if any. The value
// itself may be nil (a pending tombstone), so the boolean is authoritative.
func (t *Tracker) Pending(workspace, path string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.pending[workspace][path]
	if !ok {
		return nil, false
	}
	return u.Value, true
}

// Confirm clears the pending update for (workspace, path) and refreshes the
// cache from the confirmed value. Confirming a path with no pending update
// still refreshes the cache. The value is normalized through a JSON
// round-trip first so cache hits agree with store reads on value shapes.
func (t *Tracker) Confirm(workspace, path string, confirmed any) {
	t.mu.Lock()
	delete(t.pending[workspace], path)
	delete(t.failed[workspace], path)
	t.mu.Unlock()

	if t.cache == nil {
		return
	}
	norm, err := normalize(confirmed)
	if err != nil {
		// The store accepted the value, so this should not happen; drop
		// the key rather than cache a shape no store read would produce.
		t.cache.Delete(workspace, cache.DocKey(path))
		return
	}
	t.cache.Set(workspace, cache.DocKey(path), norm)
}

func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rollback discards the pending update for (workspace, path) and restores
// the last known-good value in the cache. It returns that value and whether
// a pending update existed.
func (t *Tracker) Rollback(workspace, path, reason string) (restored any, ok bool) {
	t.mu.Lock()
	u, ok := t.pending[workspace][path]
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.pending[workspace], path)
	if t.failed[workspace] == nil {
		t.failed[workspace] = make(map[string]string)
	}
	t.failed[workspace][path] = reason
	t.mu.Unlock()

	if t.cache != nil {
		if u.hasPrevious {
			t.cache.Set(workspace, cache.DocKey(path), u.previous)
		} else {
			t.cache.Delete(workspace, cache.DocKey(path))
		}
	}
	t.logger.Warn("optimistic update rolled back", "workspace", workspace, "path", path, "reason", reason)
	return u.previous, true
}

// RollbackAll clears every pending update for the workspace (used on
// reconnect, when local in-flight state can no longer be trusted) and
// returns how many were discarded.
func (t *Tracker) RollbackAll(workspace string) int {
	t.mu.Lock()
	byPath := t.pending[workspace]
	delete(t.pending, workspace)
	delete(t.failed, workspace)
	t.mu.Unlock()

	if t.cache != nil {
		for path, u := range byPath {
			if u.hasPrevious {
				t.cache.Set(workspace, cache.DocKey(path), u.previous)
			} else {
				t.cache.Delete(workspace, cache.DocKey(path))
			}
		}
	}
	if len(byPath) > 0 {
		t.logger.Warn("discarded pending updates", "workspace", workspace, "count", len(byPath))
	}
	return len(byPath)
}

// ValueState resolves the display state of a path: pending masks confirmed,
// a recorded rollback reports why, and otherwise the confirmed value stands.
func (t *Tracker) ValueState(workspace, path string, confirmed any) ValueState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if u, ok := t.pending[workspace][path]; ok {
		return ValueState{Kind: StatePending, Value: u.Value, Since: u.AppliedAt}
	}
	if reason, ok := t.failed[workspace][path]; ok {
		return ValueState{Kind: StateRolledBack, Reason: reason}
	}
	return ValueState{Kind: StateConfirmed, Value: confirmed}
}

// SaveState derives the consumer-facing persistence state of a path.
func (t *Tracker) SaveState(workspace, path string) SaveState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.pending[workspace][path]; ok {
		return Saving
	}
	if _, ok := t.failed[workspace][path]; ok {
		return SaveFailed
	}
	return Saved
}

// PendingCount reports how many updates are in flight for the workspace.
func (t *Tracker) PendingCount(workspace string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pending[workspace])
}

// SetConnectionState records the current backend connectivity.
func (t *Tracker) SetConnectionState(s ConnState) {
	t.mu.Lock()
	t.conn = s
	t.mu.Unlock()
}

// ConnectionState reports the current backend connectivity.
func (t *Tracker) ConnectionState() ConnState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conn
}

// State implements introspection.Introspectable.
func (t *Tracker) State() any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pending := 0
	for _, byPath := range t.pending {
		pending += len(byPath)
	}
	failed := 0
	for _, byPath := range t.failed {
		failed += len(byPath)
	}
	return struct {
		Connection ConnState `json:"connection"`
		Pending    int       `json:"pending"`
		Failed     int       `json:"failed"`
	}{Connection: t.conn, Pending: pending, Failed: failed}
}

// ComponentType implements introspection.Component.
func (t *Tracker) ComponentType() string {
	return "sync-tracker"
}

var _ introspection.Introspectable = (*Tracker)(nil)
var _ introspection.Component = (*Tracker)(nil)
