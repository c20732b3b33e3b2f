package platform

import (
	"context"
	"log/slog"

	"github.com/aretw0/lifecycle"

	"github.com/trellisdb/trellis/pkg/cache"
	"github.com/trellisdb/trellis/pkg/client"
	"github.com/trellisdb/trellis/pkg/command"
	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/syncstate"
	"github.com/trellisdb/trellis/pkg/vfs"
)

// Service is the assembled data layer: the consumer-facing read API plus the
// command-driven mutation API, sharing one cache and one session.
type Service struct {
	store    core.Store
	cache    *cache.Cache
	client   *client.Client
	fs       *vfs.FS
	tracker  *syncstate.Tracker
	broker   *command.Broker
	executor *command.Executor
	logger   *slog.Logger

	watchCancel context.CancelFunc
}

// Workspace returns the workspace the service is bound to.
func (s *Service) Workspace() string {
	return s.client.Session().Workspace
}

// Client exposes the underlying data client for advanced callers.
func (s *Service) Client() *client.Client { return s.client }

// FS exposes the filesystem emulation.
func (s *Service) FS() *vfs.FS { return s.fs }

// Cache exposes the cache component.
func (s *Service) Cache() *cache.Cache { return s.cache }

// Tracker exposes the optimistic-update tracker; nil when tracking is
// disabled.
func (s *Service) Tracker() *syncstate.Tracker { return s.tracker }

// --- Reads (data client) ---

// Read returns the value at path, nil when absent or tombstoned.
func (s *Service) Read(ctx context.Context, path string) (any, error) {
	return s.client.Read(ctx, s.Workspace(), path)
}

// ReadWithDefault reads path, substituting def for absent or tombstoned
// documents; the boolean reports whether the default was used.
func (s *Service) ReadWithDefault(ctx context.Context, path string, def any) (any, bool, error) {
	return s.client.ReadWithDefault(ctx, s.Workspace(), path, def)
}

// ReadTree returns full-path → value for every document under prefix.
func (s *Service) ReadTree(ctx context.Context, prefix string) (map[string]any, error) {
	return s.client.ReadTree(ctx, s.Workspace(), prefix)
}

// Batch executes an ordered list of up to 25 operations; writes commit
// atomically or not at all.
func (s *Service) Batch(ctx context.Context, ops []core.BatchOperation) ([]core.BatchResult, error) {
	return s.client.Batch(ctx, s.Workspace(), ops)
}

// Exists reports whether path holds a document or has descendants.
func (s *Service) Exists(ctx context.Context, path string) (bool, error) {
	return s.fs.Exists(ctx, s.Workspace(), path)
}

// Ls lists the immediate child names under path.
func (s *Service) Ls(ctx context.Context, path string) ([]string, error) {
	return s.fs.Ls(ctx, s.Workspace(), path)
}

// --- Mutations (command layer) ---

// Write stores value at path through the command pipeline.
func (s *Service) Write(ctx context.Context, path string, value any) error {
	return s.Do(ctx, command.NewWrite(s.Workspace(), path, value))
}

// Mkdir creates a directory at path; creating an existing directory is a
// no-op.
func (s *Service) Mkdir(ctx context.Context, path string) error {
	return s.Do(ctx, command.NewMkdir(s.Workspace(), path))
}

// Rm removes path and, for directories, every descendant.
func (s *Service) Rm(ctx context.Context, path string) error {
	return s.Do(ctx, command.NewRm(s.Workspace(), path))
}

// Mv moves path (and any subtree) to target.
func (s *Service) Mv(ctx context.Context, path, target string) error {
	return s.Do(ctx, command.NewMv(s.Workspace(), path, target))
}

// Do executes a command. Callers that need retry-the-identical-command
// semantics (a "Save failed — retry" affordance) hold on to the command and
// pass it again.
func (s *Service) Do(ctx context.Context, cmd *command.Command) error {
	return s.executor.Execute(ctx, cmd)
}

// Subscribe registers for post-commit notifications of commands whose path
// matches the glob pattern.
func (s *Service) Subscribe(pattern string) (<-chan command.Notification, func(), error) {
	return s.broker.Subscribe(pattern)
}

// SaveState reports the consumer-facing persistence state of a path.
func (s *Service) SaveState(path string) syncstate.SaveState {
	if s.tracker == nil {
		return syncstate.Saved
	}
	return s.tracker.SaveState(s.Workspace(), path)
}

// --- Watching ---

// StartWatch begins consuming external-change events from the store (when
// the adapter supports watching) and invalidates affected cache entries.
func (s *Service) StartWatch(ctx context.Context) error {
	w, ok := s.store.(core.Watchable)
	if !ok {
		return core.Errorf(core.KindValidation, "store does not support watching")
	}
	watchCtx, cancel := context.WithCancel(ctx)
	events, err := w.Watch(watchCtx)
	if err != nil {
		cancel()
		return err
	}
	s.watchCancel = cancel

	lifecycle.Go(watchCtx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				s.cache.InvalidatePath(e.Workspace, e.Path)
				s.logger.Debug("external change invalidated cache",
					"workspace", e.Workspace, "path", e.Path, "type", e.Type)
			}
		}
	})
	return nil
}

// Close stops the watcher (if any) and the notification broker.
func (s *Service) Close() {
	if s.watchCancel != nil {
		s.watchCancel()
	}
	s.broker.Close()
}

// State aggregates component introspection snapshots.
func (s *Service) State() any {
	out := map[string]any{
		"client": s.client.State(),
		"cache":  s.cache.State(),
	}
	if s.tracker != nil {
		out["tracker"] = s.tracker.State()
	}
	if st, ok := s.store.(interface{ State() any }); ok {
		out["store"] = st.State()
	}
	return out
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}
