package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/trellisdb/trellis/pkg/cache"
	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/syncstate"
	"github.com/trellisdb/trellis/pkg/vfs"
)

// Executor drives the command lifecycle: Created → Executing → {Committed,
// Failed}. On commit it invalidates the affected cache keys, confirms the
// command's optimistic update, and notifies subscribers. On failure nothing
// is invalidated and the optimistic effect is rolled back.
type Executor struct {
	fs      *vfs.FS
	cache   *cache.Cache
	tracker *syncstate.Tracker
	broker  *Broker
	logger  *slog.Logger
}

// ExecutorConfig holds the executor's collaborators; FS is required.
type ExecutorConfig struct {
	FS      *vfs.FS
	Cache   *cache.Cache
	Tracker *syncstate.Tracker
	Broker  *Broker
	Logger  *slog.Logger
}

// NewExecutor builds an Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.FS == nil {
		return nil, core.Errorf(core.KindValidation, "executor requires a filesystem")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		fs:      cfg.FS,
		cache:   cfg.Cache,
		tracker: cfg.Tracker,
		broker:  cfg.Broker,
		logger:  logger,
	}, nil
}

// Execute runs a command to completion, mutating its Status and Err.
func (e *Executor) Execute(ctx context.Context, cmd *Command) error {
	cmd.Status = StatusExecuting

	// Write commands mask reads optimistically while in flight. The pre-read
	// may itself be served through the mask or the cache; on a superseding
	// update the tracker carries the original known-good value forward, so a
	// masked read here never becomes the rollback target.
	if cmd.Type == TypeWrite && e.tracker != nil {
		previous, err := e.fs.Read(ctx, cmd.Workspace, cmd.Path)
		if err != nil {
			// The known-good value is unknown; a rollback must invalidate
			// rather than cache a value that was never observed.
			e.tracker.AddUnknownPrevious(cmd.Workspace, cmd.Path, cmd.Value)
		} else {
			e.tracker.Add(cmd.Workspace, cmd.Path, cmd.Value, previous)
		}
	}

	err := e.run(ctx, cmd)
	if err != nil {
		cmd.Status = StatusFailed
		cmd.Err = err
		if cmd.Type == TypeWrite && e.tracker != nil {
			e.tracker.Rollback(cmd.Workspace, cmd.Path, err.Error())
		}
		e.logger.Error("command failed", "type", cmd.Type, "path", cmd.Path, "error", err)
		return err
	}

	cmd.Status = StatusCommitted
	e.invalidate(cmd)
	if cmd.Type == TypeWrite && e.tracker != nil {
		e.tracker.Confirm(cmd.Workspace, cmd.Path, cmd.Value)
	}
	if e.broker != nil {
		e.broker.Publish(Notification{Command: *cmd, CommittedAt: time.Now()})
	}
	e.logger.Debug("command committed", "type", cmd.Type, "path", cmd.Path, "id", cmd.ID)
	return nil
}

func (e *Executor) run(ctx context.Context, cmd *Command) error {
	switch cmd.Type {
	case TypeWrite:
		return e.fs.Write(ctx, cmd.Workspace, cmd.Path, cmd.Value)
	case TypeMkdir:
		return e.fs.Mkdir(ctx, cmd.Workspace, cmd.Path)
	case TypeRm:
		return e.fs.Rm(ctx, cmd.Workspace, cmd.Path)
	case TypeMv:
		return e.fs.Mv(ctx, cmd.Workspace, cmd.Path, cmd.Target)
	default:
		return core.Errorf(core.KindValidation, "unknown command type %q", cmd.Type)
	}
}

func (e *Executor) invalidate(cmd *Command) {
	if e.cache == nil {
		return
	}
	inv := cmd.Invalidate()
	for _, path := range inv.Paths {
		e.cache.InvalidatePath(cmd.Workspace, path)
	}
	for _, re := range inv.Patterns {
		e.cache.InvalidatePattern(cmd.Workspace, re)
	}
}
