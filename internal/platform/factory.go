package platform

import (
	"log/slog"

	"github.com/trellisdb/trellis/pkg/adapters/filestore"
	"github.com/trellisdb/trellis/pkg/cache"
	"github.com/trellisdb/trellis/pkg/client"
	"github.com/trellisdb/trellis/pkg/command"
	"github.com/trellisdb/trellis/pkg/core"
	"github.com/trellisdb/trellis/pkg/syncstate"
	"github.com/trellisdb/trellis/pkg/vfs"
)

// New wires a complete service: store → cache → client → filesystem →
// command executor, plus the optimistic tracker and the notification broker.
// root names the filestore directory unless WithStore injects an adapter.
func New(root string, opts ...Option) (*Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = filestore.New(filestore.Config{Root: root, Logger: logger})
		if err != nil {
			return nil, err
		}
	}

	c := cache.New(o.cacheTTL)

	var tracker *syncstate.Tracker
	if o.tracking {
		tracker = syncstate.New(c, logger)
	}

	cl, err := client.New(client.Config{
		Store:          store,
		Session:        core.Session{Actor: o.actor, Workspace: o.workspace},
		Cache:          c,
		Tracker:        tracker,
		Logger:         logger,
		MaxAttempts:    o.maxAttempts,
		AttemptTimeout: o.attemptTimeout,
		TreeLimit:      o.treeLimit,
	})
	if err != nil {
		return nil, err
	}

	fs, err := vfs.New(vfs.Config{
		Client:      cl,
		Cache:       c,
		Logger:      logger,
		Parallelism: o.parallelism,
	})
	if err != nil {
		return nil, err
	}

	broker := command.NewBroker(o.eventBuffer, logger)
	executor, err := command.NewExecutor(command.ExecutorConfig{
		FS:      fs,
		Cache:   c,
		Tracker: tracker,
		Broker:  broker,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		store:    store,
		cache:    c,
		client:   cl,
		fs:       fs,
		tracker:  tracker,
		broker:   broker,
		executor: executor,
		logger:   logger,
	}, nil
}
