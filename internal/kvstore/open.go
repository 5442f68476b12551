package kvstore

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/retry"
)

// Open builds the configured backend wrapped with retries and the namespace
// prefix.
func Open(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (Store, error) {
	var (
		backend Store
		err     error
	)
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		backend = NewMemoryStore()
	case config.StorageFile:
		backend, err = NewFileStore(cfg.Storage.Path)
	case config.StorageNATS:
		backend, err = NewNATSStore(ctx, cfg.Storage.NATSURL, cfg.Storage.NATSBucket)
	default:
		backend, err = NewSQLiteStore(cfg.Storage.Path)
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStorage, "failed to open storage backend").
			WithContext("backend", string(cfg.Storage.Backend)).
			Build()
	}

	slog.Debug("Storage backend opened", logfields.Backend(string(cfg.Storage.Backend)), logfields.Path(cfg.Storage.Path))
	return Namespaced(Retrying(backend, retry.FromConfig(cfg), clock), cfg.Storage.Namespace), nil
}

// OpenOrMemory opens the configured backend. When it cannot be opened the
// open error is returned together with a namespaced in-memory store, so the
// caller keeps running without durable storage.
func OpenOrMemory(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (Store, error) {
	store, err := Open(ctx, cfg, clock)
	if err != nil {
		slog.Warn("Storage backend unavailable, falling back to memory",
			logfields.Backend(string(cfg.Storage.Backend)),
			logfields.Path(cfg.Storage.Path),
			logfields.Error(err))
		return Namespaced(NewMemoryStore(), cfg.Storage.Namespace), err
	}
	return store, nil
}
