package kvstore

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/retry"
)

type retrying struct {
	inner  Store
	policy retry.Policy
	clock  clockwork.Clock
}

// Retrying wraps a store so that transient failures of Set and Remove are
// retried according to policy. Reads are not retried.
func Retrying(inner Store, policy retry.Policy, clock clockwork.Clock) Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &retrying{inner: inner, policy: policy, clock: clock}
}

func (r *retrying) Get(ctx context.Context, key string) ([]byte, error) {
	return r.inner.Get(ctx, key)
}

func (r *retrying) Set(ctx context.Context, key string, value []byte) error {
	return r.do(ctx, "set", key, func() error { return r.inner.Set(ctx, key, value) })
}

func (r *retrying) Remove(ctx context.Context, key string) error {
	return r.do(ctx, "remove", key, func() error { return r.inner.Remove(ctx, key) })
}

func (r *retrying) Close() error { return r.inner.Close() }

func (r *retrying) do(ctx context.Context, op, key string, fn func() error) error {
	attempt := 0
	return r.policy.Do(ctx, r.clock, ferrors.IsRetryable, func() error {
		attempt++
		err := fn()
		if err != nil && attempt > 1 {
			slog.Debug("Storage retry failed", logfields.Key(key), slog.String("op", op), slog.Int("attempt", attempt), logfields.Error(err))
		}
		return err
	})
}
