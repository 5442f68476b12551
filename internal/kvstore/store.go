// Package kvstore provides the string-keyed byte store that routine history and
// reminder settings are persisted to, plus the backends that implement it.
package kvstore

import (
	"context"
	"encoding/json"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = ferrors.NewError(ferrors.CategoryNotFound, "key not found").Info().Build()

// Store is a string-keyed byte store. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// GetJSON decodes the value stored under key into v. found is false when the
// key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (found bool, err error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, ferrors.WrapError(err, ferrors.CategoryStorage, "stored value is not valid JSON").
			Warning().
			WithContext("key", key).
			Build()
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode value").
			WithContext("key", key).
			Build()
	}
	return s.Set(ctx, key, data)
}

func storageErr(err error, op, key string) error {
	return ferrors.WrapError(err, ferrors.CategoryStorage, "storage "+op+" failed").
		Warning().
		Retryable().
		WithContext("op", op).
		WithContext("key", key).
		Build()
}
