// Package normalization maps free-form user input onto typed string enums.
package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Enum normalizes case-insensitive, whitespace-padded input to one of a fixed
// set of values of a string-based type.
type Enum[T ~string] struct {
	name     string
	values   map[string]T
	fallback T
	keys     []string // sorted, for error messages
}

// NewEnum creates an Enum. fallback is returned for empty input and, from
// Normalize, for unknown input.
func NewEnum[T ~string](name string, fallback T, values ...T) *Enum[T] {
	e := &Enum[T]{name: name, values: make(map[string]T, len(values)), fallback: fallback}
	for _, v := range values {
		key := Key(string(v))
		e.values[key] = v
		e.keys = append(e.keys, key)
	}
	sort.Strings(e.keys)
	return e
}

// Normalize returns the matching value or the fallback.
func (e *Enum[T]) Normalize(raw string) T {
	if v, ok := e.values[Key(raw)]; ok {
		return v
	}
	return e.fallback
}

// Validate is Normalize that rejects unknown non-empty input.
func (e *Enum[T]) Validate(raw string) (T, error) {
	if Key(raw) == "" {
		return e.fallback, nil
	}
	if v, ok := e.values[Key(raw)]; ok {
		return v, nil
	}
	return e.fallback, fmt.Errorf("invalid %s %q, valid options: %v", e.name, raw, e.keys)
}

// Values returns the accepted spellings in sorted order.
func (e *Enum[T]) Values() []string {
	return append([]string(nil), e.keys...)
}

// Key is the canonical lookup form of raw: trimmed and lower-cased.
func Key(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
