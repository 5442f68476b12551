// Package errors provides foundational, type-safe error primitives used across calfstretch.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (storage, permission, validation, config, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, immediate, backoff, user action)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for error presentation and exit codes
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryStorage, "write sessions").
//		Warning().
//		Retryable().
//		WithContext("key", "sessions").
//		Build()
package errors
