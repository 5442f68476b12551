package config

import "git.home.luguber.info/inful/calfstretch/internal/foundation/normalization"

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = normalization.NewEnum("log level", LogLevelInfo, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)

func NormalizeLogLevel(raw string) LogLevel { return logLevels.Normalize(raw) }

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormats = normalization.NewEnum("log format", LogFormatText, LogFormatJSON, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat { return logFormats.Normalize(raw) }

// StorageBackend enumerates the key-value backends.
type StorageBackend string

const (
	StorageSQLite StorageBackend = "sqlite"
	StorageFile   StorageBackend = "file"
	StorageNATS   StorageBackend = "nats"
	StorageMemory StorageBackend = "memory"
)

var storageBackends = normalization.NewEnum("storage backend", StorageSQLite, StorageSQLite, StorageFile, StorageNATS, StorageMemory)

// NotificationBackend enumerates the notification gateways.
type NotificationBackend string

const (
	NotifyDesktop NotificationBackend = "desktop"
	NotifyLog     NotificationBackend = "log"
)

var notificationBackends = normalization.NewEnum("notification backend", NotifyDesktop, NotifyDesktop, NotifyLog)

// PermissionPolicy is the configured answer to notification permission queries.
// PermissionPrompt defers the decision until a reminder is switched on.
type PermissionPolicy string

const (
	PermissionGranted PermissionPolicy = "granted"
	PermissionDenied  PermissionPolicy = "denied"
	PermissionPrompt  PermissionPolicy = "prompt"
)

var permissionPolicies = normalization.NewEnum("notification permission", PermissionPrompt, PermissionGranted, PermissionDenied, PermissionPrompt)

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryModes = normalization.NewEnum("retry mode", RetryBackoffLinear, RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential)

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode.
func NormalizeRetryBackoff(raw string) RetryBackoffMode { return retryModes.Normalize(raw) }
