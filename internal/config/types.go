package config

// Config is the calfstretch configuration file format.
type Config struct {
	Version       string              `yaml:"version"`
	Routine       RoutineConfig       `yaml:"routine"`
	Storage       StorageConfig       `yaml:"storage"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Daemon        DaemonConfig        `yaml:"daemon"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
}

// RoutineConfig holds the shape of one stretching session and the daily goal.
type RoutineConfig struct {
	HoldSeconds    int `yaml:"hold_seconds"`     // seconds per hold (default 30)
	RepsPerSession int `yaml:"reps_per_session"` // LEFT+RIGHT pairs per session (default 6)
	DailyTarget    int `yaml:"daily_target"`     // sessions per day that satisfy the streak (default 4)
	MaxSessions    int `yaml:"max_sessions"`     // upper bound of the session counter (default 4)
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Backend    StorageBackend `yaml:"backend"`     // sqlite|file|nats|memory
	Path       string         `yaml:"path"`        // sqlite database file or file-store directory
	Namespace  string         `yaml:"namespace"`   // key prefix shared by all persisted values
	NATSURL    string         `yaml:"nats_url"`    // nats backend only
	NATSBucket string         `yaml:"nats_bucket"` // nats backend only
	Retry      RetryConfig    `yaml:"retry"`
}

// RetryConfig configures retries of transient storage write failures.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode"`        // fixed|linear|exponential
	Initial    string           `yaml:"initial"`     // duration string (default 100ms)
	Max        string           `yaml:"max"`         // cap for growth (default 2s)
	MaxRetries int              `yaml:"max_retries"` // retry attempts after the first failure (default 2)
}

// NotificationsConfig configures the notification gateway.
type NotificationsConfig struct {
	Backend    NotificationBackend `yaml:"backend"`    // desktop|log
	Permission PermissionPolicy    `yaml:"permission"` // granted|denied|prompt
	Title      string              `yaml:"title"`
}

// DaemonConfig represents daemon-specific configuration.
type DaemonConfig struct {
	AdminAddr      string `yaml:"admin_addr"`      // health/status/metrics listener; empty disables
	RolloverAt     string `yaml:"rollover_at"`     // HH:MM:SS local time of the day-rollover job
	ReloadDebounce string `yaml:"reload_debounce"` // config watcher debounce (default 2s)
}

// MonitoringConfig represents monitoring and observability configuration.
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics"`
	Logging MonitoringLogging `yaml:"logging"`
}

// MonitoringMetrics represents metrics configuration.
type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MonitoringLogging represents logging configuration.
type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}
