package config

const (
	// CurrentVersion is the only supported configuration file version.
	CurrentVersion = "1"

	DefaultHoldSeconds    = 30
	DefaultRepsPerSession = 6
	DefaultDailyTarget    = 4
	DefaultMaxSessions    = 4

	DefaultNamespace         = "calfStretching"
	DefaultStoragePath       = "calfstretch.db"
	DefaultNATSBucket        = "calfstretch"
	DefaultNotificationTitle = "Calf Stretching Reminder"
	DefaultAdminAddr         = ":9321"
	DefaultRolloverAt        = "00:00:05"
	DefaultReloadDebounce    = "2s"
	DefaultMetricsPath       = "/metrics"
)

// Default returns a fully populated configuration. Load decodes user YAML on
// top of it so omitted keys keep these values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Routine: RoutineConfig{
			HoldSeconds:    DefaultHoldSeconds,
			RepsPerSession: DefaultRepsPerSession,
			DailyTarget:    DefaultDailyTarget,
			MaxSessions:    DefaultMaxSessions,
		},
		Storage: StorageConfig{
			Backend:    StorageSQLite,
			Path:       DefaultStoragePath,
			Namespace:  DefaultNamespace,
			NATSURL:    "nats://127.0.0.1:4222",
			NATSBucket: DefaultNATSBucket,
			Retry: RetryConfig{
				Mode:       RetryBackoffLinear,
				Initial:    "100ms",
				Max:        "2s",
				MaxRetries: 2,
			},
		},
		Notifications: NotificationsConfig{
			Backend:    NotifyDesktop,
			Permission: PermissionPrompt,
			Title:      DefaultNotificationTitle,
		},
		Daemon: DaemonConfig{
			AdminAddr:      DefaultAdminAddr,
			RolloverAt:     DefaultRolloverAt,
			ReloadDebounce: DefaultReloadDebounce,
		},
		Monitoring: MonitoringConfig{
			Metrics: MonitoringMetrics{Enabled: true, Path: DefaultMetricsPath},
			Logging: MonitoringLogging{Level: LogLevelInfo, Format: LogFormatText},
		},
	}
}
