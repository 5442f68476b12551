package config

import (
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
)

// Normalize canonicalises enum fields in place. Unknown enum values are
// rejected rather than silently replaced.
func (c *Config) Normalize() error {
	var err error
	if c.Storage.Backend, err = storageBackends.Validate(string(c.Storage.Backend)); err != nil {
		return ferrors.ConfigError(err.Error()).WithContext("field", "storage.backend").Build()
	}
	if c.Notifications.Backend, err = notificationBackends.Validate(string(c.Notifications.Backend)); err != nil {
		return ferrors.ConfigError(err.Error()).WithContext("field", "notifications.backend").Build()
	}
	if c.Notifications.Permission, err = permissionPolicies.Validate(string(c.Notifications.Permission)); err != nil {
		return ferrors.ConfigError(err.Error()).WithContext("field", "notifications.permission").Build()
	}
	if c.Storage.Retry.Mode, err = retryModes.Validate(string(c.Storage.Retry.Mode)); err != nil {
		return ferrors.ConfigError(err.Error()).WithContext("field", "storage.retry.mode").Build()
	}
	if c.Monitoring.Logging.Level, err = logLevels.Validate(string(c.Monitoring.Logging.Level)); err != nil {
		return ferrors.ConfigError(err.Error()).WithContext("field", "monitoring.logging.level").Build()
	}
	if c.Monitoring.Logging.Format, err = logFormats.Validate(string(c.Monitoring.Logging.Format)); err != nil {
		return ferrors.ConfigError(err.Error()).WithContext("field", "monitoring.logging.format").Build()
	}
	c.Storage.Namespace = strings.TrimSpace(c.Storage.Namespace)
	return nil
}

// Validate checks the configuration for values the application cannot run with.
func Validate(c *Config) error {
	v := &configurationValidator{config: c}
	for _, check := range []func() error{
		v.validateVersion,
		v.validateRoutine,
		v.validateStorage,
		v.validateDaemon,
		v.validateMonitoring,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func (v *configurationValidator) validateVersion() error {
	if v.config.Version != CurrentVersion {
		return ferrors.ConfigError("unsupported configuration version").
			WithContext("version", v.config.Version).
			WithContext("supported", CurrentVersion).
			Build()
	}
	return nil
}

func (v *configurationValidator) validateRoutine() error {
	r := v.config.Routine
	for field, value := range map[string]int{
		"routine.hold_seconds":     r.HoldSeconds,
		"routine.reps_per_session": r.RepsPerSession,
		"routine.daily_target":     r.DailyTarget,
		"routine.max_sessions":     r.MaxSessions,
	} {
		if value < 1 {
			return ferrors.ConfigError("value must be at least 1").
				WithContext("field", field).
				WithContext("value", value).
				Build()
		}
	}
	return nil
}

func (v *configurationValidator) validateStorage() error {
	s := v.config.Storage
	if s.Namespace == "" {
		return ferrors.ConfigError("storage namespace is required").Build()
	}
	switch s.Backend {
	case StorageSQLite, StorageFile:
		if strings.TrimSpace(s.Path) == "" {
			return ferrors.ConfigError("storage path is required").
				WithContext("backend", string(s.Backend)).
				Build()
		}
	case StorageNATS:
		if s.NATSURL == "" || s.NATSBucket == "" {
			return ferrors.ConfigError("nats storage requires nats_url and nats_bucket").Build()
		}
	case StorageMemory:
	}
	if s.Retry.MaxRetries < 0 {
		return ferrors.ConfigError("storage.retry.max_retries cannot be negative").Build()
	}
	initial, err := parseDurationField("storage.retry.initial", s.Retry.Initial)
	if err != nil {
		return err
	}
	limit, err := parseDurationField("storage.retry.max", s.Retry.Max)
	if err != nil {
		return err
	}
	if limit < initial {
		return ferrors.ConfigError("storage.retry.max must be >= storage.retry.initial").Build()
	}
	return nil
}

func (v *configurationValidator) validateDaemon() error {
	d := v.config.Daemon
	if _, err := time.Parse(time.TimeOnly, d.RolloverAt); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "daemon.rollover_at must be HH:MM:SS").
			WithContext("value", d.RolloverAt).
			Build()
	}
	if _, err := parseDurationField("daemon.reload_debounce", d.ReloadDebounce); err != nil {
		return err
	}
	return nil
}

func (v *configurationValidator) validateMonitoring() error {
	m := v.config.Monitoring.Metrics
	if m.Enabled && !strings.HasPrefix(m.Path, "/") {
		return ferrors.ConfigError("monitoring.metrics.path must start with '/'").
			WithContext("value", m.Path).
			Build()
	}
	return nil
}

func parseDurationField(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid duration").
			WithContext("field", field).
			WithContext("value", raw).
			Build()
	}
	if d < 0 {
		return 0, ferrors.ConfigError("duration cannot be negative").
			WithContext("field", field).
			Build()
	}
	return d, nil
}
