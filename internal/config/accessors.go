package config

import "time"

// RetryDurations returns the parsed storage retry delays. Callers must only use
// it on a validated configuration.
func (c *Config) RetryDurations() (initial, limit time.Duration) {
	initial, _ = time.ParseDuration(c.Storage.Retry.Initial)
	limit, _ = time.ParseDuration(c.Storage.Retry.Max)
	return initial, limit
}

// ReloadDebounce returns the parsed config watcher debounce.
func (c *Config) ReloadDebounce() time.Duration {
	d, err := time.ParseDuration(c.Daemon.ReloadDebounce)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// RolloverTime returns the hour, minute and second of the daily rollover job.
func (c *Config) RolloverTime() (hour, minute, second uint) {
	t, err := time.Parse(time.TimeOnly, c.Daemon.RolloverAt)
	if err != nil {
		return 0, 0, 5
	}
	return uint(t.Hour()), uint(t.Minute()), uint(t.Second()) // #nosec G115 - clock fields are non-negative
}
