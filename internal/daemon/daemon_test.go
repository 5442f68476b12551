package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	"git.home.luguber.info/inful/calfstretch/internal/events"
	"git.home.luguber.info/inful/calfstretch/internal/kvstore"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
	"git.home.luguber.info/inful/calfstretch/internal/tracker"
)

var morning = time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)

type testDaemon struct {
	*Daemon
	clock *clockwork.FakeClock
	store *kvstore.MemoryStore
}

func newTestDaemon(t *testing.T, at time.Time, policy config.PermissionPolicy, mutate ...func(*config.Config)) *testDaemon {
	t.Helper()
	cfg := config.Default()
	cfg.Daemon.AdminAddr = ""
	for _, fn := range mutate {
		fn(cfg)
	}
	fake := clockwork.NewFakeClockAt(at)
	store := kvstore.NewMemoryStore()
	d, err := NewDaemon(cfg, "",
		WithClock(fake),
		WithLocation(time.UTC),
		WithStore(store),
		WithGateway(notify.NewLogGateway(policy)),
	)
	require.NoError(t, err)
	return &testDaemon{Daemon: d, clock: fake, store: store}
}

func (td *testDaemon) start(t *testing.T) {
	t.Helper()
	require.NoError(t, td.Start(t.Context()))
	t.Cleanup(func() { _ = td.Stop(context.Background()) })
}

func TestNewDaemonRequiresConfig(t *testing.T) {
	_, err := NewDaemon(nil, "")
	require.Error(t, err)
}

func TestDaemonLifecycle(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted)
	assert.Equal(t, StatusStopped, td.GetStatus())
	assert.Nil(t, td.Tracker())

	td.start(t)
	assert.Equal(t, StatusRunning, td.GetStatus())
	require.NotNil(t, td.Tracker())
	assert.Error(t, td.Start(t.Context()), "second start must be rejected")

	require.NoError(t, td.Stop(t.Context()))
	assert.Equal(t, StatusStopped, td.GetStatus())
	assert.Nil(t, td.Tracker())
	require.NoError(t, td.Stop(t.Context()), "stopping twice is a no-op")

	// Restarting picks the persisted history back up.
	td.start(t)
	require.NotNil(t, td.Tracker())
	assert.Len(t, td.Tracker().History(), 1)
}

func TestDaemonOpensConfiguredStore(t *testing.T) {
	cfg := config.Default()
	cfg.Daemon.AdminAddr = ""
	cfg.Storage.Backend = config.StorageSQLite
	cfg.Storage.Path = t.TempDir() + "/calfstretch.db"
	cfg.Notifications.Backend = config.NotifyLog
	cfg.Notifications.Permission = config.PermissionGranted

	d, err := NewDaemon(cfg, "", WithClock(clockwork.NewFakeClockAt(morning)), WithLocation(time.UTC))
	require.NoError(t, err)
	require.NoError(t, d.Start(t.Context()))
	require.NotNil(t, d.Tracker())
	assert.Equal(t, "2024-01-01", d.Tracker().History()[0].Date)
	require.NoError(t, d.Stop(t.Context()))
}

func TestDaemonServesAdminHTTP(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted, func(c *config.Config) {
		c.Daemon.AdminAddr = "127.0.0.1:0"
	})
	td.start(t)
	require.NotEmpty(t, td.AdminAddr())

	resp, err := http.Get("http://" + td.AdminAddr() + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, HealthStatusHealthy, health.Status)
}

func TestRolloverJobSeedsNewDay(t *testing.T) {
	lateNight := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	td := newTestDaemon(t, lateNight, config.PermissionGranted)
	td.start(t)

	expected := time.Date(2024, 1, 2, 0, 0, 5, 0, time.UTC)
	require.Eventually(t, func() bool {
		next, err := td.scheduler.NextRollover()
		return err == nil && next.Equal(expected)
	}, 2*time.Second, 10*time.Millisecond)

	td.clock.Advance(2 * time.Minute)

	require.Eventually(t, func() bool {
		history := td.Tracker().History()
		return len(history) == 2 && history[1].Date == "2024-01-02"
	}, 2*time.Second, 10*time.Millisecond)

	completed, target := td.Tracker().DailyProgress()
	assert.Equal(t, 0, completed)
	assert.Equal(t, 4, target)
}

func TestReloadConfigAppliesPermissionPolicy(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted)
	td.start(t)
	require.Equal(t, notify.PermissionGranted, td.Tracker().Permission())

	next := config.Default()
	next.Notifications.Permission = config.PermissionDenied
	require.NoError(t, td.ReloadConfig(t.Context(), next))

	assert.Equal(t, notify.PermissionDenied, td.Tracker().Permission())
	assert.Same(t, next, td.Config())
	assert.Empty(t, td.Tracker().Status().Reminders[0].Deadline)
}

func TestReloadConfigKeepsPreviousOnInvalidLimits(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted)
	td.start(t)
	previous := td.Config()

	bad := config.Default()
	bad.Routine.HoldSeconds = 0
	require.Error(t, td.ReloadConfig(t.Context(), bad))
	assert.Same(t, previous, td.Config())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func send(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestAdminHandlerBeforeStart(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted)
	h := td.adminHandler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unhealthy"`)

	rec = get(t, h, "/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"daemon"`)
}

func TestAdminHandlerHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		td := newTestDaemon(t, morning, config.PermissionGranted)
		td.start(t)
		rec := get(t, td.adminHandler(), "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)

		var health HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, HealthStatusHealthy, health.Status)
		assert.Len(t, health.Checks, 3)
	})

	t.Run("permission denied degrades", func(t *testing.T) {
		td := newTestDaemon(t, morning, config.PermissionDenied)
		td.start(t)
		rec := get(t, td.adminHandler(), "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)

		var health HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, HealthStatusDegraded, health.Status)
		assert.Equal(t, HealthStatusDegraded, health.Checks[2].Status)
	})
}

func TestAdminHandlerStatus(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted)
	td.start(t)

	rec := get(t, td.adminHandler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status tracker.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "Session 1/4", status.Session)
	assert.Equal(t, "0/4", status.Progress)
	assert.Equal(t, "2024-01-01", status.Today)
	assert.Len(t, status.Reminders, 4)
}

func TestAdminHandlerSessionActions(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted)
	td.start(t)
	h := td.adminHandler()

	rec := send(t, h, http.MethodPost, "/api/session/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, td.Tracker().Routine().Running)

	rec = send(t, h, http.MethodPost, "/api/session/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, td.Tracker().Routine().Running)

	rec = send(t, h, http.MethodPost, "/api/session/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, td.Tracker().SessionIndex())

	rec = send(t, h, http.MethodPost, "/api/session/jump", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/api/session/start")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdminHandlerReminders(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted)
	td.start(t)
	h := td.adminHandler()

	rec := send(t, h, http.MethodPost, "/api/reminders/4/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":true`)
	assert.Contains(t, rec.Body.String(), `"permission":"granted"`)

	rec = send(t, h, http.MethodPut, "/api/reminders/1/time", `{"time":"07:30"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"time":"07:30"`)

	rec = send(t, h, http.MethodPut, "/api/reminders/1/time", `{"time":"7:30"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "07:30", td.Tracker().Reminders()[0].Time.String())

	rec = send(t, h, http.MethodPut, "/api/reminders/1/time", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(t, h, http.MethodPost, "/api/reminders/abc/toggle", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(t, h, http.MethodPost, "/api/reminders/99/toggle", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/api/reminders")
	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []tracker.ReminderStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 4)
	assert.True(t, statuses[3].Enabled)
}

func TestAdminHandlerHistory(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted)
	td.start(t)
	h := td.adminHandler()

	rec := get(t, h, "/api/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"2024-01-01"`)

	rec = send(t, h, http.MethodPost, "/api/history/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, td.Tracker().History(), 1)
}

func TestAdminHandlerMetrics(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted)
	td.start(t)

	rec := get(t, td.adminHandler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "calfstretch_reminders_armed")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAdminHandlerMetricsDisabled(t *testing.T) {
	td := newTestDaemon(t, morning, config.PermissionGranted, func(c *config.Config) {
		c.Monitoring.Metrics.Enabled = false
	})
	td.start(t)

	rec := get(t, td.adminHandler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDaemonFallsBackToMemoryWhenStoreUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := config.Default()
	cfg.Daemon.AdminAddr = ""
	cfg.Storage.Backend = config.StorageFile
	cfg.Storage.Path = filepath.Join(blocker, "data")
	cfg.Notifications.Backend = config.NotifyLog
	cfg.Notifications.Permission = config.PermissionGranted

	d, err := NewDaemon(cfg, "", WithClock(clockwork.NewFakeClockAt(morning)), WithLocation(time.UTC))
	require.NoError(t, err)
	require.NoError(t, d.Start(t.Context()))
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	assert.Equal(t, StatusRunning, d.GetStatus())
	trk := d.Tracker()
	require.NotNil(t, trk)
	assert.Equal(t, "2024-01-01", trk.History()[0].Date)
	require.Len(t, trk.Advisories(), 1)
	assert.Equal(t, events.AdvisoryStorageDegraded, trk.Advisories()[0].Kind)

	health := d.PerformHealthChecks()
	assert.Equal(t, HealthStatusDegraded, health.Status)
}
