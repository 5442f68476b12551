package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// gatherValue returns the summed value of a gathered metric family.
func gatherValue(t *testing.T, reg *prom.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		return total
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncSessionCompleted()
	pr.IncSessionCompleted()
	pr.IncHoldCompleted("left")
	pr.IncReminderFired("Morning")
	pr.SetRemindersArmed(3)
	pr.IncStorageFailure("set")
	pr.SetStreak(5)

	require.InDelta(t, 2, gatherValue(t, reg, "calfstretch_sessions_completed_total"), 0)
	require.InDelta(t, 1, gatherValue(t, reg, "calfstretch_reminders_fired_total"), 0)
	require.InDelta(t, 3, gatherValue(t, reg, "calfstretch_reminders_armed"), 0)
	require.InDelta(t, 1, gatherValue(t, reg, "calfstretch_storage_failures_total"), 0)
	require.InDelta(t, 5, gatherValue(t, reg, "calfstretch_streak_days"), 0)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	require.NotPanics(t, func() {
		pr.IncSessionCompleted()
		pr.SetStreak(1)
	})
	require.IsType(t, NoopRecorder{}, OrNoop(nil))
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncSessionCompleted()

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "calfstretch_sessions_completed_total"))
}
