package metrics

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	sessionsCompleted prom.Counter
	holdsCompleted    *prom.CounterVec
	remindersFired    *prom.CounterVec
	remindersArmed    prom.Gauge
	storageFailures   *prom.CounterVec
	streak            prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.sessionsCompleted = prom.NewCounter(prom.CounterOpts{
			Namespace: "calfstretch",
			Name:      "sessions_completed_total",
			Help:      "Stretching sessions completed (all repetitions on both legs)",
		})
		pr.holdsCompleted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "calfstretch",
			Name:      "holds_completed_total",
			Help:      "Individual holds completed by leg",
		}, []string{"leg"})
		pr.remindersFired = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "calfstretch",
			Name:      "reminders_fired_total",
			Help:      "Reminder notifications emitted by label",
		}, []string{"label"})
		pr.remindersArmed = prom.NewGauge(prom.GaugeOpts{
			Namespace: "calfstretch",
			Name:      "reminders_armed",
			Help:      "Reminders currently holding a pending fire",
		})
		pr.storageFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "calfstretch",
			Name:      "storage_failures_total",
			Help:      "Storage adapter failures by operation",
		}, []string{"op"})
		pr.streak = prom.NewGauge(prom.GaugeOpts{
			Namespace: "calfstretch",
			Name:      "streak_days",
			Help:      "Current streak of days meeting the daily target",
		})
		reg.MustRegister(pr.sessionsCompleted, pr.holdsCompleted, pr.remindersFired, pr.remindersArmed, pr.storageFailures, pr.streak)
	})
	return pr
}

func (p *PrometheusRecorder) IncSessionCompleted() {
	if p == nil || p.sessionsCompleted == nil {
		return
	}
	p.sessionsCompleted.Inc()
}

func (p *PrometheusRecorder) IncHoldCompleted(leg string) {
	if p == nil || p.holdsCompleted == nil {
		return
	}
	p.holdsCompleted.WithLabelValues(leg).Inc()
}

func (p *PrometheusRecorder) IncReminderFired(label string) {
	if p == nil || p.remindersFired == nil {
		return
	}
	p.remindersFired.WithLabelValues(label).Inc()
}

func (p *PrometheusRecorder) SetRemindersArmed(n int) {
	if p == nil || p.remindersArmed == nil {
		return
	}
	p.remindersArmed.Set(float64(n))
}

func (p *PrometheusRecorder) IncStorageFailure(op string) {
	if p == nil || p.storageFailures == nil {
		return
	}
	p.storageFailures.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) SetStreak(days int) {
	if p == nil || p.streak == nil {
		return
	}
	p.streak.Set(float64(days))
}
