// Package metrics provides the observability hooks for the stretching tracker.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no caller needs nil checks:
//
//	type Scheduler struct {
//	    recorder metrics.Recorder
//	}
//
// When monitoring.metrics.enabled is set, the daemon swaps in a
// PrometheusRecorder bound to its registry and serves it over HTTP.
package metrics
