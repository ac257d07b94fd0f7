// Package metrics provides the observability hooks used while compiling build plans.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing needs nil checks:
//
//	c := compile.New(compile.Options{Recorder: metrics.NoopRecorder{}})
//
// The CLI swaps in a PrometheusRecorder when --metrics-file is given and writes
// a text exposition snapshot once the command finishes.
package metrics
