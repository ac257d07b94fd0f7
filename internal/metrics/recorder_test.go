package metrics

import (
	"testing"
	"time"
)

// Compile-time checks that both implementations satisfy Recorder.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("filter", time.Millisecond)
	r.IncStageResult("filter", ResultFailed)
	r.ObserveCompileDuration(time.Second)
	r.IncCompileOutcome(OutcomeSuccess)
	r.ObserveSourceFiles(3)
	r.SetBuildUnits(1)
	r.IncHandoff(true)
}
