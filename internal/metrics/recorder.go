package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// OutcomeLabel is the final status of a whole compilation.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeCanceled OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for compilation and stage metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveCompileDuration(d time.Duration)
	IncCompileOutcome(outcome OutcomeLabel)
	ObserveSourceFiles(n int)
	SetBuildUnits(n int)
	IncHandoff(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveCompileDuration(time.Duration)       {}
func (NoopRecorder) IncCompileOutcome(OutcomeLabel)             {}
func (NoopRecorder) ObserveSourceFiles(int)                     {}
func (NoopRecorder) SetBuildUnits(int)                          {}
func (NoopRecorder) IncHandoff(bool)                            {}
