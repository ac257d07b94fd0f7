package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "buildplan"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	compileDuration prom.Histogram
	compileOutcome  *prom.CounterVec
	sourceFiles     prom.Histogram
	buildUnits      prom.Gauge
	handoffs        *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual compile stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		compileDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Total duration of a declaration compilation",
			Buckets:   prom.DefBuckets,
		}),
		compileOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compile_outcomes_total",
			Help:      "Compilations by final status",
		}, []string{"outcome"}),
		sourceFiles: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "source_files",
			Help:      "Files remaining in the filtered source tree",
			Buckets:   prom.ExponentialBuckets(1, 4, 10),
		}),
		buildUnits: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "build_units",
			Help:      "Build units in the last assembled plan",
		}),
		handoffs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Plan hand-offs by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.compileDuration, pr.compileOutcome,
		pr.sourceFiles, pr.buildUnits, pr.handoffs)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration) {
	if p == nil || p.compileDuration == nil {
		return
	}
	p.compileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCompileOutcome(outcome OutcomeLabel) {
	if p == nil || p.compileOutcome == nil {
		return
	}
	p.compileOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveSourceFiles(n int) {
	if p == nil || p.sourceFiles == nil {
		return
	}
	p.sourceFiles.Observe(float64(n))
}

func (p *PrometheusRecorder) SetBuildUnits(n int) {
	if p == nil || p.buildUnits == nil {
		return
	}
	p.buildUnits.Set(float64(n))
}

func (p *PrometheusRecorder) IncHandoff(success bool) {
	if p == nil || p.handoffs == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.handoffs.WithLabelValues(res).Inc()
}
