package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("fingerprint", 150*time.Millisecond)
	pr.IncStageResult("fingerprint", ResultSuccess)
	pr.ObserveCompileDuration(500 * time.Millisecond)
	pr.IncCompileOutcome(OutcomeSuccess)
	pr.ObserveSourceFiles(12)
	pr.SetBuildUnits(4)
	pr.IncHandoff(true)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	require.Contains(t, names, "buildplan_stage_duration_seconds")
	require.Contains(t, names, "buildplan_compile_outcomes_total")
	require.Contains(t, names, "buildplan_build_units")
}

func TestNilPrometheusRecorder(t *testing.T) {
	var pr *PrometheusRecorder
	require.NotPanics(t, func() {
		pr.ObserveStageDuration("x", time.Second)
		pr.IncCompileOutcome(OutcomeFailed)
		pr.IncHandoff(false)
	})
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncCompileOutcome(OutcomeCanceled)

	path := filepath.Join(t.TempDir(), "buildplan.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `buildplan_compile_outcomes_total{outcome="canceled"} 1`)
}
