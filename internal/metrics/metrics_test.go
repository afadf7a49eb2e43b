package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebeauty/paratest/internal/controller"
	"github.com/codebeauty/paratest/internal/ledger"
	"github.com/codebeauty/paratest/internal/runner"
)

func sampleReport() *controller.Report {
	return &controller.Report{
		State: controller.StateAborted,
		Summary: ledger.Summary{
			Succeeded:  []string{"a"},
			NoTests:    []string{"b"},
			Failed:     []string{"c"},
			Unfinished: []string{"d"},
		},
		Results: []runner.Result{
			{Project: "a", Admitted: true, Outcome: runner.Outcome{Kind: runner.KindSuccess}, Duration: 12 * time.Second},
			{Project: "b", Admitted: true, Outcome: runner.Outcome{Kind: runner.KindNoTests}, Duration: time.Second},
			{Project: "c", Admitted: true, Outcome: runner.Outcome{Kind: runner.KindFailure}, Duration: 40 * time.Second},
			{Project: "d"},
		},
		CompletedAt: time.Unix(1700000000, 0),
	}
}

func TestObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe(sampleReport())

	assert.Equal(t, 1.0, testutil.ToFloat64(r.projects.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.projects.WithLabelValues("unfinished")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.aborted))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastRun))
	assert.Equal(t, 3, testutil.CollectAndCount(r.duration))
}

func TestWriteFile(t *testing.T) {
	r := NewRecorder()
	r.Observe(sampleReport())

	path := filepath.Join(t.TempDir(), "paratest.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `paratest_projects{outcome="succeeded"} 1`)
	assert.Contains(t, string(data), "paratest_run_aborted 1")
}
