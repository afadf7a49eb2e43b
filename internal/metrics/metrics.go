// Package metrics exports the result of a run as a Prometheus text file for
// the node_exporter textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codebeauty/paratest/internal/controller"
)

const Namespace = "paratest"

type Recorder struct {
	registry *prometheus.Registry

	projects *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	aborted  prometheus.Gauge
	lastRun  prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		projects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "projects",
			Help:      "Projects in the last run by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "project_duration_seconds",
			Help:      "Wall time of each completed project test invocation",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"outcome"}),
		aborted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_aborted",
			Help:      "1 if the last run was aborted",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Completion time of the last run",
		}),
	}
	r.registry.MustRegister(r.projects, r.duration, r.aborted, r.lastRun)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe loads a finished run into the collectors.
func (r *Recorder) Observe(report *controller.Report) {
	s := report.Summary
	r.projects.WithLabelValues("no_tests").Set(float64(len(s.NoTests)))
	r.projects.WithLabelValues("succeeded").Set(float64(len(s.Succeeded)))
	r.projects.WithLabelValues("failed").Set(float64(len(s.Failed)))
	r.projects.WithLabelValues("unfinished").Set(float64(len(s.Unfinished)))

	recorded := make(map[string]bool)
	for _, lists := range [][]string{s.NoTests, s.Succeeded, s.Failed} {
		for _, p := range lists {
			recorded[p] = true
		}
	}
	for _, res := range report.Results {
		if !recorded[res.Project] {
			continue
		}
		r.duration.WithLabelValues(string(res.Outcome.Kind)).Observe(res.Duration.Seconds())
	}

	if report.State == controller.StateAborted {
		r.aborted.Set(1)
	} else {
		r.aborted.Set(0)
	}
	r.lastRun.Set(float64(report.CompletedAt.Unix()))
}

// WriteFile writes the collectors to path atomically.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
