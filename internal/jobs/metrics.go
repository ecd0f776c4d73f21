// Package jobmetrics instruments background export runs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	archives *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer. A nil registerer
// uses the process-wide default, registered once.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	defaultOnce.Do(func() {
		defaultMetrics = register(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func register(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labexport_jobs_total",
			Help: "Job runs by job name and status.",
		}, []string{"job", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "labexport_job_duration_seconds",
			Help: "Wall time of job runs.",
			// Monthly exports range from sub-second demo runs to several minutes.
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		archives: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labexport_job_archives_total",
			Help: "Scheduled export results by kind.",
		}, []string{"job", "kind"}),
	}
}

// Run measures one job execution.
type Run struct {
	metrics *Metrics
	job     string
	started time.Time
}

// Begin starts measuring a run of job. It is safe on a nil Metrics.
func (m *Metrics) Begin(job string) *Run {
	return &Run{metrics: m, job: job, started: time.Now()}
}

// Done records the run and hands err back so it can be used in a deferred
// assignment.
func (r *Run) Done(err error) error {
	if r == nil || r.metrics == nil {
		return err
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	r.metrics.runs.WithLabelValues(r.job, status).Inc()
	r.metrics.duration.WithLabelValues(r.job).Observe(time.Since(r.started).Seconds())
	return err
}

// AddArchive counts a stored export result; empty means the range had no
// workbooks to package.
func (m *Metrics) AddArchive(job string, empty bool) {
	if m == nil {
		return
	}
	kind := "archive"
	if empty {
		kind = "empty"
	}
	m.archives.WithLabelValues(job, kind).Inc()
}
