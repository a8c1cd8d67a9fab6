package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records housekeeping job runs and how many rows each purged.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	purged   *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job executions by outcome.",
	}, []string{"job", "outcome"})
	purged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_rows_purged_total",
		Help: "Rows removed by cron jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, purged)
	return &CronJobMetrics{duration: duration, runs: runs, purged: purged}
}

// ObserveRun records one execution of job. A nil err counts as success.
func (c *CronJobMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, outcome).Inc()
	c.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// AddPurged adds rows removed by job.
func (c *CronJobMetrics) AddPurged(job string, rows int64) {
	if c == nil || c.purged == nil || rows <= 0 {
		return
	}
	c.purged.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}
