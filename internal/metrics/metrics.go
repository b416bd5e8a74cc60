// Package metrics 定义 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

const namespace = "genetic_scheduler"

var (
	// 按最终状态（finished / failed / cached）统计的任务数
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "jobs_total",
		Help:      "Total optimization jobs by outcome",
	}, []string{"status"})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "job_duration_seconds",
		Help:      "Wall time of a single optimization run",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "jobs_in_flight",
		Help:      "Optimization jobs currently running",
	})

	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "generations_total",
		Help:      "Total generations evaluated",
	})

	lastBestFitness = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "last_best_fitness",
		Help:      "Best fitness of the most recently evaluated generation",
	})

	httpRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status code",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func RecordJob(status string, durationSec float64) {
	jobsTotal.WithLabelValues(status).Inc()
	if durationSec > 0 {
		jobDuration.Observe(durationSec)
	}
}

func JobStarted() {
	jobsInFlight.Inc()
}

func JobDone() {
	jobsInFlight.Dec()
}

func RecordHTTPRequest(method, route, status string, durationSec float64) {
	httpRequests.WithLabelValues(method, route, status).Observe(durationSec)
}

// GenerationObserver 把每一代的统计数据记录到指标中
type GenerationObserver struct{}

func (GenerationObserver) ObserveGeneration(stats domain.GenerationStats) {
	generationsTotal.Inc()
	lastBestFitness.Set(float64(stats.BestFitness))
}
