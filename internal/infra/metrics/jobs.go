package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(aiJobsProcessedTotal, aiJobsEnqueuedTotal, aiJobsStoppedTotal, aiJobRetriesTotal)
}

var aiJobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ai_jobs_processed_total",
		Help: "Total number of AI jobs processed, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var aiJobsEnqueuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ai_jobs_enqueued_total",
		Help: "Total number of AI jobs accepted into the queue, by kind.",
	},
	[]string{"kind"}, // 'grading', 'generation', 'assistant'
)

var aiJobsStoppedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ai_jobs_stopped_total",
		Help: "Total number of AI jobs cancelled via user stop-all.",
	},
)

var aiJobRetriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ai_job_retries_total",
		Help: "Total provider retries across all jobs.",
	},
)

func IncAIJob(status string)     { aiJobsProcessedTotal.WithLabelValues(norm(status)).Inc() }
func IncJobEnqueued(kind string) { aiJobsEnqueuedTotal.WithLabelValues(norm(kind)).Inc() }
func AddJobsStopped(n int)       { aiJobsStoppedTotal.Add(float64(n)) }
func IncJobRetry()               { aiJobRetriesTotal.Inc() }
