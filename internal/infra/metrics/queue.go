package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(queueInFlight, queueAvailableSlots, admissionDeferredTotal)
}

var queueInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "queue_in_flight_jobs",
		Help: "Jobs currently holding an admission slot.",
	},
)

var queueAvailableSlots = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "queue_available_slots",
		Help: "Free admission slots under the configured ceiling.",
	},
)

var admissionDeferredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "queue_admission_deferred_total",
		Help: "Dispatch attempts deferred by the admission controller (not failures).",
	},
)

func SetQueueGauges(inFlight, available int) {
	queueInFlight.Set(float64(inFlight))
	queueAvailableSlots.Set(float64(available))
}

func IncAdmissionDeferred() { admissionDeferredTotal.Inc() }
