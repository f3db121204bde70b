package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(impersonationTotal) }

var impersonationTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "impersonation_total",
		Help: "Impersonation lifecycle events, by operation and kind.",
	},
	[]string{"op", "kind"}, // op: 'begin', 'restore', 'restore_invalid'
)

func IncImpersonation(op, kind string) {
	impersonationTotal.WithLabelValues(norm(op), norm(kind)).Inc()
}
