package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(workItemsArchivedTotal)
}

var workItemsArchivedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "work_items_archived_total",
		Help: "Published work items moved to archived by the sweep.",
	},
)

func AddWorkItemsArchived(n int) { workItemsArchivedTotal.Add(float64(n)) }
