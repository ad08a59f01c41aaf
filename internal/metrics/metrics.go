package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "marble_mock"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of API requests, labeled by route and status.",
		},
		[]string{"route", "status"},
	)

	UploadsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_received_total",
			Help:      "Total number of media uploads received, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	OperationsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_created_total",
			Help:      "Total number of generation operations started.",
		},
	)

	OperationsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_completed_total",
			Help:      "Total number of operations reaching a terminal state, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	OperationPollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_polls_total",
			Help:      "Total number of operation status polls served.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		UploadsReceivedTotal,
		OperationsCreatedTotal,
		OperationsCompletedTotal,
		OperationPollsTotal,
	)
}
