package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation counters, exposed on the debug server's /metrics endpoint.
var (
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "catalogue",
		Name:      "searches_total",
		Help:      "Total number of record searches executed.",
	})

	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalogue",
		Name:      "transactions_total",
		Help:      "Total number of record transactions by operation.",
	}, []string{"operation"})

	transactionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalogue",
		Name:      "transaction_errors_total",
		Help:      "Total number of failed record transactions by operation.",
	}, []string{"operation"})
)

func observeTransaction(operation string, err error) {
	transactionsTotal.WithLabelValues(operation).Inc()
	if err != nil {
		transactionErrorsTotal.WithLabelValues(operation).Inc()
	}
}
