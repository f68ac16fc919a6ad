package docstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonoreport_docstore_operations_total",
		Help: "Document store operations by collection, operation, and outcome",
	}, []string{"collection", "op", "outcome"})

	migrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonoreport_docstore_migrations_total",
		Help: "Documents migrated to the current schema version at store open",
	}, []string{"collection", "outcome"})
)

func recordOp(collection, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	opsTotal.WithLabelValues(collection, op, outcome).Inc()
}
