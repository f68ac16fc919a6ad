package license

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	licensesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonoreport_licenses_issued_total",
		Help: "Licenses issued, by plan",
	}, []string{"plan"})

	deviceVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonoreport_device_verifications_total",
		Help: "Device verification outcomes",
	}, []string{"outcome"})

	licensesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sonoreport_licenses_pruned_total",
		Help: "Subscriptions flipped to expired by the prune job",
	})
)
