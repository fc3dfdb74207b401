// Package metrics registers the application's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegistrationsTotal counts registration operations by operation
// (add_subevents, edit) and result (ok, rejected, error).
var RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "registrations_total",
	Help: "Total number of registration operations.",
}, []string{"operation", "result"})
