// Package obs exposes the prometheus instrumentation for the auth core.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var authOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Credential lifecycle operations by outcome.",
	},
	[]string{"operation", "outcome"},
)

// Outcome labels used by RecordAuth.
const (
	OutcomeOK       = "ok"
	OutcomeDenied   = "denied"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Init registers the collectors with the default registry.  Call once at
// startup.
func Init() {
	prometheus.MustRegister(authOperations)
}

// RecordAuth counts one lifecycle operation (signup, signin, refresh,
// logout) with its outcome.
func RecordAuth(operation, outcome string) {
	authOperations.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
