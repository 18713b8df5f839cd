// Package observability carries the structured logging and Prometheus
// surface shared by the ledger engine, the injector, and the session runner.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Settlements counts committed settlements by signature and action.
	Settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradetrap_settlements_total",
			Help: "Committed settlements",
		},
		[]string{"signature", "action"},
	)

	// SettlementFailures counts rejected settlements by failure kind.
	SettlementFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradetrap_settlement_failures_total",
			Help: "Settlements rejected before any write",
		},
		[]string{"signature", "reason"},
	)

	// Injections counts poisoned records appended to the journal.
	Injections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradetrap_injections_total",
			Help: "Poisoned journal records appended",
		},
		[]string{"signature"},
	)

	// AuditDrift counts audit entries that recorded a non-empty delta.
	AuditDrift = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradetrap_audit_drift_total",
			Help: "Audit entries where the agent view diverged from the ledger",
		},
		[]string{"signature"},
	)
)

// Serve exposes /metrics on addr. It blocks, so callers run it in a
// goroutine; errors other than a clean shutdown are returned.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
