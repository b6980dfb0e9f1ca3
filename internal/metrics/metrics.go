package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Isolation and impersonation counters. UnscopedAccess and ScopeConflict
// indicate a caller bypassed the intended access path and should page.
var (
	UnscopedAccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookable_unscoped_access_total",
		Help: "Operations attempted with no bound tenant outside root mode",
	})

	ScopeConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookable_scope_conflicts_total",
		Help: "Caller conditions that contradicted the bound tenant",
	})

	ImpersonationStarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookable_impersonation_starts_total",
		Help: "Impersonation sessions started",
	})

	ImpersonationStops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookable_impersonation_stops_total",
		Help: "Impersonation sessions stopped",
	})

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookable_audit_write_failures_total",
		Help: "Audit sink writes that failed",
	})
)
