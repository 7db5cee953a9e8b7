package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	LoginSuccessTotal    prometheus.Counter
	LoginFailureTotal    prometheus.Counter
	TokensIssuedTotal    prometheus.Counter
	TokensRefreshedTotal prometheus.Counter
	TokensRevokedTotal   prometheus.Counter
	ReconciliationTotal  *prometheus.CounterVec
)

// InitCustomMetrics initializes and registers custom Prometheus metrics.
// It should be called once at application startup.
func InitCustomMetrics(reg prometheus.Registerer) {
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_logins_failure_total",
		Help: "Total number of failed logins.",
	})
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Total number of tokens issued.",
	})
	TokensRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_refreshed_total",
		Help: "Total number of refresh rotations.",
	})
	TokensRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_revoked_total",
		Help: "Total number of tokens revoked.",
	})
	ReconciliationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_reconciliation_total",
		Help: "External-identity reconciliations by matched branch.",
	}, []string{"branch"})

	if reg == nil {
		return
	}
	for _, c := range []prometheus.Collector{
		LoginSuccessTotal,
		LoginFailureTotal,
		TokensIssuedTotal,
		TokensRefreshedTotal,
		TokensRevokedTotal,
		ReconciliationTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
}

func init() {
	// Metrics must be usable from services even before InitCustomMetrics
	// wires a registry (tests, tools).
	InitCustomMetrics(nil)
}
