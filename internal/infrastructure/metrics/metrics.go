package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SettlementMetrics covers the verification pipeline end to end.
type SettlementMetrics struct {
	VerificationsTotal       prometheus.CounterVec
	OrdersConfirmedTotal     prometheus.CounterVec
	ConfirmedAmountTotal     prometheus.CounterVec
	FulfillmentFailuresTotal prometheus.CounterVec
	RateLimitRejectionsTotal prometheus.CounterVec
	ChainRPCDuration         prometheus.HistogramVec
}

func NewSettlementMetrics() *SettlementMetrics {
	return &SettlementMetrics{
		VerificationsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_verifications_total",
				Help: "Verification attempts by chain and result",
			},
			[]string{"chain", "result"},
		),

		OrdersConfirmedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_orders_confirmed_total",
				Help: "Orders moved to CONFIRMED by chain",
			},
			[]string{"chain"},
		),

		ConfirmedAmountTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_confirmed_amount_total",
				Help: "Sum of confirmed payment amounts by chain",
			},
			[]string{"chain"},
		),

		FulfillmentFailuresTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_fulfillment_failures_total",
				Help: "Fulfillment step failures on confirmed orders; each one needs remediation",
			},
			[]string{"step"},
		),

		RateLimitRejectionsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_rate_limit_rejections_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"operation"},
		),

		ChainRPCDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "settlement_chain_rpc_duration_seconds",
				Help:    "Chain provider round-trip time per verification",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"chain"},
		),
	}
}

func (m *SettlementMetrics) RecordVerification(chain, result string, durationSeconds float64) {
	m.VerificationsTotal.WithLabelValues(chain, result).Inc()
	m.ChainRPCDuration.WithLabelValues(chain).Observe(durationSeconds)
}

func (m *SettlementMetrics) RecordConfirmed(chain string, amount float64) {
	m.OrdersConfirmedTotal.WithLabelValues(chain).Inc()
	m.ConfirmedAmountTotal.WithLabelValues(chain).Add(amount)
}

func (m *SettlementMetrics) RecordFulfillmentFailure(step string) {
	m.FulfillmentFailuresTotal.WithLabelValues(step).Inc()
}

func (m *SettlementMetrics) RecordRateLimited(operation string) {
	m.RateLimitRejectionsTotal.WithLabelValues(operation).Inc()
}
