package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentAttemptsTotal,
		paymentsRevenueTotal,
	)
}

var (
	paymentAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_attempts_total",
			Help: "Checkout attempts by outcome (success/failed/error/completed).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of completed payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncPaymentAttempt(status string) {
	paymentAttemptsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
