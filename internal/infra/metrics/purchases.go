package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		purchasesCreatedTotal,
		purchasesExpiredTotal,
		purchasesStartedTotal,
	)
}

var (
	purchasesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_created_total",
			Help: "Ledger entries created, labeled by source (gateway/manual/direct).",
		},
		[]string{"source"},
	)

	purchasesExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "purchases_expired_total",
			Help: "Purchases transitioned to expired by the worker.",
		},
	)

	purchasesStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "purchases_started_total",
			Help: "Pending purchases activated when their start date arrived.",
		},
	)
)

func IncPurchaseCreated(source string) {
	purchasesCreatedTotal.WithLabelValues(norm(source)).Inc()
}

func AddPurchasesExpired(n int) {
	purchasesExpiredTotal.Add(float64(n))
}

func AddPurchasesStarted(n int) {
	purchasesStartedTotal.Add(float64(n))
}
