package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Order submission outcomes.
const (
	OrderResultAccepted   = "accepted"
	OrderResultRejected   = "rejected"
	OrderResultFailed     = "failed"
	OrderResultStoreClose = "store_closed"
)

// StorefrontMetrics tracks cart activity and order submissions.
type StorefrontMetrics struct {
	ordersSubmitted *prometheus.CounterVec
	orderTotal      prometheus.Histogram
	cartMutations   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// NewStorefrontMetrics registers the storefront collectors on reg.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	ordersSubmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_submitted_total",
		Help:      "Order submissions by result.",
	}, []string{"result"})
	orderTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_total_amount",
		Help:      "Order totals in BRL, delivery fee included.",
		Buckets:   []float64{20, 40, 60, 80, 100, 150, 200, 300, 500},
	})
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation.",
	}, []string{"op"})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Guest sessions currently held in memory.",
	})
	reg.MustRegister(ordersSubmitted, orderTotal, cartMutations, activeSessions)
	return &StorefrontMetrics{
		ordersSubmitted: ordersSubmitted,
		orderTotal:      orderTotal,
		cartMutations:   cartMutations,
		activeSessions:  activeSessions,
	}
}

// OrderSubmitted counts one submission. The total is observed only for accepted orders.
func (m *StorefrontMetrics) OrderSubmitted(result string, total decimal.Decimal) {
	if m == nil || m.ordersSubmitted == nil {
		return
	}
	m.ordersSubmitted.WithLabelValues(normalizeLabel(result)).Inc()
	if result == OrderResultAccepted {
		amount, _ := total.Float64()
		m.orderTotal.Observe(amount)
	}
}

// CartMutation counts one cart operation.
func (m *StorefrontMetrics) CartMutation(op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// SetActiveSessions reports the live session count.
func (m *StorefrontMetrics) SetActiveSessions(n int) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
