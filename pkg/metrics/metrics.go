package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels
const (
	ResultCreated   = "created"
	ResultDuplicate = "duplicate"
	ResultUnpaid    = "unpaid"
	ResultFailed    = "failed"
)

// Business holds Prometheus metrics for the order lifecycle
type Business struct {
	OrdersCreated       *prometheus.CounterVec
	OrderValue          *prometheus.HistogramVec
	CheckoutSessions    *prometheus.CounterVec
	Reconciliations     *prometheus.CounterVec
	LowStockAlerts      prometheus.Counter
	NotificationsFailed prometheus.Counter
	DeliveryTransitions *prometheus.CounterVec
}

// NewBusiness registers the business collectors with reg
func NewBusiness(namespace string, reg prometheus.Registerer) *Business {
	factory := promauto.With(reg)

	return &Business{
		OrdersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders written to the ledger",
		}, []string{"payment_method"}),
		OrderValue: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value",
			Help:      "Order totals in major currency units",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"payment_method"}),
		CheckoutSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Hosted checkout sessions requested from the payment provider",
		}, []string{"result"}),
		Reconciliations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Hosted checkout reconciliation attempts",
		}, []string{"result"}),
		LowStockAlerts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_alerts_total",
			Help:      "Low stock alerts raised after a decrement",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notifications that could not be recorded",
		}),
		DeliveryTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_transitions_total",
			Help:      "Delivery status changes by target status",
		}, []string{"status"}),
	}
}

// OrderCreated records a new ledger entry
func (b *Business) OrderCreated(paymentMethod string, total float64) {
	b.OrdersCreated.WithLabelValues(paymentMethod).Inc()
	b.OrderValue.WithLabelValues(paymentMethod).Observe(total)
}

// CheckoutSession records the outcome of a session request
func (b *Business) CheckoutSession(result string) {
	b.CheckoutSessions.WithLabelValues(result).Inc()
}

// Reconciliation records the outcome of a reconciliation attempt
func (b *Business) Reconciliation(result string) {
	b.Reconciliations.WithLabelValues(result).Inc()
}

// LowStock records a low stock alert
func (b *Business) LowStock() {
	b.LowStockAlerts.Inc()
}

// NotificationFailed records a dropped notification
func (b *Business) NotificationFailed() {
	b.NotificationsFailed.Inc()
}

// DeliveryTransition records a delivery status change
func (b *Business) DeliveryTransition(status string) {
	b.DeliveryTransitions.WithLabelValues(status).Inc()
}
