package events

import "time"

// Exchange names
const (
	ExchangeOrders   = "orders.events"
	ExchangePayments = "payments.events"
)

// Routing keys
const (
	RoutingKeyOrderCreated          = "order.created"
	RoutingKeyOrderPaymentUpdated   = "order.payment_updated"
	RoutingKeyDeliveryStatusChanged = "delivery.status_changed"
	RoutingKeyNotificationCreated   = "notification.created"
	RoutingKeyCheckoutCompleted     = "checkout.completed"
)

// Envelope is the common wrapper for every published event
type Envelope[T any] struct {
	Version   string    `json:"version"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id"`
	Payload   T         `json:"payload"`
}

func newEnvelope[T any](eventType, traceID string, payload T) *Envelope[T] {
	return &Envelope[T]{
		Version:   "1.0",
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
		Payload:   payload,
	}
}

// OrderCreatedPayload contains order data
type OrderCreatedPayload struct {
	ID            string    `json:"id"`
	BuyerID       string    `json:"buyer_id"`
	TotalAmount   string    `json:"total_amount"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	ItemCount     int       `json:"item_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewOrderCreatedEvent creates a new order.created event
func NewOrderCreatedEvent(payload OrderCreatedPayload, traceID string) *Envelope[OrderCreatedPayload] {
	return newEnvelope(RoutingKeyOrderCreated, traceID, payload)
}

// OrderPaymentUpdatedPayload is published when an order's payment status changes
type OrderPaymentUpdatedPayload struct {
	ID            string     `json:"id"`
	BuyerID       string     `json:"buyer_id"`
	PaymentStatus string     `json:"payment_status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// NewOrderPaymentUpdatedEvent creates a new order.payment_updated event
func NewOrderPaymentUpdatedEvent(payload OrderPaymentUpdatedPayload, traceID string) *Envelope[OrderPaymentUpdatedPayload] {
	return newEnvelope(RoutingKeyOrderPaymentUpdated, traceID, payload)
}

// DeliveryStatusChangedPayload is published on every delivery transition
type DeliveryStatusChangedPayload struct {
	DeliveryID string    `json:"delivery_id"`
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status"`
	ChangedAt  time.Time `json:"changed_at"`
}

// NewDeliveryStatusChangedEvent creates a new delivery.status_changed event
func NewDeliveryStatusChangedEvent(payload DeliveryStatusChangedPayload, traceID string) *Envelope[DeliveryStatusChangedPayload] {
	return newEnvelope(RoutingKeyDeliveryStatusChanged, traceID, payload)
}

// NotificationCreatedPayload mirrors a stored notification record
type NotificationCreatedPayload struct {
	ID        string    `json:"id"`
	Audience  string    `json:"audience"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	OrderID   string    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationCreatedEvent creates a new notification.created event
func NewNotificationCreatedEvent(payload NotificationCreatedPayload, traceID string) *Envelope[NotificationCreatedPayload] {
	return newEnvelope(RoutingKeyNotificationCreated, traceID, payload)
}

// CheckoutCompletedPayload carries a hosted checkout session that the payment
// provider reported as completed
type CheckoutCompletedPayload struct {
	SessionID string `json:"session_id"`
	EventID   string `json:"event_id"`
}

// CheckoutCompletedEvent is published by the gateway's webhook intake
type CheckoutCompletedEvent = Envelope[CheckoutCompletedPayload]

// NewCheckoutCompletedEvent creates a new checkout.completed event
func NewCheckoutCompletedEvent(sessionID, eventID, traceID string) *CheckoutCompletedEvent {
	return newEnvelope(RoutingKeyCheckoutCompleted, traceID, CheckoutCompletedPayload{
		SessionID: sessionID,
		EventID:   eventID,
	})
}
