package adapters

import (
	"context"

	"go-storefront/internal/orders/domain"
	"go-storefront/pkg/events"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/rabbitmq"
)

// RabbitMQPublisher implements EventPublisher using RabbitMQ
type RabbitMQPublisher struct {
	publisher *rabbitmq.Publisher
	log       *logger.Logger
}

// NewRabbitMQPublisher creates a new RabbitMQ event publisher
func NewRabbitMQPublisher(publisher *rabbitmq.Publisher, log *logger.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		publisher: publisher,
		log:       log,
	}
}

// PublishOrderCreated publishes an order created event
func (p *RabbitMQPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	event := events.NewOrderCreatedEvent(events.OrderCreatedPayload{
		ID:            order.ID.String(),
		BuyerID:       order.BuyerID,
		TotalAmount:   order.TotalAmount.StringFixed(2),
		PaymentMethod: string(order.PaymentMethod),
		PaymentStatus: string(order.PaymentStatus),
		ItemCount:     len(order.LineItems),
		CreatedAt:     order.CreatedAt,
	}, logger.GetTraceID(ctx))

	return p.publisher.Publish(ctx, events.RoutingKeyOrderCreated, event)
}

// PublishOrderPaymentUpdated publishes a payment status change
func (p *RabbitMQPublisher) PublishOrderPaymentUpdated(ctx context.Context, order *domain.Order) error {
	event := events.NewOrderPaymentUpdatedEvent(events.OrderPaymentUpdatedPayload{
		ID:            order.ID.String(),
		BuyerID:       order.BuyerID,
		PaymentStatus: string(order.PaymentStatus),
		PaidAt:        order.PaidAt,
	}, logger.GetTraceID(ctx))

	return p.publisher.Publish(ctx, events.RoutingKeyOrderPaymentUpdated, event)
}

// PublishDeliveryStatusChanged publishes a delivery transition
func (p *RabbitMQPublisher) PublishDeliveryStatusChanged(ctx context.Context, delivery *domain.Delivery) error {
	last := delivery.LastChange()
	event := events.NewDeliveryStatusChangedEvent(events.DeliveryStatusChangedPayload{
		DeliveryID: delivery.ID.String(),
		OrderID:    delivery.OrderID.String(),
		Status:     string(last.Status),
		ChangedAt:  last.ChangedAt,
	}, logger.GetTraceID(ctx))

	return p.publisher.Publish(ctx, events.RoutingKeyDeliveryStatusChanged, event)
}

// PublishNotificationCreated mirrors a stored notification onto the bus
func (p *RabbitMQPublisher) PublishNotificationCreated(ctx context.Context, payload events.NotificationCreatedPayload) error {
	event := events.NewNotificationCreatedEvent(payload, logger.GetTraceID(ctx))
	return p.publisher.Publish(ctx, events.RoutingKeyNotificationCreated, event)
}
