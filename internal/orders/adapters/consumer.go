package adapters

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"go-storefront/internal/orders/application"
	apperrors "go-storefront/pkg/errors"
	"go-storefront/pkg/events"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/rabbitmq"
)

// CheckoutReconciler is the slice of the order use case the consumer drives
type CheckoutReconciler interface {
	ReconcileHostedCheckout(ctx context.Context, input application.ReconcileInput) (*application.ReconcileOutput, error)
}

// CheckoutCompletedConsumer reconciles sessions reported by the provider webhook
type CheckoutCompletedConsumer struct {
	consumer   *rabbitmq.Consumer
	reconciler CheckoutReconciler
	log        *logger.Logger
}

// NewCheckoutCompletedConsumer creates a new consumer for checkout.completed events
func NewCheckoutCompletedConsumer(conn *rabbitmq.Connection, reconciler CheckoutReconciler, log *logger.Logger) (*CheckoutCompletedConsumer, error) {
	consumer, err := rabbitmq.NewConsumer(
		conn,
		"orders.checkout-completed", // queue name
		events.ExchangePayments,     // exchange
		[]string{events.RoutingKeyCheckoutCompleted},
		log,
	)
	if err != nil {
		return nil, err
	}

	return &CheckoutCompletedConsumer{
		consumer:   consumer,
		reconciler: reconciler,
		log:        log,
	}, nil
}

// Start starts consuming checkout.completed events
func (c *CheckoutCompletedConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// handleMessage acks settled outcomes, requeues transient failures and
// dead-letters everything else.
func (c *CheckoutCompletedConsumer) handleMessage(ctx context.Context, body []byte) error {
	var event events.CheckoutCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.log.WithContext(ctx).Error("failed to unmarshal CheckoutCompletedEvent",
			zap.Error(err),
		)
		return rabbitmq.Discard(err)
	}
	if event.Payload.SessionID == "" {
		return rabbitmq.Discard(errors.New("checkout.completed without session id"))
	}

	log := c.log.WithContext(ctx).With(
		zap.String("session_id", event.Payload.SessionID),
		zap.String("event_id", event.Payload.EventID),
	)

	out, err := c.reconciler.ReconcileHostedCheckout(ctx, application.ReconcileInput{
		SessionID: event.Payload.SessionID,
	})
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.CodeReconciliation):
		// Paid but unreadable: an operator has to settle it, redelivery cannot.
		log.Error("checkout session needs manual reconciliation", zap.Error(err))
		return nil
	case apperrors.Retriable(err):
		log.Warn("checkout reconciliation failed, requeueing", zap.Error(err))
		return err
	default:
		return rabbitmq.Discard(err)
	}

	if !out.Success {
		log.Info("checkout session reported complete but not paid")
		return nil
	}

	log.Info("checkout session reconciled",
		zap.String("order_id", out.Order.ID.String()),
		zap.Bool("existing", out.Existing),
	)
	return nil
}
