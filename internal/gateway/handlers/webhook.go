package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.uber.org/zap"

	"go-storefront/pkg/errors"
	"go-storefront/pkg/events"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/middleware"
)

const maxWebhookBody = 65536

// StripeWebhook accepts provider callbacks
// @Summary Stripe webhook
// @Description Verifies the Stripe-Signature header and queues checkout.session.completed for reconciliation
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 "Accepted"
// @Failure 400 {object} ErrorResponse "Invalid payload or signature"
// @Failure 413 {object} ErrorResponse "Payload too large"
// @Failure 500 {object} ErrorResponse "Event could not be queued"
// @Router /webhooks/stripe [post]
func (h *Handler) StripeWebhook(c *gin.Context) {
	log := h.log.WithContext(c.Request.Context())

	// One byte past the limit tells an oversized body from one that fits exactly
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		c.Error(errors.NewValidation("unreadable webhook body", nil))
		return
	}
	if len(payload) > maxWebhookBody {
		log.Warn("stripe webhook body too large", zap.Int("limit_bytes", maxWebhookBody))
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: ErrorBody{
				Code:    errors.CodeValidation,
				Message: "webhook body exceeds size limit",
				Details: map[string]int{"limit_bytes": maxWebhookBody},
			},
			TraceID: c.GetString(middleware.TraceIDKey),
		})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Warn("stripe webhook signature rejected", zap.Error(err))
		c.Error(errors.NewValidation("invalid webhook signature", nil))
		return
	}

	log = log.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		log.Debug("stripe webhook ignored")
		c.Status(http.StatusOK)
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil || session.ID == "" {
		log.Error("checkout session payload unreadable", zap.Error(err))
		c.Error(errors.NewValidation("invalid checkout session payload", nil))
		return
	}

	msg := events.NewCheckoutCompletedEvent(session.ID, event.ID, logger.GetTraceID(c.Request.Context()))
	if err := h.publisher.Publish(c.Request.Context(), events.RoutingKeyCheckoutCompleted, msg); err != nil {
		// A 5xx makes Stripe redeliver the webhook later.
		c.Error(errors.NewInternal("failed to queue checkout event", err))
		return
	}

	log.Info("checkout completion queued", zap.String("session_id", session.ID))
	c.Status(http.StatusOK)
}
