package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	orderspb "go-storefront/api/orders/v1"
	"go-storefront/pkg/errors"
	grpcpkg "go-storefront/pkg/grpc"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/middleware"
)

// EventPublisher publishes webhook-derived events
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// Handler handles all gateway HTTP requests
type Handler struct {
	ordersClient  orderspb.OrderServiceClient
	publisher     EventPublisher
	jwtSecret     []byte
	webhookSecret string
	log           *logger.Logger
}

// Options carries the gateway handler dependencies
type Options struct {
	Orders        orderspb.OrderServiceClient
	Publisher     EventPublisher
	JWTSecret     []byte
	WebhookSecret string
	Log           *logger.Logger
}

// NewHandler creates a new gateway handler
func NewHandler(opts Options) *Handler {
	return &Handler{
		ordersClient:  opts.Orders,
		publisher:     opts.Publisher,
		jwtSecret:     opts.JWTSecret,
		webhookSecret: opts.WebhookSecret,
		log:           opts.Log,
	}
}

// RegisterRoutes registers all gateway API routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	authed := r.Group("", middleware.Authenticate(h.jwtSecret))

	checkout := authed.Group("/checkout")
	{
		checkout.POST("/cash", h.SubmitCashOrder)
		checkout.POST("/hosted", h.BeginHostedCheckout)
		checkout.GET("/hosted/:session_id", h.ReconcileHostedCheckout)
	}

	orders := authed.Group("/orders")
	{
		orders.GET("", h.ListBuyerOrders)
		orders.GET("/:id", h.GetOrder)
	}

	admin := authed.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/orders", h.ListOrders)
		admin.PATCH("/orders/:id/payment-status", h.UpdatePaymentStatus)
		admin.PATCH("/deliveries/:id/status", h.UpdateDeliveryStatus)
	}
}

// RegisterWebhooks registers the payment provider callbacks. They are
// authenticated by signature, not by bearer token.
func (h *Handler) RegisterWebhooks(r gin.IRoutes) {
	r.POST("/webhooks/stripe", h.StripeWebhook)
}

// =============================================================================
// Response DTOs
// =============================================================================

// SuccessResponse is the standard success response
type SuccessResponse struct {
	Data    interface{} `json:"data"`
	TraceID string      `json:"trace_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// UnpaidResponse is returned when a checkout session has not been paid
type UnpaidResponse struct {
	Success bool   `json:"success" example:"false"`
	TraceID string `json:"trace_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   ErrorBody `json:"error"`
	TraceID string    `json:"trace_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ErrorBody contains error details
type ErrorBody struct {
	Code    string      `json:"code" example:"VALIDATION_ERROR"`
	Message string      `json:"message" example:"Invalid request body"`
	Details interface{} `json:"details,omitempty"`
}

// rpcContext forwards the caller's bearer token to the orders service
func rpcContext(c *gin.Context) context.Context {
	return grpcpkg.WithAuthorization(c.Request.Context(), c.GetHeader("Authorization"))
}

func (h *Handler) ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:    data,
		TraceID: c.GetString(middleware.TraceIDKey),
	})
}

// =============================================================================
// Checkout Handlers
// =============================================================================

// SubmitCashOrder places a cash-on-delivery order
// @Summary Place a cash-on-delivery order
// @Description Create a pending cash-on-delivery order. Resubmitting the same total while an order is pending returns the existing order.
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body orderspb.CheckoutRequest true "Checkout request (omit line_items to check out the cart)"
// @Success 201 {object} SuccessResponse{data=orderspb.Order} "Order created"
// @Success 200 {object} SuccessResponse{data=orderspb.Order} "Existing pending order returned"
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Failure 404 {object} ErrorResponse "Product not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/v1/checkout/cash [post]
func (h *Handler) SubmitCashOrder(c *gin.Context) {
	var req orderspb.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	resp, err := h.ordersClient.SubmitCashOrder(rpcContext(c), &req)
	if err != nil {
		c.Error(errors.FromGRPCStatus(err))
		return
	}

	status := http.StatusCreated
	if resp.Existing {
		status = http.StatusOK
	}
	h.ok(c, status, resp)
}

// BeginHostedCheckout opens a hosted checkout session
// @Summary Start a hosted checkout
// @Description Create a payment provider session and return its redirect URL. No order exists until the session is paid and reconciled.
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body orderspb.CheckoutRequest true "Checkout request"
// @Success 200 {object} SuccessResponse{data=orderspb.HostedCheckout} "Session created"
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Failure 502 {object} ErrorResponse "Payment provider unavailable"
// @Router /api/v1/checkout/hosted [post]
func (h *Handler) BeginHostedCheckout(c *gin.Context) {
	var req orderspb.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	resp, err := h.ordersClient.BeginHostedCheckout(rpcContext(c), &req)
	if err != nil {
		c.Error(errors.FromGRPCStatus(err))
		return
	}

	h.ok(c, http.StatusOK, resp)
}

// ReconcileHostedCheckout confirms a hosted checkout session
// @Summary Confirm a hosted checkout
// @Description Verify the session with the payment provider and return the paid order. Safe to call any number of times.
// @Tags checkout
// @Produce json
// @Security BearerAuth
// @Param session_id path string true "Checkout session ID"
// @Success 200 {object} SuccessResponse{data=orderspb.Order} "Paid order"
// @Failure 402 {object} UnpaidResponse "Session not paid"
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Failure 403 {object} ErrorResponse "Session belongs to another buyer"
// @Failure 500 {object} ErrorResponse "Reconciliation error"
// @Failure 502 {object} ErrorResponse "Payment provider unavailable"
// @Router /api/v1/checkout/hosted/{session_id} [get]
func (h *Handler) ReconcileHostedCheckout(c *gin.Context) {
	resp, err := h.ordersClient.ReconcileHostedCheckout(rpcContext(c), &orderspb.ReconcileRequest{
		SessionID: c.Param("session_id"),
	})
	if err != nil {
		c.Error(errors.FromGRPCStatus(err))
		return
	}

	if !resp.Success || resp.Order == nil {
		c.JSON(http.StatusPaymentRequired, UnpaidResponse{
			Success: false,
			TraceID: c.GetString(middleware.TraceIDKey),
		})
		return
	}

	h.ok(c, http.StatusOK, resp.Order)
}

// =============================================================================
// Orders Handlers
// =============================================================================

// GetOrder retrieves an order by ID
// @Summary Get an order by ID
// @Description Buyers may read their own orders; admins may read any order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID (uuid)"
// @Success 200 {object} SuccessResponse{data=orderspb.Order} "Order retrieved"
// @Failure 400 {object} ErrorResponse "Invalid order ID"
// @Failure 404 {object} ErrorResponse "Order not found"
// @Router /api/v1/orders/{id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	resp, err := h.ordersClient.GetOrder(rpcContext(c), &orderspb.GetOrderRequest{ID: c.Param("id")})
	if err != nil {
		c.Error(errors.FromGRPCStatus(err))
		return
	}

	h.ok(c, http.StatusOK, resp)
}

// ListBuyerOrders lists the caller's orders
// @Summary List my orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse{data=orderspb.ListOrdersResponse} "Orders, newest first"
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Router /api/v1/orders [get]
func (h *Handler) ListBuyerOrders(c *gin.Context) {
	resp, err := h.ordersClient.ListBuyerOrders(rpcContext(c), &orderspb.Empty{})
	if err != nil {
		c.Error(errors.FromGRPCStatus(err))
		return
	}

	h.ok(c, http.StatusOK, resp)
}

// =============================================================================
// Admin Handlers
// =============================================================================

// ListOrders lists all orders
// @Summary List all orders
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param payment_status query string false "pending, paid or failed"
// @Param order_status query string false "Processing, Completed or Cancelled"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {object} SuccessResponse{data=orderspb.ListOrdersResponse} "Orders, newest first"
// @Failure 403 {object} ErrorResponse "Admin role required"
// @Router /api/v1/admin/orders [get]
func (h *Handler) ListOrders(c *gin.Context) {
	var req orderspb.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(errors.NewValidation("invalid query", err.Error()))
		return
	}

	resp, err := h.ordersClient.ListOrders(rpcContext(c), &req)
	if err != nil {
		c.Error(errors.FromGRPCStatus(err))
		return
	}

	h.ok(c, http.StatusOK, resp)
}

// UpdatePaymentStatus changes an order's payment status
// @Summary Update payment status
// @Description Pending orders may move to paid or failed; settled statuses are final
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID (uuid)"
// @Param request body orderspb.UpdatePaymentStatusRequest true "New status"
// @Success 200 {object} SuccessResponse{data=orderspb.Order} "Updated order"
// @Failure 400 {object} ErrorResponse "Invalid status or transition"
// @Failure 403 {object} ErrorResponse "Admin role required"
// @Failure 404 {object} ErrorResponse "Order not found"
// @Router /api/v1/admin/orders/{id}/payment-status [patch]
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req orderspb.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}
	req.OrderID = c.Param("id")

	resp, err := h.ordersClient.UpdatePaymentStatus(rpcContext(c), &req)
	if err != nil {
		c.Error(errors.FromGRPCStatus(err))
		return
	}

	h.ok(c, http.StatusOK, resp)
}

// UpdateDeliveryStatus records a delivery transition
// @Summary Update delivery status
// @Description Appends to the delivery history; Delivered completes the order
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Delivery ID (uuid)"
// @Param request body orderspb.UpdateDeliveryStatusRequest true "New status"
// @Success 200 {object} SuccessResponse{data=orderspb.Delivery} "Updated delivery"
// @Failure 400 {object} ErrorResponse "Invalid status or transition"
// @Failure 403 {object} ErrorResponse "Admin role required"
// @Failure 404 {object} ErrorResponse "Delivery not found"
// @Router /api/v1/admin/deliveries/{id}/status [patch]
func (h *Handler) UpdateDeliveryStatus(c *gin.Context) {
	var req orderspb.UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}
	req.DeliveryID = c.Param("id")

	resp, err := h.ordersClient.UpdateDeliveryStatus(rpcContext(c), &req)
	if err != nil {
		c.Error(errors.FromGRPCStatus(err))
		return
	}

	h.ok(c, http.StatusOK, resp)
}
