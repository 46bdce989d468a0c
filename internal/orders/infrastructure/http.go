package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	orderspb "go-storefront/api/orders/v1"
	"go-storefront/internal/orders/application"
	"go-storefront/pkg/errors"
	"go-storefront/pkg/middleware"
)

// HTTPHandler handles HTTP requests for orders
type HTTPHandler struct {
	useCase *application.OrderUseCase
	secret  []byte
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(useCase *application.OrderUseCase, jwtSecret []byte) *HTTPHandler {
	return &HTTPHandler{useCase: useCase, secret: jwtSecret}
}

// RegisterRoutes registers the checkout, order and admin routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	authed := r.Group("", middleware.Authenticate(h.secret))

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

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"data":     data,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

func (h *HTTPHandler) bindCheckout(c *gin.Context) (application.CheckoutInput, bool) {
	var req orderspb.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return application.CheckoutInput{}, false
	}

	input, err := checkoutInput(&req, middleware.Subject(c))
	if err != nil {
		c.Error(err)
		return application.CheckoutInput{}, false
	}
	return input, true
}

// SubmitCashOrder handles POST /checkout/cash
func (h *HTTPHandler) SubmitCashOrder(c *gin.Context) {
	input, ok := h.bindCheckout(c)
	if !ok {
		return
	}

	output, err := h.useCase.SubmitCashOrder(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	resp := toOrderResponse(output.Order)
	resp.Existing = output.Existing
	status := http.StatusCreated
	if output.Existing {
		status = http.StatusOK
	}
	respond(c, status, resp)
}

// BeginHostedCheckout handles POST /checkout/hosted
func (h *HTTPHandler) BeginHostedCheckout(c *gin.Context) {
	input, ok := h.bindCheckout(c)
	if !ok {
		return
	}

	output, err := h.useCase.BeginHostedCheckout(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusOK, orderspb.HostedCheckout{
		SessionID:   output.SessionID,
		RedirectURL: output.RedirectURL,
	})
}

// ReconcileHostedCheckout handles GET /checkout/hosted/:session_id
func (h *HTTPHandler) ReconcileHostedCheckout(c *gin.Context) {
	output, err := h.useCase.ReconcileHostedCheckout(c.Request.Context(), application.ReconcileInput{
		SessionID: c.Param("session_id"),
		BuyerID:   middleware.Subject(c),
	})
	if err != nil {
		c.Error(err)
		return
	}

	if !output.Success {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success":  false,
			"trace_id": c.GetString(middleware.TraceIDKey),
		})
		return
	}

	resp := toOrderResponse(output.Order)
	resp.Existing = output.Existing
	respond(c, http.StatusOK, resp)
}

// GetOrder handles GET /orders/:id
func (h *HTTPHandler) GetOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"), "order id")
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.useCase.GetOrder(c.Request.Context(), application.GetOrderInput{
		ID:          id,
		RequesterID: middleware.Subject(c),
		IsAdmin:     middleware.IsAdmin(c),
	})
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusOK, toOrderResponse(output.Order))
}

// ListBuyerOrders handles GET /orders
func (h *HTTPHandler) ListBuyerOrders(c *gin.Context) {
	output, err := h.useCase.ListBuyerOrders(c.Request.Context(), middleware.Subject(c))
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusOK, toListResponse(output))
}

// ListOrders handles GET /admin/orders
func (h *HTTPHandler) ListOrders(c *gin.Context) {
	var req orderspb.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(errors.NewValidation("invalid query", err.Error()))
		return
	}

	output, err := h.useCase.ListOrders(c.Request.Context(), application.ListOrdersInput{
		PaymentStatus: req.PaymentStatus,
		OrderStatus:   req.OrderStatus,
		Limit:         req.Limit,
		Offset:        req.Offset,
	})
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusOK, toListResponse(output))
}

// UpdatePaymentStatus handles PATCH /admin/orders/:id/payment-status
func (h *HTTPHandler) UpdatePaymentStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"), "order id")
	if err != nil {
		c.Error(err)
		return
	}

	var req orderspb.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.useCase.UpdatePaymentStatus(c.Request.Context(), application.UpdatePaymentStatusInput{
		OrderID: id,
		Status:  req.Status,
	})
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusOK, toOrderResponse(output.Order))
}

// UpdateDeliveryStatus handles PATCH /admin/deliveries/:id/status
func (h *HTTPHandler) UpdateDeliveryStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"), "delivery id")
	if err != nil {
		c.Error(err)
		return
	}

	var req orderspb.UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.useCase.UpdateDeliveryStatus(c.Request.Context(), application.UpdateDeliveryStatusInput{
		DeliveryID:         id,
		Status:             req.Status,
		ActualDeliveryDate: req.ActualDeliveryDate,
	})
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusOK, toDeliveryResponse(output.Delivery))
}
