package orderspb

import "time"

// LineItem is a requested or stored order line
type LineItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Name      string `json:"name,omitempty"`
	UnitPrice string `json:"unit_price,omitempty"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	ImageRef  string `json:"image_ref,omitempty"`
}

// ShippingDestination is the delivery address of an order
type ShippingDestination struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country"`
	PostalCode  string `json:"postal_code"`
}

// CheckoutRequest submits a cash order or opens a hosted checkout.
// Line items may be omitted to check out the buyer's cart.
type CheckoutRequest struct {
	BuyerID     string              `json:"buyer_id,omitempty" swaggerignore:"true"`
	LineItems   []LineItem          `json:"line_items" binding:"omitempty,dive"`
	Shipping    ShippingDestination `json:"shipping"`
	TotalAmount string              `json:"total_amount,omitempty"`
}

// StatusChange is one delivery history entry
type StatusChange struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

// Delivery is the shipment tracking record of an order
type Delivery struct {
	ID                 string         `json:"id"`
	OrderID            string         `json:"order_id"`
	CurrentStatus      string         `json:"current_status"`
	History            []StatusChange `json:"history"`
	ExpectedDate       time.Time      `json:"expected_date"`
	ActualDeliveryDate *time.Time     `json:"actual_delivery_date,omitempty"`
}

// Order is the ledger view of an order
type Order struct {
	ID            string              `json:"id"`
	BuyerID       string              `json:"buyer_id"`
	LineItems     []LineItem          `json:"line_items"`
	Shipping      ShippingDestination `json:"shipping"`
	PaymentMethod string              `json:"payment_method"`
	PaymentStatus string              `json:"payment_status"`
	TransactionID string              `json:"transaction_id,omitempty"`
	TotalAmount   string              `json:"total_amount"`
	IsPaid        bool                `json:"is_paid"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	OrderStatus   string              `json:"order_status"`
	Delivery      *Delivery           `json:"delivery,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Existing      bool                `json:"existing,omitempty"`
}

// HostedCheckout is the redirect handle of a new checkout session
type HostedCheckout struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// ReconcileRequest identifies a checkout session to reconcile
type ReconcileRequest struct {
	SessionID string `json:"session_id"`
}

// ReconcileResponse reports the reconciled order; Order is nil when unpaid
type ReconcileResponse struct {
	Success bool   `json:"success"`
	Order   *Order `json:"order,omitempty"`
}

// GetOrderRequest identifies an order
type GetOrderRequest struct {
	ID string `json:"id"`
}

// ListOrdersRequest filters the admin listing
type ListOrdersRequest struct {
	PaymentStatus string `json:"payment_status,omitempty" form:"payment_status"`
	OrderStatus   string `json:"order_status,omitempty" form:"order_status"`
	Limit         int    `json:"limit,omitempty" form:"limit"`
	Offset        int    `json:"offset,omitempty" form:"offset"`
}

// ListOrdersResponse is a page of orders
type ListOrdersResponse struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
}

// UpdatePaymentStatusRequest changes an order's payment status
type UpdatePaymentStatusRequest struct {
	OrderID string `json:"order_id,omitempty" swaggerignore:"true"`
	Status  string `json:"status" binding:"required"`
}

// UpdateDeliveryStatusRequest records a delivery transition
type UpdateDeliveryStatusRequest struct {
	DeliveryID         string     `json:"delivery_id,omitempty" swaggerignore:"true"`
	Status             string     `json:"status" binding:"required"`
	ActualDeliveryDate *time.Time `json:"actual_delivery_date,omitempty"`
}

// Empty is a request without fields
type Empty struct{}
