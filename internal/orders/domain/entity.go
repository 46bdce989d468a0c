package domain

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the buyer settles an order
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodHostedCheckout PaymentMethod = "hosted_checkout"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// ParsePaymentStatus accepts pending, paid or failed in any case
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentStatusPending:
		return PaymentStatusPending, nil
	case PaymentStatusPaid:
		return PaymentStatusPaid, nil
	case PaymentStatusFailed:
		return PaymentStatusFailed, nil
	}
	return "", NewInvalidPaymentStatus(s)
}

// OrderStatus is the coarse lifecycle label of an order
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// LineItem is one product, quantity and price frozen at checkout time
type LineItem struct {
	ProductRef  string          `json:"product_ref"`
	DisplayName string          `json:"display_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	ImageRef    string          `json:"image_ref,omitempty"`
}

// Subtotal returns unit price times quantity
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ShippingDestination is where the order ships. State is optional.
type ShippingDestination struct {
	Name        string `json:"name" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every missing required field at once
func (s ShippingDestination) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return NewInvalidShipping([]string{err.Error()})
	}

	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, jsonFieldName(fe.Field()))
	}
	return NewInvalidShipping(missing)
}

func jsonFieldName(field string) string {
	switch field {
	case "AddressLine":
		return "address_line"
	case "PostalCode":
		return "postal_code"
	default:
		return strings.ToLower(field)
	}
}

// Order is the ledger entry for one purchase
type Order struct {
	ID            uuid.UUID
	BuyerID       string
	LineItems     []LineItem
	Shipping      ShippingDestination
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	TransactionID string
	TotalAmount   decimal.Decimal
	IsPaid        bool
	PaidAt        *time.Time
	OrderStatus   OrderStatus
	Delivery      *Delivery
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrderParams holds everything needed to open a ledger entry
type NewOrderParams struct {
	BuyerID          string
	LineItems        []LineItem
	Shipping         ShippingDestination
	PaymentMethod    PaymentMethod
	Now              time.Time
	DeliveryLeadDays int
}

// NewOrder validates the input and builds a pending order with its delivery
func NewOrder(p NewOrderParams) (*Order, error) {
	if strings.TrimSpace(p.BuyerID) == "" {
		return nil, ErrBuyerRequired
	}
	if err := ValidateLineItems(p.LineItems); err != nil {
		return nil, err
	}
	if err := p.Shipping.Validate(); err != nil {
		return nil, err
	}
	switch p.PaymentMethod {
	case PaymentMethodCashOnDelivery, PaymentMethodHostedCheckout:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	items := make([]LineItem, len(p.LineItems))
	copy(items, p.LineItems)

	order := &Order{
		ID:            uuid.New(),
		BuyerID:       p.BuyerID,
		LineItems:     items,
		Shipping:      p.Shipping,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: PaymentStatusPending,
		TotalAmount:   ComputeTotal(items),
		OrderStatus:   OrderStatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.Delivery = NewDelivery(order.ID, now, p.DeliveryLeadDays)

	return order, nil
}

// ValidateLineItems checks the cart is non-empty and every entry is well formed
func ValidateLineItems(items []LineItem) error {
	if len(items) == 0 {
		return ErrEmptyLineItems
	}
	for i, li := range items {
		if strings.TrimSpace(li.ProductRef) == "" {
			return NewInvalidLineItem(i, "product_ref is required")
		}
		if li.Quantity < 1 {
			return NewInvalidLineItem(i, "quantity must be at least 1")
		}
		if li.UnitPrice.IsNegative() {
			return NewInvalidLineItem(i, "unit_price cannot be negative")
		}
	}
	return nil
}

// ComputeTotal sums unit price times quantity over items
func ComputeTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// TotalMatchesItems reports whether the stored total still equals the line item sum
func (o *Order) TotalMatchesItems() bool {
	return o.TotalAmount.Equal(ComputeTotal(o.LineItems))
}

// MarkPaid records a confirmed payment. paidAt is only ever set once.
func (o *Order) MarkPaid(transactionID string, at time.Time) {
	o.PaymentStatus = PaymentStatusPaid
	o.IsPaid = true
	if o.PaidAt == nil {
		paidAt := at
		o.PaidAt = &paidAt
	}
	if transactionID != "" {
		o.TransactionID = transactionID
	}
	o.UpdatedAt = at
}

// TransitionPayment applies an admin payment status change. Only pending may
// move, to paid or failed; re-applying the current status is a no-op.
// It reports whether anything changed.
func (o *Order) TransitionPayment(next PaymentStatus, at time.Time) (bool, error) {
	if next == o.PaymentStatus {
		return false, nil
	}
	if o.PaymentStatus != PaymentStatusPending || next == PaymentStatusPending {
		return false, NewPaymentTransitionRejected(o.PaymentStatus, next)
	}

	switch next {
	case PaymentStatusPaid:
		o.MarkPaid("", at)
	case PaymentStatusFailed:
		o.PaymentStatus = PaymentStatusFailed
		o.UpdatedAt = at
	}
	return true, nil
}

// Complete marks the order fulfilled
func (o *Order) Complete(at time.Time) {
	o.OrderStatus = OrderStatusCompleted
	o.UpdatedAt = at
}

// OwnedBy reports whether buyerID placed the order
func (o *Order) OwnedBy(buyerID string) bool {
	return o.BuyerID == buyerID
}
