package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go-storefront/internal/orders/domain"
)

// OrderRepository defines the interface for order ledger persistence
type OrderRepository interface {
	// Create stores the order, its line items and its delivery as one unit.
	// It returns domain.ErrDuplicateOrder when an idempotency index rejects the row.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with line items and delivery
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	// GetByTransactionID retrieves the order paid by a gateway transaction
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Order, error)

	// FindPendingCash retrieves the buyer's pending cash-on-delivery order with the given total
	FindPendingCash(ctx context.Context, buyerID string, total decimal.Decimal) (*domain.Order, error)

	// UpdatePayment persists payment status, paid flag and paid timestamp, but only
	// while the stored status is still from. Otherwise it returns
	// domain.ErrConcurrentUpdate.
	UpdatePayment(ctx context.Context, order *domain.Order, from domain.PaymentStatus) error

	// ListByBuyer retrieves a buyer's orders, newest first
	ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error)

	// List retrieves orders matching filter, newest first
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int64, error)
}

// OrderFilter narrows an admin listing
type OrderFilter struct {
	PaymentStatus domain.PaymentStatus
	OrderStatus   domain.OrderStatus
	Limit         int
	Offset        int
}

// DeliveryRepository defines the interface for delivery persistence
type DeliveryRepository interface {
	// GetByID retrieves a delivery with its history
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)

	// SaveTransition persists the current status, the newest history entry and
	// the actual delivery date, but only while the stored status is still from.
	// Otherwise it returns domain.ErrConcurrentUpdate.
	SaveTransition(ctx context.Context, delivery *domain.Delivery, from domain.DeliveryStatus) error

	// SetOrderStatus updates the parent order's lifecycle label
	SetOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error
}

// Product is the catalog view the orchestrator prices line items from
type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	DiscountPrice decimal.Decimal
	Stock         int
	ImageRef      string
}

// EffectivePrice is the discount price when positive, else the base price
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.IsPositive() {
		return p.DiscountPrice
	}
	return p.Price
}

// InventoryStore is the catalog and stock collaborator
type InventoryStore interface {
	// GetProduct retrieves a live (not deleted) product
	GetProduct(ctx context.Context, id string) (*Product, error)

	// DecrementStock atomically removes qty units and returns the new stock.
	// It never drives stock below zero.
	DecrementStock(ctx context.Context, id string, qty int) (int, error)
}

// CartItem is one row of the buyer's cart snapshot
type CartItem struct {
	ProductID     string
	Name          string
	Price         decimal.Decimal
	DiscountPrice decimal.Decimal
	Quantity      int
	ImageRef      string
}

// CartReader reads the buyer's cart once at checkout; it never mutates it
type CartReader interface {
	GetCartItems(ctx context.Context, buyerID string) ([]CartItem, error)
}

// GatewayLineItem is a line item converted to currency minor units
type GatewayLineItem struct {
	Name       string
	ImageRef   string
	UnitAmount int64
	Quantity   int64
}

// CreateSessionRequest asks the payment provider for a redirect session
type CreateSessionRequest struct {
	LineItems  []GatewayLineItem
	Metadata   map[string]string
	SuccessURL string
	CancelURL  string
	BuyerID    string
}

// Session is a hosted checkout redirect handle
type Session struct {
	ID          string
	RedirectURL string
}

// SessionVerdict is the provider's answer for a session
type SessionVerdict struct {
	Paid          bool
	TransactionID string
	Metadata      map[string]string
}

// PaymentGateway abstracts the hosted-checkout provider
type PaymentGateway interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	GetSessionVerdict(ctx context.Context, sessionID string) (*SessionVerdict, error)
}

// Notification audiences and categories
const (
	AudienceAdmin = "admin"

	CategoryOrder    = "order"
	CategoryStock    = "stock"
	CategoryDelivery = "delivery"
	CategoryPayment  = "payment"
)

// Notification is a human-readable alert
type Notification struct {
	Audience string
	Category string
	Message  string
	OrderID  *uuid.UUID
}

// NotificationSink records alerts; callers treat it as fire-and-forget
type NotificationSink interface {
	Notify(ctx context.Context, n Notification) error
}

// Transactor runs fn in a single persistence transaction
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReconciliationCache remembers which order a checkout session produced
type ReconciliationCache interface {
	Get(ctx context.Context, sessionID string) (uuid.UUID, bool, error)
	Set(ctx context.Context, sessionID string, orderID uuid.UUID) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
	PublishOrderPaymentUpdated(ctx context.Context, order *domain.Order) error
	PublishDeliveryStatusChanged(ctx context.Context, delivery *domain.Delivery) error
}

// MetricsRecorder receives business measurements
type MetricsRecorder interface {
	OrderCreated(paymentMethod string, total float64)
	CheckoutSession(result string)
	Reconciliation(result string)
	LowStock()
	NotificationFailed()
	DeliveryTransition(status string)
}
