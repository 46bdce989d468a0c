package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"go-storefront/internal/orders/domain"
	"go-storefront/internal/orders/ports"
	"go-storefront/pkg/errors"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// conditional writes that lose a race are re-read and re-checked this often
	maxStatusWriteAttempts = 3
)

// Config holds the lifecycle knobs of the orchestrator
type Config struct {
	LowStockThreshold   int
	DeliveryLeadDays    int
	DeliveryForwardOnly bool
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
}

// Dependencies are the collaborators the orchestrator drives.
// Cart, Cache, Publisher and Metrics are optional.
type Dependencies struct {
	Orders     ports.OrderRepository
	Deliveries ports.DeliveryRepository
	Inventory  ports.InventoryStore
	Cart       ports.CartReader
	Gateway    ports.PaymentGateway
	Notifier   ports.NotificationSink
	Tx         ports.Transactor
	Cache      ports.ReconciliationCache
	Publisher  ports.EventPublisher
	Metrics    ports.MetricsRecorder
}

// OrderUseCase handles the order, payment and delivery lifecycle
type OrderUseCase struct {
	deps Dependencies
	cfg  Config
	log  *logger.Logger
	now  func() time.Time
}

// NewOrderUseCase creates a new order use case
func NewOrderUseCase(deps Dependencies, cfg Config, log *logger.Logger) *OrderUseCase {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = 5
	}
	if cfg.DeliveryLeadDays <= 0 {
		cfg.DeliveryLeadDays = domain.DefaultDeliveryLeadDays
	}
	return &OrderUseCase{
		deps: deps,
		cfg:  cfg,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// LineItemInput is a requested product and quantity. Name and image are
// optional hints; price always comes from the catalog.
type LineItemInput struct {
	ProductID string
	Name      string
	Quantity  int
	ImageRef  string
}

// CheckoutInput represents a checkout submission
type CheckoutInput struct {
	BuyerID     string
	LineItems   []LineItemInput
	Shipping    domain.ShippingDestination
	TotalAmount *decimal.Decimal
}

// OrderOutput represents a single order result
type OrderOutput struct {
	Order *domain.Order
	// Existing is set when an idempotency guard returned an order created earlier
	Existing bool
}

// SubmitCashOrder creates a cash-on-delivery order, or returns the buyer's
// pending one with the same total.
func (uc *OrderUseCase) SubmitCashOrder(ctx context.Context, input CheckoutInput) (*OrderOutput, error) {
	order, err := uc.prepareOrder(ctx, input, domain.PaymentMethodCashOnDelivery)
	if err != nil {
		return nil, err
	}

	existing, err := uc.findPendingCash(ctx, order.BuyerID, order.TotalAmount)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		uc.log.WithContext(ctx).Info("cash order resubmitted, returning pending order",
			zap.String("order_id", existing.ID.String()),
			zap.String("buyer_id", existing.BuyerID),
		)
		return &OrderOutput{Order: existing, Existing: true}, nil
	}

	lowStock, err := uc.persistOrder(ctx, order)
	if stderrors.Is(err, domain.ErrDuplicateOrder) {
		existing, findErr := uc.findPendingCash(ctx, order.BuyerID, order.TotalAmount)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, errors.NewPersistence("duplicate cash order could not be resolved", err)
		}
		return &OrderOutput{Order: existing, Existing: true}, nil
	}
	if err != nil {
		return nil, err
	}

	uc.afterOrderCreated(ctx, order, lowStock)

	return &OrderOutput{Order: order}, nil
}

// HostedCheckoutOutput carries the redirect handle for the buyer
type HostedCheckoutOutput struct {
	SessionID   string
	RedirectURL string
}

// BeginHostedCheckout prices the cart and opens a provider session. No order
// is written until the session is reconciled.
func (uc *OrderUseCase) BeginHostedCheckout(ctx context.Context, input CheckoutInput) (*HostedCheckoutOutput, error) {
	order, err := uc.prepareOrder(ctx, input, domain.PaymentMethodHostedCheckout)
	if err != nil {
		return nil, err
	}

	meta, err := encodeIntent(checkoutIntent{
		BuyerID:   order.BuyerID,
		LineItems: order.LineItems,
		Shipping:  order.Shipping,
		Total:     order.TotalAmount,
	})
	if err != nil {
		return nil, errors.NewInternal("failed to encode checkout metadata", err)
	}

	gatewayItems := make([]ports.GatewayLineItem, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		gatewayItems = append(gatewayItems, ports.GatewayLineItem{
			Name:       li.DisplayName,
			ImageRef:   li.ImageRef,
			UnitAmount: toMinorUnits(li.UnitPrice),
			Quantity:   int64(li.Quantity),
		})
	}

	session, err := uc.deps.Gateway.CreateSession(ctx, ports.CreateSessionRequest{
		LineItems:  gatewayItems,
		Metadata:   meta,
		SuccessURL: uc.cfg.CheckoutSuccessURL,
		CancelURL:  uc.cfg.CheckoutCancelURL,
		BuyerID:    order.BuyerID,
	})
	if err != nil {
		uc.recordCheckoutSession(metrics.ResultFailed)
		return nil, gatewayError("failed to create checkout session", err)
	}

	uc.recordCheckoutSession(metrics.ResultCreated)
	uc.log.WithContext(ctx).Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("buyer_id", order.BuyerID),
		zap.String("total", order.TotalAmount.String()),
	)

	return &HostedCheckoutOutput{SessionID: session.ID, RedirectURL: session.RedirectURL}, nil
}

// ReconcileInput identifies a hosted checkout session. BuyerID, when set,
// must own the resulting order.
type ReconcileInput struct {
	SessionID string
	BuyerID   string
}

// ReconcileOutput is the outcome of a reconciliation. Success is false when
// the provider has not confirmed payment.
type ReconcileOutput struct {
	Success  bool
	Order    *domain.Order
	Existing bool
}

// ReconcileHostedCheckout materializes the order for a paid session. Calling it
// any number of times for the same session yields one order and one stock
// decrement per line item.
func (uc *OrderUseCase) ReconcileHostedCheckout(ctx context.Context, input ReconcileInput) (*ReconcileOutput, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, domain.ErrSessionIDRequired
	}
	log := uc.log.WithContext(ctx).With(zap.String("session_id", sessionID))

	if order := uc.cachedOrder(ctx, sessionID); order != nil {
		uc.recordReconciliation(metrics.ResultDuplicate)
		return uc.reconciled(order, input.BuyerID, true)
	}

	verdict, err := uc.deps.Gateway.GetSessionVerdict(ctx, sessionID)
	if err != nil {
		uc.recordReconciliation(metrics.ResultFailed)
		return nil, gatewayError("failed to verify checkout session", err)
	}
	if !verdict.Paid {
		uc.recordReconciliation(metrics.ResultUnpaid)
		log.Info("checkout session not paid")
		return &ReconcileOutput{Success: false}, nil
	}

	transactionID := verdict.TransactionID
	if transactionID == "" {
		transactionID = sessionID
	}

	existing, err := uc.findByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		uc.cacheSession(ctx, sessionID, existing.ID)
		uc.recordReconciliation(metrics.ResultDuplicate)
		return uc.reconciled(existing, input.BuyerID, true)
	}

	intent, err := decodeIntent(sessionID, verdict.Metadata)
	if err != nil {
		uc.recordReconciliation(metrics.ResultFailed)
		keys := make([]string, 0, len(verdict.Metadata))
		for k := range verdict.Metadata {
			keys = append(keys, k)
		}
		log.Error("paid checkout session has unreadable metadata",
			zap.Error(err),
			zap.String("transaction_id", transactionID),
			zap.Strings("metadata_keys", keys),
		)
		return nil, err
	}

	now := uc.now()
	order, err := domain.NewOrder(domain.NewOrderParams{
		BuyerID:          intent.BuyerID,
		LineItems:        intent.LineItems,
		Shipping:         intent.Shipping,
		PaymentMethod:    domain.PaymentMethodHostedCheckout,
		Now:              now,
		DeliveryLeadDays: uc.cfg.DeliveryLeadDays,
	})
	if err != nil {
		return nil, domain.NewMalformedMetadata(sessionID, "order", err)
	}
	order.MarkPaid(transactionID, now)

	lowStock, err := uc.persistOrder(ctx, order)
	if stderrors.Is(err, domain.ErrDuplicateOrder) {
		existing, findErr := uc.findByTransaction(ctx, transactionID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, errors.NewPersistence("duplicate transaction could not be resolved", err)
		}
		uc.cacheSession(ctx, sessionID, existing.ID)
		uc.recordReconciliation(metrics.ResultDuplicate)
		return uc.reconciled(existing, input.BuyerID, true)
	}
	if err != nil {
		uc.recordReconciliation(metrics.ResultFailed)
		return nil, err
	}

	uc.cacheSession(ctx, sessionID, order.ID)
	uc.recordReconciliation(metrics.ResultCreated)
	uc.afterOrderCreated(ctx, order, lowStock)

	return uc.reconciled(order, input.BuyerID, false)
}

func (uc *OrderUseCase) reconciled(order *domain.Order, buyerID string, existing bool) (*ReconcileOutput, error) {
	if buyerID != "" && !order.OwnedBy(buyerID) {
		return nil, errors.NewForbidden("checkout session belongs to another buyer")
	}
	return &ReconcileOutput{Success: true, Order: order, Existing: existing}, nil
}

// UpdatePaymentStatusInput represents an admin payment status change
type UpdatePaymentStatusInput struct {
	OrderID uuid.UUID
	Status  string
}

// UpdatePaymentStatus moves a pending order to paid or failed
func (uc *OrderUseCase) UpdatePaymentStatus(ctx context.Context, input UpdatePaymentStatusInput) (*OrderOutput, error) {
	status, err := domain.ParsePaymentStatus(input.Status)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	for attempt := 1; ; attempt++ {
		order, err = uc.deps.Orders.GetByID(ctx, input.OrderID)
		if err != nil {
			return nil, err
		}

		from := order.PaymentStatus
		changed, err := order.TransitionPayment(status, uc.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return &OrderOutput{Order: order}, nil
		}

		err = uc.deps.Orders.UpdatePayment(ctx, order, from)
		if err == nil {
			break
		}
		if !stderrors.Is(err, domain.ErrConcurrentUpdate) || attempt == maxStatusWriteAttempts {
			return nil, persistenceError("failed to update payment status", err)
		}
		uc.log.WithContext(ctx).Debug("payment status moved underneath update, re-reading",
			zap.String("order_id", input.OrderID.String()),
			zap.Int("attempt", attempt),
		)
	}

	uc.log.WithContext(ctx).Info("payment status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_status", string(order.PaymentStatus)),
	)

	if order.PaymentStatus == domain.PaymentStatusPaid {
		uc.notify(ctx, ports.Notification{
			Audience: order.BuyerID,
			Category: ports.CategoryPayment,
			Message:  fmt.Sprintf("Payment received for order %s", order.ID),
			OrderID:  &order.ID,
		})
		uc.notify(ctx, ports.Notification{
			Audience: ports.AudienceAdmin,
			Category: ports.CategoryPayment,
			Message:  fmt.Sprintf("Order %s marked paid (%s)", order.ID, order.TotalAmount.StringFixed(2)),
			OrderID:  &order.ID,
		})
	}

	if uc.deps.Publisher != nil {
		if err := uc.deps.Publisher.PublishOrderPaymentUpdated(ctx, order); err != nil {
			uc.log.WithContext(ctx).Error("failed to publish payment updated event",
				zap.Error(err),
				zap.String("order_id", order.ID.String()),
			)
		}
	}

	return &OrderOutput{Order: order}, nil
}

// UpdateDeliveryStatusInput represents an admin delivery status change
type UpdateDeliveryStatusInput struct {
	DeliveryID         uuid.UUID
	Status             string
	ActualDeliveryDate *time.Time
}

// DeliveryOutput carries the updated delivery and its order
type DeliveryOutput struct {
	Delivery *domain.Delivery
	Order    *domain.Order
}

// UpdateDeliveryStatus records a delivery transition. Reaching Delivered
// completes the parent order in the same transaction.
func (uc *OrderUseCase) UpdateDeliveryStatus(ctx context.Context, input UpdateDeliveryStatusInput) (*DeliveryOutput, error) {
	status, err := domain.ParseDeliveryStatus(input.Status)
	if err != nil {
		return nil, err
	}

	var (
		delivery *domain.Delivery
		order    *domain.Order
		now      time.Time
	)
	for attempt := 1; ; attempt++ {
		delivery, err = uc.deps.Deliveries.GetByID(ctx, input.DeliveryID)
		if err != nil {
			return nil, err
		}

		order, err = uc.deps.Orders.GetByID(ctx, delivery.OrderID)
		if err != nil {
			return nil, err
		}

		now = uc.now()
		from := delivery.CurrentStatus
		if err := delivery.Transition(status, input.ActualDeliveryDate, now, uc.cfg.DeliveryForwardOnly); err != nil {
			return nil, err
		}

		err = uc.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := uc.deps.Deliveries.SaveTransition(ctx, delivery, from); err != nil {
				return err
			}
			if status == domain.DeliveryStatusDelivered {
				return uc.deps.Deliveries.SetOrderStatus(ctx, order.ID, domain.OrderStatusCompleted)
			}
			return nil
		})
		if err == nil {
			break
		}
		if !stderrors.Is(err, domain.ErrConcurrentUpdate) || attempt == maxStatusWriteAttempts {
			return nil, persistenceError("failed to update delivery status", err)
		}
		uc.log.WithContext(ctx).Debug("delivery status moved underneath update, re-reading",
			zap.String("delivery_id", input.DeliveryID.String()),
			zap.Int("attempt", attempt),
		)
	}

	if status == domain.DeliveryStatusDelivered {
		order.Complete(now)
	}
	order.Delivery = delivery

	if uc.deps.Metrics != nil {
		uc.deps.Metrics.DeliveryTransition(string(status))
	}
	uc.log.WithContext(ctx).Info("delivery status updated",
		zap.String("delivery_id", delivery.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(status)),
	)

	message := fmt.Sprintf("Your order %s is now %s", order.ID, status)
	if status == domain.DeliveryStatusDelivered {
		message = fmt.Sprintf("Your order %s has been delivered", order.ID)
	}
	uc.notify(ctx, ports.Notification{
		Audience: order.BuyerID,
		Category: ports.CategoryDelivery,
		Message:  message,
		OrderID:  &order.ID,
	})

	if uc.deps.Publisher != nil {
		if err := uc.deps.Publisher.PublishDeliveryStatusChanged(ctx, delivery); err != nil {
			uc.log.WithContext(ctx).Error("failed to publish delivery status event",
				zap.Error(err),
				zap.String("delivery_id", delivery.ID.String()),
			)
		}
	}

	return &DeliveryOutput{Delivery: delivery, Order: order}, nil
}

// GetOrderInput represents the input for getting an order
type GetOrderInput struct {
	ID          uuid.UUID
	RequesterID string
	IsAdmin     bool
}

// GetOrder retrieves an order. Buyers only see their own orders.
func (uc *OrderUseCase) GetOrder(ctx context.Context, input GetOrderInput) (*OrderOutput, error) {
	order, err := uc.deps.Orders.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if !input.IsAdmin && !order.OwnedBy(input.RequesterID) {
		return nil, domain.NewOrderNotFound(input.ID)
	}
	return &OrderOutput{Order: order}, nil
}

// ListOrdersOutput is a page of orders
type ListOrdersOutput struct {
	Orders []*domain.Order
	Total  int64
}

// ListBuyerOrders retrieves the buyer's order history, newest first
func (uc *OrderUseCase) ListBuyerOrders(ctx context.Context, buyerID string) (*ListOrdersOutput, error) {
	if strings.TrimSpace(buyerID) == "" {
		return nil, domain.ErrBuyerRequired
	}

	orders, err := uc.deps.Orders.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, persistenceError("failed to list orders", err)
	}
	return &ListOrdersOutput{Orders: orders, Total: int64(len(orders))}, nil
}

// ListOrdersInput filters the admin listing. Empty filters match everything.
type ListOrdersInput struct {
	PaymentStatus string
	OrderStatus   string
	Limit         int
	Offset        int
}

// ListOrders retrieves all orders for the admin console
func (uc *OrderUseCase) ListOrders(ctx context.Context, input ListOrdersInput) (*ListOrdersOutput, error) {
	filter := ports.OrderFilter{Limit: input.Limit, Offset: input.Offset}

	if input.PaymentStatus != "" {
		status, err := domain.ParsePaymentStatus(input.PaymentStatus)
		if err != nil {
			return nil, err
		}
		filter.PaymentStatus = status
	}
	if input.OrderStatus != "" {
		switch domain.OrderStatus(input.OrderStatus) {
		case domain.OrderStatusProcessing, domain.OrderStatusCompleted, domain.OrderStatusCancelled:
			filter.OrderStatus = domain.OrderStatus(input.OrderStatus)
		default:
			return nil, errors.NewValidation("unknown order status", map[string]interface{}{
				"value": input.OrderStatus,
			})
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	orders, total, err := uc.deps.Orders.List(ctx, filter)
	if err != nil {
		return nil, persistenceError("failed to list orders", err)
	}
	return &ListOrdersOutput{Orders: orders, Total: total}, nil
}

// prepareOrder validates the submission, prices it from the catalog and
// builds the unsaved order.
func (uc *OrderUseCase) prepareOrder(ctx context.Context, input CheckoutInput, method domain.PaymentMethod) (*domain.Order, error) {
	if strings.TrimSpace(input.BuyerID) == "" {
		return nil, domain.ErrBuyerRequired
	}
	if err := input.Shipping.Validate(); err != nil {
		return nil, err
	}

	requested := input.LineItems
	if len(requested) == 0 && uc.deps.Cart != nil {
		cart, err := uc.deps.Cart.GetCartItems(ctx, input.BuyerID)
		if err != nil {
			return nil, persistenceError("failed to read cart", err)
		}
		for _, ci := range cart {
			requested = append(requested, LineItemInput{
				ProductID: ci.ProductID,
				Name:      ci.Name,
				Quantity:  ci.Quantity,
				ImageRef:  ci.ImageRef,
			})
		}
	}
	if len(requested) == 0 {
		return nil, domain.ErrEmptyLineItems
	}

	// Repeated products collapse into one line so stock moves once per product
	items := make([]domain.LineItem, 0, len(requested))
	position := make(map[string]int, len(requested))
	for i, req := range requested {
		if strings.TrimSpace(req.ProductID) == "" {
			return nil, domain.NewInvalidLineItem(i, "product_ref is required")
		}
		if req.Quantity < 1 {
			return nil, domain.NewInvalidLineItem(i, "quantity must be at least 1")
		}

		product, err := uc.deps.Inventory.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if at, ok := position[product.ID]; ok {
			items[at].Quantity += req.Quantity
			continue
		}

		item := domain.LineItem{
			ProductRef:  product.ID,
			DisplayName: req.Name,
			UnitPrice:   product.EffectivePrice(),
			Quantity:    req.Quantity,
			ImageRef:    req.ImageRef,
		}
		if item.DisplayName == "" {
			item.DisplayName = product.Name
		}
		if item.ImageRef == "" {
			item.ImageRef = product.ImageRef
		}
		position[product.ID] = len(items)
		items = append(items, item)
	}

	order, err := domain.NewOrder(domain.NewOrderParams{
		BuyerID:          input.BuyerID,
		LineItems:        items,
		Shipping:         input.Shipping,
		PaymentMethod:    method,
		Now:              uc.now(),
		DeliveryLeadDays: uc.cfg.DeliveryLeadDays,
	})
	if err != nil {
		return nil, err
	}

	if input.TotalAmount != nil && !input.TotalAmount.Equal(order.TotalAmount) {
		return nil, domain.NewTotalMismatch(input.TotalAmount.String(), order.TotalAmount.String())
	}

	return order, nil
}

type stockLevel struct {
	productID string
	name      string
	stock     int
}

// persistOrder writes the order with its delivery and decrements stock for
// every line item in one transaction. It returns the products that fell to
// or below the low-stock threshold.
func (uc *OrderUseCase) persistOrder(ctx context.Context, order *domain.Order) ([]stockLevel, error) {
	var lowStock []stockLevel

	err := uc.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		lowStock = lowStock[:0]

		if err := uc.deps.Orders.Create(ctx, order); err != nil {
			return err
		}

		for _, li := range order.LineItems {
			remaining, err := uc.deps.Inventory.DecrementStock(ctx, li.ProductRef, li.Quantity)
			if err != nil {
				return err
			}
			if remaining <= uc.cfg.LowStockThreshold {
				lowStock = append(lowStock, stockLevel{productID: li.ProductRef, name: li.DisplayName, stock: remaining})
			}
		}
		return nil
	})
	if err != nil {
		if stderrors.Is(err, domain.ErrDuplicateOrder) {
			return nil, domain.ErrDuplicateOrder
		}
		return nil, persistenceError("failed to create order", err)
	}

	return lowStock, nil
}

// afterOrderCreated runs the best-effort side effects of a committed order
func (uc *OrderUseCase) afterOrderCreated(ctx context.Context, order *domain.Order, lowStock []stockLevel) {
	log := uc.log.WithContext(ctx)

	if uc.deps.Metrics != nil {
		total, _ := order.TotalAmount.Float64()
		uc.deps.Metrics.OrderCreated(string(order.PaymentMethod), total)
	}

	for _, level := range lowStock {
		if uc.deps.Metrics != nil {
			uc.deps.Metrics.LowStock()
		}
		log.Warn("product stock is low",
			zap.String("product_id", level.productID),
			zap.Int("stock", level.stock),
		)
		uc.notify(ctx, ports.Notification{
			Audience: ports.AudienceAdmin,
			Category: ports.CategoryStock,
			Message:  fmt.Sprintf("%s is running low: %d left in stock", level.name, level.stock),
		})
	}

	uc.notify(ctx, ports.Notification{
		Audience: ports.AudienceAdmin,
		Category: ports.CategoryOrder,
		Message: fmt.Sprintf("New %s order %s for %s",
			strings.ReplaceAll(string(order.PaymentMethod), "_", " "), order.ID, order.TotalAmount.StringFixed(2)),
		OrderID: &order.ID,
	})

	if uc.deps.Publisher != nil {
		if err := uc.deps.Publisher.PublishOrderCreated(ctx, order); err != nil {
			log.Error("failed to publish order created event",
				zap.Error(err),
				zap.String("order_id", order.ID.String()),
			)
		}
	}

	log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", order.BuyerID),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("total", order.TotalAmount.String()),
	)
}

// notify hands n to the sink; failures are logged and counted, never returned
func (uc *OrderUseCase) notify(ctx context.Context, n ports.Notification) {
	if uc.deps.Notifier == nil {
		return
	}
	if err := uc.deps.Notifier.Notify(ctx, n); err != nil {
		if uc.deps.Metrics != nil {
			uc.deps.Metrics.NotificationFailed()
		}
		uc.log.WithContext(ctx).Error("failed to record notification",
			zap.Error(err),
			zap.String("category", n.Category),
			zap.String("audience", n.Audience),
		)
	}
}

func (uc *OrderUseCase) findPendingCash(ctx context.Context, buyerID string, total decimal.Decimal) (*domain.Order, error) {
	order, err := uc.deps.Orders.FindPendingCash(ctx, buyerID, total)
	if errors.Is(err, errors.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("failed to check pending orders", err)
	}
	return order, nil
}

func (uc *OrderUseCase) findByTransaction(ctx context.Context, transactionID string) (*domain.Order, error) {
	order, err := uc.deps.Orders.GetByTransactionID(ctx, transactionID)
	if errors.Is(err, errors.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("failed to look up transaction", err)
	}
	return order, nil
}

func (uc *OrderUseCase) cachedOrder(ctx context.Context, sessionID string) *domain.Order {
	if uc.deps.Cache == nil {
		return nil
	}

	orderID, ok, err := uc.deps.Cache.Get(ctx, sessionID)
	if err != nil {
		uc.log.WithContext(ctx).Warn("reconciliation cache read failed",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		return nil
	}
	if !ok {
		return nil
	}

	order, err := uc.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		uc.log.WithContext(ctx).Warn("cached order could not be loaded",
			zap.Error(err),
			zap.String("session_id", sessionID),
			zap.String("order_id", orderID.String()),
		)
		return nil
	}
	return order
}

func (uc *OrderUseCase) cacheSession(ctx context.Context, sessionID string, orderID uuid.UUID) {
	if uc.deps.Cache == nil {
		return
	}
	if err := uc.deps.Cache.Set(ctx, sessionID, orderID); err != nil {
		uc.log.WithContext(ctx).Warn("reconciliation cache write failed",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
	}
}

func (uc *OrderUseCase) recordCheckoutSession(result string) {
	if uc.deps.Metrics != nil {
		uc.deps.Metrics.CheckoutSession(result)
	}
}

func (uc *OrderUseCase) recordReconciliation(result string) {
	if uc.deps.Metrics != nil {
		uc.deps.Metrics.Reconciliation(result)
	}
}

// persistenceError keeps classified errors and wraps anything raw
func persistenceError(message string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.NewPersistence(message, err)
}

func gatewayError(message string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.NewPaymentGateway(message, err)
}
