package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-storefront/internal/orders/domain"
	"go-storefront/internal/orders/ports"
	"go-storefront/pkg/db"
	apperrors "go-storefront/pkg/errors"
)

// OrderModel is the GORM model for orders (persistence layer)
type OrderModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BuyerID        string          `gorm:"size:64;not null;index"`
	ShipName       string          `gorm:"size:255;not null"`
	ShipPhone      string          `gorm:"size:64;not null"`
	ShipAddress    string          `gorm:"not null"`
	ShipCity       string          `gorm:"size:128;not null"`
	ShipState      string          `gorm:"size:128;not null;default:''"`
	ShipCountry    string          `gorm:"size:128;not null"`
	ShipPostalCode string          `gorm:"size:32;not null"`
	PaymentMethod  string          `gorm:"size:32;not null"`
	PaymentStatus  string          `gorm:"size:16;not null;default:'pending'"`
	TransactionID  *string         `gorm:"size:255"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	IsPaid         bool            `gorm:"not null;default:false"`
	PaidAt         *time.Time
	OrderStatus    string          `gorm:"size:16;not null;default:'Processing'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	LineItems []LineItemModel `gorm:"foreignKey:OrderID"`
	Delivery  *DeliveryModel  `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// LineItemModel is the GORM model for order line items
type LineItemModel struct {
	ID          uint            `gorm:"primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null"`
	Position    int             `gorm:"not null"`
	ProductRef  string          `gorm:"type:uuid;not null"`
	DisplayName string          `gorm:"size:255;not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Quantity    int             `gorm:"not null"`
	ImageRef    string          `gorm:"not null;default:''"`
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "order_line_items"
}

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *gorm.DB
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository
func NewPostgresOrderRepository(db *gorm.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Create stores the order, line items, delivery and first history entry.
// A savepoint keeps a unique violation from poisoning the caller's transaction.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := toOrderModel(order)

	err := db.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.LineItems) > 0 {
			if err := tx.Create(&model.LineItems).Error; err != nil {
				return err
			}
		}
		if model.Delivery != nil {
			if err := tx.Omit(clause.Associations).Create(model.Delivery).Error; err != nil {
				return err
			}
			if len(model.Delivery.History) > 0 {
				if err := tx.Create(&model.Delivery.History).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateOrder
	}
	if err != nil {
		return apperrors.NewPersistence("failed to create order", err)
	}

	return nil
}

func (r *PostgresOrderRepository) query(ctx context.Context) *gorm.DB {
	return db.Conn(ctx, r.db).
		Preload("LineItems", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Preload("Delivery").
		Preload("Delivery.History", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") })
}

func (r *PostgresOrderRepository) first(ctx context.Context, notFound error, query interface{}, args ...interface{}) (*domain.Order, error) {
	var model OrderModel

	err := r.query(ctx).Where(query, args...).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, apperrors.NewPersistence("failed to get order", err)
	}

	return toOrderDomain(&model), nil
}

// GetByID retrieves an order by ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.first(ctx, domain.NewOrderNotFound(id), "id = ?", id)
}

// GetByTransactionID retrieves the order paid by a gateway transaction
func (r *PostgresOrderRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Order, error) {
	return r.first(ctx, domain.NewOrderNotFound(transactionID), "transaction_id = ?", transactionID)
}

// FindPendingCash retrieves the buyer's pending cash-on-delivery order with the given total
func (r *PostgresOrderRepository) FindPendingCash(ctx context.Context, buyerID string, total decimal.Decimal) (*domain.Order, error) {
	return r.first(ctx, domain.ErrOrderNotFound,
		"buyer_id = ? AND payment_method = ? AND payment_status = ? AND total_amount = ?",
		buyerID, string(domain.PaymentMethodCashOnDelivery), string(domain.PaymentStatusPending), total)
}

// UpdatePayment persists payment status, paid flag and paid timestamp while the
// stored status is still from
func (r *PostgresOrderRepository) UpdatePayment(ctx context.Context, order *domain.Order, from domain.PaymentStatus) error {
	conn := db.Conn(ctx, r.db)

	result := conn.Model(&OrderModel{}).
		Where("id = ? AND payment_status = ?", order.ID, string(from)).
		Updates(map[string]interface{}{
			"payment_status": string(order.PaymentStatus),
			"is_paid":        order.IsPaid,
			"paid_at":        order.PaidAt,
			"updated_at":     order.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.NewPersistence("failed to update order payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrMoved(conn.Model(&OrderModel{}), order.ID, domain.NewOrderNotFound(order.ID))
	}
	return nil
}

// missingOrMoved tells a vanished row from one whose guard column changed
func missingOrMoved(tx *gorm.DB, id uuid.UUID, notFound error) error {
	var count int64
	if err := tx.Where("id = ?", id).Count(&count).Error; err != nil {
		return apperrors.NewPersistence("failed to check record", err)
	}
	if count == 0 {
		return notFound
	}
	return domain.ErrConcurrentUpdate
}

// ListByBuyer retrieves a buyer's orders, newest first
func (r *PostgresOrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	var models []OrderModel

	err := r.query(ctx).Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&models).Error
	if err != nil {
		return nil, apperrors.NewPersistence("failed to get orders by buyer", err)
	}

	return toOrderDomains(models), nil
}

// List retrieves orders matching filter, newest first, with the unpaged count
func (r *PostgresOrderRepository) List(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, int64, error) {
	scope := func(tx *gorm.DB) *gorm.DB {
		if filter.PaymentStatus != "" {
			tx = tx.Where("payment_status = ?", string(filter.PaymentStatus))
		}
		if filter.OrderStatus != "" {
			tx = tx.Where("order_status = ?", string(filter.OrderStatus))
		}
		return tx
	}

	var total int64
	if err := db.Conn(ctx, r.db).Model(&OrderModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewPersistence("failed to count orders", err)
	}

	var models []OrderModel
	err := r.query(ctx).Scopes(scope).
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.NewPersistence("failed to list orders", err)
	}

	return toOrderDomains(models), total, nil
}

// toOrderModel converts a domain entity to a GORM model
func toOrderModel(order *domain.Order) *OrderModel {
	model := &OrderModel{
		ID:             order.ID,
		BuyerID:        order.BuyerID,
		ShipName:       order.Shipping.Name,
		ShipPhone:      order.Shipping.Phone,
		ShipAddress:    order.Shipping.AddressLine,
		ShipCity:       order.Shipping.City,
		ShipState:      order.Shipping.State,
		ShipCountry:    order.Shipping.Country,
		ShipPostalCode: order.Shipping.PostalCode,
		PaymentMethod:  string(order.PaymentMethod),
		PaymentStatus:  string(order.PaymentStatus),
		TotalAmount:    order.TotalAmount,
		IsPaid:         order.IsPaid,
		PaidAt:         order.PaidAt,
		OrderStatus:    string(order.OrderStatus),
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	if order.TransactionID != "" {
		txID := order.TransactionID
		model.TransactionID = &txID
	}

	model.LineItems = make([]LineItemModel, len(order.LineItems))
	for i, li := range order.LineItems {
		model.LineItems[i] = LineItemModel{
			OrderID:     order.ID,
			Position:    i,
			ProductRef:  li.ProductRef,
			DisplayName: li.DisplayName,
			UnitPrice:   li.UnitPrice,
			Quantity:    li.Quantity,
			ImageRef:    li.ImageRef,
		}
	}

	if order.Delivery != nil {
		model.Delivery = toDeliveryModel(order.Delivery)
	}

	return model
}

// toOrderDomain converts a GORM model to a domain entity
func toOrderDomain(model *OrderModel) *domain.Order {
	order := &domain.Order{
		ID:      model.ID,
		BuyerID: model.BuyerID,
		Shipping: domain.ShippingDestination{
			Name:        model.ShipName,
			Phone:       model.ShipPhone,
			AddressLine: model.ShipAddress,
			City:        model.ShipCity,
			State:       model.ShipState,
			Country:     model.ShipCountry,
			PostalCode:  model.ShipPostalCode,
		},
		PaymentMethod: domain.PaymentMethod(model.PaymentMethod),
		PaymentStatus: domain.PaymentStatus(model.PaymentStatus),
		TotalAmount:   model.TotalAmount,
		IsPaid:        model.IsPaid,
		PaidAt:        model.PaidAt,
		OrderStatus:   domain.OrderStatus(model.OrderStatus),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
	if model.TransactionID != nil {
		order.TransactionID = *model.TransactionID
	}

	order.LineItems = make([]domain.LineItem, len(model.LineItems))
	for i, li := range model.LineItems {
		order.LineItems[i] = domain.LineItem{
			ProductRef:  li.ProductRef,
			DisplayName: li.DisplayName,
			UnitPrice:   li.UnitPrice,
			Quantity:    li.Quantity,
			ImageRef:    li.ImageRef,
		}
	}

	if model.Delivery != nil {
		order.Delivery = toDeliveryDomain(model.Delivery)
	}

	return order
}

func toOrderDomains(models []OrderModel) []*domain.Order {
	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = toOrderDomain(&models[i])
	}
	return orders
}
