package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-storefront/internal/orders/domain"
	"go-storefront/pkg/db"
	apperrors "go-storefront/pkg/errors"
)

// DeliveryModel is the GORM model for deliveries
type DeliveryModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CurrentStatus      string    `gorm:"size:32;not null"`
	ExpectedDate       time.Time `gorm:"not null"`
	ActualDeliveryDate *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	History []DeliveryHistoryModel `gorm:"foreignKey:DeliveryID"`
}

// TableName returns the table name for GORM
func (DeliveryModel) TableName() string {
	return "deliveries"
}

// DeliveryHistoryModel is one append-only status change
type DeliveryHistoryModel struct {
	ID         uint      `gorm:"primaryKey"`
	DeliveryID uuid.UUID `gorm:"type:uuid;not null;index"`
	Status     string    `gorm:"size:32;not null"`
	ChangedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DeliveryHistoryModel) TableName() string {
	return "delivery_history"
}

// PostgresDeliveryRepository implements DeliveryRepository using PostgreSQL
type PostgresDeliveryRepository struct {
	db *gorm.DB
}

// NewPostgresDeliveryRepository creates a new PostgreSQL delivery repository
func NewPostgresDeliveryRepository(db *gorm.DB) *PostgresDeliveryRepository {
	return &PostgresDeliveryRepository{db: db}
}

// GetByID retrieves a delivery with its history
func (r *PostgresDeliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	var model DeliveryModel

	err := db.Conn(ctx, r.db).
		Preload("History", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewDeliveryNotFound(id)
		}
		return nil, apperrors.NewPersistence("failed to get delivery", err)
	}

	return toDeliveryDomain(&model), nil
}

// SaveTransition updates the delivery row and appends its newest history entry.
// The row is only written while its status is still from.
func (r *PostgresDeliveryRepository) SaveTransition(ctx context.Context, delivery *domain.Delivery, from domain.DeliveryStatus) error {
	conn := db.Conn(ctx, r.db)

	result := conn.Model(&DeliveryModel{}).
		Where("id = ? AND current_status = ?", delivery.ID, string(from)).
		Updates(map[string]interface{}{
			"current_status":       string(delivery.CurrentStatus),
			"actual_delivery_date": delivery.ActualDeliveryDate,
			"updated_at":           delivery.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.NewPersistence("failed to update delivery", result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrMoved(conn.Model(&DeliveryModel{}), delivery.ID, domain.NewDeliveryNotFound(delivery.ID))
	}

	last := delivery.LastChange()
	entry := DeliveryHistoryModel{
		DeliveryID: delivery.ID,
		Status:     string(last.Status),
		ChangedAt:  last.ChangedAt,
	}
	if err := conn.Create(&entry).Error; err != nil {
		return apperrors.NewPersistence("failed to append delivery history", err)
	}

	return nil
}

// SetOrderStatus updates the parent order's lifecycle label
func (r *PostgresDeliveryRepository) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	result := db.Conn(ctx, r.db).Model(&OrderModel{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"order_status": string(status),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return apperrors.NewPersistence("failed to update order status", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewOrderNotFound(orderID)
	}
	return nil
}

func toDeliveryModel(d *domain.Delivery) *DeliveryModel {
	model := &DeliveryModel{
		ID:                 d.ID,
		OrderID:            d.OrderID,
		CurrentStatus:      string(d.CurrentStatus),
		ExpectedDate:       d.ExpectedDate,
		ActualDeliveryDate: d.ActualDeliveryDate,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	model.History = make([]DeliveryHistoryModel, len(d.History))
	for i, h := range d.History {
		model.History[i] = DeliveryHistoryModel{
			DeliveryID: d.ID,
			Status:     string(h.Status),
			ChangedAt:  h.ChangedAt,
		}
	}
	return model
}

func toDeliveryDomain(model *DeliveryModel) *domain.Delivery {
	d := &domain.Delivery{
		ID:                 model.ID,
		OrderID:            model.OrderID,
		CurrentStatus:      domain.DeliveryStatus(model.CurrentStatus),
		ExpectedDate:       model.ExpectedDate,
		ActualDeliveryDate: model.ActualDeliveryDate,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
	d.History = make([]domain.StatusChange, len(model.History))
	for i, h := range model.History {
		d.History[i] = domain.StatusChange{
			Status:    domain.DeliveryStatus(h.Status),
			ChangedAt: h.ChangedAt,
		}
	}
	return d
}
