package adapters

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-storefront/internal/orders/ports"
	apperrors "go-storefront/pkg/errors"
	"go-storefront/pkg/events"
	"go-storefront/pkg/logger"
)

// NotificationModel is the GORM model for stored notifications
type NotificationModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Audience  string     `gorm:"size:64;not null"`
	Category  string     `gorm:"size:32;not null"`
	Message   string     `gorm:"not null"`
	OrderID   *uuid.UUID `gorm:"type:uuid"`
	IsRead    bool       `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// NotificationPublisher mirrors stored notifications onto the bus
type NotificationPublisher interface {
	PublishNotificationCreated(ctx context.Context, payload events.NotificationCreatedPayload) error
}

// GormNotificationSink implements NotificationSink: it stores the record and
// then announces it. Publishing is best-effort once the row exists.
type GormNotificationSink struct {
	db        *gorm.DB
	publisher NotificationPublisher
	log       *logger.Logger
}

// NewGormNotificationSink creates a new notification sink; publisher may be nil
func NewGormNotificationSink(db *gorm.DB, publisher NotificationPublisher, log *logger.Logger) *GormNotificationSink {
	return &GormNotificationSink{db: db, publisher: publisher, log: log}
}

// Notify stores n and publishes notification.created
func (s *GormNotificationSink) Notify(ctx context.Context, n ports.Notification) error {
	model := NotificationModel{
		ID:        uuid.New(),
		Audience:  n.Audience,
		Category:  n.Category,
		Message:   n.Message,
		OrderID:   n.OrderID,
		CreatedAt: time.Now().UTC(),
	}

	// Notifications run after the order commits, so never join a caller transaction.
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return apperrors.NewPersistence("failed to store notification", err)
	}

	if s.publisher == nil {
		return nil
	}

	payload := events.NotificationCreatedPayload{
		ID:        model.ID.String(),
		Audience:  model.Audience,
		Category:  model.Category,
		Message:   model.Message,
		CreatedAt: model.CreatedAt,
	}
	if model.OrderID != nil {
		payload.OrderID = model.OrderID.String()
	}
	if err := s.publisher.PublishNotificationCreated(ctx, payload); err != nil {
		s.log.WithContext(ctx).Warn("failed to publish notification",
			zap.String("notification_id", payload.ID),
			zap.Error(err),
		)
	}

	return nil
}
