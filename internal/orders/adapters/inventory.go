package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-storefront/internal/orders/domain"
	"go-storefront/internal/orders/ports"
	"go-storefront/pkg/db"
	apperrors "go-storefront/pkg/errors"
)

// StockPolicy decides what happens when a decrement exceeds the stock on hand
type StockPolicy string

const (
	// StockPolicyClamp floors stock at zero and accepts the order
	StockPolicyClamp StockPolicy = "clamp"
	// StockPolicyReject refuses the decrement and fails the order
	StockPolicyReject StockPolicy = "reject"
)

// ParseStockPolicy maps configuration text to a policy, defaulting to clamp
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch StockPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StockPolicyClamp:
		return StockPolicyClamp, nil
	case StockPolicyReject:
		return StockPolicyReject, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q", s)
	}
}

// ProductModel is the GORM model for catalog products
type ProductModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Name          string              `gorm:"size:255;not null"`
	Price         decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	DiscountPrice decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	Stock         int                 `gorm:"not null;default:0"`
	ImageRef      string              `gorm:"not null;default:''"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// CartItemModel is the GORM model for a buyer's cart row
type CartItemModel struct {
	ID            uint                `gorm:"primaryKey"`
	BuyerID       string              `gorm:"size:64;not null;index"`
	ProductID     uuid.UUID           `gorm:"type:uuid;not null"`
	Name          string              `gorm:"size:255"`
	Price         decimal.Decimal     `gorm:"type:numeric(12,2)"`
	DiscountPrice decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	Quantity      int                 `gorm:"not null"`
	ImageRef      string
	CreatedAt     time.Time
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// GormInventory implements InventoryStore on the products table
type GormInventory struct {
	db     *gorm.DB
	policy StockPolicy
}

// NewGormInventory creates a new inventory store
func NewGormInventory(db *gorm.DB, policy StockPolicy) *GormInventory {
	if policy == "" {
		policy = StockPolicyClamp
	}
	return &GormInventory{db: db, policy: policy}
}

// GetProduct retrieves a live product
func (s *GormInventory) GetProduct(ctx context.Context, id string) (*ports.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.NewProductNotFound(id)
	}

	var model ProductModel
	if err := db.Conn(ctx, s.db).First(&model, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewProductNotFound(id)
		}
		return nil, apperrors.NewPersistence("failed to get product", err)
	}

	return &ports.Product{
		ID:            model.ID.String(),
		Name:          model.Name,
		Price:         model.Price,
		DiscountPrice: model.DiscountPrice.Decimal,
		Stock:         model.Stock,
		ImageRef:      model.ImageRef,
	}, nil
}

type stockRow struct {
	Stock int
}

// DecrementStock removes qty units in a single statement so concurrent
// checkouts serialize on the row lock.
func (s *GormInventory) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return 0, domain.NewProductNotFound(id)
	}

	var rows []stockRow
	conn := db.Conn(ctx, s.db)
	switch s.policy {
	case StockPolicyReject:
		err = conn.Raw(
			`UPDATE products SET stock = stock - ?, updated_at = now()
			 WHERE id = ? AND deleted_at IS NULL AND stock >= ?
			 RETURNING stock`,
			qty, productID, qty,
		).Scan(&rows).Error
	default:
		err = conn.Raw(
			`UPDATE products SET stock = GREATEST(stock - ?, 0), updated_at = now()
			 WHERE id = ? AND deleted_at IS NULL
			 RETURNING stock`,
			qty, productID,
		).Scan(&rows).Error
	}
	if err != nil {
		return 0, apperrors.NewPersistence("failed to decrement stock", err)
	}

	if len(rows) == 0 {
		if s.policy == StockPolicyReject {
			if _, err := s.GetProduct(ctx, id); err != nil {
				return 0, err
			}
			return 0, domain.ErrInsufficientStock
		}
		return 0, domain.NewProductNotFound(id)
	}

	return rows[0].Stock, nil
}

// GormCartReader implements CartReader on the cart_items table
type GormCartReader struct {
	db *gorm.DB
}

// NewGormCartReader creates a new cart reader
func NewGormCartReader(db *gorm.DB) *GormCartReader {
	return &GormCartReader{db: db}
}

// GetCartItems returns the buyer's cart in insertion order
func (r *GormCartReader) GetCartItems(ctx context.Context, buyerID string) ([]ports.CartItem, error) {
	var models []CartItemModel
	if err := db.Conn(ctx, r.db).Where("buyer_id = ?", buyerID).Order("id").Find(&models).Error; err != nil {
		return nil, apperrors.NewPersistence("failed to read cart", err)
	}

	items := make([]ports.CartItem, len(models))
	for i, m := range models {
		items[i] = ports.CartItem{
			ProductID:     m.ProductID.String(),
			Name:          m.Name,
			Price:         m.Price,
			DiscountPrice: m.DiscountPrice.Decimal,
			Quantity:      m.Quantity,
			ImageRef:      m.ImageRef,
		}
	}
	return items, nil
}
