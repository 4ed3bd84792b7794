package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

// GetOrder returns a live order with its lines.
func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID, lock LockMode) (*models.Order, error) {
	var o models.Order
	q := lock.apply(r.DB.WithContext(ctx)).Where("id = ? AND deleted = ?", id, false)
	if err := q.First(&o).Error; err != nil {
		return nil, notFound(err, "order", id)
	}
	if err := r.DB.WithContext(ctx).Where("order_id = ?", o.ID).Order("id ASC").Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ? AND deleted = ?", userID, false)
	return r.pageOrders(q, offset, limit)
}

// ListSellerOrders returns live orders holding at least one line sold by sellerID.
func (r *GormRepo) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	sub := r.DB.Model(&models.OrderItem{}).Select("order_id").Where("seller_id = ?", sellerID)
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id IN (?) AND deleted = ?", sub, false)
	return r.pageOrders(q, offset, limit)
}

func (r *GormRepo) pageOrders(q *gorm.DB, offset, limit int) (int64, []models.Order, error) {
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	orders := make([]models.Order, 0, limit)
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// SaveOrderState writes the mutable status columns of o.
func (r *GormRepo) SaveOrderState(ctx context.Context, o *models.Order) error {
	return r.DB.WithContext(ctx).Model(o).Omit("Items").
		Select("payment_status", "fulfillment_status", "payment_intent_id", "stock_released", "deleted", "updated_at").
		Updates(o).Error
}
