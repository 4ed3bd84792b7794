package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

func (r *GormRepo) WishlistContains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) AddWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

// RemoveWishlistItem reports whether a row was deleted.
func (r *GormRepo) RemoveWishlistItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.WishlistItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	err := r.DB.WithContext(ctx).
		Joins("JOIN wishlist_items ON wishlist_items.product_id = products.id").
		Where("wishlist_items.user_id = ? AND products.deleted = ?", userID, false).
		Order("wishlist_items.created_at DESC").
		Find(&out).Error
	return out, err
}
