package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

func (r *GormRepo) FindReview(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	var rv models.Review
	err := r.DB.WithContext(ctx).Where("product_id = ? AND user_id = ?", productID, userID).First(&rv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *GormRepo) CreateReview(ctx context.Context, rv *models.Review) error {
	return r.DB.WithContext(ctx).Create(rv).Error
}

func (r *GormRepo) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Delete(&models.Review{}, "id = ?", id).Error
}

func (r *GormRepo) ListReviews(ctx context.Context, productID uuid.UUID, offset, limit int) (int64, []models.Review, error) {
	q := r.DB.WithContext(ctx).Model(&models.Review{}).Where("product_id = ?", productID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	out := make([]models.Review, 0, limit)
	if err := q.Order("created_at DESC").Order("id ASC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return 0, nil, err
	}
	return total, out, nil
}

// RatingStats returns the mean rating and the number of reviews of a product.
func (r *GormRepo) RatingStats(ctx context.Context, productID uuid.UUID) (float64, int, error) {
	var row struct {
		Avg   *float64
		Count int
	}
	err := r.DB.WithContext(ctx).Model(&models.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	if row.Avg == nil {
		return 0, row.Count, nil
	}
	return *row.Avg, row.Count, nil
}
