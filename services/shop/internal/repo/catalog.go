package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

// GetProduct returns a product that has not been soft deleted.
func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID, lock LockMode) (*models.Product, error) {
	var p models.Product
	q := lock.apply(r.DB.WithContext(ctx)).Where("id = ? AND deleted = ?", id, false)
	if err := q.First(&p).Error; err != nil {
		return nil, notFound(err, "product", id)
	}
	return &p, nil
}

func (r *GormRepo) GetProductWithImages(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.DB.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ? AND deleted = ?", id, false).
		First(&p).Error
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &p, nil
}

// ProductsByIDs loads products regardless of status, keyed by id. Rows are
// read in id order so concurrent lockers acquire them in the same order.
func (r *GormRepo) ProductsByIDs(ctx context.Context, ids []uuid.UUID, lock LockMode) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	q := lock.apply(r.DB.WithContext(ctx)).Where("id IN ?", ids).Order("id ASC")
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{}).Where("deleted = ? AND active = ?", false, true).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := q.Order("created_at DESC").Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

// SaveProduct writes the mutable catalog columns of p.
func (r *GormRepo) SaveProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Model(p).Select(
		"name", "description", "price", "discount_price", "stock", "active", "deleted", "rating", "review_count", "updated_at",
	).Updates(p).Error
}

func (r *GormRepo) AddProductImage(ctx context.Context, img *models.ProductImage) error {
	return r.DB.WithContext(ctx).Create(img).Error
}

// AdjustStock adds delta to the stock of product id.
func (r *GormRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "product", id)
	}
	return nil
}
