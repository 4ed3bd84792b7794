package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

// GetCart reads the cart of userID with its lines. A missing cart is not an
// error: it returns nil.
func (r *GormRepo) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return r.loadCart(ctx, userID, NoLock)
}

// LockCart selects the cart row FOR UPDATE. Returns nil when the user has
// never had a cart.
func (r *GormRepo) LockCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return r.loadCart(ctx, userID, ForUpdate)
}

// LockOrCreateCart inserts an empty cart if none exists and then locks it.
// Concurrent first adds for the same user race on the unique user_id index;
// the loser's insert is a no-op and it waits on the row lock instead.
func (r *GormRepo) LockOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	fresh := models.Cart{UserID: userID, TotalAmount: decimal.Zero}
	err := r.DB.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&fresh).Error
	if err != nil {
		return nil, err
	}

	cart, err := r.LockCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, errors.New("cart vanished after insert")
	}
	return cart, nil
}

func (r *GormRepo) loadCart(ctx context.Context, userID uuid.UUID, lock LockMode) (*models.Cart, error) {
	var cart models.Cart
	err := lock.apply(r.DB.WithContext(ctx)).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.DB.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("created_at ASC").Order("id ASC").
		Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// SaveCart persists the header and makes the stored lines match cart.Items.
func (r *GormRepo) SaveCart(ctx context.Context, cart *models.Cart) error {
	db := r.DB.WithContext(ctx)

	var stored []uuid.UUID
	if err := db.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Pluck("id", &stored).Error; err != nil {
		return err
	}
	existing := make(map[uuid.UUID]bool, len(stored))
	for _, id := range stored {
		existing[id] = true
	}

	keep := make(map[uuid.UUID]bool, len(cart.Items))
	for i := range cart.Items {
		it := &cart.Items[i]
		it.CartID = cart.ID
		if it.ID != uuid.Nil && existing[it.ID] {
			if err := db.Model(it).Select("quantity", "price", "updated_at").Updates(it).Error; err != nil {
				return err
			}
		} else if err := db.Create(it).Error; err != nil {
			return err
		}
		keep[it.ID] = true
	}

	var drop []uuid.UUID
	for _, id := range stored {
		if !keep[id] {
			drop = append(drop, id)
		}
	}
	if len(drop) > 0 {
		if err := db.Where("id IN ?", drop).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
	}

	cart.Version++
	return db.Model(cart).Omit(clause.Associations).
		Select("total_amount", "deleted", "version", "updated_at").
		Updates(cart).Error
}
