package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/repo"
	"github.com/Skotchmaster/storefront/services/shop/internal/txn"
)

type WishlistService struct {
	Repo *repo.GormRepo
	Tx   *txn.Manager
}

func (s *WishlistService) Add(ctx context.Context, actor principal.Principal, productID uuid.UUID) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	return s.Tx.Do(ctx, "wishlist.add", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		if _, err := r.GetProduct(ctx, productID, repo.ForShare); err != nil {
			return err
		}
		ok, err := r.WishlistContains(ctx, actor.UserID, productID)
		if err != nil {
			return err
		}
		if ok {
			return apperr.Conflict("product %s already in wishlist", productID)
		}
		err = r.AddWishlistItem(ctx, &models.WishlistItem{UserID: actor.UserID, ProductID: productID})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("product %s already in wishlist", productID)
		}
		return err
	})
}

func (s *WishlistService) Remove(ctx context.Context, actor principal.Principal, productID uuid.UUID) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	removed, err := s.Repo.RemoveWishlistItem(ctx, actor.UserID, productID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !removed {
		return apperr.NotFound("product %s is not in the wishlist", productID)
	}
	return nil
}

func (s *WishlistService) List(ctx context.Context, actor principal.Principal) ([]models.Product, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	out, err := s.Repo.ListWishlist(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
