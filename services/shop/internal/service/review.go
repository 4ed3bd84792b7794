package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/repo"
	"github.com/Skotchmaster/storefront/services/shop/internal/txn"
)

// ReviewService keeps a product's rating and review count in step with its
// reviews. One review per user and product.
type ReviewService struct {
	Repo  *repo.GormRepo
	Tx    *txn.Manager
	Cache ProductCache
}

func (s *ReviewService) Add(ctx context.Context, actor principal.Principal, productID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, apperr.BadRequest("rating must be between 1 and 5")
	}

	rv := &models.Review{ProductID: productID, UserID: actor.UserID, Rating: rating, Comment: strings.TrimSpace(comment)}
	err := s.Tx.Do(ctx, "review.add", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		p, err := r.GetProduct(ctx, productID, repo.ForUpdate)
		if err != nil {
			return err
		}
		existing, err := r.FindReview(ctx, productID, actor.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("product %s already reviewed", productID)
		}
		if err := r.CreateReview(ctx, rv); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("product %s already reviewed", productID)
			}
			return err
		}
		return refreshRating(ctx, r, p)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, productID)
	return rv, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor principal.Principal, productID uuid.UUID) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	err := s.Tx.Do(ctx, "review.delete", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		p, err := r.GetProduct(ctx, productID, repo.ForUpdate)
		if err != nil {
			return err
		}
		rv, err := r.FindReview(ctx, productID, actor.UserID)
		if err != nil {
			return err
		}
		if rv == nil {
			return apperr.NotFound("review for product %s", productID)
		}
		if err := r.DeleteReview(ctx, rv.ID); err != nil {
			return err
		}
		return refreshRating(ctx, r, p)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, productID)
	return nil
}

func (s *ReviewService) List(ctx context.Context, productID uuid.UUID, offset, limit int) (int64, []models.Review, error) {
	total, out, err := s.Repo.ListReviews(ctx, productID, offset, limit)
	if err != nil {
		return 0, nil, apperr.Internal(err)
	}
	return total, out, nil
}

func refreshRating(ctx context.Context, r *repo.GormRepo, p *models.Product) error {
	avg, count, err := r.RatingStats(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Rating = avg
	p.ReviewCount = count
	return r.SaveProduct(ctx, p)
}

func (s *ReviewService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, id)
	}
}
