package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/services/shop/internal/bridge/media"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/mykafka"
	"github.com/Skotchmaster/storefront/services/shop/internal/repo"
	"github.com/Skotchmaster/storefront/services/shop/internal/search"
	"github.com/Skotchmaster/storefront/services/shop/internal/txn"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Tx     *txn.Manager
	Media  media.Store
	Cache  ProductCache
	Index  ProductIndex
	Events EventPublisher
}

type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Stock         int
	Active        bool
}

// ProductPatch carries only the fields the caller wants to change.
type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	DiscountPrice *decimal.Decimal
	ClearDiscount bool
	Stock         *int
	Active        *bool
}

type ImageUpload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

func validateProduct(p *models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.BadRequest("name required")
	}
	if p.Price.IsNegative() {
		return apperr.BadRequest("price must not be negative")
	}
	if p.Stock < 0 {
		return apperr.BadRequest("stock must not be negative")
	}
	if p.DiscountPrice.Valid {
		d := p.DiscountPrice.Decimal
		if d.IsNegative() || !d.LessThan(p.Price) {
			return apperr.BadRequest("discount_price must be between 0 and price")
		}
	}
	return nil
}

func requireSeller(actor principal.Principal) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.IsSeller() && !actor.IsAdmin() {
		return apperr.Forbidden("seller role required")
	}
	return nil
}

func authorizeProduct(actor principal.Principal, p *models.Product) error {
	if p.SellerID != actor.UserID && !actor.IsAdmin() {
		return apperr.Forbidden("product %s belongs to another seller", p.ID)
	}
	return nil
}

// CreateProduct inserts a product and, when image is set, uploads it first.
// The upload is deleted again if the insert does not commit.
func (s *CatalogService) CreateProduct(ctx context.Context, actor principal.Principal, in ProductInput, image *ImageUpload) (*models.Product, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	p := &models.Product{
		SellerID:    actor.UserID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Active:      in.Active,
	}
	if in.DiscountPrice != nil {
		p.DiscountPrice = decimal.NewNullDecimal(*in.DiscountPrice)
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	var opts []txn.Option
	if image != nil {
		up, opt, err := s.upload(ctx, image)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
		p.Images = []models.ProductImage{{PublicID: up.PublicID, URL: up.URL}}
	}

	err := s.Tx.Do(ctx, "catalog.create_product", func(tx *gorm.DB) error {
		return s.Repo.WithTx(tx).CreateProduct(ctx, p)
	}, opts...)
	if err != nil {
		return nil, err
	}
	s.afterProductChange(ctx, p, "product_created")
	return p, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, actor principal.Principal, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	var p *models.Product
	err := s.Tx.Do(ctx, "catalog.patch_product", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		var err error
		p, err = r.GetProduct(ctx, id, repo.ForUpdate)
		if err != nil {
			return err
		}
		if err := authorizeProduct(actor, p); err != nil {
			return err
		}
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		switch {
		case patch.ClearDiscount:
			p.DiscountPrice = decimal.NullDecimal{}
		case patch.DiscountPrice != nil:
			p.DiscountPrice = decimal.NewNullDecimal(*patch.DiscountPrice)
		}
		if patch.Stock != nil {
			p.Stock = *patch.Stock
		}
		if patch.Active != nil {
			p.Active = *patch.Active
		}
		if err := validateProduct(p); err != nil {
			return err
		}
		return r.SaveProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.afterProductChange(ctx, p, "product_updated")
	return p, nil
}

// DeleteProduct soft deletes. Existing cart lines stop showing the product
// and orders keep their captured copy.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor principal.Principal, id uuid.UUID) error {
	if err := requireSeller(actor); err != nil {
		return err
	}
	err := s.Tx.Do(ctx, "catalog.delete_product", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		p, err := r.GetProduct(ctx, id, repo.ForUpdate)
		if err != nil {
			return err
		}
		if err := authorizeProduct(actor, p); err != nil {
			return err
		}
		p.Deleted = true
		return r.SaveProduct(ctx, p)
	})
	if err != nil {
		return err
	}

	l := logging.FromContext(ctx)
	s.invalidate(ctx, id)
	if s.Index != nil {
		if err := s.Index.RemoveProduct(ctx, id); err != nil {
			l.Warn("search_remove_failed", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicProductEvents, mykafka.NewEvent("product_deleted", id.String(), nil))
	return nil
}

func (s *CatalogService) AddImage(ctx context.Context, actor principal.Principal, id uuid.UUID, image ImageUpload) (*models.ProductImage, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	p, err := s.Repo.GetProduct(ctx, id, repo.NoLock)
	if err != nil {
		return nil, err
	}
	if err := authorizeProduct(actor, p); err != nil {
		return nil, err
	}

	up, opt, err := s.upload(ctx, &image)
	if err != nil {
		return nil, err
	}
	img := &models.ProductImage{ProductID: id, PublicID: up.PublicID, URL: up.URL}
	err = s.Tx.Do(ctx, "catalog.add_image", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		if _, err := r.GetProduct(ctx, id, repo.ForShare); err != nil {
			return err
		}
		return r.AddProductImage(ctx, img)
	}, opt)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return img, nil
}

// GetProduct serves from the cache when one is configured.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	load := func(ctx context.Context) (*models.Product, error) {
		return s.Repo.GetProductWithImages(ctx, id)
	}
	if s.Cache == nil {
		return load(ctx)
	}
	p, err := s.Cache.GetOrLoad(ctx, id, load)
	if err != nil && !apperr.Typed(err) {
		return nil, apperr.Internal(err)
	}
	return p, err
}

func (s *CatalogService) ListProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	total, items, err := s.Repo.ListProducts(ctx, offset, limit)
	if err != nil {
		return 0, nil, apperr.Internal(err)
	}
	return total, items, nil
}

func (s *CatalogService) Search(ctx context.Context, query string, offset, limit int) (int64, []search.Document, error) {
	if strings.TrimSpace(query) == "" {
		return 0, nil, apperr.BadRequest("query required")
	}
	if s.Index == nil {
		return 0, nil, apperr.Internal(errors.New("search index not configured"))
	}
	total, docs, err := s.Index.Search(ctx, query, offset, limit)
	if err != nil {
		return 0, nil, apperr.Internal(err)
	}
	return total, docs, nil
}

func (s *CatalogService) upload(ctx context.Context, image *ImageUpload) (media.Uploaded, txn.Option, error) {
	if s.Media == nil {
		return media.Uploaded{}, nil, apperr.BadRequest("image uploads are disabled")
	}
	if image.Body == nil {
		return media.Uploaded{}, nil, apperr.BadRequest("image body required")
	}
	up, err := s.Media.Upload(ctx, image.Name, image.ContentType, image.Body)
	if err != nil {
		logging.FromContext(ctx).Error("image_upload_failed", "name", image.Name, "error", err)
		return media.Uploaded{}, nil, apperr.Internal(err)
	}
	undo := txn.WithCompensation("delete_image", func(ctx context.Context) error {
		return s.Media.Delete(ctx, up.PublicID)
	})
	return up, undo, nil
}

func (s *CatalogService) afterProductChange(ctx context.Context, p *models.Product, eventType string) {
	s.invalidate(ctx, p.ID)
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicProductEvents, mykafka.NewEvent(eventType, p.ID.String(), p))
}

func (s *CatalogService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("product_cache_delete_failed", "product_id", id, "error", err)
	}
}
