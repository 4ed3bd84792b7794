package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/services/shop/internal/domain"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/mykafka"
	"github.com/Skotchmaster/storefront/services/shop/internal/repo"
	"github.com/Skotchmaster/storefront/services/shop/internal/txn"
)

type CartService struct {
	Repo   *repo.GormRepo
	Tx     *txn.Manager
	Events EventPublisher
}

// cartMutation edits a locked cart in place. products holds every product
// referenced by the cart plus the one being touched, read in the same
// transaction.
type cartMutation func(cart *models.Cart, products map[uuid.UUID]*models.Product) error

func (s *CartService) AddItem(ctx context.Context, actor principal.Principal, owner, productID uuid.UUID, quantity int) (domain.CartView, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return domain.CartView{}, err
	}
	view, err := s.mutate(ctx, "add_item", actor, owner, true, productID, func(cart *models.Cart, products map[uuid.UUID]*models.Product) error {
		p := products[productID]
		if err := domain.RequirePurchasable(productID, p); err != nil {
			return err
		}
		have := 0
		if i := domain.FindLine(cart, productID); i >= 0 {
			have = cart.Items[i].Quantity
		}
		if err := domain.CheckAdditionalStock(p, have, quantity); err != nil {
			return err
		}
		cart.Deleted = false
		domain.AddLine(cart, productID, quantity, p.UnitPrice())
		return nil
	})
	if err != nil {
		return domain.CartView{}, err
	}
	publish(ctx, s.Events, mykafka.TopicCartEvents, mykafka.NewEvent("cart_item_added", owner.String(), map[string]any{
		"product_id": productID, "quantity": quantity,
	}))
	return view, nil
}

func (s *CartService) RemoveItem(ctx context.Context, actor principal.Principal, owner, productID uuid.UUID) (domain.CartView, error) {
	view, err := s.mutate(ctx, "remove_item", actor, owner, false, productID, func(cart *models.Cart, _ map[uuid.UUID]*models.Product) error {
		if !domain.RemoveLine(cart, productID) {
			return apperr.NotFound("product %s is not in the cart", productID)
		}
		return nil
	})
	if err != nil {
		return domain.CartView{}, err
	}
	publish(ctx, s.Events, mykafka.TopicCartEvents, mykafka.NewEvent("cart_item_removed", owner.String(), map[string]any{
		"product_id": productID,
	}))
	return view, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, actor principal.Principal, owner, productID uuid.UUID, quantity int) (domain.CartView, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return domain.CartView{}, err
	}
	view, err := s.mutate(ctx, "update_quantity", actor, owner, false, productID, func(cart *models.Cart, products map[uuid.UUID]*models.Product) error {
		i := domain.FindLine(cart, productID)
		if i < 0 {
			return apperr.NotFound("product %s is not in the cart", productID)
		}
		p := products[productID]
		if err := domain.RequirePurchasable(productID, p); err != nil {
			return err
		}
		if err := domain.CheckStock(p, quantity); err != nil {
			return err
		}
		cart.Items[i].Quantity = quantity
		cart.Items[i].Price = p.UnitPrice()
		return nil
	})
	if err != nil {
		return domain.CartView{}, err
	}
	publish(ctx, s.Events, mykafka.TopicCartEvents, mykafka.NewEvent("cart_item_updated", owner.String(), map[string]any{
		"product_id": productID, "quantity": quantity,
	}))
	return view, nil
}

// Clear soft-clears the cart. Clearing a cart that was never created is a
// no-op.
func (s *CartService) Clear(ctx context.Context, actor principal.Principal, owner uuid.UUID) error {
	if err := authorizeCart(actor, owner); err != nil {
		return err
	}
	err := s.Tx.Do(ctx, "cart.clear", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		cart, err := r.LockCart(ctx, owner)
		if err != nil || cart == nil {
			return err
		}
		domain.Clear(cart)
		return r.SaveCart(ctx, cart)
	})
	if err != nil {
		return err
	}
	publish(ctx, s.Events, mykafka.TopicCartEvents, mykafka.NewEvent("cart_cleared", owner.String(), nil))
	return nil
}

// View never writes: lines hidden from the snapshot stay stored.
func (s *CartService) View(ctx context.Context, actor principal.Principal, owner uuid.UUID) (domain.CartView, error) {
	if err := authorizeCart(actor, owner); err != nil {
		return domain.CartView{}, err
	}
	cart, err := s.Repo.GetCart(ctx, owner)
	if err != nil {
		return domain.CartView{}, apperr.Internal(err)
	}
	if cart == nil {
		return domain.View(owner, nil, nil), nil
	}
	products, err := s.Repo.ProductsByIDs(ctx, domain.ProductIDs(cart.Items), repo.NoLock)
	if err != nil {
		return domain.CartView{}, apperr.Internal(err)
	}
	return domain.View(owner, cart, products), nil
}

func (s *CartService) mutate(ctx context.Context, name string, actor principal.Principal, owner uuid.UUID, create bool, productID uuid.UUID, fn cartMutation) (domain.CartView, error) {
	if err := authorizeCart(actor, owner); err != nil {
		return domain.CartView{}, err
	}
	if productID == uuid.Nil {
		return domain.CartView{}, apperr.BadRequest("product_id required")
	}

	var view domain.CartView
	err := s.Tx.Do(ctx, "cart."+name, func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)

		var (
			cart *models.Cart
			err  error
		)
		if create {
			cart, err = r.LockOrCreateCart(ctx, owner)
		} else {
			cart, err = r.LockCart(ctx, owner)
		}
		if err != nil {
			return err
		}
		if cart == nil || (!create && cart.Deleted) {
			return apperr.NotFound("product %s is not in the cart", productID)
		}

		ids := append(domain.ProductIDs(cart.Items), productID)
		products, err := r.ProductsByIDs(ctx, ids, repo.ForShare)
		if err != nil {
			return err
		}

		if err := fn(cart, products); err != nil {
			return err
		}
		domain.Reprice(cart, products)
		if err := r.SaveCart(ctx, cart); err != nil {
			return err
		}
		view = domain.View(owner, cart, products)
		return nil
	})
	return view, err
}

func authorizeCart(actor principal.Principal, owner uuid.UUID) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if actor.UserID != owner {
		return apperr.Forbidden("cart belongs to another user")
	}
	return nil
}
