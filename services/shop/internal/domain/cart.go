// Package domain holds the cart and order rules that do not need storage.
// Callers load the rows inside a transaction, apply these functions and
// persist the result.
package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

type CartLineView struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type CartView struct {
	UserID      uuid.UUID       `json:"user_id"`
	Items       []CartLineView  `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func ValidateQuantity(quantity int) error {
	if quantity <= 0 {
		return apperr.BadRequest("quantity must be a positive integer")
	}
	return nil
}

// RequirePurchasable rejects products that are missing, inactive or deleted.
func RequirePurchasable(productID uuid.UUID, p *models.Product) error {
	if p == nil || !p.Purchasable() {
		return apperr.NotFound("product %s", productID)
	}
	return nil
}

func CheckStock(p *models.Product, want int) error {
	if want > p.Stock {
		return apperr.InsufficientStock("product %s: requested %d, available %d", p.ID, want, p.Stock)
	}
	return nil
}

// CheckAdditionalStock checks that add more units fit next to the have
// units already held, without summing the two.
func CheckAdditionalStock(p *models.Product, have, add int) error {
	if add > p.Stock-have {
		return apperr.InsufficientStock("product %s: holding %d, adding %d, available %d", p.ID, have, add, p.Stock)
	}
	return nil
}

func FindLine(cart *models.Cart, productID uuid.UUID) int {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddLine merges quantity into an existing line or appends a new one and
// returns the index of the touched line.
func AddLine(cart *models.Cart, productID uuid.UUID, quantity int, price decimal.Decimal) int {
	if i := FindLine(cart, productID); i >= 0 {
		cart.Items[i].Quantity += quantity
		cart.Items[i].Price = price
		return i
	}
	cart.Items = append(cart.Items, models.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
	})
	return len(cart.Items) - 1
}

func RemoveLine(cart *models.Cart, productID uuid.UUID) bool {
	i := FindLine(cart, productID)
	if i < 0 {
		return false
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	return true
}

// Reprice copies the current catalog price onto every line whose product is
// known. Lines for products that disappeared keep their last price.
func Reprice(cart *models.Cart, products map[uuid.UUID]*models.Product) {
	for i := range cart.Items {
		if p, ok := products[cart.Items[i].ProductID]; ok && p != nil {
			cart.Items[i].Price = p.UnitPrice()
		}
	}
	cart.TotalAmount = Total(cart.Items)
}

func Total(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice())
	}
	return total
}

func Clear(cart *models.Cart) {
	cart.Items = nil
	cart.TotalAmount = decimal.Zero
	cart.Deleted = true
}

// View builds the client facing snapshot. Lines whose product is gone,
// inactive, deleted or short on stock are left out, and prices come from the
// catalog rather than from what the line last recorded.
func View(userID uuid.UUID, cart *models.Cart, products map[uuid.UUID]*models.Product) CartView {
	v := CartView{UserID: userID, Items: []CartLineView{}, TotalAmount: decimal.Zero}
	if cart == nil || cart.Deleted {
		return v
	}
	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok || p == nil || !p.Purchasable() || p.Stock < it.Quantity {
			continue
		}
		price := p.UnitPrice()
		line := CartLineView{
			ProductID:  it.ProductID,
			Name:       p.Name,
			Quantity:   it.Quantity,
			Price:      price,
			TotalPrice: price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		}
		v.Items = append(v.Items, line)
		v.TotalAmount = v.TotalAmount.Add(line.TotalPrice)
	}
	return v
}

// KeepLines drops every line whose product is not in keep and reprices what
// is left. A cart left without lines is cleared.
func KeepLines(cart *models.Cart, keep func(productID uuid.UUID) bool) {
	kept := cart.Items[:0]
	for _, it := range cart.Items {
		if keep(it.ProductID) {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		Clear(cart)
		return
	}
	cart.Items = kept
	cart.TotalAmount = Total(kept)
}

func ProductIDs(items []models.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}
