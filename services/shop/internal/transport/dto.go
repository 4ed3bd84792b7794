package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"   validate:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type AddressDTO struct {
	Street     string `json:"street"      validate:"max=200"`
	City       string `json:"city"        validate:"max=100"`
	State      string `json:"state"       validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country"     validate:"max=100"`
	Phone      string `json:"phone"       validate:"max=32"`
}

func (a *AddressDTO) Model() models.Address {
	if a == nil {
		return models.Address{}
	}
	return models.Address{
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

type CheckoutRequest struct {
	ShippingAddress *AddressDTO `json:"shipping_address"`
	BillingAddress  *AddressDTO `json:"billing_address"`
	PaymentMethod   string      `json:"payment_method" validate:"required,max=64"`
}

type OrderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"   validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
	CheckoutRequest
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type VerifyPaymentRequest struct {
	IntentID string `json:"intent_id" validate:"required"`
	Proof    string `json:"proof"     validate:"required"`
}

type PaymentResultRequest struct {
	Success *bool `json:"success" validate:"required"`
}

type CreateProductRequest struct {
	Name          string           `json:"name"           validate:"required,max=200"`
	Description   string           `json:"description"    validate:"max=5000"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	Stock         int              `json:"stock"          validate:"gte=0"`
	Active        *bool            `json:"active"`
}

type PatchProductRequest struct {
	Name          *string          `json:"name"           validate:"omitempty,min=1,max=200"`
	Description   *string          `json:"description"    validate:"omitempty,max=5000"`
	Price         *decimal.Decimal `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	ClearDiscount bool             `json:"clear_discount"`
	Stock         *int             `json:"stock"          validate:"omitempty,gte=0"`
	Active        *bool            `json:"active"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

func NewPage[T any](items []T, page, offset, limit int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	if page < 1 {
		page = 1
	}
	return Page[T]{
		Data: items,
		Meta: PageMeta{
			Page:       page,
			Size:       limit,
			Total:      total,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
			HasPrev:    page > 1,
			HasNext:    int64(offset+limit) < total,
		},
	}
}
