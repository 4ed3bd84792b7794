package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID            uuid.UUID           `gorm:"primaryKey"                         json:"id"`
	SellerID      uuid.UUID           `gorm:"index;not null"                     json:"seller_id"`
	Name          string              `gorm:"not null"                           json:"name"`
	Description   string              `gorm:"not null"                           json:"description"`
	Price         decimal.Decimal     `gorm:"type:numeric(12,2);not null"        json:"price"`
	DiscountPrice decimal.NullDecimal `gorm:"type:numeric(12,2)"                 json:"discount_price"`
	Stock         int                 `gorm:"not null;check:stock >= 0"          json:"stock"`
	Active        bool                `gorm:"not null"                           json:"active"`
	Deleted       bool                `gorm:"index;not null"                     json:"-"`
	Rating        float64             `gorm:"not null"                           json:"rating"`
	ReviewCount   int                 `gorm:"not null"                           json:"review_count"`
	Images        []ProductImage      `gorm:"foreignKey:ProductID"               json:"images,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// UnitPrice is what a buyer pays per item right now.
func (p *Product) UnitPrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.LessThan(p.Price) {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

// Purchasable reports whether the product may enter a cart.
func (p *Product) Purchasable() bool {
	return p.Active && !p.Deleted
}

type ProductImage struct {
	ID        uuid.UUID `gorm:"primaryKey"            json:"id"`
	ProductID uuid.UUID `gorm:"index;not null"        json:"product_id"`
	PublicID  string    `gorm:"not null"              json:"public_id"`
	URL       string    `gorm:"not null"              json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type Review struct {
	ID        uuid.UUID `gorm:"primaryKey"                                     json:"id"`
	ProductID uuid.UUID `gorm:"not null;uniqueIndex:idx_review_product_user"   json:"product_id"`
	UserID    uuid.UUID `gorm:"not null;uniqueIndex:idx_review_product_user"   json:"user_id"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5"          json:"rating"`
	Comment   string    `gorm:"not null"                                       json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type WishlistItem struct {
	ID        uuid.UUID `gorm:"primaryKey"                                     json:"id"`
	UserID    uuid.UUID `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"user_id"`
	ProductID uuid.UUID `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Cart struct {
	ID          uuid.UUID       `gorm:"primaryKey"                  json:"id"`
	UserID      uuid.UUID       `gorm:"uniqueIndex;not null"        json:"user_id"`
	Items       []CartItem      `gorm:"foreignKey:CartID"           json:"items"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Deleted     bool            `gorm:"not null"                    json:"-"`
	Version     int             `gorm:"not null"                    json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CartItem struct {
	ID        uuid.UUID       `gorm:"primaryKey"                                     json:"id"`
	CartID    uuid.UUID       `gorm:"not null;uniqueIndex:idx_cart_items_product"    json:"cart_id"`
	ProductID uuid.UUID       `gorm:"not null;uniqueIndex:idx_cart_items_product"    json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity > 0"                    json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (i CartItem) TotalPrice() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentShipped   FulfillmentStatus = "shipped"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentCancelled FulfillmentStatus = "cancelled"
)

// Address is stored inline on the order; an all-empty value means omitted.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

type Order struct {
	ID                uuid.UUID         `gorm:"primaryKey"                          json:"id"`
	UserID            uuid.UUID         `gorm:"index;not null"                      json:"user_id"`
	ContactEmail      string            `gorm:"not null"                            json:"-"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID"                  json:"items"`
	ShippingAddress   Address           `gorm:"embedded;embeddedPrefix:shipping_"   json:"shipping_address"`
	BillingAddress    Address           `gorm:"embedded;embeddedPrefix:billing_"    json:"billing_address"`
	PaymentMethod     string            `gorm:"not null"                            json:"payment_method"`
	TotalAmount       decimal.Decimal   `gorm:"type:numeric(12,2);not null"         json:"total_amount"`
	PaymentStatus     PaymentStatus     `gorm:"index;not null"                      json:"payment_status"`
	FulfillmentStatus FulfillmentStatus `gorm:"index;not null"                      json:"fulfillment_status"`
	PaymentIntentID   string            `gorm:"index;not null"                      json:"payment_intent_id,omitempty"`
	StockReleased     bool              `gorm:"not null"                            json:"-"`
	Deleted           bool              `gorm:"index;not null"                      json:"-"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"primaryKey"                  json:"id"`
	OrderID   uuid.UUID       `gorm:"index;not null"              json:"order_id"`
	ProductID uuid.UUID       `gorm:"index;not null"              json:"product_id"`
	SellerID  uuid.UUID       `gorm:"index;not null"              json:"seller_id"`
	Name      string          `gorm:"not null"                    json:"name"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
}

// BeforeCreate fills zero ids so callers never have to.
func (p *Product) BeforeCreate(*gorm.DB) error      { p.ID = ensureID(p.ID); return nil }
func (i *ProductImage) BeforeCreate(*gorm.DB) error { i.ID = ensureID(i.ID); return nil }
func (r *Review) BeforeCreate(*gorm.DB) error       { r.ID = ensureID(r.ID); return nil }
func (w *WishlistItem) BeforeCreate(*gorm.DB) error { w.ID = ensureID(w.ID); return nil }
func (c *Cart) BeforeCreate(*gorm.DB) error         { c.ID = ensureID(c.ID); return nil }
func (i *CartItem) BeforeCreate(*gorm.DB) error     { i.ID = ensureID(i.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error        { o.ID = ensureID(o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error    { i.ID = ensureID(i.ID); return nil }

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Product{},
		&ProductImage{},
		&Review{},
		&WishlistItem{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
	)
}
