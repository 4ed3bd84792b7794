package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/services/shop/internal/domain"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/testdb"
	"github.com/Skotchmaster/storefront/services/shop/internal/transport"
)

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", nil, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", nil, "").Code)
}

func TestCartEndpoints(t *testing.T) {
	s := newTestServer(t)
	buyer := user(principal.RoleCustomer)
	tok := bearer(t, buyer)
	p := testdb.Product(t, s.db, uuid.New(), 100, 5)

	rec := s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "quantity": 2}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "quantity": 2}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[domain.CartView](t, rec)
	assert.Equal(t, "200.00", view.TotalAmount.StringFixed(2))

	rec = s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "quantity": 1}, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[domain.CartView](t, rec)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, "300.00", view.TotalAmount.StringFixed(2))

	rec = s.do(t, http.MethodPut, "/cart/items/"+p.ID.String(), map[string]any{"quantity": 10}, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "insufficient_stock", body.Code)

	rec = s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "quantity": 0}, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/cart", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[domain.CartView](t, rec)
	assert.Equal(t, 3, view.Items[0].Quantity)

	rec = s.do(t, http.MethodDelete, "/cart/items/not-a-uuid", nil, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/cart/items/"+p.ID.String(), nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[domain.CartView](t, rec).Items)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/cart", nil, tok).Code)
}

func TestCartCheckout(t *testing.T) {
	s := newTestServer(t)
	buyer := user(principal.RoleCustomer)
	tok := bearer(t, buyer)
	p := testdb.Product(t, s.db, uuid.New(), 15, 5)

	rec := s.do(t, http.MethodPost, "/cart/checkout", map[string]any{"payment_method": "card"}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "quantity": 2}, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/cart/checkout", map[string]any{"payment_method": "card"}, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[models.Order](t, rec)
	assert.Equal(t, "30.00", order.TotalAmount.StringFixed(2))

	view := decode[domain.CartView](t, s.do(t, http.MethodGet, "/cart", nil, tok))
	assert.Empty(t, view.Items)
}

func TestOrderEndpoints_PriceIsFrozen(t *testing.T) {
	s := newTestServer(t)
	buyer := user(principal.RoleCustomer)
	tok := bearer(t, buyer)
	p := testdb.Product(t, s.db, uuid.New(), 50, 5)

	rec := s.do(t, http.MethodPost, "/orders", map[string]any{
		"items":            []map[string]any{{"product_id": p.ID, "quantity": 2}},
		"shipping_address": map[string]any{"street": "1 Main St", "city": "Springfield", "country": "US"},
		"payment_method":   "gateway",
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[models.Order](t, rec)
	assert.Equal(t, "100.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, models.FulfillmentPending, order.FulfillmentStatus)

	require.NoError(t, s.db.Model(&models.Product{}).Where("id = ?", p.ID).Update("price", 75).Error)

	rec = s.do(t, http.MethodGet, "/orders/"+order.ID.String(), nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100.00", decode[models.Order](t, rec).TotalAmount.StringFixed(2))

	rec = s.do(t, http.MethodGet, "/orders", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[models.Order]](t, rec)
	assert.EqualValues(t, 1, page.Meta.Total)

	rec = s.do(t, http.MethodGet, "/orders/"+order.ID.String(), nil, bearer(t, user(principal.RoleCustomer)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderEndpoints_Validation(t *testing.T) {
	s := newTestServer(t)
	tok := bearer(t, user(principal.RoleCustomer))
	p := testdb.Product(t, s.db, uuid.New(), 50, 5)

	rec := s.do(t, http.MethodPost, "/orders", map[string]any{"items": []any{}, "payment_method": "card"}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/orders", map[string]any{
		"items":           []map[string]any{{"product_id": p.ID, "quantity": 1}},
		"billing_address": map[string]any{"city": "Springfield"},
		"payment_method":  "card",
	}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/orders", map[string]any{
		"items":          []map[string]any{{"product_id": uuid.New(), "quantity": 1}},
		"payment_method": "card",
	}, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderEndpoints_StatusAndPayments(t *testing.T) {
	s := newTestServer(t)
	buyer := user(principal.RoleCustomer)
	tok := bearer(t, buyer)
	adminTok := bearer(t, user(principal.RoleAdmin))
	p := testdb.Product(t, s.db, uuid.New(), 10, 5)

	rec := s.do(t, http.MethodPost, "/orders", map[string]any{
		"items":          []map[string]any{{"product_id": p.ID, "quantity": 1}},
		"payment_method": "card",
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[models.Order](t, rec)
	base := "/orders/" + order.ID.String()

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPatch, base+"/status", map[string]any{"status": "shipped"}, tok).Code)

	rec = s.do(t, http.MethodPatch, base+"/status", map[string]any{"status": "lost"}, adminTok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/payment-intent", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var intent struct {
		IntentID string `json:"intent_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intent))
	assert.NotEmpty(t, intent.IntentID)

	rec = s.do(t, http.MethodPost, base+"/payment-result", map[string]any{"success": true}, tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/payment/verify", map[string]any{"intent_id": intent.IntentID, "proof": "good"}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[models.Order](t, rec)
	assert.Equal(t, models.PaymentCompleted, paid.PaymentStatus)
	assert.Equal(t, models.FulfillmentShipped, paid.FulfillmentStatus)

	ops := bearer(t, user(principal.RoleCustomer), PermRecordPayments)
	rec = s.do(t, http.MethodPost, base+"/payment-result", map[string]any{"success": false}, ops)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/payment-result", map[string]any{"success": true}, ops)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, base, nil, tok).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, base, nil, tok).Code)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)
	merchant := user(principal.RoleSeller)
	sellerTok := bearer(t, merchant)

	rec := s.do(t, http.MethodPost, "/catalog/products", map[string]any{"name": "Mug", "price": "8.50", "stock": 3}, bearer(t, user(principal.RoleCustomer)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/catalog/products", map[string]any{"name": "", "price": "8.50"}, sellerTok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/catalog/products", map[string]any{"name": "Mug", "price": "8.50", "stock": 3}, sellerTok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mug := decode[models.Product](t, rec)
	assert.Equal(t, merchant.UserID, mug.SellerID)
	assert.True(t, mug.Active)

	rec = s.multipart(t, "/catalog/products", map[string]string{"product": `{"name":"Lamp","price":"20","stock":1}`}, "lamp.png", []byte("png"), sellerTok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lamp := decode[models.Product](t, rec)
	require.Len(t, lamp.Images, 1)
	assert.Equal(t, 1, s.media.uploads)

	rec = s.do(t, http.MethodPatch, "/catalog/products/"+mug.ID.String(), map[string]any{"stock": 7}, sellerTok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 7, decode[models.Product](t, rec).Stock)

	rec = s.do(t, http.MethodGet, "/catalog/products?page=1&size=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[models.Product]](t, rec)
	assert.EqualValues(t, 2, page.Meta.Total)
	assert.Len(t, page.Data, 1)
	assert.True(t, page.Meta.HasNext)

	rec = s.do(t, http.MethodGet, "/catalog/products/search?q=lamp", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode[errorBody](t, rec).Message)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/catalog/products/"+mug.ID.String(), nil, sellerTok).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/catalog/products/"+mug.ID.String(), nil, "").Code)
}

func TestReviewAndWishlistEndpoints(t *testing.T) {
	s := newTestServer(t)
	tok := bearer(t, user(principal.RoleCustomer))
	p := testdb.Product(t, s.db, uuid.New(), 10, 5)
	base := "/catalog/products/" + p.ID.String() + "/reviews"

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, base, map[string]any{"rating": 4}, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, base, map[string]any{"rating": 9}, tok).Code)
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, base, map[string]any{"rating": 4, "comment": "solid"}, tok).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, base, map[string]any{"rating": 5}, tok).Code)

	rec := s.do(t, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[transport.Page[models.Review]](t, rec).Meta.Total)

	wl := "/wishlist/" + p.ID.String()
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, wl, nil, tok).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, wl, nil, tok).Code)

	rec = s.do(t, http.MethodGet, "/wishlist", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Product](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, wl, nil, tok).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, wl, nil, tok).Code)
}
