package domain

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

func TestMergeLineRequests(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	got, err := MergeLineRequests([]LineRequest{{a, 1}, {b, 2}, {a, 3}})
	require.NoError(t, err)
	assert.Equal(t, []LineRequest{{a, 4}, {b, 2}}, got)

	tests := []struct {
		name string
		reqs []LineRequest
	}{
		{name: "empty", reqs: nil},
		{name: "zero quantity", reqs: []LineRequest{{a, 0}}},
		{name: "negative quantity", reqs: []LineRequest{{a, -2}}},
		{name: "nil product", reqs: []LineRequest{{uuid.Nil, 1}}},
		{name: "sum past max int", reqs: []LineRequest{{a, math.MaxInt/2 + 2}, {a, math.MaxInt/2 + 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := MergeLineRequests(tt.reqs)
			assert.ErrorIs(t, err, apperr.ErrBadRequest)
		})
	}
}

func TestPriceLines(t *testing.T) {
	t.Parallel()

	p := product(50, 10)
	p.SellerID = uuid.New()
	items, total, err := PriceLines([]LineRequest{{p.ID, 2}}, map[uuid.UUID]*models.Product{p.ID: p})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "100", total.String())
	assert.Equal(t, "50", items[0].UnitPrice.String())
	assert.Equal(t, p.SellerID, items[0].SellerID)

	_, _, err = PriceLines([]LineRequest{{uuid.New(), 1}}, map[uuid.UUID]*models.Product{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	p.Deleted = true
	_, _, err = PriceLines([]LineRequest{{p.ID, 1}}, map[uuid.UUID]*models.Product{p.ID: p})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		addr models.Address
		ok   bool
	}{
		{name: "omitted", addr: models.Address{}, ok: true},
		{name: "full", addr: models.Address{Street: "1 Main", City: "Oslo", Country: "NO"}, ok: true},
		{name: "only phone", addr: models.Address{Phone: "+47"}, ok: false},
		{name: "no country", addr: models.Address{Street: "1 Main", City: "Oslo"}, ok: false},
		{name: "blank city", addr: models.Address{Street: "1 Main", City: "  ", Country: "NO"}, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateAddress("shipping", tt.addr)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrBadRequest)
		})
	}
}

func TestParseFulfillmentStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"pending", "shipped", "delivered", "cancelled"} {
		st, err := ParseFulfillmentStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(st))
	}
	_, err := ParseFulfillmentStatus("lost")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestApplyPaymentOutcome(t *testing.T) {
	t.Parallel()

	o := &models.Order{ID: uuid.New(), PaymentStatus: models.PaymentPending, FulfillmentStatus: models.FulfillmentPending}
	changed, err := ApplyPaymentOutcome(o, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentCompleted, o.PaymentStatus)
	assert.Equal(t, models.FulfillmentShipped, o.FulfillmentStatus)

	changed, err = ApplyPaymentOutcome(o, true)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = ApplyPaymentOutcome(o, false)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	failed := &models.Order{ID: uuid.New(), PaymentStatus: models.PaymentPending, FulfillmentStatus: models.FulfillmentPending}
	changed, err = ApplyPaymentOutcome(failed, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentFailed, failed.PaymentStatus)
	assert.Equal(t, models.FulfillmentCancelled, failed.FulfillmentStatus)
	assert.True(t, ReleasesStock(failed, models.FulfillmentCancelled))
}

func TestApplyPaymentOutcome_KeepsDeliveredOrder(t *testing.T) {
	t.Parallel()

	o := &models.Order{ID: uuid.New(), PaymentStatus: models.PaymentPending, FulfillmentStatus: models.FulfillmentDelivered}
	changed, err := ApplyPaymentOutcome(o, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.FulfillmentDelivered, o.FulfillmentStatus)
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to models.FulfillmentStatus
		ok       bool
	}{
		{models.FulfillmentPending, models.FulfillmentShipped, true},
		{models.FulfillmentPending, models.FulfillmentDelivered, true},
		{models.FulfillmentPending, models.FulfillmentCancelled, true},
		{models.FulfillmentShipped, models.FulfillmentDelivered, true},
		{models.FulfillmentShipped, models.FulfillmentCancelled, true},
		{models.FulfillmentShipped, models.FulfillmentPending, false},
		{models.FulfillmentCancelled, models.FulfillmentCancelled, true},
		{models.FulfillmentCancelled, models.FulfillmentPending, false},
		{models.FulfillmentCancelled, models.FulfillmentShipped, false},
		{models.FulfillmentCancelled, models.FulfillmentDelivered, false},
		{models.FulfillmentDelivered, models.FulfillmentDelivered, true},
		{models.FulfillmentDelivered, models.FulfillmentShipped, false},
		{models.FulfillmentDelivered, models.FulfillmentCancelled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			err := CanTransition(&models.Order{ID: uuid.New(), FulfillmentStatus: tt.from}, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrConflict)
		})
	}
}
