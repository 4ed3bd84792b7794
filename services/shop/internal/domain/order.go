package domain

import (
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

type LineRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// MergeLineRequests folds repeated products into one request, keeping the
// order in which products first appeared.
func MergeLineRequests(reqs []LineRequest) ([]LineRequest, error) {
	if len(reqs) == 0 {
		return nil, apperr.BadRequest("order needs at least one line")
	}
	out := make([]LineRequest, 0, len(reqs))
	pos := make(map[uuid.UUID]int, len(reqs))
	for _, r := range reqs {
		if r.ProductID == uuid.Nil {
			return nil, apperr.BadRequest("product_id required")
		}
		if err := ValidateQuantity(r.Quantity); err != nil {
			return nil, err
		}
		if i, ok := pos[r.ProductID]; ok {
			if out[i].Quantity > math.MaxInt-r.Quantity {
				return nil, apperr.BadRequest("quantity for product %s is too large", r.ProductID)
			}
			out[i].Quantity += r.Quantity
			continue
		}
		pos[r.ProductID] = len(out)
		out = append(out, r)
	}
	return out, nil
}

// PriceLines captures the catalog price of every requested line. products
// must have been read inside the transaction that will persist the order.
func PriceLines(reqs []LineRequest, products map[uuid.UUID]*models.Product) ([]models.OrderItem, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(reqs))
	total := decimal.Zero
	for _, r := range reqs {
		p, ok := products[r.ProductID]
		if !ok || p == nil || p.Deleted {
			return nil, decimal.Zero, apperr.NotFound("product %s", r.ProductID)
		}
		if err := CheckStock(p, r.Quantity); err != nil {
			return nil, decimal.Zero, err
		}
		unit := p.UnitPrice()
		lineTotal := unit.Mul(decimal.NewFromInt(int64(r.Quantity)))
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			SellerID:  p.SellerID,
			Name:      p.Name,
			Quantity:  r.Quantity,
			UnitPrice: unit,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

// ValidateAddress accepts an omitted address or one carrying at least street,
// city and country.
func ValidateAddress(kind string, a models.Address) error {
	if a.IsZero() {
		return nil
	}
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return apperr.BadRequest("%s address missing %s", kind, strings.Join(missing, ", "))
	}
	return nil
}

func ParseFulfillmentStatus(s string) (models.FulfillmentStatus, error) {
	switch st := models.FulfillmentStatus(s); st {
	case models.FulfillmentPending, models.FulfillmentShipped, models.FulfillmentDelivered, models.FulfillmentCancelled:
		return st, nil
	default:
		return "", apperr.BadRequest("unknown fulfillment status %q", s)
	}
}

// fulfillmentMoves lists where each status may go next. Delivered and
// cancelled are final: a cancelled order has already given its stock back.
var fulfillmentMoves = map[models.FulfillmentStatus][]models.FulfillmentStatus{
	models.FulfillmentPending: {models.FulfillmentShipped, models.FulfillmentDelivered, models.FulfillmentCancelled},
	models.FulfillmentShipped: {models.FulfillmentDelivered, models.FulfillmentCancelled},
}

// CanTransition allows next when it is reachable from the current status.
// Repeating the current status is accepted as a no-op.
func CanTransition(o *models.Order, next models.FulfillmentStatus) error {
	if o.FulfillmentStatus == next {
		return nil
	}
	if slices.Contains(fulfillmentMoves[o.FulfillmentStatus], next) {
		return nil
	}
	return apperr.Conflict("order %s cannot move from %s to %s", o.ID, o.FulfillmentStatus, next)
}

// ApplyPaymentOutcome moves payment and fulfillment status together. A
// confirmed payment ships the order straight away; that coupling to
// fulfillment is kept for compatibility with existing clients. Replaying the
// recorded outcome is a no-op; contradicting it is a conflict.
func ApplyPaymentOutcome(o *models.Order, success bool) (changed bool, err error) {
	want := models.PaymentFailed
	if success {
		want = models.PaymentCompleted
	}
	switch o.PaymentStatus {
	case want:
		return false, nil
	case models.PaymentPending:
	default:
		return false, apperr.Conflict("payment for order %s already %s", o.ID, o.PaymentStatus)
	}
	if o.FulfillmentStatus == models.FulfillmentCancelled && success {
		return false, apperr.Conflict("order %s is cancelled", o.ID)
	}

	o.PaymentStatus = want
	if success {
		if o.FulfillmentStatus == models.FulfillmentPending {
			o.FulfillmentStatus = models.FulfillmentShipped
		}
	} else {
		o.FulfillmentStatus = models.FulfillmentCancelled
	}
	return true, nil
}

// ReleasesStock reports whether moving o to next gives its reserved stock back.
func ReleasesStock(o *models.Order, next models.FulfillmentStatus) bool {
	return next == models.FulfillmentCancelled && !o.StockReleased && o.PaymentStatus != models.PaymentCompleted
}

func OrderSellers(o *models.Order) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(o.Items))
	for _, it := range o.Items {
		out[it.SellerID] = struct{}{}
	}
	return out
}
