package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/services/shop/internal/bridge/payment"
	"github.com/Skotchmaster/storefront/services/shop/internal/domain"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/mykafka"
	"github.com/Skotchmaster/storefront/services/shop/internal/repo"
	"github.com/Skotchmaster/storefront/services/shop/internal/txn"
)

type OrderService struct {
	Repo     *repo.GormRepo
	Tx       *txn.Manager
	Payments payment.Gateway
	Notify   Dispatcher
	Events   EventPublisher
}

type CheckoutDetails struct {
	ShippingAddress models.Address
	BillingAddress  models.Address
	PaymentMethod   string
}

func (d CheckoutDetails) validate() error {
	if strings.TrimSpace(d.PaymentMethod) == "" {
		return apperr.BadRequest("payment_method required")
	}
	if err := domain.ValidateAddress("shipping", d.ShippingAddress); err != nil {
		return err
	}
	return domain.ValidateAddress("billing", d.BillingAddress)
}

// Create places an order for explicit lines. Prices are captured and stock
// is reserved in the same transaction that inserts the order.
func (s *OrderService) Create(ctx context.Context, actor principal.Principal, lines []domain.LineRequest, details CheckoutDetails) (*models.Order, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	merged, err := domain.MergeLineRequests(lines)
	if err != nil {
		return nil, err
	}
	if err := details.validate(); err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.Tx.Do(ctx, "order.create", func(tx *gorm.DB) error {
		var err error
		order, err = placeOrder(ctx, s.Repo.WithTx(tx), actor, merged, details)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterPlaced(ctx, order)
	return order, nil
}

// Checkout turns the visible lines of the caller's cart into an order and
// removes them from the cart in the same transaction. Lines the view hides
// (out of stock, inactive) stay in the cart; with none left it is cleared.
func (s *OrderService) Checkout(ctx context.Context, actor principal.Principal, details CheckoutDetails) (*models.Order, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if err := details.validate(); err != nil {
		return nil, err
	}

	var (
		order    *models.Order
		heldBack int
	)
	err := s.Tx.Do(ctx, "order.checkout", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		cart, err := r.LockCart(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if cart == nil || cart.Deleted || len(cart.Items) == 0 {
			return apperr.BadRequest("cart is empty")
		}

		products, err := r.ProductsByIDs(ctx, domain.ProductIDs(cart.Items), repo.ForUpdate)
		if err != nil {
			return err
		}
		view := domain.View(actor.UserID, cart, products)
		if len(view.Items) == 0 {
			return apperr.BadRequest("cart has no purchasable items")
		}
		lines := make([]domain.LineRequest, 0, len(view.Items))
		for _, it := range view.Items {
			lines = append(lines, domain.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
		}

		order, err = placeOrder(ctx, r, actor, lines, details)
		if err != nil {
			return err
		}
		ordered := make(map[uuid.UUID]bool, len(lines))
		for _, l := range lines {
			ordered[l.ProductID] = true
		}
		domain.KeepLines(cart, func(id uuid.UUID) bool { return !ordered[id] })
		heldBack = len(cart.Items)
		return r.SaveCart(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.Events, mykafka.TopicCartEvents, mykafka.NewEvent("cart_checked_out", actor.UserID.String(), map[string]any{
		"order_id":  order.ID,
		"held_back": heldBack,
	}))
	s.afterPlaced(ctx, order)
	return order, nil
}

func placeOrder(ctx context.Context, r *repo.GormRepo, actor principal.Principal, lines []domain.LineRequest, details CheckoutDetails) (*models.Order, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := r.ProductsByIDs(ctx, ids, repo.ForUpdate)
	if err != nil {
		return nil, err
	}
	items, total, err := domain.PriceLines(lines, products)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := r.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		UserID:            actor.UserID,
		ContactEmail:      actor.Email,
		Items:             items,
		ShippingAddress:   details.ShippingAddress,
		BillingAddress:    details.BillingAddress,
		PaymentMethod:     strings.TrimSpace(details.PaymentMethod),
		TotalAmount:       total,
		PaymentStatus:     models.PaymentPending,
		FulfillmentStatus: models.FulfillmentPending,
	}
	if err := r.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) afterPlaced(ctx context.Context, o *models.Order) {
	publish(ctx, s.Events, mykafka.TopicOrderEvents, mykafka.NewEvent("order_created", o.ID.String(), map[string]any{
		"user_id":      o.UserID,
		"total_amount": o.TotalAmount,
		"lines":        len(o.Items),
	}))
	s.notify(ctx, o, "Order received", fmt.Sprintf("Your order %s for %s has been placed.", o.ID, o.TotalAmount.StringFixed(2)))
}

// StartPayment asks the gateway for an intent. The gateway call happens
// outside any transaction; if it fails the order stays pending and the call
// can be repeated.
func (s *OrderService) StartPayment(ctx context.Context, actor principal.Principal, orderID uuid.UUID) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, orderID, repo.NoLock)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, o); err != nil {
		return nil, err
	}
	if o.PaymentStatus != models.PaymentPending {
		return nil, apperr.Conflict("payment for order %s already %s", o.ID, o.PaymentStatus)
	}
	if o.PaymentIntentID != "" {
		return o, nil
	}
	if s.Payments == nil {
		return nil, apperr.Internal(fmt.Errorf("payment gateway not configured"))
	}

	intentID, err := s.Payments.CreateIntent(ctx, o)
	if err != nil {
		logging.FromContext(ctx).Error("payment_intent_failed", "order_id", o.ID, "error", err)
		return nil, apperr.Internal(err)
	}

	err = s.Tx.Do(ctx, "order.attach_intent", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		locked, err := r.GetOrder(ctx, orderID, repo.ForUpdate)
		if err != nil {
			return err
		}
		if locked.PaymentIntentID == "" {
			locked.PaymentIntentID = intentID
			if err := r.SaveOrderState(ctx, locked); err != nil {
				return err
			}
		}
		o = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// VerifyPayment checks the gateway proof for the order's intent and records
// the outcome. A bad proof records a failed payment.
func (s *OrderService) VerifyPayment(ctx context.Context, actor principal.Principal, orderID uuid.UUID, intentID, proof string) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, orderID, repo.NoLock)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, o); err != nil {
		return nil, err
	}
	if intentID == "" || o.PaymentIntentID != intentID {
		return nil, apperr.BadRequest("payment intent does not belong to order %s", o.ID)
	}
	if s.Payments == nil {
		return nil, apperr.Internal(fmt.Errorf("payment gateway not configured"))
	}

	ok, err := s.Payments.Verify(ctx, intentID, proof)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.RecordPaymentResult(ctx, orderID, ok)
}

// RecordPaymentResult applies a confirmed gateway outcome. Replays of the
// same outcome return the order unchanged.
func (s *OrderService) RecordPaymentResult(ctx context.Context, orderID uuid.UUID, success bool) (*models.Order, error) {
	var (
		o       *models.Order
		changed bool
	)
	err := s.Tx.Do(ctx, "order.payment_result", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		var err error
		o, err = r.GetOrder(ctx, orderID, repo.ForUpdate)
		if err != nil {
			return err
		}
		changed, err = domain.ApplyPaymentOutcome(o, success)
		if err != nil || !changed {
			return err
		}
		if !success && domain.ReleasesStock(o, models.FulfillmentCancelled) {
			if err := releaseStock(ctx, r, o); err != nil {
				return err
			}
		}
		return r.SaveOrderState(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}

	typ, subject := "order_paid", "Payment received"
	body := fmt.Sprintf("Payment for order %s was confirmed. Your order is on its way.", o.ID)
	if !success {
		typ, subject = "order_payment_failed", "Payment failed"
		body = fmt.Sprintf("Payment for order %s did not go through and the order was cancelled.", o.ID)
	}
	publish(ctx, s.Events, mykafka.TopicOrderEvents, mykafka.NewEvent(typ, o.ID.String(), map[string]any{
		"payment_status":     o.PaymentStatus,
		"fulfillment_status": o.FulfillmentStatus,
	}))
	s.notify(ctx, o, subject, body)
	return o, nil
}

// UpdateStatus sets the fulfillment status. Admins may touch any order, a
// seller only orders that contain their products.
func (s *OrderService) UpdateStatus(ctx context.Context, actor principal.Principal, orderID uuid.UUID, status string) (*models.Order, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	next, err := domain.ParseFulfillmentStatus(status)
	if err != nil {
		return nil, err
	}

	var o *models.Order
	err = s.Tx.Do(ctx, "order.update_status", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		var err error
		o, err = r.GetOrder(ctx, orderID, repo.ForUpdate)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if _, sells := domain.OrderSellers(o)[actor.UserID]; !actor.IsSeller() || !sells {
				return apperr.Forbidden("not allowed to change order %s", o.ID)
			}
		}
		if err := domain.CanTransition(o, next); err != nil {
			return err
		}
		if domain.ReleasesStock(o, next) {
			if err := releaseStock(ctx, r, o); err != nil {
				return err
			}
		}
		o.FulfillmentStatus = next
		return r.SaveOrderState(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicOrderEvents, mykafka.NewEvent("order_status_changed", o.ID.String(), map[string]any{
		"fulfillment_status": o.FulfillmentStatus,
		"changed_by":         actor.UserID,
	}))
	s.notify(ctx, o, "Order update", fmt.Sprintf("Order %s is now %s.", o.ID, o.FulfillmentStatus))
	return o, nil
}

// SoftDelete hides an order from every listing. Stock is not touched.
func (s *OrderService) SoftDelete(ctx context.Context, actor principal.Principal, orderID uuid.UUID) error {
	err := s.Tx.Do(ctx, "order.soft_delete", func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		o, err := r.GetOrder(ctx, orderID, repo.ForUpdate)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, o); err != nil {
			return err
		}
		o.Deleted = true
		return r.SaveOrderState(ctx, o)
	})
	if err != nil {
		return err
	}
	publish(ctx, s.Events, mykafka.TopicOrderEvents, mykafka.NewEvent("order_deleted", orderID.String(), nil))
	return nil
}

// Get returns an order to its owner, an admin, or a seller with a line in it.
func (s *OrderService) Get(ctx context.Context, actor principal.Principal, orderID uuid.UUID) (*models.Order, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	o, err := s.Repo.GetOrder(ctx, orderID, repo.NoLock)
	if err != nil {
		return nil, err
	}
	if o.UserID == actor.UserID || actor.IsAdmin() {
		return o, nil
	}
	if _, sells := domain.OrderSellers(o)[actor.UserID]; actor.IsSeller() && sells {
		return o, nil
	}
	return nil, apperr.Forbidden("not allowed to read order %s", o.ID)
}

func (s *OrderService) ListMine(ctx context.Context, actor principal.Principal, offset, limit int) (int64, []models.Order, error) {
	if err := requireUser(actor); err != nil {
		return 0, nil, err
	}
	total, orders, err := s.Repo.ListOrders(ctx, actor.UserID, offset, limit)
	if err != nil {
		return 0, nil, apperr.Internal(err)
	}
	return total, orders, nil
}

func (s *OrderService) ListForSeller(ctx context.Context, actor principal.Principal, offset, limit int) (int64, []models.Order, error) {
	if err := requireUser(actor); err != nil {
		return 0, nil, err
	}
	if !actor.IsSeller() && !actor.IsAdmin() {
		return 0, nil, apperr.Forbidden("seller role required")
	}
	total, orders, err := s.Repo.ListSellerOrders(ctx, actor.UserID, offset, limit)
	if err != nil {
		return 0, nil, apperr.Internal(err)
	}
	return total, orders, nil
}

func (s *OrderService) notify(ctx context.Context, o *models.Order, subject, body string) {
	if s.Notify == nil {
		return
	}
	recipient := o.ContactEmail
	if recipient == "" {
		recipient = o.UserID.String()
	}
	s.Notify.Dispatch(ctx, recipient, subject, body)
}

func releaseStock(ctx context.Context, r *repo.GormRepo, o *models.Order) error {
	for _, it := range o.Items {
		if err := r.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	o.StockReleased = true
	return nil
}

func authorizeOwner(actor principal.Principal, o *models.Order) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if o.UserID != actor.UserID && !actor.IsAdmin() {
		return apperr.Forbidden("order %s belongs to another user", o.ID)
	}
	return nil
}
