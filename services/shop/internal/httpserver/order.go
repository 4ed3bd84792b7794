package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/shop/internal/domain"
	"github.com/Skotchmaster/storefront/services/shop/internal/service"
	"github.com/Skotchmaster/storefront/services/shop/internal/transport"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	var req transport.CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_order_failed", err)
	}

	lines := make([]domain.LineRequest, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, domain.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	order, err := h.Svc.Create(ctx, actor(c), lines, service.CheckoutDetails{
		ShippingAddress: req.ShippingAddress.Model(),
		BillingAddress:  req.BillingAddress.Model(),
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		return fail(l, "create_order_failed", err)
	}

	l.Info("create_order_success", "order_id", order.ID, "total", order.TotalAmount.StringFixed(2))
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	order, err := h.Svc.Get(ctx, actor(c), id)
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	page, offset, limit := pageParams(c)
	total, orders, err := h.Svc.ListMine(ctx, actor(c), offset, limit)
	if err != nil {
		return fail(l, "list_orders_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewPage(orders, page, offset, limit, total))
}

func (h *OrderHTTP) ListSellerOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_seller_orders")

	page, offset, limit := pageParams(c)
	total, orders, err := h.Svc.ListForSeller(ctx, actor(c), offset, limit)
	if err != nil {
		return fail(l, "list_seller_orders_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewPage(orders, page, offset, limit, total))
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "update_status_failed", err)
	}
	var req transport.UpdateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_status_failed", err)
	}

	order, err := h.Svc.UpdateStatus(ctx, actor(c), id, req.Status)
	if err != nil {
		return fail(l, "update_status_failed", err)
	}

	l.Info("update_status_success", "order_id", order.ID, "fulfillment_status", order.FulfillmentStatus)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.delete_order")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "delete_order_failed", err)
	}
	if err := h.Svc.SoftDelete(ctx, actor(c), id); err != nil {
		return fail(l, "delete_order_failed", err)
	}

	l.Info("delete_order_success", "order_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHTTP) StartPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.start_payment")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "start_payment_failed", err)
	}
	order, err := h.Svc.StartPayment(ctx, actor(c), id)
	if err != nil {
		return fail(l, "start_payment_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"order_id":  order.ID,
		"intent_id": order.PaymentIntentID,
		"amount":    order.TotalAmount,
	})
}

func (h *OrderHTTP) VerifyPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.verify_payment")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "verify_payment_failed", err)
	}
	var req transport.VerifyPaymentRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "verify_payment_failed", err)
	}

	order, err := h.Svc.VerifyPayment(ctx, actor(c), id, req.IntentID, req.Proof)
	if err != nil {
		return fail(l, "verify_payment_failed", err)
	}

	l.Info("verify_payment_done", "order_id", order.ID, "payment_status", order.PaymentStatus)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) RecordPaymentResult(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.record_payment_result")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "record_payment_result_failed", err)
	}
	var req transport.PaymentResultRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "record_payment_result_failed", err)
	}

	order, err := h.Svc.RecordPaymentResult(ctx, id, *req.Success)
	if err != nil {
		return fail(l, "record_payment_result_failed", err)
	}

	l.Info("record_payment_result_done", "order_id", order.ID, "payment_status", order.PaymentStatus, "recorded_by", actor(c).UserID)
	return c.JSON(http.StatusOK, order)
}
