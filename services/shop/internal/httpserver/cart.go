package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/shop/internal/service"
	"github.com/Skotchmaster/storefront/services/shop/internal/transport"
)

type CartHTTP struct {
	Svc    *service.CartService
	Orders *service.OrderService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	who := actor(c)
	view, err := h.Svc.View(ctx, who, who.UserID)
	if err != nil {
		return fail(l, "get_cart_failed", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	var req transport.AddCartItemRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "add_item_failed", err)
	}

	who := actor(c)
	view, err := h.Svc.AddItem(ctx, who, who.UserID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(l, "add_item_failed", err)
	}

	l.Info("add_item_success", "product_id", req.ProductID, "quantity", req.Quantity)
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	productID, err := pathID(c, "product_id")
	if err != nil {
		return fail(l, "update_item_failed", err)
	}
	var req transport.UpdateCartItemRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_item_failed", err)
	}

	who := actor(c)
	view, err := h.Svc.UpdateQuantity(ctx, who, who.UserID, productID, req.Quantity)
	if err != nil {
		return fail(l, "update_item_failed", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	productID, err := pathID(c, "product_id")
	if err != nil {
		return fail(l, "remove_item_failed", err)
	}

	who := actor(c)
	view, err := h.Svc.RemoveItem(ctx, who, who.UserID, productID)
	if err != nil {
		return fail(l, "remove_item_failed", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	who := actor(c)
	if err := h.Svc.Clear(ctx, who, who.UserID); err != nil {
		return fail(l, "clear_cart_failed", err)
	}

	l.Info("cart_cleared")
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	var req transport.CheckoutRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "checkout_failed", err)
	}

	order, err := h.Orders.Checkout(ctx, actor(c), service.CheckoutDetails{
		ShippingAddress: req.ShippingAddress.Model(),
		BillingAddress:  req.BillingAddress.Model(),
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		return fail(l, "checkout_failed", err)
	}

	l.Info("checkout_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}
