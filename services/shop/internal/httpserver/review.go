package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/shop/internal/service"
	"github.com/Skotchmaster/storefront/services/shop/internal/transport"
)

type ReviewHTTP struct {
	Svc *service.ReviewService
}

func (h *ReviewHTTP) AddReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.add")

	productID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "add_review_failed", err)
	}
	var req transport.ReviewRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "add_review_failed", err)
	}

	rv, err := h.Svc.Add(ctx, actor(c), productID, req.Rating, req.Comment)
	if err != nil {
		return fail(l, "add_review_failed", err)
	}
	return c.JSON(http.StatusCreated, rv)
}

func (h *ReviewHTTP) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.delete")

	productID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "delete_review_failed", err)
	}
	if err := h.Svc.Delete(ctx, actor(c), productID); err != nil {
		return fail(l, "delete_review_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReviewHTTP) ListReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.list")

	productID, err := pathID(c, "id")
	if err != nil {
		return fail(l, "list_reviews_failed", err)
	}
	page, offset, limit := pageParams(c)
	total, reviews, err := h.Svc.List(ctx, productID, offset, limit)
	if err != nil {
		return fail(l, "list_reviews_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewPage(reviews, page, offset, limit, total))
}

type WishlistHTTP struct {
	Svc *service.WishlistService
}

func (h *WishlistHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.list")

	items, err := h.Svc.List(ctx, actor(c))
	if err != nil {
		return fail(l, "list_wishlist_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *WishlistHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.add")

	productID, err := pathID(c, "product_id")
	if err != nil {
		return fail(l, "add_wishlist_failed", err)
	}
	if err := h.Svc.Add(ctx, actor(c), productID); err != nil {
		return fail(l, "add_wishlist_failed", err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *WishlistHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.remove")

	productID, err := pathID(c, "product_id")
	if err != nil {
		return fail(l, "remove_wishlist_failed", err)
	}
	if err := h.Svc.Remove(ctx, actor(c), productID); err != nil {
		return fail(l, "remove_wishlist_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
