package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/principal"
)

// PermRecordPayments lets a caller post gateway outcomes by hand.
const PermRecordPayments = "orders:record_payment"

type Deps struct {
	CartHandler     *CartHTTP
	OrderHandler    *OrderHTTP
	CatalogHandler  *CatalogHTTP
	ReviewHandler   *ReviewHTTP
	WishlistHandler *WishlistHTTP
	JWTSecret       []byte
	AuthClient      middleware.Refresher
	Ready           func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	if e.Validator == nil {
		e.Validator = NewRequestValidator()
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)
	merchant := authMW.RequireRole(principal.RoleSeller, principal.RoleVendor, principal.RoleAdmin)

	products := e.Group("/catalog/products")
	products.GET("/search", d.CatalogHandler.SearchProducts)
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/:id", d.CatalogHandler.GetProduct)
	products.GET("/:id/reviews", d.ReviewHandler.ListReviews)
	products.POST("/:id/reviews", d.ReviewHandler.AddReview, authMW.RequireAuth)
	products.DELETE("/:id/reviews", d.ReviewHandler.DeleteReview, authMW.RequireAuth)

	sellers := products.Group("", merchant)
	sellers.POST("", d.CatalogHandler.CreateProduct)
	sellers.PATCH("/:id", d.CatalogHandler.PatchProduct)
	sellers.DELETE("/:id", d.CatalogHandler.DeleteProduct)
	sellers.POST("/:id/images", d.CatalogHandler.AddImage)

	wishlist := e.Group("/wishlist", authMW.RequireAuth)
	wishlist.GET("", d.WishlistHandler.List)
	wishlist.POST("/:product_id", d.WishlistHandler.Add)
	wishlist.DELETE("/:product_id", d.WishlistHandler.Remove)

	cart := e.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.PUT("/items/:product_id", d.CartHandler.UpdateItem)
	cart.DELETE("/items/:product_id", d.CartHandler.RemoveItem)
	cart.POST("/checkout", d.CartHandler.Checkout)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.DELETE("/:id", d.OrderHandler.DeleteOrder)
	orders.POST("/:id/payment-intent", d.OrderHandler.StartPayment)
	orders.POST("/:id/payment/verify", d.OrderHandler.VerifyPayment)

	e.GET("/seller/orders", d.OrderHandler.ListSellerOrders, merchant)
	e.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus, merchant)
	e.POST("/orders/:id/payment-result", d.OrderHandler.RecordPaymentResult, authMW.RequirePermission(PermRecordPayments))
}
