package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/gateway/internal/middleware"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
)

type Deps struct {
	AuthURL string
	ShopURL string

	JWTSecret  []byte
	CSRFConfig csrf.Config

	Log             *slog.Logger
	ServiceName     string
	UpstreamTimeout time.Duration
	// Transport overrides the upstream transport. Nil builds the default.
	Transport http.RoundTripper
}

// Register mounts the public API under /api/v1. Auth endpoints go to the
// auth service, everything else to the shop with the prefix removed.
func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	for _, m := range middleware.Common(log, d.ServiceName) {
		e.Use(m)
	}
	e.Use(csrf.Middleware(d.CSRFConfig))

	transport := d.Transport
	if transport == nil {
		transport = newTransport(d.UpstreamTimeout)
	}

	authProxy, err := newProxy("auth", d.AuthURL, "/api/v1/auth", transport)
	if err != nil {
		return err
	}
	shopProxy, err := newProxy("shop", d.ShopURL, "/api/v1", transport)
	if err != nil {
		return err
	}

	e.Any("/api/v1/auth/*", authProxy)
	e.GET("/api/v1/catalog/*", shopProxy)

	api := e.Group("/api/v1", middleware.RequireCredentials(d.JWTSecret))
	writes := []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	api.Match(writes, "/catalog/*", shopProxy)
	api.Any("/cart", shopProxy)
	api.Any("/cart/*", shopProxy)
	api.Any("/orders", shopProxy)
	api.Any("/orders/*", shopProxy)
	api.Any("/wishlist", shopProxy)
	api.Any("/wishlist/*", shopProxy)
	api.GET("/seller/orders", shopProxy)

	return nil
}
