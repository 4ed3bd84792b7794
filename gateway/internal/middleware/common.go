package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/pkg/tracing"
)

// Common is the chain every gateway request passes before routing.
func Common(log *slog.Logger, service string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		ecM.Recover(),
		ecM.Secure(),
		loggingmw.RequestLogger(log),
		tracing.Middleware(service),
	}
}
