package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

// RequireCredentials turns away requests that could never authenticate
// upstream. An expired access cookie still passes when a refresh cookie
// comes with it, since the shop renews the pair itself.
func RequireCredentials(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context()).With("middleware", "credentials")

			if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
				raw, ok := strings.CutPrefix(h, "Bearer ")
				if !ok {
					return echo.NewHTTPError(http.StatusUnauthorized, "unsupported authorization scheme")
				}
				if _, err := tokens.AccessClaimsFromToken(strings.TrimSpace(raw), secret); err != nil {
					l.Warn("bearer_rejected", "error", err)
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
				}
				return next(c)
			}

			access := cookieValue(c, tokens.AccessCookie)
			refresh := cookieValue(c, tokens.RefreshCookie)
			if access == "" {
				if refresh == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
				}
				return next(c)
			}

			_, err := tokens.AccessClaimsFromToken(access, secret)
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, jwt.ErrTokenExpired) && refresh != "":
				return next(c)
			default:
				l.Warn("cookie_rejected", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
		}
	}
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
