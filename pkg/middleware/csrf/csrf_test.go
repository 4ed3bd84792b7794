package csrf

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho(cfg Config) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/cart", ok)
	e.POST("/cart/items", ok)
	e.POST("/auth/login", ok)
	return e
}

func tokenFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "XSRF-TOKEN" {
			return ck.Value
		}
	}
	t.Fatal("no csrf cookie issued")
	return ""
}

func TestMiddleware_SafeMethodIssuesToken(t *testing.T) {
	e := newEcho(DefaultConfig())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	tok := tokenFrom(t, rec)
	assert.NotEmpty(t, tok)
	assert.Equal(t, tok, rec.Header().Get("X-CSRF-Token"))
}

func TestMiddleware_UnsafeMethod(t *testing.T) {
	e := newEcho(DefaultConfig())

	post := func(cookie, header, origin string) int {
		req := httptest.NewRequest(http.MethodPost, "http://shop.test/cart/items", strings.NewReader(`{}`))
		req.Host = "shop.test"
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: cookie})
		}
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post("abc", "abc", "http://shop.test"))
	assert.Equal(t, http.StatusForbidden, post("abc", "xyz", "http://shop.test"))
	assert.Equal(t, http.StatusForbidden, post("abc", "", "http://shop.test"))
	assert.Equal(t, http.StatusForbidden, post("abc", "abc", "http://evil.test"))
	assert.Equal(t, http.StatusForbidden, post("abc", "abc", ""))
}

func TestMiddleware_FormField(t *testing.T) {
	e := newEcho(DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "http://shop.test/cart/items", strings.NewReader("csrf_token=abc"))
	req.Host = "shop.test"
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("Origin", "http://shop.test")
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_Skips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipPaths = []string{"/auth/login"}
	e := newEcho(cfg)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer token")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	cfg.SkipBearer = false
	e = newEcho(cfg)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSchemeOf(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "http", schemeOf(req))
	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https", schemeOf(req))
}
