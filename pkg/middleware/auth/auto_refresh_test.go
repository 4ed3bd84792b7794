package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var secret = []byte("test-jwt-secret")

type fakeRefresher struct {
	resp *authclient.RefreshResponse
	err  error
	hits int
}

func (f *fakeRefresher) RefreshTokens(_ context.Context, _, _ string) (*authclient.RefreshResponse, error) {
	f.hits++
	return f.resp, f.err
}

func token(t *testing.T, sub, role string, exp time.Time) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(sub, role, nil, exp, secret)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, *principal.Principal, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *principal.Principal
	err := mw(func(c echo.Context) error {
		p, ok := principal.FromContext(c.Request().Context())
		if ok {
			seen = &p
		}
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, seen, err
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestRequireAuth_BearerToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	m := NewAutoRefreshMiddleware(secret, &fakeRefresher{})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, userID.String(), principal.RoleCustomer, time.Now().Add(time.Minute)))

	rec, p, err := run(t, m.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p)
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, principal.RoleCustomer, p.Role)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	t.Parallel()

	m := NewAutoRefreshMiddleware(secret, &fakeRefresher{})
	_, p, err := run(t, m.RequireAuth, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	assert.Nil(t, p)
}

func TestRequireRole_Forbidden(t *testing.T) {
	t.Parallel()

	m := NewAutoRefreshMiddleware(secret, &fakeRefresher{})
	req := httptest.NewRequest(http.MethodPatch, "/orders/x/status", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: token(t, uuid.NewString(), principal.RoleCustomer, time.Now().Add(time.Minute))})

	_, p, err := run(t, m.RequireRole(principal.RoleAdmin, principal.RoleSeller), req)
	assert.Equal(t, http.StatusForbidden, statusOf(err))
	assert.Nil(t, p)
}

func TestRequireAuth_RefreshesExpiredCookie(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	fresh := token(t, userID.String(), principal.RoleSeller, time.Now().Add(time.Minute))
	ref := &fakeRefresher{resp: &authclient.RefreshResponse{
		AccessToken:  fresh,
		RefreshToken: "r2",
		AccessExp:    time.Now().Add(time.Minute).Unix(),
		RefreshExp:   time.Now().Add(time.Hour).Unix(),
	}}
	m := NewAutoRefreshMiddleware(secret, ref)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: token(t, userID.String(), principal.RoleSeller, time.Now().Add(-time.Minute))})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "r1"})

	rec, p, err := run(t, m.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.hits)
	require.NotNil(t, p)
	assert.Equal(t, userID, p.UserID)
	assert.Contains(t, rec.Header().Values("Set-Cookie")[0], tokens.AccessCookie+"="+fresh)
}

func TestRequireAuth_RefreshFailureClearsCookies(t *testing.T) {
	t.Parallel()

	ref := &fakeRefresher{err: authclient.ErrRefreshRejected}
	m := NewAutoRefreshMiddleware(secret, ref)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: token(t, uuid.NewString(), principal.RoleCustomer, time.Now().Add(-time.Minute))})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "r1"})

	rec, _, err := run(t, m.RequireAuth, req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	assert.Len(t, rec.Header().Values("Set-Cookie"), 2)
}
