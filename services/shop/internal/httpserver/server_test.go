package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/Skotchmaster/storefront/services/shop/internal/bridge/media"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/repo"
	"github.com/Skotchmaster/storefront/services/shop/internal/service"
	"github.com/Skotchmaster/storefront/services/shop/internal/testdb"
	"github.com/Skotchmaster/storefront/services/shop/internal/txn"
)

var jwtSecret = []byte("handler-test-secret")

type stubGateway struct{}

func (stubGateway) CreateIntent(_ context.Context, o *models.Order) (string, error) {
	return "pi_" + o.ID.String()[:8], nil
}

func (stubGateway) Verify(_ context.Context, _, proof string) (bool, error) {
	return proof == "good", nil
}

type stubMedia struct {
	uploads int
}

func (m *stubMedia) Upload(_ context.Context, name, _ string, r io.Reader) (media.Uploaded, error) {
	if _, err := io.ReadAll(r); err != nil {
		return media.Uploaded{}, err
	}
	m.uploads++
	return media.Uploaded{PublicID: "products/" + name, URL: "https://cdn.test/products/" + name}, nil
}

func (m *stubMedia) Delete(context.Context, string) error { return nil }

type testServer struct {
	e     *echo.Echo
	db    *gorm.DB
	media *stubMedia
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	db := testdb.New(t)
	r := &repo.GormRepo{DB: db}
	tx := txn.New(db, 3)
	m := &stubMedia{}

	orders := &service.OrderService{Repo: r, Tx: tx, Payments: stubGateway{}}
	e := echo.New()
	Register(e, &Deps{
		CartHandler:     &CartHTTP{Svc: &service.CartService{Repo: r, Tx: tx}, Orders: orders},
		OrderHandler:    &OrderHTTP{Svc: orders},
		CatalogHandler:  &CatalogHTTP{Svc: &service.CatalogService{Repo: r, Tx: tx, Media: m}},
		ReviewHandler:   &ReviewHTTP{Svc: &service.ReviewService{Repo: r, Tx: tx}},
		WishlistHandler: &WishlistHTTP{Svc: &service.WishlistService{Repo: r, Tx: tx}},
		JWTSecret:       jwtSecret,
	})
	return testServer{e: e, db: db, media: m}
}

func user(role string) principal.Principal {
	return principal.Principal{UserID: uuid.New(), Role: role}
}

func bearer(t *testing.T, p principal.Principal, perms ...string) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(p.UserID.String(), p.Role, perms, time.Now().Add(time.Hour), jwtSecret)
	require.NoError(t, err)
	return tok
}

func (s testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s testServer) multipart(t *testing.T, path string, fields map[string]string, fileName string, file []byte, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, fileName))
		h.Set(echo.HeaderContentType, "image/png")
		fw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
