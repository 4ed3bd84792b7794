package httpserver

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/shop/internal/service"
	"github.com/Skotchmaster/storefront/services/shop/internal/transport"
)

const maxImageBytes = 10 << 20

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	product, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.ListProducts(ctx, offset, limit)
	if err != nil {
		return fail(l, "get_products_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewPage(items, page, offset, limit, total))
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	page, offset, limit := pageParams(c)
	total, docs, err := h.Svc.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "search_products_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewPage(docs, page, offset, limit, total))
}

// CreateProduct accepts either a JSON body or a multipart form with the JSON
// in the "product" field and an optional "image" file.
func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var (
		req   transport.CreateProductRequest
		image *service.ImageUpload
	)
	if isMultipart(c) {
		if err := json.Unmarshal([]byte(c.FormValue("product")), &req); err != nil {
			return fail(l, "create_product_failed", apperr.BadRequest("product field must hold the product json"))
		}
		if err := c.Validate(&req); err != nil {
			return fail(l, "create_product_failed", err)
		}
		if fh, err := c.FormFile("image"); err == nil {
			upload, closeFn, err := openImage(fh)
			if err != nil {
				return fail(l, "create_product_failed", err)
			}
			defer closeFn()
			image = upload
		}
	} else if err := bind(c, &req); err != nil {
		return fail(l, "create_product_failed", err)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	product, err := h.Svc.CreateProduct(ctx, actor(c), service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Stock:         req.Stock,
		Active:        active,
	}, image)
	if err != nil {
		return fail(l, "create_product_failed", err)
	}

	l.Info("create_product_success", "product_id", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch_product")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "patch_product_failed", err)
	}
	var req transport.PatchProductRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "patch_product_failed", err)
	}

	product, err := h.Svc.PatchProduct(ctx, actor(c), id, service.ProductPatch{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		ClearDiscount: req.ClearDiscount,
		Stock:         req.Stock,
		Active:        req.Active,
	})
	if err != nil {
		return fail(l, "patch_product_failed", err)
	}

	l.Info("patch_product_success", "product_id", product.ID)
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "delete_product_failed", err)
	}
	if err := h.Svc.DeleteProduct(ctx, actor(c), id); err != nil {
		return fail(l, "delete_product_failed", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) AddImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.add_image")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "add_image_failed", err)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return fail(l, "add_image_failed", apperr.BadRequest("image file required"))
	}
	upload, closeFn, err := openImage(fh)
	if err != nil {
		return fail(l, "add_image_failed", err)
	}
	defer closeFn()

	img, err := h.Svc.AddImage(ctx, actor(c), id, *upload)
	if err != nil {
		return fail(l, "add_image_failed", err)
	}

	l.Info("add_image_success", "product_id", id, "public_id", img.PublicID)
	return c.JSON(http.StatusCreated, img)
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func openImage(fh *multipart.FileHeader) (*service.ImageUpload, func(), error) {
	if fh.Size > maxImageBytes {
		return nil, nil, apperr.BadRequest("image larger than %d bytes", maxImageBytes)
	}
	ct := fh.Header.Get(echo.HeaderContentType)
	if ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, nil, apperr.BadRequest("unsupported image type %q", ct)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, apperr.BadRequest("cannot read image")
	}
	return &service.ImageUpload{Name: fh.Filename, ContentType: ct, Body: f}, func() { _ = f.Close() }, nil
}
