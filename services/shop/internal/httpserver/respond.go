package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/services/shop/internal/util"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// fail logs err under event and turns it into the HTTP error echo renders.
func fail(l *slog.Logger, event string, err error) error {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "reason", apperr.Code(err), "error", err)
	} else {
		l.Warn(event, "status", status, "reason", apperr.Code(err), "error", err)
	}
	return echo.NewHTTPError(status, errorBody{Code: apperr.Code(err), Message: apperr.Message(err)})
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid body")
	}
	return c.Validate(req)
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.BadRequest("%s is not a uuid", name)
	}
	return id, nil
}

func actor(c echo.Context) principal.Principal {
	p, _ := principal.FromContext(c.Request().Context())
	return p
}

func pageParams(c echo.Context) (page, offset, limit int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit = util.Calculate(page, size)
	if page < 1 {
		page = 1
	}
	return page, offset, limit
}

// RequestValidator runs validator tags on bound request structs.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.BadRequest("invalid body")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		parts = append(parts, field+" failed "+fe.Tag())
	}
	return apperr.BadRequest("%s", strings.Join(parts, "; "))
}
