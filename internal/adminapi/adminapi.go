package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anchorshop/backoffice/internal/domain"
	"github.com/anchorshop/backoffice/internal/webserver"
	"github.com/anchorshop/backoffice/pkg/common"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// InitRouter registers all admin API routes on the web server.
func InitRouter() {
	registerAuthRoutes()
	registerCategoryRoutes()
	registerProductRoutes()
	registerExportRoutes()
}

// GetDB returns the request-scoped database handle.
func GetDB(c echo.Context) *gorm.DB {
	return c.Get(webserver.ContextDBKey).(*gorm.DB)
}

// GetAdmin returns the authenticated admin, or nil on public routes.
func GetAdmin(c echo.Context) *domain.SysAdmin {
	admin, _ := c.Get(webserver.ContextAdminKey).(*domain.SysAdmin)
	return admin
}

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func created(c echo.Context, data interface{}) error {
	return webserver.Created(c, data)
}

func fail(c echo.Context, status int, code, message string, data interface{}) error {
	return webserver.Fail(c, status, code, message, data)
}

func pageOf(rows interface{}, total int64, page, perPage int) webserver.PageResult {
	return webserver.PageResult{
		Data:        rows,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
	}
}

// parsePagination reads page/per_page query params, falling back to defaults
// on missing or malformed values. per_page is capped to keep result sets
// bounded.
func parsePagination(c echo.Context) (int, int) {
	page := cast.ToInt(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage := cast.ToInt(c.QueryParam("per_page"))
	if perPage < 1 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	return page, perPage
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

var validationMessages = map[string]string{
	"name.required":        "The product name is required.",
	"name.max":             "The product name must not exceed 255 characters.",
	"category_id.required": "Please select a category.",
	"price.required":       "The price is required.",
	"price.min":            "The price must be at least 0.",
	"stock.required":       "The stock quantity is required.",
	"stock.min":            "The stock must be at least 0.",
	"ids.required":         "Please select at least one product to delete.",
	"ids.min":              "Please select at least one product to delete.",
	"email.required":       "The email field is required.",
	"password.required":    "The password field is required.",
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters", nil)
	}
	fields := map[string][]string{}
	for _, fe := range verrs {
		field := fe.Field()
		msg, found := validationMessages[field+"."+fe.Tag()]
		if !found {
			msg = "The " + field + " field is invalid."
		}
		fields[field] = append(fields[field], msg)
	}
	return failValidation(c, fields)
}

func failValidation(c echo.Context, fields map[string][]string) error {
	return fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR",
		"The given data was invalid.", echo.Map{"errors": fields})
}

// writeOprLog records an admin action in the audit trail. Failures are
// logged, not surfaced: auditing never breaks the request.
func writeOprLog(c echo.Context, oprName, action, desc string) {
	err := GetDB(c).Create(&domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   oprName,
		OprIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}).Error
	if err != nil {
		zap.L().Error("failed to write operation log", zap.String("action", action), zap.Error(err))
	}
}
