package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anchorshop/backoffice/internal/domain"
	"github.com/anchorshop/backoffice/internal/webserver"
)

func registerCategoryRoutes() {
	webserver.ApiGET("/categories", listCategories)
}

func listCategories(c echo.Context) error {
	var categories []domain.Category
	if err := GetDB(c).Order("name ASC").Find(&categories).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	return ok(c, echo.Map{"categories": categories})
}
