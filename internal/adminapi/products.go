package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anchorshop/backoffice/internal/domain"
	"github.com/anchorshop/backoffice/internal/webserver"
)

type productPayload struct {
	Name        string `json:"name" validate:"required,max=255"`
	CategoryID  int64  `json:"category_id" validate:"required"`
	Description string `json:"description"`
	Price       *int64 `json:"price" validate:"required,min=0"`
	Stock       *int   `json:"stock" validate:"required,min=0"`
	IsEnabled   bool   `json:"is_enabled"`
}

type bulkDeletePayload struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// registerProductRoutes registers product CRUD endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
	webserver.ApiPOST("/products/bulk-delete", bulkDeleteProducts)
}

// whitelist allowed sort columns to avoid SQL injection
var productSortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"is_enabled": "is_enabled",
	"created_at": "created_at",
}

// applyProductFilters adds the status/category predicates shared by listing
// and export. Filters apply only when the parameter is present and non-empty.
func applyProductFilters(db *gorm.DB, status, categoryID string) *gorm.DB {
	if status != "" {
		db = db.Where("is_enabled = ?", cast.ToBool(status))
	}
	if categoryID != "" {
		db = db.Where("category_id = ?", cast.ToInt64(categoryID))
	}
	return db
}

func listProducts(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.Product{})
	db = applyProductFilters(db,
		strings.TrimSpace(c.QueryParam("status")),
		strings.TrimSpace(c.QueryParam("category_id")))

	// Default ordering: newest first. A recognized sort_key takes precedence
	// with created_at as tiebreak; unknown keys are silently ignored.
	order := "created_at DESC, id DESC"
	if key := strings.TrimSpace(c.QueryParam("sort_key")); key != "" {
		if col, allowed := productSortColumns[key]; allowed {
			// anything other than exactly "asc" sorts descending
			dir := "DESC"
			if strings.TrimSpace(c.QueryParam("sort_order")) == "asc" {
				dir = "ASC"
			}
			order = col + " " + dir + ", created_at DESC"
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Preload("Category").Order(order).
		Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	return ok(c, echo.Map{"products": pageOf(rows, total, page, perPage)})
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	var p domain.Product
	if err := GetDB(c).Preload("Category").Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return ok(c, echo.Map{"product": p})
}

// reloadProduct refetches the row with its category populated.
func reloadProduct(db *gorm.DB, p *domain.Product) error {
	return db.Preload("Category").First(p, p.ID).Error
}

// checkCategoryExists enforces the write-time foreign key on category_id.
func checkCategoryExists(db *gorm.DB, id int64) (bool, error) {
	var count int64
	if err := db.Model(&domain.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	exists, err := checkCategoryExists(GetDB(c), payload.CategoryID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	if !exists {
		return failValidation(c, map[string][]string{
			"category_id": {"The selected category does not exist."},
		})
	}

	now := time.Now()
	p := domain.Product{
		Name:        strings.TrimSpace(payload.Name),
		CategoryID:  payload.CategoryID,
		Description: payload.Description,
		Price:       *payload.Price,
		Stock:       *payload.Stock,
		IsEnabled:   payload.IsEnabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := GetDB(c).Create(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}
	if err := reloadProduct(GetDB(c), &p); err != nil {
		zap.L().Error("failed to reload created product", zap.Int64("id", p.ID), zap.Error(err))
	}

	writeOprLog(c, GetAdmin(c).Name, "create_product", fmt.Sprintf("created product %d", p.ID))
	return created(c, echo.Map{"product": p})
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	exists, err := checkCategoryExists(GetDB(c), payload.CategoryID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	if !exists {
		return failValidation(c, map[string][]string{
			"category_id": {"The selected category does not exist."},
		})
	}

	p.Name = strings.TrimSpace(payload.Name)
	p.CategoryID = payload.CategoryID
	p.Description = payload.Description
	p.Price = *payload.Price
	p.Stock = *payload.Stock
	p.IsEnabled = payload.IsEnabled
	p.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	if err := reloadProduct(GetDB(c), &p); err != nil {
		zap.L().Error("failed to reload updated product", zap.Int64("id", p.ID), zap.Error(err))
	}

	writeOprLog(c, GetAdmin(c).Name, "update_product", fmt.Sprintf("updated product %d", p.ID))
	return ok(c, echo.Map{"product": p})
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	if err := GetDB(c).Delete(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}

	writeOprLog(c, GetAdmin(c).Name, "delete_product", fmt.Sprintf("deleted product %d", id))
	return ok(c, echo.Map{"message": "Product deleted successfully"})
}

var errUnknownProducts = errors.New("unknown product ids")

func bulkDeleteProducts(c echo.Context) error {
	var payload bulkDeletePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	ids := uniqueIDs(payload.IDs)

	// All-or-nothing: every id must resolve to a live product, and the whole
	// batch is soft-deleted in one transaction.
	err := GetDB(c).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Product{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(ids)) {
			return errUnknownProducts
		}
		return tx.Where("id IN ?", ids).Delete(&domain.Product{}).Error
	})
	if errors.Is(err, errUnknownProducts) {
		return failValidation(c, map[string][]string{
			"ids": {"One or more selected products do not exist."},
		})
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete products", err.Error())
	}

	writeOprLog(c, GetAdmin(c).Name, "bulk_delete_products", fmt.Sprintf("deleted %d products", len(ids)))
	return ok(c, echo.Map{"message": "Products deleted successfully"})
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
