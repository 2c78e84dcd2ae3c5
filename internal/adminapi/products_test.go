package adminapi

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anchorshop/backoffice/internal/domain"
)

func listData(t *testing.T, body map[string]interface{}) ([]interface{}, map[string]interface{}) {
	t.Helper()
	page, ok := dig(t, body, "data", "products").(map[string]interface{})
	require.True(t, ok)
	rows, _ := page["data"].([]interface{})
	return rows, page
}

func TestListProductsPagination(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Electronics")

	for i := 0; i < 15; i++ {
		seedProduct(t, db, cat.ID, fmt.Sprintf("Item %02d", i), int64(1000+i), 5, true)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/products", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rows, page := listData(t, decodeBody(t, rec))
	assert.Len(t, rows, 10)
	assert.EqualValues(t, 1, page["current_page"])
	assert.EqualValues(t, 10, page["per_page"])
	assert.EqualValues(t, 15, page["total"])

	rec = doRequest(t, srv, http.MethodGet, "/api/products?page=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, page = listData(t, decodeBody(t, rec))
	assert.Len(t, rows, 5)
	assert.EqualValues(t, 2, page["current_page"])
	assert.EqualValues(t, 15, page["total"])
}

func TestListProductsPerPageCap(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)

	rec := doRequest(t, srv, http.MethodGet, "/api/products?per_page=500", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, page := listData(t, decodeBody(t, rec))
	assert.EqualValues(t, 100, page["per_page"])
}

func TestListProductsStatusFilter(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Electronics")

	seedProduct(t, db, cat.ID, "Enabled A", 1000, 5, true)
	seedProduct(t, db, cat.ID, "Enabled B", 2000, 5, true)
	seedProduct(t, db, cat.ID, "Disabled", 3000, 5, false)

	rec := doRequest(t, srv, http.MethodGet, "/api/products?status=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, page := listData(t, decodeBody(t, rec))
	assert.Len(t, rows, 2)
	assert.EqualValues(t, 2, page["total"])
	for _, row := range rows {
		assert.Equal(t, true, row.(map[string]interface{})["is_enabled"])
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/products?status=0", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, _ = listData(t, decodeBody(t, rec))
	require.Len(t, rows, 1)
	assert.Equal(t, "Disabled", rows[0].(map[string]interface{})["name"])
}

func TestListProductsCategoryFilter(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	books := seedCategory(t, db, "Books")
	toys := seedCategory(t, db, "Toys")

	seedProduct(t, db, books.ID, "Novel", 1500, 3, true)
	seedProduct(t, db, toys.ID, "Puzzle", 2500, 7, true)

	rec := doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/products?category_id=%d", books.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, _ := listData(t, decodeBody(t, rec))
	require.Len(t, rows, 1)
	assert.Equal(t, "Novel", rows[0].(map[string]interface{})["name"])
}

func TestListProductsSortByPrice(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Electronics")

	seedProduct(t, db, cat.ID, "Mid", 2000, 5, true)
	seedProduct(t, db, cat.ID, "Cheap", 500, 5, true)
	seedProduct(t, db, cat.ID, "Pricey", 9000, 5, true)

	rec := doRequest(t, srv, http.MethodGet, "/api/products?sort_key=price&sort_order=asc", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, _ := listData(t, decodeBody(t, rec))
	require.Len(t, rows, 3)

	var prev float64 = -1
	for _, row := range rows {
		price := row.(map[string]interface{})["price"].(float64)
		assert.GreaterOrEqual(t, price, prev)
		prev = price
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/products?sort_key=price", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, _ = listData(t, decodeBody(t, rec))
	require.Len(t, rows, 3)
	assert.Equal(t, "Pricey", rows[0].(map[string]interface{})["name"])
}

func TestListProductsSortOrderMustBeLowercaseAsc(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Electronics")

	seedProduct(t, db, cat.ID, "Cheap", 500, 5, true)
	seedProduct(t, db, cat.ID, "Pricey", 9000, 5, true)

	// only the exact literal "asc" flips the direction
	for _, order := range []string{"ASC", "Asc", "ascending", "desc"} {
		rec := doRequest(t, srv, http.MethodGet, "/api/products?sort_key=price&sort_order="+order, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rows, _ := listData(t, decodeBody(t, rec))
		require.Len(t, rows, 2)
		assert.Equal(t, "Pricey", rows[0].(map[string]interface{})["name"], "sort_order=%s", order)
	}
}

func TestReloadProductReturnsError(t *testing.T) {
	db, _ := newTestServer(t)
	cat := seedCategory(t, db, "Books")
	p := seedProduct(t, db, cat.ID, "Novel", 1500, 3, true)

	loaded := domain.Product{ID: p.ID}
	require.NoError(t, reloadProduct(db, &loaded))
	require.NotNil(t, loaded.Category)
	assert.Equal(t, "Books", loaded.Category.Name)

	missing := domain.Product{ID: 424242}
	assert.ErrorIs(t, reloadProduct(db, &missing), gorm.ErrRecordNotFound)
}

func TestListProductsUnknownSortKeyIgnored(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Electronics")

	old := seedProduct(t, db, cat.ID, "Old", 1000, 5, true)
	recent := seedProduct(t, db, cat.ID, "Recent", 2000, 5, true)
	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)
	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", recent.ID).
		Update("created_at", time.Now()).Error)

	rec := doRequest(t, srv, http.MethodGet, "/api/products?sort_key=secret_column", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, _ := listData(t, decodeBody(t, rec))
	require.Len(t, rows, 2)
	assert.Equal(t, "Recent", rows[0].(map[string]interface{})["name"])
}

func TestGetProduct(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Books")
	p := seedProduct(t, db, cat.ID, "Novel", 1599, 3, true)

	rec := doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/products/%d", p.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Novel", dig(t, body, "data", "product", "name"))
	assert.EqualValues(t, 1599, dig(t, body, "data", "product", "price"))
	assert.Equal(t, "Books", dig(t, body, "data", "product", "category", "name"))
}

func TestGetProductNotFound(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)

	rec := doRequest(t, srv, http.MethodGet, "/api/products/99999", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "NOT_FOUND", body["code"])

	rec = doRequest(t, srv, http.MethodGet, "/api/products/not-a-number", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProduct(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Electronics")

	rec := doRequest(t, srv, http.MethodPost, "/api/products", token, echo.Map{
		"name":        "Wireless Mouse",
		"category_id": cat.ID,
		"description": "2.4GHz",
		"price":       2999,
		"stock":       40,
		"is_enabled":  true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Wireless Mouse", dig(t, body, "data", "product", "name"))
	assert.EqualValues(t, 2999, dig(t, body, "data", "product", "price"))
	assert.Equal(t, "Electronics", dig(t, body, "data", "product", "category", "name"))

	var count int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateProductValidation(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)

	rec := doRequest(t, srv, http.MethodPost, "/api/products", token, echo.Map{})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, "The given data was invalid.", body["message"])
	errs, ok := dig(t, body, "data", "errors").(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "category_id")
	assert.Contains(t, errs, "price")
	assert.Contains(t, errs, "stock")

	msgs := errs["name"].([]interface{})
	assert.Equal(t, "The product name is required.", msgs[0])
}

func TestCreateProductZeroPriceAndStockAllowed(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Electronics")

	rec := doRequest(t, srv, http.MethodPost, "/api/products", token, echo.Map{
		"name":        "Freebie",
		"category_id": cat.ID,
		"price":       0,
		"stock":       0,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateProductUnknownCategory(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)

	rec := doRequest(t, srv, http.MethodPost, "/api/products", token, echo.Map{
		"name":        "Orphan",
		"category_id": 424242,
		"price":       100,
		"stock":       1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody(t, rec)
	errs, ok := dig(t, body, "data", "errors").(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, errs, "category_id")
}

func TestUpdateProduct(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	books := seedCategory(t, db, "Books")
	toys := seedCategory(t, db, "Toys")
	p := seedProduct(t, db, books.ID, "Novel", 1500, 3, true)

	rec := doRequest(t, srv, http.MethodPut, fmt.Sprintf("/api/products/%d", p.ID), token, echo.Map{
		"name":        "Board Game",
		"category_id": toys.ID,
		"description": "2-6 players",
		"price":       4999,
		"stock":       12,
		"is_enabled":  false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Board Game", dig(t, body, "data", "product", "name"))
	assert.Equal(t, "Toys", dig(t, body, "data", "product", "category", "name"))
	assert.Equal(t, false, dig(t, body, "data", "product", "is_enabled"))

	var saved domain.Product
	require.NoError(t, db.First(&saved, p.ID).Error)
	assert.EqualValues(t, 4999, saved.Price)
	assert.Equal(t, toys.ID, saved.CategoryID)
}

func TestUpdateProductNotFound(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Books")

	rec := doRequest(t, srv, http.MethodPut, "/api/products/99999", token, echo.Map{
		"name":        "Ghost",
		"category_id": cat.ID,
		"price":       100,
		"stock":       1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProductSoftDeletes(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Books")
	p := seedProduct(t, db, cat.ID, "Novel", 1500, 3, true)

	rec := doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/products/%d", p.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Product deleted successfully", dig(t, body, "data", "message"))

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/products/%d", p.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/products", token, nil)
	_, page := listData(t, decodeBody(t, rec))
	assert.EqualValues(t, 0, page["total"])

	// the row survives with deleted_at set
	var trashed domain.Product
	require.NoError(t, db.Unscoped().First(&trashed, p.ID).Error)
	assert.True(t, trashed.DeletedAt.Valid)

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/products/%d", p.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkDeleteProducts(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Books")

	a := seedProduct(t, db, cat.ID, "A", 100, 1, true)
	b := seedProduct(t, db, cat.ID, "B", 200, 1, true)
	keep := seedProduct(t, db, cat.ID, "Keep", 300, 1, true)

	rec := doRequest(t, srv, http.MethodPost, "/api/products/bulk-delete", token, echo.Map{
		"ids": []int64{a.ID, b.ID, a.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Products deleted successfully", dig(t, body, "data", "message"))

	var count int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var left domain.Product
	require.NoError(t, db.First(&left).Error)
	assert.Equal(t, keep.ID, left.ID)
}

func TestBulkDeleteUnknownIDRollsBack(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)
	cat := seedCategory(t, db, "Books")

	a := seedProduct(t, db, cat.ID, "A", 100, 1, true)

	rec := doRequest(t, srv, http.MethodPost, "/api/products/bulk-delete", token, echo.Map{
		"ids": []int64{a.ID, 424242},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody(t, rec)
	errs, ok := dig(t, body, "data", "errors").(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, errs, "ids")

	// nothing was deleted
	var count int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestBulkDeleteEmptyIDs(t *testing.T) {
	db, srv := newTestServer(t)
	_, token := seedAdmin(t, db)

	rec := doRequest(t, srv, http.MethodPost, "/api/products/bulk-delete", token, echo.Map{
		"ids": []int64{},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody(t, rec)
	errs, ok := dig(t, body, "data", "errors").(map[string]interface{})
	require.True(t, ok)
	msgs := errs["ids"].([]interface{})
	assert.Equal(t, "Please select at least one product to delete.", msgs[0])
}
