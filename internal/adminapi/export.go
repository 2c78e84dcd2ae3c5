package adminapi

import (
	"encoding/csv"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"github.com/anchorshop/backoffice/internal/domain"
	"github.com/anchorshop/backoffice/internal/webserver"
)

const exportBatchSize = 500

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// pricePrinter renders minor-unit prices as grouped decimals ("1,234.56").
var pricePrinter = message.NewPrinter(language.English)

type productExportRow struct {
	Name        string `csv:"Name"`
	Category    string `csv:"Category"`
	Description string `csv:"Description"`
	Price       string `csv:"Price"`
	Stock       int    `csv:"Stock"`
	Status      string `csv:"Status"`
	CreatedAt   string `csv:"Created At"`
}

var exportHeadings = []interface{}{"Name", "Category", "Description", "Price", "Stock", "Status", "Created At"}

func exportRowOf(p domain.Product) productExportRow {
	category := ""
	if p.Category != nil {
		category = p.Category.Name
	}
	status := "Inactive"
	if p.IsEnabled {
		status = "Active"
	}
	return productExportRow{
		Name:        p.Name,
		Category:    category,
		Description: p.Description,
		Price:       pricePrinter.Sprintf("%.2f", float64(p.Price)/100),
		Stock:       p.Stock,
		Status:      status,
		CreatedAt:   p.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func registerExportRoutes() {
	webserver.ApiGET("/products/export", exportProducts)
}

// exportProducts streams every product matching the status/category filters
// into a tabular file. Rows are fetched in query-driven batches so large
// catalogs never get materialized in memory.
func exportProducts(c echo.Context) error {
	query := GetDB(c).Model(&domain.Product{}).Preload("Category")
	query = applyProductFilters(query,
		strings.TrimSpace(c.QueryParam("status")),
		strings.TrimSpace(c.QueryParam("category_id")))

	switch strings.ToLower(strings.TrimSpace(c.QueryParam("format"))) {
	case "csv":
		return exportProductsCSV(c, query)
	default:
		return exportProductsXLSX(c, query)
	}
}

func exportProductsXLSX(c echo.Context, query *gorm.DB) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sw, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to build spreadsheet", err.Error())
	}
	if err := sw.SetRow("A1", exportHeadings); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to build spreadsheet", err.Error())
	}

	rowNum := 2
	var batch []domain.Product
	err = query.FindInBatches(&batch, exportBatchSize, func(tx *gorm.DB, _ int) error {
		for _, p := range batch {
			row := exportRowOf(p)
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, []interface{}{
				row.Name, row.Category, row.Description, row.Price, row.Stock, row.Status, row.CreatedAt,
			}); err != nil {
				return err
			}
			rowNum++
		}
		return nil
	}).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to export products", err.Error())
	}
	if err := sw.Flush(); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to build spreadsheet", err.Error())
	}

	filename := "products_" + time.Now().Format("2006-01-02_150405") + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().WriteHeader(http.StatusOK)
	_, err = f.WriteTo(c.Response())
	return err
}

func exportProductsCSV(c echo.Context, query *gorm.DB) error {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to export products", err.Error())
	}

	filename := "products_" + time.Now().Format("2006-01-02_150405") + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)

	// gocsv's channel marshaller needs at least one row; with an empty result
	// set just emit the header line.
	if total == 0 {
		return gocsv.Marshal(&[]productExportRow{}, c.Response())
	}

	var qerr error
	rows := make(chan interface{}, exportBatchSize)
	go func() {
		defer close(rows)
		var batch []domain.Product
		qerr = query.FindInBatches(&batch, exportBatchSize, func(tx *gorm.DB, _ int) error {
			for _, p := range batch {
				rows <- exportRowOf(p)
			}
			return nil
		}).Error
	}()

	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(c.Response()))
	if err := gocsv.MarshalChan(rows, writer); err != nil {
		// the marshaller stops on the first write error; drain the channel so
		// the producer goroutine can finish instead of blocking on a send
		for range rows {
		}
		return err
	}
	return qerr
}
