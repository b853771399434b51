package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/transform"

	"datanorm-pricing/decision/datanorm"
	"datanorm-pricing/decision/pricing"
)

// DefaultOutputEncoding is used for CSV export when none is configured
const DefaultOutputEncoding = "utf-8"

const sheetName = "Prices"

var quoteColumns = []string{
	"article_no",
	"name",
	"unit",
	"list_price",
	"supplier_discount_pct",
	"purchase_price",
	"overhead_pct",
	"calculated_purchase_price",
	"markup_pct",
	"sale_price",
}

var totalColumns = []string{
	"quantity",
	"total_list_price",
	"total_purchase_price",
	"total_calculated_purchase_price",
	"total_sale_price",
}

// Columns returns the export header. Total columns follow the quote columns
// only when a positive quantity was requested.
func Columns(withTotals bool) []string {
	cols := append([]string{}, quoteColumns...)
	if withTotals {
		cols = append(cols, totalColumns...)
	}
	return cols
}

// ResolveExportPath places a relative path under outputFolder and creates
// the folder. Absolute paths are returned unchanged.
func ResolveExportPath(path, outputFolder string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	resolved := filepath.Join(outputFolder, path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}
	return resolved, nil
}

// ExportFile writes quotes to path. A .xlsx extension selects a workbook,
// anything else is written as CSV in the given charset.
func ExportFile(path string, quotes []pricing.PriceQuote, withTotals bool, encodingName string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return WriteXLSX(f, quotes, withTotals)
	}
	return WriteCSV(f, quotes, withTotals, encodingName)
}

// WriteCSV writes a header and one row per quote. Null values are empty
// cells. Characters the charset cannot represent are an error.
func WriteCSV(w io.Writer, quotes []pricing.PriceQuote, withTotals bool, encodingName string) error {
	if encodingName == "" {
		encodingName = DefaultOutputEncoding
	}
	enc, err := datanorm.LookupEncoding(encodingName)
	if err != nil {
		return err
	}

	tw := transform.NewWriter(w, enc.NewEncoder())
	cw := csv.NewWriter(tw)
	if err := cw.Write(Columns(withTotals)); err != nil {
		return err
	}
	for _, q := range quotes {
		if err := cw.Write(csvRecord(q, withTotals)); err != nil {
			return fmt.Errorf("failed to write article %s: %w", q.ArticleNo, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to encode csv as %s: %w", encodingName, err)
	}
	return tw.Close()
}

// WriteXLSX writes the quotes to a single-sheet workbook with numeric cells
func WriteXLSX(w io.Writer, quotes []pricing.PriceQuote, withTotals bool) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), sheetName); err != nil {
		return err
	}

	header := Columns(withTotals)
	if err := xl.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	for i, q := range quotes {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := xlsxRow(q, withTotals)
		if err := xl.SetSheetRow(sheetName, cellRef, &row); err != nil {
			return fmt.Errorf("failed to write article %s: %w", q.ArticleNo, err)
		}
	}

	_, err := xl.WriteTo(w)
	return err
}

func csvRecord(q pricing.PriceQuote, withTotals bool) []string {
	unit := ""
	if q.Unit != nil {
		unit = *q.Unit
	}
	record := []string{
		q.ArticleNo,
		q.Name,
		unit,
		text(q.ListPrice),
		text(q.SupplierDiscountPct),
		text(q.PurchasePrice),
		q.OverheadPct.String(),
		text(q.CalculatedPurchasePrice),
		text(q.MarkupPct),
		text(q.SalePrice),
	}
	if withTotals {
		t := totalsOf(q)
		record = append(record,
			t.Quantity.String(),
			text(t.TotalListPrice),
			text(t.TotalPurchasePrice),
			text(t.TotalCalculatedPurchasePrice),
			text(t.TotalSalePrice),
		)
	}
	return record
}

func xlsxRow(q pricing.PriceQuote, withTotals bool) []interface{} {
	var unit interface{}
	if q.Unit != nil {
		unit = *q.Unit
	}
	row := []interface{}{
		q.ArticleNo,
		q.Name,
		unit,
		number(q.ListPrice),
		number(q.SupplierDiscountPct),
		number(q.PurchasePrice),
		q.OverheadPct.InexactFloat64(),
		number(q.CalculatedPurchasePrice),
		number(q.MarkupPct),
		number(q.SalePrice),
	}
	if withTotals {
		t := totalsOf(q)
		row = append(row,
			t.Quantity.InexactFloat64(),
			number(t.TotalListPrice),
			number(t.TotalPurchasePrice),
			number(t.TotalCalculatedPurchasePrice),
			number(t.TotalSalePrice),
		)
	}
	return row
}

// totalsOf tolerates quotes calculated without a quantity.
func totalsOf(q pricing.PriceQuote) pricing.QuantityTotals {
	if q.QuantityTotals == nil {
		return pricing.QuantityTotals{}
	}
	return *q.QuantityTotals
}

func text(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func number(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}
