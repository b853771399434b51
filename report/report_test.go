package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"datanorm-pricing/decision/catalog"
	"datanorm-pricing/decision/pricing"
)

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func strPtr(s string) *string { return &s }

func quotes(t *testing.T, qty *decimal.Decimal) []pricing.PriceQuote {
	t.Helper()
	ctx := context.Background()
	store := catalog.NewMemoryStore()
	require.NoError(t, store.UpsertArticle(ctx, catalog.Article{
		ArticleNo:     "ART001",
		Name:          "Schraube <M8> & Mutter",
		Unit:          strPtr("STK"),
		ListPrice:     dec("100"),
		PurchasePrice: dec("70"),
	}))
	require.NoError(t, store.UpsertArticle(ctx, catalog.Article{ArticleNo: "ART002", Name: "Übergröße"}))

	result, err := pricing.NewEngine(store).CalculatePrices(ctx, pricing.QuoteRequest{
		OverheadPct: decimal.NewFromInt(10),
		Quantity:    qty,
	})
	require.NoError(t, err)
	return result
}

func TestAlignJSONColons(t *testing.T) {
	in := "{\n  \"a\": 1,\n  \"long_key\": {\n    \"x\": null,\n    \"yy\": \"v\"\n  },\n  \"bb\": [\n    1\n  ]\n}"
	want := "{\n         \"a\": 1,\n  \"long_key\": {\n     \"x\": null,\n    \"yy\": \"v\"\n  },\n        \"bb\": [\n    1\n  ]\n}"
	assert.Equal(t, want, AlignJSONColons(in))
}

func TestAlignJSONColons_Untouched(t *testing.T) {
	assert.Equal(t, "[]", AlignJSONColons("[]"))
	assert.Equal(t, "[\n  1,\n  2\n]", AlignJSONColons("[\n  1,\n  2\n]"))
}

func TestWriteJSON_Quote(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, quotes(t, nil)[0]))

	out := buf.String()
	assert.Contains(t, out, `"Schraube <M8> & Mutter"`)
	assert.Contains(t, out, `"list_price": 100,`)
	assert.Contains(t, out, `"calculated_purchase_price": 77,`)
	assert.Contains(t, out, `"supplier_discount_pct": 30,`)
	assert.NotContains(t, out, "quantity")
	assert.True(t, strings.HasSuffix(out, "}\n"))

	// Colons of top-level keys share one column.
	column := -1
	for _, line := range strings.Split(out, "\n") {
		if i := strings.Index(line, `":`); i >= 0 {
			if column < 0 {
				column = i
			}
			assert.Equal(t, column, i, line)
		}
	}
}

func TestWriteJSON_Overview(t *testing.T) {
	view := &catalog.ArticleView{
		Article: catalog.Article{ArticleNo: "ART002", Name: "Bulk", RawLine: "A;N;ART002"},
	}
	doc := Overview{Article: NewArticleDocument(view)}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc))
	out := buf.String()

	assert.Contains(t, out, `"availability_status": "Article found, stock level unknown"`)
	assert.Contains(t, out, `"price_steps": []`)
	assert.Contains(t, out, `"prices": null`)
	assert.Contains(t, out, `"unit": null`)
	assert.NotContains(t, out, "raw_line")
}

func TestNewArticleDocument_Nil(t *testing.T) {
	assert.Nil(t, NewArticleDocument(nil))
}

func TestColumns(t *testing.T) {
	assert.Len(t, Columns(false), 10)
	cols := Columns(true)
	require.Len(t, cols, 15)
	assert.Equal(t, "sale_price", cols[9])
	assert.Equal(t, "quantity", cols[10])
	assert.Equal(t, "total_sale_price", cols[14])
}

func TestWriteCSV(t *testing.T) {
	qty := decimal.NewFromInt(3)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, quotes(t, &qty), true, "utf-8"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns(true), records[0])
	assert.Equal(t, []string{
		"ART001", "Schraube <M8> & Mutter", "STK", "100", "30", "70", "10", "77", "29.87", "100",
		"3", "300", "210", "231", "300",
	}, records[1])
	assert.Equal(t, []string{
		"ART002", "Übergröße", "", "", "", "", "10", "", "", "",
		"3", "", "", "", "",
	}, records[2])
}

func TestWriteCSV_Latin1(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, quotes(t, nil), false, "latin-1"))
	assert.Contains(t, buf.String(), "\xdcbergr\xf6\xdfe")
}

func TestWriteCSV_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteCSV(&buf, nil, false, "no-such-charset"))

	q := []pricing.PriceQuote{{ArticleNo: "X", Name: "€uro only in cp1252", OverheadPct: decimal.Zero}}
	assert.Error(t, WriteCSV(&buf, q, false, "latin-1"))
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "prices.csv")
	require.NoError(t, ExportFile(csvPath, quotes(t, nil), false, ""))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "article_no,name,unit,"))

	qty := decimal.NewFromInt(2)
	xlsxPath := filepath.Join(dir, "prices.xlsx")
	require.NoError(t, ExportFile(xlsxPath, quotes(t, &qty), true, ""))

	xl, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer xl.Close()
	rows, err := xl.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "total_sale_price", rows[0][14])
	assert.Equal(t, "ART001", rows[1][0])
	assert.Equal(t, "200", rows[1][14])
}

func TestResolveExportPath(t *testing.T) {
	dir := t.TempDir()

	abs := filepath.Join(dir, "abs.csv")
	got, err := ResolveExportPath(abs, "ignored")
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	folder := filepath.Join(dir, "output")
	got, err = ResolveExportPath(filepath.Join("sub", "prices.csv"), folder)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, "sub", "prices.csv"), got)
	assert.DirExists(t, filepath.Join(folder, "sub"))
}
