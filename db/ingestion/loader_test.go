package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datanorm-pricing/decision/catalog"
	"datanorm-pricing/decision/datanorm"
	apperrors "datanorm-pricing/pkg/errors"
)

const sampleCatalog = "V 050;Sample supplier;\r\n" +
	"A;N;ART001;Test Article;;PCS;1;1;100.0\r\n" +
	"\r\n" +
	"A;N;ART002;Bulk Article;;KG;;2;80\r\n" +
	"Z;N;ART002;01;1;Single;;1;;2;;90;;;1;9\r\n" +
	"Z;N;ART002;02;2;Bulk discount;Extended description;1;-;2;3;85.5;;4;5.0;25.0\r\n" +
	"T;N;ART002;1;Long text\r\n"

func newReader(t *testing.T, input string) *datanorm.Reader {
	t.Helper()
	r, err := datanorm.NewReader(strings.NewReader(input), "utf-8")
	require.NoError(t, err)
	return r
}

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	result, err := NewLoader(store).Load(ctx, newReader(t, sampleCatalog), "sample")
	require.NoError(t, err)

	assert.Equal(t, "sample", result.Source)
	assert.Equal(t, 6, result.Lines)
	assert.Equal(t, 2, result.Articles)
	assert.Equal(t, 2, result.PriceSteps)
	assert.Equal(t, 2, result.Ignored)
	assert.NotEmpty(t, result.ID.String())

	view, err := store.LookupArticle(ctx, "ART002")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "Bulk Article", view.Name)
	assert.Equal(t, "80", view.PurchasePrice.Decimal.String())
	require.Len(t, view.PriceSteps, 2)
	assert.Equal(t, "01", view.PriceSteps[0].StepCode)
	assert.Equal(t, "02", view.PriceSteps[1].StepCode)
}

func TestLoader_MalformedRecordIsFatal(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()
	input := "A;N;ART001;First;;PCS;;1;10\n\nA;N\nA;N;ART003;Never loaded\n"

	result, err := NewLoader(store).Load(ctx, newReader(t, input), "broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrParseFailed))

	catErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 3, catErr.Line)
	assert.Equal(t, "A;N", catErr.Raw)
	assert.Contains(t, err.Error(), "line 3")

	assert.Equal(t, 1, result.Articles)
	first, err := store.LookupArticle(ctx, "ART001")
	require.NoError(t, err)
	assert.NotNil(t, first)
	missing, err := store.LookupArticle(ctx, "ART003")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLoader_ReloadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()
	loader := NewLoader(store)

	_, err := loader.Load(ctx, newReader(t, sampleCatalog), "first")
	require.NoError(t, err)
	before, err := store.LookupArticle(ctx, "ART002")
	require.NoError(t, err)

	_, err = loader.Load(ctx, newReader(t, sampleCatalog), "second")
	require.NoError(t, err)
	after, err := store.LookupArticle(ctx, "ART002")
	require.NoError(t, err)

	assert.Equal(t, before, after)
	articles, steps := store.Counts()
	assert.Equal(t, 2, articles)
	assert.Equal(t, 2, steps)
}

func TestLoader_MergesAcrossLines(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()
	input := "A;N;ART001;Widget;;PCS;;1;100\nA;N;ART001;;;;;2;70\n"

	_, err := NewLoader(store).Load(ctx, newReader(t, input), "merge")
	require.NoError(t, err)

	view, err := store.LookupArticle(ctx, "ART001")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "Widget", view.Name)
	assert.Equal(t, "PCS", *view.Unit)
	assert.Equal(t, "100", view.ListPrice.Decimal.String())
	assert.Equal(t, "70", view.PurchasePrice.Decimal.String())
	assert.Equal(t, "A;N;ART001;;;;;2;70", view.RawLine)
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(catalog.NewMemoryStore()).Load(ctx, newReader(t, sampleCatalog), "cancelled")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DATANORM.001")
	require.NoError(t, os.WriteFile(path, []byte("A;N;ART001;M\xfcller;;ST;;1;5,5\n"), 0o644))

	store := catalog.NewMemoryStore()
	result, err := NewLoader(store).LoadFile(context.Background(), path, datanorm.DefaultInputEncoding)
	require.NoError(t, err)
	assert.Equal(t, path, result.Source)

	view, err := store.LookupArticle(context.Background(), "ART001")
	require.NoError(t, err)
	assert.Equal(t, "Müller", view.Name)
	assert.Equal(t, "5.5", view.ListPrice.Decimal.String())

	_, err = NewLoader(store).LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope"), "latin-1")
	assert.Error(t, err)
}
