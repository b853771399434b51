// Package pricing derives sale-price quotes from catalog articles and
// graduated price steps.
package pricing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"datanorm-pricing/decision/catalog"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Engine is the Price Engine
type Engine struct {
	store       catalog.Reader
	roundDigits float64
	logger      zerolog.Logger
}

// NewEngine creates a price engine over a loaded catalog
func NewEngine(store catalog.Reader) *Engine {
	return &Engine{
		store:       store,
		roundDigits: DefaultRoundDigits,
		logger:      zerolog.Nop(),
	}
}

// WithRoundDigits sets the digit count for derived figures. It is
// validated when prices are calculated.
func (e *Engine) WithRoundDigits(digits float64) *Engine {
	e.roundDigits = digits
	return e
}

// WithLogger sets the engine logger
func (e *Engine) WithLogger(logger zerolog.Logger) *Engine {
	e.logger = logger
	return e
}

// QuoteRequest selects articles and carries the pricing inputs
type QuoteRequest struct {
	// OverheadPct is applied on top of the purchase price.
	OverheadPct decimal.Decimal

	// ArticleNo restricts the batch to one article; Limit is then ignored.
	ArticleNo string
	// Limit caps the batch after ordering by article number. Nil is unlimited.
	Limit *int

	// Quantity selects graduated prices. Nil means 1 for the lookup and no
	// totals in the output.
	Quantity *decimal.Decimal
}

// PriceQuote is the derived price information for one article
type PriceQuote struct {
	ArticleNo               string              `json:"article_no"`
	Name                    string              `json:"name"`
	Unit                    *string             `json:"unit"`
	ListPrice               decimal.NullDecimal `json:"list_price"`
	SupplierDiscountPct     decimal.NullDecimal `json:"supplier_discount_pct"`
	PurchasePrice           decimal.NullDecimal `json:"purchase_price"`
	OverheadPct             decimal.Decimal     `json:"overhead_pct"`
	CalculatedPurchasePrice decimal.NullDecimal `json:"calculated_purchase_price"`
	MarkupPct               decimal.NullDecimal `json:"markup_pct"`
	SalePrice               decimal.NullDecimal `json:"sale_price"`

	// Present only when a positive quantity was requested.
	*QuantityTotals
}

// QuantityTotals are the unit prices multiplied by the requested quantity
type QuantityTotals struct {
	Quantity                     decimal.Decimal     `json:"quantity"`
	TotalListPrice               decimal.NullDecimal `json:"total_list_price"`
	TotalPurchasePrice           decimal.NullDecimal `json:"total_purchase_price"`
	TotalCalculatedPurchasePrice decimal.NullDecimal `json:"total_calculated_purchase_price"`
	TotalSalePrice               decimal.NullDecimal `json:"total_sale_price"`
}

// HasTotals reports whether the request produces quantity totals.
func (r QuoteRequest) HasTotals() bool {
	return r.Quantity != nil && r.Quantity.IsPositive()
}

// CalculatePrices derives one quote per selected article, ordered by
// article number. An empty catalog or unknown article yields no quotes.
func (e *Engine) CalculatePrices(ctx context.Context, req QuoteRequest) ([]PriceQuote, error) {
	places, err := Digits(e.roundDigits)
	if err != nil {
		return nil, err
	}

	articles, err := e.store.ListArticles(ctx, catalog.ListFilter{
		ArticleNo: req.ArticleNo,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	quotes := make([]PriceQuote, 0, len(articles))
	if len(articles) == 0 {
		return quotes, nil
	}

	articleNos := make([]string, 0, len(articles))
	for _, a := range articles {
		articleNos = append(articleNos, a.ArticleNo)
	}
	steps, err := e.store.PriceSteps(ctx, articleNos)
	if err != nil {
		return nil, fmt.Errorf("failed to load price steps: %w", err)
	}

	for _, article := range articles {
		quotes = append(quotes, e.quote(article, steps[article.ArticleNo], req, places))
	}

	e.logger.Debug().
		Int("quotes", len(quotes)).
		Str("article_no", req.ArticleNo).
		Bool("with_totals", req.HasTotals()).
		Msg("calculated price quotes")

	return quotes, nil
}

func (e *Engine) quote(article catalog.Article, steps []catalog.PriceStep, req QuoteRequest, places int32) PriceQuote {
	// Article-level prices win over the first direct step price.
	baseList := article.ListPrice
	if !baseList.Valid {
		baseList = firstDirectPrice(steps, catalog.BasePriceTypeList)
	}
	basePurchase := article.PurchasePrice
	if !basePurchase.Valid {
		basePurchase = firstDirectPrice(steps, catalog.BasePriceTypePurchase)
	}

	qty := one
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	listPrice := priceForQuantity(steps, catalog.BasePriceTypeList, qty)
	if !listPrice.Valid {
		listPrice = baseList
	}
	purchasePrice := priceForQuantity(steps, catalog.BasePriceTypePurchase, qty)
	if !purchasePrice.Valid {
		purchasePrice = basePurchase
	}

	q := PriceQuote{
		ArticleNo:     article.ArticleNo,
		Name:          article.Name,
		Unit:          article.Unit,
		ListPrice:     listPrice,
		PurchasePrice: purchasePrice,
		OverheadPct:   req.OverheadPct,
	}

	// A zero purchase price counts as absent for the discount.
	if listPrice.Valid && purchasePrice.Valid && listPrice.Decimal.IsPositive() && !purchasePrice.Decimal.IsZero() {
		discount := one.Sub(purchasePrice.Decimal.Div(listPrice.Decimal)).Mul(hundred)
		q.SupplierDiscountPct = valid(roundTo(discount, places))
	}

	if purchasePrice.Valid {
		factor := one.Add(req.OverheadPct.Div(hundred))
		q.CalculatedPurchasePrice = valid(roundTo(purchasePrice.Decimal.Mul(factor), places))
	}

	q.SalePrice = listPrice
	if !q.SalePrice.Valid {
		q.SalePrice = q.CalculatedPurchasePrice
	}

	if q.SalePrice.Valid && q.CalculatedPurchasePrice.Valid && !q.CalculatedPurchasePrice.Decimal.IsZero() {
		markup := q.SalePrice.Decimal.Div(q.CalculatedPurchasePrice.Decimal).Sub(one).Mul(hundred)
		q.MarkupPct = valid(roundTo(markup, places))
	}

	if req.HasTotals() {
		quantity := *req.Quantity
		q.QuantityTotals = &QuantityTotals{
			Quantity:                     quantity,
			TotalListPrice:               total(q.ListPrice, quantity, places),
			TotalPurchasePrice:           total(q.PurchasePrice, quantity, places),
			TotalCalculatedPurchasePrice: total(q.CalculatedPurchasePrice, quantity, places),
			TotalSalePrice:               total(q.SalePrice, quantity, places),
		}
	}

	return q
}

// firstDirectPrice returns the value of the first direct-price step on the
// given basis, regardless of its quantity range.
func firstDirectPrice(steps []catalog.PriceStep, basePriceType int) decimal.NullDecimal {
	for _, s := range steps {
		if s.IsDirectPrice(basePriceType) {
			return s.Value
		}
	}
	return decimal.NullDecimal{}
}

// priceForQuantity returns the value of the first direct-price step on the
// given basis whose range covers qty.
func priceForQuantity(steps []catalog.PriceStep, basePriceType int, qty decimal.Decimal) decimal.NullDecimal {
	for _, s := range steps {
		if s.IsDirectPrice(basePriceType) && s.Covers(qty) {
			return s.Value
		}
	}
	return decimal.NullDecimal{}
}

func total(unit decimal.NullDecimal, qty decimal.Decimal, places int32) decimal.NullDecimal {
	if !unit.Valid {
		return decimal.NullDecimal{}
	}
	return valid(roundTo(unit.Decimal.Mul(qty), places))
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
