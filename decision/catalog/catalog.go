// Package catalog holds DATANORM articles and graduated price steps
// with merge-on-write semantics.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Price type tags carried by article records.
const (
	PriceTypeList         = 1
	PriceTypeListGross    = 9
	PriceTypePurchase     = 2
	BasePriceTypeList     = 1
	BasePriceTypePurchase = 2
	PriceKindDirect       = 1
)

// Article is the current master data of one catalog item.
type Article struct {
	ArticleNo     string              `json:"article_no"`
	Name          string              `json:"name"`
	Unit          *string             `json:"unit"`
	ListPrice     decimal.NullDecimal `json:"list_price"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	RawLine       string              `json:"-"`
}

// PriceStep is a quantity-range-scoped pricing rule for one article.
type PriceStep struct {
	ArticleNo     string              `json:"-"`
	StepCode      string              `json:"step_code"`
	Description   string              `json:"description"`
	PriceKind     *int                `json:"price_kind"`
	Sign          *string             `json:"sign"`
	BasePriceType *int                `json:"base_price_type"`
	Value         decimal.NullDecimal `json:"value"`
	MinQuantity   decimal.NullDecimal `json:"min_quantity"`
	MaxQuantity   decimal.NullDecimal `json:"max_quantity"`
	RawLine       string              `json:"-"`
}

// IsDirectPrice reports whether the step is a direct price on the given basis.
func (s PriceStep) IsDirectPrice(basePriceType int) bool {
	return s.BasePriceType != nil && *s.BasePriceType == basePriceType &&
		s.PriceKind != nil && *s.PriceKind == PriceKindDirect
}

// Covers reports whether qty lies in [min, max]; a null min is 0 and a
// null max is unbounded.
func (s PriceStep) Covers(qty decimal.Decimal) bool {
	lower := decimal.Zero
	if s.MinQuantity.Valid {
		lower = s.MinQuantity.Decimal
	}
	if qty.LessThan(lower) {
		return false
	}
	if s.MaxQuantity.Valid && qty.GreaterThan(s.MaxQuantity.Decimal) {
		return false
	}
	return true
}

// ArticleView is an article with its price steps ordered by ascending
// minimum quantity.
type ArticleView struct {
	Article
	PriceSteps []PriceStep `json:"price_steps"`
}

// ListFilter selects articles for ListArticles. ArticleNo, when set,
// restricts the result to that key and Limit is ignored. A nil Limit
// means unlimited.
type ListFilter struct {
	ArticleNo string
	Limit     *int
}

// Reader is the query side of a catalog consumed by the price engine.
type Reader interface {
	// LookupArticle returns nil when the article is unknown.
	LookupArticle(ctx context.Context, articleNo string) (*ArticleView, error)
	// FirstArticleNo returns "" and false when the catalog is empty.
	FirstArticleNo(ctx context.Context) (string, bool, error)
	ListArticles(ctx context.Context, filter ListFilter) ([]Article, error)
	// PriceSteps returns the ordered steps of each requested article.
	PriceSteps(ctx context.Context, articleNos []string) (map[string][]PriceStep, error)
}

// Writer is the load side of a catalog.
type Writer interface {
	UpsertArticle(ctx context.Context, article Article) error
	UpsertPriceStep(ctx context.Context, step PriceStep) error
}

// Store is a complete catalog backend.
type Store interface {
	Reader
	Writer
	Close() error
}

// MergeArticle reconciles an incoming partial article record with the
// stored one. Prices and unit are taken only when present; a blank name
// keeps the stored name. The raw line always follows the latest record.
func MergeArticle(existing, incoming Article) Article {
	merged := existing
	merged.RawLine = incoming.RawLine

	if strings.TrimSpace(incoming.Name) != "" {
		merged.Name = incoming.Name
	}
	if incoming.Unit != nil {
		merged.Unit = incoming.Unit
	}
	if incoming.ListPrice.Valid {
		merged.ListPrice = incoming.ListPrice
	}
	if incoming.PurchasePrice.Valid {
		merged.PurchasePrice = incoming.PurchasePrice
	}
	return merged
}

// SortSteps orders steps by ascending minimum quantity with null treated
// as 0. Ties keep step code order so scans are deterministic.
func SortSteps(steps []PriceStep) {
	sort.SliceStable(steps, func(i, j int) bool {
		a, b := minQuantity(steps[i]), minQuantity(steps[j])
		if c := a.Cmp(b); c != 0 {
			return c < 0
		}
		return steps[i].StepCode < steps[j].StepCode
	})
}

func minQuantity(s PriceStep) decimal.Decimal {
	if s.MinQuantity.Valid {
		return s.MinQuantity.Decimal
	}
	return decimal.Zero
}
