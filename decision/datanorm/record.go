package datanorm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"datanorm-pricing/decision/catalog"
)

// Record type tags (first character of a line).
const (
	RecordArticle   = 'A'
	RecordPriceStep = 'Z'
)

const fieldSeparator = ";"

// Article record field positions.
const (
	articleFieldNo         = 2
	articleFieldName       = 3
	articleFieldUnit       = 5
	articleFieldPriceType  = 7
	articleFieldPriceValue = 8
)

// Price step record field positions.
const (
	stepFieldArticleNo     = 2
	stepFieldCode          = 3
	stepFieldDescription   = 5
	stepFieldPriceKind     = 7
	stepFieldSign          = 8
	stepFieldBasePriceType = 9
	stepFieldValue         = 11
	stepFieldMinQuantity   = 14
	stepFieldMaxQuantity   = 15
)

// MissingFieldError reports a key field that could not be extracted.
type MissingFieldError struct {
	Field string
	Index int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %s (index %d)", e.Field, e.Index)
}

// Record is one decoded line. Exactly one of Article and PriceStep is set
// for A and Z records; both are nil for ignored record types.
type Record struct {
	Type      byte
	Article   *catalog.Article
	PriceStep *catalog.PriceStep
}

// Ignored reports whether the record type carries no catalog data.
func (r Record) Ignored() bool {
	return r.Article == nil && r.PriceStep == nil
}

// ParseLine decodes one non-empty raw line.
func ParseLine(raw string) (Record, error) {
	rec := Record{Type: raw[0]}
	fields := strings.Split(raw, fieldSeparator)

	switch rec.Type {
	case RecordArticle:
		article, err := ParseArticle(fields, raw)
		if err != nil {
			return rec, err
		}
		rec.Article = &article
	case RecordPriceStep:
		step, err := ParsePriceStep(fields, raw)
		if err != nil {
			return rec, err
		}
		rec.PriceStep = &step
	}
	return rec, nil
}

// ParseArticle decodes an A record. The price value is a list price for
// price types 1 and 9 and a purchase price for type 2.
func ParseArticle(fields []string, raw string) (catalog.Article, error) {
	articleNo, err := requiredField(fields, articleFieldNo, "article_no")
	if err != nil {
		return catalog.Article{}, err
	}

	article := catalog.Article{
		ArticleNo: articleNo,
		Name:      field(fields, articleFieldName),
		RawLine:   raw,
	}
	if unit := field(fields, articleFieldUnit); unit != "" {
		article.Unit = &unit
	}

	priceType := parseInt(fields, articleFieldPriceType)
	price := parseDecimal(field(fields, articleFieldPriceValue))
	if priceType != nil {
		switch *priceType {
		case catalog.PriceTypeList, catalog.PriceTypeListGross:
			article.ListPrice = price
		case catalog.PriceTypePurchase:
			article.PurchasePrice = price
		}
	}
	return article, nil
}

// ParsePriceStep decodes a Z record.
func ParsePriceStep(fields []string, raw string) (catalog.PriceStep, error) {
	articleNo, err := requiredField(fields, stepFieldArticleNo, "article_no")
	if err != nil {
		return catalog.PriceStep{}, err
	}
	if len(fields) <= stepFieldCode {
		return catalog.PriceStep{}, &MissingFieldError{Field: "step_code", Index: stepFieldCode}
	}
	if len(fields) <= stepFieldDescription {
		return catalog.PriceStep{}, &MissingFieldError{Field: "description", Index: stepFieldDescription}
	}

	step := catalog.PriceStep{
		ArticleNo:     articleNo,
		StepCode:      fields[stepFieldCode],
		Description:   fields[stepFieldDescription],
		PriceKind:     parseInt(fields, stepFieldPriceKind),
		BasePriceType: parseInt(fields, stepFieldBasePriceType),
		Value:         parseDecimal(field(fields, stepFieldValue)),
		MinQuantity:   parseDecimal(field(fields, stepFieldMinQuantity)),
		MaxQuantity:   parseDecimal(field(fields, stepFieldMaxQuantity)),
		RawLine:       raw,
	}
	if len(fields) > stepFieldSign {
		sign := fields[stepFieldSign]
		step.Sign = &sign
	}
	return step, nil
}

func field(fields []string, index int) string {
	if len(fields) <= index {
		return ""
	}
	return fields[index]
}

func requiredField(fields []string, index int, name string) (string, error) {
	if len(fields) <= index {
		return "", &MissingFieldError{Field: name, Index: index}
	}
	return fields[index], nil
}

// parseInt returns nil for a missing, empty or non-integer field.
func parseInt(fields []string, index int) *int {
	value := strings.TrimSpace(field(fields, index))
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &n
}

// parseDecimal accepts a comma as decimal separator. Empty or unparseable
// text is null.
func parseDecimal(value string) decimal.NullDecimal {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
