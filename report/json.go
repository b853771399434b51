// Package report renders price quotes and article lookups for the screen
// and for file export.
package report

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"datanorm-pricing/decision/catalog"
	"datanorm-pricing/decision/pricing"
)

// AvailabilityStatus is reported for every found article. The catalog
// carries no stock levels.
const AvailabilityStatus = "Article found, stock level unknown"

// ArticleDocument is the raw lookup result of one article
type ArticleDocument struct {
	catalog.Article
	AvailabilityStatus string              `json:"availability_status"`
	PriceSteps         []catalog.PriceStep `json:"price_steps"`
}

// NewArticleDocument converts a store lookup into its printed form
func NewArticleDocument(view *catalog.ArticleView) *ArticleDocument {
	if view == nil {
		return nil
	}
	steps := view.PriceSteps
	if steps == nil {
		steps = []catalog.PriceStep{}
	}
	return &ArticleDocument{
		Article:            view.Article,
		AvailabilityStatus: AvailabilityStatus,
		PriceSteps:         steps,
	}
}

// Overview pairs the raw lookup of one article with its price quote
type Overview struct {
	Article *ArticleDocument    `json:"article"`
	Prices  *pricing.PriceQuote `json:"prices"`
}

var keyLine = regexp.MustCompile(`^(\s+)"([^"]+)":\s+(.+)$`)

// AlignJSONColons right-aligns object keys so that colons line up at each
// indentation level. Lines that are not "key": value pairs are kept as is.
func AlignJSONColons(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= 1 {
		return s
	}

	maxKeyLen := make(map[int]int)
	for _, line := range lines {
		m := keyLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent, key := len(m[1]), len(m[2])
		if key > maxKeyLen[indent] {
			maxKeyLen[indent] = key
		}
	}
	if len(maxKeyLen) == 0 {
		return s
	}

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		m := keyLine.FindStringSubmatch(line)
		if m == nil {
			b.WriteString(line)
			continue
		}
		indent, key, value := m[1], m[2], m[3]
		b.WriteString(indent)
		b.WriteString(strings.Repeat(" ", maxKeyLen[len(indent)]-len(key)))
		b.WriteString(`"` + key + `": ` + value)
	}
	return b.String()
}

// WriteJSON writes v indented by two spaces with aligned colons
func WriteJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}

	out := AlignJSONColons(strings.TrimRight(buf.String(), "\n"))
	_, err := io.WriteString(w, out+"\n")
	return err
}
