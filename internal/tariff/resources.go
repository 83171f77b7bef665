package tariff

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrNoRate is returned when no exchange rate is published for a currency.
var ErrNoRate = errors.New("no exchange rate published")

// Resource paths, relative to {host}/api/{version}/.

func ChapterPath(code string) string        { return "chapters/" + code + ".json" }
func ChaptersPath() string                  { return "chapters.json" }
func ChapterNotePath(code string) string    { return "chapters/" + code + "/chapter_note.json" }
func ChapterChangesPath(code string) string { return "chapters/" + code + "/changes.json" }
func SectionPath(id string) string          { return "sections/" + id + ".json" }
func SectionsPath() string                  { return "sections.json" }
func SectionNotePath(id string) string      { return "sections/" + id + "/section_note.json" }
func HeadingPath(code string) string        { return "headings/" + code + ".json" }
func HeadingChangesPath(code string) string { return "headings/" + code + "/changes.json" }
func CommodityPath(code string) string      { return "commodities/" + code + ".json" }
func CommodityChangesPath(code string) string {
	return "commodities/" + code + "/changes.json"
}
func ExchangeRatesPath() string { return "monetary_exchange_rates.json" }
func CountriesPath() string     { return "geographical_areas/countries" }

// GoodsNomenclaturesPath lists the goods nomenclature under a section,
// chapter or heading.
func GoodsNomenclaturesPath(kind, code string) string {
	return "goods_nomenclatures/" + kind + "/" + code + ".json"
}

// QuotaSearchPath encodes quota search parameters.
func QuotaSearchPath(params url.Values) string {
	if len(params) == 0 {
		return "quotas/search.json"
	}
	return "quotas/search.json?" + params.Encode()
}

// Chapter fetches a chapter with its section and headings.
func (c *Client) Chapter(ctx context.Context, code string) (*Graph, error) {
	return c.Graph(ctx, ChapterPath(code))
}

// Chapters fetches all chapters.
func (c *Client) Chapters(ctx context.Context) (*Graph, error) {
	return c.Graph(ctx, ChaptersPath())
}

// Section fetches a section with its chapters.
func (c *Client) Section(ctx context.Context, id string) (*Graph, error) {
	return c.Graph(ctx, SectionPath(id))
}

// Sections fetches all sections.
func (c *Client) Sections(ctx context.Context) (*Graph, error) {
	return c.Graph(ctx, SectionsPath())
}

// Heading fetches a heading with its commodities, and measures when declarable.
func (c *Client) Heading(ctx context.Context, code string) (*Graph, error) {
	return c.Graph(ctx, HeadingPath(code))
}

// Commodity fetches a commodity with its measures and related entities.
func (c *Client) Commodity(ctx context.Context, code string) (*Graph, error) {
	return c.Graph(ctx, CommodityPath(code))
}

// QuotaSearch searches quota definitions.
func (c *Client) QuotaSearch(ctx context.Context, params url.Values) (*Graph, error) {
	return c.Graph(ctx, QuotaSearchPath(params))
}

// ChapterNote fetches a chapter's legal note in the client's output format.
func (c *Client) ChapterNote(ctx context.Context, code string) (*Response, error) {
	return c.Retrieve(ctx, ChapterNotePath(code))
}

// ChapterChanges fetches the recent changes under a chapter.
func (c *Client) ChapterChanges(ctx context.Context, code string) (*Response, error) {
	return c.Retrieve(ctx, ChapterChangesPath(code))
}

// SectionNote fetches a section's legal note.
func (c *Client) SectionNote(ctx context.Context, id string) (*Response, error) {
	return c.Retrieve(ctx, SectionNotePath(id))
}

// HeadingChanges fetches the recent changes under a heading.
func (c *Client) HeadingChanges(ctx context.Context, code string) (*Response, error) {
	return c.Retrieve(ctx, HeadingChangesPath(code))
}

// CommodityChanges fetches the recent changes to a commodity.
func (c *Client) CommodityChanges(ctx context.Context, code string) (*Response, error) {
	return c.Retrieve(ctx, CommodityChangesPath(code))
}

// GoodsNomenclatures lists the goods nomenclature under a section, chapter
// or heading.
func (c *Client) GoodsNomenclatures(ctx context.Context, kind, code string) (*Response, error) {
	return c.Retrieve(ctx, GoodsNomenclaturesPath(kind, code))
}

// Countries lists the geographical areas that are countries.
func (c *Client) Countries(ctx context.Context) (*Response, error) {
	return c.Retrieve(ctx, CountriesPath())
}

// ExchangeRates fetches the published monetary exchange rates.
func (c *Client) ExchangeRates(ctx context.Context) ([]*ExchangeRate, error) {
	g, err := c.Graph(ctx, ExchangeRatesPath())
	if err != nil {
		return nil, err
	}
	rates := Primary[*ExchangeRate](g)
	rates = append(rates, All[*ExchangeRate](g)...)
	return rates, nil
}

// LatestRate fetches the most recent exchange rate for currency.
func (c *Client) LatestRate(ctx context.Context, currency string) (*ExchangeRate, error) {
	rates, err := c.ExchangeRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	return LatestRate(rates, currency)
}

// LatestRate returns the rate for currency with the latest validity start
// date. Ties keep the first published rate.
func LatestRate(rates []*ExchangeRate, currency string) (*ExchangeRate, error) {
	var (
		latest *ExchangeRate
		when   time.Time
	)
	for _, r := range rates {
		if !strings.EqualFold(r.ChildCurrency, currency) {
			continue
		}
		t := parseDate(r.ValidityStartDate)
		if latest == nil || t.After(when) {
			latest, when = r, t
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoRate, strings.ToUpper(currency))
	}
	return latest, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05.000Z07:00", "2006-01-02"}

// ParseDate parses the API's date and timestamp formats. The zero time is
// returned for empty or unparseable input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDate(s string) time.Time {
	t, _ := ParseDate(s)
	return t
}
