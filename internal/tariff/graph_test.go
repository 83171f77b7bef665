package tariff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradetariff/uktt/internal/jsonapi"
)

const commodityBody = `{
  "data": {
    "id": "93797",
    "type": "commodity",
    "attributes": {"goods_nomenclature_item_id": "0101210000", "number_indents": 2, "declarable": true, "leaf": true},
    "relationships": {
      "footnotes": {"data": []},
      "import_measures": {"data": [{"id": "-2", "type": "measure"}, {"id": "-1", "type": "measure"}]},
      "export_measures": {"data": [{"id": "-3", "type": "measure"}]}
    }
  },
  "included": [
    {"id": "-1", "type": "measure", "attributes": {"effective_start_date": "2019-01-01T00:00:00.000Z"},
     "relationships": {"measure_type": {"data": {"id": "103", "type": "measure_type"}}, "order_number": {"data": null}}},
    {"id": "-2", "type": "measure", "attributes": {},
     "relationships": {"measure_type": {"data": {"id": "143", "type": "measure_type"}}, "order_number": {"data": {"id": "091104", "type": "order_number"}}}},
    {"id": "-3", "type": "measure", "attributes": {},
     "relationships": {"measure_type": {"data": {"id": "278", "type": "measure_type"}}}},
    {"id": "103", "type": "measure_type", "attributes": {"description": "Third country duty"}},
    {"id": "091104", "type": "order_number", "attributes": {"number": "091104"}},
    {"id": "x", "type": "widget", "attributes": {}}
  ]
}`

func parseGraph(t *testing.T, body string) *Graph {
	t.Helper()
	doc, err := jsonapi.Parse([]byte(body))
	require.NoError(t, err)
	g, err := NewGraph(doc)
	require.NoError(t, err)
	return g
}

func TestGraph_Measures(t *testing.T) {
	g := parseGraph(t, commodityBody)
	c, ok := g.Root().(*Commodity)
	require.True(t, ok)
	assert.True(t, c.Declarable)
	assert.Equal(t, 2, c.NumberIndents)

	measures := g.Measures(&c.GoodsNomenclature)
	require.Len(t, measures, 3)

	// side-table order within imports, then exports
	assert.Equal(t, "-1", measures[0].ID())
	assert.Equal(t, "-2", measures[1].ID())
	assert.Equal(t, "-3", measures[2].ID())

	assert.True(t, measures[0].Import)
	assert.False(t, measures[0].IsQuota())
	assert.True(t, measures[1].IsQuota())
	assert.True(t, measures[2].Export)
	assert.False(t, measures[2].Import)
	assert.Equal(t, "278", measures[2].TypeID())
}

func TestGraph_TypedLookups(t *testing.T) {
	g := parseGraph(t, commodityBody)

	mt, ok := g.Get(TypeMeasureType, "103")
	require.True(t, ok)
	assert.Equal(t, "Third country duty", mt.(*MeasureType).Description)

	_, ok = g.Get(TypeMeasure, "103")
	assert.False(t, ok, "type and id must both match")

	unknown := All[*Unknown](g)
	require.Len(t, unknown, 1)
	assert.Equal(t, "widget", unknown[0].Resource().Type)

	// A null relationship resolves to nothing.
	m, _ := g.Get(TypeMeasure, "-1")
	_, ok = ResolveOne[*OrderNumber](g, m.(*Measure).Rel("order_number"))
	assert.False(t, ok)
	// A missing relationship does too.
	assert.Empty(t, Resolve[*Footnote](g, m.(*Measure).Rel("footnotes")))
}

func TestGraph_DuplicateIncluded(t *testing.T) {
	g := parseGraph(t, `{
  "data": {"id": "1", "type": "measure", "attributes": {},
    "relationships": {"footnotes": {"data": [{"id": "TN701", "type": "footnote"}]}}},
  "included": [
    {"id": "TN701", "type": "footnote", "attributes": {"code": "TN701", "description": "first"}},
    {"id": "TN701", "type": "footnote", "attributes": {"code": "TN701", "description": "second"}}
  ]
}`)
	assert.Equal(t, 1, g.Len())

	fns := Resolve[*Footnote](g, g.Root().(*Measure).Rel("footnotes"))
	require.Len(t, fns, 1)
	assert.Equal(t, "first", fns[0].Description)
	assert.Len(t, All[*Footnote](g), 1)

	e, ok := g.Get(TypeFootnote, "TN701")
	require.True(t, ok)
	assert.Same(t, fns[0], e)
}

func TestGraph_PrimaryList(t *testing.T) {
	g := parseGraph(t, ratesBody)
	assert.Nil(t, g.Root())
	rates := Primary[*ExchangeRate](g)
	require.Len(t, rates, 3)
	assert.Equal(t, "USD", rates[2].ChildCurrency)
}

func TestLatestRate(t *testing.T) {
	g := parseGraph(t, ratesBody)
	rates := Primary[*ExchangeRate](g)

	r, err := LatestRate(rates, "GBP")
	require.NoError(t, err)
	assert.Equal(t, "2019-10-01T00:00:00.000Z", r.ValidityStartDate)

	_, err = LatestRate(nil, "GBP")
	assert.ErrorIs(t, err, ErrNoRate)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2019-01-01", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"2019-06-30T00:00:00.000Z", time.Date(2019, 6, 30, 0, 0, 0, 0, time.UTC), true},
		{"2019-06-30T00:00:00Z", time.Date(2019, 6, 30, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"soon", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	r := NewRateLimiter(2)
	ctx := context.Background()
	require.NoError(t, r.Wait(ctx))
	require.NoError(t, r.Wait(ctx))

	st := r.Status()
	assert.Equal(t, 2, st.TokensLimit)
	assert.Equal(t, int64(2), st.TotalConsumed)

	r.Record429()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Wait(ctx), "drained bucket blocks until context expires")
}

func TestRateLimiter_Record429Drains(t *testing.T) {
	r := NewRateLimiter(60)
	st := r.Status()
	assert.Equal(t, 60, st.TokensAvailable)
	assert.True(t, st.Last429Time.IsZero())

	r.Record429()
	st = r.Status()
	assert.Equal(t, 0, st.TokensAvailable)
	assert.False(t, st.Last429Time.IsZero())
}
