package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradetariff/uktt/internal/jsonapi"
	"github.com/tradetariff/uktt/internal/layout"
	"github.com/tradetariff/uktt/internal/render"
	"github.com/tradetariff/uktt/internal/tariff"
)

const sectionBody = `{
  "data": {
    "id": "1", "type": "section",
    "attributes": {
      "numeral": "I", "title": "Live animals; animal products", "position": 1,
      "chapter_from": 1, "chapter_to": "5",
      "section_note": "* 1. Any reference in this section to a particular genus or species of an animal also applies to the young of that genus.\r\n* 2. Except where the context otherwise requires, dried products include dehydrated products."
    }
  }
}`

const chapter01Body = `{
  "data": {
    "id": "c01", "type": "chapter",
    "attributes": {
      "goods_nomenclature_item_id": "0100000000",
      "description": "LIVE ANIMALS",
      "formatted_description": "Live animals",
      "chapter_note": "* 1. This chapter covers all live animals except:\r\n* (a) fish and crustaceans;\r\n* (b) cultures of micro-organisms."
    },
    "relationships": {
      "section": {"data": {"id": "1", "type": "section"}},
      "headings": {"data": [{"id": "h0102", "type": "heading"}, {"id": "h0101", "type": "heading"}]}
    }
  },
  "included": [
    {"id": "h0101", "type": "heading", "attributes": {"goods_nomenclature_item_id": "0101000000", "description": "Live horses, asses, mules and hinnies"}},
    {"id": "h0102", "type": "heading", "attributes": {"goods_nomenclature_item_id": "0102000000", "description": "Live bovine animals"}}
  ]
}`

const heading0101Body = `{
  "data": {
    "id": "h0101", "type": "heading",
    "attributes": {"goods_nomenclature_item_id": "0101000000", "description": "Live horses, asses, mules and hinnies", "declarable": false},
    "relationships": {"commodities": {"data": []}}
  },
  "included": []
}`

const heading0102Body = `{
  "data": {
    "id": "h0102", "type": "heading",
    "attributes": {"goods_nomenclature_item_id": "0102000000", "description": "Live bovine animals", "declarable": false},
    "relationships": {"commodities": {"data": []}}
  }
}`

const chapter02Body = `{
  "data": {
    "id": "c02", "type": "chapter",
    "attributes": {
      "goods_nomenclature_item_id": "0200000000",
      "formatted_description": "Meat and edible meat offal",
      "chapter_note": "* 1. This chapter does not cover:\r\n* (a) products unfit for human consumption;\r\n* (b) guts, bladders or stomachs of animals."
    },
    "relationships": {
      "section": {"data": {"id": "1", "type": "section"}},
      "headings": {"data": [{"id": "h0202", "type": "heading"}, {"id": "h0201", "type": "heading"}]}
    }
  },
  "included": [
    {"id": "h0201", "type": "heading", "attributes": {"goods_nomenclature_item_id": "0201000000"}},
    {"id": "h0202", "type": "heading", "attributes": {"goods_nomenclature_item_id": "0202000000"}}
  ]
}`

const heading0201Body = `{
  "data": {
    "id": "h0201", "type": "heading",
    "attributes": {"goods_nomenclature_item_id": "0201000000", "description": "Meat of bovine animals, fresh or chilled", "declarable": false},
    "relationships": {"commodities": {"data": [
      {"id": "c1", "type": "commodity"},
      {"id": "c2", "type": "commodity"},
      {"id": "c3", "type": "commodity"},
      {"id": "c4", "type": "commodity"},
      {"id": "c5", "type": "commodity"}
    ]}}
  },
  "included": [
    {"id": "c1", "type": "commodity", "attributes": {"goods_nomenclature_item_id": "0201100000", "description": "Carcases and half-carcases", "number_indents": 1, "leaf": false, "declarable": false}},
    {"id": "c2", "type": "commodity", "attributes": {"goods_nomenclature_item_id": "0201100010", "description": "Of young animals", "number_indents": 3, "leaf": true, "declarable": true}},
    {"id": "c3", "type": "commodity", "attributes": {"goods_nomenclature_item_id": "0201100020", "description": "Of other animals", "number_indents": 3, "leaf": true, "declarable": true}},
    {"id": "c4", "type": "commodity", "attributes": {"goods_nomenclature_item_id": "0201200000", "description": "Other cuts with bone in", "number_indents": 1, "leaf": true, "declarable": false}},
    {"id": "c5", "type": "commodity", "attributes": {"goods_nomenclature_item_id": "0201300000", "description": "Boneless", "number_indents": 1, "leaf": true, "declarable": true}}
  ]
}`

const heading0202Body = `{
  "data": {
    "id": "h0202", "type": "heading",
    "attributes": {"goods_nomenclature_item_id": "0202000000", "description": "Meat of bovine animals, frozen", "declarable": true},
    "relationships": {
      "commodities": {"data": []},
      "import_measures": {"data": [{"id": "h103", "type": "measure"}]}
    }
  },
  "included": [
    {"id": "h103", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "103", "type": "measure_type"}},
      "duty_expression": {"data": {"id": "h103-duty", "type": "duty_expression"}},
      "geographical_area": {"data": {"id": "1011", "type": "geographical_area"}}
    }},
    {"id": "h103-duty", "type": "duty_expression", "attributes": {"base": "15.40 %"}},
    {"id": "103", "type": "measure_type", "attributes": {"description": "Third country duty"}},
    {"id": "1011", "type": "geographical_area", "attributes": {"geographical_area_id": "1011", "description": "ERGA OMNES"}}
  ]
}`

const sharedIncluded = `
    {"id": "103", "type": "measure_type", "attributes": {"description": "Third country duty"}},
    {"id": "142", "type": "measure_type", "attributes": {"description": "Tariff preference"}},
    {"id": "143", "type": "measure_type", "attributes": {"description": "Preferential tariff quota"}},
    {"id": "552", "type": "measure_type", "attributes": {"description": "Definitive anti-dumping duty"}},
    {"id": "278", "type": "measure_type", "attributes": {"description": "Export control"}},
    {"id": "VTZ", "type": "measure_type", "attributes": {"description": "VAT zero rate"}},
    {"id": "1011", "type": "geographical_area", "attributes": {"geographical_area_id": "1011", "description": "ERGA OMNES"}},
    {"id": "CH", "type": "geographical_area", "attributes": {"geographical_area_id": "CH", "description": "Switzerland"}},
    {"id": "CN", "type": "geographical_area", "attributes": {"geographical_area_id": "CN", "description": "China"}},
    {"id": "C999", "type": "additional_code", "attributes": {"code": "C999", "formatted_description": "<b>Other</b>"}},
    {"id": "020001", "type": "order_number", "attributes": {"number": "020001"},
     "relationships": {"definition": {"data": {"id": "d1", "type": "definition"}}}},
    {"id": "d1", "type": "definition", "attributes": {
      "validity_start_date": "2020-01-01T00:00:00.000Z", "validity_end_date": "2020-12-31T00:00:00.000Z", "measurement_unit": "kg"}},
    {"id": "TN701", "type": "footnote", "attributes": {"code": "TN701", "description": "According to <i>Regulation</i> 1234|"}},
    {"id": "CD437", "type": "footnote", "attributes": {"code": "CD437", "description": "Certificate of origin required"}},
    {"id": "q-duty", "type": "duty_expression", "attributes": {"base": "0.00 % + 12.3 EUR / 100 kg"}},
    {"id": "ad-duty", "type": "duty_expression", "attributes": {"base": "10.0 %"}}`

// Of young animals: indent 3, quota 020001, preference, anti-dumping,
// an export control with a CAP licence condition, VAT.
const commodity2Body = `{
  "data": {
    "id": "c2", "type": "commodity",
    "attributes": {"goods_nomenclature_item_id": "0201100010", "description": "Of young animals", "number_indents": 3, "declarable": true, "leaf": true},
    "relationships": {
      "footnotes": {"data": [{"id": "TN701", "type": "footnote"}]},
      "import_measures": {"data": [
        {"id": "m103", "type": "measure"}, {"id": "m142", "type": "measure"},
        {"id": "q1", "type": "measure"}, {"id": "ad1", "type": "measure"}, {"id": "vat", "type": "measure"}
      ]},
      "export_measures": {"data": [{"id": "pr1", "type": "measure"}]}
    }
  },
  "included": [
    {"id": "m103", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "103", "type": "measure_type"}},
      "duty_expression": {"data": {"id": "m103-duty", "type": "duty_expression"}},
      "geographical_area": {"data": {"id": "1011", "type": "geographical_area"}},
      "order_number": {"data": null}
    }},
    {"id": "m103-duty", "type": "duty_expression", "attributes": {"base": "12.80 % + 176.80 EUR / 100 kg"}},
    {"id": "m142", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "142", "type": "measure_type"}},
      "duty_expression": {"data": {"id": "m142-duty", "type": "duty_expression"}},
      "geographical_area": {"data": {"id": "CH", "type": "geographical_area"}},
      "footnotes": {"data": [{"id": "CD437", "type": "footnote"}]}
    }},
    {"id": "m142-duty", "type": "duty_expression", "attributes": {"base": "0.00 %"}},
    {"id": "q1", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "143", "type": "measure_type"}},
      "duty_expression": {"data": {"id": "q-duty", "type": "duty_expression"}},
      "geographical_area": {"data": {"id": "1011", "type": "geographical_area"}},
      "order_number": {"data": {"id": "020001", "type": "order_number"}},
      "footnotes": {"data": [{"id": "CD437", "type": "footnote"}]}
    }},
    {"id": "ad1", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "552", "type": "measure_type"}},
      "duty_expression": {"data": {"id": "ad-duty", "type": "duty_expression"}},
      "geographical_area": {"data": {"id": "CN", "type": "geographical_area"}},
      "additional_code": {"data": {"id": "C999", "type": "additional_code"}}
    }},
    {"id": "vat", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "VTZ", "type": "measure_type"}}
    }},
    {"id": "pr1", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "278", "type": "measure_type"}},
      "measure_conditions": {"data": [{"id": "mc1", "type": "measure_condition"}, {"id": "mc2", "type": "measure_condition"}]}
    }},
    {"id": "mc1", "type": "measure_condition", "attributes": {"document_code": "C625", "requirement": "Export licence <b>required</b>"}},
    {"id": "mc2", "type": "measure_condition", "attributes": {"document_code": "L001", "requirement": null}},` + sharedIncluded + `
  ]
}`

// Other cuts with bone in: not declarable, but with a duty attached.
const commodity4Body = `{
  "data": {
    "id": "c4", "type": "commodity",
    "attributes": {"goods_nomenclature_item_id": "0201200000", "description": "Other cuts with bone in", "number_indents": 1, "declarable": false, "leaf": true},
    "relationships": {
      "footnotes": {"data": [{"id": "TN701", "type": "footnote"}]},
      "import_measures": {"data": [{"id": "m103", "type": "measure"}]}
    }
  },
  "included": [
    {"id": "m103", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "103", "type": "measure_type"}},
      "duty_expression": {"data": {"id": "m103-duty", "type": "duty_expression"}}
    }},
    {"id": "m103-duty", "type": "duty_expression", "attributes": {"base": "12.80 %"}},` + sharedIncluded + `
  ]
}`

// Boneless: a second commodity on quota 020001 with the same anti-dumping
// duties as 0201100010.
const commodity5Body = `{
  "data": {
    "id": "c5", "type": "commodity",
    "attributes": {"goods_nomenclature_item_id": "0201300000", "description": "Boneless", "number_indents": 1, "declarable": true, "leaf": true},
    "relationships": {
      "footnotes": {"data": [{"id": "TN701", "type": "footnote"}]},
      "import_measures": {"data": [{"id": "q2", "type": "measure"}, {"id": "ad2", "type": "measure"}]}
    }
  },
  "included": [
    {"id": "q2", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "143", "type": "measure_type"}},
      "duty_expression": {"data": {"id": "q-duty", "type": "duty_expression"}},
      "geographical_area": {"data": {"id": "1011", "type": "geographical_area"}},
      "order_number": {"data": {"id": "020001", "type": "order_number"}}
    }},
    {"id": "ad2", "type": "measure", "relationships": {
      "measure_type": {"data": {"id": "552", "type": "measure_type"}},
      "duty_expression": {"data": {"id": "ad-duty", "type": "duty_expression"}},
      "geographical_area": {"data": {"id": "CN", "type": "geographical_area"}},
      "additional_code": {"data": {"id": "C999", "type": "additional_code"}}
    }},` + sharedIncluded + `
  ]
}`

// fakeService serves fixture documents by resource path. Unknown paths
// are not found.
type fakeService struct {
	docs  map[string]string
	rate  *tariff.ExchangeRate
	calls []string
}

func newChapter01Service() *fakeService {
	return &fakeService{docs: map[string]string{
		tariff.ChapterPath("01"):   chapter01Body,
		tariff.SectionPath("1"):    sectionBody,
		tariff.HeadingPath("0101"): heading0101Body,
		tariff.HeadingPath("0102"): heading0102Body,
	}}
}

func newChapter02Service() *fakeService {
	return &fakeService{docs: map[string]string{
		tariff.ChapterPath("02"):           chapter02Body,
		tariff.SectionPath("1"):            sectionBody,
		tariff.HeadingPath("0201"):         heading0201Body,
		tariff.HeadingPath("0202"):         heading0202Body,
		tariff.CommodityPath("0201100010"): commodity2Body,
		tariff.CommodityPath("0201200000"): commodity4Body,
		tariff.CommodityPath("0201300000"): commodity5Body,
	}}
}

func (f *fakeService) graph(path string) (*tariff.Graph, error) {
	f.calls = append(f.calls, path)
	body, ok := f.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tariff.ErrNotFound, path)
	}
	doc, err := jsonapi.Parse([]byte(body))
	if err != nil {
		return nil, err
	}
	return tariff.NewGraph(doc)
}

func (f *fakeService) Chapter(_ context.Context, code string) (*tariff.Graph, error) {
	return f.graph(tariff.ChapterPath(code))
}

func (f *fakeService) Section(_ context.Context, id string) (*tariff.Graph, error) {
	return f.graph(tariff.SectionPath(id))
}

func (f *fakeService) Heading(_ context.Context, code string) (*tariff.Graph, error) {
	return f.graph(tariff.HeadingPath(code))
}

func (f *fakeService) Commodity(_ context.Context, code string) (*tariff.Graph, error) {
	return f.graph(tariff.CommodityPath(code))
}

func (f *fakeService) LatestRate(_ context.Context, currency string) (*tariff.ExchangeRate, error) {
	f.calls = append(f.calls, "rates/"+currency)
	if f.rate == nil {
		return nil, fmt.Errorf("%w for %s", tariff.ErrNoRate, currency)
	}
	return f.rate, nil
}

var testNow = time.Date(2020, time.January, 2, 10, 0, 0, 0, time.UTC)

func testOptions(chapter string) Options {
	return Options{
		ChapterID:    chapter,
		Currency:     "GBP",
		ExchangeRate: 0.9,
		Now:          testNow,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func compile02(t *testing.T) *Result {
	t.Helper()
	res, err := Compile(context.Background(), newChapter02Service(), testOptions("02"))
	require.NoError(t, err)
	return res
}

// rowsFor returns the commodity-table row whose code and suffix columns
// show itemID. Siblings share the 8-digit code, so both must match.
func rowsFor(t *testing.T, res *Result, itemID string) layout.Row {
	t.Helper()
	for _, row := range res.Commodities.Rows {
		if len(row.Cells) > 2 &&
			row.Cells[1].Text == commodityCode(itemID) &&
			row.Cells[2].Text == commoditySuffix(itemID) {
			return row
		}
	}
	t.Fatalf("no row for %s", itemID)
	return layout.Row{}
}

func rowByDescription(t *testing.T, res *Result, prefix string) layout.Row {
	t.Helper()
	for _, row := range res.Commodities.Rows {
		if len(row.Cells) > 0 && strings.HasPrefix(row.Cells[0].Text, prefix) {
			return row
		}
	}
	t.Fatalf("no row starting %q", prefix)
	return layout.Row{}
}

func TestCompile_Stages(t *testing.T) {
	t.Run("first chapter of section", func(t *testing.T) {
		res, err := Compile(context.Background(), newChapter01Service(), testOptions("01"))
		require.NoError(t, err)
		want := []Stage{
			StageInit, StageSectionIntro, StageChapterNotes, StageCommodityTable,
			StageFootnotes, StageQuotas, StageProhibitions, StageAntiDumping, StageDone,
		}
		if diff := cmp.Diff(want, res.Stages); diff != "" {
			t.Errorf("stages mismatch (-want +got):\n%s", diff)
		}
		assert.NotEmpty(t, res.BuildID)
	})

	t.Run("later chapter skips the section intro", func(t *testing.T) {
		res := compile02(t)
		assert.NotContains(t, res.Stages, StageSectionIntro)
		assert.Equal(t, StageDone, res.Stages[len(res.Stages)-1])
	})
}

func TestCompile_Chapter01HeadingsOnly(t *testing.T) {
	res, err := Compile(context.Background(), newChapter01Service(), testOptions("01"))
	require.NoError(t, err)

	// Two headings, each a code row and a title row, sorted by code.
	require.Len(t, res.Commodities.Rows, 4)
	assert.Equal(t, "01 01", res.Commodities.Rows[0].Cells[0].Text)
	assert.Equal(t, "LIVE HORSES, ASSES, MULES AND HINNIES", res.Commodities.Rows[1].Cells[0].Text)
	assert.Equal(t, "01 02", res.Commodities.Rows[2].Cells[0].Text)
	for _, row := range res.Commodities.Rows {
		for _, c := range row.Cells[1:] {
			assert.Empty(t, c.Text)
		}
	}

	assert.Zero(t, res.Footnotes.Len())
	assert.Zero(t, res.Quotas.Len())
	assert.Zero(t, res.Prohibitions.Len())
	assert.Zero(t, res.AntiDumping.Len())
	for _, b := range res.Document.Blocks {
		if p, ok := b.(*layout.Paragraph); ok {
			assert.NotContains(t, p.Text, "Additional Information")
		}
	}
}

func TestExport_Chapter01(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01.pdf")
	res, err := Export(context.Background(), newChapter01Service(), testOptions("01"), path, render.DefaultOptions())
	require.NoError(t, err)

	// The section intro page, then the chapter on a single page.
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, path, res.Path)

	info, err := render.Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Pages)
}

func TestExport_Chapter02Appendices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "02.pdf")
	res, err := Export(context.Background(), newChapter02Service(), testOptions("02"), path, render.DefaultOptions())
	require.NoError(t, err)

	// Chapter page, then one page each for quotas, P&R and anti-dumping.
	assert.Equal(t, 4, res.Pages)

	// Footers read the heading being compiled when the page closes, which
	// is the chapter's last heading for every page.
	for page := 1; page <= res.Pages; page++ {
		assert.Equal(t, []string{"01", "02"}, res.PageHeadings(page), "page %d", page)
	}
}

func TestCompile_CommodityRow(t *testing.T) {
	res := compile02(t)
	row := rowsFor(t, res, "0201100010")
	require.Len(t, row.Cells, len(CommodityRatios))

	desc := row.Cells[0]
	assert.Equal(t, "Of young animals (1)", desc.Text)
	assert.True(t, desc.Italic)
	assert.False(t, desc.Bold)
	require.NotNil(t, desc.Hang)
	assert.Equal(t, "-"+nbsp+"-"+nbsp, desc.Hang.Prefix)
	assert.InDelta(t, 15.3, desc.Hang.Width, 1e-9)

	assert.Equal(t, "10", row.Cells[2].Text)
	assert.Equal(t, "TQ\nCAP Lic (2)", row.Cells[3].Text)
	assert.Equal(t, "Kg", row.Cells[4].Text)
	assert.Equal(t, "12.8 % + 159.1 £/100 kg", row.Cells[5].Text)
	assert.Equal(t, "CH-Free", row.Cells[6].Text)
	assert.Equal(t, "Z", row.Cells[7].Text)
}

func TestCompile_DeclarableHeading(t *testing.T) {
	res := compile02(t)
	row := rowByDescription(t, res, "MEAT OF BOVINE ANIMALS, FROZEN")
	assert.True(t, row.Cells[0].Bold)
	assert.Equal(t, "15.4 %", row.Cells[5].Text)
	assert.Equal(t, "Kg", row.Cells[4].Text)

	row = rowByDescription(t, res, "MEAT OF BOVINE ANIMALS, FRESH")
	for _, c := range row.Cells[1:] {
		assert.Empty(t, c.Text)
	}
}

func TestCompile_NonDeclarableRowIsBlank(t *testing.T) {
	res := compile02(t)
	row := rowByDescription(t, res, "Other cuts with bone in")
	require.Len(t, row.Cells, len(CommodityRatios))
	assert.True(t, row.Cells[0].Bold)
	for i, c := range row.Cells[1:] {
		assert.Empty(t, c.Text, "column %d", i+1)
	}
	// Not declarable, so its footnote is not referenced.
	assert.Equal(t, "Other cuts with bone in", row.Cells[0].Text)
}

func TestCompile_MissingCommodityIsSubhead(t *testing.T) {
	res := compile02(t)
	row := rowsFor(t, res, "0201100020")

	assert.Equal(t, "Of other animals", row.Cells[0].Text)
	assert.Equal(t, "20", row.Cells[2].Text)
	for i, c := range row.Cells[3:] {
		assert.Empty(t, c.Text, "column %d", i+3)
	}

	for _, rec := range res.Quotas.Records() {
		assert.NotContains(t, rec.Commodities, "0201100020")
	}
	for _, rec := range res.Prohibitions.Records() {
		assert.NotContains(t, rec.Commodities, "0201100020")
	}
	_, ok := res.AntiDumping.Description("0201100020", "CN", "C999")
	assert.False(t, ok)
}

func TestCompile_IndentedQuotaCommodity(t *testing.T) {
	res := compile02(t)

	var found int
	for _, rec := range res.Quotas.Records() {
		for _, c := range rec.Commodities {
			if c == "0201100010" {
				found++
			}
		}
	}
	assert.Equal(t, 1, found, "listed in exactly one quota record")

	rec, ok := res.Quotas.Get("020001")
	require.True(t, ok)
	// One commodity per distinct quota measure.
	assert.Equal(t, []string{"0201100010", "0201300000"}, rec.Commodities)
	assert.Len(t, rec.Commodities, len(rec.MeasureIDs))

	rows := res.Quotas.Rows(RateFormatter{Currency: GBP, Rate: 0.9})
	require.Len(t, rows, 3)
	got := rows[2]
	assert.Equal(t, groupedCode("0201100010")+"\n"+groupedCode("0201300000"), got.Cells[0].Text)
	assert.Equal(t, "Of young animals", got.Cells[1].Text)
	assert.Equal(t, "1011", got.Cells[2].Text)
	assert.Equal(t, "020001", got.Cells[3].Text)
	assert.Equal(t, "Free + 11.1 £/100 kg", got.Cells[4].Text)
	assert.Equal(t, "1.1-31.12", got.Cells[5].Text)
	assert.Equal(t, "kg", got.Cells[6].Text)
	assert.Equal(t, "Certificate of origin required", got.Cells[7].Text)
}

func TestCompile_Footnotes(t *testing.T) {
	res := compile02(t)

	entries := res.Footnotes.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "TN701", entries[0].Code)
	assert.Equal(t, 1, entries[0].Index)
	assert.Equal(t, "TN701-According to Regulation 1234", entries[0].Text)
	assert.Equal(t, []string{"c2", "c5"}, entries[0].Refs)
	assert.Equal(t, CAPLicenceCode, entries[1].Code)
	assert.Equal(t, 2, entries[1].Index)

	_, ok := res.Footnotes.Index("CD437")
	assert.False(t, ok, "documentary evidence footnotes are not numbered")
}

func TestCompile_Appendices(t *testing.T) {
	res := compile02(t)

	require.Equal(t, 1, res.Prohibitions.Len())
	pr := res.Prohibitions.Records()[0]
	assert.Equal(t, "Export control (278)", pr.Description)
	assert.Equal(t, "Export", pr.Direction)
	assert.Equal(t, []string{"C625", "L001"}, pr.DocumentCodes)
	assert.Equal(t, []string{"Export licence required (C625)"}, pr.Requirements)

	clusters := res.AntiDumping.Clusters()
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"0201100010", "0201300000"}, clusters[0].Commodities)

	var titles []string
	for _, b := range res.Document.Blocks {
		if p, ok := b.(*layout.Paragraph); ok && p.Bold {
			titles = append(titles, p.Text)
		}
	}
	assert.Equal(t, []string{"Tariff Quotas/Ceilings", "Prohibitions and Restrictions", "Anti-dumping Duties"}, titles)
}

func TestCompile_Footer(t *testing.T) {
	res := compile02(t)
	require.NotNil(t, res.Document.Footer)

	f := res.Document.Footer(1)
	assert.Equal(t, "2 January 2020", f.Left.Text)
	assert.Equal(t, "02"+nbsp+nbsp+"1", f.Center.Text)
	assert.Equal(t, "Customs Tariff Vol 2 Sect I"+nbsp+nbsp+nbsp+"02 01-02 02", f.Right.Text)
}

func TestCompile_Errors(t *testing.T) {
	t.Run("unsupported currency", func(t *testing.T) {
		svc := newChapter02Service()
		opts := testOptions("02")
		opts.Currency = "USD"
		_, err := Compile(context.Background(), svc, opts)
		require.ErrorIs(t, err, ErrUnsupportedCurrency)
		assert.Contains(t, err.Error(), "EUR, GBP")
		assert.Empty(t, svc.calls, "nothing is fetched")
	})

	t.Run("no published rate", func(t *testing.T) {
		opts := testOptions("02")
		opts.ExchangeRate = 0
		_, err := Compile(context.Background(), newChapter02Service(), opts)
		require.ErrorIs(t, err, ErrInvalidExchangeRate)
		assert.ErrorIs(t, err, tariff.ErrNoRate)
	})

	t.Run("negative rate", func(t *testing.T) {
		opts := testOptions("02")
		opts.ExchangeRate = -1
		_, err := Compile(context.Background(), newChapter02Service(), opts)
		require.ErrorIs(t, err, ErrInvalidExchangeRate)
	})

	t.Run("unknown chapter", func(t *testing.T) {
		_, err := Compile(context.Background(), newChapter02Service(), testOptions("99"))
		require.ErrorIs(t, err, tariff.ErrNotFound)
	})

	t.Run("heading fetch fails", func(t *testing.T) {
		svc := newChapter02Service()
		delete(svc.docs, tariff.HeadingPath("0202"))
		_, err := Compile(context.Background(), svc, testOptions("02"))
		require.ErrorIs(t, err, tariff.ErrNotFound)
		assert.Contains(t, err.Error(), "heading 0202")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Compile(ctx, newChapter02Service(), testOptions("02"))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCompile_PublishedRate(t *testing.T) {
	svc := newChapter02Service()
	svc.rate = &tariff.ExchangeRate{ChildCurrency: "GBP", ExchangeRate: 1.18}
	opts := testOptions("02")
	opts.ExchangeRate = 0

	res, err := Compile(context.Background(), svc, opts)
	require.NoError(t, err)
	assert.Equal(t, 1.18, res.Rate)
	assert.Equal(t, GBP, res.Currency)
	assert.Contains(t, svc.calls, "rates/GBP")
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "01.pdf", DefaultPath("01"))
}
