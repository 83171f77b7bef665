package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradetariff/uktt/internal/layout"
)

func TestColumnWidths(t *testing.T) {
	w := columnWidths([]float64{1, 3}, 100)
	assert.InDelta(t, 25, w[0], 1e-9)
	assert.InDelta(t, 75, w[1], 1e-9)

	w = columnWidths([]float64{21, 5, 1.75, 5, 4, 5.25, 19, 2}, DefaultOptions().PrintableWidth())
	var sum float64
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 741.89, sum, 1e-6)
}

func TestFoldSubscripts(t *testing.T) {
	assert.Equal(t, "CO2 and H2O", foldSubscripts("CO₂ and H₂O"))
	assert.Equal(t, "plain", foldSubscripts("plain"))
}

func TestTextRuns(t *testing.T) {
	line := markSubscripts("CO₂ and H₂O, C₁₀")
	assert.True(t, hasSubscript(line))
	assert.False(t, hasSubscript(markSubscripts("CO2")))

	want := []textRun{
		{text: "CO"}, {text: "2", sub: true},
		{text: " and H"}, {text: "2", sub: true},
		{text: "O, C"}, {text: "10", sub: true},
	}
	if diff := cmp.Diff(want, textRuns(line), cmp.AllowUnexported(textRun{})); diff != "" {
		t.Errorf("textRuns mismatch (-want +got):\n%s", diff)
	}
}

func TestDrawLine_Subscripts(t *testing.T) {
	for _, align := range []string{"L", "C", "R"} {
		t.Run(align, func(t *testing.T) {
			r := New(DefaultOptions())
			r.newPage()
			r.setFont(false, false, 10)

			r.drawLine(100, 100, 200, 12, r.text("Carbon dioxide (CO₂)"), align)
			require.False(t, r.pdf.Err(), "%v", r.pdf.Error())

			size, _ := r.pdf.GetFontSize()
			assert.Equal(t, 10.0, size, "font size restored after subscript")
			assert.InDelta(t, 100, r.pdf.GetY(), 1e-6, "baseline restored after subscript")
			assert.Greater(t, r.pdf.GetX(), 100.0)
			assert.LessOrEqual(t, r.pdf.GetX(), 300.0)
		})
	}
}

func TestRender_SinglePage(t *testing.T) {
	var pages []int
	doc := &layout.Document{
		Title: "Chapter 01",
		Footer: func(page int) layout.Footer {
			pages = append(pages, page)
			return layout.Footer{
				Left:   layout.Cell{Text: "1 January 2020"},
				Center: layout.Cell{Text: fmt.Sprintf("01  %d", page), Bold: true},
				Right:  layout.Cell{Text: "Customs Tariff Vol 2 Sect I"},
			}
		},
	}
	doc.Add(
		&layout.Paragraph{Text: "Chapter 1\nLive animals", Bold: true, Size: 12},
		&layout.Rule{SpaceBefore: 8, SpaceAfter: 8},
		&layout.Table{
			Ratios: []float64{3, 1},
			Header: []layout.Row{layout.Texts("1", "2")},
			Rows: []layout.Row{
				{Cells: []layout.Cell{{Text: "01 01", Bold: true, Colspan: 2}}},
				{Cells: []layout.Cell{
					{Text: "Pure-bred breeding animals €", Hang: &layout.Hang{Prefix: "- ", Width: 10}},
					{Text: "Free", Align: layout.AlignCenter},
				}},
			},
			Border: layout.BorderColumns,
		},
	)

	var buf bytes.Buffer
	n, err := Render(doc, &buf, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{1}, pages)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRender_TableBreaksAcrossPages(t *testing.T) {
	tbl := &layout.Table{
		Ratios: []float64{1, 1},
		Header: []layout.Row{layout.Texts("Code", "Rate")},
		Border: layout.BorderRows,
	}
	for i := 0; i < 120; i++ {
		tbl.Rows = append(tbl.Rows, layout.Texts(fmt.Sprintf("01012100%02d", i%100), "5 %"))
	}
	doc := &layout.Document{}
	doc.Add(tbl)

	path := filepath.Join(t.TempDir(), "table.pdf")
	n, err := WriteFile(doc, path, DefaultOptions())
	require.NoError(t, err)
	assert.Greater(t, n, 1)

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, n, info.Pages)
	assert.Positive(t, info.Bytes)
}

func TestRender_PageBreaks(t *testing.T) {
	doc := &layout.Document{}
	doc.Add(
		&layout.PageBreak{},
		&layout.Paragraph{Text: "intro"},
		&layout.PageBreak{},
		&layout.PageBreak{},
		&layout.Paragraph{Text: "notes"},
	)
	n, err := Render(doc, &bytes.Buffer{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "breaks on a blank page are ignored")
}

func TestRender_FlowingColumns(t *testing.T) {
	var paras []layout.Paragraph
	for i := 0; i < 40; i++ {
		paras = append(paras, layout.Paragraph{Text: strings.Repeat("note text ", 60), SpaceBefore: 4})
	}
	doc := &layout.Document{}
	doc.Add(&layout.Columns{Count: 3, Gap: 24, Paragraphs: paras})

	n, err := Render(doc, &bytes.Buffer{}, DefaultOptions())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
}

func TestInspect_NotAPDF(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
