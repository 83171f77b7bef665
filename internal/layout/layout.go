// Package layout describes a paginated document as renderer-independent
// instructions: paragraphs, rules, flowing column regions and ratio-width
// tables, plus a per-page footer callback.
package layout

// Align is horizontal text alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Block is one top-level element of a document.
type Block interface {
	block()
}

// Document is an ordered list of blocks. Footer, when set, is invoked once
// per rendered page after the page's content has been laid out.
type Document struct {
	Title  string
	Blocks []Block
	Footer func(page int) Footer
}

// Add appends blocks to the document.
func (d *Document) Add(blocks ...Block) {
	d.Blocks = append(d.Blocks, blocks...)
}

// Footer is the three-part running footer of one page.
type Footer struct {
	Left, Center, Right Cell
}

// Paragraph is a run of wrapped text.
type Paragraph struct {
	Text        string
	Bold        bool
	Italic      bool
	Size        float64 // 0 uses the renderer's base size
	Align       Align
	Indent      float64
	SpaceBefore float64
	SpaceAfter  float64
}

// Rule is a horizontal line across the printable width.
type Rule struct {
	SpaceBefore float64
	SpaceAfter  float64
}

// Spacer moves the cursor down.
type Spacer struct {
	Height float64
}

// PageBreak starts a new page.
type PageBreak struct{}

// Columns flows paragraphs top to bottom through Count equal columns,
// continuing on a new page when the last column is full.
type Columns struct {
	Count      int
	Gap        float64
	Paragraphs []Paragraph
}

// Border selects how a table's cells are ruled.
type Border int

const (
	// BorderNone draws no lines.
	BorderNone Border = iota
	// BorderColumns draws vertical lines between columns, boxes the header
	// and closes the table (and each page of it) with a bottom line.
	BorderColumns
	// BorderRows draws a line above and below each body row; the header
	// is underlined.
	BorderRows
)

// Table is a fixed-ratio table. Header rows repeat on every page the
// table spans.
type Table struct {
	Ratios  []float64
	Header  []Row
	Rows    []Row
	Border  Border
	Padding float64 // vertical cell padding; 0 uses the renderer default
	Size    float64
}

// Row is one table row.
type Row struct {
	Cells []Cell
}

// Hang lays a cell out as a hanging indent: Prefix sits in a fixed-width
// gutter of Width points and the text wraps beside it.
type Hang struct {
	Prefix string
	Width  float64
}

// Cell is one table cell.
type Cell struct {
	Text    string
	Bold    bool
	Italic  bool
	Size    float64
	Align   Align
	Colspan int
	Hang    *Hang
}

// Span returns the number of columns the cell covers.
func (c Cell) Span() int {
	if c.Colspan < 1 {
		return 1
	}
	return c.Colspan
}

// Texts builds a row of plain cells.
func Texts(texts ...string) Row {
	cells := make([]Cell, len(texts))
	for i, t := range texts {
		cells[i] = Cell{Text: t}
	}
	return Row{Cells: cells}
}

// Empty reports whether every cell of the row is blank.
func (r Row) Empty() bool {
	for _, c := range r.Cells {
		if c.Text != "" || (c.Hang != nil && c.Hang.Prefix != "") {
			return false
		}
	}
	return true
}

func (*Paragraph) block() {}
func (*Rule) block()      {}
func (*Spacer) block()    {}
func (*PageBreak) block() {}
func (*Columns) block()   {}
func (*Table) block()     {}
