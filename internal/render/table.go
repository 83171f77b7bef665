package render

import (
	"github.com/tradetariff/uktt/internal/layout"
)

// tableState carries a table's resolved geometry while it is drawn.
type tableState struct {
	t       *layout.Table
	widths  []float64
	padding float64
	size    float64
	// pageTop is where the table's rows start on the current page.
	pageTop float64
}

// cellBox is one laid-out cell: its span geometry and wrapped lines.
type cellBox struct {
	cell   layout.Cell
	x, w   float64
	prefix string
	lines  []string
	size   float64
}

func (r *Renderer) drawTable(t *layout.Table) {
	if len(t.Ratios) == 0 {
		return
	}
	ts := &tableState{
		t:       t,
		widths:  columnWidths(t.Ratios, r.opts.PrintableWidth()),
		padding: t.Padding,
		size:    t.Size,
	}
	if ts.padding <= 0 {
		ts.padding = r.opts.CellPadding
	}
	if ts.size <= 0 {
		ts.size = r.opts.BaseSize
	}

	r.startTablePage(ts)
	for _, row := range t.Rows {
		boxes, h := r.layoutRow(ts, row)
		if r.y+h > r.opts.contentBottom() && r.y > ts.pageTop {
			r.closeTablePage(ts)
			r.newPage()
			r.startTablePage(ts)
		}
		r.drawRow(ts, boxes, h)
	}
	r.closeTablePage(ts)
}

// columnWidths scales ratios to fill width.
func columnWidths(ratios []float64, width float64) []float64 {
	var sum float64
	for _, v := range ratios {
		sum += v
	}
	widths := make([]float64, len(ratios))
	if sum <= 0 {
		return widths
	}
	for i, v := range ratios {
		widths[i] = v * width / sum
	}
	return widths
}

// startTablePage draws the header rows at the top of the table on a page.
func (r *Renderer) startTablePage(ts *tableState) {
	if len(ts.t.Header) == 0 {
		ts.pageTop = r.y
		return
	}
	var total float64
	type laid struct {
		boxes []cellBox
		h     float64
	}
	rows := make([]laid, 0, len(ts.t.Header))
	for _, row := range ts.t.Header {
		boxes, h := r.layoutRow(ts, row)
		rows = append(rows, laid{boxes, h})
		total += h
	}
	if r.y+total > r.opts.contentBottom() && r.dirty {
		r.newPage()
	}

	left := r.opts.Margins.Left
	right := left + r.opts.PrintableWidth()
	top := r.y
	for _, l := range rows {
		r.drawCells(ts, l.boxes)
		if ts.t.Border == layout.BorderColumns {
			r.verticals(l.boxes, r.y, l.h)
		}
		r.y += l.h
	}
	r.pdf.SetLineWidth(r.opts.LineWidth)
	switch ts.t.Border {
	case layout.BorderColumns:
		r.pdf.Line(left, top, right, top)
		r.pdf.Line(left, r.y, right, r.y)
	case layout.BorderRows:
		r.pdf.SetLineWidth(1)
		r.pdf.Line(left, top, right, top)
		r.pdf.SetLineWidth(r.opts.LineWidth)
		r.pdf.Line(left, r.y, right, r.y)
	}
	ts.pageTop = r.y
	r.dirty = true
}

// closeTablePage closes the table's frame on the current page.
func (r *Renderer) closeTablePage(ts *tableState) {
	if ts.t.Border == layout.BorderColumns && r.y > ts.pageTop {
		r.pdf.SetLineWidth(r.opts.LineWidth)
		r.pdf.Line(r.opts.Margins.Left, r.y, r.opts.Margins.Left+r.opts.PrintableWidth(), r.y)
	}
}

// layoutRow wraps every cell of row and returns the row height.
func (r *Renderer) layoutRow(ts *tableState, row layout.Row) ([]cellBox, float64) {
	boxes := make([]cellBox, 0, len(row.Cells))
	x := r.opts.Margins.Left
	col := 0
	maxLines := 0.0
	for _, c := range row.Cells {
		if col >= len(ts.widths) {
			break
		}
		w := 0.0
		for j := 0; j < c.Span() && col+j < len(ts.widths); j++ {
			w += ts.widths[col+j]
		}
		size := c.Size
		if size <= 0 {
			size = ts.size
		}

		b := cellBox{cell: c, x: x, w: w, size: size}
		r.setFont(c.Bold, c.Italic, size)
		textW := w
		if c.Hang != nil {
			b.prefix = r.plain(c.Hang.Prefix)
			textW -= c.Hang.Width
		}
		if textW < 1 {
			textW = 1
		}
		b.lines = r.split(c.Text, textW)

		h := float64(len(b.lines)) * r.lineHeight(size)
		if h > maxLines {
			maxLines = h
		}
		boxes = append(boxes, b)
		x += w
		col += c.Span()
	}
	if maxLines == 0 {
		maxLines = r.lineHeight(ts.size)
	}
	return boxes, maxLines + 2*ts.padding
}

func (r *Renderer) drawCells(ts *tableState, boxes []cellBox) {
	for _, b := range boxes {
		r.setFont(b.cell.Bold, b.cell.Italic, b.size)
		lh := r.lineHeight(b.size)
		y := r.y + ts.padding
		tx, tw := b.x, b.w
		if b.cell.Hang != nil {
			if b.prefix != "" {
				r.pdf.SetXY(b.x, y)
				r.pdf.CellFormat(b.cell.Hang.Width, lh, b.prefix, "", 0, "L", false, 0, "")
			}
			tx += b.cell.Hang.Width
			tw -= b.cell.Hang.Width
		}
		for _, line := range b.lines {
			r.drawLine(tx, y, tw, lh, line, alignStr(b.cell.Align))
			y += lh
		}
	}
}

func (r *Renderer) drawRow(ts *tableState, boxes []cellBox, h float64) {
	r.drawCells(ts, boxes)

	left := r.opts.Margins.Left
	right := left + r.opts.PrintableWidth()
	r.pdf.SetLineWidth(r.opts.LineWidth)
	switch ts.t.Border {
	case layout.BorderColumns:
		r.verticals(boxes, r.y, h)
	case layout.BorderRows:
		r.pdf.Line(left, r.y, right, r.y)
		r.pdf.Line(left, r.y+h, right, r.y+h)
	}
	r.y += h
	r.dirty = true
}

// verticals draws the left edge of every cell in a row of height h at y,
// and the table's right edge. Spanned cells have no inner separators.
func (r *Renderer) verticals(boxes []cellBox, y, h float64) {
	r.pdf.SetLineWidth(r.opts.LineWidth)
	for _, b := range boxes {
		r.pdf.Line(b.x, y, b.x, y+h)
	}
	end := r.opts.Margins.Left + r.opts.PrintableWidth()
	r.pdf.Line(end, y, end, y+h)
}
