// Package render draws a layout.Document to PDF with fpdf.
package render

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/tradetariff/uktt/internal/layout"
)

// Margins are page margins in points.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Options control page geometry and typography.
type Options struct {
	PageWidth    float64
	PageHeight   float64
	Margins      Margins
	FooterHeight float64
	FontFamily   string
	BaseSize     float64
	LineSpacing  float64 // line height as a multiple of font size
	CellPadding  float64
	LineWidth    float64
	Logger       *slog.Logger
}

// DefaultOptions is A4 landscape in points with the tariff's margins.
func DefaultOptions() Options {
	return Options{
		PageWidth:    841.89,
		PageHeight:   595.28,
		Margins:      Margins{Top: 50, Right: 50, Bottom: 20, Left: 50},
		FooterHeight: 30,
		FontFamily:   "Helvetica",
		BaseSize:     8,
		LineSpacing:  1.2,
		CellPadding:  2,
		LineWidth:    0.25,
	}
}

// PrintableWidth is the width between the side margins.
func (o Options) PrintableWidth() float64 {
	return o.PageWidth - o.Margins.Left - o.Margins.Right
}

// contentBottom is the lowest y content may reach above the footer band.
func (o Options) contentBottom() float64 {
	return o.PageHeight - o.Margins.Bottom - o.FooterHeight
}

// Renderer draws one document. It is not reusable.
type Renderer struct {
	pdf    *fpdf.Fpdf
	opts   Options
	tr     func(string) string
	logger *slog.Logger

	y     float64
	dirty bool
}

// New creates a renderer with opts; zero fields take their defaults.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.PageWidth <= 0 || opts.PageHeight <= 0 {
		opts.PageWidth, opts.PageHeight = def.PageWidth, def.PageHeight
	}
	if opts.Margins == (Margins{}) {
		opts.Margins = def.Margins
	}
	if opts.FooterHeight <= 0 {
		opts.FooterHeight = def.FooterHeight
	}
	if opts.FontFamily == "" {
		opts.FontFamily = def.FontFamily
	}
	if opts.BaseSize <= 0 {
		opts.BaseSize = def.BaseSize
	}
	if opts.LineSpacing <= 0 {
		opts.LineSpacing = def.LineSpacing
	}
	if opts.CellPadding <= 0 {
		opts.CellPadding = def.CellPadding
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = def.LineWidth
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: opts.PageHeight, Ht: opts.PageWidth},
	})
	pdf.SetMargins(opts.Margins.Left, opts.Margins.Top, opts.Margins.Right)
	pdf.SetAutoPageBreak(false, opts.Margins.Bottom)
	pdf.SetCellMargin(1)
	pdf.SetLineWidth(opts.LineWidth)

	return &Renderer{
		pdf:    pdf,
		opts:   opts,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		logger: opts.Logger,
	}
}

// Render draws doc and writes the PDF to w. It returns the page count.
func Render(doc *layout.Document, w io.Writer, opts Options) (int, error) {
	r := New(opts)
	if err := r.Draw(doc); err != nil {
		return 0, err
	}
	pages := r.pdf.PageCount()
	if err := r.pdf.Output(w); err != nil {
		return 0, fmt.Errorf("failed to write PDF: %w", err)
	}
	return pages, nil
}

// WriteFile renders doc to the file at path.
func WriteFile(doc *layout.Document, path string, opts Options) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	pages, err := Render(doc, f, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return pages, nil
}

// Draw lays out every block of doc.
func (r *Renderer) Draw(doc *layout.Document) error {
	if doc.Title != "" {
		r.pdf.SetTitle(doc.Title, true)
	}
	if doc.Footer != nil {
		r.pdf.SetFooterFunc(func() {
			r.drawFooter(doc.Footer(r.pdf.PageNo()))
		})
	}
	r.newPage()

	for _, b := range doc.Blocks {
		switch b := b.(type) {
		case *layout.Paragraph:
			r.drawParagraph(b, r.opts.Margins.Left, r.opts.PrintableWidth())
		case *layout.Rule:
			r.drawRule(b)
		case *layout.Spacer:
			r.space(b.Height)
		case *layout.PageBreak:
			if r.dirty {
				r.newPage()
			}
		case *layout.Columns:
			r.drawColumns(b)
		case *layout.Table:
			r.drawTable(b)
		default:
			return fmt.Errorf("unsupported block %T", b)
		}
		if r.pdf.Err() {
			return fmt.Errorf("failed to render document: %w", r.pdf.Error())
		}
	}

	r.logger.Debug("document laid out", "blocks", len(doc.Blocks), "pages", r.pdf.PageCount())
	return nil
}

func (r *Renderer) newPage() {
	r.pdf.AddPage()
	r.y = r.opts.Margins.Top
	r.dirty = false
}

func (r *Renderer) space(h float64) {
	r.y += h
	if r.y > r.opts.contentBottom() {
		r.newPage()
	}
}

func (r *Renderer) setFont(bold, italic bool, size float64) {
	style := ""
	if bold {
		style += "B"
	}
	if italic {
		style += "I"
	}
	if size <= 0 {
		size = r.opts.BaseSize
	}
	r.pdf.SetFont(r.opts.FontFamily, style, size)
}

func (r *Renderer) lineHeight(size float64) float64 {
	if size <= 0 {
		size = r.opts.BaseSize
	}
	return size * r.opts.LineSpacing
}

// text converts s to the core fonts' cp1252 encoding. Subscript digits
// become marker bytes that drawLine sets as real subscripts.
func (r *Renderer) text(s string) string {
	return r.tr(markSubscripts(s))
}

// plain converts s with subscripts folded to ordinary digits.
func (r *Renderer) plain(s string) string {
	return r.tr(foldSubscripts(s))
}

// split wraps s into lines no wider than w in the current font.
func (r *Renderer) split(s string, w float64) []string {
	if s == "" {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(r.text(s), "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}
		for _, l := range r.pdf.SplitLines([]byte(para), w) {
			lines = append(lines, string(l))
		}
	}
	return lines
}

func alignStr(a layout.Align) string {
	switch a {
	case layout.AlignCenter:
		return "C"
	case layout.AlignRight:
		return "R"
	default:
		return "L"
	}
}

func (r *Renderer) drawParagraph(p *layout.Paragraph, x, w float64) {
	if r.dirty {
		r.y += p.SpaceBefore
	}
	r.setFont(p.Bold, p.Italic, p.Size)
	lh := r.lineHeight(p.Size)
	for _, line := range r.split(p.Text, w-p.Indent) {
		if r.y+lh > r.opts.contentBottom() {
			r.newPage()
		}
		r.drawLine(x+p.Indent, r.y, w-p.Indent, lh, line, alignStr(p.Align))
		r.y += lh
		r.dirty = true
	}
	r.y += p.SpaceAfter
}

func (r *Renderer) drawRule(b *layout.Rule) {
	r.y += b.SpaceBefore
	if r.y > r.opts.contentBottom() {
		r.newPage()
	}
	r.pdf.SetLineWidth(r.opts.LineWidth)
	r.pdf.Line(r.opts.Margins.Left, r.y, r.opts.PageWidth-r.opts.Margins.Right, r.y)
	r.y += b.SpaceAfter
	r.dirty = true
}

// drawColumns flows paragraphs down each column in turn.
func (r *Renderer) drawColumns(c *layout.Columns) {
	n := c.Count
	if n < 1 {
		n = 1
	}
	colW := (r.opts.PrintableWidth() - c.Gap*float64(n-1)) / float64(n)
	top := r.y
	col := 0
	atTop := true

	bottom := top
	next := func() {
		col++
		if col == n {
			r.newPage()
			top, bottom = r.y, r.y
			col = 0
		}
		r.y = top
		atTop = true
	}

	for _, p := range c.Paragraphs {
		if !atTop {
			r.y += p.SpaceBefore
		}
		r.setFont(p.Bold, p.Italic, p.Size)
		lh := r.lineHeight(p.Size)
		x := r.opts.Margins.Left + float64(col)*(colW+c.Gap)
		for _, line := range r.split(p.Text, colW-p.Indent) {
			if r.y+lh > r.opts.contentBottom() {
				next()
				x = r.opts.Margins.Left + float64(col)*(colW+c.Gap)
			}
			r.drawLine(x+p.Indent, r.y, colW-p.Indent, lh, line, alignStr(p.Align))
			r.y += lh
			atTop = false
			r.dirty = true
			if r.y > bottom {
				bottom = r.y
			}
		}
		r.y += p.SpaceAfter
	}
	r.y = bottom
}

func (r *Renderer) drawFooter(f layout.Footer) {
	w := r.opts.PrintableWidth() / 3
	top := r.opts.PageHeight - r.opts.Margins.Bottom - r.opts.FooterHeight
	cells := []struct {
		cell  layout.Cell
		align layout.Align
	}{
		{f.Left, layout.AlignLeft},
		{f.Center, layout.AlignCenter},
		{f.Right, layout.AlignRight},
	}
	for i, c := range cells {
		r.setFont(c.cell.Bold, c.cell.Italic, c.cell.Size)
		lh := r.lineHeight(c.cell.Size)
		r.pdf.SetXY(r.opts.Margins.Left+float64(i)*w, top+r.opts.FooterHeight-lh)
		r.pdf.CellFormat(w, lh, r.plain(c.cell.Text), "", 0, alignStr(c.align), false, 0, "")
	}
}

const (
	// subscriptMark is the marker byte for subscript digit 0; digits 1-9
	// follow it. The range is unprintable in cp1252.
	subscriptMark = 0x10

	subscriptScale = 0.7
	subscriptDrop  = 0.15
)

// markSubscripts maps Unicode subscript digits to marker bytes.
func markSubscripts(s string) string {
	if !strings.ContainsAny(s, "₀₁₂₃₄₅₆₇₈₉") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r >= '₀' && r <= '₉' {
			return subscriptMark + (r - '₀')
		}
		return r
	}, s)
}

func isSubscript(b byte) bool {
	return b >= subscriptMark && b <= subscriptMark+9
}

func hasSubscript(line string) bool {
	for i := 0; i < len(line); i++ {
		if isSubscript(line[i]) {
			return true
		}
	}
	return false
}

type textRun struct {
	text string
	sub  bool
}

// textRuns splits a marked line into runs of ordinary text and subscript
// digits.
func textRuns(line string) []textRun {
	var runs []textRun
	start := 0
	for i := 1; i <= len(line); i++ {
		if i < len(line) && isSubscript(line[i]) == isSubscript(line[start]) {
			continue
		}
		run := textRun{text: line[start:i], sub: isSubscript(line[start])}
		if run.sub {
			b := []byte(run.text)
			for j := range b {
				b[j] = b[j] - subscriptMark + '0'
			}
			run.text = string(b)
		}
		runs = append(runs, run)
		start = i
	}
	return runs
}

// drawLine writes one wrapped line into a box of width w at (x, y).
// Subscript runs are set smaller and lowered.
func (r *Renderer) drawLine(x, y, w, h float64, line, align string) {
	if !hasSubscript(line) {
		r.pdf.SetXY(x, y)
		r.pdf.CellFormat(w, h, line, "", 0, align, false, 0, "")
		return
	}

	size, _ := r.pdf.GetFontSize()
	subSize := size * subscriptScale
	runs := textRuns(line)

	width := 0.0
	for _, run := range runs {
		if run.sub {
			r.pdf.SetFontSize(subSize)
			width += r.pdf.GetStringWidth(run.text)
			r.pdf.SetFontSize(size)
			continue
		}
		width += r.pdf.GetStringWidth(run.text)
	}

	// Write insets each run by the cell margin, as CellFormat does.
	margin := r.pdf.GetCellMargin()
	start := x
	switch align {
	case "C":
		start = x + (w-width)/2 - margin
	case "R":
		start = x + w - width - 2*margin
	}

	r.pdf.SetXY(start, y)
	for _, run := range runs {
		if run.sub {
			r.pdf.SubWrite(h, run.text, subSize, -size*subscriptDrop, 0, "")
			continue
		}
		r.pdf.Write(h, run.text)
	}
}

// foldSubscripts maps Unicode subscript digits to ASCII digits, which the
// core fonts can encode.
func foldSubscripts(s string) string {
	if !strings.ContainsAny(s, "₀₁₂₃₄₅₆₇₈₉") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r >= '₀' && r <= '₉' {
			return '0' + (r - '₀')
		}
		return r
	}, s)
}
