package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradetariff/uktt/internal/layout"
	"github.com/tradetariff/uktt/internal/tariff"
)

// ErrChapterNotFound is returned when the chapter or its section cannot be
// loaded.
var ErrChapterNotFound = errors.New("chapter not found")

// Service is the subset of the Trade Tariff API a compilation reads.
// *tariff.Client implements it.
type Service interface {
	Chapter(ctx context.Context, code string) (*tariff.Graph, error)
	Section(ctx context.Context, id string) (*tariff.Graph, error)
	Heading(ctx context.Context, code string) (*tariff.Graph, error)
	Commodity(ctx context.Context, code string) (*tariff.Graph, error)
	LatestRate(ctx context.Context, currency string) (*tariff.ExchangeRate, error)
}

// Stage is one step of a chapter compilation.
type Stage string

// Stage constants, in execution order.
const (
	StageInit           Stage = "init"
	StageSectionIntro   Stage = "section_intro"
	StageChapterNotes   Stage = "chapter_notes"
	StageCommodityTable Stage = "commodity_table"
	StageFootnotes      Stage = "footnotes"
	StageQuotas         Stage = "quotas"
	StageProhibitions   Stage = "prohibitions"
	StageAntiDumping    Stage = "anti_dumping"
	StageDone           Stage = "done"
)

// Options configures one compilation.
type Options struct {
	ChapterID string
	// Currency is the display currency code; empty means EUR.
	Currency string
	// ExchangeRate overrides the published rate when positive.
	ExchangeRate float64
	// Now dates the footer; zero uses the current time.
	Now    time.Time
	Logger *slog.Logger
}

// Result is the output of a compilation.
type Result struct {
	BuildID      string
	Stages       []Stage
	Document     *layout.Document
	Commodities  *layout.Table
	Currency     Currency
	Rate         float64
	Footnotes    *Footnotes
	Quotas       *Quotas
	Prohibitions *Prohibitions
	AntiDumping  *AntiDumping

	// Set by Export once the document is written.
	Pages int
	Path  string

	footer *footerTracker
}

// PageHeadings returns the heading range the footer recorded for page.
func (r *Result) PageHeadings(page int) []string {
	if r.footer == nil {
		return nil
	}
	return r.footer.PageHeadings(page)
}

// Compiler walks a chapter's headings and commodities and lays out the
// chapter document. A Compiler runs once.
type Compiler struct {
	svc    Service
	opts   Options
	logger *slog.Logger

	buildID      string
	chapterGraph *tariff.Graph
	chapter      *tariff.Chapter
	section      *tariff.Section
	currency     Currency
	rate         float64

	doc          *layout.Document
	commodities  *layout.Table
	rows         rowBuilder
	footnotes    *Footnotes
	quotas       *Quotas
	prohibitions *Prohibitions
	antiDumping  *AntiDumping
	footer       *footerTracker
	stages       []Stage
}

// NewCompiler returns a compiler for opts.ChapterID.
func NewCompiler(svc Service, opts Options) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	buildID := uuid.New().String()
	logger = logger.With("build_id", buildID, "chapter", opts.ChapterID)

	footnotes := NewFootnotes()
	return &Compiler{
		svc:          svc,
		opts:         opts,
		logger:       logger,
		buildID:      buildID,
		doc:          &layout.Document{},
		footnotes:    footnotes,
		quotas:       NewQuotas(logger),
		prohibitions: NewProhibitions(logger),
		antiDumping:  NewAntiDumping(),
		rows:         rowBuilder{footnotes: footnotes},
	}
}

// Compile runs a compilation with a new Compiler.
func Compile(ctx context.Context, svc Service, opts Options) (*Result, error) {
	return NewCompiler(svc, opts).Compile(ctx)
}

// Compile executes the stages in order and returns the laid-out document.
func (c *Compiler) Compile(ctx context.Context) (*Result, error) {
	start := time.Now()
	c.logger.Info("compiling chapter")

	state := StageInit
	for state != StageDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.stages = append(c.stages, state)
		next, err := c.step(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("failed to compile chapter %s (%s): %w", c.opts.ChapterID, state, err)
		}
		state = next
	}
	c.stages = append(c.stages, StageDone)

	c.logger.Info("chapter compiled",
		"stages", len(c.stages),
		"footnotes", c.footnotes.Len(),
		"quotas", c.quotas.Len(),
		"prohibitions", c.prohibitions.Len(),
		"anti_dumping", c.antiDumping.Len(),
		"duration", time.Since(start))

	return &Result{
		BuildID:      c.buildID,
		Stages:       c.stages,
		Document:     c.doc,
		Commodities:  c.commodities,
		Currency:     c.currency,
		Rate:         c.rate,
		Footnotes:    c.footnotes,
		Quotas:       c.quotas,
		Prohibitions: c.prohibitions,
		AntiDumping:  c.antiDumping,
		footer:       c.footer,
	}, nil
}

func (c *Compiler) step(ctx context.Context, state Stage) (Stage, error) {
	switch state {
	case StageInit:
		if err := c.init(ctx); err != nil {
			return "", err
		}
		if c.chapter.Code() == c.section.FirstChapter() {
			return StageSectionIntro, nil
		}
		return StageChapterNotes, nil

	case StageSectionIntro:
		c.doc.Add(sectionIntroBlocks(c.section)...)
		return StageChapterNotes, nil

	case StageChapterNotes:
		c.doc.Add(chapterNoteBlocks(c.chapter)...)
		c.doc.Add(&layout.Spacer{Height: 12})
		return StageCommodityTable, nil

	case StageCommodityTable:
		if err := c.commodityTable(ctx); err != nil {
			return "", err
		}
		return StageFootnotes, nil

	case StageFootnotes:
		if c.footnotes.Len() > 0 {
			c.doc.Add(&layout.Rule{SpaceBefore: 24, SpaceAfter: 4}, footnoteTable(c.footnotes))
		}
		return StageQuotas, nil

	case StageQuotas:
		if rows := c.quotas.Rows(c.rows.rates); len(rows) > 2 {
			c.appendix("Tariff Quotas/Ceilings", QuotaRatios, rows[:2], rows[2:])
		}
		return StageProhibitions, nil

	case StageProhibitions:
		if rows := c.prohibitions.Rows(); len(rows) > 2 {
			c.appendix("Prohibitions and Restrictions", ProhibitionRatios, rows[:2], rows[2:])
		}
		return StageAntiDumping, nil

	case StageAntiDumping:
		if c.antiDumping.Len() > 0 {
			rows := c.antiDumping.Rows(c.rows.rates)
			c.appendix("Anti-dumping Duties", AntiDumpingRatios, rows[:1], rows[1:])
		}
		return StageDone, nil
	}
	return "", fmt.Errorf("unknown stage %q", state)
}

// init loads the chapter and its section and resolves the currency.
func (c *Compiler) init(ctx context.Context) error {
	cur, err := LookupCurrency(c.opts.Currency)
	if err != nil {
		return err
	}

	g, err := c.svc.Chapter(ctx, c.opts.ChapterID)
	if err != nil {
		return fmt.Errorf("failed to fetch chapter: %w", err)
	}
	ch, ok := g.Root().(*tariff.Chapter)
	if !ok {
		return fmt.Errorf("%w: %s", ErrChapterNotFound, c.opts.ChapterID)
	}
	c.chapterGraph, c.chapter = g, ch

	ref, ok := ch.Rel("section").First()
	if !ok {
		return fmt.Errorf("%w: chapter %s has no section", ErrChapterNotFound, c.opts.ChapterID)
	}
	sg, err := c.svc.Section(ctx, ref.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch section %s: %w", ref.ID, err)
	}
	sec, ok := sg.Root().(*tariff.Section)
	if !ok {
		return fmt.Errorf("%w: section %s of chapter %s", ErrChapterNotFound, ref.ID, c.opts.ChapterID)
	}
	c.section = sec

	rate, err := ResolveRate(ctx, cur, c.opts.ExchangeRate, c.svc)
	if err != nil {
		return err
	}
	c.currency, c.rate = cur, rate
	c.rows.rates = RateFormatter{Currency: cur, Rate: rate}

	c.footer = newFooterTracker(ch.Code(), sec.Numeral, c.opts.Now)
	c.doc.Title = chapterTitle(ch)
	c.doc.Footer = c.footer.Footer

	c.logger.Debug("chapter loaded",
		"section", sec.Numeral,
		"currency", cur.Code,
		"rate", rate)
	return nil
}

// commodityTable fetches every heading in code order and every leaf
// commodity in service order, feeding the aggregators as it goes.
func (c *Compiler) commodityTable(ctx context.Context) error {
	var codes []string
	for _, h := range tariff.Resolve[*tariff.Heading](c.chapterGraph, c.chapter.Rel("headings")) {
		codes = append(codes, h.Code())
	}
	codes = uniq(codes)
	sort.Strings(codes)

	c.commodities = &layout.Table{
		Ratios:  CommodityRatios,
		Header:  []layout.Row{commodityHeaderRow()},
		Border:  layout.BorderColumns,
		Padding: 2,
	}

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.heading(ctx, code); err != nil {
			return err
		}
	}
	c.doc.Add(c.commodities)
	return nil
}

func (c *Compiler) heading(ctx context.Context, code string) error {
	hg, err := c.svc.Heading(ctx, prefixOf(code, 4))
	if err != nil {
		return fmt.Errorf("failed to fetch heading %s: %w", prefixOf(code, 4), err)
	}
	h, ok := hg.Root().(*tariff.Heading)
	if !ok {
		c.logger.Debug("heading has no data, skipped", "heading", code)
		return nil
	}
	c.footer.setHeading(headingNumber(h.Code()))

	if h.Declarable {
		measures := hg.Measures(&h.GoodsNomenclature)
		c.aggregate(hg, &h.GoodsNomenclature, h.Description, h.Description, measures)
	}
	c.add(c.rows.headingRows(hg, h)...)

	for _, cm := range tariff.Resolve[*tariff.Commodity](hg, h.Rel("commodities")) {
		if !cm.Leaf {
			c.add(c.rows.subheadRow(&cm.GoodsNomenclature))
			continue
		}
		if err := c.commodity(ctx, h, cm); err != nil {
			return err
		}
	}
	return nil
}

// commodity fetches a leaf commodity. A commodity the service does not
// return renders as a subhead and contributes nothing to the aggregators.
func (c *Compiler) commodity(ctx context.Context, h *tariff.Heading, listed *tariff.Commodity) error {
	cg, err := c.svc.Commodity(ctx, listed.Code())
	if err != nil && !errors.Is(err, tariff.ErrNotFound) {
		return fmt.Errorf("failed to fetch commodity %s: %w", listed.Code(), err)
	}
	var com *tariff.Commodity
	if err == nil {
		com, _ = cg.Root().(*tariff.Commodity)
	}
	if com == nil {
		c.logger.Debug("commodity has no data, rendered as subhead", "commodity", listed.Code())
		c.add(c.rows.subheadRow(&listed.GoodsNomenclature))
		return nil
	}

	gn := &com.GoodsNomenclature
	if gn.NumberIndents == 0 {
		gn.NumberIndents = listed.NumberIndents
	}
	measures := cg.Measures(gn)
	c.aggregate(cg, gn, h.Description, listed.Description, measures)
	c.add(c.rows.commodityRow(cg, gn))
	return nil
}

// aggregate feeds one fetched entity to the aggregators. Footnotes are
// numbered for declarable entities only.
func (c *Compiler) aggregate(g *tariff.Graph, gn *tariff.GoodsNomenclature, headingDesc, desc string, measures []*tariff.Measure) {
	if gn.Declarable {
		c.footnotes.Add(g, gn, measures)
	}
	c.quotas.Add(g, gn.Code(), headingDesc, desc, measures)
	c.prohibitions.Add(g, gn.Code(), measures)
	c.antiDumping.Add(g, gn.Code(), measures)
}

func (c *Compiler) add(rows ...layout.Row) {
	c.commodities.Rows = append(c.commodities.Rows, rows...)
}

// appendix starts a new page with the chapter's additional information
// title and one appendix table.
func (c *Compiler) appendix(title string, ratios []float64, header, rows []layout.Row) {
	c.doc.Add(
		&layout.PageBreak{},
		&layout.Paragraph{
			Text:       "Chapter " + chapterNumber(c.chapter.Code()) + strings.Repeat(nbsp, 4) + "Additional Information",
			Size:       19,
			SpaceAfter: 6,
		},
		&layout.Paragraph{Text: title, Bold: true, Size: 13, SpaceAfter: 6},
		&layout.Table{
			Ratios:  ratios,
			Header:  header,
			Rows:    rows,
			Border:  layout.BorderRows,
			Padding: 2,
		},
	)
}

// footnoteTable lists footnotes as "( n )" beside their text.
func footnoteTable(f *Footnotes) *layout.Table {
	t := &layout.Table{Ratios: []float64{1}, Border: layout.BorderNone, Padding: 1}
	for _, e := range f.Entries() {
		t.Rows = append(t.Rows, layout.Row{Cells: []layout.Cell{{
			Text: e.Text,
			Hang: &layout.Hang{Prefix: "( " + strconv.Itoa(e.Index) + " )", Width: noteGutter},
		}}})
	}
	return t
}

func prefixOf(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// headingNumber returns the 2-digit heading part of an item id.
func headingNumber(itemID string) string {
	if len(itemID) < 4 {
		return itemID
	}
	return itemID[2:4]
}
