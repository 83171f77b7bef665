package export

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tradetariff/uktt/internal/jsonapi"
	"github.com/tradetariff/uktt/internal/tariff"
)

// excludedFootnoteRe matches footnote categories kept out of the general
// list: 03/04 quota footnotes and CD documentary-evidence footnotes.
var excludedFootnoteRe = regexp.MustCompile(`^(?:0[34]|CD)`)

// FootnoteEntry is one numbered footnote.
type FootnoteEntry struct {
	Code  string
	Index int
	Text  string
	Refs  []string
}

// Footnotes numbers footnotes in first-encounter order and records which
// entities reference them. Indexes are 1-based and never reassigned.
type Footnotes struct {
	entries map[string]*FootnoteEntry
	order   []string
	byRef   map[string][]int
}

// NewFootnotes returns an empty aggregator.
func NewFootnotes() *Footnotes {
	return &Footnotes{
		entries: make(map[string]*FootnoteEntry),
		byRef:   make(map[string][]int),
	}
}

// Add aggregates the footnotes of entity gn and its measures.
func (f *Footnotes) Add(g *tariff.Graph, gn *tariff.GoodsNomenclature, measures []*tariff.Measure) {
	var ids []jsonapi.Identifier
	ids = append(ids, gn.Rel("footnotes").Data...)
	for _, m := range measures {
		ids = append(ids, m.Rel("footnotes").Data...)
	}

	seen := make(map[jsonapi.Identifier]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		e, _ := g.Get(id.Type, id.ID)
		fn, ok := e.(*tariff.Footnote)
		if !ok {
			continue
		}
		code := footnoteCode(fn)
		if excludedFootnoteRe.MatchString(code) {
			continue
		}
		f.ref(code, footnoteText(fn), gn.ID())
	}
}

// AddSynthetic registers a footnote that no entity links directly, such as
// the CAP licence note, and returns its display index.
func (f *Footnotes) AddSynthetic(code, text string) int {
	if e, ok := f.entries[code]; ok {
		return e.Index
	}
	return f.insert(code, text).Index
}

func (f *Footnotes) ref(code, text, entityID string) {
	e, ok := f.entries[code]
	if !ok {
		e = f.insert(code, text)
	}
	for _, r := range e.Refs {
		if r == entityID {
			return
		}
	}
	e.Refs = append(e.Refs, entityID)
	f.byRef[entityID] = append(f.byRef[entityID], e.Index)
}

func (f *Footnotes) insert(code, text string) *FootnoteEntry {
	e := &FootnoteEntry{Code: code, Index: len(f.order) + 1, Text: text}
	f.entries[code] = e
	f.order = append(f.order, code)
	return e
}

// Index returns the display index of code.
func (f *Footnotes) Index(code string) (int, bool) {
	e, ok := f.entries[code]
	if !ok {
		return 0, false
	}
	return e.Index, true
}

// Len returns the number of numbered footnotes.
func (f *Footnotes) Len() int { return len(f.order) }

// Entries returns the footnotes in display order.
func (f *Footnotes) Entries() []*FootnoteEntry {
	out := make([]*FootnoteEntry, len(f.order))
	for i, code := range f.order {
		out[i] = f.entries[code]
	}
	return out
}

// References returns the sorted display indexes referenced by entityID.
func (f *Footnotes) References(entityID string) []int {
	refs := append([]int(nil), f.byRef[entityID]...)
	sort.Ints(refs)
	return refs
}

// referenceSuffix renders indexes as " (1,2)".
func referenceSuffix(indexes []int) string {
	if len(indexes) == 0 {
		return ""
	}
	parts := make([]string, len(indexes))
	for i, n := range indexes {
		parts[i] = strconv.Itoa(n)
	}
	return " (" + strings.Join(parts, ",") + ")"
}

func footnoteCode(fn *tariff.Footnote) string {
	if fn.Code != "" {
		return fn.Code
	}
	return fn.ID()
}

// footnoteText renders "CODE-description" without markup.
func footnoteText(fn *tariff.Footnote) string {
	desc := fn.Description
	if desc == "" {
		desc = fn.FormattedDescription
	}
	desc = strings.ReplaceAll(stripMarkup(desc), "|", "")
	return footnoteCode(fn) + "-" + desc
}
