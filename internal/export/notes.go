package export

import (
	"regexp"
	"strings"

	"github.com/tradetariff/uktt/internal/layout"
	"github.com/tradetariff/uktt/internal/tariff"
)

// ChapterNotesFlowThreshold is the combined note length above which chapter
// notes flow through three columns instead of a fixed note table.
const ChapterNotesFlowThreshold = 3200

const (
	noteSize      = 9
	sectionSize   = 10
	titleSize     = 12
	noteGutter    = 18
	noteColumnGap = 24
	notePadding   = 1
	baseSize      = 8
	sectionLabel  = 13
	sectionTitle  = 17
)

var (
	noteMarkerRe = regexp.MustCompile(`(?i)#+\s*(?:additional|subheading)\s+notes?\s*#+`)
	noteTokenRe  = regexp.MustCompile(`^(\d+\.*|\([a-z]+\))\s*`)

	numberedNoteRe = regexp.MustCompile(`^\d\.\s`)
	letteredNoteRe = regexp.MustCompile(`\([a-z]\)\s`)
	dashedNoteRe   = regexp.MustCompile(`-\s`)
)

// splitNotes splits a chapter note into its main notes, then the
// additional/subheading sections that follow each marker.
func splitNotes(text string) []string {
	parts := noteMarkerRe.Split(text, -1)
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = cleanNote(p)
	}
	return out
}

func cleanNote(s string) string {
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	s = strings.ReplaceAll(s, "\n\n", "\n")
	return strings.TrimSpace(s)
}

// noteIndenter tracks the indent of a run of flowing notes. Numbered notes
// sit at the margin, lettered sub-notes one step in and dashed items
// further; unmarked continuations inherit the indent of what precedes them.
type noteIndenter struct {
	next float64
}

func (n *noteIndenter) indent(note string) (indent, pad float64) {
	switch {
	case numberedNoteRe.MatchString(note):
		n.next = 12
		return 0, baseSize / 2
	case letteredNoteRe.MatchString(note):
		n.next = 24
		return 12, baseSize / 2
	case dashedNoteRe.MatchString(note):
		n.next = 36
		return 36, baseSize / 2
	default:
		return n.next, 0
	}
}

// chapterTitle is "Chapter N" over the chapter's description.
func chapterTitle(ch *tariff.Chapter) string {
	desc := ch.FormattedDescription
	if desc == "" {
		desc = ch.Description
	}
	return "Chapter " + chapterNumber(ch.Code()) + "\n" + description(stripMarkup(desc))
}

// chapterNoteBlocks lays out the chapter title and notes. Long notes flow
// through three columns; short ones fill a fixed table beside the title,
// followed by one table per additional section.
func chapterNoteBlocks(ch *tariff.Chapter) []layout.Block {
	sections := splitNotes(ch.ChapterNote)
	total := 0
	for _, s := range sections {
		total += len(s)
	}
	if total > ChapterNotesFlowThreshold {
		return []layout.Block{flowingNotes(ch, sections)}
	}

	blocks := []layout.Block{noteTable(chapterTitle(ch), "Note", sections[0], noteSize)}
	for i, s := range sections[1:] {
		if s == "" {
			continue
		}
		blocks = append(blocks, noteTable("", additionalLabel(i), s, baseSize))
	}
	return blocks
}

// additionalLabel heads the i-th section after the main notes.
func additionalLabel(i int) string {
	if i == 0 {
		return "Additional Notes"
	}
	return "Notes"
}

func flowingNotes(ch *tariff.Chapter, sections []string) *layout.Columns {
	cols := &layout.Columns{Count: 3, Gap: noteColumnGap}
	add := func(p layout.Paragraph) { cols.Paragraphs = append(cols.Paragraphs, p) }

	add(layout.Paragraph{Text: chapterTitle(ch), Bold: true, Size: titleSize, SpaceAfter: titleSize})

	var ind noteIndenter
	items := func(text string, size float64) {
		for _, note := range strings.Split(text, "* ") {
			if strings.TrimSpace(note) == "" {
				continue
			}
			indent, pad := ind.indent(note)
			add(layout.Paragraph{
				Text:        strings.TrimSpace(note),
				Bold:        true,
				Size:        size,
				Indent:      indent,
				SpaceBefore: pad,
			})
		}
	}

	add(layout.Paragraph{Text: "Note", Bold: true, Size: noteSize})
	items(sections[0], noteSize)

	for i, s := range sections[1:] {
		add(layout.Paragraph{Text: additionalLabel(i), Bold: true, SpaceBefore: baseSize, SpaceAfter: baseSize / 2})
		items(s, baseSize)
	}
	return cols
}

type noteItem struct {
	token string
	text  string
}

// noteItems splits note text into numbered or lettered items. Text without
// a leading token hangs from an empty gutter.
func noteItems(text string) []noteItem {
	var items []noteItem
	for _, line := range strings.Split(text, "\n") {
		for _, part := range strings.Split(line, "* ") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			item := noteItem{token: nbsp, text: part}
			if m := noteTokenRe.FindStringSubmatch(part); m != nil {
				item.token = m[1]
				item.text = strings.TrimSpace(part[len(m[0]):])
			}
			items = append(items, item)
		}
	}
	if len(items) == 1 && items[0].token == nbsp {
		items[0].token = nbsp + nbsp
	}
	return items
}

// noteTable lays a title beside two columns of hanging-indent notes.
func noteTable(title, header, text string, size float64) *layout.Table {
	items := noteItems(text)
	half := len(items) / 2
	left, right := items[:half], items[half:]
	if half == 0 {
		left, right = right, nil
	}

	t := &layout.Table{
		Ratios:  []float64{1, 1, 1},
		Border:  layout.BorderNone,
		Padding: notePadding,
		Size:    size,
	}
	first := layout.Row{Cells: []layout.Cell{
		{Text: title, Bold: true, Size: titleSize},
		{},
		{},
	}}
	if len(items) > 0 {
		first.Cells[1] = layout.Cell{Text: header, Bold: true, Size: size}
	}
	t.Rows = append(t.Rows, first)

	for i := 0; i < len(left) || i < len(right); i++ {
		row := layout.Row{Cells: make([]layout.Cell, 3)}
		if i < len(left) {
			row.Cells[1] = noteCell(left[i], size)
		}
		if i < len(right) {
			row.Cells[2] = noteCell(right[i], size)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func noteCell(item noteItem, size float64) layout.Cell {
	return layout.Cell{
		Text: item.text,
		Bold: true,
		Size: size,
		Hang: &layout.Hang{Prefix: item.token, Width: noteGutter},
	}
}

// sectionIntroBlocks opens the first chapter of a section with the
// section's title and notes, closed by a rule and a page break.
func sectionIntroBlocks(s *tariff.Section) []layout.Block {
	t := noteTable("", "Notes", cleanNote(s.SectionNote), sectionSize)
	t.Rows[0].Cells[0] = layout.Cell{Text: "SECTION " + s.Numeral, Bold: true, Size: sectionLabel}
	title := layout.Cell{Text: s.Title, Bold: true, Size: sectionTitle}
	if len(t.Rows) > 1 {
		t.Rows[1].Cells[0] = title
	} else {
		t.Rows = append(t.Rows, layout.Row{Cells: []layout.Cell{title, {}, {}}})
	}
	return []layout.Block{
		t,
		&layout.Rule{SpaceBefore: 16, SpaceAfter: 16},
		&layout.PageBreak{},
	}
}
