package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/tradetariff/uktt/internal/layout"
)

// footerTracker produces the running footer and records the heading range
// of each page. The range is read from the current heading when the
// renderer closes a page, which after compilation is the last heading of
// the chapter rather than the heading laid out on that page.
type footerTracker struct {
	chapter string
	numeral string
	date    string
	current string
	pages   map[int][]string
}

func newFooterTracker(chapter, numeral string, now time.Time) *footerTracker {
	return &footerTracker{
		chapter: chapter,
		numeral: numeral,
		date:    footerDate(now),
		current: "01",
		pages:   make(map[int][]string),
	}
}

// setHeading records the 2-digit heading being compiled.
func (f *footerTracker) setHeading(code string) {
	f.current = code
}

// Footer implements the layout footer callback.
func (f *footerTracker) Footer(page int) layout.Footer {
	if hs, ok := f.pages[page]; ok {
		f.pages[page] = append(hs, f.current)
	} else {
		f.pages[page] = []string{"01", f.current}
	}
	hs := f.pages[page]

	return layout.Footer{
		Left: layout.Cell{Text: f.date, Size: 9},
		Center: layout.Cell{
			Text: f.chapter + strings.Repeat(nbsp, 2) + strconv.Itoa(page),
			Bold: true,
			Size: 12,
		},
		Right: layout.Cell{
			Text: "Customs Tariff Vol 2 Sect " + f.numeral + strings.Repeat(nbsp, 3) +
				f.chapter + " " + hs[0] + "-" + f.chapter + " " + hs[len(hs)-1],
			Bold: true,
			Size: 9,
		},
	}
}

// PageHeadings returns the heading range recorded for page.
func (f *footerTracker) PageHeadings(page int) []string {
	return append([]string(nil), f.pages[page]...)
}
