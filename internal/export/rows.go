package export

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/tradetariff/uktt/internal/layout"
	"github.com/tradetariff/uktt/internal/tariff"
)

// CommodityRatios are the commodity table's relative column widths.
var CommodityRatios = []float64{21, 5, 1.75, 5, 4, 5.25, 19, 2}

const (
	// ThirdCountry is the measure type of the third-country duty.
	ThirdCountry = "103"
	// IndentWidth is the hanging-indent gutter per nesting level, in points.
	IndentWidth = 5.1
	// CAPLicenceCode keys the CAP licence note in the footnote list.
	CAPLicenceCode = "CAP Lic"
	capLicenceText = "CAP Lic-An import or export licence is required under the Common Agricultural Policy."
)

var (
	preferentialTypes = map[string]bool{"142": true, "145": true, "106": true}
	suspensionTypes   = map[string]bool{"112": true, "115": true, "117": true, "119": true, "141": true}

	exciseRe     = regexp.MustCompile(`(?i)\bexcise\b\D*?(\d{3})\b`)
	exciseCodeRe = regexp.MustCompile(`^X(\d{3})$`)
	capLicenceRe = regexp.MustCompile(`^L\d{3}$`)
	twoLetterRe  = regexp.MustCompile(`^[A-Z]{2}$`)
)

// quantityUnits maps duty-expression bases to units of quantity, in
// display order after Kg.
var quantityUnits = []struct {
	re   *regexp.Regexp
	unit string
}{
	{regexp.MustCompile(`(?i)(?:^|[\s/])p/st\b`), "Number"},
	{regexp.MustCompile(`(?i)(?:^|[\s/])h?l(?:$|[\s/%])`), "Litre"},
	{regexp.MustCompile(`(?i)(?:^|[\s/])m2\b`), "m²"},
	{regexp.MustCompile(`(?i)(?:^|[\s/])m3\b`), "m³"},
	{regexp.MustCompile(`(?i)(?:^|[\s/])pa\b`), "Pairs"},
	{regexp.MustCompile(`(?i)\bct/l\b`), "ct/l"},
}

// rowBuilder builds commodity-table rows from fetched documents. It reads
// footnote numbering and registers the CAP licence note.
type rowBuilder struct {
	rates     RateFormatter
	footnotes *Footnotes
}

// commodityHeaderRow is the column-number row of the commodity table.
func commodityHeaderRow() layout.Row {
	row := boldRow("1", "2A", "2B", "3", "4", "5", "6", "7")
	for i := range row.Cells {
		row.Cells[i].Align = layout.AlignCenter
	}
	return row
}

// headingRows renders a heading's code row and title row. Declarable
// headings carry the duty columns on the title row.
func (b *rowBuilder) headingRows(g *tariff.Graph, h *tariff.Heading) []layout.Row {
	code := layout.Row{Cells: []layout.Cell{{
		Text:    headingCode(h.Code()),
		Bold:    true,
		Size:    12,
		Colspan: len(CommodityRatios),
	}}}

	title := layout.Cell{
		Text: strings.ToUpper(description(h.Description)) + referenceSuffix(b.footnotes.References(h.ID())),
		Bold: true,
	}
	if !h.Declarable {
		return []layout.Row{code, blankDuties(title)}
	}
	row := b.dutyRow(g, &h.GoodsNomenclature)
	row.Cells[0] = title
	return []layout.Row{code, row}
}

// commodityRow renders a fetched commodity. Non-declarable commodities
// leave every duty column empty.
func (b *rowBuilder) commodityRow(g *tariff.Graph, gn *tariff.GoodsNomenclature) layout.Row {
	if !gn.Declarable {
		return b.subheadRow(gn)
	}
	return b.dutyRow(g, gn)
}

// subheadRow renders code and description only.
func (b *rowBuilder) subheadRow(gn *tariff.GoodsNomenclature) layout.Row {
	row := blankDuties(b.descriptionCell(gn))
	if gn.Declarable {
		row.Cells[1].Text = commodityCode(gn.Code())
		row.Cells[2].Text = commoditySuffix(gn.Code())
	}
	return row
}

func (b *rowBuilder) dutyRow(g *tariff.Graph, gn *tariff.GoodsNomenclature) layout.Row {
	measures := g.Measures(gn)
	row := layout.Row{Cells: []layout.Cell{
		b.descriptionCell(gn),
		{Text: commodityCode(gn.Code()), Align: layout.AlignCenter},
		{Text: commoditySuffix(gn.Code()), Align: layout.AlignCenter},
		{Text: b.provisions(g, measures)},
		{Text: unitsOfQuantity(g)},
		{Text: b.thirdCountryDuty(g, measures), Align: layout.AlignCenter},
		{Text: b.preferentialTariffs(g, measures)},
		{Text: vatRates(g)},
	}}
	return row
}

func blankDuties(first layout.Cell) layout.Row {
	cells := make([]layout.Cell, len(CommodityRatios))
	cells[0] = first
	cells[1].Align = layout.AlignCenter
	cells[2].Align = layout.AlignCenter
	return layout.Row{Cells: cells}
}

// descriptionCell renders the nested description. Depth one or less is
// bold; deeper entries hang after a "- " prefix per level.
func (b *rowBuilder) descriptionCell(gn *tariff.GoodsNomenclature) layout.Cell {
	text := description(gn.Description) + referenceSuffix(b.footnotes.References(gn.ID()))
	if gn.NumberIndents <= 1 {
		return layout.Cell{Text: text, Bold: true}
	}
	return layout.Cell{
		Text:   text,
		Italic: gn.Declarable,
		Hang: &layout.Hang{
			Prefix: strings.Repeat("-"+nbsp, gn.NumberIndents-1),
			Width:  float64(gn.NumberIndents) * IndentWidth,
		},
	}
}

// provisions lists excise codes, the suspension and quota markers and the
// CAP licence marker, one per line.
func (b *rowBuilder) provisions(g *tariff.Graph, measures []*tariff.Measure) string {
	var (
		excise             []string
		suspended, quota   bool
		capLicenceRequired bool
	)
	for _, m := range measures {
		if mt, ok := tariff.ResolveOne[*tariff.MeasureType](g, m.Rel("measure_type")); ok {
			if sub := exciseRe.FindStringSubmatch(mt.Description); sub != nil {
				excise = append(excise, sub[1])
			}
		}
		if m.Excise {
			if ac, ok := tariff.ResolveOne[*tariff.AdditionalCode](g, m.Rel("additional_code")); ok {
				if sub := exciseCodeRe.FindStringSubmatch(ac.Code); sub != nil {
					excise = append(excise, sub[1])
				}
			}
		}
		if suspensionTypes[m.TypeID()] {
			suspended = true
		}
		if m.IsQuota() {
			quota = true
		}
		for _, mc := range tariff.Resolve[*tariff.MeasureCondition](g, m.Rel("measure_conditions")) {
			if capLicenceRe.MatchString(mc.DocumentCode) {
				capLicenceRequired = true
			}
		}
	}

	lines := uniq(excise)
	if suspended {
		lines = append(lines, "S")
	}
	if quota {
		lines = append(lines, "TQ")
	}
	if capLicenceRequired {
		n := b.footnotes.AddSynthetic(CAPLicenceCode, capLicenceText)
		lines = append(lines, CAPLicenceCode+" ("+strconv.Itoa(n)+")")
	}
	return strings.Join(lines, "\n")
}

// unitsOfQuantity lists Kg and the units implied by the document's duty
// expressions as "1.Kg\n2.Number". Without duty expressions it is blank.
func unitsOfQuantity(g *tariff.Graph) string {
	duties := tariff.All[*tariff.DutyExpression](g)
	if len(duties) == 0 {
		return ""
	}
	units := []string{"Kg"}
	for _, q := range quantityUnits {
		for _, d := range duties {
			if q.re.MatchString(d.Base) {
				units = append(units, q.unit)
				break
			}
		}
	}
	if len(units) == 1 {
		return units[0]
	}
	lines := make([]string, len(units))
	for i, u := range units {
		lines[i] = strconv.Itoa(i+1) + "." + u
	}
	return strings.Join(lines, "\n")
}

func (b *rowBuilder) thirdCountryDuty(g *tariff.Graph, measures []*tariff.Measure) string {
	for _, m := range measures {
		if m.TypeID() != ThirdCountry {
			continue
		}
		if d, ok := tariff.ResolveOne[*tariff.DutyExpression](g, m.Rel("duty_expression")); ok {
			return b.rates.Clean(d.Base)
		}
		return ""
	}
	return ""
}

// preferentialTariffs groups preference measures by rate:
// "geo[, geo] (Excluding XX)-rate (n)", groups sorted and joined by "; ".
func (b *rowBuilder) preferentialTariffs(g *tariff.Graph, measures []*tariff.Measure) string {
	type group struct {
		areas []string
		refs  []int
	}
	groups := make(map[string]*group)
	var rates []string

	for _, m := range measures {
		if !preferentialTypes[m.TypeID()] {
			continue
		}
		rate := ""
		if d, ok := tariff.ResolveOne[*tariff.DutyExpression](g, m.Rel("duty_expression")); ok {
			rate = b.rates.CleanKeepZero(d.Base)
		}
		gr, ok := groups[rate]
		if !ok {
			gr = &group{}
			groups[rate] = gr
			rates = append(rates, rate)
		}

		area := ""
		if ga, ok := tariff.ResolveOne[*tariff.GeographicalArea](g, m.Rel("geographical_area")); ok {
			area = ga.AreaID()
			if !twoLetterRe.MatchString(area) && ga.Description != "" {
				area = ga.Description
			}
		}
		for _, x := range tariff.Resolve[*tariff.GeographicalArea](g, m.Rel("excluded_countries")) {
			area += " (Excluding " + x.AreaID() + ")"
		}
		if area != "" && !slices.Contains(gr.areas, area) {
			gr.areas = append(gr.areas, area)
		}

		for _, fn := range tariff.Resolve[*tariff.Footnote](g, m.Rel("footnotes")) {
			if n, ok := b.footnotes.Index(footnoteCode(fn)); ok && !slices.Contains(gr.refs, n) {
				gr.refs = append(gr.refs, n)
			}
		}
	}

	parts := make([]string, 0, len(rates))
	for _, rate := range rates {
		gr := groups[rate]
		display := rate
		if display == "0 %" || display == "0%" {
			display = "Free"
		}
		s := strings.Join(gr.areas, ", ") + "-" + display
		sort.Ints(gr.refs)
		for _, n := range gr.refs {
			s += " (" + strconv.Itoa(n) + ")"
		}
		parts = append(parts, s)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// vatRates lists the VAT category letter of each VT measure type.
func vatRates(g *tariff.Graph) string {
	var letters []string
	for _, mt := range tariff.All[*tariff.MeasureType](g) {
		id := mt.ID()
		if len(id) >= 3 && strings.HasPrefix(id, "VT") {
			letters = append(letters, strings.ToUpper(id[2:3]))
		}
	}
	return strings.Join(letters, " ")
}
