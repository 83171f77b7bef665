package export

import (
	"sort"
	"strings"

	"github.com/tradetariff/uktt/internal/layout"
	"github.com/tradetariff/uktt/internal/tariff"
)

// AntiDumpingRatios are the anti-dumping table's relative column widths.
var AntiDumpingRatios = []float64{16, 22, 10, 52}

var antiDumpingTypes = map[string]bool{
	"551": true, "552": true, "553": true, "554": true, "555": true,
	"561": true, "562": true, "563": true, "564": true, "565": true, "566": true,
	"570": true,
}

// IsAntiDumping reports whether a measure type is in the anti-dumping series.
func IsAntiDumping(measureTypeID string) bool {
	return antiDumpingTypes[measureTypeID]
}

// AdditionalDuty is the description of one additional code under an area.
type AdditionalDuty struct {
	Code        string
	Description string
}

// AreaDuties are the additional-code duties of one geographical area.
type AreaDuties struct {
	Area   string
	Label  string
	Duties []AdditionalDuty
}

// Cluster groups commodities whose anti-dumping duties are identical.
type Cluster struct {
	Commodities []string
	Areas       []AreaDuties
}

type adItem struct {
	areas  map[string]map[string]string
	geo    []string
	codes  map[string][]string
	labels map[string]string
}

// AntiDumping aggregates anti-dumping duties keyed by commodity, then
// geographical area, then additional code. The first description written
// for a key wins.
type AntiDumping struct {
	items map[string]*adItem
	order []string
}

// NewAntiDumping returns an empty aggregator.
func NewAntiDumping() *AntiDumping {
	return &AntiDumping{items: make(map[string]*adItem)}
}

// Add aggregates the anti-dumping measures of one commodity.
func (a *AntiDumping) Add(g *tariff.Graph, itemID string, measures []*tariff.Measure) {
	for _, m := range measures {
		if !IsAntiDumping(m.TypeID()) {
			continue
		}

		var desc string
		if duty, ok := tariff.ResolveOne[*tariff.DutyExpression](g, m.Rel("duty_expression")); ok && strings.TrimSpace(duty.Base) != "" {
			desc = duty.Base
			if mt, ok := tariff.ResolveOne[*tariff.MeasureType](g, m.Rel("measure_type")); ok {
				desc += " " + mt.Description
			}
		}
		code := ""
		if ac, ok := tariff.ResolveOne[*tariff.AdditionalCode](g, m.Rel("additional_code")); ok {
			code = ac.Code
			text := ac.FormattedDescription
			if text == "" {
				text = ac.Description
			}
			if desc != "" {
				desc += " - "
			}
			desc += stripMarkup(text)
		}
		if desc == "" {
			continue
		}

		geo := measureArea(g, m)
		label := geo
		if ga, ok := tariff.ResolveOne[*tariff.GeographicalArea](g, m.Rel("geographical_area")); ok && ga.Description != "" {
			label = ga.Description + " (" + geo + ")"
		}
		a.put(itemID, geo, label, code, desc)
	}
}

func (a *AntiDumping) put(itemID, geo, label, code, desc string) {
	it, ok := a.items[itemID]
	if !ok {
		it = &adItem{
			areas:  make(map[string]map[string]string),
			codes:  make(map[string][]string),
			labels: make(map[string]string),
		}
		a.items[itemID] = it
		a.order = append(a.order, itemID)
	}
	codes, ok := it.areas[geo]
	if !ok {
		codes = make(map[string]string)
		it.areas[geo] = codes
		it.geo = append(it.geo, geo)
		it.labels[geo] = label
	}
	if _, ok := codes[code]; ok {
		return
	}
	codes[code] = desc
	it.codes[geo] = append(it.codes[geo], code)
}

// Len returns the number of commodities with anti-dumping duties.
func (a *AntiDumping) Len() int { return len(a.order) }

// Description returns the description recorded for a key.
func (a *AntiDumping) Description(itemID, geo, code string) (string, bool) {
	it, ok := a.items[itemID]
	if !ok {
		return "", false
	}
	d, ok := it.areas[geo][code]
	return d, ok
}

// signature is a canonical encoding of an item's (area, code, description)
// set, used to merge commodities with identical duties.
func (it *adItem) signature() string {
	geos := append([]string(nil), it.geo...)
	sort.Strings(geos)
	var b strings.Builder
	for _, geo := range geos {
		codes := append([]string(nil), it.codes[geo]...)
		sort.Strings(codes)
		for _, code := range codes {
			b.WriteString(geo)
			b.WriteByte(0)
			b.WriteString(code)
			b.WriteByte(0)
			b.WriteString(it.areas[geo][code])
			b.WriteByte(1)
		}
	}
	return b.String()
}

// Clusters groups commodities by identical signature, in first-encounter
// order.
func (a *AntiDumping) Clusters() []Cluster {
	index := make(map[string]int)
	var out []Cluster
	for _, itemID := range a.order {
		it := a.items[itemID]
		sig := it.signature()
		if i, ok := index[sig]; ok {
			out[i].Commodities = append(out[i].Commodities, itemID)
			continue
		}
		c := Cluster{Commodities: []string{itemID}}
		for _, geo := range it.geo {
			ad := AreaDuties{Area: geo, Label: it.labels[geo]}
			for _, code := range it.codes[geo] {
				ad.Duties = append(ad.Duties, AdditionalDuty{Code: code, Description: it.areas[geo][code]})
			}
			c.Areas = append(c.Areas, ad)
		}
		index[sig] = len(out)
		out = append(out, c)
	}
	return out
}

// Rows renders the clustered anti-dumping table. Each cluster starts with
// a row naming its commodities; each area shows its first additional code
// on its own row and further codes on continuation rows. An additional
// code is shown only on the first line of its description.
func (a *AntiDumping) Rows(f RateFormatter) []layout.Row {
	rows := []layout.Row{
		boldRow("Commodity Code", "Country of origin", "Additional code", "Duty"),
	}
	for _, c := range a.Clusters() {
		codes := make([]string, len(c.Commodities))
		for i, id := range c.Commodities {
			codes[i] = groupedCode(id)
		}
		rows = append(rows, layout.Row{Cells: []layout.Cell{
			{Text: strings.Join(codes, ", "), Bold: true, Colspan: 4},
		}})
		for _, area := range c.Areas {
			for i, d := range area.Duties {
				for j, line := range strings.Split(f.Clean(d.Description), "\n") {
					row := layout.Texts("", "", "", line)
					if i == 0 && j == 0 {
						row.Cells[1].Text = area.Label
					}
					if j == 0 {
						row.Cells[2].Text = d.Code
					}
					rows = append(rows, row)
				}
			}
		}
	}
	return rows
}
