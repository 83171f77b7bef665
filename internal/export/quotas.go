package export

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/tradetariff/uktt/internal/layout"
	"github.com/tradetariff/uktt/internal/tariff"
)

// Quota code chunking keeps each commodity-code cell within its column.
const (
	QuotaCodesFirstRow = 10
	QuotaCodesPerRow   = 20
)

// QuotaRatios are the quota table's relative column widths.
var QuotaRatios = []float64{12, 43, 9, 9, 11, 11, 8, 22}

// QuotaRecord aggregates every quota measure drawing on one order number.
// Duty, definition and footnotes come from the first measure seen.
type QuotaRecord struct {
	OrderNumber  string
	Commodities  []string
	Descriptions [][2]string
	MeasureIDs   []string
	Areas        []string
	Duty         string
	Definition   *tariff.Definition
	Footnotes    []*tariff.Footnote

	seen map[string]bool
}

// Quotas aggregates tariff quotas keyed by order number.
type Quotas struct {
	records map[string]*QuotaRecord
	order   []string
	logger  *slog.Logger
}

// NewQuotas returns an empty aggregator.
func NewQuotas(logger *slog.Logger) *Quotas {
	if logger == nil {
		logger = slog.Default()
	}
	return &Quotas{records: make(map[string]*QuotaRecord), logger: logger}
}

// Add aggregates the quota measures of one commodity.
func (q *Quotas) Add(g *tariff.Graph, itemID, headingDesc, commodityDesc string, measures []*tariff.Measure) {
	for _, m := range measures {
		if !m.IsQuota() {
			continue
		}
		ref, _ := m.Rel("order_number").First()
		on, ok := tariff.ResolveOne[*tariff.OrderNumber](g, m.Rel("order_number"))
		number := ref.ID
		if ok && on.Number != "" {
			number = on.Number
		}
		area := measureArea(g, m)
		key := itemID + "/" + m.ID()

		if rec, ok := q.records[number]; ok {
			if rec.seen[key] {
				continue
			}
			rec.seen[key] = true
			rec.MeasureIDs = append(rec.MeasureIDs, m.ID())
			rec.Commodities = append(rec.Commodities, itemID)
			rec.Areas = append(rec.Areas, area)
			continue
		}

		if !ok {
			q.logger.Debug("quota order number not included, measure dropped", "order_number", number, "measure", m.ID())
			continue
		}
		def, ok := tariff.ResolveOne[*tariff.Definition](g, on.Rel("definition"))
		if !ok {
			q.logger.Debug("quota definition missing, measure dropped", "order_number", number, "measure", m.ID())
			continue
		}
		duty, ok := tariff.ResolveOne[*tariff.DutyExpression](g, m.Rel("duty_expression"))
		if !ok {
			q.logger.Debug("quota duty expression missing, measure dropped", "order_number", number, "measure", m.ID())
			continue
		}

		var docs []*tariff.Footnote
		for _, fn := range tariff.Resolve[*tariff.Footnote](g, m.Rel("footnotes")) {
			if strings.HasPrefix(footnoteCode(fn), "CD") {
				docs = append(docs, fn)
			}
		}

		q.records[number] = &QuotaRecord{
			OrderNumber:  number,
			Commodities:  []string{itemID},
			Descriptions: [][2]string{{headingDesc, commodityDesc}},
			MeasureIDs:   []string{m.ID()},
			Areas:        []string{area},
			Duty:         duty.Base,
			Definition:   def,
			Footnotes:    docs,
			seen:         map[string]bool{key: true},
		}
		q.order = append(q.order, number)
	}
}

// Get returns the record for an order number.
func (q *Quotas) Get(number string) (*QuotaRecord, bool) {
	rec, ok := q.records[number]
	return rec, ok
}

// Records returns the records in first-encounter order.
func (q *Quotas) Records() []*QuotaRecord {
	out := make([]*QuotaRecord, len(q.order))
	for i, n := range q.order {
		out[i] = q.records[n]
	}
	return out
}

// Len returns the number of order numbers seen.
func (q *Quotas) Len() int { return len(q.order) }

// Rows renders the quota table: two header rows, then each record with
// its commodity codes chunked over continuation rows.
func (q *Quotas) Rows(f RateFormatter) []layout.Row {
	rows := []layout.Row{
		boldRow("Commodity Code", "Description", "Country of origin", "Tariff Quota Order No.",
			"Quota rate", "Quota period", "Quota units", "Documentary evidence\nrequired"),
		numberRow(8),
	}
	for _, rec := range q.Records() {
		codes := make([]string, len(rec.Commodities))
		for i, c := range rec.Commodities {
			codes[i] = groupedCode(c)
		}
		for i, part := range chunk(codes, QuotaCodesFirstRow, QuotaCodesPerRow) {
			cells := layout.Texts(strings.Join(part, "\n"), "", "", "", "", "", "", "")
			if i == 0 {
				desc := ""
				if len(rec.Descriptions) > 0 {
					desc = description(rec.Descriptions[0][1])
				}
				var docs []string
				for _, fn := range rec.Footnotes {
					docs = append(docs, stripMarkup(fn.Description))
				}
				cells.Cells[1].Text = desc
				cells.Cells[2].Text = strings.Join(uniq(rec.Areas), ", ")
				cells.Cells[3].Text = rec.OrderNumber
				cells.Cells[4].Text = f.Clean(rec.Duty)
				cells.Cells[5].Text = period(rec.Definition.ValidityStartDate, rec.Definition.ValidityEndDate)
				cells.Cells[6].Text = rec.Definition.MeasurementUnit
				cells.Cells[7].Text = strings.Join(uniq(docs), ", ")
			}
			rows = append(rows, cells)
		}
	}
	return rows
}

// measureArea returns the geographical area id of a measure.
func measureArea(g *tariff.Graph, m *tariff.Measure) string {
	if ga, ok := tariff.ResolveOne[*tariff.GeographicalArea](g, m.Rel("geographical_area")); ok {
		return ga.AreaID()
	}
	ref, _ := m.Rel("geographical_area").First()
	return ref.ID
}

func boldRow(texts ...string) layout.Row {
	row := layout.Texts(texts...)
	for i := range row.Cells {
		row.Cells[i].Bold = true
	}
	return row
}

// numberRow is the column-number header row "1 … n".
func numberRow(n int) layout.Row {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = strconv.Itoa(i + 1)
	}
	return layout.Texts(texts...)
}
