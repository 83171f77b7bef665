package export

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/tradetariff/uktt/internal/layout"
	"github.com/tradetariff/uktt/internal/tariff"
)

const (
	ProhibitionCodesFirstRow = 10
	ProhibitionCodesPerRow   = 20
)

// ProhibitionRatios are the P&R table's relative column widths.
var ProhibitionRatios = []float64{12, 26, 8, 14, 40}

// Category partitions the prohibition and restriction measure types.
type Category int

const (
	CategoryImport Category = iota + 1
	CategoryExport
	CategoryImportExport
)

var (
	importOnlyTypes = []string{
		"277", "410", "420", "465", "475", "481", "707", "710", "712", "714",
		"715", "719", "722", "725", "730", "735", "740", "745", "746", "748",
		"750", "755", "760", "761", "762", "763", "765", "766", "767", "768", "769",
	}
	exportOnlyTypes = []string{
		"278", "470", "476", "478", "479", "482", "708", "709", "711", "713",
		"716", "717", "718", "720", "724", "751",
	}
	importExportTypes = []string{
		"483", "485", "728", "747", "749", "770", "771", "772", "773", "774",
		"775", "776", "777",
	}

	prohibitionTypes = func() map[string]Category {
		m := make(map[string]Category)
		for _, id := range importOnlyTypes {
			m[id] = CategoryImport
		}
		for _, id := range exportOnlyTypes {
			m[id] = CategoryExport
		}
		for _, id := range importExportTypes {
			m[id] = CategoryImportExport
		}
		return m
	}()
)

// ProhibitionCategory returns the category of a P&R measure type.
func ProhibitionCategory(measureTypeID string) (Category, bool) {
	c, ok := prohibitionTypes[measureTypeID]
	return c, ok
}

// Prohibition aggregates the measures of one P&R measure type.
type Prohibition struct {
	MeasureType   string
	Category      Category
	Description   string
	Direction     string
	Commodities   []string
	DocumentCodes []string
	Requirements  []string
}

// Prohibitions aggregates prohibitions and restrictions keyed by measure type.
type Prohibitions struct {
	records map[string]*Prohibition
	order   []string
	logger  *slog.Logger
}

// NewProhibitions returns an empty aggregator.
func NewProhibitions(logger *slog.Logger) *Prohibitions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prohibitions{records: make(map[string]*Prohibition), logger: logger}
}

// Add aggregates the P&R measures of one commodity.
func (p *Prohibitions) Add(g *tariff.Graph, itemID string, measures []*tariff.Measure) {
	for _, m := range measures {
		typeID := m.TypeID()
		cat, ok := ProhibitionCategory(typeID)
		if !ok {
			continue
		}
		if rec, ok := p.records[typeID]; ok {
			if !slices.Contains(rec.Commodities, itemID) {
				rec.Commodities = append(rec.Commodities, itemID)
			}
			continue
		}

		mt, ok := tariff.ResolveOne[*tariff.MeasureType](g, m.Rel("measure_type"))
		if !ok {
			p.logger.Debug("measure type missing, measure dropped", "measure_type", typeID, "measure", m.ID())
			continue
		}

		var docs, reqs []string
		for _, mc := range tariff.Resolve[*tariff.MeasureCondition](g, m.Rel("measure_conditions")) {
			docs = append(docs, mc.DocumentCode)
			if mc.Requirement == nil {
				continue
			}
			req := stripMarkup(*mc.Requirement)
			if mc.DocumentCode != "" {
				req += " (" + mc.DocumentCode + ")"
			}
			reqs = append(reqs, req)
		}

		direction := "Export"
		if m.Import {
			direction = "Import"
		}
		p.records[typeID] = &Prohibition{
			MeasureType:   typeID,
			Category:      cat,
			Description:   mt.Description + " (" + typeID + ")",
			Direction:     direction,
			Commodities:   []string{itemID},
			DocumentCodes: uniq(docs),
			Requirements:  uniq(reqs),
		}
		p.order = append(p.order, typeID)
	}
}

// Records returns the records in first-encounter order.
func (p *Prohibitions) Records() []*Prohibition {
	out := make([]*Prohibition, len(p.order))
	for i, id := range p.order {
		out[i] = p.records[id]
	}
	return out
}

// Len returns the number of measure types seen.
func (p *Prohibitions) Len() int { return len(p.order) }

// Rows renders the P&R table: two header rows, then each record with its
// commodity codes chunked over continuation rows.
func (p *Prohibitions) Rows() []layout.Row {
	rows := []layout.Row{
		boldRow("Commodity Code", "Measure type", "Import/\nExport", "Document codes", "Requirements"),
		numberRow(5),
	}
	for _, rec := range p.Records() {
		codes := make([]string, len(rec.Commodities))
		for i, c := range rec.Commodities {
			codes[i] = groupedCode(c)
		}
		for i, part := range chunk(codes, ProhibitionCodesFirstRow, ProhibitionCodesPerRow) {
			row := layout.Texts(strings.Join(part, "\n"), "", "", "", "")
			if i == 0 {
				row.Cells[1].Text = rec.Description
				row.Cells[2].Text = rec.Direction
				row.Cells[3].Text = strings.Join(rec.DocumentCodes, ", ")
				row.Cells[4].Text = strings.Join(rec.Requirements, "\n")
			}
			rows = append(rows, row)
		}
	}
	return rows
}
