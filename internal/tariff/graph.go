package tariff

import (
	"fmt"

	"github.com/tradetariff/uktt/internal/jsonapi"
)

// Graph is a typed view over one fetched document. Linkage is resolved by
// the document's jsonapi.Index; every included resource is decoded once
// into its entity variant.
type Graph struct {
	doc      *jsonapi.Document
	index    *jsonapi.Index
	root     Entity
	primary  []Entity
	entities map[jsonapi.Identifier]Entity
}

// NewGraph decodes the document's primary resource and included side-table.
func NewGraph(doc *jsonapi.Document) (*Graph, error) {
	g := &Graph{
		doc:   doc,
		index: doc.Index(),
	}

	if r := doc.Root(); r != nil {
		e, err := decodeEntity(r)
		if err != nil {
			return nil, err
		}
		g.root = e
	}
	if doc.Data.List {
		for i := range doc.Data.Many {
			e, err := decodeEntity(&doc.Data.Many[i])
			if err != nil {
				return nil, err
			}
			g.primary = append(g.primary, e)
		}
	} else if g.root != nil {
		g.primary = []Entity{g.root}
	}

	included := g.index.All()
	g.entities = make(map[jsonapi.Identifier]Entity, len(included))
	for _, r := range included {
		e, err := decodeEntity(r)
		if err != nil {
			return nil, err
		}
		g.entities[r.Key()] = e
	}
	return g, nil
}

// Document returns the underlying document.
func (g *Graph) Document() *jsonapi.Document { return g.doc }

// Root returns the decoded primary resource, or nil when data was null.
func (g *Graph) Root() Entity { return g.root }

// Primary returns the primary resources of type T. A single-resource
// document yields a one-element list.
func Primary[T Entity](g *Graph) []T {
	var out []T
	for _, e := range g.primary {
		if t, ok := e.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the entity with the given type and id.
func (g *Graph) Get(typ, id string) (Entity, bool) {
	r, ok := g.index.Get(typ, id)
	if !ok {
		return nil, false
	}
	return g.entities[r.Key()], true
}

// Len returns the number of included entities.
func (g *Graph) Len() int { return g.index.Len() }

// Resolve returns the entities of type T linked by rel, in side-table order.
func Resolve[T Entity](g *Graph, rel jsonapi.Relationship) []T {
	linked := g.index.Resolve(rel)
	out := make([]T, 0, len(linked))
	for _, r := range linked {
		if t, ok := g.entities[r.Key()].(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// ResolveOne returns the first entity of type T linked by rel.
func ResolveOne[T Entity](g *Graph, rel jsonapi.Relationship) (T, bool) {
	all := Resolve[T](g, rel)
	if len(all) == 0 {
		var zero T
		return zero, false
	}
	return all[0], true
}

// All returns every included entity of type T in side-table order.
func All[T Entity](g *Graph) []T {
	var out []T
	for _, r := range g.index.All() {
		if t, ok := g.entities[r.Key()].(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Measures returns the import and export measures of a heading or commodity.
// Import measures are flagged Import, export measures Export.
func (g *Graph) Measures(gn *GoodsNomenclature) []*Measure {
	imports := Resolve[*Measure](g, gn.Rel("import_measures"))
	exports := Resolve[*Measure](g, gn.Rel("export_measures"))

	out := make([]*Measure, 0, len(imports)+len(exports))
	seen := make(map[string]bool, len(imports)+len(exports))
	for _, m := range imports {
		m.Import = true
		if !seen[m.ID()] {
			seen[m.ID()] = true
			out = append(out, m)
		}
	}
	for _, m := range exports {
		if !m.Import {
			m.Export = true
		}
		if !seen[m.ID()] {
			seen[m.ID()] = true
			out = append(out, m)
		}
	}
	return out
}

func decodeEntity(r *jsonapi.Resource) (Entity, error) {
	b := base{ref: r.Key(), res: r}

	var (
		e      Entity
		target any
	)
	switch r.Type {
	case TypeChapter:
		v := &Chapter{base: b}
		e, target = v, v
	case TypeSection:
		v := &Section{base: b}
		e, target = v, v
	case TypeHeading:
		v := &Heading{GoodsNomenclature{base: b}}
		e, target = v, v
	case TypeCommodity:
		v := &Commodity{GoodsNomenclature{base: b}}
		e, target = v, v
	case TypeMeasure:
		v := &Measure{base: b}
		e, target = v, v
	case TypeMeasureType:
		v := &MeasureType{base: b}
		e, target = v, v
	case TypeDutyExpression:
		v := &DutyExpression{base: b}
		e, target = v, v
	case TypeFootnote:
		v := &Footnote{base: b}
		e, target = v, v
	case TypeGeographicalArea:
		v := &GeographicalArea{base: b}
		e, target = v, v
	case TypeMeasureCondition:
		v := &MeasureCondition{base: b}
		e, target = v, v
	case TypeAdditionalCode:
		v := &AdditionalCode{base: b}
		e, target = v, v
	case TypeOrderNumber:
		v := &OrderNumber{base: b}
		e, target = v, v
	case TypeDefinition:
		v := &Definition{base: b}
		e, target = v, v
	case TypeExchangeRate:
		v := &ExchangeRate{base: b}
		e, target = v, v
	default:
		return &Unknown{base: b}, nil
	}

	if err := r.Decode(target); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	return e, nil
}
