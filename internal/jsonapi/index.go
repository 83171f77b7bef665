package jsonapi

import "sort"

// Index resolves relationship linkage against a side-table in O(1) per
// linked identifier. A resource matches only when both type and id match.
type Index struct {
	resources []Resource
	pos       map[Identifier]int
}

// NewIndex builds an index over resources. When two resources share a
// (type, id) key the first one wins.
func NewIndex(resources []Resource) *Index {
	ix := &Index{
		resources: resources,
		pos:       make(map[Identifier]int, len(resources)),
	}
	for i := range resources {
		key := resources[i].Key()
		if _, ok := ix.pos[key]; !ok {
			ix.pos[key] = i
		}
	}
	return ix
}

// Len returns the number of indexed keys.
func (ix *Index) Len() int {
	return len(ix.pos)
}

// Get returns the resource with the given type and id.
func (ix *Index) Get(typ, id string) (*Resource, bool) {
	i, ok := ix.pos[Identifier{Type: typ, ID: id}]
	if !ok {
		return nil, false
	}
	return &ix.resources[i], true
}

// Resolve returns every resource linked by rel, in side-table order.
// Null relationships and unknown identifiers resolve to nothing.
func (ix *Index) Resolve(rel Relationship) []*Resource {
	if rel.IsNull() {
		return nil
	}
	positions := make([]int, 0, len(rel.Data))
	seen := make(map[int]bool, len(rel.Data))
	for _, id := range rel.Data {
		i, ok := ix.pos[id]
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		positions = append(positions, i)
	}
	sort.Ints(positions)

	out := make([]*Resource, 0, len(positions))
	for _, i := range positions {
		out = append(out, &ix.resources[i])
	}
	return out
}

// ResolveOne returns the first resource linked by rel.
func (ix *Index) ResolveOne(rel Relationship) (*Resource, bool) {
	all := ix.Resolve(rel)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// All returns every indexed resource in side-table order, skipping
// duplicates shadowed by an earlier key.
func (ix *Index) All() []*Resource {
	out := make([]*Resource, 0, len(ix.pos))
	for i := range ix.resources {
		r := &ix.resources[i]
		if ix.pos[r.Key()] == i {
			out = append(out, r)
		}
	}
	return out
}
