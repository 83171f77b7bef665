// Package jsonapi decodes the JSON:API documents served by the Trade Tariff
// API and resolves relationship links against a document's included
// side-table.
package jsonapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Identifier is a resource linkage: the (type, id) pair that names a resource.
type Identifier struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
}

// Relationship holds the linkage data of one named relationship.
// A relationship whose data is JSON null (or absent) is Null.
type Relationship struct {
	Data []Identifier
	Null bool
	Many bool
}

// ToOne builds a to-one relationship.
func ToOne(typ, id string) Relationship {
	return Relationship{Data: []Identifier{{Type: typ, ID: id}}}
}

// ToMany builds a to-many relationship. An empty list is not null.
func ToMany(ids ...Identifier) Relationship {
	if ids == nil {
		ids = []Identifier{}
	}
	return Relationship{Data: ids, Many: true}
}

// NullRelationship builds a relationship whose data is null.
func NullRelationship() Relationship {
	return Relationship{Null: true}
}

// IsNull reports whether the relationship links nothing at all.
func (r Relationship) IsNull() bool {
	return r.Null || (!r.Many && len(r.Data) == 0)
}

// First returns the first linked identifier.
func (r Relationship) First() (Identifier, bool) {
	if len(r.Data) == 0 {
		return Identifier{}, false
	}
	return r.Data[0], true
}

// IDs returns the linked ids in linkage order.
func (r Relationship) IDs() []string {
	ids := make([]string, 0, len(r.Data))
	for _, d := range r.Data {
		ids = append(ids, d.ID)
	}
	return ids
}

// UnmarshalJSON accepts {"data": null}, {"data": {...}} and {"data": [...]}.
func (r *Relationship) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("failed to decode relationship: %w", err)
	}

	*r = Relationship{}
	data := bytes.TrimSpace(raw.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		r.Null = true
	case data[0] == '[':
		r.Many = true
		if err := json.Unmarshal(data, &r.Data); err != nil {
			return fmt.Errorf("failed to decode relationship list: %w", err)
		}
	default:
		var id Identifier
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("failed to decode relationship linkage: %w", err)
		}
		r.Data = []Identifier{id}
	}
	return nil
}

// MarshalJSON writes the relationship back in its original shape.
func (r Relationship) MarshalJSON() ([]byte, error) {
	var data any
	switch {
	case r.Many:
		ids := r.Data
		if ids == nil {
			ids = []Identifier{}
		}
		data = ids
	case len(r.Data) > 0:
		data = r.Data[0]
	}
	return json.Marshal(map[string]any{"data": data})
}

// Resource is one primary or included JSON:API resource object.
type Resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    json.RawMessage         `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Key returns the resource identifier.
func (r *Resource) Key() Identifier {
	return Identifier{Type: r.Type, ID: r.ID}
}

// Rel returns the named relationship; a missing relationship is null.
func (r *Resource) Rel(name string) Relationship {
	if rel, ok := r.Relationships[name]; ok {
		return rel
	}
	return NullRelationship()
}

// Decode unmarshals the resource attributes into v.
func (r *Resource) Decode(v any) error {
	if len(r.Attributes) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Attributes, v); err != nil {
		return fmt.Errorf("failed to decode %s %q attributes: %w", r.Type, r.ID, err)
	}
	return nil
}

// Primary is the top-level "data" member: a single resource, a list or null.
type Primary struct {
	One  *Resource
	Many []Resource
	List bool
}

// UnmarshalJSON decodes null, an object or an array.
func (p *Primary) UnmarshalJSON(b []byte) error {
	*p = Primary{}
	data := bytes.TrimSpace(b)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '[':
		p.List = true
		return json.Unmarshal(data, &p.Many)
	default:
		p.One = &Resource{}
		return json.Unmarshal(data, p.One)
	}
}

// MarshalJSON writes the primary data in its original shape.
func (p Primary) MarshalJSON() ([]byte, error) {
	switch {
	case p.List:
		if p.Many == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(p.Many)
	case p.One != nil:
		return json.Marshal(p.One)
	default:
		return []byte("null"), nil
	}
}

// Document is a decoded JSON:API top-level document.
type Document struct {
	Data     Primary        `json:"data"`
	Included []Resource     `json:"included,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`

	index *Index
}

// Parse decodes a JSON:API document.
func Parse(body []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

// Root returns the single primary resource, or nil when data is null or a list.
func (d *Document) Root() *Resource {
	return d.Data.One
}

// Resources returns the primary resources of a list document. A single
// primary resource is returned as a one-element list.
func (d *Document) Resources() []Resource {
	if d.Data.List {
		return d.Data.Many
	}
	if d.Data.One != nil {
		return []Resource{*d.Data.One}
	}
	return nil
}

// Index returns the reference index over the included side-table, building
// it on first use.
func (d *Document) Index() *Index {
	if d.index == nil {
		d.index = NewIndex(d.Included)
	}
	return d.index
}
