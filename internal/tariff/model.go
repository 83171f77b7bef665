package tariff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tradetariff/uktt/internal/jsonapi"
)

// Resource type names used by the Trade Tariff API.
const (
	TypeChapter          = "chapter"
	TypeSection          = "section"
	TypeHeading          = "heading"
	TypeCommodity        = "commodity"
	TypeMeasure          = "measure"
	TypeMeasureType      = "measure_type"
	TypeDutyExpression   = "duty_expression"
	TypeFootnote         = "footnote"
	TypeGeographicalArea = "geographical_area"
	TypeMeasureCondition = "measure_condition"
	TypeAdditionalCode   = "additional_code"
	TypeOrderNumber      = "order_number"
	TypeDefinition       = "definition"
	TypeExchangeRate     = "monetary_exchange_rate"
)

// FlexString decodes a JSON string or number into a string.
type FlexString string

// UnmarshalJSON accepts strings, numbers and null.
func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(string(b))
	return nil
}

// Decimal decodes a JSON number or numeric string into a float64.
type Decimal float64

// UnmarshalJSON accepts "0.8801", 0.8801 and null.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", string(s), err)
	}
	*d = Decimal(v)
	return nil
}

// Entity is a typed variant of an included resource.
type Entity interface {
	Ref() jsonapi.Identifier
}

type base struct {
	ref jsonapi.Identifier
	res *jsonapi.Resource
}

// Ref returns the resource identifier.
func (b base) Ref() jsonapi.Identifier { return b.ref }

// Rel returns a named relationship of the underlying resource.
func (b base) Rel(name string) jsonapi.Relationship {
	if b.res == nil {
		return jsonapi.NullRelationship()
	}
	return b.res.Rel(name)
}

// ID returns the resource id.
func (b base) ID() string { return b.ref.ID }

// Chapter is a 2-digit nomenclature chapter.
type Chapter struct {
	base
	GoodsNomenclatureItemID string `json:"goods_nomenclature_item_id"`
	Description             string `json:"description"`
	FormattedDescription    string `json:"formatted_description"`
	ChapterNote             string `json:"chapter_note"`
}

// Code returns the 2-digit chapter code.
func (c *Chapter) Code() string { return prefix(c.GoodsNomenclatureItemID, 2) }

// Section groups chapters.
type Section struct {
	base
	Numeral     string     `json:"numeral"`
	Title       string     `json:"title"`
	Position    FlexString `json:"position"`
	SectionNote string     `json:"section_note"`
	ChapterFrom FlexString `json:"chapter_from"`
	ChapterTo   FlexString `json:"chapter_to"`
}

// FirstChapter returns chapter_from zero-padded to two digits.
func (s *Section) FirstChapter() string {
	v := strings.TrimSpace(string(s.ChapterFrom))
	if len(v) == 1 {
		v = "0" + v
	}
	return v
}

// GoodsNomenclature carries the attributes shared by headings and commodities.
type GoodsNomenclature struct {
	base
	GoodsNomenclatureItemID string     `json:"goods_nomenclature_item_id"`
	GoodsNomenclatureSID    FlexString `json:"goods_nomenclature_sid"`
	ProductLineSuffix       string     `json:"producline_suffix"`
	Description             string     `json:"description"`
	FormattedDescription    string     `json:"formatted_description"`
	NumberIndents           int        `json:"number_indents"`
	Declarable              bool       `json:"declarable"`
	Leaf                    bool       `json:"leaf"`
}

// Code returns the 10-digit item id.
func (g *GoodsNomenclature) Code() string { return g.GoodsNomenclatureItemID }

// Heading is a 4-digit nomenclature heading.
type Heading struct {
	GoodsNomenclature
}

// Commodity is a 10-digit nomenclature entry.
type Commodity struct {
	GoodsNomenclature
}

// Measure is a duty, preference, quota or regulatory rule.
type Measure struct {
	base
	EffectiveStartDate string `json:"effective_start_date"`
	EffectiveEndDate   string `json:"effective_end_date"`
	Import             bool   `json:"import"`
	Export             bool   `json:"export"`
	Excise             bool   `json:"excise"`
	VAT                bool   `json:"vat"`
}

// IsQuota reports whether the measure draws on a tariff quota.
func (m *Measure) IsQuota() bool {
	return !m.Rel("order_number").IsNull()
}

// TypeID returns the linked measure type id.
func (m *Measure) TypeID() string {
	id, _ := m.Rel("measure_type").First()
	return id.ID
}

// MeasureType classifies measures.
type MeasureType struct {
	base
	Description         string `json:"description"`
	MeasureTypeSeriesID string `json:"measure_type_series_id"`
}

// DutyExpression is the rate text of a measure.
type DutyExpression struct {
	base
	Base          string `json:"base"`
	FormattedBase string `json:"formatted_base"`
}

// Footnote is supplementary legal text.
type Footnote struct {
	base
	Code                 string `json:"code"`
	Description          string `json:"description"`
	FormattedDescription string `json:"formatted_description"`
}

// GeographicalArea is a country or group of countries.
type GeographicalArea struct {
	base
	GeographicalAreaID string `json:"geographical_area_id"`
	Description        string `json:"description"`
}

// AreaID returns the area code, falling back to the resource id.
func (g *GeographicalArea) AreaID() string {
	if g.GeographicalAreaID != "" {
		return g.GeographicalAreaID
	}
	return g.ID()
}

// MeasureCondition is a documentary or licensing requirement on a measure.
type MeasureCondition struct {
	base
	ConditionCode string  `json:"condition_code"`
	Condition     string  `json:"condition"`
	DocumentCode  string  `json:"document_code"`
	Requirement   *string `json:"requirement"`
	Action        string  `json:"action"`
}

// AdditionalCode differentiates duties for the same commodity.
type AdditionalCode struct {
	base
	Code                 string `json:"code"`
	Description          string `json:"description"`
	FormattedDescription string `json:"formatted_description"`
}

// OrderNumber identifies a tariff quota.
type OrderNumber struct {
	base
	Number string `json:"number"`
}

// Definition is a quota definition: validity period and unit.
type Definition struct {
	base
	InitialVolume            FlexString `json:"initial_volume"`
	ValidityStartDate        string     `json:"validity_start_date"`
	ValidityEndDate          string     `json:"validity_end_date"`
	MeasurementUnit          string     `json:"measurement_unit"`
	MeasurementUnitQualifier string     `json:"measurement_unit_qualifier"`
	QuotaOrderNumberID       string     `json:"quota_order_number_id"`
	Status                   string     `json:"status"`
}

// ExchangeRate is a monetary exchange rate relative to EUR.
type ExchangeRate struct {
	base
	ChildCurrency     string  `json:"child_currency"`
	ParentCurrency    string  `json:"parent_currency"`
	ExchangeRate      Decimal `json:"exchange_rate"`
	ValidityStartDate string  `json:"validity_start_date"`
}

// Unknown is an included resource of a type this package does not model.
type Unknown struct {
	base
}

// Resource exposes the underlying resource.
func (u *Unknown) Resource() *jsonapi.Resource { return u.res }

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
