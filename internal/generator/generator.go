// Package generator derives JSON-Schema-like validation documents from
// parsed models.
package generator

import (
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/schemafill/internal/models"
)

// Validation type tags.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// FormatDateTime is the format hint attached to date/time fields.
const FormatDateTime = "date-time"

// Property describes one field of a validation schema.
type Property struct {
	Type    string    `json:"type"`
	Default any       `json:"default,omitempty"`
	Items   *Property `json:"items,omitempty"`
	Format  string    `json:"format,omitempty"`
	Enum    []string  `json:"enum,omitempty"`
}

// ValidationSchema is the generated document for one model.
type ValidationSchema struct {
	Type       string                                    `json:"type"`
	Properties *orderedmap.OrderedMap[string, *Property] `json:"properties"`
	Required   []string                                  `json:"required"`
}

// FieldDefault pairs a property name with its default literal.
type FieldDefault struct {
	Field string
	Value any
}

type scalarType struct {
	typ    string
	format string
}

// primitives maps lowercased declared type names to validation types.
var primitives = map[string]scalarType{
	"string":   {typ: TypeString},
	"int":      {typ: TypeNumber},
	"bigint":   {typ: TypeNumber},
	"float":    {typ: TypeNumber},
	"decimal":  {typ: TypeNumber},
	"boolean":  {typ: TypeBoolean},
	"bool":     {typ: TypeBoolean},
	"datetime": {typ: TypeString, format: FormatDateTime},
	"date":     {typ: TypeString, format: FormatDateTime},
	"json":     {typ: TypeObject},
	"bytes":    {typ: TypeString},
}

// Generate builds the validation schema of m. The schema is consulted only
// to resolve enum and model references. Identity fields are left out.
func Generate(schema *models.Schema, m *models.Model) *ValidationSchema {
	vs := &ValidationSchema{
		Type:       TypeObject,
		Properties: orderedmap.New[string, *Property](),
		Required:   []string{},
	}
	if m == nil {
		return vs
	}

	for i := range m.Fields {
		f := &m.Fields[i]
		if f.ID {
			continue
		}

		prop := scalarProperty(schema, f.Type)
		if f.Array {
			prop = &Property{Type: TypeArray, Items: prop}
		}
		if f.HasDefault() {
			prop.Default = f.Default
		}
		vs.Properties.Set(f.Name, prop)

		if !f.Optional && !f.HasDefault() && !f.Array {
			vs.Required = append(vs.Required, f.Name)
		}
	}
	return vs
}

// scalarProperty maps a declared type name to a property. Unknown names
// fall back to string.
func scalarProperty(schema *models.Schema, typeName string) *Property {
	if st, ok := primitives[strings.ToLower(typeName)]; ok {
		return &Property{Type: st.typ, Format: st.format}
	}
	if e := schema.Enum(typeName); e != nil {
		values := make([]string, len(e.Values))
		copy(values, e.Values)
		return &Property{Type: TypeString, Enum: values}
	}
	if schema.IsModel(typeName) {
		return &Property{Type: TypeObject}
	}
	return &Property{Type: TypeString}
}

// Defaults returns the properties that carry a default, in declaration order.
func (vs *ValidationSchema) Defaults() []FieldDefault {
	if vs == nil || vs.Properties == nil {
		return nil
	}
	var out []FieldDefault
	for pair := vs.Properties.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value != nil && pair.Value.Default != nil {
			out = append(out, FieldDefault{Field: pair.Key, Value: pair.Value.Default})
		}
	}
	return out
}

// Property returns the named property or nil.
func (vs *ValidationSchema) Property(name string) *Property {
	if vs == nil || vs.Properties == nil {
		return nil
	}
	p, _ := vs.Properties.Get(name)
	return p
}

// PropertyNames returns the property names in declaration order.
func (vs *ValidationSchema) PropertyNames() []string {
	if vs == nil || vs.Properties == nil {
		return nil
	}
	names := make([]string, 0, vs.Properties.Len())
	for pair := vs.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// MarshalIndent renders the on-disk document: two-space indent and a
// trailing newline.
func (vs *ValidationSchema) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(vs, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// GenerateAll builds validation schemas for every model, keyed by model name.
func GenerateAll(schema *models.Schema) map[string]*ValidationSchema {
	out := make(map[string]*ValidationSchema, len(schema.Models))
	for _, m := range schema.Models {
		out[m.Name] = Generate(schema, m)
	}
	return out
}
