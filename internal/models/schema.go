// Package models defines the domain types for schemafill.
package models

// Field is one declared field of a model.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Array    bool   `json:"array,omitempty"`
	// Default is the resolved literal: string, bool, int64 or float64.
	// Nil when the field has no default or a function-style one.
	Default any `json:"default,omitempty"`
	// DefaultFunc names a function-style default such as "now" or "uuid".
	DefaultFunc string   `json:"default_func,omitempty"`
	ID          bool     `json:"id,omitempty"`
	Unique      bool     `json:"unique,omitempty"`
	Attributes  []string `json:"attributes,omitempty"`
}

// HasDefault reports whether the field carries a resolved default literal.
func (f *Field) HasDefault() bool {
	return f.Default != nil
}

// Model is a named record type.
type Model struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
	// MapName is the explicit storage name from @@map, empty when absent.
	MapName string `json:"map_name,omitempty"`
}

// Field returns the field with the given name or nil.
func (m *Model) Field(name string) *Field {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}

// Enum is a named list of value labels.
type Enum struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Schema is the parsed catalog of models and enums. It is never mutated
// after NewSchema returns.
type Schema struct {
	Models []*Model
	Enums  []*Enum

	models map[string]*Model
	enums  map[string]*Enum
}

// NewSchema builds a Schema and its name indexes. On duplicate names the
// first occurrence wins.
func NewSchema(models []*Model, enums []*Enum) *Schema {
	s := &Schema{
		models: make(map[string]*Model, len(models)),
		enums:  make(map[string]*Enum, len(enums)),
	}
	for _, m := range models {
		if _, dup := s.models[m.Name]; dup {
			continue
		}
		s.models[m.Name] = m
		s.Models = append(s.Models, m)
	}
	for _, e := range enums {
		if _, dup := s.enums[e.Name]; dup {
			continue
		}
		s.enums[e.Name] = e
		s.Enums = append(s.Enums, e)
	}
	return s
}

// Model returns the model with the given name or nil.
func (s *Schema) Model(name string) *Model {
	if s == nil {
		return nil
	}
	return s.models[name]
}

// Enum returns the enum with the given name or nil.
func (s *Schema) Enum(name string) *Enum {
	if s == nil {
		return nil
	}
	return s.enums[name]
}

// IsModel reports whether name is a declared model.
func (s *Schema) IsModel(name string) bool { return s.Model(name) != nil }

// IsEnum reports whether name is a declared enum.
func (s *Schema) IsEnum(name string) bool { return s.Enum(name) != nil }

// Empty reports whether the schema declares neither models nor enums.
func (s *Schema) Empty() bool {
	return s == nil || (len(s.Models) == 0 && len(s.Enums) == 0)
}

// SourceMetadata describes one schema source file.
type SourceMetadata struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}
