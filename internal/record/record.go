// Package record defines the typed record schema shared by the grid engine
// and the backing store.
package record

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical display and persistence layout for date fields.
const DateLayout = "2006-01-02"

// FieldType describes how a field's value is interpreted and edited.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldBool
	FieldEnum
	FieldRef
)

// String returns a short name for the field type.
func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldDate:
		return "date"
	case FieldBool:
		return "bool"
	case FieldEnum:
		return "enum"
	case FieldRef:
		return "ref"
	default:
		return "unknown"
	}
}

// FieldSpec describes one named, typed column of the grid.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Editable bool
	Options  []string // fixed value set for FieldEnum
}

// Record is one persisted business entity, keyed by a stable identifier.
// Values holds every field in display/persistence form. Records are never
// mutated after publication; use Clone before changing one.
type Record struct {
	ID     string
	Values map[string]string
}

// Value returns the record's value for a field, or "" when absent.
func (r Record) Value(field string) string {
	return r.Values[field]
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	dup := Record{ID: r.ID}
	if r.Values != nil {
		dup.Values = make(map[string]string, len(r.Values))
		for k, v := range r.Values {
			dup.Values[k] = v
		}
	}
	return dup
}

// Schema is an ordered set of field specs with name lookup.
type Schema struct {
	fields []FieldSpec
	index  map[string]int
}

// NewSchema builds a schema from the given specs, preserving order.
func NewSchema(fields ...FieldSpec) Schema {
	s := Schema{
		fields: append([]FieldSpec(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

// Fields returns the specs in column order.
func (s Schema) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// Field looks up a spec by name.
func (s Schema) Field(name string) (FieldSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// Editable reports whether the named field accepts user edits.
func (s Schema) Editable(name string) bool {
	f, ok := s.Field(name)
	return ok && f.Editable
}

// EditableFields returns the names of all editable fields in column order.
func (s Schema) EditableFields() []string {
	var names []string
	for _, f := range s.fields {
		if f.Editable {
			names = append(names, f.Name)
		}
	}
	return names
}

// Validate checks a candidate value against the field's type before it is
// registered as an edit. Ref fields are validated by the resolver instead.
func (s Schema) Validate(field, value string) error {
	spec, ok := s.Field(field)
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	if !spec.Editable {
		return fmt.Errorf("field %q is read-only", field)
	}
	value = strings.TrimSpace(value)
	switch spec.Type {
	case FieldDate:
		if value == "" {
			return nil
		}
		if _, err := time.Parse(DateLayout, value); err != nil {
			return fmt.Errorf("field %q: invalid date %q (want %s)", field, value, DateLayout)
		}
	case FieldBool:
		if value != "true" && value != "false" {
			return fmt.Errorf("field %q: invalid bool %q", field, value)
		}
	case FieldEnum:
		for _, opt := range spec.Options {
			if value == opt {
				return nil
			}
		}
		return fmt.Errorf("field %q: %q is not one of %s", field, value, strings.Join(spec.Options, ", "))
	}
	return nil
}
