// Package schema provides field-level validation for collection documents.
//
// A Schema is an ordered list of fields. Each field carries a FieldSpec that
// is either a bare primitive type or a type plus a validator function.
// Validation checks declared fields in order and stops at the first failure.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
)

// Type is the primitive JSON kind a field must hold.
type Type int

const (
	String Type = iota + 1
	Number
	Boolean
)

func (t Type) String() string {
	switch t {
	case String:
		return "String"
	case Number:
		return "Number"
	case Boolean:
		return "Boolean"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// matches reports whether v is a value of kind t as produced by JSON decoding
// or by Go callers building documents by hand.
func (t Type) matches(v any) bool {
	switch t {
	case String:
		_, ok := v.(string)
		return ok
	case Number:
		switch v.(type) {
		case float64, float32, int, int32, int64, json.Number:
			return true
		}
		return false
	case Boolean:
		_, ok := v.(bool)
		return ok
	}
	return false
}

// Validator inspects a field value and returns a non-empty message when the
// value is not acceptable.
type Validator func(value any) string

// FieldSpec describes one field. Build it with Primitive or Validated.
type FieldSpec struct {
	typ      Type
	validate Validator
}

// Primitive is a FieldSpec that only checks the value's type.
func Primitive(t Type) FieldSpec {
	return FieldSpec{typ: t}
}

// Validated is a FieldSpec that checks the value's type, then runs fn.
func Validated(t Type, fn Validator) FieldSpec {
	return FieldSpec{typ: t, validate: fn}
}

// Type returns the declared type.
func (f FieldSpec) Type() Type {
	return f.typ
}

// HasValidator reports whether the spec carries a validator function.
func (f FieldSpec) HasValidator() bool {
	return f.validate != nil
}

// Field pairs a field name with its spec.
type Field struct {
	Name string
	Spec FieldSpec
}

// Schema is an immutable, ordered set of field declarations.
type Schema struct {
	fields []Field
}

// New builds a Schema from fields in declaration order.
// It returns an error on empty or duplicate names or on an unknown type.
func New(fields ...Field) (*Schema, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema: empty field name")
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("schema: duplicate field %q", f.Name)
		}
		if f.Spec.typ < String || f.Spec.typ > Boolean {
			return nil, fmt.Errorf("schema: field %q has unknown type %v", f.Name, f.Spec.typ)
		}
		seen[f.Name] = true
	}
	return &Schema{fields: slices.Clone(fields)}, nil
}

// MustNew is like New but panics on error. For package-level schemas.
func MustNew(fields ...Field) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the declared field names in order.
func (s *Schema) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Has reports whether name is a declared field.
func (s *Schema) Has(name string) bool {
	return slices.ContainsFunc(s.fields, func(f Field) bool { return f.Name == name })
}

// Validate checks doc against the declared fields and returns a new document
// holding only the declared fields present in doc. Absent fields are skipped;
// undeclared fields are dropped. The first failing field aborts validation.
func (s *Schema) Validate(doc map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		v, ok := doc[f.Name]
		if !ok {
			continue
		}
		if !f.Spec.typ.matches(v) {
			return nil, &ValidationError{
				Field:   f.Name,
				Message: fmt.Sprintf("invalid type for field %s: expected %s, got %s", f.Name, f.Spec.typ, jsonType(v)),
			}
		}
		if f.Spec.validate != nil {
			if msg := f.Spec.validate(v); msg != "" {
				return nil, &ValidationError{
					Field:   f.Name,
					Message: fmt.Sprintf("validation failed for field %s: %s", f.Name, msg),
				}
			}
		}
		out[f.Name] = v
	}
	return out, nil
}

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func jsonType(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	default:
		return reflect.TypeOf(v).String()
	}
}
