// Package schema defines the structured output schema embedded in generation
// requests. It is a subset of the OpenAPI 3.0 schema object as accepted by the
// Generative Language API.
//
// Values are usually produced ahead of time by the schemagen tool (see
// cmd/schemagen), which derives them from annotated Go type declarations, but
// they can also be built by hand with the constructors in this package.
package schema

import (
	"encoding/json"
	"fmt"
)

// Type is the data type of a schema node. Exactly one type applies per node.
type Type int32

const (
	// TypeUnspecified is the zero type. It is emitted for heterogeneous
	// tuple items whose element type cannot be expressed.
	TypeUnspecified Type = iota
	TypeString
	TypeNumber
	TypeInteger
	TypeBoolean
	TypeArray
	TypeObject
)

// typeNames maps a Type to its attribute-surface spelling.
var typeNames = map[Type]string{
	TypeUnspecified: "Unspecified",
	TypeString:      "String",
	TypeNumber:      "Number",
	TypeInteger:     "Integer",
	TypeBoolean:     "Boolean",
	TypeArray:       "Array",
	TypeObject:      "Object",
}

// apiNames maps a Type to the wire enum name used by the REST API.
var apiNames = map[Type]string{
	TypeUnspecified: "TYPE_UNSPECIFIED",
	TypeString:      "STRING",
	TypeNumber:      "NUMBER",
	TypeInteger:     "INTEGER",
	TypeBoolean:     "BOOLEAN",
	TypeArray:       "ARRAY",
	TypeObject:      "OBJECT",
}

// TypeNames returns the recognized type names in declaration order.
func TypeNames() []string {
	return []string{"Unspecified", "String", "Number", "Integer", "Boolean", "Array", "Object"}
}

// ParseType converts an attribute value ("String", "Object", ...) to a Type.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return TypeUnspecified, fmt.Errorf("invalid type %q", s)
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// MarshalJSON encodes the type as the REST enum name.
func (t Type) MarshalJSON() ([]byte, error) {
	name, ok := apiNames[t]
	if !ok {
		return nil, fmt.Errorf("schema: cannot marshal %v", t)
	}
	return json.Marshal(name)
}

// UnmarshalJSON accepts either the REST enum name or the proto enum number.
func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		for typ, api := range apiNames {
			if api == name {
				*t = typ
				return nil
			}
		}
		return fmt.Errorf("schema: unknown type %q", name)
	}
	var n int32
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Type(n)
	return nil
}

// Format refines a primitive Type. The empty format is valid for every type;
// the non-empty formats pair only with the types listed in CompatibleWith.
type Format string

const (
	FormatNone   Format = ""
	FormatFloat  Format = "float"
	FormatDouble Format = "double"
	FormatInt32  Format = "int32"
	FormatInt64  Format = "int64"
	FormatEnum   Format = "enum"
)

// FormatNames returns the recognized non-empty format names.
func FormatNames() []string {
	return []string{"float", "double", "int32", "int64", "enum"}
}

// ParseFormat converts an attribute value to a Format. The empty string is
// the "no format" value and is always accepted.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatNone, FormatFloat, FormatDouble, FormatInt32, FormatInt64, FormatEnum:
		return Format(s), nil
	}
	return FormatNone, fmt.Errorf("invalid format %q", s)
}

// CompatibleWith reports whether the type/format pairing is allowed:
// String pairs with enum, Number and Integer pair with the numeric formats,
// and every type pairs with the empty format.
func (t Type) CompatibleWith(f Format) bool {
	switch {
	case f == FormatNone:
		return true
	case t == TypeString:
		return f == FormatEnum
	case t == TypeNumber || t == TypeInteger:
		return f == FormatFloat || f == FormatDouble || f == FormatInt32 || f == FormatInt64
	default:
		return false
	}
}

// Schema describes the shape the model's output must conform to.
//
// Nullable is a pointer so that "not set" is distinguishable from an explicit
// false: an unset value means the structural default applies.
type Schema struct {
	Type        Type      `json:"type,omitempty"`
	Format      Format    `json:"format,omitempty"`
	Description string    `json:"description,omitempty"`
	Nullable    *bool     `json:"nullable,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Schema   `json:"items,omitempty"`
	MinItems    int64     `json:"minItems,omitempty,string"`
	MaxItems    int64     `json:"maxItems,omitempty,string"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string  `json:"required,omitempty"`
}

// Definer is implemented by types whose schema was generated by schemagen,
// and may be implemented by hand for manual construction.
type Definer interface {
	Schema() *Schema
}

// Validate checks the structural invariants of the schema tree: type/format
// compatibility, and that required names are a subset of property keys.
func (s *Schema) Validate() error {
	if s == nil {
		return nil
	}
	if !s.Type.CompatibleWith(s.Format) {
		return fmt.Errorf("schema: format %q not supported for type %v", s.Format, s.Type)
	}
	if len(s.Required) > len(s.Properties) {
		return fmt.Errorf("schema: %d required names but only %d properties", len(s.Required), len(s.Properties))
	}
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok {
			return fmt.Errorf("schema: required name %q is not a property", name)
		}
	}
	if err := s.Items.Validate(); err != nil {
		return err
	}
	for name, p := range s.Properties {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}
	return nil
}
