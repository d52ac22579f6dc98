package schema

// Constructors for the schemas of ordinary Go types. Generated code calls
// these for builtin field types; they are also convenient for manual
// construction.

// New returns an empty schema of the given type.
func New(t Type) *Schema {
	return &Schema{Type: t}
}

// Unspecified returns the placeholder schema used for items whose type
// cannot be expressed.
func Unspecified() *Schema { return New(TypeUnspecified) }

// String returns the schema for a string value.
func String() *Schema { return New(TypeString) }

// Bool returns the schema for a boolean value.
func Bool() *Schema { return New(TypeBoolean) }

// Int32 returns the schema for a 32-bit (or narrower) integer.
func Int32() *Schema { return &Schema{Type: TypeInteger, Format: FormatInt32} }

// Int64 returns the schema for a 64-bit integer.
func Int64() *Schema { return &Schema{Type: TypeInteger, Format: FormatInt64} }

// Float32 returns the schema for a 32-bit floating point number.
func Float32() *Schema { return &Schema{Type: TypeNumber, Format: FormatFloat} }

// Float64 returns the schema for a 64-bit floating point number.
func Float64() *Schema { return &Schema{Type: TypeNumber, Format: FormatDouble} }

// Object returns an object schema with no properties.
func Object() *Schema { return New(TypeObject) }

// Enum returns a string schema restricted to the given values.
func Enum(values ...string) *Schema {
	return &Schema{Type: TypeString, Format: FormatEnum, Enum: values}
}

// Slice returns the schema for a Go slice with the given element schema.
//
// Slices are nullable: a nil slice serializes as JSON null, so the model is
// allowed to produce null where a slice-typed value is expected. See the
// TestSliceSchemaNullable coverage before changing this default.
func Slice(items *Schema) *Schema {
	nullable := true
	return &Schema{Type: TypeArray, Items: items, Nullable: &nullable}
}

// ArrayOf returns the schema for a fixed-length array of n elements.
func ArrayOf(n int64, items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items, MinItems: n, MaxItems: n}
}

// Nullable marks s nullable and returns it. Generated code applies it to
// pointer-typed fields.
func Nullable(s *Schema) *Schema {
	nullable := true
	s.Nullable = &nullable
	return s
}

// Ptr returns a pointer to v. Generated code uses it for the optional
// boolean fields of Schema.
func Ptr[T any](v T) *T { return &v }

// Of returns the schema of a Definer. It exists so call sites read naturally:
// schema.Of(Sensor{}).
func Of(d Definer) *Schema { return d.Schema() }
