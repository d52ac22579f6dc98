// Package synth builds schema expressions from a type's structural shape and
// its resolved attributes. The output is an expression tree rather than a
// schema value: references to other derived types and custom schema functions
// can only be evaluated in generated code, so the tree distinguishes literal
// slots from deferred base calls and from conditional merges.
package synth

import (
	"fmt"
	"go/token"

	"github.com/google-ai-go/googleai/internal/annotation"
	"github.com/google-ai-go/googleai/internal/caseconv"
	"github.com/google-ai-go/googleai/schema"
)

// Shape is the structural kind of an input type.
type Shape int

const (
	ShapeUnit Shape = iota
	ShapeNamedFields
	ShapeTuple
	ShapeDatalessEnum
	ShapeDataEnum
)

// Type is one annotated type declaration in shape form.
type Type struct {
	Name     string
	Shape    Shape
	Raws     []annotation.Raw
	Fields   []Field   // NamedFields and Tuple
	Variants []Variant // DatalessEnum and DataEnum
	Pos      token.Position
}

// Field is a struct field. Name is empty for tuple positions.
type Field struct {
	Name string
	Ref  TypeRef
	Raws []annotation.Raw
	Pos  token.Position
}

// Variant is one enum variant. Ref is the payload for data-carrying enums and
// the zero value for data-less ones.
type Variant struct {
	Name string
	Ref  TypeRef
	Raws []annotation.Raw
	Pos  token.Position
}

// RefKind classifies a field's type expression.
type RefKind int

const (
	RefBuiltin RefKind = iota
	RefNamed
	RefPointer
	RefSlice
	RefArray
)

// TypeRef is the structural description of a Go type expression.
type TypeRef struct {
	Kind RefKind

	// Builtin names the schema constructor for a basic type: String, Bool,
	// Int32, Int64, Float32, Float64.
	Builtin string

	// Named is the (possibly package-qualified) name of a derived type.
	// NamedFunc selects the package-function calling convention used for
	// interface types, which cannot carry methods of their own.
	Named     string
	NamedFunc bool

	Elem *TypeRef // RefPointer, RefSlice, RefArray
	Len  int64    // RefArray

	// GenericArg is the first type argument of a generic instantiation,
	// consumed by as_schema_generic.
	GenericArg *TypeRef

	// Display is the Go source text of the type, used for tuple
	// homogeneity checks and error messages.
	Display string
}

// BaseKind selects how an expression's base schema value is produced.
type BaseKind int

const (
	// BaseBuiltin calls a constructor from the schema package.
	BaseBuiltin BaseKind = iota
	// BaseRef calls another derived type's Schema method (or package
	// function, for interface types).
	BaseRef
	// BaseOverride calls an as_schema function directly.
	BaseOverride
	// BaseOverrideGeneric calls an as_schema_generic function with the
	// wrapped type's schema as its argument.
	BaseOverrideGeneric
)

// Base is the deferred head of a schema expression.
type Base struct {
	Kind BaseKind

	Constructor string      // BaseBuiltin: String, Bool, ..., Enum, Slice, ArrayOf, New, Object, Unspecified
	TypeArg     schema.Type // Constructor "New"
	Len         int64       // Constructor "ArrayOf"

	Ref     string // BaseRef
	RefFunc bool

	Func string // BaseOverride, BaseOverrideGeneric
	Arg  *Expr  // BaseOverrideGeneric
}

// Name is a property or enum-value name. When Fn is set the final name is
// computed in generated code by calling Fn with Text; otherwise Text is the
// final name.
type Name struct {
	Text string
	Fn   string
}

// Property is one ordered object property.
type Property struct {
	Name  Name
	Value *Expr
}

// Merge holds values applied only where the base schema left the slot unset.
// It implements the don't-clobber rule for transparent tuple wrappers and
// custom schema overrides.
type Merge struct {
	Description *string
	Nullable    *bool
	MinItems    *int64
	MaxItems    *int64
}

// Expr is a synthesized schema expression. Non-nil scalar fields and non-empty
// collections are assigned unconditionally after the base is constructed;
// Merge fields are assigned only if the base left them unset.
type Expr struct {
	Base Base

	Format      *schema.Format
	Description *string
	Nullable    *bool
	MinItems    *int64
	MaxItems    *int64
	EnumValues  []Name
	Items       *Expr
	Properties  []Property
	Required    []Name

	Merge Merge

	// SchemaPath overrides the import path of the schema package in
	// generated code.
	SchemaPath *string
}

func errorf(pos token.Position, format string, args ...any) error {
	return &annotation.Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Synthesize resolves a type's attributes and dispatches on its shape.
func Synthesize(t *Type) (*Expr, error) {
	top, err := annotation.ResolveTop(t.Raws)
	if err != nil {
		return nil, err
	}
	if top.RenameAll != nil && top.RenameAllWith != nil {
		return nil, errorf(top.RenameAllWithPos,
			"schema attributes rename_all and rename_all_with are mutually exclusive")
	}

	var e *Expr
	switch t.Shape {
	case ShapeUnit:
		e = unitExpr(top)
	case ShapeNamedFields:
		e, err = structExpr(t, top)
	case ShapeTuple:
		e, err = tupleExpr(t, top)
	case ShapeDatalessEnum:
		e, err = datalessEnumExpr(t, top)
	case ShapeDataEnum:
		e, err = dataEnumExpr(t, top)
	default:
		return nil, errorf(t.Pos, "cannot derive a schema for type %s", t.Name)
	}
	if err != nil {
		return nil, err
	}
	e.SchemaPath = top.SchemaPath
	return e, nil
}

func builtin(constructor string) Base {
	return Base{Kind: BaseBuiltin, Constructor: constructor}
}

func unitExpr(top *annotation.TopAttr) *Expr {
	e := &Expr{Base: builtin("Object")}
	applyTop(e, top)
	return e
}

// applyTop copies the type-level description and nullability onto the
// expression unconditionally.
func applyTop(e *Expr, top *annotation.TopAttr) {
	if top.Description != nil {
		e.Description = top.Description
	}
	if top.Nullable != nil {
		e.Nullable = top.Nullable
	}
}

// itemName computes the final exported name of a field or variant. An
// explicit rename always wins; a rename_all_with function defers the rename
// to generated code; a rename_all style converts here. Go field and variant
// identifiers are Pascal-shaped, so the variant-direction converter applies
// to both.
func itemName(orig string, rename *string, top *annotation.TopAttr) Name {
	switch {
	case rename != nil:
		return Name{Text: *rename}
	case top.RenameAllWith != nil:
		return Name{Text: orig, Fn: *top.RenameAllWith}
	case top.RenameAll != nil:
		return Name{Text: caseconv.RenameAllVariants(*top.RenameAll, orig)}
	}
	return Name{Text: orig}
}

func structExpr(t *Type, top *annotation.TopAttr) (*Expr, error) {
	e := &Expr{Base: builtin("Object")}
	applyTop(e, top)

	for _, f := range t.Fields {
		attr, err := annotation.ResolveField(f.Raws, top)
		if err != nil {
			return nil, err
		}
		if attr.Skip != nil && *attr.Skip {
			continue
		}
		value, err := itemExpr(f.Ref, f.Pos, attr)
		if err != nil {
			return nil, err
		}
		name := itemName(f.Name, attr.Rename, top)
		e.Properties = append(e.Properties, Property{Name: name, Value: value})

		// A field the author marked nullable is presumed optional;
		// everything else is presumed mandatory.
		required := attr.Nullable == nil
		if attr.Required != nil {
			required = *attr.Required
		}
		if required {
			e.Required = append(e.Required, name)
		}
	}
	return e, nil
}

func tupleExpr(t *Type, top *annotation.TopAttr) (*Expr, error) {
	switch len(t.Fields) {
	case 0:
		return unitExpr(top), nil
	case 1:
		f := t.Fields[0]
		attr, err := annotation.ResolveTuple(f.Raws, top)
		if err != nil {
			return nil, err
		}
		e, err := itemExpr(f.Ref, f.Pos, attr)
		if err != nil {
			return nil, err
		}
		// Transparent passthrough: the wrapper contributes description and
		// nullability only where the inner schema left them unset.
		if top.Description != nil && e.Description == nil && e.Merge.Description == nil {
			e.Merge.Description = top.Description
		}
		if top.Nullable != nil && e.Nullable == nil && e.Merge.Nullable == nil {
			e.Merge.Nullable = top.Nullable
		}
		return e, nil
	}

	homogeneous := true
	annotated := false
	for _, f := range t.Fields {
		if _, err := annotation.ResolveTuple(f.Raws, top); err != nil {
			return nil, err
		}
		if f.Ref.Display != t.Fields[0].Ref.Display {
			homogeneous = false
		}
		for _, raw := range f.Raws {
			if raw.Namespace == annotation.NamespaceSchema && !raw.FromDoc {
				annotated = true
			}
		}
	}

	var items *Expr
	if homogeneous {
		var err error
		if items, err = refExpr(t.Fields[0].Ref, t.Fields[0].Pos); err != nil {
			return nil, err
		}
	} else {
		// Mixed element types collapse to an unspecified item schema, so
		// per-field constraints would be silently lost.
		if annotated {
			return nil, errorf(t.Pos,
				"schema attributes are not supported on mixed-type tuple fields; implement Schema for %s by hand instead", t.Name)
		}
		items = &Expr{Base: builtin("Unspecified")}
	}

	e := &Expr{
		Base:  Base{Kind: BaseBuiltin, Constructor: "ArrayOf", Len: int64(len(t.Fields))},
		Items: items,
	}
	applyTop(e, top)
	return e, nil
}

func datalessEnumExpr(t *Type, top *annotation.TopAttr) (*Expr, error) {
	e := &Expr{Base: builtin("Enum")}
	applyTop(e, top)

	for _, v := range t.Variants {
		attr, err := annotation.ResolveVariant(v.Raws, top)
		if err != nil {
			return nil, err
		}
		if attr.Skip != nil && *attr.Skip {
			continue
		}
		e.EnumValues = append(e.EnumValues, itemName(v.Name, attr.Rename, top))
	}
	return e, nil
}

func dataEnumExpr(t *Type, top *annotation.TopAttr) (*Expr, error) {
	e := &Expr{Base: builtin("Object")}
	applyTop(e, top)

	for _, v := range t.Variants {
		attr, err := annotation.ResolveField(v.Raws, top)
		if err != nil {
			return nil, err
		}
		if attr.Skip != nil && *attr.Skip {
			continue
		}
		value, err := itemExpr(v.Ref, v.Pos, attr)
		if err != nil {
			return nil, err
		}
		name := itemName(v.Name, attr.Rename, top)
		e.Properties = append(e.Properties, Property{Name: name, Value: value})

		// Only one variant is active at a time, so no variant is required
		// unless the author says so explicitly.
		if attr.Required != nil && *attr.Required {
			e.Required = append(e.Required, name)
		}
	}
	return e, nil
}

// itemExpr builds the schema expression for one field or variant: base
// selection (override function, explicit type, or structural recursion)
// followed by attribute application.
func itemExpr(ref TypeRef, pos token.Position, attr *annotation.Attr) (*Expr, error) {
	var e *Expr
	override := false

	switch {
	case attr.AsSchema != nil:
		e = &Expr{Base: Base{Kind: BaseOverride, Func: *attr.AsSchema}}
		override = true
	case attr.AsSchemaGeneric != nil:
		if ref.GenericArg == nil {
			return nil, errorf(pos, "schema attribute as_schema_generic requires a generic field type, got %s", ref.Display)
		}
		inner, err := refExpr(*ref.GenericArg, pos)
		if err != nil {
			return nil, err
		}
		e = &Expr{Base: Base{Kind: BaseOverrideGeneric, Func: *attr.AsSchemaGeneric, Arg: inner}}
		override = true
	case attr.Type != nil:
		typ, err := schema.ParseType(*attr.Type)
		if err != nil {
			return nil, errorf(attr.TypePos, "%v", err)
		}
		e = &Expr{Base: typeBase(typ)}
	default:
		var err error
		if e, err = refExpr(ref, pos); err != nil {
			return nil, err
		}
	}

	if attr.Format != nil {
		format, err := schema.ParseFormat(*attr.Format)
		if err != nil {
			return nil, errorf(pos, "%v", err)
		}
		if typ, known := staticType(e.Base); known && !typ.CompatibleWith(format) {
			return nil, errorf(pos, "format %q not supported for type %v", format, typ)
		}
		e.Format = &format
	}

	if override {
		e.Merge.Description = attr.Description
		e.Merge.Nullable = attr.Nullable
		e.Merge.MinItems = attr.MinItems
		e.Merge.MaxItems = attr.MaxItems
		return e, nil
	}
	if attr.Description != nil {
		e.Description = attr.Description
	}
	if attr.Nullable != nil {
		e.Nullable = attr.Nullable
	}
	if attr.MinItems != nil {
		e.MinItems = attr.MinItems
	}
	if attr.MaxItems != nil {
		e.MaxItems = attr.MaxItems
	}
	return e, nil
}

// typeBase picks the constructor for an explicitly declared type.
func typeBase(t schema.Type) Base {
	switch t {
	case schema.TypeUnspecified:
		return builtin("Unspecified")
	case schema.TypeString:
		return builtin("String")
	case schema.TypeBoolean:
		return builtin("Bool")
	case schema.TypeObject:
		return builtin("Object")
	}
	return Base{Kind: BaseBuiltin, Constructor: "New", TypeArg: t}
}

// refExpr maps a type reference to its structural schema expression.
func refExpr(ref TypeRef, pos token.Position) (*Expr, error) {
	switch ref.Kind {
	case RefBuiltin:
		return &Expr{Base: builtin(ref.Builtin)}, nil
	case RefNamed:
		return &Expr{Base: Base{Kind: BaseRef, Ref: ref.Named, RefFunc: ref.NamedFunc}}, nil
	case RefPointer:
		e, err := refExpr(*ref.Elem, pos)
		if err != nil {
			return nil, err
		}
		// A pointer field can hold nil, so the value may be null no matter
		// what the pointee's schema says.
		e.Nullable = schema.Ptr(true)
		return e, nil
	case RefSlice:
		items, err := refExpr(*ref.Elem, pos)
		if err != nil {
			return nil, err
		}
		return &Expr{Base: builtin("Slice"), Items: items}, nil
	case RefArray:
		items, err := refExpr(*ref.Elem, pos)
		if err != nil {
			return nil, err
		}
		return &Expr{
			Base:  Base{Kind: BaseBuiltin, Constructor: "ArrayOf", Len: ref.Len},
			Items: items,
		}, nil
	}
	return nil, errorf(pos, "cannot derive a schema for type %s", ref.Display)
}

// staticType reports the schema type a base constructor is known to produce.
// Refs and override functions are opaque until generated code runs.
func staticType(b Base) (schema.Type, bool) {
	if b.Kind != BaseBuiltin {
		return schema.TypeUnspecified, false
	}
	switch b.Constructor {
	case "String", "Enum":
		return schema.TypeString, true
	case "Bool":
		return schema.TypeBoolean, true
	case "Int32", "Int64":
		return schema.TypeInteger, true
	case "Float32", "Float64":
		return schema.TypeNumber, true
	case "Object":
		return schema.TypeObject, true
	case "Unspecified":
		return schema.TypeUnspecified, true
	case "Slice", "ArrayOf":
		return schema.TypeArray, true
	case "New":
		return b.TypeArg, true
	}
	return schema.TypeUnspecified, false
}
