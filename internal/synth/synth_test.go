package synth

import (
	"strings"
	"testing"

	"github.com/google-ai-go/googleai/internal/annotation"
	"github.com/google-ai-go/googleai/schema"
)

func sraw(key, value string) annotation.Raw {
	return annotation.Raw{Namespace: annotation.NamespaceSchema, Key: key, Value: value, HasValue: true}
}

func sflag(key string) annotation.Raw {
	return annotation.Raw{Namespace: annotation.NamespaceSchema, Key: key}
}

func builtinRef(constructor, display string) TypeRef {
	return TypeRef{Kind: RefBuiltin, Builtin: constructor, Display: display}
}

func stringRef() TypeRef  { return builtinRef("String", "string") }
func float64Ref() TypeRef { return builtinRef("Float64", "float64") }

func requiredNames(e *Expr) []string {
	var out []string
	for _, n := range e.Required {
		out = append(out, n.Text)
	}
	return out
}

func TestUnitStruct(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:  "Marker",
		Shape: ShapeUnit,
		Raws:  []annotation.Raw{sraw("description", "an empty marker")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Base.Constructor != "Object" {
		t.Errorf("base: got %q, want Object", e.Base.Constructor)
	}
	if e.Description == nil || *e.Description != "an empty marker" {
		t.Errorf("description: got %v", e.Description)
	}
	if len(e.Properties) != 0 {
		t.Errorf("unit struct should have no properties, got %d", len(e.Properties))
	}
}

// TestStructRequiredInversion pins the requiredness defaults: a plain field
// is required, a nullable field is not, and an explicit required attribute
// wins over both defaults.
func TestStructRequiredInversion(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:  "Person",
		Shape: ShapeNamedFields,
		Fields: []Field{
			{Name: "Name", Ref: stringRef()},
			{Name: "Nickname", Ref: stringRef(), Raws: []annotation.Raw{sflag("nullable")}},
			{Name: "Email", Ref: stringRef(), Raws: []annotation.Raw{sflag("nullable"), sraw("required", "true")}},
			{Name: "Age", Ref: builtinRef("Int32", "int32"), Raws: []annotation.Raw{sraw("required", "false")}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := requiredNames(e)
	want := []string{"Name", "Email"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("required: got %v, want %v", got, want)
	}
	if len(e.Properties) != 4 {
		t.Errorf("properties: got %d, want 4", len(e.Properties))
	}
}

func TestStructRenamePrecedence(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Raws:  []annotation.Raw{sraw("rename_all", "camelCase")},
		Fields: []Field{
			{Name: "UserName", Ref: stringRef()},
			{Name: "HTTPStatus", Ref: builtinRef("Int32", "int32"), Raws: []annotation.Raw{sraw("rename", "status")}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Properties[0].Name.Text; got != "userName" {
		t.Errorf("rename_all: got %q, want userName", got)
	}
	if got := e.Properties[1].Name.Text; got != "status" {
		t.Errorf("explicit rename should win over rename_all: got %q", got)
	}
}

func TestRenameAllWithDefersToFunction(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:   "Doc",
		Shape:  ShapeNamedFields,
		Raws:   []annotation.Raw{sraw("rename_all_with", "toWire")},
		Fields: []Field{{Name: "UserName", Ref: stringRef()}},
	})
	if err != nil {
		t.Fatal(err)
	}
	name := e.Properties[0].Name
	if name.Fn != "toWire" || name.Text != "UserName" {
		t.Errorf("got %+v, want deferred toWire(UserName)", name)
	}
}

func TestRenameAllConflict(t *testing.T) {
	_, err := Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Raws: []annotation.Raw{
			sraw("rename_all", "camelCase"),
			sraw("rename_all_with", "toWire"),
		},
	})
	if err == nil {
		t.Fatal("expected mutual-exclusion error")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestSkipField(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Fields: []Field{
			{Name: "Kept", Ref: stringRef()},
			{Name: "Dropped", Ref: stringRef(), Raws: []annotation.Raw{sflag("skip")}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(e.Properties) != 1 || e.Properties[0].Name.Text != "Kept" {
		t.Errorf("skip should drop the field, got %v properties", len(e.Properties))
	}
}

// TestTuplePassthrough verifies the single-field wrapper rule: the outer
// description and nullability land in the merge slots, applied only where
// the inner schema left them unset.
func TestTuplePassthrough(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:   "Meters",
		Shape:  ShapeTuple,
		Raws:   []annotation.Raw{sraw("description", "a distance"), sflag("nullable")},
		Fields: []Field{{Ref: float64Ref()}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Base.Constructor != "Float64" {
		t.Errorf("passthrough base: got %q", e.Base.Constructor)
	}
	if e.Description != nil {
		t.Error("outer description must merge, not set")
	}
	if e.Merge.Description == nil || *e.Merge.Description != "a distance" {
		t.Errorf("merge description: got %v", e.Merge.Description)
	}
	if e.Merge.Nullable == nil || !*e.Merge.Nullable {
		t.Errorf("merge nullable: got %v", e.Merge.Nullable)
	}
}

func TestTuplePassthroughInnerWins(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:   "Meters",
		Shape:  ShapeTuple,
		Raws:   []annotation.Raw{sraw("description", "outer")},
		Fields: []Field{{Ref: float64Ref(), Raws: []annotation.Raw{sraw("description", "inner")}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Description == nil || *e.Description != "inner" {
		t.Errorf("inner description should stick: got %v", e.Description)
	}
	if e.Merge.Description != nil {
		t.Errorf("outer must not shadow an inner value: got %v", e.Merge.Description)
	}
}

func TestTupleHomogeneous(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:   "Point3",
		Shape:  ShapeTuple,
		Fields: []Field{{Ref: float64Ref()}, {Ref: float64Ref()}, {Ref: float64Ref()}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Base.Constructor != "ArrayOf" || e.Base.Len != 3 {
		t.Errorf("base: got %q len %d", e.Base.Constructor, e.Base.Len)
	}
	if e.Items == nil || e.Items.Base.Constructor != "Float64" {
		t.Errorf("items: got %+v", e.Items)
	}
}

func TestTupleHeterogeneous(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:   "Pair",
		Shape:  ShapeTuple,
		Fields: []Field{{Ref: stringRef()}, {Ref: float64Ref()}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Items == nil || e.Items.Base.Constructor != "Unspecified" {
		t.Errorf("mixed-type items should be unspecified, got %+v", e.Items)
	}

	_, err = Synthesize(&Type{
		Name:  "Pair",
		Shape: ShapeTuple,
		Fields: []Field{
			{Ref: stringRef(), Raws: []annotation.Raw{sraw("format", "enum")}},
			{Ref: float64Ref()},
		},
	})
	if err == nil {
		t.Fatal("expected error for annotated mixed-type tuple field")
	}
	if !strings.Contains(err.Error(), "by hand") {
		t.Errorf("error should point at the manual alternative: %v", err)
	}
}

// TestTupleDocCommentTolerated: doc text on a mixed-type tuple field is
// advisory and must not trip the annotation check.
func TestTupleDocCommentTolerated(t *testing.T) {
	doc := annotation.Raw{
		Namespace: annotation.NamespaceSchema,
		Key:       "description", Value: "first", HasValue: true, FromDoc: true,
	}
	_, err := Synthesize(&Type{
		Name:   "Pair",
		Shape:  ShapeTuple,
		Fields: []Field{{Ref: stringRef(), Raws: []annotation.Raw{doc}}, {Ref: float64Ref()}},
	})
	if err != nil {
		t.Fatalf("doc comment should not count as an annotation: %v", err)
	}
}

func TestDatalessEnum(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:  "Color",
		Shape: ShapeDatalessEnum,
		Raws:  []annotation.Raw{sraw("rename_all", "SCREAMING_SNAKE_CASE")},
		Variants: []Variant{
			{Name: "DeepRed"},
			{Name: "Green", Raws: []annotation.Raw{sraw("rename", "verde")}},
			{Name: "Hidden", Raws: []annotation.Raw{sflag("skip")}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Base.Constructor != "Enum" {
		t.Errorf("base: got %q", e.Base.Constructor)
	}
	got := make([]string, len(e.EnumValues))
	for i, v := range e.EnumValues {
		got[i] = v.Text
	}
	if len(got) != 2 || got[0] != "DEEP_RED" || got[1] != "verde" {
		t.Errorf("enum values: got %v", got)
	}
}

func TestDatalessEnumRejectsDescription(t *testing.T) {
	_, err := Synthesize(&Type{
		Name:     "Color",
		Shape:    ShapeDatalessEnum,
		Variants: []Variant{{Name: "Red", Raws: []annotation.Raw{sraw("description", "warm")}}},
	})
	if err == nil {
		t.Fatal("expected disallowed-attribute error")
	}
	if !strings.Contains(err.Error(), "disallowed schema attribute description") {
		t.Errorf("unexpected message: %v", err)
	}
}

// TestDataEnumVariantsNotRequired pins the variant requiredness default:
// never required unless explicitly marked, even though a standalone field of
// the same type would default to required.
func TestDataEnumVariantsNotRequired(t *testing.T) {
	ref := TypeRef{Kind: RefNamed, Named: "Circle", Display: "Circle"}
	e, err := Synthesize(&Type{
		Name:  "Part",
		Shape: ShapeDataEnum,
		Variants: []Variant{
			{Name: "Circle", Ref: ref},
			{Name: "Square", Ref: TypeRef{Kind: RefNamed, Named: "Square", Display: "Square"},
				Raws: []annotation.Raw{sraw("required", "true")}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(e.Properties) != 2 {
		t.Fatalf("properties: got %d", len(e.Properties))
	}
	got := requiredNames(e)
	if len(got) != 1 || got[0] != "Square" {
		t.Errorf("required: got %v, want only the explicitly marked variant", got)
	}
}

func TestExplicitTypeFormat(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Fields: []Field{{Name: "N", Ref: stringRef(), Raws: []annotation.Raw{
			sraw("type", "Integer"), sraw("format", "int32"),
		}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	v := e.Properties[0].Value
	if v.Base.Constructor != "New" || v.Base.TypeArg != schema.TypeInteger {
		t.Errorf("explicit type base: got %+v", v.Base)
	}
	if v.Format == nil || *v.Format != schema.FormatInt32 {
		t.Errorf("format: got %v", v.Format)
	}

	_, err = Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Fields: []Field{{Name: "N", Ref: stringRef(), Raws: []annotation.Raw{
			sraw("type", "String"), sraw("format", "float"),
		}}},
	})
	if err == nil {
		t.Fatal("expected incompatible type/format error")
	}
	if !strings.Contains(err.Error(), "float") || !strings.Contains(err.Error(), "String") {
		t.Errorf("error should name both values: %v", err)
	}
}

func TestStructuralFormatCheck(t *testing.T) {
	_, err := Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Fields: []Field{{Name: "S", Ref: stringRef(), Raws: []annotation.Raw{
			sraw("format", "float"),
		}}},
	})
	if err == nil {
		t.Fatal("expected error: float format on a string field")
	}
}

func TestPointerNullable(t *testing.T) {
	inner := stringRef()
	e, err := Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Fields: []Field{{Name: "Note", Ref: TypeRef{
			Kind: RefPointer, Elem: &inner, Display: "*string",
		}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	v := e.Properties[0].Value
	if v.Base.Constructor != "String" {
		t.Errorf("pointer base: got %q", v.Base.Constructor)
	}
	if v.Nullable == nil || !*v.Nullable {
		t.Errorf("pointer field should be nullable, got %v", v.Nullable)
	}
	// Nullable came structurally, not from an attribute, so the field still
	// defaults to required.
	if len(e.Required) != 1 {
		t.Errorf("pointer field without attributes stays required, got %v", requiredNames(e))
	}
}

func TestSliceAndArrayExprs(t *testing.T) {
	elem := stringRef()
	e, err := Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Fields: []Field{
			{Name: "Tags", Ref: TypeRef{Kind: RefSlice, Elem: &elem, Display: "[]string"}},
			{Name: "Pair", Ref: TypeRef{Kind: RefArray, Elem: &elem, Len: 2, Display: "[2]string"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	tags := e.Properties[0].Value
	if tags.Base.Constructor != "Slice" || tags.Items.Base.Constructor != "String" {
		t.Errorf("slice expr: %+v", tags)
	}
	pair := e.Properties[1].Value
	if pair.Base.Constructor != "ArrayOf" || pair.Base.Len != 2 {
		t.Errorf("array expr: %+v", pair.Base)
	}
}

func TestAsSchemaOverrideMerges(t *testing.T) {
	e, err := Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Fields: []Field{{Name: "Custom", Ref: stringRef(), Raws: []annotation.Raw{
			sraw("as_schema", "customSchema"),
			sraw("description", "override desc"),
		}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	v := e.Properties[0].Value
	if v.Base.Kind != BaseOverride || v.Base.Func != "customSchema" {
		t.Errorf("override base: got %+v", v.Base)
	}
	if v.Description != nil {
		t.Error("description on an override must merge, not set")
	}
	if v.Merge.Description == nil || *v.Merge.Description != "override desc" {
		t.Errorf("merge description: got %v", v.Merge.Description)
	}
}

func TestAsSchemaGeneric(t *testing.T) {
	arg := stringRef()
	e, err := Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Fields: []Field{{Name: "Wrapped", Ref: TypeRef{
			Kind: RefNamed, Named: "Boxed[string]", Display: "Boxed[string]", GenericArg: &arg,
		}, Raws: []annotation.Raw{sraw("as_schema_generic", "boxedSchema")}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	v := e.Properties[0].Value
	if v.Base.Kind != BaseOverrideGeneric || v.Base.Func != "boxedSchema" {
		t.Errorf("generic override base: got %+v", v.Base)
	}
	if v.Base.Arg == nil || v.Base.Arg.Base.Constructor != "String" {
		t.Errorf("generic argument: got %+v", v.Base.Arg)
	}

	_, err = Synthesize(&Type{
		Name:  "Doc",
		Shape: ShapeNamedFields,
		Fields: []Field{{Name: "Plain", Ref: stringRef(),
			Raws: []annotation.Raw{sraw("as_schema_generic", "boxedSchema")}}},
	})
	if err == nil {
		t.Fatal("expected error: as_schema_generic on a non-generic type")
	}
}

func TestLocalRefs(t *testing.T) {
	inner := TypeRef{Kind: RefNamed, Named: "Inner", Display: "Inner"}
	e, err := Synthesize(&Type{
		Name:  "Outer",
		Shape: ShapeNamedFields,
		Fields: []Field{
			{Name: "A", Ref: inner},
			{Name: "B", Ref: TypeRef{Kind: RefSlice, Elem: &inner, Display: "[]Inner"}},
			{Name: "C", Ref: TypeRef{Kind: RefNamed, Named: "Other", Display: "Other"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	refs := e.LocalRefs()
	if len(refs) != 2 || refs[0] != "Inner" || refs[1] != "Other" {
		t.Errorf("refs: got %v", refs)
	}
}

func TestDetectCycle(t *testing.T) {
	refTo := func(name string) *Expr {
		return &Expr{Base: Base{Kind: BaseRef, Ref: name}}
	}
	obj := func(target string) *Expr {
		return &Expr{
			Base:       Base{Kind: BaseBuiltin, Constructor: "Object"},
			Properties: []Property{{Name: Name{Text: "next"}, Value: refTo(target)}},
		}
	}

	if err := DetectCycle(map[string]*Expr{
		"A": obj("B"),
		"B": obj("External"),
	}); err != nil {
		t.Errorf("acyclic graph rejected: %v", err)
	}

	err := DetectCycle(map[string]*Expr{
		"A": obj("B"),
		"B": obj("A"),
	})
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") || !strings.Contains(err.Error(), "A") {
		t.Errorf("cycle error should name the participants: %v", err)
	}

	if err := DetectCycle(map[string]*Expr{"Self": obj("Self")}); err == nil {
		t.Error("self reference should be a cycle")
	}
}
