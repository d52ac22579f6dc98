// Package gen emits Go source for synthesized schema expressions. Output is
// deterministic: one file per input file, statements in declaration order,
// formatted with go/format.
package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"

	"github.com/google-ai-go/googleai/internal/synth"
)

// DefaultSchemaImport is the import path of the schema package unless a type
// overrides it with schema_path.
const DefaultSchemaImport = "github.com/google-ai-go/googleai/schema"

// Unit is one type ready for emission.
type Unit struct {
	Name string

	// Interface selects the package-function form: interface types cannot
	// carry methods, so their schema is exposed as <Name>Schema().
	Interface bool

	Expr *synth.Expr
}

// File renders one generated file for the given units.
func File(pkgName string, units []*Unit, schemaImport string) ([]byte, error) {
	if schemaImport == "" {
		schemaImport = DefaultSchemaImport
	}
	for _, u := range units {
		if u.Expr.SchemaPath != nil {
			schemaImport = *u.Expr.SchemaPath
		}
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by schemagen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkgName)
	fmt.Fprintf(&b, "import schema %q\n", schemaImport)

	for _, u := range units {
		b.WriteByte('\n')
		if u.Interface {
			fmt.Fprintf(&b, "// %sSchema returns the derived schema for %s values.\n", u.Name, u.Name)
			fmt.Fprintf(&b, "func %sSchema() *schema.Schema {\n", u.Name)
		} else {
			fmt.Fprintf(&b, "// Schema returns the derived schema for %s values.\n", u.Name)
			fmt.Fprintf(&b, "func (%s) Schema() *schema.Schema {\n", u.Name)
		}
		w := &writer{b: &b}
		result := w.expr(u.Expr)
		fmt.Fprintf(&b, "\treturn %s\n}\n", result)
	}

	src, err := format.Source(b.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated code: %w\n%s", err, b.Bytes())
	}
	return src, nil
}

// writer emits the statement sequence of one schema body, numbering the
// intermediate variables s0, s1, ... in evaluation order.
type writer struct {
	b *bytes.Buffer
	n int
}

func (w *writer) fresh() string {
	v := fmt.Sprintf("s%d", w.n)
	w.n++
	return v
}

func (w *writer) linef(format string, args ...any) {
	fmt.Fprintf(w.b, "\t"+format+"\n", args...)
}

// expr emits the statements producing an expression's schema value and
// returns the variable that holds it.
func (w *writer) expr(e *synth.Expr) string {
	v := w.base(e)

	if e.Format != nil {
		w.linef("%s.Format = %s", v, formatConst(string(*e.Format)))
	}
	if e.Description != nil {
		w.linef("%s.Description = %s", v, strconv.Quote(*e.Description))
	}
	if e.Nullable != nil {
		w.linef("%s.Nullable = schema.Ptr(%t)", v, *e.Nullable)
	}
	if e.MinItems != nil {
		w.linef("%s.MinItems = %d", v, *e.MinItems)
	}
	if e.MaxItems != nil {
		w.linef("%s.MaxItems = %d", v, *e.MaxItems)
	}
	if len(e.Properties) > 0 {
		names := make([]string, len(e.Properties))
		for i, p := range e.Properties {
			names[i] = w.expr(p.Value)
		}
		w.linef("%s.Properties = map[string]*schema.Schema{", v)
		for i, p := range e.Properties {
			w.linef("\t%s: %s,", name(p.Name), names[i])
		}
		w.linef("}")
	}
	if len(e.Required) > 0 {
		w.b.WriteString("\t" + v + ".Required = []string{")
		for i, n := range e.Required {
			if i > 0 {
				w.b.WriteString(", ")
			}
			w.b.WriteString(name(n))
		}
		w.b.WriteString("}\n")
	}

	if e.Merge.Description != nil {
		w.linef("if %s.Description == \"\" {", v)
		w.linef("\t%s.Description = %s", v, strconv.Quote(*e.Merge.Description))
		w.linef("}")
	}
	if e.Merge.Nullable != nil {
		w.linef("if %s.Nullable == nil {", v)
		w.linef("\t%s.Nullable = schema.Ptr(%t)", v, *e.Merge.Nullable)
		w.linef("}")
	}
	if e.Merge.MinItems != nil {
		w.linef("if %s.MinItems == 0 {", v)
		w.linef("\t%s.MinItems = %d", v, *e.Merge.MinItems)
		w.linef("}")
	}
	if e.Merge.MaxItems != nil {
		w.linef("if %s.MaxItems == 0 {", v)
		w.linef("\t%s.MaxItems = %d", v, *e.Merge.MaxItems)
		w.linef("}")
	}
	return v
}

// base emits the head of the expression and returns its variable.
func (w *writer) base(e *synth.Expr) string {
	switch e.Base.Kind {
	case synth.BaseRef:
		v := w.fresh()
		if e.Base.RefFunc {
			w.linef("%s := %sSchema()", v, e.Base.Ref)
		} else {
			w.linef("%s := new(%s).Schema()", v, e.Base.Ref)
		}
		return v

	case synth.BaseOverride:
		v := w.fresh()
		w.linef("%s := %s()", v, e.Base.Func)
		return v

	case synth.BaseOverrideGeneric:
		arg := w.expr(e.Base.Arg)
		v := w.fresh()
		w.linef("%s := %s(%s)", v, e.Base.Func, arg)
		return v
	}

	switch e.Base.Constructor {
	case "Enum":
		v := w.fresh()
		w.b.WriteString("\t" + v + " := schema.Enum(")
		for i, n := range e.EnumValues {
			if i > 0 {
				w.b.WriteString(", ")
			}
			w.b.WriteString(name(n))
		}
		w.b.WriteString(")\n")
		return v

	case "Slice":
		items := w.expr(e.Items)
		v := w.fresh()
		w.linef("%s := schema.Slice(%s)", v, items)
		return v

	case "ArrayOf":
		items := w.expr(e.Items)
		v := w.fresh()
		w.linef("%s := schema.ArrayOf(%d, %s)", v, e.Base.Len, items)
		return v

	case "New":
		v := w.fresh()
		w.linef("%s := schema.New(schema.Type%s)", v, e.Base.TypeArg)
		return v
	}

	v := w.fresh()
	w.linef("%s := schema.%s()", v, e.Base.Constructor)
	return v
}

// name renders a property or enum-value name: a string literal, or a call of
// the rename_all_with function.
func name(n synth.Name) string {
	if n.Fn != "" {
		return fmt.Sprintf("%s(%s)", n.Fn, strconv.Quote(n.Text))
	}
	return strconv.Quote(n.Text)
}

// formatConst renders a format value as its schema package constant.
func formatConst(f string) string {
	switch f {
	case "float":
		return "schema.FormatFloat"
	case "double":
		return "schema.FormatDouble"
	case "int32":
		return "schema.FormatInt32"
	case "int64":
		return "schema.FormatInt64"
	case "enum":
		return "schema.FormatEnum"
	}
	return fmt.Sprintf("schema.Format(%s)", strconv.Quote(f))
}
