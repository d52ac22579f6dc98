// Package source loads annotated Go type declarations and translates them
// into the shape form the synthesizer consumes. It works on syntax alone:
// the declared text of a field's type decides its schema, the same way the
// declared tags and directives decide its attributes, with no dependency on
// type-checked package information.
//
// A type participates in generation when its doc comment carries the
// //schema:derive directive. Other //schema: lines supply type-level
// attributes, //schema:tuple marks a struct's fields as positional, and
// //schema:variant attaches enum-variant attributes to an implementing type.
package source

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google-ai-go/googleai/internal/synth"
)

// Decl is one derived type declaration.
type Decl struct {
	Type *synth.Type

	// File is the base name of the declaring source file; generated output
	// is grouped by it.
	File string

	// Interface marks data enums, which get a package-level schema function
	// instead of a method.
	Interface bool
}

// Package is the loaded view of one directory.
type Package struct {
	Name  string
	Dir   string
	Decls []*Decl
}

// LoadDir parses every non-test Go file in dir and collects the derived
// declarations. Previously generated files are skipped so regeneration never
// reads its own output.
func LoadDir(dir string) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	var files []*ast.File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") ||
			strings.HasSuffix(name, "_test.go") || strings.HasSuffix(name, ".gen.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go source files in %s", dir)
	}

	pkg, err := load(fset, files)
	if err != nil {
		return nil, err
	}
	pkg.Dir = dir
	return pkg, nil
}

// typeDecl is a collected type declaration before shape analysis.
type typeDecl struct {
	spec *ast.TypeSpec
	doc  *ast.CommentGroup
	file string
}

// constVariant is one const spec belonging to a data-less enum.
type constVariant struct {
	name string
	doc  *ast.CommentGroup
	pos  token.Position
}

type loader struct {
	fset  *token.FileSet
	decls map[string]typeDecl
	order []string

	// consts groups const names by their declared type, preserving the
	// implicit type carry-over inside const blocks.
	consts map[string][]constVariant

	// impls maps an unexported marker-method name to the receiver types
	// declaring it, in source order.
	impls map[string][]string
}

func load(fset *token.FileSet, files []*ast.File) (*Package, error) {
	l := &loader{
		fset:   fset,
		decls:  make(map[string]typeDecl),
		consts: make(map[string][]constVariant),
		impls:  make(map[string][]string),
	}
	for _, f := range files {
		l.collect(f)
	}

	pkg := &Package{Name: files[0].Name.Name}
	for _, name := range l.order {
		d := l.decls[name]
		if !hasDirective(d.doc, "derive") {
			continue
		}
		decl, err := l.build(name, d)
		if err != nil {
			return nil, err
		}
		pkg.Decls = append(pkg.Decls, decl)
	}
	return pkg, nil
}

func (l *loader) collect(f *ast.File) {
	fileName := filepath.Base(l.fset.Position(f.Pos()).Filename)
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			switch d.Tok {
			case token.TYPE:
				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)
					doc := ts.Doc
					if doc == nil {
						doc = d.Doc
					}
					name := ts.Name.Name
					if _, dup := l.decls[name]; !dup {
						l.order = append(l.order, name)
					}
					l.decls[name] = typeDecl{spec: ts, doc: doc, file: fileName}
				}
			case token.CONST:
				// The declared type carries over to specs that omit it,
				// which is how iota blocks are written.
				carried := ""
				for _, spec := range d.Specs {
					vs := spec.(*ast.ValueSpec)
					if ident, ok := vs.Type.(*ast.Ident); ok {
						carried = ident.Name
					} else if vs.Type != nil {
						carried = ""
					}
					if carried == "" {
						continue
					}
					for _, n := range vs.Names {
						if n.Name == "_" {
							continue
						}
						l.consts[carried] = append(l.consts[carried], constVariant{
							name: n.Name,
							doc:  vs.Doc,
							pos:  l.fset.Position(n.Pos()),
						})
					}
				}
			}
		case *ast.FuncDecl:
			if d.Recv == nil || len(d.Recv.List) != 1 || d.Name.IsExported() {
				continue
			}
			if d.Type.Params.NumFields() != 0 || d.Type.Results.NumFields() != 0 {
				continue
			}
			recv := d.Recv.List[0].Type
			if star, ok := recv.(*ast.StarExpr); ok {
				recv = star.X
			}
			if ident, ok := recv.(*ast.Ident); ok {
				l.impls[d.Name.Name] = append(l.impls[d.Name.Name], ident.Name)
			}
		}
	}
}

func (l *loader) build(name string, d typeDecl) (*Decl, error) {
	pos := l.fset.Position(d.spec.Pos())
	t := &synth.Type{
		Name: name,
		Raws: commentRaws(d.doc, l.fset),
		Pos:  pos,
	}
	decl := &Decl{Type: t, File: d.file}

	switch underlying := d.spec.Type.(type) {
	case *ast.StructType:
		tuple := hasDirective(d.doc, "tuple")
		fields, err := l.structFields(underlying, tuple)
		if err != nil {
			return nil, err
		}
		t.Fields = fields
		switch {
		case tuple:
			t.Shape = synth.ShapeTuple
		case len(fields) == 0:
			t.Shape = synth.ShapeUnit
		default:
			t.Shape = synth.ShapeNamedFields
		}

	case *ast.Ident:
		if builtinConstructor(underlying.Name) == "" {
			return nil, fmt.Errorf("%s: cannot derive a schema for %s: underlying type %s is not a basic type",
				pos, name, underlying.Name)
		}
		t.Shape = synth.ShapeDatalessEnum
		for _, c := range l.consts[name] {
			t.Variants = append(t.Variants, synth.Variant{
				Name: c.name,
				Raws: directiveRaws(c.doc, l.fset),
				Pos:  c.pos,
			})
		}

	case *ast.InterfaceType:
		marker, err := markerMethod(underlying, name, pos)
		if err != nil {
			return nil, err
		}
		t.Shape = synth.ShapeDataEnum
		decl.Interface = true
		for _, impl := range l.impls[marker] {
			v, err := l.variantFor(impl)
			if err != nil {
				return nil, err
			}
			t.Variants = append(t.Variants, v)
		}

	default:
		return nil, fmt.Errorf("%s: cannot derive a schema for %s: unsupported declaration %s",
			pos, name, types.ExprString(d.spec.Type))
	}

	return decl, nil
}

// markerMethod validates the data-enum interface shape: exactly one
// unexported niladic method.
func markerMethod(iface *ast.InterfaceType, name string, pos token.Position) (string, error) {
	var methods []*ast.Field
	for _, m := range iface.Methods.List {
		if _, ok := m.Type.(*ast.FuncType); ok {
			methods = append(methods, m)
		} else {
			return "", fmt.Errorf("%s: cannot derive a schema for %s: embedded interfaces and type unions are not supported", pos, name)
		}
	}
	if len(methods) != 1 || len(methods[0].Names) != 1 {
		return "", fmt.Errorf("%s: cannot derive a schema for %s: the interface must declare exactly one marker method", pos, name)
	}
	m := methods[0]
	if m.Names[0].IsExported() {
		return "", fmt.Errorf("%s: cannot derive a schema for %s: the marker method must be unexported", pos, name)
	}
	ft := m.Type.(*ast.FuncType)
	if ft.Params.NumFields() != 0 || ft.Results.NumFields() != 0 {
		return "", fmt.Errorf("%s: cannot derive a schema for %s: the marker method must take and return nothing", pos, name)
	}
	return m.Names[0].Name, nil
}

// variantFor builds the variant record for one implementing type. A type
// with a basic underlying kind contributes that kind's schema directly;
// anything else becomes a reference to the type's own derived schema.
func (l *loader) variantFor(impl string) (synth.Variant, error) {
	d, ok := l.decls[impl]
	if !ok {
		return synth.Variant{}, fmt.Errorf("variant type %s is declared outside the package", impl)
	}
	pos := l.fset.Position(d.spec.Pos())
	v := synth.Variant{
		Name: impl,
		Raws: variantRaws(d.doc, l.fset),
		Pos:  pos,
	}
	if ident, ok := d.spec.Type.(*ast.Ident); ok {
		if c := builtinConstructor(ident.Name); c != "" {
			v.Ref = synth.TypeRef{Kind: synth.RefBuiltin, Builtin: c, Display: impl}
			return v, nil
		}
	}
	v.Ref = synth.TypeRef{Kind: synth.RefNamed, Named: impl, Display: impl}
	return v, nil
}

func (l *loader) structFields(st *ast.StructType, tuple bool) ([]synth.Field, error) {
	var out []synth.Field
	for _, f := range st.Fields.List {
		ref, err := l.typeRef(f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", l.fset.Position(f.Pos()), err)
		}
		raws := commentRaws(f.Doc, l.fset)
		raws = append(raws, tagRaws(f.Tag, l.fset)...)
		pos := l.fset.Position(f.Pos())

		if len(f.Names) == 0 {
			// Embedded field: named by its type.
			if tuple {
				out = append(out, synth.Field{Ref: ref, Raws: raws, Pos: pos})
				continue
			}
			out = append(out, synth.Field{Name: embeddedName(f.Type), Ref: ref, Raws: raws, Pos: pos})
			continue
		}
		for _, n := range f.Names {
			if tuple {
				out = append(out, synth.Field{Ref: ref, Raws: raws, Pos: pos})
				continue
			}
			if !n.IsExported() {
				continue
			}
			out = append(out, synth.Field{Name: n.Name, Ref: ref, Raws: raws, Pos: pos})
		}
	}
	return out, nil
}

func embeddedName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return embeddedName(e.X)
	case *ast.SelectorExpr:
		return e.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(e.X)
	}
	return types.ExprString(expr)
}

// typeRef maps a type expression to its structural reference.
func (l *loader) typeRef(expr ast.Expr) (synth.TypeRef, error) {
	display := types.ExprString(expr)
	switch e := expr.(type) {
	case *ast.Ident:
		if c := builtinConstructor(e.Name); c != "" {
			return synth.TypeRef{Kind: synth.RefBuiltin, Builtin: c, Display: display}, nil
		}
		return l.namedRef(e.Name, display, nil), nil

	case *ast.StarExpr:
		elem, err := l.typeRef(e.X)
		if err != nil {
			return synth.TypeRef{}, err
		}
		return synth.TypeRef{Kind: synth.RefPointer, Elem: &elem, Display: display}, nil

	case *ast.ArrayType:
		elem, err := l.typeRef(e.Elt)
		if err != nil {
			return synth.TypeRef{}, err
		}
		if e.Len == nil {
			return synth.TypeRef{Kind: synth.RefSlice, Elem: &elem, Display: display}, nil
		}
		lit, ok := e.Len.(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			return synth.TypeRef{}, fmt.Errorf("cannot derive a schema for %s: the array length must be an integer literal", display)
		}
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return synth.TypeRef{}, err
		}
		return synth.TypeRef{Kind: synth.RefArray, Elem: &elem, Len: n, Display: display}, nil

	case *ast.SelectorExpr:
		return l.namedRef(display, display, nil), nil

	case *ast.IndexExpr:
		arg, err := l.typeRef(e.Index)
		if err != nil {
			return synth.TypeRef{}, err
		}
		return l.namedRef(display, display, &arg), nil

	case *ast.IndexListExpr:
		arg, err := l.typeRef(e.Indices[0])
		if err != nil {
			return synth.TypeRef{}, err
		}
		return l.namedRef(display, display, &arg), nil
	}
	return synth.TypeRef{}, fmt.Errorf("cannot derive a schema for %s", display)
}

func (l *loader) namedRef(name, display string, arg *synth.TypeRef) synth.TypeRef {
	ref := synth.TypeRef{Kind: synth.RefNamed, Named: name, Display: display, GenericArg: arg}
	if d, ok := l.decls[name]; ok {
		if _, iface := d.spec.Type.(*ast.InterfaceType); iface {
			ref.NamedFunc = true
		}
	}
	return ref
}

// builtinConstructor maps a predeclared type name to its schema constructor.
func builtinConstructor(name string) string {
	switch name {
	case "string":
		return "String"
	case "bool":
		return "Bool"
	case "int8", "int16", "int32", "uint8", "uint16", "uint32", "byte", "rune":
		return "Int32"
	case "int", "int64", "uint", "uint64", "uintptr":
		return "Int64"
	case "float32":
		return "Float32"
	case "float64":
		return "Float64"
	}
	return ""
}
