package source

import (
	"go/ast"
	"go/token"
	"reflect"
	"strings"

	"github.com/google-ai-go/googleai/internal/annotation"
)

const directivePrefix = "//schema:"

// directiveText returns the text after //schema: when the comment is a
// directive. Directives are machine lines, not doc text, and godoc hides
// them for the same reason.
func directiveText(c *ast.Comment) (string, bool) {
	if !strings.HasPrefix(c.Text, directivePrefix) {
		return "", false
	}
	return c.Text[len(directivePrefix):], true
}

// hasDirective reports whether the doc group carries the given bare marker.
func hasDirective(doc *ast.CommentGroup, marker string) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if text, ok := directiveText(c); ok && text == marker {
			return true
		}
	}
	return false
}

// commentRaws converts a doc comment group into raw annotations: directive
// attribute lists become primary-namespace raws, and plain doc lines become
// repeatable description values. A blank doc line is an explicitly empty
// value, which the resolver turns into a paragraph break; each non-blank
// line followed by another non-blank line gets a trailing space so direct
// concatenation keeps the word boundary.
func commentRaws(doc *ast.CommentGroup, fset *token.FileSet) []annotation.Raw {
	if doc == nil {
		return nil
	}
	var out []annotation.Raw
	var descIdx []int

	for _, c := range doc.List {
		pos := fset.Position(c.Pos())
		if text, ok := directiveText(c); ok {
			switch {
			case text == "derive", text == "tuple":
				// Shape markers, not attributes.
			case text == "variant" || strings.HasPrefix(text, "variant "):
				// Consumed by variantRaws in the enum context.
			default:
				out = append(out, parseAttrList(text, pos, false)...)
			}
			continue
		}
		line := strings.TrimPrefix(c.Text, "//")
		line = strings.TrimPrefix(line, " ")
		line = strings.TrimRight(line, " \t")
		descIdx = append(descIdx, len(out))
		out = append(out, annotation.Raw{
			Namespace: annotation.NamespaceSchema,
			Key:       "description",
			Value:     line,
			HasValue:  true,
			FromDoc:   true,
			Pos:       pos,
		})
	}

	// Drop trailing blank doc lines (the gap before a directive block) and
	// join adjacent text lines with a space.
	for len(descIdx) > 0 && out[descIdx[len(descIdx)-1]].Value == "" {
		last := descIdx[len(descIdx)-1]
		out = append(out[:last], out[last+1:]...)
		descIdx = descIdx[:len(descIdx)-1]
	}
	for i := 0; i+1 < len(descIdx); i++ {
		cur, next := &out[descIdx[i]], &out[descIdx[i+1]]
		if cur.Value != "" && next.Value != "" {
			cur.Value += " "
		}
	}
	return out
}

// directiveRaws extracts only directive attribute lists, ignoring doc text.
// Data-less enum constants use it: their doc text is ordinary Go
// documentation, not schema description, and description is not a valid
// variant attribute anyway.
func directiveRaws(doc *ast.CommentGroup, fset *token.FileSet) []annotation.Raw {
	if doc == nil {
		return nil
	}
	var out []annotation.Raw
	for _, c := range doc.List {
		text, ok := directiveText(c)
		if !ok || text == "derive" || text == "tuple" ||
			text == "variant" || strings.HasPrefix(text, "variant ") {
			continue
		}
		out = append(out, parseAttrList(text, fset.Position(c.Pos()), false)...)
	}
	return out
}

// variantRaws extracts the //schema:variant attribute lists of a type that
// implements a data enum. The type's other directives belong to its own
// schema, so the enum context reads only the variant lines.
func variantRaws(doc *ast.CommentGroup, fset *token.FileSet) []annotation.Raw {
	if doc == nil {
		return nil
	}
	var out []annotation.Raw
	for _, c := range doc.List {
		text, ok := directiveText(c)
		if !ok || !strings.HasPrefix(text, "variant ") {
			continue
		}
		out = append(out, parseAttrList(text[len("variant "):], fset.Position(c.Pos()), false)...)
	}
	return out
}

// tagRaws converts a field's struct tag into raw annotations: the schema key
// feeds the primary namespace and the json key the secondary one.
func tagRaws(tag *ast.BasicLit, fset *token.FileSet) []annotation.Raw {
	if tag == nil {
		return nil
	}
	pos := fset.Position(tag.Pos())
	st := reflect.StructTag(strings.Trim(tag.Value, "`"))

	var out []annotation.Raw
	if v, ok := st.Lookup("schema"); ok {
		out = append(out, parseAttrList(v, pos, false)...)
	}
	if v, ok := st.Lookup("json"); ok {
		parts := strings.Split(v, ",")
		if parts[0] == "-" && len(parts) == 1 {
			out = append(out, annotation.Raw{Namespace: annotation.NamespaceJSON, Key: "skip", Pos: pos})
		} else {
			if parts[0] != "" {
				out = append(out, annotation.Raw{
					Namespace: annotation.NamespaceJSON,
					Key:       "rename",
					Value:     parts[0],
					HasValue:  true,
					Pos:       pos,
				})
			}
			for _, opt := range parts[1:] {
				if opt != "" {
					out = append(out, annotation.Raw{Namespace: annotation.NamespaceJSON, Key: opt, Pos: pos})
				}
			}
		}
	}
	return out
}

// parseAttrList splits a comma-separated k=v list into primary-namespace
// raws. Values cannot contain commas; free text belongs in doc comments.
func parseAttrList(s string, pos token.Position, fromDoc bool) []annotation.Raw {
	var out []annotation.Raw
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, value, hasValue := strings.Cut(item, "=")
		out = append(out, annotation.Raw{
			Namespace: annotation.NamespaceSchema,
			Key:       key,
			Value:     value,
			HasValue:  hasValue,
			FromDoc:   fromDoc,
			Pos:       pos,
		})
	}
	return out
}
