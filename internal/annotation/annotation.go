// Package annotation resolves the declarative annotations attached to types,
// fields, and enum variants into normalized attribute records.
//
// Annotations arrive as a flat list of raw key/value occurrences tagged with
// the namespace they came from. The primary namespace is "schema" (struct
// tags and //schema: directives); the secondary namespace is "json", which
// supplies rename and skip fallbacks the same way the tags drive encoding.
// Resolution is strict in the primary namespace and lenient ("finding" mode)
// in the secondary one, where keys that are not schema-relevant are simply
// not ours to validate.
package annotation

import (
	"fmt"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"github.com/google-ai-go/googleai/internal/caseconv"
)

// Namespace names for Raw annotations.
const (
	NamespaceSchema = "schema"
	NamespaceJSON   = "json"
)

// Raw is a single annotation occurrence before resolution: one key, an
// optional value, the namespace it appeared in, and the source position for
// error attribution.
type Raw struct {
	Namespace string
	Key       string
	Value     string
	HasValue  bool

	// FromDoc marks a description that came from a doc comment rather than
	// an explicit attribute. Doc text is advisory and never makes an item
	// count as "annotated" for placement checks.
	FromDoc bool

	Pos token.Position
}

// Error is a resolution failure attributed to the offending annotation.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return e.Msg
}

func errorf(pos token.Position, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Attr is the resolved attribute record for a field or variant. Nil fields
// were not supplied by either namespace.
type Attr struct {
	Description     *string
	Format          *string
	Type            *string
	AsSchema        *string
	AsSchemaGeneric *string
	Rename          *string
	Required        *bool
	MinItems        *int64
	MaxItems        *int64
	Nullable        *bool
	Skip            *bool

	// Pos attributes follow-on validation errors (such as an incompatible
	// type/format pairing) to the annotation that declared the type.
	TypePos token.Position
}

// TopAttr is the resolved attribute record for a whole type.
type TopAttr struct {
	Description   *string
	IgnoreSerde   *bool
	RenameAll     *string
	RenameAllWith *string
	SchemaPath    *string
	Nullable      *bool

	RenameAllWithPos token.Position
}

func (t *TopAttr) ignoreSerde() bool { return t.IgnoreSerde != nil && *t.IgnoreSerde }

// argMode says whether a key takes an argument.
type argMode int

const (
	argRequired argMode = iota // bare key is an error
	argOptional                // bare key allowed (boolean presence)
)

// prop tracks one recognized key during collection.
type prop struct {
	mode  argMode
	oneOf []string

	set      bool
	value    string
	hasValue bool
	pos      token.Position
}

// resolver scans raw annotations against a fixed allow-list.
type resolver struct {
	props      map[string]*prop
	order      []string
	disallowed []string

	// description is repeatable; occurrences are kept in order and joined
	// by joinDescriptions.
	descriptions []string
	descSet      bool
	descPos      token.Position
}

func newResolver(keys ...string) *resolver {
	r := &resolver{props: make(map[string]*prop, len(keys))}
	for _, k := range keys {
		r.props[k] = &prop{}
		r.order = append(r.order, k)
	}
	return r
}

func (r *resolver) boolKeys(keys ...string) *resolver {
	for _, k := range keys {
		p := r.props[k]
		p.mode = argOptional
		p.oneOf = []string{"true", "false"}
	}
	return r
}

func (r *resolver) oneOf(key string, values []string) *resolver {
	r.props[key].oneOf = values
	return r
}

func (r *resolver) disallow(keys ...string) *resolver {
	for _, k := range keys {
		delete(r.props, k)
		for i, name := range r.order {
			if name == k {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.disallowed = append(r.disallowed, keys...)
	return r
}

func (r *resolver) isDisallowed(key string) bool {
	for _, k := range r.disallowed {
		if k == key {
			return true
		}
	}
	return false
}

// collect scans every raw annotation in the given namespace. In finding mode
// unknown keys are ignored: the namespace is not ours, so only the keys we
// probe for are validated.
func (r *resolver) collect(raws []Raw, namespace string, finding bool) error {
	for _, a := range raws {
		if a.Namespace != namespace {
			continue
		}
		p, known := r.props[a.Key]
		if !known {
			if finding {
				continue
			}
			verb := "unsupported"
			if r.isDisallowed(a.Key) {
				verb = "disallowed"
			}
			return errorf(a.Pos, "%s schema attribute %s. Valid attributes include: %s.",
				verb, a.Key, joinValues(r.order, "and"))
		}
		if !a.HasValue && p.mode == argRequired {
			return errorf(a.Pos, "schema attribute %s needs argument", a.Key)
		}
		if a.Key == "description" {
			r.descriptions = append(r.descriptions, a.Value)
			r.descSet = true
			r.descPos = a.Pos
			continue
		}
		// Last occurrence wins for non-repeatable keys.
		p.set = true
		p.value = a.Value
		p.hasValue = a.HasValue
		p.pos = a.Pos
	}
	return nil
}

// takeString extracts a string-valued key, enforcing its closed value set.
func (r *resolver) takeString(key string) (*string, error) {
	p, ok := r.props[key]
	if !ok || !p.set {
		return nil, nil
	}
	value := ""
	if p.hasValue {
		value = p.value
	}
	if len(p.oneOf) > 0 && p.hasValue && !contains(p.oneOf, value) {
		return nil, errorf(p.pos, "schema attribute %s only takes one of: %s",
			key, joinValues(p.oneOf, "or"))
	}
	return &value, nil
}

// takeBool extracts a boolean key: bare presence means true, and any value
// other than "false" (case-insensitive) is true once the closed set has
// accepted it.
func (r *resolver) takeBool(key string) (*bool, error) {
	s, err := r.takeString(key)
	if err != nil || s == nil {
		return nil, err
	}
	v := !strings.EqualFold(*s, "false")
	return &v, nil
}

// takeInt extracts an integer-valued key.
func (r *resolver) takeInt(key string) (*int64, error) {
	p := r.props[key]
	s, err := r.takeString(key)
	if err != nil || s == nil {
		return nil, err
	}
	n, err := strconv.ParseInt(*s, 10, 64)
	if err != nil {
		return nil, errorf(p.pos, "schema attribute %s: %v", key, err)
	}
	return &n, nil
}

// takeDescription joins the description occurrences: consecutive non-empty
// values concatenate directly, and an explicitly empty value forces a
// newline break before the next one. This supports doc-comment style
// multi-paragraph descriptions.
func (r *resolver) takeDescription() *string {
	if !r.descSet {
		return nil
	}
	var b strings.Builder
	pendingBreak := false
	for _, part := range r.descriptions {
		if part == "" {
			pendingBreak = true
			continue
		}
		if pendingBreak && b.Len() > 0 {
			b.WriteByte('\n')
		}
		pendingBreak = false
		b.WriteString(part)
	}
	s := b.String()
	return &s
}

// ResolveTop resolves type-level annotations.
func ResolveTop(raws []Raw) (*TopAttr, error) {
	r := newResolver("description", "ignore_serde", "rename_all", "rename_all_with", "schema_path", "nullable").
		boolKeys("nullable", "ignore_serde").
		oneOf("rename_all", caseconv.Supported)

	if err := r.collect(raws, NamespaceSchema, false); err != nil {
		return nil, err
	}

	top := &TopAttr{Description: r.takeDescription()}
	var err error
	if top.IgnoreSerde, err = r.takeBool("ignore_serde"); err != nil {
		return nil, err
	}
	if top.RenameAll, err = r.takeString("rename_all"); err != nil {
		return nil, err
	}
	if p := r.props["rename_all_with"]; p.set {
		top.RenameAllWithPos = p.pos
	}
	if top.RenameAllWith, err = r.takeString("rename_all_with"); err != nil {
		return nil, err
	}
	if top.SchemaPath, err = r.takeString("schema_path"); err != nil {
		return nil, err
	}
	if top.Nullable, err = r.takeBool("nullable"); err != nil {
		return nil, err
	}

	// Fall back to the secondary namespace for rename_all when the type has
	// neither opted out nor supplied its own.
	if top.IgnoreSerde == nil && top.RenameAll == nil {
		probe := newResolver("rename_all").oneOf("rename_all", caseconv.Supported)
		if err := probe.collect(raws, NamespaceJSON, true); err != nil {
			return nil, err
		}
		if top.RenameAll, err = probe.takeString("rename_all"); err != nil {
			return nil, err
		}
	}

	return top, nil
}

// itemKeys is the full field/variant allow-list.
var itemKeys = []string{
	"description", "format", "type", "as_schema", "as_schema_generic",
	"rename", "required", "min_items", "max_items", "nullable", "skip",
}

// ResolveField resolves the annotations of a named struct field or a
// data-carrying enum variant.
func ResolveField(raws []Raw, top *TopAttr) (*Attr, error) {
	return resolveItem(raws, top, nil)
}

// ResolveVariant resolves the annotations of a data-less enum variant, where
// only rename and skip make sense: the variant is one string in an
// enumeration, not a property with its own schema.
func ResolveVariant(raws []Raw, top *TopAttr) (*Attr, error) {
	return resolveItem(raws, top, []string{
		"description", "format", "type", "as_schema", "as_schema_generic",
		"min_items", "max_items", "required", "nullable",
	})
}

// ResolveTuple resolves the annotations of a positional tuple field, which
// has no name to rename.
func ResolveTuple(raws []Raw, top *TopAttr) (*Attr, error) {
	return resolveItem(raws, top, []string{"rename"})
}

func resolveItem(raws []Raw, top *TopAttr, disallow []string) (*Attr, error) {
	r := newResolver(itemKeys...).
		boolKeys("required", "nullable", "skip").
		oneOf("type", schemaTypeNames).
		oneOf("format", schemaFormatNames).
		disallow(disallow...)

	if err := r.collect(raws, NamespaceSchema, false); err != nil {
		return nil, err
	}

	attr := &Attr{Description: r.takeDescription()}
	var err error
	if attr.Format, err = r.takeString("format"); err != nil {
		return nil, err
	}
	if p, ok := r.props["type"]; ok && p.set {
		attr.TypePos = p.pos
	}
	if attr.Type, err = r.takeString("type"); err != nil {
		return nil, err
	}
	if attr.AsSchema, err = r.takeString("as_schema"); err != nil {
		return nil, err
	}
	if attr.AsSchemaGeneric, err = r.takeString("as_schema_generic"); err != nil {
		return nil, err
	}
	if attr.Rename, err = r.takeString("rename"); err != nil {
		return nil, err
	}
	if attr.Required, err = r.takeBool("required"); err != nil {
		return nil, err
	}
	if attr.MinItems, err = r.takeInt("min_items"); err != nil {
		return nil, err
	}
	if attr.MaxItems, err = r.takeInt("max_items"); err != nil {
		return nil, err
	}
	if attr.Nullable, err = r.takeBool("nullable"); err != nil {
		return nil, err
	}
	if attr.Skip, err = r.takeBool("skip"); err != nil {
		return nil, err
	}

	if top != nil && top.ignoreSerde() {
		return attr, nil
	}

	// Inherit rename and skip from the secondary namespace when the primary
	// one left them unset and this item kind allows them at all.
	wantRename := attr.Rename == nil && !r.isDisallowed("rename")
	wantSkip := attr.Skip == nil && !r.isDisallowed("skip")
	if wantRename || wantSkip {
		probe := newResolver("rename", "skip").boolKeys("skip")
		if err := probe.collect(raws, NamespaceJSON, true); err != nil {
			return nil, err
		}
		if wantRename {
			if attr.Rename, err = probe.takeString("rename"); err != nil {
				return nil, err
			}
		}
		if wantSkip {
			if attr.Skip, err = probe.takeBool("skip"); err != nil {
				return nil, err
			}
		}
	}

	return attr, nil
}

// The closed value sets for type and format. Mirrored here as plain string
// constants so the resolver stays independent of the schema package's enum
// representation; the synthesizer re-parses through schema.ParseType.
var (
	schemaTypeNames   = []string{"Unspecified", "String", "Number", "Integer", "Boolean", "Array", "Object"}
	schemaFormatNames = []string{"float", "double", "int32", "int64", "enum"}
)

// joinValues formats a value enumeration for error messages: sorted,
// backticked, comma-separated, with the conjunction before the last element.
func joinValues(values []string, conj string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)

	var b strings.Builder
	for i, v := range sorted {
		b.WriteByte('`')
		b.WriteString(v)
		b.WriteByte('`')
		switch {
		case i == len(sorted)-2:
			b.WriteString(", ")
			b.WriteString(conj)
			b.WriteByte(' ')
		case i != len(sorted)-1:
			b.WriteString(", ")
		}
	}
	return b.String()
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
