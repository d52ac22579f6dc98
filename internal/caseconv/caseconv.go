// Package caseconv converts identifiers between naming conventions for the
// rename_all attribute. Field names are assumed snake_case-shaped and variant
// names PascalCase-shaped; each direction has its own tokenizer.
package caseconv

import "strings"

// Supported lists the recognized rename_all styles.
var Supported = []string{
	"camelCase",
	"snake_case",
	"lowercase",
	"UPPERCASE",
	"PascalCase",
	"SCREAMING_SNAKE_CASE",
	"kebab-case",
	"SCREAMING-KEBAB-CASE",
}

// RenameAll re-casts a snake_case-shaped field name into the given style.
// An unknown style is a no-op: rename_all is cosmetic, and the attribute
// resolver has already validated the style against the closed set.
func RenameAll(style, name string) string {
	return applyStyle(style, name, fromSnake)
}

// RenameAllVariants re-casts a PascalCase-shaped variant name into the given
// style. Unknown styles are a no-op as in RenameAll.
func RenameAllVariants(style, name string) string {
	return applyStyle(style, name, fromPascal)
}

// converter holds one source convention's transforms. toSnake and toKebab
// are deliberately not tokenize-and-rejoin for snake input: a snake_case
// name is already in its native convention, so it passes through unchanged,
// underscore oddities and all.
type converter struct {
	toSnake  func(string) string
	toKebab  func(string) string
	toPascal func(string) string
	toCamel  func(string) string
}

func applyStyle(style, name string, c converter) string {
	switch style {
	case "lowercase":
		return strings.ToLower(name)
	case "UPPERCASE":
		return strings.ToUpper(name)
	case "snake_case":
		return c.toSnake(name)
	case "kebab-case":
		return c.toKebab(name)
	case "SCREAMING_SNAKE_CASE":
		return strings.ToUpper(c.toSnake(name))
	case "SCREAMING-KEBAB-CASE":
		return strings.ToUpper(c.toKebab(name))
	case "PascalCase":
		return c.toPascal(name)
	case "camelCase":
		return c.toCamel(name)
	default:
		return name
	}
}

var fromSnake = converter{
	toSnake: func(name string) string { return name },
	toKebab: func(name string) string { return strings.ReplaceAll(name, "_", "-") },
	toPascal: func(name string) string {
		var b strings.Builder
		for _, tok := range TokenizeSnake(name) {
			b.WriteString(upperHead(tok))
		}
		return b.String()
	},
	toCamel: func(name string) string {
		var b strings.Builder
		for i, tok := range TokenizeSnake(name) {
			if i == 0 {
				b.WriteString(lowerHead(tok))
			} else {
				b.WriteString(upperHead(tok))
			}
		}
		return b.String()
	},
}

var fromPascal = converter{
	toSnake:  pascalToSnake,
	toKebab:  func(name string) string { return strings.ReplaceAll(pascalToSnake(name), "_", "-") },
	toPascal: func(name string) string { return name },
	toCamel: func(name string) string {
		var b strings.Builder
		for i, tok := range TokenizePascal(name) {
			if i == 0 {
				b.WriteString(strings.ToLower(tok))
			} else {
				b.WriteString(upperHead(strings.ToLower(tok)))
			}
		}
		return b.String()
	},
}

func pascalToSnake(name string) string {
	tokens := TokenizePascal(name)
	lowered := make([]string, len(tokens))
	for i, tok := range tokens {
		lowered[i] = strings.ToLower(tok)
	}
	return strings.Join(lowered, "_")
}

// TokenizeSnake splits a snake_case identifier on underscores, dropping
// empty segments so leading, trailing, and doubled underscores are tolerated.
func TokenizeSnake(name string) []string {
	var out []string
	for _, part := range strings.Split(name, "_") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// TokenizePascal splits a PascalCase identifier at semantic word boundaries.
//
// A new token starts at every lowercase-to-uppercase transition. When an
// uppercase run of two or more is followed by lowercase, the run's last
// uppercase letter belongs to the following token, not the acronym:
// "HTTPRequest" tokenizes as ["HTTP", "Request"] and "ABCdef" as
// ["AB", "Cdef"]. Identifiers are assumed ASCII.
func TokenizePascal(name string) []string {
	const (
		partFirst = iota
		wasUpper
		wasLower
	)

	var out []string
	last := partFirst
	cursor := 0

	for i := 0; i < len(name); i++ {
		if i == 0 {
			// The first character opens the first token regardless of case.
			continue
		}
		upper := isASCIIUpper(name[i])
		switch {
		case upper && last == wasLower:
			out = append(out, name[cursor:i])
			cursor = i
			last = partFirst
			continue
		case !upper && last == wasUpper:
			// The last letter of the uppercase run starts the new token.
			out = append(out, name[cursor:i-1])
			cursor = i - 1
		}
		if upper {
			last = wasUpper
		} else {
			last = wasLower
		}
	}

	if name == "" {
		return nil
	}
	return append(out, name[cursor:])
}

func isASCIIUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

// JoinSnake joins tokens with underscores, the inverse of TokenizeSnake for
// canonical snake_case input.
func JoinSnake(tokens []string) string { return strings.Join(tokens, "_") }

// JoinPascal concatenates tokens unchanged, the inverse of TokenizePascal.
func JoinPascal(tokens []string) string { return strings.Join(tokens, "") }

// upperHead uppercases the first byte, leaving the rest unchanged.
func upperHead(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// lowerHead lowercases the first byte, leaving the rest unchanged.
func lowerHead(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
