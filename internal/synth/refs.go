package synth

import (
	"fmt"
	"sort"
	"strings"
)

// LocalRefs returns the derived-type names the expression refers to, in
// first-appearance order without duplicates.
func (e *Expr) LocalRefs() []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(x *Expr)
	walk = func(x *Expr) {
		if x == nil {
			return
		}
		if x.Base.Kind == BaseRef && !seen[x.Base.Ref] {
			seen[x.Base.Ref] = true
			out = append(out, x.Base.Ref)
		}
		walk(x.Base.Arg)
		walk(x.Items)
		for _, p := range x.Properties {
			walk(p.Value)
		}
	}
	walk(e)
	return out
}

// DetectCycle looks for reference cycles among the synthesized types of one
// generation run. Generated Schema methods call each other directly, so a
// cycle would recurse without bound at runtime; generation fails instead of
// emitting it. References to types outside the set are not followed.
func DetectCycle(exprs map[string]*Expr) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(exprs))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		e, ok := exprs[name]
		if !ok {
			return nil
		}
		switch state[name] {
		case visiting:
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), name)
			return fmt.Errorf("schema reference cycle: %s", strings.Join(path, " -> "))
		case done:
			return nil
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, ref := range e.LocalRefs() {
			if err := visit(ref); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	names := make([]string, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
