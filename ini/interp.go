package ini

import (
	"os"
	"strings"
)

// resolveAllInterpolations runs once, after the whole document (including
// every include) has been parsed, filling in entry.resolved for every entry
// whose raw value contains '$'. Resolution is recursive-per-lookup with a
// "currently resolving" set for cycle detection, matching the spec's
// deterministic resolution order over the non-deterministic "iterate the
// hash table once" approach.
func (d *Document) resolveAllInterpolations() error {
	d.forEachEntry(func(e *entry) bool {
		if !strings.Contains(e.raw, "$") {
			e.resolved = e.raw
			e.hasValue = true
		}
		return true
	})
	visiting := map[string]bool{}
	var firstErr error
	d.forEachEntry(func(e *entry) bool {
		if e.hasValue {
			return true
		}
		v, err := d.resolveEntry(e, visiting, 0)
		if err != nil {
			firstErr = err
			return false
		}
		e.resolved = v
		e.hasValue = true
		return true
	})
	return firstErr
}

func (d *Document) resolveEntry(e *entry, visiting map[string]bool, depth int) (string, error) {
	if e.hasValue {
		return e.resolved, nil
	}
	fk := e.fullKeyName()
	if visiting[fk] {
		return "", &Error{File: e.file, Line: e.line, Message: "circular interpolation at " + fk, Err: ErrCircular}
	}
	if depth > d.maxInterpDepth {
		return "", &Error{File: e.file, Line: e.line, Message: "interpolation depth exceeded at " + fk, Err: ErrCircular}
	}
	visiting[fk] = true
	defer delete(visiting, fk)

	out, err := d.expand(e.raw, e.sectionName(), visiting, depth+1)
	if err != nil {
		return "", err
	}
	return out, nil
}

// expand performs one pass of ${...} expansion over s, evaluated in the
// context of currentSection. Unresolved references are silently elided.
func (d *Document) expand(s string, currentSection string, visiting map[string]bool, depth int) (string, error) {
	var sb strings.Builder
	i, n := 0, len(s)
	for i < n {
		if s[i] != '$' || i+1 >= n || s[i+1] != '{' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		closeIdx := matchingBrace(s, i+2)
		if closeIdx < 0 {
			sb.WriteString(s[i:])
			break
		}
		inner := s[i+2 : closeIdx]
		i = closeIdx + 1

		resolved, err := d.expandRef(inner, currentSection, visiting, depth)
		if err != nil {
			return "", err
		}
		sb.WriteString(resolved)
	}
	return sb.String(), nil
}

// expandRef resolves the inside of a single ${...} reference.
func (d *Document) expandRef(inner, currentSection string, visiting map[string]bool, depth int) (string, error) {
	name, def, hasDefault := splitInterpDefault(inner)

	switch {
	case strings.HasPrefix(name, "_"):
		// Runtime variable: left literal for upstream (ORDINAL) resolution.
		return "${" + inner + "}", nil

	case strings.HasPrefix(name, "@"):
		// ${@SECTION:key} explicit cross-section reference.
		rest := name[1:]
		idx := strings.IndexByte(rest, ':')
		if idx < 0 {
			return d.resolveDefault(def, hasDefault, currentSection, visiting, depth)
		}
		sec, key := rest[:idx], rest[idx+1:]
		if v, ok := d.lookupAndResolve(fullKey(sec, key), visiting, depth); ok {
			return v, nil
		}
		return d.resolveDefault(def, hasDefault, currentSection, visiting, depth)

	case strings.HasPrefix(name, "env:"):
		envName := name[len("env:"):]
		if v, ok := os.LookupEnv(envName); ok {
			return v, nil
		}
		return d.resolveDefault(def, hasDefault, currentSection, visiting, depth)

	default:
		// Five-tier resolution: current_section.var, top-level var,
		// default.var, project.var, env.var.
		candidates := []string{}
		if currentSection != "" {
			candidates = append(candidates, fullKey(currentSection, name))
		}
		candidates = append(candidates, name, fullKey("default", name), fullKey("project", name), fullKey("env", name))

		for _, c := range candidates {
			if v, ok := d.lookupAndResolve(c, visiting, depth); ok {
				return v, nil
			}
		}
		return d.resolveDefault(def, hasDefault, currentSection, visiting, depth)
	}
}

// resolveDefault expands a ${name:-default} default clause, which may
// itself contain nested ${...} references.
func (d *Document) resolveDefault(def string, hasDefault bool, currentSection string, visiting map[string]bool, depth int) (string, error) {
	if !hasDefault {
		return "", nil
	}
	return d.expand(def, currentSection, visiting, depth)
}

// lookupAndResolve resolves the entry stored at key. A failure to resolve it,
// including a reference that closes a cycle or exceeds maxInterpDepth, is
// reported as ok=false just like an absent key, so the caller falls through
// to its next candidate or default; such failures do not reach Load as an
// error.
func (d *Document) lookupAndResolve(key string, visiting map[string]bool, depth int) (string, bool) {
	e, ok := d.lookup(key)
	if !ok {
		return "", false
	}
	v, err := d.resolveEntry(e, visiting, depth)
	if err != nil {
		return "", false
	}
	return v, true
}

// matchingBrace finds the index of the '}' that closes the "${" whose
// contents start at from, accounting for nested "${...}" references inside
// a default value (e.g. ${a:-${b}}).
func matchingBrace(s string, from int) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch {
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '{':
			depth++
			i++
		case s[i] == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitInterpDefault(inner string) (name, def string, hasDefault bool) {
	if idx := strings.Index(inner, ":-"); idx >= 0 {
		return inner[:idx], inner[idx+2:], true
	}
	return inner, "", false
}
