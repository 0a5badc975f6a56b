package ini

import (
	"strconv"
	"strings"
)

// GetInt coerces the value at key to int64. A present-but-unparsable value
// reports ok=false rather than panicking; callers distinguish "absent" from
// "malformed" by calling Has first if needed.
func (d *Document) GetInt(key string) (int64, bool) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// GetIntDefault is GetInt with a fallback for absence or coercion failure.
func (d *Document) GetIntDefault(key string, def int64) int64 {
	if n, ok := d.GetInt(key); ok {
		return n
	}
	return def
}

// GetFloat coerces the value at key to float64.
func (d *Document) GetFloat(key string) (float64, bool) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// GetFloatDefault is GetFloat with a fallback.
func (d *Document) GetFloatDefault(key string, def float64) float64 {
	if f, ok := d.GetFloat(key); ok {
		return f
	}
	return def
}

// truthy values recognized case-insensitively, per the spec's boolean
// coercion rule. Anything else (including an empty string) is false.
var truthyValues = map[string]bool{
	"true": true, "yes": true, "on": true, "1": true,
}

// GetBool coerces the value at key using the spec's truth table: "true",
// "yes", "on", "1" (case-insensitive) are true; everything else is false.
// ok reports whether key was present at all.
func (d *Document) GetBool(key string) (bool, bool) {
	v, ok := d.Get(key)
	if !ok {
		return false, false
	}
	return truthyValues[strings.ToLower(strings.TrimSpace(v))], true
}

// GetBoolDefault is GetBool with a fallback for absence.
func (d *Document) GetBoolDefault(key string, def bool) bool {
	if b, ok := d.GetBool(key); ok {
		return b
	}
	return def
}

// GetArray splits the value at key on "|", trims whitespace around each
// item, and returns the resulting slice. A non-array scalar value is
// returned as a single-element slice.
func (d *Document) GetArray(key string) ([]string, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	return splitArray(v), true
}

// GetArrayDefault is GetArray with a fallback for absence.
func (d *Document) GetArrayDefault(key string, def []string) []string {
	if a, ok := d.GetArray(key); ok {
		return a
	}
	return def
}

func splitArray(v string) []string {
	parts := strings.Split(v, "|")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// Type returns the declared (or inferred) type hint for key.
func (d *Document) Type(key string) (Type, bool) {
	e, ok := d.lookup(key)
	if !ok {
		return TypeString, false
	}
	return e.typ, true
}

// IsArray reports whether key was declared (via a trailing [] on its key
// name, or inferred from a present "|") as an array.
func (d *Document) IsArray(key string) bool {
	e, ok := d.lookup(key)
	return ok && e.isArray
}
