// Package ini implements the ZORYA-INI configuration format: hierarchical
// sections addressed by dot-path, pipe-delimited arrays, indented multi-line
// values, optional type hints, file includes, and a five-tier variable
// interpolation scheme resolved at load time.
package ini

import (
	"errors"
	"fmt"

	"github.com/zoryacorp/pulsar/dagger"
	"github.com/zoryacorp/pulsar/weave"
)

// Sentinel errors for conditions that are not themselves carriers of
// location context. Load and Save wrap ErrCircular and ErrIO in *Error with
// the file (and line, when known). The typed getters report an absent or
// unparsable value through their ok result, not through an error.
var (
	ErrNotFound    = errors.New("ini: key not found")
	ErrInvalidArg  = errors.New("ini: invalid argument")
	ErrCircular    = errors.New("ini: circular include or interpolation")
	ErrIO          = errors.New("ini: I/O error")
	ErrType        = errors.New("ini: type coercion failed")
)

// Error carries the location context the spec requires for syntax errors:
// the originating file (when known, e.g. from an include) and a 1-based
// line number.
type Error struct {
	File    string
	Line    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("ini: %s:%d: %s", e.File, e.Line, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("ini: line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("ini: %s", e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Type classifies a value's type hint.
type Type int

const (
	TypeString Type = iota
	TypeInt
	TypeFloat
	TypeBool
	TypePath
	TypeURL
	TypeDate
	TypeDatetime
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypePath:
		return "path"
	case TypeURL:
		return "url"
	case TypeDate:
		return "date"
	case TypeDatetime:
		return "datetime"
	default:
		return "str"
	}
}

// hintTerminator bounds each pattern in hintMatcher so that a match can only
// occur when the hint spans the whole candidate string (otherwise "date"
// would match inside "bigdate" or as a prefix of "datetime").
const hintTerminator = "\x00"

// hintMatcher classifies a key's type-hint suffix in a single Aho-Corasick
// scan rather than one strings.HasSuffix (or switch-case string compare) per
// recognized hint name.
var hintMatcher = newHintMatcher()

func newHintMatcher() *weave.MultiMatcher {
	names := []string{"int", "float", "bool", "path", "url", "date", "datetime", "str"}
	needles := make([]string, len(names))
	for i, n := range names {
		needles[i] = n + hintTerminator
	}
	m, err := weave.NewMultiMatcher(needles...)
	if err != nil {
		panic("ini: building type-hint matcher: " + err.Error())
	}
	return m
}

func parseTypeHint(s string) (Type, bool) {
	match, ok := hintMatcher.FindAnySubstring([]byte(s+hintTerminator), 0)
	if !ok || match.Start != 0 {
		return TypeString, false
	}
	switch match.Needle[:len(match.Needle)-len(hintTerminator)] {
	case "int":
		return TypeInt, true
	case "float":
		return TypeFloat, true
	case "bool":
		return TypeBool, true
	case "path":
		return TypePath, true
	case "url":
		return TypeURL, true
	case "date":
		return TypeDate, true
	case "datetime":
		return TypeDatetime, true
	case "str":
		return TypeString, true
	default:
		return TypeString, false
	}
}

// entry is one stored key within the INI document. section, key, and
// fullKey are interned through the document's Tablet so that the many
// entries sharing a section (or a common key name across sections) alias
// one underlying Weave instead of allocating a fresh Go string each.
type entry struct {
	section  *weave.Weave
	key      *weave.Weave // bare key name, no section prefix, no type hint, no []
	fullKey  *weave.Weave // section.key, or just key for root-level entries
	raw      string       // raw value exactly as parsed (pre-interpolation)
	resolved string       // post-interpolation value; empty until Load finishes
	hasValue bool         // resolved has been computed (distinguishes "" from unset)
	typ      Type
	isArray  bool
	line     int
	file     string
}

func (e *entry) sectionName() string { return e.section.String() }
func (e *entry) keyName() string     { return e.key.String() }
func (e *entry) fullKeyName() string { return e.fullKey.String() }

// Stats reports document-wide counters, mirroring the spec's memory/load
// introspection surface.
type Stats struct {
	SectionCount int
	KeyCount     int
	IncludeCount int
}

// Document is a loaded ZORYA-INI configuration. Entries are stored in a
// DAGGER table keyed by full dot-path, with section/key/fullKey strings
// interned through a shared WEAVE Tablet so repeated section and key names
// across many entries share one underlying allocation. The zero value is
// not usable; construct with New.
type Document struct {
	entries      *dagger.Table // fullKey bytes -> *entry
	names        *weave.Tablet // interns section, key, and fullKey strings
	sectionOrder []string
	sections     map[string]bool
	includeCount int
	maxIncludeDepth int
	maxInterpDepth  int
}

// New creates an empty Document ready for Load or LoadBuffer.
func New() *Document {
	return &Document{
		entries:         dagger.New(0, nil),
		names:           weave.NewTablet(0),
		sections:        make(map[string]bool),
		maxIncludeDepth: 16,
		maxInterpDepth:  32,
	}
}

func fullKey(section, key string) string {
	if section == "" {
		return key
	}
	return section + "." + key
}

// newEntry allocates an entry with its section/key/fullKey interned through
// the document's Tablet.
func (d *Document) newEntry(section, key string) *entry {
	return &entry{
		section: d.names.Intern(section),
		key:     d.names.Intern(key),
		fullKey: d.names.Intern(fullKey(section, key)),
	}
}

func (d *Document) put(e *entry) {
	section := e.sectionName()
	if !d.sections[section] {
		d.sections[section] = true
		d.sectionOrder = append(d.sectionOrder, section)
	}
	d.entries.Set(e.fullKey.Bytes(), e, true)
}

func (d *Document) lookup(key string) (*entry, bool) {
	v, ok := d.entries.Get([]byte(key))
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

func (d *Document) forEachEntry(fn func(e *entry) bool) {
	d.entries.ForEach(func(_ []byte, v any) bool {
		return fn(v.(*entry))
	})
}

// Stats returns document-wide counters.
func (d *Document) Stats() Stats {
	return Stats{
		SectionCount: len(d.sections),
		KeyCount:     d.entries.Len(),
		IncludeCount: d.includeCount,
	}
}

// Sections returns every distinct section name encountered, in
// first-seen order. The implicit root section is reported as "".
func (d *Document) Sections() []string {
	out := make([]string, len(d.sectionOrder))
	copy(out, d.sectionOrder)
	return out
}

// HasSection reports whether section has at least one key.
func (d *Document) HasSection(section string) bool { return d.sections[section] }

// Has reports whether key (a full dot-path) is present.
func (d *Document) Has(key string) bool {
	_, ok := d.lookup(key)
	return ok
}

func (d *Document) resolvedValue(key string) (*entry, bool) {
	return d.lookup(key)
}

func (e *entry) value() string {
	if e.hasValue {
		return e.resolved
	}
	return e.raw
}

// Get returns the string value at key, or ok=false if absent.
func (d *Document) Get(key string) (string, bool) {
	e, ok := d.resolvedValue(key)
	if !ok {
		return "", false
	}
	return e.value(), true
}

// GetDefault returns the string value at key, or def if absent.
func (d *Document) GetDefault(key, def string) string {
	if v, ok := d.Get(key); ok {
		return v
	}
	return def
}

// ForEach visits every entry in internal (unspecified) slot order. fn
// returning false stops iteration early.
func (d *Document) ForEach(fn func(key, value string) bool) {
	d.forEachEntry(func(e *entry) bool {
		return fn(e.fullKeyName(), e.value())
	})
}

// ForEachSection visits every key within section.
func (d *Document) ForEachSection(section string, fn func(key, value string) bool) {
	d.forEachEntry(func(e *entry) bool {
		if e.sectionName() != section {
			return true
		}
		return fn(e.keyName(), e.value())
	})
}

// Set inserts or overwrites key (a full dot-path) with a plain string
// value, creating its section if needed. Interpolation is not re-run on a
// value set this way.
func (d *Document) Set(key, value string) {
	section, bare := splitFullKey(key)
	e := d.newEntry(section, bare)
	e.raw = value
	e.resolved = value
	e.hasValue = true
	e.typ = TypeString
	d.put(e)
}

// SetInt, SetFloat, and SetBool are typed convenience setters.
func (d *Document) SetInt(key string, v int64) {
	d.Set(key, fmt.Sprintf("%d", v))
	d.setType(key, TypeInt)
}

func (d *Document) SetFloat(key string, v float64) {
	d.Set(key, fmt.Sprintf("%g", v))
	d.setType(key, TypeFloat)
}

func (d *Document) SetBool(key string, v bool) {
	if v {
		d.Set(key, "true")
	} else {
		d.Set(key, "false")
	}
	d.setType(key, TypeBool)
}

func (d *Document) setType(key string, t Type) {
	if e, ok := d.lookup(key); ok {
		e.typ = t
	}
}

func splitFullKey(key string) (section, bare string) {
	idx := -1
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", key
	}
	return key[:idx], key[idx+1:]
}
