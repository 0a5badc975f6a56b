package ini

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ToString serializes the document back to ZORYA-INI text. Values are
// written as their resolved form; type hints are re-emitted so a round
// trip through ToString/LoadBuffer preserves typed getters' behavior.
// Section order follows first-seen order from loading (or insertion order
// for a document built via Set); keys within a section are sorted by name.
func (d *Document) ToString() string {
	var sb strings.Builder
	bySection := map[string][]*entry{}
	d.forEachEntry(func(e *entry) bool {
		bySection[e.sectionName()] = append(bySection[e.sectionName()], e)
		return true
	})
	for _, section := range d.sectionOrder {
		entries := bySection[section]
		sort.Slice(entries, func(i, j int) bool { return entries[i].keyName() < entries[j].keyName() })
		if section != "" {
			fmt.Fprintf(&sb, "[%s]\n", section)
		}
		for _, e := range entries {
			writeEntry(&sb, e)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func writeEntry(sb *strings.Builder, e *entry) {
	key := e.keyName()
	if e.typ != TypeString {
		key += ":" + e.typ.String()
	}
	if e.isArray && e.typ == TypeString {
		key += "[]"
	}
	v := e.value()
	if strings.Contains(v, "\n") {
		fmt.Fprintf(sb, "%s = \n", key)
		for _, line := range strings.Split(v, "\n") {
			fmt.Fprintf(sb, "    %s\n", line)
		}
		return
	}
	fmt.Fprintf(sb, "%s = %s\n", key, v)
}

// Save writes ToString's output to path.
func (d *Document) Save(path string) error {
	if err := os.WriteFile(path, []byte(d.ToString()), 0644); err != nil {
		return &Error{File: path, Message: "cannot write: " + err.Error(), Err: ErrIO}
	}
	return nil
}

// Dump returns a human-readable listing of every key, its type, and its
// resolved value, grouped by section — intended for diagnostics, not for
// round-tripping (see ToString for that).
func (d *Document) Dump() string {
	var sb strings.Builder
	stats := d.Stats()
	fmt.Fprintf(&sb, "; %d section(s), %d key(s), %d include(s)\n", stats.SectionCount, stats.KeyCount, stats.IncludeCount)
	bySection := map[string][]*entry{}
	d.forEachEntry(func(e *entry) bool {
		bySection[e.sectionName()] = append(bySection[e.sectionName()], e)
		return true
	})
	for _, section := range d.sectionOrder {
		name := section
		if name == "" {
			name = "(root)"
		}
		fmt.Fprintf(&sb, "[%s]\n", name)
		entries := bySection[section]
		sort.Slice(entries, func(i, j int) bool { return entries[i].keyName() < entries[j].keyName() })
		for _, e := range entries {
			fmt.Fprintf(&sb, "  %s (%s) = %q\n", e.keyName(), e.typ, e.value())
		}
	}
	return sb.String()
}
