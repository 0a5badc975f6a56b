package ordinal

import "github.com/zoryacorp/pulsar/weave"

// DepKind classifies one resolved dependency of a Target.
type DepKind int

const (
	DepFile DepKind = iota
	DepTarget
)

// ResolvedDep is one dependency after runtime-variable substitution, glob
// expansion, and target-vs-file classification.
type ResolvedDep struct {
	Path string
	Kind DepKind
}

// Target is one buildable unit, extracted from one ini.Document section.
// name and section are interned through the owning Orchestrator's shared
// WEAVE Tablet, the same way ZORYA-INI interns its section/key strings —
// target names repeat across RawDeps, diagnostics, and progress callbacks
// far more than they vary, so one allocation per distinct name is shared
// rather than copied at every reference.
type Target struct {
	name    *weave.Weave // portion after ':', or the whole section name
	section *weave.Weave // the literal section name, e.g. "build:debug"

	RawTarget  string // "target" key, empty if phony
	RawCommand string // "command" key
	RawDeps    []string

	ResolvedTarget  string
	ResolvedCommand string
	ResolvedDeps    []ResolvedDep

	Status    Status
	Message   string
	ElapsedMs int64

	visited bool
	inStack bool
}

// Name returns the target's short name (the portion after ':', or the
// whole section name for an unqualified section).
func (t *Target) Name() string { return t.name.String() }

// Section returns the literal ini section name the target was extracted
// from, e.g. "build:debug".
func (t *Target) Section() string { return t.section.String() }

// Phony reports whether the target has no output file.
func (t *Target) Phony() bool { return t.RawTarget == "" }

// AllDeps returns every resolved dependency's path, in resolution order —
// the backing value for the ${_all_deps} runtime variable.
func (t *Target) AllDeps() []string {
	out := make([]string, len(t.ResolvedDeps))
	for i, d := range t.ResolvedDeps {
		out[i] = d.Path
	}
	return out
}

// FirstDep returns the first resolved dependency's path, or "" if there are
// none — the backing value for ${_first_dep}.
func (t *Target) FirstDep() string {
	if len(t.ResolvedDeps) == 0 {
		return ""
	}
	return t.ResolvedDeps[0].Path
}
