package ordinal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zoryacorp/pulsar/ini"
	"github.com/zoryacorp/pulsar/weave"
)

// maxRecursion bounds build()'s DFS depth, the ORDINAL analogue of DAGGER's
// PSL threshold and INI's include depth: a fixed ceiling turns runaway
// recursion (which a cycle would otherwise cause) into a reported error.
const maxRecursion = 256

// autoDiscoverNames is tried, in order, when Load is called with an empty
// path.
var autoDiscoverNames = []string{
	filepath.Join("Ordinal", "Ordinal.ini"),
	filepath.Join("ordinal", "ordinal.ini"),
	"Ordinal.ini",
	"ordinal.ini",
}

// Orchestrator owns a loaded target DAG and runs builds against it.
type Orchestrator struct {
	doc    *ini.Document
	config Config

	targets      map[string]*Target
	targetOrder  []string
	defaultName  string
	names        *weave.Tablet // interns every Target's name/section
	lastResult   Result         // set by RunMany; read by PrintSummary

	ordinalDir string // directory containing the loaded file, "" if from a buffer
	savedCwd   string // set while config.Directory has been chdir'd into

	progress ProgressFunc
	output   OutputFunc
}

// New creates an Orchestrator with the given configuration (use
// DefaultConfig() for the common case).
func New(config Config) *Orchestrator {
	return &Orchestrator{config: config, targets: map[string]*Target{}, names: weave.NewTablet(0)}
}

// SetProgressCallback registers fn to be invoked on every target status
// transition.
func (o *Orchestrator) SetProgressCallback(fn ProgressFunc) { o.progress = fn }

// SetOutputCallback registers fn to receive a running command's stdout and
// stderr as it executes.
func (o *Orchestrator) SetOutputCallback(fn OutputFunc) { o.output = fn }

func (o *Orchestrator) notify(target string, status Status, message string) {
	if o.progress != nil {
		o.progress(target, status, message)
	}
}

// Load reads an Ordinal file. An empty path triggers auto-discovery in the
// current working directory under Ordinal/Ordinal.ini, ordinal/ordinal.ini,
// Ordinal.ini, or ordinal.ini, in that order.
func (o *Orchestrator) Load(path string) error {
	if path == "" {
		found := ""
		for _, candidate := range autoDiscoverNames {
			if _, err := os.Stat(candidate); err == nil {
				found = candidate
				break
			}
		}
		if found == "" {
			return &Error{Message: "no Ordinal file found via auto-discovery"}
		}
		path = found
	}
	doc := ini.New()
	if err := doc.Load(path); err != nil {
		return err
	}
	o.doc = doc
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		o.ordinalDir = abs
	}
	return o.discoverTargets()
}

// LoadBuffer parses data as an Ordinal file body identified by name.
func (o *Orchestrator) LoadBuffer(data []byte, name string) error {
	doc := ini.New()
	if err := doc.LoadBuffer(data, name); err != nil {
		return err
	}
	o.doc = doc
	if cwd, err := os.Getwd(); err == nil {
		o.ordinalDir = cwd
	}
	return o.discoverTargets()
}

// reservedSection reports whether section is (or is nested under) one of
// the non-target sections: project, env.
func reservedSection(section string) bool {
	return section == "project" || section == "env" ||
		strings.HasPrefix(section, "project.") || strings.HasPrefix(section, "env.")
}

func targetNameFromSection(section string) string {
	if idx := strings.IndexByte(section, ':'); idx >= 0 {
		return section[idx+1:]
	}
	return section
}

func (o *Orchestrator) discoverTargets() error {
	o.targets = map[string]*Target{}
	o.targetOrder = nil
	o.defaultName = ""

	for _, section := range o.doc.Sections() {
		if section == "" || reservedSection(section) {
			continue
		}
		name := targetNameFromSection(section)
		t := &Target{name: o.names.Intern(name), section: o.names.Intern(section)}
		t.RawTarget, _ = o.doc.Get(section + ".target")
		t.RawCommand, _ = o.doc.Get(section + ".command")
		if deps, ok := o.doc.GetArray(section + ".deps"); ok {
			t.RawDeps = deps
		}
		o.targets[name] = t
		o.targetOrder = append(o.targetOrder, name)

		if o.defaultName == "" && strings.HasPrefix(section, "build") {
			o.defaultName = name
		}
	}
	if o.defaultName == "" && len(o.targetOrder) > 0 {
		o.defaultName = o.targetOrder[0]
	}
	return nil
}

// GetProjectName returns the "project.name" key, if set.
func (o *Orchestrator) GetProjectName() (string, bool) { return o.doc.Get("project.name") }

// GetProjectVersion returns the "project.version" key, if set.
func (o *Orchestrator) GetProjectVersion() (string, bool) { return o.doc.Get("project.version") }

// GetVar returns an arbitrary config-time ini key (e.g. an [env] entry).
func (o *Orchestrator) GetVar(key string) (string, bool) { return o.doc.Get(key) }

// ListTargets returns every discovered target name, in section-discovery
// order.
func (o *Orchestrator) ListTargets() []string {
	out := make([]string, len(o.targetOrder))
	copy(out, o.targetOrder)
	return out
}

// GetTarget returns the named target's current state.
func (o *Orchestrator) GetTarget(name string) (*Target, bool) {
	t, ok := o.targets[name]
	return t, ok
}

// runtimeResolver builds the ${_*} substitution table for t.
func (o *Orchestrator) runtimeResolver(t *Target) weave.Resolver {
	cwd, _ := os.Getwd()
	vars := map[string]string{
		"_target":       t.ResolvedTarget,
		"_first_dep":    t.FirstDep(),
		"_all_deps":     strings.Join(t.AllDeps(), " "),
		"_platform":     DetectPlatform(),
		"_arch":         DetectArch(),
		"_nproc":        strconv.Itoa(DetectNProc()),
		"_cwd":          cwd,
		"_ordinal_dir":  o.ordinalDir,
	}
	return weave.MapResolver(vars)
}

func (o *Orchestrator) substituteRuntime(s string, t *Target) string {
	return weave.Interpolate(s, o.runtimeResolver(t))
}

// resolveDeps implements the spec's three-step dependency resolution:
// runtime-substitute, glob-expand, then classify each literal path as a
// target-ordering dependency or a file dependency.
func (o *Orchestrator) resolveDeps(t *Target) error {
	t.ResolvedDeps = nil
	for _, raw := range t.RawDeps {
		substituted := o.substituteRuntime(raw, t)
		if strings.ContainsAny(substituted, "*?") {
			matches, err := filepath.Glob(substituted)
			if err != nil {
				return &Error{Target: t.Name(), Message: "glob error: " + err.Error(), Err: ErrGlob}
			}
			if len(matches) == 0 {
				t.ResolvedDeps = append(t.ResolvedDeps, o.classify(substituted))
				continue
			}
			for _, m := range matches {
				t.ResolvedDeps = append(t.ResolvedDeps, o.classify(m))
			}
			continue
		}
		t.ResolvedDeps = append(t.ResolvedDeps, o.classify(substituted))
	}
	return nil
}

func (o *Orchestrator) classify(path string) ResolvedDep {
	if _, ok := o.targets[path]; ok {
		return ResolvedDep{Path: path, Kind: DepTarget}
	}
	return ResolvedDep{Path: path, Kind: DepFile}
}

func (o *Orchestrator) resolveCommand(t *Target) {
	t.ResolvedTarget = o.substituteRuntime(t.RawTarget, t)
	// Re-resolve dep-derived variables now that ResolvedTarget is final,
	// then substitute the command.
	t.ResolvedCommand = o.substituteRuntime(t.RawCommand, t)
}

// needsRebuild implements the spec's ordered checks.
func (o *Orchestrator) needsRebuild(t *Target) bool {
	if o.config.Force {
		return true
	}
	if t.Phony() {
		return true
	}
	outInfo, err := statMtime(t.ResolvedTarget)
	if err != nil {
		return true
	}
	for _, dep := range t.ResolvedDeps {
		if dep.Kind == DepTarget {
			if other, ok := o.targets[dep.Path]; ok && other.Status == StatusRebuilt {
				return true
			}
			continue
		}
		depInfo, err := statMtime(dep.Path)
		if err != nil {
			continue
		}
		if depInfo.After(outInfo) {
			return true
		}
	}
	return false
}

// build runs the DFS build algorithm from the spec for the named target.
func (o *Orchestrator) build(name string, depth int, result *Result) error {
	if depth > maxRecursion {
		return &Error{Target: name, Message: "circular dependency (recursion limit exceeded)", Err: ErrCircular}
	}
	t, ok := o.targets[name]
	if !ok {
		// Names another target's file dependency, not a target itself:
		// not our problem.
		return nil
	}
	if t.inStack {
		return &Error{Target: name, Message: "circular dependency", Err: ErrCircular}
	}
	if t.visited {
		return nil
	}
	t.inStack = true

	if err := o.resolveDeps(t); err != nil {
		t.inStack = false
		return err
	}
	for _, dep := range t.ResolvedDeps {
		if dep.Kind != DepTarget {
			continue
		}
		if err := o.build(dep.Path, depth+1, result); err != nil {
			if !o.config.KeepGoing {
				t.inStack = false
				return err
			}
		}
	}

	o.resolveCommand(t)
	result.Processed++

	if !o.needsRebuild(t) {
		t.Status = StatusUpToDate
		t.visited = true
		t.inStack = false
		result.UpToDate++
		o.notify(t.Name(), StatusUpToDate, "")
		return nil
	}

	err := o.execute(t, result)
	t.visited = true
	t.inStack = false
	return err
}

func (o *Orchestrator) execute(t *Target, result *Result) error {
	if t.ResolvedCommand == "" {
		t.Status = StatusUpToDate
		result.UpToDate++
		return nil
	}
	if o.config.Verbose && !o.config.Silent {
		fmt.Println(t.ResolvedCommand)
	}
	if o.config.DryRun {
		t.Status = StatusSkipped
		result.Skipped++
		o.notify(t.Name(), StatusSkipped, "dry run")
		return nil
	}
	o.notify(t.Name(), StatusBuilding, t.ResolvedCommand)
	elapsed, exitCode, err := runCommand(t.Name(), t.ResolvedCommand, o.output)
	t.ElapsedMs = elapsed
	if err != nil || exitCode != 0 {
		t.Status = StatusFailed
		t.Message = fmt.Sprintf("exit %d: %v", exitCode, err)
		result.Failed++
		result.Success = false
		o.notify(t.Name(), StatusFailed, t.Message)
		return &Error{Target: t.Name(), Command: t.ResolvedCommand, ExitCode: exitCode, Message: t.Message}
	}
	t.Status = StatusRebuilt
	result.Rebuilt++
	o.notify(t.Name(), StatusRebuilt, "")
	return nil
}

// Run builds target (the default target if name is ""). It returns the
// run's Result even when an error is also returned, since partial progress
// (processed/rebuilt/failed counts) is meaningful on failure.
func (o *Orchestrator) Run(name string) (Result, error) {
	return o.RunMany([]string{orDefault(name, o.defaultName)})
}

func orDefault(name, def string) string {
	if name == "" {
		return def
	}
	return name
}

// RunMany builds every named target in order, sharing one Result and one
// visited/in-stack state so shared dependencies are only built once. The
// Result is also retained for a later PrintSummary call.
func (o *Orchestrator) RunMany(names []string) (result Result, err error) {
	if cdErr := o.enterDirectory(); cdErr != nil {
		return Result{}, cdErr
	}
	defer o.leaveDirectory()
	defer func() { o.lastResult = result }()

	for _, t := range o.targets {
		t.visited = false
		t.inStack = false
		t.Status = StatusPending
	}

	result = Result{Success: true}
	var firstErr error
	for _, name := range names {
		if name == "" {
			result.Success = false
			return result, &Error{Message: "no target specified and no default target discovered"}
		}
		if _, ok := o.targets[name]; !ok {
			result.Success = false
			return result, &Error{Target: name, Message: "no such target", Err: ErrNoTarget}
		}
		if buildErr := o.build(name, 0, &result); buildErr != nil {
			result.Success = false
			if firstErr == nil {
				firstErr = buildErr
			}
			if !o.config.KeepGoing {
				return result, buildErr
			}
		}
	}
	return result, firstErr
}

func (o *Orchestrator) enterDirectory() error {
	if o.config.Directory == "" {
		return nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return &Error{Message: "cannot determine working directory: " + err.Error()}
	}
	if err := os.Chdir(o.config.Directory); err != nil {
		return &Error{Message: "cannot chdir to " + o.config.Directory + ": " + err.Error()}
	}
	o.savedCwd = cwd
	return nil
}

func (o *Orchestrator) leaveDirectory() {
	if o.savedCwd == "" {
		return
	}
	os.Chdir(o.savedCwd)
	o.savedCwd = ""
}

// PrintDeps writes the dependency tree to w: every discovered target's
// dependency list, or just name's if name is non-empty (mirroring the
// original's ordinal_print_deps, which narrows to one target when given a
// non-NULL name instead of always listing all of them).
func (o *Orchestrator) PrintDeps(w io.Writer, name string) {
	names := o.targetOrder
	if name != "" {
		if _, ok := o.targets[name]; ok {
			names = []string{name}
		} else {
			names = nil
		}
	}
	fmt.Fprintln(w, "Dependency tree:")
	for _, n := range names {
		t := o.targets[n]
		fmt.Fprintf(w, "  %s:\n", t.Name())
		if len(t.RawDeps) == 0 {
			fmt.Fprintln(w, "    (no dependencies)")
			continue
		}
		for _, dep := range t.RawDeps {
			fmt.Fprintf(w, "    - %s\n", dep)
		}
	}
}

// PrintSummary writes a one-line-per-target status report to w, followed by
// the aggregate counters from the most recent Run/RunMany call.
func (o *Orchestrator) PrintSummary(w io.Writer) {
	result := o.lastResult
	for _, name := range o.targetOrder {
		t := o.targets[name]
		fmt.Fprintf(w, "%-20s %s\n", t.Name(), t.Status)
	}
	fmt.Fprintf(w, "\nBuild Summary:\n")
	fmt.Fprintf(w, "  Targets processed:  %d\n", result.Processed)
	fmt.Fprintf(w, "  Targets rebuilt:    %d\n", result.Rebuilt)
	fmt.Fprintf(w, "  Targets up-to-date: %d\n", result.UpToDate)
	fmt.Fprintf(w, "  Targets failed:     %d\n", result.Failed)
	fmt.Fprintf(w, "  Targets skipped:    %d\n", result.Skipped)
	fmt.Fprintf(w, "  Total time:         %d ms\n", result.TotalTimeMs)
	status := "FAILED"
	if result.Success {
		status = "SUCCESS"
	}
	fmt.Fprintf(w, "  Status:             %s\n", status)
}
