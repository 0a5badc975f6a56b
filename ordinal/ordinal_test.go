package ordinal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mustOrchestrator(t *testing.T, dir string, body string) *Orchestrator {
	t.Helper()
	o := New(Config{Jobs: 1, Directory: dir})
	if err := o.LoadBuffer([]byte(body), "ordinal.ini"); err != nil {
		t.Fatalf("LoadBuffer: %v", err)
	}
	return o
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScenarioEUpToDateDetection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "in.c"), "int main(){return 0;}")

	o := mustOrchestrator(t, dir, `
[build]
target = out.o
deps = in.c
command = cp in.c out.o
`)
	result, err := o.Run("")
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if result.Rebuilt != 1 {
		t.Fatalf("first Run: rebuilt=%d, want 1", result.Rebuilt)
	}

	o2 := mustOrchestrator(t, dir, `
[build]
target = out.o
deps = in.c
command = cp in.c out.o
`)
	result2, err := o2.Run("")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if result2.Rebuilt != 0 || result2.UpToDate != 1 {
		t.Fatalf("second Run: rebuilt=%d up_to_date=%d, want 0/1", result2.Rebuilt, result2.UpToDate)
	}

	// Touch in.c to be newer than out.o.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(dir, "in.c"), future, future); err != nil {
		t.Fatal(err)
	}
	o3 := mustOrchestrator(t, dir, `
[build]
target = out.o
deps = in.c
command = cp in.c out.o
`)
	result3, err := o3.Run("")
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if result3.Rebuilt != 1 {
		t.Fatalf("third Run after touch: rebuilt=%d, want 1", result3.Rebuilt)
	}
}

func TestScenarioFGlobExpansion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.c"), "a")
	writeFile(t, filepath.Join(dir, "src", "b.c"), "b")

	o := mustOrchestrator(t, dir, `
[build]
target = out.o
deps = src/*.c
command = echo building
`)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	if err := o.resolveDeps(o.targets["build"]); err != nil {
		t.Fatalf("resolveDeps: %v", err)
	}
	deps := o.targets["build"].AllDeps()
	if len(deps) != 2 {
		t.Fatalf("resolved %d deps, want 2: %v", len(deps), deps)
	}
	found := map[string]bool{}
	for _, d := range deps {
		found[d] = true
	}
	if !found[filepath.Join("src", "a.c")] || !found[filepath.Join("src", "b.c")] {
		t.Fatalf("glob did not resolve expected files: %v", deps)
	}
}

func TestScenarioGCircularDependency(t *testing.T) {
	dir := t.TempDir()
	o := mustOrchestrator(t, dir, `
[A]
target = a.out
deps = B
command = echo A

[B]
target = b.out
deps = A
command = echo B
`)
	_, err := o.Run("A")
	if err == nil {
		t.Fatal("expected circular dependency error")
	}
	if _, err2 := os.Stat(filepath.Join(dir, "a.out")); err2 == nil {
		t.Fatal("command should not have executed for a circular target")
	}
}

func TestScenarioHPhonyTarget(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	o := mustOrchestrator(t, dir, `
[clean]
command = touch marker
`)
	tg, _ := o.GetTarget("clean")
	if !tg.Phony() {
		t.Fatal("clean should be phony (no target key)")
	}
	result, err := o.Run("clean")
	if err != nil {
		t.Fatalf("Run(clean): %v", err)
	}
	if result.Rebuilt != 1 {
		t.Fatalf("phony target rebuilt=%d, want 1", result.Rebuilt)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("phony command did not run: %v", err)
	}
}

func TestDefaultTargetIsFirstBuildPrefixed(t *testing.T) {
	dir := t.TempDir()
	o := mustOrchestrator(t, dir, `
[clean]
command = echo clean

[build]
target = out.bin
command = touch out.bin

[build:debug]
target = out-debug.bin
command = touch out-debug.bin
`)
	if o.defaultName != "build" {
		t.Fatalf("defaultName = %q, want build", o.defaultName)
	}
}

func TestColonNamedTargetsAreDistinct(t *testing.T) {
	dir := t.TempDir()
	o := mustOrchestrator(t, dir, `
[build]
target = out.bin
command = touch out.bin

[build:debug]
target = out-debug.bin
command = touch out-debug.bin
`)
	names := o.ListTargets()
	want := map[string]bool{"build": true, "debug": true}
	if len(names) != 2 {
		t.Fatalf("ListTargets() = %v, want 2 entries", names)
	}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("unexpected target name %q", n)
		}
	}
}

func TestReservedSectionsAreNotTargets(t *testing.T) {
	dir := t.TempDir()
	o := mustOrchestrator(t, dir, `
[project]
name = demo

[env]
cc = gcc

[build]
target = out.bin
command = touch out.bin
`)
	for _, n := range o.ListTargets() {
		if n == "project" || n == "env" {
			t.Fatalf("reserved section %q leaked into target list", n)
		}
	}
}

func TestRuntimeVariablesInCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.c"), "a")
	o := mustOrchestrator(t, dir, `
[env]
cc = echo

[build]
target = out.bin
deps = a.c
command = ${cc} ${_target} ${_all_deps}
`)
	result, err := o.Run("build")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rebuilt != 1 {
		t.Fatalf("rebuilt=%d, want 1", result.Rebuilt)
	}
	tg, _ := o.GetTarget("build")
	if tg.ResolvedCommand != "echo out.bin a.c" {
		t.Fatalf("ResolvedCommand = %q, want %q", tg.ResolvedCommand, "echo out.bin a.c")
	}
}

func TestKeepGoingAggregatesFailures(t *testing.T) {
	dir := t.TempDir()
	o := mustOrchestrator(t, dir, `
[fails]
command = exit 1

[succeeds]
target = ok.out
command = touch ok.out
`)
	o.config.KeepGoing = true
	result, err := o.RunMany([]string{"fails", "succeeds"})
	if err == nil {
		t.Fatal("expected an aggregated error from the failing target")
	}
	if result.Failed != 1 || result.Rebuilt != 1 {
		t.Fatalf("result = %+v, want 1 failed and 1 rebuilt", result)
	}
}

func TestDryRunSkipsExecution(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "should-not-exist")
	o := mustOrchestrator(t, dir, `
[build]
target = out.bin
command = touch should-not-exist
`)
	o.config.DryRun = true
	result, err := o.Run("build")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Skipped != 1 {
		t.Fatalf("skipped=%d, want 1", result.Skipped)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Fatal("dry run executed the command")
	}
}

func TestPrintDepsNarrowsToNamedTarget(t *testing.T) {
	dir := t.TempDir()
	o := mustOrchestrator(t, dir, `
[build]
target = out.bin
command = touch out.bin
deps = a.c b.c

[clean]
command = rm -f out.bin
`)

	var all bytes.Buffer
	o.PrintDeps(&all, "")
	if !strings.Contains(all.String(), "build:") || !strings.Contains(all.String(), "clean:") {
		t.Fatalf("PrintDeps(w, \"\") omitted a target:\n%s", all.String())
	}
	if !strings.Contains(all.String(), "a.c") || !strings.Contains(all.String(), "b.c") {
		t.Fatalf("PrintDeps(w, \"\") omitted build's deps:\n%s", all.String())
	}

	var one bytes.Buffer
	o.PrintDeps(&one, "build")
	if strings.Contains(one.String(), "clean:") {
		t.Fatalf("PrintDeps(w, \"build\") leaked the clean target:\n%s", one.String())
	}
	if !strings.Contains(one.String(), "build:") {
		t.Fatalf("PrintDeps(w, \"build\") missing build target:\n%s", one.String())
	}

	var none bytes.Buffer
	o.PrintDeps(&none, "no-such-target")
	if strings.Contains(none.String(), "build:") || strings.Contains(none.String(), "clean:") {
		t.Fatalf("PrintDeps(w, \"no-such-target\") should list nothing:\n%s", none.String())
	}
}

func TestPrintSummaryReflectsLastRun(t *testing.T) {
	dir := t.TempDir()
	o := mustOrchestrator(t, dir, `
[build]
target = out.bin
command = touch out.bin
`)
	result, err := o.Run("build")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var buf bytes.Buffer
	o.PrintSummary(&buf)
	out := buf.String()

	if !strings.Contains(out, "build") {
		t.Fatalf("PrintSummary missing target name:\n%s", out)
	}
	if !strings.Contains(out, "SUCCESS") {
		t.Fatalf("PrintSummary missing SUCCESS status:\n%s", out)
	}
	wantRebuilt := strings.Contains(out, "Targets rebuilt:    1")
	if !wantRebuilt {
		t.Fatalf("PrintSummary rebuilt count doesn't match Run's result (%+v):\n%s", result, out)
	}
}
