package dagger

import (
	"fmt"
	"math/rand"
	"testing"
)

func key(s string) []byte { return []byte(s) }

func TestSetGetRemove(t *testing.T) {
	tb := New(0, nil)
	if err := tb.Set(key("alpha"), 1, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := tb.Get(key("alpha"))
	if !ok || v.(int) != 1 {
		t.Fatalf("Get = %v, %v; want 1, true", v, ok)
	}

	if err := tb.Set(key("alpha"), 2, false); err != ErrExists {
		t.Fatalf("Set replace=false on existing key = %v, want ErrExists", err)
	}
	if err := tb.Set(key("alpha"), 2, true); err != nil {
		t.Fatalf("Set replace=true: %v", err)
	}
	v, _ = tb.Get(key("alpha"))
	if v.(int) != 2 {
		t.Fatalf("after replace, Get = %v, want 2", v)
	}

	if err := tb.Remove(key("alpha")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := tb.Get(key("alpha")); ok {
		t.Fatal("key still present after Remove")
	}
	if err := tb.Remove(key("alpha")); err != ErrNotFound {
		t.Fatalf("Remove missing key = %v, want ErrNotFound", err)
	}
}

func TestInvalidArgs(t *testing.T) {
	tb := New(0, nil)
	if err := tb.Set(nil, 1, true); err != ErrInvalidArg {
		t.Fatalf("Set(nil key) = %v, want ErrInvalidArg", err)
	}
	if err := tb.Remove(nil); err != ErrInvalidArg {
		t.Fatalf("Remove(nil key) = %v, want ErrInvalidArg", err)
	}
}

func TestGetReflectsLastSetSinceLastRemove(t *testing.T) {
	tb := New(0, nil)
	rng := rand.New(rand.NewSource(3))
	model := map[string]int{}
	removed := map[string]bool{}

	for i := 0; i < 5000; i++ {
		k := fmt.Sprintf("k%d", rng.Intn(200))
		switch rng.Intn(3) {
		case 0:
			v := rng.Int()
			if err := tb.Set(key(k), v, true); err != nil {
				t.Fatalf("Set(%q): %v", k, err)
			}
			model[k] = v
			delete(removed, k)
		case 1:
			err := tb.Remove(key(k))
			if _, existed := model[k]; existed {
				if err != nil {
					t.Fatalf("Remove(%q) should have succeeded: %v", k, err)
				}
				delete(model, k)
				removed[k] = true
			} else if err != ErrNotFound {
				t.Fatalf("Remove(%q) on absent key = %v, want ErrNotFound", k, err)
			}
		default:
			v, ok := tb.Get(key(k))
			want, exists := model[k]
			if ok != exists {
				t.Fatalf("Get(%q) ok=%v, want %v", k, ok, exists)
			}
			if exists && v.(int) != want {
				t.Fatalf("Get(%q) = %v, want %v", k, v, want)
			}
		}
	}

	for k, want := range model {
		v, ok := tb.Get(key(k))
		if !ok || v.(int) != want {
			t.Fatalf("final check Get(%q) = %v, %v; want %v, true", k, v, ok, want)
		}
	}
	if tb.Len() != len(model) {
		t.Fatalf("Len() = %d, want %d", tb.Len(), len(model))
	}
}

func TestForEachVisitsExactlyCount(t *testing.T) {
	tb := New(0, nil)
	for i := 0; i < 300; i++ {
		tb.Set(key(fmt.Sprintf("item-%d", i)), i, true)
	}
	visited := tb.ForEach(func(k []byte, v any) bool { return true })
	if visited != tb.Len() {
		t.Fatalf("ForEach visited %d, want %d", visited, tb.Len())
	}
}

func TestResizeKeepsAllKeysFindable(t *testing.T) {
	tb := New(16, nil)
	const n = 2000
	for i := 0; i < n; i++ {
		if err := tb.Set(key(fmt.Sprintf("resize-%d", i)), i, true); err != nil {
			t.Fatalf("Set %d: %v", i, err)
		}
	}
	if tb.Stats().ResizeCount == 0 {
		t.Fatal("expected at least one resize over 2000 inserts starting at capacity 16")
	}
	for i := 0; i < n; i++ {
		v, ok := tb.Get(key(fmt.Sprintf("resize-%d", i)))
		if !ok || v.(int) != i {
			t.Fatalf("after resize, Get(%d) = %v, %v", i, v, ok)
		}
	}
}

func TestWorstCaseProbeBound(t *testing.T) {
	tb := New(64, nil)
	for i := 0; i < 40; i++ {
		tb.Set(key(fmt.Sprintf("bound-%d", i)), i, true)
	}
	before := tb.Stats().TotalProbes
	beforeLookups := tb.Stats().TotalLookups
	tb.Get(key("does-not-exist"))
	after := tb.Stats()
	probesUsed := after.TotalProbes - before
	_ = beforeLookups
	maxAllowed := uint64(2 * (PSLThreshold + 1))
	if probesUsed > maxAllowed {
		t.Fatalf("lookup used %d probes, want <= %d", probesUsed, maxAllowed)
	}
}

func TestBackwardShiftPreservesRobinHoodAndCuckooInvariants(t *testing.T) {
	tb := New(32, nil)
	keys := make([]string, 0, 64)
	for i := 0; i < 64; i++ {
		k := fmt.Sprintf("shift-%d", i)
		if err := tb.Set(key(k), i, true); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
		keys = append(keys, k)
	}
	if tb.Stats().CuckooCount == 0 {
		t.Skip("no cuckoo entries landed for this key set; invariant not exercised")
	}

	// Remove roughly every third key and verify every survivor is still
	// findable afterward (exercises backward shift across a table that has
	// a mix of Robin Hood and cuckoo residents).
	for i, k := range keys {
		if i%3 == 0 {
			if err := tb.Remove(key(k)); err != nil {
				t.Fatalf("Remove(%q): %v", k, err)
			}
		}
	}
	for i, k := range keys {
		_, ok := tb.Get(key(k))
		if i%3 == 0 {
			if ok {
				t.Fatalf("%q should have been removed", k)
			}
		} else if !ok {
			t.Fatalf("%q should still be present after neighboring removals", k)
		}
	}
}

func TestClearInvokesDestructorAndEmpties(t *testing.T) {
	tb := New(0, nil)
	destroyed := 0
	tb.SetValueDestructor(func(v any) { destroyed++ })
	for i := 0; i < 10; i++ {
		tb.Set(key(fmt.Sprintf("c%d", i)), i, true)
	}
	tb.Clear()
	if destroyed != 10 {
		t.Fatalf("destroyed = %d, want 10", destroyed)
	}
	if tb.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", tb.Len())
	}
}

func TestSetClonesKeyEvenAcrossRobinHoodSteal(t *testing.T) {
	// Drive enough collisions into a small table that some insert triggers
	// a Robin Hood steal, then reuse the caller's scratch buffer the way a
	// loop over a shared buffer would. If a steal ever left a resident slot
	// aliasing that buffer, mutating it here would corrupt the table.
	tb := New(8, nil)
	const n = 64
	scratch := make([]byte, 0, 16)
	for i := 0; i < n; i++ {
		scratch = append(scratch[:0], fmt.Sprintf("steal-%d", i)...)
		if err := tb.Set(scratch, i, true); err != nil {
			t.Fatalf("Set %d: %v", i, err)
		}
	}
	for i := range scratch {
		scratch[i] = 'X'
	}

	for i := 0; i < n; i++ {
		v, ok := tb.Get(key(fmt.Sprintf("steal-%d", i)))
		if !ok || v.(int) != i {
			t.Fatalf("Get(steal-%d) = %v, %v; want %d, true (key aliasing survived a steal?)", i, v, ok, i)
		}
	}
}

func TestCustomEqualityPredicate(t *testing.T) {
	// Keys are hashed by their bytes, so the predicate decides equality only
	// among keys with matching hashes. A predicate that rejects every pair
	// turns a second insert of the same bytes into a distinct entry.
	calls := 0
	eq := func(a, b []byte) bool {
		calls++
		return false
	}
	tb := New(0, eq)
	if err := tb.Set(key("Hello"), 1, false); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := tb.Set(key("Hello"), 2, false); err != nil {
		t.Fatalf("second Set = %v, want nil (predicate rejects every pair)", err)
	}
	if calls == 0 {
		t.Fatal("custom equality predicate not honored")
	}
	if tb.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tb.Len())
	}
}

func BenchmarkSet(b *testing.B) {
	tb := New(0, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tb.Set(key(fmt.Sprintf("bench-%d", i)), i, true)
	}
}

func BenchmarkGetHit(b *testing.B) {
	tb := New(0, nil)
	for i := 0; i < 10000; i++ {
		tb.Set(key(fmt.Sprintf("bench-%d", i)), i, true)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tb.Get(key(fmt.Sprintf("bench-%d", i%10000)))
	}
}
