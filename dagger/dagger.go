// Package dagger implements a hash table combining Robin Hood linear
// probing with a cuckoo fallback, guaranteeing O(1) worst-case lookup.
//
// Keys are arbitrary byte slices. Two independent NXH hashes are computed
// per key: a primary hash drives the Robin Hood probe chain, and an
// alternate hash drives a second, cuckoo-style chain that a candidate falls
// back to once its Robin Hood probe sequence length (PSL) exceeds
// PSLThreshold. This bounds worst-case lookup to at most
// 2*(PSLThreshold+1) probes regardless of insertion order, at the cost of
// occasionally needing a resize (see CuckooCycleLimit).
//
// Table is not safe for concurrent use.
package dagger

import (
	"errors"

	"github.com/zoryacorp/pulsar/nxh"
)

// Tuning parameters, fixed by the spec.
const (
	// PSLThreshold is the probe sequence length at which Robin Hood
	// insertion yields to the cuckoo fallback.
	PSLThreshold = 16

	// CuckooCycleLimit bounds the number of cuckoo displacement cycles
	// attempted before an insert gives up and asks the caller to resize.
	CuckooCycleLimit = 500

	// MinCapacity is the floor for any table capacity, always a power of two.
	MinCapacity = 16

	// InitialCapacity is used when New is given a smaller-than-minimum
	// hint, matching DAGGER_INITIAL_CAPACITY in the original.
	InitialCapacity = 64

	// LoadFactorPercent is the occupancy percentage that triggers a resize
	// before the next insert.
	LoadFactorPercent = 75

	// GrowthFactor is the capacity multiplier used on resize.
	GrowthFactor = 2
)

// Errors returned by Table operations. ErrNotFound and ErrExists are
// first-class results, not failure conditions — callers branch on them the
// way they would on an idiomatic Go map's "ok" return.
var (
	ErrNotFound   = errors.New("dagger: key not found")
	ErrExists     = errors.New("dagger: key already exists")
	ErrInvalidArg = errors.New("dagger: invalid argument (zero-length key)")
	ErrTableFull  = errors.New("dagger: cuckoo cycle limit exceeded, resize required")
)

// EqualFunc reports whether two keys of possibly-differing origin are equal.
// The default (used when New is passed nil) compares length and bytes.
// Keys are hashed by their bytes, and the predicate is consulted only for a
// stored key whose primary hash equals the probed key's, so it cannot make
// keys with different bytes (for example, differing only in case) match.
type EqualFunc func(a, b []byte) bool

func defaultEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ValueDestroyFunc is called on a value evicted by Remove, Clear, or a
// replacing Set, allowing the client to release resources it owns.
type ValueDestroyFunc func(value any)

// entry is one hash table slot. occupied distinguishes a zero-value entry
// from a genuinely empty slot.
type entry struct {
	hashPrimary uint64
	hashAlt     uint64
	key         []byte
	value       any
	psl         uint8
	occupied    bool
	inCuckoo    bool
}

// Stats reports cheap, always-maintained table counters.
type Stats struct {
	Count        int
	Capacity     int
	MaxPSL       int
	CuckooCount  int
	ResizeCount  int
	TotalProbes  uint64
	TotalLookups uint64
	LoadFactor   float64
	AvgProbes    float64
}

// Table is a Robin-Hood-with-cuckoo-fallback hash table keyed by []byte.
type Table struct {
	entries []entry
	count   int
	mask    uint64

	seedPrimary uint64
	seedAlt     uint64

	equal         EqualFunc
	valueDestroy  ValueDestroyFunc

	maxPSL       int
	cuckooCount  int
	resizeCount  int
	totalProbes  uint64
	totalLookups uint64
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

// New creates a table with the given initial capacity hint (rounded up to a
// power of two; a hint below MinCapacity selects InitialCapacity) and an
// optional key-equality
// predicate (nil selects length+byte-wise equality).
func New(initialCapacity int, equal EqualFunc) *Table {
	if initialCapacity < MinCapacity {
		initialCapacity = InitialCapacity
	}
	capacity := nextPow2(initialCapacity)
	if equal == nil {
		equal = defaultEqual
	}
	return &Table{
		entries:     make([]entry, capacity),
		mask:        uint64(capacity - 1),
		seedPrimary: nxh.SeedDefault,
		seedAlt:     nxh.SeedAlt,
		equal:       equal,
	}
}

// SetValueDestructor registers a callback invoked on values removed from the
// table by Remove, Clear, a replacing Set, or Destroy-equivalent teardown.
func (t *Table) SetValueDestructor(fn ValueDestroyFunc) {
	t.valueDestroy = fn
}

func (t *Table) destroyValue(v any) {
	if t.valueDestroy != nil {
		t.valueDestroy(v)
	}
}

func cloneKey(key []byte) []byte {
	k := make([]byte, len(key))
	copy(k, key)
	return k
}

// Set inserts key/value. If the key already exists and replace is false,
// ErrExists is returned and the table is unchanged. If replace is true, the
// previous value is passed to the value destructor (if any) and overwritten.
func (t *Table) Set(key []byte, value any, replace bool) error {
	if len(key) == 0 {
		return ErrInvalidArg
	}

	threshold := (len(t.entries) * LoadFactorPercent) / 100
	if t.count >= threshold {
		if err := t.Resize(len(t.entries) * GrowthFactor); err != nil {
			return err
		}
	}

	h1 := nxh.Hash64(key, t.seedPrimary)
	h2 := nxh.Hash64Alt(key, t.seedAlt)

	err := t.insert(key, value, h1, h2, replace)
	if errors.Is(err, ErrTableFull) {
		if rerr := t.Resize(len(t.entries) * GrowthFactor); rerr != nil {
			return rerr
		}
		h1 = nxh.Hash64(key, t.seedPrimary)
		h2 = nxh.Hash64Alt(key, t.seedAlt)
		err = t.insert(key, value, h1, h2, replace)
	}
	return err
}

// insert runs the Robin-Hood-then-cuckoo placement loop for one candidate
// entry. It assumes the caller has already ensured headroom via Set's
// load-factor check (or a resize retry), so it returns ErrTableFull only
// when the cuckoo cycle limit is exceeded.
func (t *Table) insert(key []byte, value any, h1, h2 uint64, replace bool) error {
	cand := entry{
		hashPrimary: h1,
		hashAlt:     h2,
		key:         key,
		value:       value,
		psl:         0,
		occupied:    true,
	}

	idx := h1 & t.mask
	cuckooCycles := 0
	inCuckooPhase := false

	for {
		slot := &t.entries[idx]

		if !slot.occupied {
			*slot = cand
			slot.key = cloneKey(cand.key)
			slot.inCuckoo = inCuckooPhase
			t.count++
			if inCuckooPhase {
				t.cuckooCount++
			}
			if int(cand.psl) > t.maxPSL {
				t.maxPSL = int(cand.psl)
			}
			return nil
		}

		if slot.hashPrimary == h1 && t.equal(slot.key, key) {
			if replace {
				t.destroyValue(slot.value)
				slot.value = value
				return nil
			}
			return ErrExists
		}

		// Robin Hood: the richer candidate steals this slot.
		if cand.psl > slot.psl {
			tmp := *slot
			*slot = cand
			slot.key = cloneKey(cand.key)
			slot.inCuckoo = inCuckooPhase
			cand = tmp
		}

		cand.psl++
		idx = (idx + 1) & t.mask

		if !inCuckooPhase && int(cand.psl) > PSLThreshold {
			inCuckooPhase = true
			cand.psl = 0
			idx = cand.hashAlt & t.mask
			cuckooCycles = 0
		}

		if inCuckooPhase {
			cuckooCycles++
			if cuckooCycles > CuckooCycleLimit {
				return ErrTableFull
			}
		}
	}
}

// Get returns the value stored for key and true, or (nil, false) if absent.
func (t *Table) Get(key []byte) (any, bool) {
	if len(key) == 0 {
		return nil, false
	}
	t.totalLookups++

	h1 := nxh.Hash64(key, t.seedPrimary)
	idx := h1 & t.mask
	var probes uint64

	for {
		slot := &t.entries[idx]
		probes++

		if !slot.occupied {
			t.totalProbes += probes
			return nil, false
		}
		if slot.hashPrimary == h1 && t.equal(slot.key, key) {
			t.totalProbes += probes
			return slot.value, true
		}
		if uint64(slot.psl) < probes-1 {
			break
		}
		if probes >= PSLThreshold+1 {
			break
		}
		idx = (idx + 1) & t.mask
	}

	h2 := nxh.Hash64Alt(key, t.seedAlt)
	idx = h2 & t.mask
	for i := 0; i <= PSLThreshold; i++ {
		slot := &t.entries[idx]
		probes++

		if !slot.occupied {
			t.totalProbes += probes
			return nil, false
		}
		if slot.inCuckoo && slot.hashAlt == h2 && t.equal(slot.key, key) {
			t.totalProbes += probes
			return slot.value, true
		}
		idx = (idx + 1) & t.mask
	}

	t.totalProbes += probes
	return nil, false
}

// Contains reports whether key is present, without returning its value.
func (t *Table) Contains(key []byte) bool {
	_, ok := t.Get(key)
	return ok
}

// Remove deletes key if present, returning ErrNotFound otherwise. Removal
// invokes the value destructor (if set) and then performs a backward-shift
// of the trailing probe chain to preserve the Robin Hood invariant.
func (t *Table) Remove(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidArg
	}

	h1 := nxh.Hash64(key, t.seedPrimary)
	idx := h1 & t.mask
	var probes int
	found := false
	inCuckoo := false

	for probes <= PSLThreshold {
		slot := &t.entries[idx]
		probes++

		if !slot.occupied {
			break
		}
		if slot.hashPrimary == h1 && t.equal(slot.key, key) {
			found = true
			inCuckoo = slot.inCuckoo
			break
		}
		if int(slot.psl) < probes-1 {
			break
		}
		idx = (idx + 1) & t.mask
	}

	if !found {
		h2 := nxh.Hash64Alt(key, t.seedAlt)
		idx = h2 & t.mask
		for i := 0; i <= PSLThreshold && !found; i++ {
			slot := &t.entries[idx]
			if !slot.occupied {
				break
			}
			if slot.inCuckoo && slot.hashAlt == h2 && t.equal(slot.key, key) {
				found = true
				inCuckoo = true
				break
			}
			idx = (idx + 1) & t.mask
		}
	}

	if !found {
		return ErrNotFound
	}

	slot := &t.entries[idx]
	t.destroyValue(slot.value)
	*slot = entry{}
	t.count--
	if inCuckoo {
		t.cuckooCount--
	}

	// Backward-shift deletion within the local window: whichever chain
	// (Robin Hood or cuckoo) the following entries belong to, each one
	// simply moves back one slot and has its PSL decremented; a shifted
	// cuckoo entry keeps inCuckoo=true and hashAlt unchanged, so it
	// remains reachable only via the alternate-hash chain afterward.
	next := (idx + 1) & t.mask
	for t.entries[next].occupied && t.entries[next].psl > 0 {
		t.entries[idx] = t.entries[next]
		t.entries[idx].psl--
		t.entries[next] = entry{}
		idx = next
		next = (next + 1) & t.mask
	}

	return nil
}

// Clear empties the table, invoking the value destructor (if set) on every
// occupied slot, without shrinking capacity.
func (t *Table) Clear() {
	if t.valueDestroy != nil {
		for i := range t.entries {
			if t.entries[i].occupied {
				t.destroyValue(t.entries[i].value)
			}
		}
	}
	for i := range t.entries {
		t.entries[i] = entry{}
	}
	t.count = 0
	t.maxPSL = 0
	t.cuckooCount = 0
}

// Resize grows (or otherwise rebuilds) the table to newCapacity, rounded up
// to a power of two no smaller than MinCapacity. Every live entry is
// re-inserted using its already-computed hashes.
func (t *Table) Resize(newCapacity int) error {
	newCapacity = nextPow2(newCapacity)
	if newCapacity < MinCapacity {
		newCapacity = MinCapacity
	}

	old := t.entries
	oldCount, oldMaxPSL, oldCuckoo := t.count, t.maxPSL, t.cuckooCount
	t.entries = make([]entry, newCapacity)
	t.mask = uint64(newCapacity - 1)
	t.count = 0
	t.maxPSL = 0
	t.cuckooCount = 0
	t.resizeCount++

	for i := range old {
		if !old[i].occupied {
			continue
		}
		if err := t.insert(old[i].key, old[i].value, old[i].hashPrimary, old[i].hashAlt, true); err != nil {
			// Restore old table on failure.
			t.entries = old
			t.mask = uint64(len(old) - 1)
			t.count, t.maxPSL, t.cuckooCount = oldCount, oldMaxPSL, oldCuckoo
			t.resizeCount--
			return err
		}
	}
	return nil
}

// ForEach visits every occupied slot in array order (an unspecified but
// stable-for-this-table order). fn returning false stops iteration early.
// ForEach returns the number of entries visited.
func (t *Table) ForEach(fn func(key []byte, value any) bool) int {
	visited := 0
	for i := range t.entries {
		if !t.entries[i].occupied {
			continue
		}
		visited++
		if !fn(t.entries[i].key, t.entries[i].value) {
			break
		}
	}
	return visited
}

// Len returns the number of occupied slots.
func (t *Table) Len() int {
	return t.count
}

// Stats returns a snapshot of the table's running counters.
func (t *Table) Stats() Stats {
	s := Stats{
		Count:        t.count,
		Capacity:     len(t.entries),
		MaxPSL:       t.maxPSL,
		CuckooCount:  t.cuckooCount,
		ResizeCount:  t.resizeCount,
		TotalProbes:  t.totalProbes,
		TotalLookups: t.totalLookups,
	}
	if s.Capacity > 0 {
		s.LoadFactor = float64(s.Count) / float64(s.Capacity)
	}
	if s.TotalLookups > 0 {
		s.AvgProbes = float64(s.TotalProbes) / float64(s.TotalLookups)
	}
	return s
}
