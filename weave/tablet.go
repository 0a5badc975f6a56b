package weave

import (
	"github.com/zoryacorp/pulsar/arena"
	"github.com/zoryacorp/pulsar/dagger"
)

// Tablet is a string intern pool: Intern(s) always returns the same *Weave
// pointer for equal content, so two Tablet-interned Weaves can be compared
// for equality with a pointer comparison instead of a byte comparison.
// Interned Weaves carry FlagInterned and reject every mutating method.
//
// A Tablet owns its interned storage in an arena.Arena; the pool and every
// Weave it ever returned become invalid once Destroy is called.
type Tablet struct {
	table *dagger.Table
	mem   *arena.Arena
	count int
}

func weaveKeyEqual(a, b []byte) bool {
	return string(a) == string(b)
}

// NewTablet creates an empty intern pool. chunkSize is passed through to the
// backing arena (0 selects arena.DefaultChunkSize).
func NewTablet(chunkSize int) *Tablet {
	return &Tablet{
		table: dagger.New(0, weaveKeyEqual),
		mem:   arena.New(chunkSize),
	}
}

// Intern returns the canonical *Weave for s, creating and storing one on
// first sight. The returned Weave is interned: Append, Prepend, Truncate and
// every other mutating method return ErrImmutable.
func (tb *Tablet) Intern(s string) *Weave {
	return tb.InternBytes([]byte(s))
}

// InternBytes is Intern taking a byte slice directly.
func (tb *Tablet) InternBytes(b []byte) *Weave {
	if v, ok := tb.table.Get(b); ok {
		return v.(*Weave)
	}
	owned := tb.mem.DupBytes(b)
	w := &Weave{buf: owned, flags: FlagInterned | FlagReadonly}
	// dagger.Table clones the key itself; the key and the Weave's backing
	// bytes are independent copies so mutation of one cannot affect the
	// other, but since w is interned no mutation is possible anyway.
	tb.table.Set(owned, w, true)
	tb.count++
	return w
}

// Lookup reports whether s has already been interned, returning its
// canonical Weave if so.
func (tb *Tablet) Lookup(s string) (*Weave, bool) {
	v, ok := tb.table.Get([]byte(s))
	if !ok {
		return nil, false
	}
	return v.(*Weave), true
}

// Count returns the number of distinct strings interned so far.
func (tb *Tablet) Count() int { return tb.count }

// Stats exposes the backing arena's allocation statistics, useful for
// sizing a Tablet meant to live for a process's whole lifetime.
func (tb *Tablet) Stats() arena.Stats { return tb.mem.Stats() }

// Destroy releases the Tablet's backing arena. Every Weave previously
// returned by Intern becomes invalid.
func (tb *Tablet) Destroy() {
	tb.mem.Destroy()
	tb.table.Clear()
	tb.count = 0
}
