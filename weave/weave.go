// Package weave implements Weave (a mutable, length-prefixed fat string),
// Tablet (an interned-string pool built on dagger and arena), and Cord (an
// O(1)-append rope builder).
//
// A Weave holds {len, cap, flags, bytes}; mutation grows capacity to the
// next power of two (floor 64) and is a no-op returning an error on an
// interned or read-only Weave. Two Weaves interned from the same Tablet with
// equal content share pointer identity, so Tablet-interned equality can be
// checked by pointer comparison alone.
//
// Weave is not safe for concurrent use.
package weave

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zoryacorp/pulsar/nxh"
)

// Flag bits recorded on a Weave.
type Flag uint8

const (
	FlagNone     Flag = 0
	FlagInterned Flag = 1 << 0 // owned by a Tablet, immutable
	FlagReadonly Flag = 1 << 1 // mutation prohibited
	FlagStatic   Flag = 1 << 2 // backed by a caller-provided static byte slice
)

// InitialCap is the default capacity reserved for a freshly created, empty
// Weave with no caller-hinted reserve.
const InitialCap = 32

// ErrImmutable is returned by every mutating method when called on a Weave
// with FlagInterned or FlagReadonly set. The Weave is left unchanged.
var ErrImmutable = errors.New("weave: mutation attempted on interned or read-only Weave")

// Weave is a mutable, NUL-terminator-free (Go strings/[]byte carry their own
// length) fat string: a length, a capacity, and a byte buffer, plus
// immutability flags.
type Weave struct {
	buf   []byte
	flags Flag
}

// New creates a Weave from s.
func New(s string) *Weave {
	return NewFromBytes([]byte(s))
}

// NewFromBytes creates a Weave by copying b.
func NewFromBytes(b []byte) *Weave {
	w := &Weave{buf: make([]byte, 0, growCap(0, len(b)))}
	w.buf = append(w.buf, b...)
	return w
}

// WithCap creates an empty Weave with at least the given capacity reserved
// (a caller-hinted reserve, per spec.md's "dedicated initial capacity used
// for new empty Weaves with caller-hinted reserve").
func WithCap(cap int) *Weave {
	if cap < InitialCap {
		cap = InitialCap
	}
	return &Weave{buf: make([]byte, 0, cap)}
}

// Dup returns a fresh, independent, mutable copy of w regardless of w's own
// flags.
func (w *Weave) Dup() *Weave {
	return NewFromBytes(w.buf)
}

func growCap(current, needed int) int {
	if needed <= current {
		return current
	}
	c := current
	if c == 0 {
		c = InitialCap
	}
	for c < needed {
		c *= 2
	}
	if c < 64 {
		c = 64
	}
	return c
}

// Bytes returns the Weave's content as a byte slice. The slice aliases the
// Weave's internal buffer; callers must not retain it across a mutation.
func (w *Weave) Bytes() []byte { return w.buf }

// String returns the Weave's content as a Go string (a copy).
func (w *Weave) String() string { return string(w.buf) }

// Len returns the number of bytes currently stored.
func (w *Weave) Len() int { return len(w.buf) }

// Cap returns the current backing capacity.
func (w *Weave) Cap() int { return cap(w.buf) }

// Empty reports whether Len() == 0.
func (w *Weave) Empty() bool { return len(w.buf) == 0 }

// At returns the byte at index i. Panics if i is out of range, matching the
// original's unchecked-in-release semantics for a hot-path accessor.
func (w *Weave) At(i int) byte { return w.buf[i] }

// Flags returns the Weave's immutability flags.
func (w *Weave) Flags() Flag { return w.flags }

// IsInterned reports whether FlagInterned is set.
func (w *Weave) IsInterned() bool { return w.flags&FlagInterned != 0 }

func (w *Weave) mutable() bool {
	return w.flags&(FlagInterned|FlagReadonly) == 0
}

// ---- mutation ----

func (w *Weave) ensureCap(additional int) {
	needed := len(w.buf) + additional
	if needed <= cap(w.buf) {
		return
	}
	nc := growCap(cap(w.buf), needed)
	nb := make([]byte, len(w.buf), nc)
	copy(nb, w.buf)
	w.buf = nb
}

// Append appends s, growing capacity if needed. Returns ErrImmutable (and
// leaves w unchanged) if w is interned or read-only.
func (w *Weave) Append(s string) error { return w.AppendBytes([]byte(s)) }

// AppendBytes appends b.
func (w *Weave) AppendBytes(b []byte) error {
	if !w.mutable() {
		return ErrImmutable
	}
	w.ensureCap(len(b))
	w.buf = append(w.buf, b...)
	return nil
}

// AppendChar appends a single byte.
func (w *Weave) AppendChar(c byte) error {
	if !w.mutable() {
		return ErrImmutable
	}
	w.ensureCap(1)
	w.buf = append(w.buf, c)
	return nil
}

// AppendWeave appends another Weave's content.
func (w *Weave) AppendWeave(other *Weave) error {
	return w.AppendBytes(other.buf)
}

// Prepend inserts s before the Weave's existing content.
func (w *Weave) Prepend(s string) error { return w.PrependBytes([]byte(s)) }

// PrependBytes inserts b before the Weave's existing content, shifting
// existing bytes right.
func (w *Weave) PrependBytes(b []byte) error {
	if !w.mutable() {
		return ErrImmutable
	}
	w.ensureCap(len(b))
	w.buf = append(w.buf, make([]byte, len(b))...)
	copy(w.buf[len(b):], w.buf[:len(w.buf)-len(b)])
	copy(w.buf, b)
	return nil
}

// Clear truncates the Weave to length 0 without releasing capacity.
func (w *Weave) Clear() error {
	if !w.mutable() {
		return ErrImmutable
	}
	w.buf = w.buf[:0]
	return nil
}

// Truncate shrinks the Weave to at most n bytes. A request longer than the
// current length is a no-op (Truncate never grows).
func (w *Weave) Truncate(n int) error {
	if !w.mutable() {
		return ErrImmutable
	}
	if n < len(w.buf) {
		w.buf = w.buf[:n]
	}
	return nil
}

// Reserve ensures at least minCap bytes of backing capacity.
func (w *Weave) Reserve(minCap int) error {
	if !w.mutable() {
		return ErrImmutable
	}
	if minCap > cap(w.buf) {
		nb := make([]byte, len(w.buf), minCap)
		copy(nb, w.buf)
		w.buf = nb
	}
	return nil
}

// Shrink releases unused backing capacity down to the current length.
func (w *Weave) Shrink() error {
	if !w.mutable() {
		return ErrImmutable
	}
	if cap(w.buf) > len(w.buf) {
		nb := make([]byte, len(w.buf))
		copy(nb, w.buf)
		w.buf = nb
	}
	return nil
}

// ---- derived (read-only input, fresh Weave output) ----

// Substr returns a new Weave holding up to length bytes starting at start.
// Out-of-range arguments are clamped rather than erroring, matching the
// original's permissive substring semantics.
func (w *Weave) Substr(start, length int) *Weave {
	s, e := clampRange(len(w.buf), start, start+length)
	return NewFromBytes(w.buf[s:e])
}

// Slice returns w[start:end]. A negative end counts from the end of the
// Weave (Python-style), matching the spec's "slice" operation.
func (w *Weave) Slice(start int, end int) *Weave {
	n := len(w.buf)
	if end < 0 {
		end = n + end
	}
	s, e := clampRange(n, start, end)
	return NewFromBytes(w.buf[s:e])
}

func clampRange(n, start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	if end > n {
		end = n
	}
	return start, end
}

// Replace returns a copy of w with the first occurrence of old replaced by
// replacement.
func (w *Weave) Replace(old, replacement string) *Weave {
	return NewFromBytes([]byte(strings.Replace(string(w.buf), old, replacement, 1)))
}

// ReplaceAll returns a copy of w with every non-overlapping occurrence of
// old replaced by replacement.
func (w *Weave) ReplaceAll(old, replacement string) *Weave {
	return NewFromBytes([]byte(strings.ReplaceAll(string(w.buf), old, replacement)))
}

// Trim strips leading and trailing ASCII whitespace.
func (w *Weave) Trim() *Weave {
	return NewFromBytes([]byte(strings.TrimSpace(string(w.buf))))
}

// TrimChars strips leading and trailing bytes found in chars.
func (w *Weave) TrimChars(chars string) *Weave {
	return NewFromBytes([]byte(strings.Trim(string(w.buf), chars)))
}

// TrimLeft strips leading bytes found in chars.
func (w *Weave) TrimLeft(chars string) *Weave {
	return NewFromBytes([]byte(strings.TrimLeft(string(w.buf), chars)))
}

// TrimRight strips trailing bytes found in chars.
func (w *Weave) TrimRight(chars string) *Weave {
	return NewFromBytes([]byte(strings.TrimRight(string(w.buf), chars)))
}

// ToUpper returns an ASCII-uppercased copy; non-ASCII bytes pass through
// unchanged (spec.md's Unicode non-goal).
func (w *Weave) ToUpper() *Weave {
	b := append([]byte(nil), w.buf...)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return &Weave{buf: b}
}

// ToLower returns an ASCII-lowercased copy.
func (w *Weave) ToLower() *Weave {
	b := append([]byte(nil), w.buf...)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return &Weave{buf: b}
}

// Repeat returns w's content repeated n times.
func (w *Weave) Repeat(n int) *Weave {
	if n <= 0 {
		return WithCap(0)
	}
	return NewFromBytes(bytesRepeat(w.buf, n))
}

func bytesRepeat(b []byte, n int) []byte {
	out := make([]byte, 0, len(b)*n)
	for i := 0; i < n; i++ {
		out = append(out, b...)
	}
	return out
}

// Reverse returns w's bytes in reverse order.
func (w *Weave) Reverse() *Weave {
	n := len(w.buf)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = w.buf[n-1-i]
	}
	return &Weave{buf: out}
}

// ---- search ----

// Find returns the byte index of the first occurrence of needle, or -1.
func (w *Weave) Find(needle string) int { return strings.Index(string(w.buf), needle) }

// FindFrom returns the byte index of the first occurrence of needle at or
// after start, or -1.
func (w *Weave) FindFrom(needle string, start int) int {
	if start < 0 || start > len(w.buf) {
		return -1
	}
	idx := strings.Index(string(w.buf[start:]), needle)
	if idx < 0 {
		return -1
	}
	return start + idx
}

// RFind returns the byte index of the last occurrence of needle, or -1.
func (w *Weave) RFind(needle string) int { return strings.LastIndex(string(w.buf), needle) }

// FindChar returns the index of the first occurrence of c, or -1.
func (w *Weave) FindChar(c byte) int {
	for i, b := range w.buf {
		if b == c {
			return i
		}
	}
	return -1
}

// RFindChar returns the index of the last occurrence of c, or -1.
func (w *Weave) RFindChar(c byte) int {
	for i := len(w.buf) - 1; i >= 0; i-- {
		if w.buf[i] == c {
			return i
		}
	}
	return -1
}

// FindAny returns the index of the first byte that appears in chars, or -1.
func (w *Weave) FindAny(chars string) int {
	return strings.IndexAny(string(w.buf), chars)
}

// FindNot returns the index of the first byte that does NOT appear in
// chars, or -1.
func (w *Weave) FindNot(chars string) int {
	for i, b := range w.buf {
		if !strings.ContainsRune(chars, rune(b)) {
			return i
		}
	}
	return -1
}

// Contains reports whether needle occurs in w.
func (w *Weave) Contains(needle string) bool { return strings.Contains(string(w.buf), needle) }

// StartsWith reports whether w begins with prefix.
func (w *Weave) StartsWith(prefix string) bool {
	return strings.HasPrefix(string(w.buf), prefix)
}

// EndsWith reports whether w ends with suffix.
func (w *Weave) EndsWith(suffix string) bool {
	return strings.HasSuffix(string(w.buf), suffix)
}

// Count returns the number of non-overlapping occurrences of needle.
func (w *Weave) Count(needle string) int {
	return strings.Count(string(w.buf), needle)
}

// ---- comparison ----

// Cmp returns -1, 0, or 1 per strict byte-wise comparison.
func (w *Weave) Cmp(other *Weave) int {
	return strings.Compare(string(w.buf), string(other.buf))
}

// CmpCStr compares against a plain string.
func (w *Weave) CmpCStr(s string) int {
	return strings.Compare(string(w.buf), s)
}

// CaseCmp compares ASCII-case-insensitively.
func (w *Weave) CaseCmp(other *Weave) int {
	return strings.Compare(strings.ToLower(string(w.buf)), strings.ToLower(string(other.buf)))
}

// Eq reports strict byte-wise equality.
func (w *Weave) Eq(other *Weave) bool { return w.Cmp(other) == 0 }

// EqCStr reports strict equality against a plain string.
func (w *Weave) EqCStr(s string) bool { return string(w.buf) == s }

// CaseEq reports ASCII-case-insensitive equality.
func (w *Weave) CaseEq(other *Weave) bool { return w.CaseCmp(other) == 0 }

// Hash returns the NXH primary hash of w's content.
func (w *Weave) Hash() uint64 { return nxh.Hash64(w.buf, nxh.SeedDefault) }

// ---- split / join / format ----

// Split divides w on each occurrence of delim.
func (w *Weave) Split(delim string) []*Weave {
	parts := strings.Split(string(w.buf), delim)
	out := make([]*Weave, len(parts))
	for i, p := range parts {
		out[i] = New(p)
	}
	return out
}

// SplitAny divides w at every byte found in chars. Empty fields (from
// adjacent, leading, or trailing separators) are dropped.
func (w *Weave) SplitAny(chars string) []*Weave {
	parts := strings.FieldsFunc(string(w.buf), func(r rune) bool {
		return strings.ContainsRune(chars, r)
	})
	out := make([]*Weave, len(parts))
	for i, p := range parts {
		out[i] = New(p)
	}
	return out
}

// Lines splits on \n, \r, and \r\n.
func (w *Weave) Lines() []*Weave {
	s := string(w.buf)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	parts := strings.Split(s, "\n")
	out := make([]*Weave, len(parts))
	for i, p := range parts {
		out[i] = New(p)
	}
	return out
}

// Join concatenates parts with sep between them.
func Join(parts []string, sep string) *Weave {
	return New(strings.Join(parts, sep))
}

// JoinWeaves concatenates Weave parts with sep between them.
func JoinWeaves(parts []*Weave, sep string) *Weave {
	ss := make([]string, len(parts))
	for i, p := range parts {
		ss[i] = p.String()
	}
	return Join(ss, sep)
}

// Format builds a new Weave via fmt.Sprintf semantics.
func Format(format string, args ...any) *Weave {
	return New(fmt.Sprintf(format, args...))
}

// AppendFormat appends fmt.Sprintf(format, args...) to w.
func (w *Weave) AppendFormat(format string, args ...any) error {
	return w.Append(fmt.Sprintf(format, args...))
}
