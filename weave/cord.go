package weave

import "strings"

// cordChunk is one link in a Cord's chunk list. owned chunks hold a private
// copy of their bytes; borrowed chunks alias caller-supplied memory and are
// only safe to materialize before the caller mutates or frees that memory.
type cordChunk struct {
	data   []byte
	owned  bool
}

// Cord is an append-only rope: AppendBytes/AppendString/AppendWeave copy only
// their own input into a new chunk (AppendBorrowed links it without copying),
// never the content already appended, and the whole content is materialized
// into a single contiguous Weave in O(n) only when ToWeave or String is
// called. This makes Cord the right tool for building up a large string from
// many small pieces without the repeated copying a plain Weave.Append would
// incur.
type Cord struct {
	chunks []cordChunk
	length int
}

// NewCord creates an empty Cord.
func NewCord() *Cord {
	return &Cord{}
}

// AppendString links a copy of s onto the Cord.
func (c *Cord) AppendString(s string) *Cord {
	return c.appendOwned([]byte(s))
}

// AppendBytes links a copy of b onto the Cord.
func (c *Cord) AppendBytes(b []byte) *Cord {
	cp := make([]byte, len(b))
	copy(cp, b)
	return c.appendOwned(cp)
}

// AppendBorrowed links b onto the Cord without copying. The caller must not
// mutate or invalidate b before the Cord is materialized (ToWeave, String,
// or ForEach).
func (c *Cord) AppendBorrowed(b []byte) *Cord {
	if len(b) == 0 {
		return c
	}
	c.chunks = append(c.chunks, cordChunk{data: b, owned: false})
	c.length += len(b)
	return c
}

// AppendWeave links a copy of w's content onto the Cord.
func (c *Cord) AppendWeave(w *Weave) *Cord {
	return c.appendOwned(append([]byte(nil), w.buf...))
}

func (c *Cord) appendOwned(b []byte) *Cord {
	if len(b) == 0 {
		return c
	}
	c.chunks = append(c.chunks, cordChunk{data: b, owned: true})
	c.length += len(b)
	return c
}

// Len returns the total byte length across all linked chunks.
func (c *Cord) Len() int { return c.length }

// ChunkCount returns the number of chunks currently linked.
func (c *Cord) ChunkCount() int { return len(c.chunks) }

// ToWeave materializes every chunk into a single new Weave.
func (c *Cord) ToWeave() *Weave {
	buf := make([]byte, 0, c.length)
	for _, ch := range c.chunks {
		buf = append(buf, ch.data...)
	}
	return &Weave{buf: buf}
}

// String materializes every chunk into a plain Go string.
func (c *Cord) String() string {
	var sb strings.Builder
	sb.Grow(c.length)
	for _, ch := range c.chunks {
		sb.Write(ch.data)
	}
	return sb.String()
}

// ForEach visits each chunk in order without materializing the whole Cord.
// fn returning false stops iteration early.
func (c *Cord) ForEach(fn func(chunk []byte) bool) {
	for _, ch := range c.chunks {
		if !fn(ch.data) {
			return
		}
	}
}

// Clear removes every linked chunk, returning the Cord to empty.
func (c *Cord) Clear() {
	c.chunks = c.chunks[:0]
	c.length = 0
}

// JoinSafe appends parts onto the Cord separated by the first of
// candidateDelims that occurs in none of them, so the joined result can
// later be split back into the same parts without ambiguity. It scans each
// part with a single MultiMatcher built over every candidate rather than
// probing with one strings.Contains per candidate per part, and reports
// which delimiter it chose. ok is false if every candidate collides with
// some part, or if candidateDelims is empty; the Cord is left unmodified in
// that case.
func (c *Cord) JoinSafe(parts []string, candidateDelims ...string) (chosen string, ok bool) {
	if len(candidateDelims) == 0 {
		return "", false
	}
	m, err := NewMultiMatcher(candidateDelims...)
	if err != nil {
		return "", false
	}
	collides := make(map[string]bool, len(candidateDelims))
	for _, p := range parts {
		b := []byte(p)
		for at := 0; at <= len(b); {
			match, found := m.FindAnySubstring(b, at)
			if !found {
				break
			}
			collides[match.Needle] = true
			at = match.Start + 1
		}
	}
	for _, d := range candidateDelims {
		if !collides[d] {
			chosen, ok = d, true
			break
		}
	}
	if !ok {
		return "", false
	}
	for i, p := range parts {
		if i > 0 {
			c.AppendString(chosen)
		}
		c.AppendString(p)
	}
	return chosen, true
}
