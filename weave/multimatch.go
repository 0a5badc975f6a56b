package weave

import "github.com/coregx/ahocorasick"

// MultiMatcher finds the earliest occurrence of any of a fixed set of
// needles in a single left-to-right scan, using an Aho-Corasick automaton
// instead of one strings.Index per needle. Build it once with NewMultiMatcher
// and reuse it across many haystacks.
type MultiMatcher struct {
	automaton *ahocorasick.Automaton
	needles   []string
}

// MultiMatch describes where one of a MultiMatcher's needles was found.
type MultiMatch struct {
	Start, End int
	Needle     string
}

// NewMultiMatcher compiles an automaton over needles. An empty needle list
// is valid; FindAnySubstring then always reports no match.
func NewMultiMatcher(needles ...string) (*MultiMatcher, error) {
	builder := ahocorasick.NewBuilder()
	for _, n := range needles {
		builder.AddPattern([]byte(n))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &MultiMatcher{automaton: auto, needles: needles}, nil
}

// FindAnySubstring returns the earliest match of any needle in haystack
// starting at or after `at`, or ok=false if none occurs.
func (m *MultiMatcher) FindAnySubstring(haystack []byte, at int) (match MultiMatch, ok bool) {
	r := m.automaton.Find(haystack, at)
	if r == nil {
		return MultiMatch{}, false
	}
	return MultiMatch{Start: r.Start, End: r.End, Needle: string(haystack[r.Start:r.End])}, true
}

// ContainsAny reports whether any needle occurs anywhere in haystack.
func (m *MultiMatcher) ContainsAny(haystack []byte) bool {
	return m.automaton.IsMatch(haystack)
}

// FindAnyMatcher is the Weave-native form of FindAnySubstring.
func (w *Weave) FindAnyMatcher(m *MultiMatcher) (MultiMatch, bool) {
	return m.FindAnySubstring(w.buf, 0)
}
