package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LabelSet is the dimensional identity of one exported row: an unordered set
// of name/value pairs. Two LabelSets are equal iff they hold the same pairs.
type LabelSet map[string]string

// Labels builds a LabelSet from alternating name/value arguments.
// It panics on an odd number of arguments.
//
//	cache.Labels("column0", "a", "column1", "b")
func Labels(kv ...string) LabelSet {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("cache.Labels: odd number of arguments (%d)", len(kv)))
	}
	ls := make(LabelSet, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		ls[kv[i]] = kv[i+1]
	}
	return ls
}

// With returns a copy of ls with name set to value.
func (ls LabelSet) With(name, value string) LabelSet {
	out := ls.Clone()
	out[name] = value
	return out
}

// Clone returns an independent copy of ls (never nil).
func (ls LabelSet) Clone() LabelSet {
	out := make(LabelSet, len(ls)+1)
	for k, v := range ls {
		out[k] = v
	}
	return out
}

// Names returns the label names in lexicographic order.
func (ls LabelSet) Names() []string {
	names := make([]string, 0, len(ls))
	for k := range ls {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Fingerprint returns the canonical cache key of ls.
//
// Pairs are sorted by name and both name and value are Go-quoted, so the
// encoding is order-independent and injective: quoted strings are
// self-delimiting, no two distinct sets share a fingerprint.
//
//	{"column0"="a","column1"="b"}
func (ls LabelSet) Fingerprint() string {
	names := ls.Names()

	var b strings.Builder
	b.Grow(2 + len(names)*16)
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(name))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(ls[name]))
	}
	b.WriteByte('}')
	return b.String()
}

// String implements fmt.Stringer using the fingerprint encoding.
func (ls LabelSet) String() string { return ls.Fingerprint() }
