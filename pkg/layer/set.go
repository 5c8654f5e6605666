package layer

import (
	"strings"
)

// AllName is the wire name of the "all layers" sentinel.
const AllName = "all"

// RawName requests the raw text. It is not a layer: nothing depends on it
// and it has no annotations.
const RawName = RawCollection

// Set is a set of layers, or the "all" sentinel, optionally with the raw
// text. The zero value is empty.
type Set struct {
	all  bool
	raw  bool
	bits uint32
}

// All returns the sentinel set containing every layer.
func All() Set {
	return Set{all: true}
}

func NewSet(kinds ...Kind) Set {
	var s Set
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

// ParseSet builds a set from wire names. "all" anywhere in names yields the
// sentinel.
func ParseSet(names []string) (Set, error) {
	var s Set
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if strings.EqualFold(n, AllName) {
			return All(), nil
		}
		if strings.EqualFold(n, RawName) {
			s.raw = true
			continue
		}
		k, err := Parse(n)
		if err != nil {
			return Set{}, err
		}
		s = s.With(k)
	}
	return s, nil
}

func (s Set) IsAll() bool {
	return s.all
}

// HasRaw reports whether the raw text was requested. The sentinel includes it.
func (s Set) HasRaw() bool {
	return s.all || s.raw
}

// WithRaw adds the raw text.
func (s Set) WithRaw() Set {
	s.raw = true
	return s
}

// Layers drops the raw text, keeping only annotation layers.
func (s Set) Layers() Set {
	if s.all {
		return s.expand()
	}
	s.raw = false
	return s
}

func (s Set) Has(k Kind) bool {
	if !k.Valid() {
		return false
	}
	return s.all || s.bits&(1<<uint(k)) != 0
}

func (s Set) With(k Kind) Set {
	if k.Valid() && !s.all {
		s.bits |= 1 << uint(k)
	}
	return s
}

// Without removes k. Removing from the sentinel expands it first.
func (s Set) Without(k Kind) Set {
	if s.all {
		s = s.expand()
		s.raw = true
	}
	s.bits &^= 1 << uint(k)
	return s
}

func (s Set) Union(o Set) Set {
	if s.all || o.all {
		return All()
	}
	s.bits |= o.bits
	s.raw = s.raw || o.raw
	return s
}

func (s Set) Empty() bool {
	return !s.all && !s.raw && s.bits == 0
}

func (s Set) Len() int {
	return len(s.Kinds())
}

// Kinds returns the members in dependency order.
func (s Set) Kinds() []Kind {
	var out []Kind
	for _, k := range Order() {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Closure adds the transitive prerequisites of every member.
func (s Set) Closure() Set {
	if s.all {
		return s
	}
	out := s
	order := Order()
	for i := len(order) - 1; i >= 0; i-- {
		if out.Has(order[i]) {
			for _, r := range order[i].Requires() {
				out = out.With(r)
			}
		}
	}
	return out
}

func (s Set) expand() Set {
	var out Set
	for _, k := range Order() {
		out.bits |= 1 << uint(k)
	}
	return out
}

func (s Set) String() string {
	if s.all {
		return AllName
	}
	names := make([]string, 0, len(table)+1)
	if s.raw {
		names = append(names, RawName)
	}
	for _, k := range s.Kinds() {
		names = append(names, k.Name())
	}
	return "{" + strings.Join(names, ",") + "}"
}
