package layer

import (
	"fmt"
	"strings"
)

// Kind is one annotation layer. The zero value is not a layer.
type Kind int

const (
	Text Kind = iota + 1
	Terms
	Entities
	Deps
	Constituency
	Chunks
	Coreferences
	Opinions
	SRL
	Factuality
	TimeExpressions
	TemporalRelations
	CausalRelations
)

// Discipline is the write mode a layer uses.
type Discipline int

const (
	// Upsert overwrites the record stored under the same scope.
	Upsert Discipline = iota
	// Append inserts and fails when the scope already holds a record.
	Append
)

func (d Discipline) String() string {
	if d == Append {
		return "append"
	}
	return "upsert"
}

type descriptor struct {
	kind       Kind
	name       string
	requires   []Kind
	discipline Discipline
}

// table lists the layers in dependency order. Every layer appears after all
// of its prerequisites.
var table = []descriptor{
	{Text, "text", nil, Upsert},
	{Terms, "terms", []Kind{Text}, Upsert},
	{Entities, "entities", []Kind{Terms}, Upsert},
	{Deps, "deps", []Kind{Terms}, Upsert},
	{Constituency, "constituency", []Kind{Terms}, Upsert},
	{Chunks, "chunks", []Kind{Terms}, Upsert},
	{Coreferences, "coreferences", []Kind{Terms}, Upsert},
	{Opinions, "opinions", []Kind{Terms}, Upsert},
	{SRL, "srl", []Kind{Terms}, Upsert},
	{Factuality, "factualitylayer", []Kind{Text}, Upsert},
	{TimeExpressions, "timeExpressions", []Kind{Text, Terms}, Upsert},
	{TemporalRelations, "temporalRelations", []Kind{SRL, TimeExpressions}, Upsert},
	{CausalRelations, "causalRelations", []Kind{SRL}, Upsert},
}

// Order returns every layer in dependency order.
func Order() []Kind {
	out := make([]Kind, len(table))
	for i, s := range table {
		out[i] = s.kind
	}
	return out
}

func (k Kind) descriptor() (descriptor, bool) {
	if k < Text || int(k) > len(table) {
		return descriptor{}, false
	}
	return table[k-1], true
}

// Valid reports whether k is a known layer.
func (k Kind) Valid() bool {
	_, ok := k.descriptor()
	return ok
}

// Name is the layer's wire name. It doubles as its collection name.
func (k Kind) Name() string {
	s, ok := k.descriptor()
	if !ok {
		return fmt.Sprintf("layer(%d)", int(k))
	}
	return s.name
}

func (k Kind) String() string {
	return k.Name()
}

// Collection is the store collection holding the layer.
func (k Kind) Collection() string {
	return k.Name()
}

// Requires returns the direct prerequisites of k.
func (k Kind) Requires() []Kind {
	s, _ := k.descriptor()
	return s.requires
}

// Discipline returns the declared write discipline of k.
func (k Kind) Discipline() Discipline {
	s, _ := k.descriptor()
	return s.discipline
}

// Parse resolves a layer by its wire name. Names are matched case-insensitively.
func Parse(name string) (Kind, error) {
	for _, s := range table {
		if strings.EqualFold(s.name, name) {
			return s.kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
}

// Collections that are not layers but live next to them.
const (
	RawCollection        = "raw"
	HeaderCollection     = "header"
	ProcessorsCollection = "linguisticProcessors"
)

// Collections returns every collection name: the document level ones first,
// then the layers in dependency order.
func Collections() []string {
	out := []string{HeaderCollection, ProcessorsCollection, RawCollection}
	for _, s := range table {
		out = append(out, s.name)
	}
	return out
}
