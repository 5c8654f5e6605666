package anchor

import (
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

// Index maps ids to nodes rebuilt during one load.
type Index[T any] struct {
	name  string
	nodes map[string]T
}

func NewIndex[T any](name string) *Index[T] {
	return &Index[T]{name: name, nodes: make(map[string]T)}
}

func (i *Index[T]) Name() string {
	return i.name
}

// Put registers node under id. A later Put for the same id wins.
func (i *Index[T]) Put(id string, node T) {
	i.nodes[id] = node
}

func (i *Index[T]) Get(id string) (T, bool) {
	n, ok := i.nodes[id]
	return n, ok
}

func (i *Index[T]) Len() int {
	return len(i.nodes)
}

// Resolve returns the node for id or a DanglingReferenceError.
func (i *Index[T]) Resolve(id string) (T, error) {
	n, ok := i.nodes[id]
	if !ok {
		var zero T
		return zero, &layer.DanglingReferenceError{Index: i.name, ID: id}
	}
	return n, nil
}

// ResolveAll resolves ids in order.
func (i *Index[T]) ResolveAll(ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		n, err := i.Resolve(id)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Indices holds one index per referenceable layer.
type Indices struct {
	WFs        *Index[*naf.WF]
	Terms      *Index[*naf.Term]
	Predicates *Index[*naf.Predicate]
	Timexes    *Index[*naf.Timex3]
	Corefs     *Index[*naf.Coref]
}

func NewIndices() *Indices {
	return &Indices{
		WFs:        NewIndex[*naf.WF]("text"),
		Terms:      NewIndex[*naf.Term]("terms"),
		Predicates: NewIndex[*naf.Predicate]("srl"),
		Timexes:    NewIndex[*naf.Timex3]("timeExpressions"),
		Corefs:     NewIndex[*naf.Coref]("coreferences"),
	}
}

// FromDocument indexes the referenceable units already present in doc.
func FromDocument(doc *naf.Document) *Indices {
	idx := NewIndices()
	for _, wf := range doc.WFs {
		idx.WFs.Put(wf.ID, wf)
	}
	for _, t := range doc.Terms {
		idx.Terms.Put(t.ID, t)
	}
	for _, p := range doc.Predicates {
		idx.Predicates.Put(p.ID, p)
	}
	for _, tx := range doc.Timexes {
		idx.Timexes.Put(tx.ID, tx)
	}
	for _, c := range doc.Corefs {
		idx.Corefs.Put(c.ID, c)
	}
	return idx
}
