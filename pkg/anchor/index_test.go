package anchor

import (
	"errors"
	"testing"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

func TestResolveAllKeepsOrder(t *testing.T) {
	t.Parallel()

	idx := NewIndex[*naf.WF]("text")
	w1, w2 := naf.NewWF("w1", "John", 1), naf.NewWF("w2", "ran", 1)
	idx.Put("w1", w1)
	idx.Put("w2", w2)

	got, err := idx.ResolveAll([]string{"w2", "w1", "w2"})
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(got) != 3 || got[0] != w2 || got[1] != w1 || got[2] != w2 {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestResolveDangling(t *testing.T) {
	t.Parallel()

	idx := NewIndex[*naf.Term]("terms")
	_, err := idx.ResolveAll([]string{"t1"})

	var de *layer.DanglingReferenceError
	if !errors.As(err, &de) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
	if de.Index != "terms" || de.ID != "t1" {
		t.Fatalf("unexpected error fields %+v", de)
	}
	if !errors.Is(err, layer.ErrDanglingReference) {
		t.Fatalf("errors.Is(ErrDanglingReference) = false")
	}
}

func TestFromDocument(t *testing.T) {
	t.Parallel()

	doc := naf.New("en", "v3")
	wf := naf.NewWF("w1", "John", 1)
	doc.WFs = append(doc.WFs, wf)
	doc.Terms = append(doc.Terms, naf.NewTerm("t1", []*naf.WF{wf}))

	idx := FromDocument(doc)
	if idx.WFs.Len() != 1 || idx.Terms.Len() != 1 || idx.Predicates.Len() != 0 {
		t.Fatalf("unexpected index sizes")
	}
	if term, ok := idx.Terms.Get("t1"); !ok || term.Span[0] != wf {
		t.Fatalf("term not indexed")
	}
}
