package codec

import (
	"errors"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

func chain(n int) *naf.ExternalRef {
	var head *naf.ExternalRef
	for i := n; i > 0; i-- {
		head = &naf.ExternalRef{Resource: "r", Reference: string(rune('a' + i%26)), ExternalRef: head}
	}
	return head
}

func TestExternalRefChainRoundTrip(t *testing.T) {
	t.Parallel()

	for _, depth := range []int{1, 2, 3, MaxRefDepth} {
		ref := chain(depth)
		ref.Confidence = naf.Ptr(0.5)

		rec, err := FlattenExternalRef(ref)
		if err != nil {
			t.Fatalf("depth %d: FlattenExternalRef: %v", depth, err)
		}
		got, err := HydrateExternalRef(rec)
		if err != nil {
			t.Fatalf("depth %d: HydrateExternalRef: %v", depth, err)
		}
		if !reflect.DeepEqual(got, ref) {
			t.Fatalf("depth %d: round trip mismatch", depth)
		}
	}
}

func TestExternalRefCycle(t *testing.T) {
	t.Parallel()

	a := naf.NewExternalRef("r", "a")
	b := naf.NewExternalRef("r", "b")
	a.ExternalRef = b
	b.ExternalRef = a

	_, err := FlattenExternalRef(a)
	var mr *layer.MalformedReferenceError
	if !errors.As(err, &mr) {
		t.Fatalf("expected MalformedReferenceError, got %v", err)
	}
	if mr.Depth != 2 {
		t.Fatalf("Depth = %d, want 2", mr.Depth)
	}

	term := naf.NewTerm("t1", nil)
	term.ExternalRefs = []*naf.ExternalRef{a}
	if _, err := FlattenTerm(term); !errors.Is(err, layer.ErrMalformedReference) {
		t.Fatalf("FlattenTerm: expected malformed reference, got %v", err)
	}
}

func TestExternalRefTooDeep(t *testing.T) {
	t.Parallel()

	if _, err := FlattenExternalRef(chain(MaxRefDepth + 1)); !errors.Is(err, layer.ErrMalformedReference) {
		t.Fatalf("flatten: expected malformed reference, got %v", err)
	}

	var rec *ExternalRefRecord
	for i := 0; i <= MaxRefDepth; i++ {
		rec = &ExternalRefRecord{Resource: "r", Reference: "x", ExternalRef: rec}
	}
	if _, err := HydrateExternalRef(rec); !errors.Is(err, layer.ErrMalformedReference) {
		t.Fatalf("hydrate: expected malformed reference, got %v", err)
	}
}
