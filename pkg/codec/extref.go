package codec

import (
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

// MaxRefDepth bounds the length of a nested external reference chain.
const MaxRefDepth = 32

// FlattenExternalRef flattens a reference chain. A chain that loops back on
// itself or exceeds MaxRefDepth is a MalformedReferenceError.
func FlattenExternalRef(ref *naf.ExternalRef) (*ExternalRefRecord, error) {
	var head, tail *ExternalRefRecord
	seen := map[*naf.ExternalRef]bool{}
	for depth := 0; ref != nil; depth++ {
		if seen[ref] {
			return nil, &layer.MalformedReferenceError{Reason: "reference chain loops back on itself", Depth: depth}
		}
		if depth >= MaxRefDepth {
			return nil, &layer.MalformedReferenceError{Reason: "reference chain too deep", Depth: depth}
		}
		seen[ref] = true

		rec := &ExternalRefRecord{
			Resource:   ref.Resource,
			Reference:  ref.Reference,
			Confidence: ref.Confidence,
		}
		if head == nil {
			head = rec
		} else {
			tail.ExternalRef = rec
		}
		tail = rec
		ref = ref.ExternalRef
	}
	return head, nil
}

// HydrateExternalRef walks the nested chain of rec.
func HydrateExternalRef(rec *ExternalRefRecord) (*naf.ExternalRef, error) {
	var head, tail *naf.ExternalRef
	for depth := 0; rec != nil; depth++ {
		if depth >= MaxRefDepth {
			return nil, &layer.MalformedReferenceError{Reason: "reference chain too deep", Depth: depth}
		}
		ref := &naf.ExternalRef{
			Resource:   rec.Resource,
			Reference:  rec.Reference,
			Confidence: rec.Confidence,
		}
		if head == nil {
			head = ref
		} else {
			tail.ExternalRef = ref
		}
		tail = ref
		rec = rec.ExternalRef
	}
	return head, nil
}

func flattenRefs(refs []*naf.ExternalRef) ([]ExternalRefRecord, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]ExternalRefRecord, 0, len(refs))
	for _, r := range refs {
		rec, err := FlattenExternalRef(r)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func hydrateRefs(recs []ExternalRefRecord) ([]*naf.ExternalRef, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	out := make([]*naf.ExternalRef, 0, len(recs))
	for i := range recs {
		ref, err := HydrateExternalRef(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}
