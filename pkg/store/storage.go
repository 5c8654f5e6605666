package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
)

// LayerStore persists one payload per (collection, scope). Collections are
// the layer names plus the document level collections of layer.Collections.
// Every operation is keyed by equality on the scope fields.
type LayerStore interface {
	// EnsureIndexes creates collections and their scope indexes. Calling it
	// again, from any process, is a no-op.
	EnsureIndexes(ctx context.Context) error

	// Upsert stores payload under scope, replacing any previous payload.
	Upsert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error
	// Insert stores payload under scope and fails with layer.ErrWriteFailed
	// when the scope is already taken.
	Insert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error

	// Get returns the payload stored under exactly scope. A missing record is
	// reported as found == false, not as an error.
	Get(ctx context.Context, collection string, scope layer.Scope) (payload []byte, found bool, err error)
	// Find calls fn for every record matching f, ordered by paragraph then
	// sentence. Returning an error from fn stops the scan.
	Find(ctx context.Context, collection string, f Filter, fn func(Entry) error) error

	Remove(ctx context.Context, collection string, f Filter) (int64, error)
	// Drop removes every collection.
	Drop(ctx context.Context) error
	Close() error
}

// Filter selects the records of one document. A nil Paragraph or Sentence
// matches any value, including records stored without one.
type Filter struct {
	SessionID int
	DocID     string
	Paragraph *int
	Sentence  *int
}

// DocumentFilter matches every record of a document.
func DocumentFilter(sessionID int, docID string) Filter {
	return Filter{SessionID: sessionID, DocID: docID}
}

// Match reports whether scope is selected by f.
func (f Filter) Match(scope layer.Scope) bool {
	if scope.SessionID != f.SessionID || scope.DocID != f.DocID {
		return false
	}
	if f.Paragraph != nil && (scope.Paragraph == nil || *scope.Paragraph != *f.Paragraph) {
		return false
	}
	if f.Sentence != nil && (scope.Sentence == nil || *scope.Sentence != *f.Sentence) {
		return false
	}
	return true
}

// Entry is one stored record.
type Entry struct {
	Scope   layer.Scope
	Payload []byte
}

// NoPart marks an absent paragraph or sentence in stores that need a
// concrete value.
const NoPart = -1

// PartValue returns *p or NoPart.
func PartValue(p *int) int {
	if p == nil {
		return NoPart
	}
	return *p
}

// PartPtr is the inverse of PartValue.
func PartPtr(v int) *int {
	if v == NoPart {
		return nil
	}
	return &v
}

// CompareScopes orders scopes by paragraph, then sentence. Absent parts sort
// first.
func CompareScopes(a, b layer.Scope) int {
	if c := PartValue(a.Paragraph) - PartValue(b.Paragraph); c != 0 {
		return c
	}
	return PartValue(a.Sentence) - PartValue(b.Sentence)
}

// Collections lists every collection a LayerStore serves.
func Collections() []string {
	return layer.Collections()
}

// CheckCollection rejects names that are not collections.
func CheckCollection(name string) error {
	if !slices.Contains(layer.Collections(), name) {
		return fmt.Errorf("%w: collection %q", layer.ErrUnknownLayer, name)
	}
	return nil
}
