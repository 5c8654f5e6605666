package assembler

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/nafstore/pkg/anchor"
	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
)

// mandatory layers must be stored whenever a layer anchored on them is read.
func mandatory(k layer.Kind) bool {
	return k == layer.Text || k == layer.Terms
}

// dependsOn reports whether k needs m, directly or transitively.
func dependsOn(k, m layer.Kind) bool {
	return k != m && layer.NewSet(k).Closure().Has(m)
}

// LoadDocument rebuilds the requested layers of a document. Prerequisites of
// requested layers are loaded as well. Reading stops as soon as every
// requested layer is loaded, so later layers are never queried.
//
// gran selects the records read: Document reads the whole-document record or
// else the union of all narrower records, Paragraph does the same within
// paragraph part, and Sentence reads the records of sentence part.
// part is ignored for Document.
//
// Paragraph and sentence reads resolve references that leave the part, such
// as a coreference spanning two sentences, against the document's records of
// the referenced layer. Only the units of the part are attached to the
// returned document.
//
// The raw text is loaded when layers holds it or needs the text layer. A
// request for the raw text alone reads no layer. The file description, the
// public block and the processors are only loaded when layers is the "all"
// sentinel.
func (a *Assembler) LoadDocument(ctx context.Context, sessionID int, docID string, layers layer.Set, gran layer.Granularity, part int) (*naf.Document, error) {
	docScope := layer.DocumentScope(sessionID, docID)
	var qscope layer.Scope
	switch gran {
	case layer.Document:
		qscope = docScope
	case layer.Paragraph:
		qscope = docScope.WithParagraph(part)
	case layer.Sentence:
		qscope = docScope.WithSentence(part)
	default:
		return nil, layer.WrapScope("load", "*", docScope, fmt.Errorf("unknown granularity %s", gran))
	}

	full := layers.IsAll()
	need := layers.Closure()

	doc := &naf.Document{}
	if err := a.loadHeader(ctx, docScope, doc, full); err != nil {
		return nil, err
	}
	if full {
		if err := a.loadProcessors(ctx, docScope, doc); err != nil {
			logger.Warn("[Assembler][Load] Failed to load linguistic processors", "scope", docScope.String(), "err", err)
		}
	}
	if layers.HasRaw() || need.Has(layer.Text) {
		if err := a.loadRaw(ctx, docScope, doc); err != nil {
			return nil, err
		}
	}

	idx := anchor.NewIndices()
	pending := layers.Layers()
	var absent layer.Set
	for _, k := range layer.Order() {
		if pending.Empty() {
			logger.Debug("[Assembler][Load] Requested layers satisfied", "scope", qscope.String(), "next", k.Name())
			break
		}
		if !need.Has(k) {
			continue
		}
		pending = pending.Without(k)

		c, err := codec.For(k)
		if err != nil {
			return nil, layer.WrapScope("load", k.Collection(), qscope, err)
		}
		if gran != layer.Document && referencedLater(k, need) {
			if err := a.indexDocument(ctx, c, docScope, idx); err != nil {
				return nil, layer.WrapScope("load", k.Collection(), docScope, err)
			}
		}

		payloads, err := a.fetch(ctx, k.Collection(), gran, qscope)
		if err != nil {
			return nil, layer.WrapScope("load", k.Collection(), qscope, err)
		}
		if len(payloads) == 0 {
			if mandatory(k) {
				if err := a.checkRequested(k, layers); err != nil {
					return nil, layer.WrapScope("load", k.Collection(), qscope, err)
				}
				absent = absent.With(k)
			}
			continue
		}
		for _, m := range absent.Kinds() {
			if dependsOn(k, m) {
				err := &layer.PrerequisiteMissingError{Missing: m.Name(), RequiredBy: []string{k.Name()}}
				return nil, layer.WrapScope("load", k.Collection(), qscope, err)
			}
		}

		total := 0
		for _, p := range payloads {
			n, err := c.Hydrate(p, doc, idx)
			if err != nil {
				return nil, layer.WrapScope("load", k.Collection(), qscope, err)
			}
			total += n
		}
		logger.Debug("[Assembler][Load] Loaded layer", "layer", k.Name(), "scope", qscope.String(), "records", len(payloads), "annotations", total)
	}
	return doc, nil
}

// checkRequested fails when an explicitly requested layer depends on the
// absent mandatory layer k. The "all" sentinel requests nothing explicitly;
// there the check is deferred until a dependent layer turns out to be stored.
func (a *Assembler) checkRequested(k layer.Kind, requested layer.Set) error {
	if requested.IsAll() {
		return nil
	}
	var by []string
	for _, r := range requested.Kinds() {
		if dependsOn(r, k) {
			by = append(by, r.Name())
		}
	}
	if len(by) == 0 {
		return nil
	}
	return &layer.PrerequisiteMissingError{Missing: k.Name(), RequiredBy: by}
}

// referenceable layers hold units that other layers point at by id.
func referenceable(k layer.Kind) bool {
	switch k {
	case layer.Text, layer.Terms, layer.SRL, layer.TimeExpressions:
		return true
	}
	return false
}

// referencedLater reports whether a layer in need resolves ids of k.
func referencedLater(k layer.Kind, need layer.Set) bool {
	if !referenceable(k) {
		return false
	}
	for _, m := range need.Kinds() {
		if dependsOn(m, k) {
			return true
		}
	}
	return false
}

// indexDocument hydrates every record of the document for c into a detached
// document, so that idx can resolve ids outside the part being read. Units
// of the part are hydrated afterwards and replace their detached copies.
func (a *Assembler) indexDocument(ctx context.Context, c codec.LayerCodec, docScope layer.Scope, idx *anchor.Indices) error {
	payloads, err := a.fetch(ctx, c.Kind().Collection(), layer.Document, docScope)
	if err != nil {
		return err
	}
	detached := &naf.Document{}
	for _, p := range payloads {
		if _, err := c.Hydrate(p, detached, idx); err != nil {
			return err
		}
	}
	return nil
}

// fetch returns the payloads of one collection for the query scope.
//
// A union prefers paragraph records: sentence records of a paragraph that
// also has a paragraph record are skipped.
func (a *Assembler) fetch(ctx context.Context, collection string, gran layer.Granularity, scope layer.Scope) ([][]byte, error) {
	if gran != layer.Sentence {
		payload, found, err := a.store.Get(ctx, collection, scope)
		if err != nil {
			return nil, err
		}
		if found {
			return [][]byte{payload}, nil
		}
	}

	f := store.Filter{
		SessionID: scope.SessionID,
		DocID:     scope.DocID,
		Paragraph: scope.Paragraph,
		Sentence:  scope.Sentence,
	}
	var entries []store.Entry
	covered := map[int]bool{}
	err := a.store.Find(ctx, collection, f, func(e store.Entry) error {
		entries = append(entries, e)
		if e.Scope.Paragraph != nil && e.Scope.Sentence == nil {
			covered[*e.Scope.Paragraph] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(entries))
	for _, e := range entries {
		if e.Scope.Paragraph != nil && e.Scope.Sentence != nil && covered[*e.Scope.Paragraph] {
			continue
		}
		out = append(out, e.Payload)
	}
	return out, nil
}

func (a *Assembler) loadHeader(ctx context.Context, scope layer.Scope, doc *naf.Document, full bool) error {
	payload, found, err := a.store.Get(ctx, layer.HeaderCollection, scope)
	if err != nil {
		return layer.WrapScope("load", layer.HeaderCollection, scope, err)
	}
	if !found {
		return nil
	}
	var rec codec.HeaderRecord
	if err := codec.Decode(payload, &rec); err != nil {
		return layer.WrapScope("load", layer.HeaderCollection, scope, err)
	}
	return layer.WrapScope("load", layer.HeaderCollection, scope, codec.HydrateHeader(rec, &doc.Header, full))
}

func (a *Assembler) loadProcessors(ctx context.Context, scope layer.Scope, doc *naf.Document) error {
	payload, found, err := a.store.Get(ctx, layer.ProcessorsCollection, scope)
	if err != nil || !found {
		return err
	}
	var rec codec.ProcessorsRecord
	if err := codec.Decode(payload, &rec); err != nil {
		return err
	}
	for _, p := range rec.Processors {
		doc.AddProcessor(codec.HydrateProcessor(p))
	}
	return nil
}

func (a *Assembler) loadRaw(ctx context.Context, scope layer.Scope, doc *naf.Document) error {
	payload, found, err := a.store.Get(ctx, layer.RawCollection, scope)
	if err != nil {
		return layer.WrapScope("load", layer.RawCollection, scope, err)
	}
	if !found {
		return nil
	}
	var rec codec.RawRecord
	if err := codec.Decode(payload, &rec); err != nil {
		return layer.WrapScope("load", layer.RawCollection, scope, err)
	}
	doc.SetRawText(rec.Raw)
	return nil
}
