package assembler

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

// StoreDocument writes the header, the processors and the raw text at
// document scope, then every non-empty layer of doc under part in
// dependency order. Layers already written stay written when a later one
// fails.
func (a *Assembler) StoreDocument(ctx context.Context, sessionID int, docID string, doc *naf.Document, part layer.Part) error {
	docScope := layer.DocumentScope(sessionID, docID)
	if err := a.storeDocumentLevel(ctx, docScope, doc); err != nil {
		return err
	}
	n, err := a.storeLayers(ctx, part.Apply(docScope), doc)
	if err != nil {
		return err
	}
	logger.Debug("[Assembler][Store] Stored document", "session", sessionID, "doc", docID, "layers", n)
	return nil
}

// StoreDocumentBySentence splits doc into (paragraph, sentence) units and
// stores every unit at sentence scope. The header, the processors and the
// raw text stay at document scope.
func (a *Assembler) StoreDocumentBySentence(ctx context.Context, sessionID int, docID string, doc *naf.Document) error {
	docScope := layer.DocumentScope(sessionID, docID)
	if err := a.storeDocumentLevel(ctx, docScope, doc); err != nil {
		return err
	}
	units := naf.Partition(doc)
	for _, u := range units {
		scope := layer.SentencePart(u.Paragraph, u.Sentence).Apply(docScope)
		if _, err := a.storeLayers(ctx, scope, u.Doc); err != nil {
			return err
		}
	}
	logger.Debug("[Assembler][Store] Stored document by sentence", "session", sessionID, "doc", docID, "units", len(units))
	return nil
}

func (a *Assembler) storeDocumentLevel(ctx context.Context, scope layer.Scope, doc *naf.Document) error {
	if doc == nil {
		return layer.WrapScope("store", layer.HeaderCollection, scope, fmt.Errorf("%w: nil document", layer.ErrMalformedRecord))
	}

	h := codec.FlattenHeader(doc.Header)
	if h.Lang == "" {
		h.Lang = a.lang
	}
	if h.Version == "" {
		h.Version = a.version
	}
	if err := a.upsertRecord(ctx, layer.HeaderCollection, scope, h); err != nil {
		return err
	}

	if a.provenance && len(doc.LinguisticProcessors) > 0 {
		if err := a.mergeProcessors(ctx, scope, doc.LinguisticProcessors); err != nil {
			logger.Warn("[Assembler][Store] Failed to record linguistic processors", "scope", scope.String(), "err", err)
		}
	}

	if doc.RawText != nil {
		if err := a.upsertRecord(ctx, layer.RawCollection, scope, codec.RawRecord{Raw: *doc.RawText}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) upsertRecord(ctx context.Context, collection string, scope layer.Scope, v any) error {
	payload, err := codec.Encode(v)
	if err != nil {
		return layer.WrapScope("store", collection, scope, err)
	}
	return layer.WrapScope("store", collection, scope, a.store.Upsert(ctx, collection, scope, payload))
}

// mergeProcessors adds the processors whose name is not stored yet.
func (a *Assembler) mergeProcessors(ctx context.Context, scope layer.Scope, lps []*naf.LinguisticProcessor) error {
	var rec codec.ProcessorsRecord
	payload, found, err := a.store.Get(ctx, layer.ProcessorsCollection, scope)
	if err != nil {
		return err
	}
	if found {
		if err := codec.Decode(payload, &rec); err != nil {
			return err
		}
	}
	if !codec.MergeProcessors(&rec, lps) {
		return nil
	}
	payload, err = codec.Encode(rec)
	if err != nil {
		return err
	}
	return a.store.Upsert(ctx, layer.ProcessorsCollection, scope, payload)
}

// storeLayers writes one record per non-empty layer and returns how many
// were written.
func (a *Assembler) storeLayers(ctx context.Context, scope layer.Scope, doc *naf.Document) (int, error) {
	written := 0
	for _, k := range layer.Order() {
		c, err := codec.For(k)
		if err != nil {
			return written, layer.WrapScope("store", k.Collection(), scope, err)
		}
		payload, n, err := c.Flatten(doc)
		if err != nil {
			return written, layer.WrapScope("store", k.Collection(), scope, err)
		}
		if n == 0 {
			continue
		}
		if err := a.write(ctx, a.discipline(k), k.Collection(), scope, payload); err != nil {
			return written, layer.WrapScope("store", k.Collection(), scope, err)
		}
		written++
		logger.Debug("[Assembler][Store] Stored layer", "layer", k.Name(), "scope", scope.String(), "records", n)
	}
	return written, nil
}
