// Package assembler writes annotation documents layer by layer into a
// store.LayerStore and reads them back in dependency order.
package assembler

import (
	"context"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
)

type Assembler struct {
	store      store.LayerStore
	appendOnly bool
	provenance bool
	lang       string
	version    string
}

type Option func(*Assembler)

// WithAppendOnly makes layer writes fail with layer.ErrWriteFailed when the
// scope already holds a record, instead of replacing it.
func WithAppendOnly() Option {
	return func(a *Assembler) {
		a.appendOnly = true
	}
}

// WithProvenance enables or disables the linguistic processor side log.
// It is enabled by default.
func WithProvenance(enabled bool) Option {
	return func(a *Assembler) {
		a.provenance = enabled
	}
}

// WithDefaults sets the language and version written for documents whose
// header leaves them empty.
func WithDefaults(lang, version string) Option {
	return func(a *Assembler) {
		a.lang = lang
		a.version = version
	}
}

func New(s store.LayerStore, opts ...Option) *Assembler {
	a := &Assembler{
		store:      s,
		provenance: true,
		lang:       "en",
		version:    "v3",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a
}

// discipline returns the write mode of k under the assembler's options.
func (a *Assembler) discipline(k layer.Kind) layer.Discipline {
	if a.appendOnly {
		return layer.Append
	}
	return k.Discipline()
}

func (a *Assembler) write(ctx context.Context, d layer.Discipline, collection string, scope layer.Scope, payload []byte) error {
	if d == layer.Append {
		return a.store.Insert(ctx, collection, scope, payload)
	}
	return a.store.Upsert(ctx, collection, scope, payload)
}

// RemoveDocument deletes every record of the document from every
// collection, at every granularity.
func (a *Assembler) RemoveDocument(ctx context.Context, sessionID int, docID string) error {
	scope := layer.DocumentScope(sessionID, docID)
	n, err := store.RemoveAll(ctx, a.store, store.Collections(), store.DocumentFilter(sessionID, docID))
	if err != nil {
		return layer.WrapScope("remove", "*", scope, err)
	}
	logger.Debug("[Assembler][Remove] Removed document", "session", sessionID, "doc", docID, "records", n)
	return nil
}

// Drop removes every collection of the store.
func (a *Assembler) Drop(ctx context.Context) error {
	if err := a.store.Drop(ctx); err != nil {
		return layer.WrapScope("drop", "*", layer.Scope{}, err)
	}
	logger.Info("[Assembler][Drop] Dropped all collections")
	return nil
}
