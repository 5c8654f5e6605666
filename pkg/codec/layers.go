package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/nafstore/pkg/anchor"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

// LayerCodec converts one layer of a document to a stored payload and back.
type LayerCodec interface {
	Kind() layer.Kind
	// Count returns the number of annotations doc holds for the layer.
	Count(doc *naf.Document) int
	// Flatten encodes the layer. A layer without annotations yields a nil payload.
	Flatten(doc *naf.Document) ([]byte, int, error)
	// Hydrate decodes payload, appends the units to doc and registers them in
	// idx. Several payloads of the same layer may be hydrated in turn.
	Hydrate(payload []byte, doc *naf.Document, idx *anchor.Indices) (int, error)
}

type layerCodec[R any, U any] struct {
	kind    layer.Kind
	units   func(*naf.Document) []U
	flatten func(U) (R, error)
	add     func(doc *naf.Document, idx *anchor.Indices, rec R) error
}

func (c layerCodec[R, U]) Kind() layer.Kind {
	return c.kind
}

func (c layerCodec[R, U]) Count(doc *naf.Document) int {
	return len(c.units(doc))
}

func (c layerCodec[R, U]) Flatten(doc *naf.Document) ([]byte, int, error) {
	units := c.units(doc)
	if len(units) == 0 {
		return nil, 0, nil
	}
	p := Payload[R]{Annotations: make([]R, 0, len(units))}
	for i, u := range units {
		rec, err := c.flatten(u)
		if err != nil {
			return nil, 0, fmt.Errorf("annotation %d: %w", i, err)
		}
		p.Annotations = append(p.Annotations, rec)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, 0, err
	}
	return data, len(units), nil
}

func (c layerCodec[R, U]) Hydrate(payload []byte, doc *naf.Document, idx *anchor.Indices) (int, error) {
	var p Payload[R]
	if err := json.Unmarshal(payload, &p); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", layer.ErrMalformedRecord, c.kind, err)
	}
	for i, rec := range p.Annotations {
		if err := c.add(doc, idx, rec); err != nil {
			var mt *layer.MalformedTreeError
			if errors.As(err, &mt) {
				mt.TreeIndex = i
			}
			return i, fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return len(p.Annotations), nil
}

func noErr[U any, R any](f func(U) R) func(U) (R, error) {
	return func(u U) (R, error) {
		return f(u), nil
	}
}

var codecs = map[layer.Kind]LayerCodec{
	layer.Text: layerCodec[WFRecord, *naf.WF]{
		kind:    layer.Text,
		units:   func(d *naf.Document) []*naf.WF { return d.WFs },
		flatten: noErr(FlattenWF),
		add: func(d *naf.Document, idx *anchor.Indices, rec WFRecord) error {
			wf := HydrateWF(rec)
			d.WFs = append(d.WFs, wf)
			idx.WFs.Put(wf.ID, wf)
			return nil
		},
	},
	layer.Terms: layerCodec[TermRecord, *naf.Term]{
		kind:    layer.Terms,
		units:   func(d *naf.Document) []*naf.Term { return d.Terms },
		flatten: FlattenTerm,
		add: func(d *naf.Document, idx *anchor.Indices, rec TermRecord) error {
			t, err := HydrateTerm(rec, idx)
			if err != nil {
				return err
			}
			d.Terms = append(d.Terms, t)
			idx.Terms.Put(t.ID, t)
			return nil
		},
	},
	layer.Entities: layerCodec[EntityRecord, *naf.Entity]{
		kind:    layer.Entities,
		units:   func(d *naf.Document) []*naf.Entity { return d.Entities },
		flatten: FlattenEntity,
		add: func(d *naf.Document, idx *anchor.Indices, rec EntityRecord) error {
			e, err := HydrateEntity(rec, idx)
			if err != nil {
				return err
			}
			d.Entities = append(d.Entities, e)
			return nil
		},
	},
	layer.Deps: layerCodec[DepRecord, *naf.Dep]{
		kind:    layer.Deps,
		units:   func(d *naf.Document) []*naf.Dep { return d.Deps },
		flatten: noErr(FlattenDep),
		add: func(d *naf.Document, idx *anchor.Indices, rec DepRecord) error {
			dep, err := HydrateDep(rec, idx)
			if err != nil {
				return err
			}
			d.Deps = append(d.Deps, dep)
			return nil
		},
	},
	layer.Constituency: layerCodec[TreeRecord, *naf.Tree]{
		kind:    layer.Constituency,
		units:   func(d *naf.Document) []*naf.Tree { return d.Constituents },
		flatten: noErr(FlattenTree),
		add: func(d *naf.Document, idx *anchor.Indices, rec TreeRecord) error {
			trees, err := RebuildTree(rec, idx.Terms)
			if err != nil {
				return err
			}
			d.Constituents = append(d.Constituents, trees...)
			return nil
		},
	},
	layer.Chunks: layerCodec[ChunkRecord, *naf.Chunk]{
		kind:    layer.Chunks,
		units:   func(d *naf.Document) []*naf.Chunk { return d.Chunks },
		flatten: noErr(FlattenChunk),
		add: func(d *naf.Document, idx *anchor.Indices, rec ChunkRecord) error {
			c, err := HydrateChunk(rec, idx)
			if err != nil {
				return err
			}
			d.Chunks = append(d.Chunks, c)
			return nil
		},
	},
	layer.Coreferences: layerCodec[CorefRecord, *naf.Coref]{
		kind:    layer.Coreferences,
		units:   func(d *naf.Document) []*naf.Coref { return d.Corefs },
		flatten: noErr(FlattenCoref),
		add: func(d *naf.Document, idx *anchor.Indices, rec CorefRecord) error {
			c, err := HydrateCoref(rec, idx)
			if err != nil {
				return err
			}
			d.Corefs = append(d.Corefs, c)
			idx.Corefs.Put(c.ID, c)
			return nil
		},
	},
	layer.Opinions: layerCodec[OpinionRecord, *naf.Opinion]{
		kind:    layer.Opinions,
		units:   func(d *naf.Document) []*naf.Opinion { return d.Opinions },
		flatten: noErr(FlattenOpinion),
		add: func(d *naf.Document, idx *anchor.Indices, rec OpinionRecord) error {
			o, err := HydrateOpinion(rec, idx)
			if err != nil {
				return err
			}
			d.Opinions = append(d.Opinions, o)
			return nil
		},
	},
	layer.SRL: layerCodec[PredicateRecord, *naf.Predicate]{
		kind:    layer.SRL,
		units:   func(d *naf.Document) []*naf.Predicate { return d.Predicates },
		flatten: FlattenPredicate,
		add: func(d *naf.Document, idx *anchor.Indices, rec PredicateRecord) error {
			p, err := HydratePredicate(rec, idx)
			if err != nil {
				return err
			}
			d.Predicates = append(d.Predicates, p)
			idx.Predicates.Put(p.ID, p)
			return nil
		},
	},
	layer.Factuality: layerCodec[FactualityRecord, *naf.Factuality]{
		kind:    layer.Factuality,
		units:   func(d *naf.Document) []*naf.Factuality { return d.Factualities },
		flatten: noErr(FlattenFactuality),
		add: func(d *naf.Document, idx *anchor.Indices, rec FactualityRecord) error {
			f, err := HydrateFactuality(rec, idx)
			if err != nil {
				return err
			}
			d.Factualities = append(d.Factualities, f)
			return nil
		},
	},
	layer.TimeExpressions: layerCodec[TimexRecord, *naf.Timex3]{
		kind:    layer.TimeExpressions,
		units:   func(d *naf.Document) []*naf.Timex3 { return d.Timexes },
		flatten: noErr(FlattenTimex),
		add: func(d *naf.Document, idx *anchor.Indices, rec TimexRecord) error {
			t, err := HydrateTimex(rec, idx)
			if err != nil {
				return err
			}
			d.Timexes = append(d.Timexes, t)
			idx.Timexes.Put(t.ID, t)
			return nil
		},
	},
	layer.TemporalRelations: layerCodec[TLinkRecord, *naf.TLink]{
		kind:    layer.TemporalRelations,
		units:   func(d *naf.Document) []*naf.TLink { return d.TLinks },
		flatten: noErr(FlattenTLink),
		add: func(d *naf.Document, idx *anchor.Indices, rec TLinkRecord) error {
			l, err := HydrateTLink(rec, idx)
			if err != nil {
				return err
			}
			d.TLinks = append(d.TLinks, l)
			return nil
		},
	},
	layer.CausalRelations: layerCodec[CLinkRecord, *naf.CLink]{
		kind:    layer.CausalRelations,
		units:   func(d *naf.Document) []*naf.CLink { return d.CLinks },
		flatten: noErr(FlattenCLink),
		add: func(d *naf.Document, idx *anchor.Indices, rec CLinkRecord) error {
			l, err := HydrateCLink(rec, idx)
			if err != nil {
				return err
			}
			d.CLinks = append(d.CLinks, l)
			return nil
		},
	},
}

// For returns the codec of k.
func For(k layer.Kind) (LayerCodec, error) {
	c, ok := codecs[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", layer.ErrUnknownLayer, k)
	}
	return c, nil
}
