package codec

import (
	"fmt"

	"github.com/OFFIS-RIT/nafstore/pkg/anchor"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

func wfIDs(span []*naf.WF) []string {
	out := make([]string, 0, len(span))
	for _, wf := range span {
		out = append(out, wf.ID)
	}
	return out
}

func termIDs(span []*naf.Term) []string {
	out := make([]string, 0, len(span))
	for _, t := range span {
		out = append(out, t.ID)
	}
	return out
}

func FlattenWF(wf *naf.WF) WFRecord {
	return WFRecord{
		ID:     wf.ID,
		Form:   wf.Form,
		Sent:   wf.Sent,
		Para:   wf.Para,
		Page:   wf.Page,
		Offset: wf.Offset,
		Length: wf.Length,
		Xpath:  wf.Xpath,
	}
}

func HydrateWF(rec WFRecord) *naf.WF {
	return &naf.WF{
		ID:     rec.ID,
		Form:   rec.Form,
		Sent:   rec.Sent,
		Para:   rec.Para,
		Page:   rec.Page,
		Offset: rec.Offset,
		Length: rec.Length,
		Xpath:  rec.Xpath,
	}
}

func flattenMorpho(m naf.Morpho) MorphoRecord {
	return MorphoRecord{Type: m.Type, Lemma: m.Lemma, Pos: m.Pos, Morphofeat: m.Morphofeat, Case: m.Case}
}

func hydrateMorpho(r MorphoRecord) naf.Morpho {
	return naf.Morpho{Type: r.Type, Lemma: r.Lemma, Pos: r.Pos, Morphofeat: r.Morphofeat, Case: r.Case}
}

func FlattenTerm(t *naf.Term) (TermRecord, error) {
	rec := TermRecord{
		ID:           t.ID,
		MorphoRecord: flattenMorpho(t.Morpho),
		Anchor:       wfIDs(t.Span),
	}
	if s := t.Sentiment; s != nil {
		rec.Sentiment = &SentimentRecord{
			Resource:                s.Resource,
			Polarity:                s.Polarity,
			Strength:                s.Strength,
			Subjectivity:            s.Subjectivity,
			SentimentSemanticType:   s.SemanticType,
			SentimentModifier:       s.Modifier,
			SentimentMarker:         s.Marker,
			SentimentProductFeature: s.ProductFeature,
		}
	}
	for _, c := range t.Components {
		refs, err := flattenRefs(c.ExternalRefs)
		if err != nil {
			return TermRecord{}, fmt.Errorf("component %s: %w", c.ID, err)
		}
		rec.Components = append(rec.Components, ComponentRecord{
			ID:           c.ID,
			MorphoRecord: flattenMorpho(c.Morpho),
			Head:         Flag(c == t.Head),
			ExternalRefs: refs,
		})
	}
	refs, err := flattenRefs(t.ExternalRefs)
	if err != nil {
		return TermRecord{}, err
	}
	rec.ExternalRefs = refs
	return rec, nil
}

func HydrateTerm(rec TermRecord, idx *anchor.Indices) (*naf.Term, error) {
	span, err := idx.WFs.ResolveAll(rec.Anchor)
	if err != nil {
		return nil, err
	}
	t := &naf.Term{ID: rec.ID, Morpho: hydrateMorpho(rec.MorphoRecord), Span: span}
	if s := rec.Sentiment; s != nil {
		t.Sentiment = &naf.Sentiment{
			Resource:       s.Resource,
			Polarity:       s.Polarity,
			Strength:       s.Strength,
			Subjectivity:   s.Subjectivity,
			SemanticType:   s.SentimentSemanticType,
			Modifier:       s.SentimentModifier,
			Marker:         s.SentimentMarker,
			ProductFeature: s.SentimentProductFeature,
		}
	}
	for _, cr := range rec.Components {
		refs, err := hydrateRefs(cr.ExternalRefs)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", cr.ID, err)
		}
		if cr.Head && t.Head != nil {
			return nil, fmt.Errorf("%w: term %s has more than one head component", layer.ErrMalformedRecord, rec.ID)
		}
		t.AddComponent(&naf.Component{ID: cr.ID, Morpho: hydrateMorpho(cr.MorphoRecord), ExternalRefs: refs}, bool(cr.Head))
	}
	if t.ExternalRefs, err = hydrateRefs(rec.ExternalRefs); err != nil {
		return nil, err
	}
	return t, nil
}

func FlattenEntity(e *naf.Entity) (EntityRecord, error) {
	refs, err := flattenRefs(e.ExternalRefs)
	if err != nil {
		return EntityRecord{}, err
	}
	rec := EntityRecord{ID: e.ID, Type: e.Type, ExternalRefs: refs}
	for _, span := range e.Spans {
		rec.Anchor = append(rec.Anchor, termIDs(span))
	}
	return rec, nil
}

func HydrateEntity(rec EntityRecord, idx *anchor.Indices) (*naf.Entity, error) {
	spans, err := resolveSpans(idx.Terms, rec.Anchor)
	if err != nil {
		return nil, err
	}
	refs, err := hydrateRefs(rec.ExternalRefs)
	if err != nil {
		return nil, err
	}
	return &naf.Entity{ID: rec.ID, Type: rec.Type, Spans: spans, ExternalRefs: refs}, nil
}

func resolveSpans(idx *anchor.Index[*naf.Term], anchors [][]string) ([][]*naf.Term, error) {
	if len(anchors) == 0 {
		return nil, nil
	}
	out := make([][]*naf.Term, 0, len(anchors))
	for _, ids := range anchors {
		span, err := idx.ResolveAll(ids)
		if err != nil {
			return nil, err
		}
		out = append(out, span)
	}
	return out, nil
}

func FlattenDep(d *naf.Dep) DepRecord {
	return DepRecord{From: d.From.ID, To: d.To.ID, Rfunc: d.Rfunc, Case: d.Case}
}

func HydrateDep(rec DepRecord, idx *anchor.Indices) (*naf.Dep, error) {
	from, err := idx.Terms.Resolve(rec.From)
	if err != nil {
		return nil, err
	}
	to, err := idx.Terms.Resolve(rec.To)
	if err != nil {
		return nil, err
	}
	return &naf.Dep{From: from, To: to, Rfunc: rec.Rfunc, Case: rec.Case}, nil
}

func FlattenChunk(c *naf.Chunk) ChunkRecord {
	return ChunkRecord{ID: c.ID, Phrase: c.Phrase, Case: c.Case, Anchor: termIDs(c.Span)}
}

func HydrateChunk(rec ChunkRecord, idx *anchor.Indices) (*naf.Chunk, error) {
	span, err := idx.Terms.ResolveAll(rec.Anchor)
	if err != nil {
		return nil, err
	}
	return &naf.Chunk{ID: rec.ID, Phrase: rec.Phrase, Case: rec.Case, Span: span}, nil
}

func FlattenCoref(c *naf.Coref) CorefRecord {
	rec := CorefRecord{ID: c.ID, Type: c.Type}
	for _, m := range c.Mentions {
		rec.Anchor = append(rec.Anchor, termIDs(m))
	}
	return rec
}

func HydrateCoref(rec CorefRecord, idx *anchor.Indices) (*naf.Coref, error) {
	mentions, err := resolveSpans(idx.Terms, rec.Anchor)
	if err != nil {
		return nil, err
	}
	return &naf.Coref{ID: rec.ID, Type: rec.Type, Mentions: mentions}, nil
}

func FlattenOpinion(o *naf.Opinion) OpinionRecord {
	rec := OpinionRecord{ID: o.ID}
	if h := o.Holder; h != nil {
		rec.Holder = &OpinionHolderRecord{Type: h.Type, Anchor: termIDs(h.Span)}
	}
	if t := o.Target; t != nil {
		rec.Target = &OpinionTargetRecord{Anchor: termIDs(t.Span)}
	}
	if e := o.Expression; e != nil {
		rec.Expression = &OpinionExpressionRecord{
			Polarity:                e.Polarity,
			Strength:                e.Strength,
			Subjectivity:            e.Subjectivity,
			SentimentSemanticType:   e.SentimentSemanticType,
			SentimentProductFeature: e.SentimentProductFeature,
			Anchor:                  termIDs(e.Span),
		}
	}
	return rec
}

func HydrateOpinion(rec OpinionRecord, idx *anchor.Indices) (*naf.Opinion, error) {
	o := &naf.Opinion{ID: rec.ID}
	if h := rec.Holder; h != nil {
		span, err := idx.Terms.ResolveAll(h.Anchor)
		if err != nil {
			return nil, err
		}
		o.Holder = &naf.OpinionHolder{Type: h.Type, Span: span}
	}
	if t := rec.Target; t != nil {
		span, err := idx.Terms.ResolveAll(t.Anchor)
		if err != nil {
			return nil, err
		}
		o.Target = &naf.OpinionTarget{Span: span}
	}
	if e := rec.Expression; e != nil {
		span, err := idx.Terms.ResolveAll(e.Anchor)
		if err != nil {
			return nil, err
		}
		o.Expression = &naf.OpinionExpression{
			Polarity:                e.Polarity,
			Strength:                e.Strength,
			Subjectivity:            e.Subjectivity,
			SentimentSemanticType:   e.SentimentSemanticType,
			SentimentProductFeature: e.SentimentProductFeature,
			Span:                    span,
		}
	}
	return o, nil
}

func FlattenPredicate(p *naf.Predicate) (PredicateRecord, error) {
	refs, err := flattenRefs(p.ExternalRefs)
	if err != nil {
		return PredicateRecord{}, err
	}
	rec := PredicateRecord{
		ID:           p.ID,
		URI:          p.URI,
		Confidence:   p.Confidence,
		Anchor:       termIDs(p.Span),
		ExternalRefs: refs,
	}
	for _, r := range p.Roles {
		rrefs, err := flattenRefs(r.ExternalRefs)
		if err != nil {
			return PredicateRecord{}, fmt.Errorf("role %s: %w", r.ID, err)
		}
		rec.Roles = append(rec.Roles, RoleRecord{ID: r.ID, SemRole: r.SemRole, Anchor: termIDs(r.Span), ExternalRefs: rrefs})
	}
	return rec, nil
}

func HydratePredicate(rec PredicateRecord, idx *anchor.Indices) (*naf.Predicate, error) {
	span, err := idx.Terms.ResolveAll(rec.Anchor)
	if err != nil {
		return nil, err
	}
	refs, err := hydrateRefs(rec.ExternalRefs)
	if err != nil {
		return nil, err
	}
	p := &naf.Predicate{ID: rec.ID, URI: rec.URI, Confidence: rec.Confidence, Span: span, ExternalRefs: refs}
	for _, rr := range rec.Roles {
		rspan, err := idx.Terms.ResolveAll(rr.Anchor)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", rr.ID, err)
		}
		rrefs, err := hydrateRefs(rr.ExternalRefs)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", rr.ID, err)
		}
		p.AddRole(&naf.Role{ID: rr.ID, SemRole: rr.SemRole, Span: rspan, ExternalRefs: rrefs})
	}
	return p, nil
}

func FlattenFactuality(f *naf.Factuality) FactualityRecord {
	return FactualityRecord{ID: f.WF.ID, Prediction: f.Prediction, Confidence: f.Confidence}
}

func HydrateFactuality(rec FactualityRecord, idx *anchor.Indices) (*naf.Factuality, error) {
	wf, err := idx.WFs.Resolve(rec.ID)
	if err != nil {
		return nil, err
	}
	return &naf.Factuality{WF: wf, Prediction: rec.Prediction, Confidence: rec.Confidence}, nil
}

func FlattenTimex(t *naf.Timex3) TimexRecord {
	rec := TimexRecord{
		ID:                 t.ID,
		Type:               t.Type,
		Quant:              t.Quant,
		Freq:               t.Freq,
		FunctionInDocument: t.FunctionInDocument,
		Value:              t.Value,
		ValueFromFunction:  t.ValueFromFunction,
		Mod:                t.Mod,
		AnchorTimeID:       t.AnchorTimeID,
		Comment:            t.Comment,
		Anchor:             wfIDs(t.Span),
	}
	if t.BeginPoint != nil {
		rec.BeginPoint = &t.BeginPoint.ID
	}
	if t.EndPoint != nil {
		rec.EndPoint = &t.EndPoint.ID
	}
	if t.TemporalFunction != nil {
		v := TextBool(*t.TemporalFunction)
		rec.TemporalFunction = &v
	}
	return rec
}

func HydrateTimex(rec TimexRecord, idx *anchor.Indices) (*naf.Timex3, error) {
	t := &naf.Timex3{
		ID:                 rec.ID,
		Type:               rec.Type,
		Quant:              rec.Quant,
		Freq:               rec.Freq,
		FunctionInDocument: rec.FunctionInDocument,
		Value:              rec.Value,
		ValueFromFunction:  rec.ValueFromFunction,
		Mod:                rec.Mod,
		AnchorTimeID:       rec.AnchorTimeID,
		Comment:            rec.Comment,
	}
	var err error
	if rec.BeginPoint != nil {
		if t.BeginPoint, err = idx.Terms.Resolve(*rec.BeginPoint); err != nil {
			return nil, err
		}
	}
	if rec.EndPoint != nil {
		if t.EndPoint, err = idx.Terms.Resolve(*rec.EndPoint); err != nil {
			return nil, err
		}
	}
	if rec.TemporalFunction != nil {
		t.TemporalFunction = naf.Ptr(bool(*rec.TemporalFunction))
	}
	if t.Span, err = idx.WFs.ResolveAll(rec.Anchor); err != nil {
		return nil, err
	}
	return t, nil
}

func FlattenTLink(l *naf.TLink) TLinkRecord {
	return TLinkRecord{
		ID:       l.ID,
		From:     l.From.RefID(),
		To:       l.To.RefID(),
		FromType: l.From.RefType(),
		ToType:   l.To.RefType(),
		RelType:  l.RelType,
	}
}

func HydrateTLink(rec TLinkRecord, idx *anchor.Indices) (*naf.TLink, error) {
	from, err := resolveTLinkRef(rec.FromType, rec.From, idx)
	if err != nil {
		return nil, err
	}
	to, err := resolveTLinkRef(rec.ToType, rec.To, idx)
	if err != nil {
		return nil, err
	}
	return &naf.TLink{ID: rec.ID, From: from, To: to, RelType: rec.RelType}, nil
}

func resolveTLinkRef(typ, id string, idx *anchor.Indices) (naf.TLinkRef, error) {
	switch typ {
	case naf.RefTypeEvent:
		p, err := idx.Predicates.Resolve(id)
		if err != nil {
			return nil, err
		}
		return p, nil
	case naf.RefTypeTimex:
		t, err := idx.Timexes.Resolve(id)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: unknown tlink endpoint type %q", layer.ErrMalformedRecord, typ)
}

func FlattenCLink(l *naf.CLink) CLinkRecord {
	return CLinkRecord{ID: l.ID, From: l.From.ID, To: l.To.ID, RelType: l.RelType}
}

func HydrateCLink(rec CLinkRecord, idx *anchor.Indices) (*naf.CLink, error) {
	from, err := idx.Predicates.Resolve(rec.From)
	if err != nil {
		return nil, err
	}
	to, err := idx.Predicates.Resolve(rec.To)
	if err != nil {
		return nil, err
	}
	return &naf.CLink{ID: rec.ID, From: from, To: to, RelType: rec.RelType}, nil
}
