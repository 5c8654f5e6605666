package naf

import "sort"

// Unit is the part of a document that falls into one (paragraph, sentence).
type Unit struct {
	Paragraph int
	Sentence  int
	Doc       *Document
}

type unitKey struct {
	para, sent int
}

// Partition splits doc into sentence units ordered by (paragraph, sentence).
// Every annotation goes to the unit of its first anchor. Annotations without
// any anchor go to the first unit. Word forms without a paragraph belong to
// paragraph 0, so a document without paragraphs is stored, and read back at
// paragraph granularity, as paragraph 0. The header and raw text are not part
// of any unit.
//
// Annotations that reach into other units, such as a coreference spanning
// two sentences, are kept whole in the unit of their first anchor.
func Partition(doc *Document) []Unit {
	p := partitioner{units: map[unitKey]*Document{}}

	wfUnit := func(wf *WF) unitKey {
		k := unitKey{sent: wf.Sent}
		if wf.Para != nil {
			k.para = *wf.Para
		}
		return k
	}
	termUnit := map[*Term]unitKey{}
	firstTerm := func(terms []*Term) (unitKey, bool) {
		for _, t := range terms {
			if k, ok := termUnit[t]; ok {
				return k, true
			}
		}
		return unitKey{}, false
	}

	for _, wf := range doc.WFs {
		k := wfUnit(wf)
		p.get(k).WFs = append(p.get(k).WFs, wf)
	}
	for _, t := range doc.Terms {
		if len(t.Span) > 0 {
			termUnit[t] = wfUnit(t.Span[0])
		}
	}
	for _, t := range doc.Terms {
		k, ok := termUnit[t]
		u := p.pick(k, ok)
		u.Terms = append(u.Terms, t)
	}
	for _, e := range doc.Entities {
		k, ok := firstTerm(e.Terms())
		u := p.pick(k, ok)
		u.Entities = append(u.Entities, e)
	}
	for _, d := range doc.Deps {
		k, ok := firstTerm([]*Term{d.From, d.To})
		u := p.pick(k, ok)
		u.Deps = append(u.Deps, d)
	}
	for _, tr := range doc.Constituents {
		k, ok := firstTerm(tr.Terms())
		u := p.pick(k, ok)
		u.Constituents = append(u.Constituents, tr)
	}
	for _, c := range doc.Chunks {
		k, ok := firstTerm(c.Span)
		u := p.pick(k, ok)
		u.Chunks = append(u.Chunks, c)
	}
	for _, c := range doc.Corefs {
		var terms []*Term
		for _, m := range c.Mentions {
			terms = append(terms, m...)
		}
		k, ok := firstTerm(terms)
		u := p.pick(k, ok)
		u.Corefs = append(u.Corefs, c)
	}
	for _, o := range doc.Opinions {
		var terms []*Term
		if o.Holder != nil {
			terms = append(terms, o.Holder.Span...)
		}
		if o.Target != nil {
			terms = append(terms, o.Target.Span...)
		}
		if o.Expression != nil {
			terms = append(terms, o.Expression.Span...)
		}
		k, ok := firstTerm(terms)
		u := p.pick(k, ok)
		u.Opinions = append(u.Opinions, o)
	}

	refUnit := map[TLinkRef]unitKey{}
	for _, pr := range doc.Predicates {
		terms := append([]*Term{}, pr.Span...)
		for _, r := range pr.Roles {
			terms = append(terms, r.Span...)
		}
		k, ok := firstTerm(terms)
		if ok {
			refUnit[pr] = k
		}
		u := p.pick(k, ok)
		u.Predicates = append(u.Predicates, pr)
	}
	for _, f := range doc.Factualities {
		var k unitKey
		ok := f.WF != nil
		if ok {
			k = wfUnit(f.WF)
		}
		u := p.pick(k, ok)
		u.Factualities = append(u.Factualities, f)
	}
	for _, tx := range doc.Timexes {
		var k unitKey
		ok := false
		if len(tx.Span) > 0 {
			k, ok = wfUnit(tx.Span[0]), true
		} else {
			k, ok = firstTerm([]*Term{tx.BeginPoint, tx.EndPoint})
		}
		if ok {
			refUnit[tx] = k
		}
		u := p.pick(k, ok)
		u.Timexes = append(u.Timexes, tx)
	}
	for _, l := range doc.TLinks {
		k, ok := refUnit[l.From]
		if !ok {
			k, ok = refUnit[l.To]
		}
		u := p.pick(k, ok)
		u.TLinks = append(u.TLinks, l)
	}
	for _, l := range doc.CLinks {
		var k unitKey
		ok := false
		if l.From != nil {
			k, ok = refUnit[l.From]
		}
		if !ok && l.To != nil {
			k, ok = refUnit[l.To]
		}
		u := p.pick(k, ok)
		u.CLinks = append(u.CLinks, l)
	}

	return p.result()
}

type partitioner struct {
	units    map[unitKey]*Document
	orphaned *Document
}

func (p *partitioner) get(k unitKey) *Document {
	d, ok := p.units[k]
	if !ok {
		d = &Document{}
		p.units[k] = d
	}
	return d
}

// pick returns the unit for k, or a holding document for unanchored items
// that result attaches to the first unit.
func (p *partitioner) pick(k unitKey, ok bool) *Document {
	if ok {
		return p.get(k)
	}
	if p.orphaned == nil {
		p.orphaned = &Document{}
	}
	return p.orphaned
}

func (p *partitioner) result() []Unit {
	keys := make([]unitKey, 0, len(p.units))
	for k := range p.units {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].para != keys[j].para {
			return keys[i].para < keys[j].para
		}
		return keys[i].sent < keys[j].sent
	})

	out := make([]Unit, 0, len(keys))
	for _, k := range keys {
		out = append(out, Unit{Paragraph: k.para, Sentence: k.sent, Doc: p.units[k]})
	}
	if p.orphaned == nil {
		return out
	}
	if len(out) == 0 {
		return []Unit{{Doc: p.orphaned}}
	}
	first := out[0].Doc
	o := p.orphaned
	first.WFs = append(first.WFs, o.WFs...)
	first.Terms = append(first.Terms, o.Terms...)
	first.Entities = append(first.Entities, o.Entities...)
	first.Deps = append(first.Deps, o.Deps...)
	first.Constituents = append(first.Constituents, o.Constituents...)
	first.Chunks = append(first.Chunks, o.Chunks...)
	first.Corefs = append(first.Corefs, o.Corefs...)
	first.Opinions = append(first.Opinions, o.Opinions...)
	first.Predicates = append(first.Predicates, o.Predicates...)
	first.Factualities = append(first.Factualities, o.Factualities...)
	first.Timexes = append(first.Timexes, o.Timexes...)
	first.TLinks = append(first.TLinks, o.TLinks...)
	first.CLinks = append(first.CLinks, o.CLinks...)
	return out
}
