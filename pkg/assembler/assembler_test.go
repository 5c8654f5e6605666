package assembler

import (
	"cmp"
	"context"
	"errors"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
	"github.com/OFFIS-RIT/nafstore/pkg/naf/naftest"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
	"github.com/OFFIS-RIT/nafstore/pkg/store/memory"
)

// countingStore records how often each collection is read.
type countingStore struct {
	store.LayerStore
	mu    sync.Mutex
	reads map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{LayerStore: memory.New(), reads: map[string]int{}}
}

func (s *countingStore) count(collection string) {
	s.mu.Lock()
	s.reads[collection]++
	s.mu.Unlock()
}

func (s *countingStore) Get(ctx context.Context, collection string, scope layer.Scope) ([]byte, bool, error) {
	s.count(collection)
	return s.LayerStore.Get(ctx, collection, scope)
}

func (s *countingStore) Find(ctx context.Context, collection string, f store.Filter, fn func(store.Entry) error) error {
	s.count(collection)
	return s.LayerStore.Find(ctx, collection, f, fn)
}

func sortByID[T any](s []T, id func(T) string) {
	slices.SortStableFunc(s, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
}

// normalize orders every layer that a sentence split may reorder.
func normalize(doc *naf.Document) {
	sortByID(doc.Entities, func(e *naf.Entity) string { return e.ID })
	sortByID(doc.Constituents, func(t *naf.Tree) string { return t.Root.ID })
	sortByID(doc.Chunks, func(c *naf.Chunk) string { return c.ID })
	sortByID(doc.Corefs, func(c *naf.Coref) string { return c.ID })
	sortByID(doc.Opinions, func(o *naf.Opinion) string { return o.ID })
	sortByID(doc.Predicates, func(p *naf.Predicate) string { return p.ID })
	sortByID(doc.Timexes, func(t *naf.Timex3) string { return t.ID })
	sortByID(doc.TLinks, func(l *naf.TLink) string { return l.ID })
	sortByID(doc.CLinks, func(l *naf.CLink) string { return l.ID })
}

func TestStoreAndLoadWholeDocument(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New())
	doc := naftest.Sample()

	if err := a.StoreDocument(ctx, 1, "sample", doc, layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}
	got, err := a.LoadDocument(ctx, 1, "sample", layer.All(), layer.Document, 0)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("loaded document differs\n got: %+v\nwant: %+v", got, doc)
	}
}

func TestPersonEntityScenario(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New())
	if err := a.StoreDocument(ctx, 7, "doc-A", naftest.Minimal(), layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}

	got, err := a.LoadDocument(ctx, 7, "doc-A", layer.All(), layer.Document, 0)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(got.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(got.Entities))
	}
	e := got.Entities[0]
	if e.Type == nil || *e.Type != "PER" {
		t.Fatalf("expected type PER, got %v", e.Type)
	}
	var lemmas []string
	for _, term := range e.Terms() {
		lemmas = append(lemmas, *term.Lemma)
	}
	if !reflect.DeepEqual(lemmas, []string{"John"}) {
		t.Fatalf("expected entity over John only, got %v", lemmas)
	}
	if got.Terms[0] != e.Spans[0][0] {
		t.Fatal("entity span does not point at the loaded term")
	}
}

func TestLoadStopsAfterRequestedLayers(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore()
	a := New(s)
	if err := a.StoreDocument(ctx, 1, "sample", naftest.Sample(), layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}

	doc, err := a.LoadDocument(ctx, 1, "sample", layer.NewSet(layer.Text, layer.Terms), layer.Document, 0)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.WFs) != 8 || len(doc.Terms) != 8 {
		t.Fatalf("expected 8 wfs and 8 terms, got %d and %d", len(doc.WFs), len(doc.Terms))
	}
	if doc.FileDesc != nil || len(doc.LinguisticProcessors) != 0 {
		t.Fatal("file description and processors are only loaded for all layers")
	}
	for _, k := range layer.Order()[2:] {
		if n := s.reads[k.Collection()]; n != 0 {
			t.Fatalf("layer %s was read %d times", k, n)
		}
	}
	if s.reads["terms"] != 1 {
		t.Fatalf("expected one read of terms, got %d", s.reads["terms"])
	}
}

func TestLoadAddsPrerequisites(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New())
	if err := a.StoreDocument(ctx, 1, "sample", naftest.Sample(), layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}

	doc, err := a.LoadDocument(ctx, 1, "sample", layer.NewSet(layer.CausalRelations), layer.Document, 0)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.CLinks) != 2 || len(doc.Predicates) != 2 || len(doc.Terms) != 8 {
		t.Fatalf("unexpected layer sizes: clinks %d, predicates %d, terms %d", len(doc.CLinks), len(doc.Predicates), len(doc.Terms))
	}
	if len(doc.Entities) != 0 || len(doc.Timexes) != 0 {
		t.Fatal("layers outside the prerequisite closure were loaded")
	}
}

func TestTimexDanglingBeginPointCarriesScope(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := New(s)
	if err := a.StoreDocument(ctx, 7, "doc-A", naftest.Minimal(), layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}
	payload := []byte(`{"annotations":[{"id":"tmx1","type":"DATE","beginPoint":"t99"}]}`)
	if err := s.Upsert(ctx, "timeExpressions", layer.DocumentScope(7, "doc-A"), payload); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	_, err := a.LoadDocument(ctx, 7, "doc-A", layer.All(), layer.Document, 0)
	if !errors.Is(err, layer.ErrDanglingReference) {
		t.Fatalf("expected dangling reference, got %v", err)
	}
	var se *layer.ScopeError
	if !errors.As(err, &se) {
		t.Fatalf("expected a scope error, got %T", err)
	}
	if se.Scope.SessionID != 7 || se.Scope.DocID != "doc-A" || se.Layer != "timeExpressions" || se.Op != "load" {
		t.Fatalf("unexpected scope %+v", se)
	}
}

func TestGranularityEquivalence(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New())

	if err := a.StoreDocument(ctx, 1, "whole", naftest.Sample(), layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}
	if err := a.StoreDocumentBySentence(ctx, 1, "split", naftest.Sample()); err != nil {
		t.Fatalf("StoreDocumentBySentence: %v", err)
	}

	whole, err := a.LoadDocument(ctx, 1, "whole", layer.All(), layer.Document, 0)
	if err != nil {
		t.Fatalf("load whole: %v", err)
	}
	split, err := a.LoadDocument(ctx, 1, "split", layer.All(), layer.Document, 0)
	if err != nil {
		t.Fatalf("load split: %v", err)
	}
	normalize(whole)
	normalize(split)
	if !reflect.DeepEqual(whole, split) {
		t.Fatalf("sentence records do not union to the whole document\nwhole: %+v\nsplit: %+v", whole, split)
	}

	para, err := a.LoadDocument(ctx, 1, "split", layer.NewSet(layer.Terms), layer.Paragraph, 1)
	if err != nil {
		t.Fatalf("load paragraph: %v", err)
	}
	if len(para.Terms) != 8 {
		t.Fatalf("expected 8 terms in paragraph 1, got %d", len(para.Terms))
	}
}

func TestLoadSentence(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New())
	if err := a.StoreDocumentBySentence(ctx, 1, "split", naftest.Sample()); err != nil {
		t.Fatalf("StoreDocumentBySentence: %v", err)
	}

	doc, err := a.LoadDocument(ctx, 1, "split", layer.NewSet(layer.Deps, layer.Constituency), layer.Sentence, 2)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	var forms []string
	for _, wf := range doc.WFs {
		forms = append(forms, wf.Form)
	}
	if !reflect.DeepEqual(forms, []string{"He", "was", "tired", "."}) {
		t.Fatalf("unexpected sentence 2 forms %v", forms)
	}
	if len(doc.Constituents) != 1 || len(doc.Deps) != 1 {
		t.Fatalf("expected 1 tree and 1 dep, got %d and %d", len(doc.Constituents), len(doc.Deps))
	}
}

func TestLoadEverySentenceOfSplitDocument(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New())
	if err := a.StoreDocumentBySentence(ctx, 1, "split", naftest.Sample()); err != nil {
		t.Fatalf("StoreDocumentBySentence: %v", err)
	}

	tests := []struct {
		sentence int
		forms    []string
		corefs   int
		tlinks   []string
		clinks   []string
	}{
		{1, []string{"John", "ran", "yesterday", "."}, 1, []string{"tl1"}, []string{"cl1"}},
		{2, []string{"He", "was", "tired", "."}, 0, []string{"tl2"}, []string{"cl2"}},
	}
	for _, tt := range tests {
		doc, err := a.LoadDocument(ctx, 1, "split", layer.All(), layer.Sentence, tt.sentence)
		if err != nil {
			t.Fatalf("sentence %d: LoadDocument: %v", tt.sentence, err)
		}

		var forms, tlinks, clinks []string
		for _, wf := range doc.WFs {
			forms = append(forms, wf.Form)
		}
		for _, l := range doc.TLinks {
			tlinks = append(tlinks, l.ID)
		}
		for _, l := range doc.CLinks {
			clinks = append(clinks, l.ID)
		}
		if !reflect.DeepEqual(forms, tt.forms) {
			t.Fatalf("sentence %d: forms = %v, want %v", tt.sentence, forms, tt.forms)
		}
		if len(doc.Terms) != 4 || len(doc.Corefs) != tt.corefs {
			t.Fatalf("sentence %d: got %d terms and %d corefs", tt.sentence, len(doc.Terms), len(doc.Corefs))
		}
		if !reflect.DeepEqual(tlinks, tt.tlinks) || !reflect.DeepEqual(clinks, tt.clinks) {
			t.Fatalf("sentence %d: tlinks %v clinks %v", tt.sentence, tlinks, clinks)
		}

		causal, err := a.LoadDocument(ctx, 1, "split", layer.NewSet(layer.CausalRelations), layer.Sentence, tt.sentence)
		if err != nil {
			t.Fatalf("sentence %d: load causal relations: %v", tt.sentence, err)
		}
		if len(causal.CLinks) != 1 || causal.CLinks[0].ID != tt.clinks[0] {
			t.Fatalf("sentence %d: unexpected clinks %+v", tt.sentence, causal.CLinks)
		}
	}

	first, err := a.LoadDocument(ctx, 1, "split", layer.All(), layer.Sentence, 1)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	co := first.Corefs[0]
	if co.Mentions[0][0] != first.Terms[0] {
		t.Fatal("in-sentence mention does not point at the loaded term")
	}
	if got := co.Mentions[1][0].ID; got != "t5" {
		t.Fatalf("second mention = %s, want t5", got)
	}
	for _, term := range first.Terms {
		if term.ID == "t5" {
			t.Fatal("term of sentence 2 attached to sentence 1")
		}
	}

	second, err := a.LoadDocument(ctx, 1, "split", layer.NewSet(layer.TemporalRelations), layer.Sentence, 2)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if to := second.TLinks[0].To; to.RefID() != "tmx0" || to.RefType() != naf.RefTypeTimex {
		t.Fatalf("tl2 points at %s %s", to.RefType(), to.RefID())
	}
	if len(second.Timexes) != 0 {
		t.Fatalf("timexes of sentence 1 attached to sentence 2: %d", len(second.Timexes))
	}
}

func TestLoadRawOnly(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore()
	a := New(s)
	if err := a.StoreDocument(ctx, 1, "sample", naftest.Sample(), layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}
	s.reads = map[string]int{}

	set, err := layer.ParseSet([]string{"raw"})
	if err != nil {
		t.Fatalf("ParseSet: %v", err)
	}
	doc, err := a.LoadDocument(ctx, 1, "sample", set, layer.Document, 0)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if doc.RawText == nil || *doc.RawText != "John ran yesterday. He was tired." {
		t.Fatalf("unexpected raw text %v", doc.RawText)
	}
	if len(doc.WFs) != 0 || len(doc.Terms) != 0 {
		t.Fatalf("layers loaded for a raw request: %d wfs, %d terms", len(doc.WFs), len(doc.Terms))
	}
	want := map[string]int{layer.HeaderCollection: 1, layer.RawCollection: 1}
	if !reflect.DeepEqual(s.reads, want) {
		t.Fatalf("reads = %v, want %v", s.reads, want)
	}
}

func TestUnionPrefersParagraphRecords(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New())
	if err := a.StoreDocument(ctx, 1, "mixed", naftest.Sample(), layer.ParagraphPart(1)); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}
	if err := a.StoreDocumentBySentence(ctx, 1, "mixed", naftest.Sample()); err != nil {
		t.Fatalf("StoreDocumentBySentence: %v", err)
	}

	doc, err := a.LoadDocument(ctx, 1, "mixed", layer.All(), layer.Document, 0)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.WFs) != 8 || len(doc.Terms) != 8 || len(doc.Predicates) != 2 {
		t.Fatalf("records loaded twice: %d wfs, %d terms, %d predicates", len(doc.WFs), len(doc.Terms), len(doc.Predicates))
	}

	sent, err := a.LoadDocument(ctx, 1, "mixed", layer.NewSet(layer.Terms), layer.Sentence, 2)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(sent.Terms) != 4 {
		t.Fatalf("expected the 4 terms of sentence 2, got %d", len(sent.Terms))
	}
}

func TestDocumentWithoutParagraphsIsParagraphZero(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New())
	if err := a.StoreDocumentBySentence(ctx, 1, "flat", naftest.Minimal()); err != nil {
		t.Fatalf("StoreDocumentBySentence: %v", err)
	}

	doc, err := a.LoadDocument(ctx, 1, "flat", layer.NewSet(layer.Entities), layer.Paragraph, 0)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.Terms) != 2 || len(doc.Entities) != 1 {
		t.Fatalf("expected the document under paragraph 0, got %d terms", len(doc.Terms))
	}
}

func TestPrerequisiteMissing(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := New(s)

	c, err := codec.For(layer.Entities)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	payload, _, err := c.Flatten(naftest.Minimal())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if err := s.Upsert(ctx, "entities", layer.DocumentScope(1, "d"), payload); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	cases := []struct {
		name    string
		layers  layer.Set
		missing string
	}{
		{"explicit", layer.NewSet(layer.Entities), "text"},
		{"all", layer.All(), "text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.LoadDocument(ctx, 1, "d", tc.layers, layer.Document, 0)
			var pm *layer.PrerequisiteMissingError
			if !errors.As(err, &pm) {
				t.Fatalf("expected prerequisite missing, got %v", err)
			}
			if pm.Missing != tc.missing {
				t.Fatalf("missing = %q, want %q", pm.Missing, tc.missing)
			}
		})
	}

	// nothing stored at all is an empty document, not an error
	doc, err := a.LoadDocument(ctx, 1, "empty", layer.All(), layer.Document, 0)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.WFs) != 0 || len(doc.Entities) != 0 {
		t.Fatalf("expected an empty document, got %+v", doc)
	}
}

func TestAppendOnlyRejectsSecondWrite(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New(), WithAppendOnly())
	if err := a.StoreDocument(ctx, 1, "d", naftest.Minimal(), layer.WholeDocument); err != nil {
		t.Fatalf("first StoreDocument: %v", err)
	}
	err := a.StoreDocument(ctx, 1, "d", naftest.Minimal(), layer.WholeDocument)
	if !errors.Is(err, layer.ErrWriteFailed) {
		t.Fatalf("expected write failure, got %v", err)
	}
	var se *layer.ScopeError
	if !errors.As(err, &se) || se.Layer != "text" {
		t.Fatalf("expected failure on text, got %v", err)
	}

	// upsert mode overwrites
	b := New(memory.New())
	for range 2 {
		if err := b.StoreDocument(ctx, 1, "d", naftest.Minimal(), layer.WholeDocument); err != nil {
			t.Fatalf("StoreDocument: %v", err)
		}
	}
}

func TestEmptyLayersAreNotWritten(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := New(s)
	if err := a.StoreDocument(ctx, 1, "d", naftest.Minimal(), layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}
	for _, k := range layer.Order() {
		_, found, err := s.Get(ctx, k.Collection(), layer.DocumentScope(1, "d"))
		if err != nil {
			t.Fatalf("Get %s: %v", k, err)
		}
		want := k == layer.Text || k == layer.Terms || k == layer.Entities
		if found != want {
			t.Fatalf("layer %s stored = %v, want %v", k, found, want)
		}
	}
}

func TestProcessorsMergeByName(t *testing.T) {
	ctx := context.Background()
	a := New(memory.New())

	first := naftest.Minimal()
	first.AddProcessor(&naf.LinguisticProcessor{Layer: "text", Name: "tokenizer", Version: naf.Ptr("1")})
	if err := a.StoreDocument(ctx, 1, "d", first, layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}
	second := naftest.Minimal()
	second.AddProcessor(&naf.LinguisticProcessor{Layer: "text", Name: "tokenizer", Version: naf.Ptr("2")})
	second.AddProcessor(&naf.LinguisticProcessor{Layer: "entities", Name: "ner"})
	if err := a.StoreDocument(ctx, 1, "d", second, layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}

	doc, err := a.LoadDocument(ctx, 1, "d", layer.All(), layer.Document, 0)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.LinguisticProcessors) != 2 {
		t.Fatalf("expected 2 processors, got %d", len(doc.LinguisticProcessors))
	}
	if v := doc.LinguisticProcessors[0].Version; v == nil || *v != "1" {
		t.Fatalf("stored processor was rewritten: %v", v)
	}
}

func TestRemoveDocument(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := New(s)
	if err := a.StoreDocumentBySentence(ctx, 1, "d", naftest.Sample()); err != nil {
		t.Fatalf("StoreDocumentBySentence: %v", err)
	}
	if err := a.StoreDocument(ctx, 1, "keep", naftest.Minimal(), layer.WholeDocument); err != nil {
		t.Fatalf("StoreDocument: %v", err)
	}
	if err := a.RemoveDocument(ctx, 1, "d"); err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}

	for _, c := range store.Collections() {
		n := 0
		if err := s.Find(ctx, c, store.DocumentFilter(1, "d"), func(store.Entry) error { n++; return nil }); err != nil {
			t.Fatalf("Find %s: %v", c, err)
		}
		if n != 0 {
			t.Fatalf("collection %s still holds %d records", c, n)
		}
	}
	doc, err := a.LoadDocument(ctx, 1, "keep", layer.All(), layer.Document, 0)
	if err != nil || len(doc.Entities) != 1 {
		t.Fatalf("other document was affected: %v", err)
	}
}

func TestStoreUnavailableIsScoped(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := New(s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err := a.StoreDocument(ctx, 3, "d", naftest.Minimal(), layer.SentencePart(1, 1))
	if !errors.Is(err, layer.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	var se *layer.ScopeError
	if !errors.As(err, &se) || se.Scope.SessionID != 3 || se.Layer != layer.HeaderCollection {
		t.Fatalf("unexpected scope error %+v", se)
	}
}
