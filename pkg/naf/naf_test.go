package naf_test

import (
	"testing"

	"github.com/OFFIS-RIT/nafstore/pkg/naf"
	"github.com/OFFIS-RIT/nafstore/pkg/naf/naftest"
)

func TestPartition(t *testing.T) {
	t.Parallel()

	doc := naftest.Sample()
	units := naf.Partition(doc)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}

	first, second := units[0], units[1]
	if first.Paragraph != 1 || first.Sentence != 1 || second.Sentence != 2 {
		t.Fatalf("unexpected unit keys %d/%d, %d/%d", first.Paragraph, first.Sentence, second.Paragraph, second.Sentence)
	}

	tests := []struct {
		name        string
		first, next int
	}{
		{"wfs", len(first.Doc.WFs), len(second.Doc.WFs)},
		{"terms", len(first.Doc.Terms), len(second.Doc.Terms)},
		{"deps", len(first.Doc.Deps), len(second.Doc.Deps)},
		{"trees", len(first.Doc.Constituents), len(second.Doc.Constituents)},
		{"predicates", len(first.Doc.Predicates), len(second.Doc.Predicates)},
		// the unanchored creation time goes with the first sentence
		{"timexes", len(first.Doc.Timexes), len(second.Doc.Timexes)},
		{"tlinks", len(first.Doc.TLinks), len(second.Doc.TLinks)},
		{"clinks", len(first.Doc.CLinks), len(second.Doc.CLinks)},
	}
	want := map[string][2]int{
		"wfs":        {4, 4},
		"terms":      {4, 4},
		"deps":       {2, 1},
		"trees":      {1, 1},
		"predicates": {1, 1},
		"timexes":    {2, 0},
		"tlinks":     {1, 1},
		"clinks":     {1, 1},
	}
	for _, tc := range tests {
		w := want[tc.name]
		if tc.first != w[0] || tc.next != w[1] {
			t.Fatalf("%s: got %d/%d, want %d/%d", tc.name, tc.first, tc.next, w[0], w[1])
		}
	}
	if first.Doc.RawText != nil || first.Doc.Lang != "" {
		t.Fatalf("units must not carry document level fields")
	}
}

func TestPartitionWithoutText(t *testing.T) {
	t.Parallel()

	doc := naf.New("en", "v3")
	doc.Timexes = []*naf.Timex3{naf.NewTimex3("tmx0", "DATE")}
	units := naf.Partition(doc)
	if len(units) != 1 || len(units[0].Doc.Timexes) != 1 {
		t.Fatalf("expected the orphan timex in a single unit, got %+v", units)
	}
}

func TestPartitionWithoutParagraphs(t *testing.T) {
	t.Parallel()

	doc := naftest.Minimal()
	doc.WFs = append(doc.WFs, naf.NewWF("w3", "Stop", 2))
	units := naf.Partition(doc)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	for i, u := range units {
		if u.Paragraph != 0 || u.Sentence != i+1 {
			t.Fatalf("unit %d keyed %d/%d, want 0/%d", i, u.Paragraph, u.Sentence, i+1)
		}
	}
}

func TestAddChildToTerminal(t *testing.T) {
	t.Parallel()

	leaf := naf.NewTerminal("ter1", nil)
	if err := leaf.AddChild(naf.NewTerminal("ter2", nil), "e1", false); err == nil {
		t.Fatalf("expected error attaching a child to a terminal")
	}
	root := naf.NewNonTerminal("nt1", "S")
	if err := root.AddChild(leaf, "e1", true); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if !leaf.Head || leaf.EdgeID != "e1" || len(root.Children) != 1 {
		t.Fatalf("edge attributes not set")
	}
}

func TestAddProcessorDeduplicates(t *testing.T) {
	t.Parallel()

	doc := naf.New("en", "v3")
	doc.AddProcessor(&naf.LinguisticProcessor{Layer: "terms", Name: "tagger"})
	doc.AddProcessor(&naf.LinguisticProcessor{Layer: "terms", Name: "tagger"})
	doc.AddProcessor(&naf.LinguisticProcessor{Layer: "deps", Name: "tagger"})
	if len(doc.LinguisticProcessors) != 2 {
		t.Fatalf("expected 2 processors, got %d", len(doc.LinguisticProcessors))
	}
}
