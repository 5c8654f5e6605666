package layer

import (
	"errors"
	"reflect"
	"testing"
)

func TestOrderRespectsPrerequisites(t *testing.T) {
	t.Parallel()

	seen := map[Kind]bool{}
	for _, k := range Order() {
		for _, r := range k.Requires() {
			if !seen[r] {
				t.Fatalf("%s listed before its prerequisite %s", k, r)
			}
		}
		seen[k] = true
	}
	if len(seen) != 13 {
		t.Fatalf("expected 13 layers, got %d", len(seen))
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    Kind
		wantErr bool
	}{
		{name: "exact", in: "timeExpressions", want: TimeExpressions},
		{name: "case insensitive", in: "TERMS", want: Terms},
		{name: "factuality wire name", in: "factualitylayer", want: Factuality},
		{name: "unknown", in: "tokens", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrUnknownLayer) {
					t.Fatalf("Parse(%q) err = %v, want ErrUnknownLayer", tc.in, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("Parse(%q) = %v, %v, want %v", tc.in, got, err, tc.want)
			}
		})
	}
}

func TestSetClosure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Set
		want []Kind
	}{
		{name: "empty", in: Set{}, want: nil},
		{name: "text only", in: NewSet(Text), want: []Kind{Text}},
		{name: "entities pulls terms and text", in: NewSet(Entities), want: []Kind{Text, Terms, Entities}},
		{
			name: "temporal relations",
			in:   NewSet(TemporalRelations),
			want: []Kind{Text, Terms, SRL, TimeExpressions, TemporalRelations},
		},
		{name: "factuality", in: NewSet(Factuality), want: []Kind{Text, Factuality}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Closure().Kinds()
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Closure(%s) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseSet(t *testing.T) {
	t.Parallel()

	s, err := ParseSet([]string{"terms", " text ", ""})
	if err != nil {
		t.Fatalf("ParseSet: %v", err)
	}
	if s.IsAll() || !s.Has(Text) || !s.Has(Terms) || s.Has(Entities) {
		t.Fatalf("unexpected set %s", s)
	}

	s, err = ParseSet([]string{"terms", "all"})
	if err != nil || !s.IsAll() {
		t.Fatalf("ParseSet with all = %s, %v", s, err)
	}

	if _, err := ParseSet([]string{"nope"}); !errors.Is(err, ErrUnknownLayer) {
		t.Fatalf("expected ErrUnknownLayer, got %v", err)
	}
}

func TestParseSetRaw(t *testing.T) {
	t.Parallel()

	s, err := ParseSet([]string{"RAW"})
	if err != nil {
		t.Fatalf("ParseSet: %v", err)
	}
	if !s.HasRaw() || s.Empty() || s.Len() != 0 || !s.Layers().Empty() {
		t.Fatalf("unexpected set %s", s)
	}
	if s.Closure().Len() != 0 {
		t.Fatalf("raw pulled in prerequisites: %s", s.Closure())
	}
	if got := s.String(); got != "{raw}" {
		t.Fatalf("String = %q", got)
	}

	s, err = ParseSet([]string{"raw", "entities"})
	if err != nil {
		t.Fatalf("ParseSet: %v", err)
	}
	if !s.HasRaw() || !s.Has(Entities) || s.Layers().HasRaw() || !s.Layers().Has(Entities) {
		t.Fatalf("unexpected set %s", s)
	}

	if !All().HasRaw() || !All().Without(Text).HasRaw() {
		t.Fatal("the all sentinel must include raw")
	}
	if NewSet(Text).HasRaw() {
		t.Fatal("text alone must not request raw")
	}
}

func TestSetWithoutAll(t *testing.T) {
	t.Parallel()

	s := All().Without(Text)
	if s.IsAll() || s.Has(Text) || !s.Has(CausalRelations) {
		t.Fatalf("unexpected set %s", s)
	}
	if s.Len() != len(Order())-1 {
		t.Fatalf("Len = %d", s.Len())
	}
	if !s.Without(Terms).Without(Entities).Has(Deps) {
		t.Fatalf("Without removed too much")
	}
}

func TestScopeErrorUnwrap(t *testing.T) {
	t.Parallel()

	scope := DocumentScope(7, "doc-A").WithParagraph(1).WithSentence(3)
	err := WrapScope("load", "timeExpressions", scope, &DanglingReferenceError{Index: "terms", ID: "t9"})

	if !errors.Is(err, ErrDanglingReference) {
		t.Fatalf("errors.Is(ErrDanglingReference) = false for %v", err)
	}
	var se *ScopeError
	if !errors.As(err, &se) {
		t.Fatalf("errors.As(*ScopeError) = false")
	}
	if se.Scope.SessionID != 7 || se.Scope.DocID != "doc-A" || *se.Scope.Sentence != 3 {
		t.Fatalf("unexpected scope %s", se.Scope)
	}
	if again := WrapScope("store", "x", Scope{}, err); again != err {
		t.Fatalf("WrapScope rewrapped a scoped error")
	}
	if WrapScope("load", "x", scope, nil) != nil {
		t.Fatalf("WrapScope(nil) != nil")
	}
}

func TestParseGranularity(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Granularity{"D": Document, "p": Paragraph, "sentence": Sentence, "": Document} {
		got, err := ParseGranularity(in)
		if err != nil || got != want {
			t.Fatalf("ParseGranularity(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseGranularity("x"); err == nil {
		t.Fatalf("expected error")
	}
}
