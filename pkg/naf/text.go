package naf

// WF is a word form, the leaf unit of the graph. It never references other
// units. Sent is the document-global sentence number.
type WF struct {
	ID     string
	Form   string
	Sent   int
	Para   *int
	Page   *int
	Offset *int
	Length *int
	Xpath  *string
}

func NewWF(id, form string, sent int) *WF {
	return &WF{ID: id, Form: form, Sent: sent}
}

// ExternalRef links a unit to an entry of an external resource. A reference
// may carry one nested reference, forming a short chain.
type ExternalRef struct {
	Resource    string
	Reference   string
	Confidence  *float64
	ExternalRef *ExternalRef
}

func NewExternalRef(resource, reference string) *ExternalRef {
	return &ExternalRef{Resource: resource, Reference: reference}
}

// Sentiment is the optional sentiment block of a term.
type Sentiment struct {
	Resource       *string
	Polarity       *string
	Strength       *string
	Subjectivity   *string
	SemanticType   *string
	Modifier       *string
	Marker         *string
	ProductFeature *string
}

// Morpho holds the optional morphosyntactic attributes shared by terms and
// their components.
type Morpho struct {
	Type       *string
	Lemma      *string
	Pos        *string
	Morphofeat *string
	Case       *string
}

// Term is anchored to an ordered span of word forms. A compound term lists its
// parts as components; at most one of them is the head.
type Term struct {
	ID string
	Morpho
	Span         []*WF
	Sentiment    *Sentiment
	Components   []*Component
	Head         *Component
	ExternalRefs []*ExternalRef
}

func NewTerm(id string, span []*WF) *Term {
	return &Term{ID: id, Span: span}
}

// AddComponent appends c to the term. When head is set, c becomes the term's
// head, replacing any previous one.
func (t *Term) AddComponent(c *Component, head bool) {
	t.Components = append(t.Components, c)
	if head {
		t.Head = c
	}
}

// Component is a sub-term of a compound term.
type Component struct {
	ID string
	Morpho
	ExternalRefs []*ExternalRef
}

func NewComponent(id string) *Component {
	return &Component{ID: id}
}

// Sentence returns the sentence number of the first word form of the term, or
// -1 for an unanchored term.
func (t *Term) Sentence() int {
	if len(t.Span) == 0 {
		return -1
	}
	return t.Span[0].Sent
}
