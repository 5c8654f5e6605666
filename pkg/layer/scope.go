package layer

import (
	"fmt"
	"strings"
)

// Scope addresses one stored record: a session and document, optionally
// narrowed to a paragraph and, within it, a sentence.
type Scope struct {
	SessionID int
	DocID     string
	Paragraph *int
	Sentence  *int
}

// DocumentScope returns the whole-document scope.
func DocumentScope(sessionID int, docID string) Scope {
	return Scope{SessionID: sessionID, DocID: docID}
}

func (s Scope) WithParagraph(p int) Scope {
	s.Paragraph = &p
	return s
}

func (s Scope) WithSentence(n int) Scope {
	s.Sentence = &n
	return s
}

func (s Scope) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "session=%d doc=%q", s.SessionID, s.DocID)
	if s.Paragraph != nil {
		fmt.Fprintf(&b, " paragraph=%d", *s.Paragraph)
	}
	if s.Sentence != nil {
		fmt.Fprintf(&b, " sentence=%d", *s.Sentence)
	}
	return b.String()
}

// Part optionally narrows a write to a paragraph and sentence.
type Part struct {
	Paragraph *int
	Sentence  *int
}

// WholeDocument is the zero Part.
var WholeDocument = Part{}

func ParagraphPart(p int) Part {
	return Part{Paragraph: &p}
}

func SentencePart(p, s int) Part {
	return Part{Paragraph: &p, Sentence: &s}
}

// Apply narrows a document scope to the part.
func (p Part) Apply(s Scope) Scope {
	s.Paragraph = p.Paragraph
	s.Sentence = p.Sentence
	return s
}

// Granularity selects the scope unit a read addresses.
type Granularity byte

const (
	Document  Granularity = 'D'
	Paragraph Granularity = 'P'
	Sentence  Granularity = 'S'
)

// ParseGranularity accepts "D", "P", "S" or the lowercase long forms.
func ParseGranularity(v string) (Granularity, error) {
	switch strings.ToLower(v) {
	case "", "d", "doc", "document":
		return Document, nil
	case "p", "paragraph":
		return Paragraph, nil
	case "s", "sentence":
		return Sentence, nil
	}
	return 0, fmt.Errorf("unknown granularity %q", v)
}

func (g Granularity) String() string {
	switch g {
	case Document:
		return "document"
	case Paragraph:
		return "paragraph"
	case Sentence:
		return "sentence"
	}
	return fmt.Sprintf("granularity(%c)", byte(g))
}
