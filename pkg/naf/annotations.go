package naf

// Entity is a named entity anchored to one or more term spans.
type Entity struct {
	ID           string
	Type         *string
	Spans        [][]*Term
	ExternalRefs []*ExternalRef
}

func NewEntity(id string, spans [][]*Term) *Entity {
	return &Entity{ID: id, Spans: spans}
}

// Terms returns the terms of all spans in order.
func (e *Entity) Terms() []*Term {
	var out []*Term
	for _, span := range e.Spans {
		out = append(out, span...)
	}
	return out
}

// Dep is a dependency edge from a governor term to a dependent term.
type Dep struct {
	From  *Term
	To    *Term
	Rfunc string
	Case  *string
}

func NewDep(from, to *Term, rfunc string) *Dep {
	return &Dep{From: from, To: to, Rfunc: rfunc}
}

type Chunk struct {
	ID     string
	Phrase *string
	Case   *string
	Span   []*Term
}

func NewChunk(id string, span []*Term) *Chunk {
	return &Chunk{ID: id, Span: span}
}

// Coref is a coreference chain: an ordered list of mentions, each a term span.
type Coref struct {
	ID       string
	Type     *string
	Mentions [][]*Term
}

func NewCoref(id string, mentions [][]*Term) *Coref {
	return &Coref{ID: id, Mentions: mentions}
}

// Opinion groups an optional holder, target and expression.
type Opinion struct {
	ID         string
	Holder     *OpinionHolder
	Target     *OpinionTarget
	Expression *OpinionExpression
}

type OpinionHolder struct {
	Type *string
	Span []*Term
}

type OpinionTarget struct {
	Span []*Term
}

type OpinionExpression struct {
	Polarity                *string
	Strength                *string
	Subjectivity            *string
	SentimentSemanticType   *string
	SentimentProductFeature *string
	Span                    []*Term
}

func NewOpinion(id string) *Opinion {
	return &Opinion{ID: id}
}

// Predicate is a semantic role labelling frame. Roles keep their input order.
type Predicate struct {
	ID           string
	URI          *string
	Confidence   *float64
	Span         []*Term
	ExternalRefs []*ExternalRef
	Roles        []*Role
}

func NewPredicate(id string, span []*Term) *Predicate {
	return &Predicate{ID: id, Span: span}
}

func (p *Predicate) AddRole(r *Role) {
	p.Roles = append(p.Roles, r)
}

type Role struct {
	ID           string
	SemRole      string
	Span         []*Term
	ExternalRefs []*ExternalRef
}

func NewRole(id, semRole string, span []*Term) *Role {
	return &Role{ID: id, SemRole: semRole, Span: span}
}

// Factuality attaches a prediction to a single word form.
type Factuality struct {
	WF         *WF
	Prediction string
	Confidence *float64
}

func NewFactuality(wf *WF, prediction string) *Factuality {
	return &Factuality{WF: wf, Prediction: prediction}
}

// Timex3 is a TimeML time expression. Span is nil when the expression is not
// anchored in the text (e.g. the document creation time).
type Timex3 struct {
	ID                 string
	Type               string
	BeginPoint         *Term
	EndPoint           *Term
	Quant              *string
	Freq               *string
	FunctionInDocument *string
	TemporalFunction   *bool
	Value              *string
	ValueFromFunction  *string
	Mod                *string
	AnchorTimeID       *string
	Comment            *string
	Span               []*WF
}

func NewTimex3(id, typ string) *Timex3 {
	return &Timex3{ID: id, Type: typ}
}

// TLink endpoints.
const (
	RefTypeEvent = "event"
	RefTypeTimex = "timex"
)

// TLinkRef is a temporal link endpoint: an event (a predicate) or a time
// expression.
type TLinkRef interface {
	RefID() string
	RefType() string
}

func (p *Predicate) RefID() string   { return p.ID }
func (p *Predicate) RefType() string { return RefTypeEvent }
func (t *Timex3) RefID() string      { return t.ID }
func (t *Timex3) RefType() string    { return RefTypeTimex }

type TLink struct {
	ID      string
	From    TLinkRef
	To      TLinkRef
	RelType string
}

func NewTLink(id string, from, to TLinkRef, relType string) *TLink {
	return &TLink{ID: id, From: from, To: to, RelType: relType}
}

// CLink is a causal link between two events.
type CLink struct {
	ID      string
	From    *Predicate
	To      *Predicate
	RelType *string
}

func NewCLink(id string, from, to *Predicate) *CLink {
	return &CLink{ID: id, From: from, To: to}
}
