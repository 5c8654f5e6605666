package naf

// Document is an in-memory annotation graph. Every layer holds pointers to the
// units of the layers it depends on, so a Document is only meaningful after its
// lower layers have been materialized.
//
// Layers, lowest first:
//   - WFs: word forms (tokens)
//   - Terms: anchored to word forms
//   - Entities, Deps, Constituents, Chunks, Corefs, Opinions, Predicates: anchored to terms
//   - Factualities (word forms), Timexes (word forms and terms)
//   - TLinks, CLinks: anchored to predicates and time expressions
type Document struct {
	Header

	RawText *string

	WFs          []*WF
	Terms        []*Term
	Entities     []*Entity
	Deps         []*Dep
	Constituents []*Tree
	Chunks       []*Chunk
	Corefs       []*Coref
	Opinions     []*Opinion
	Predicates   []*Predicate
	Factualities []*Factuality
	Timexes      []*Timex3
	TLinks       []*TLink
	CLinks       []*CLink
}

// Header carries document level metadata. FileDesc and Public are optional.
type Header struct {
	Lang                 string
	Version              string
	FileDesc             *FileDesc
	Public               *Public
	LinguisticProcessors []*LinguisticProcessor
}

type FileDesc struct {
	Author       *string
	Title        *string
	Filename     *string
	Filetype     *string
	Pages        *int
	CreationTime *string
}

type Public struct {
	PublicID *string
	URI      *string
}

// LinguisticProcessor records which tool produced a layer, and when.
type LinguisticProcessor struct {
	Layer          string
	Name           string
	Version        *string
	Timestamp      *string
	BeginTimestamp *string
	EndTimestamp   *string
	Hostname       *string
}

// New returns an empty document.
func New(lang, version string) *Document {
	return &Document{Header: Header{Lang: lang, Version: version}}
}

// SetRawText stores the source text of the document.
func (d *Document) SetRawText(raw string) {
	d.RawText = &raw
}

// HasProcessor reports whether a processor with the given layer and name is registered.
func (d *Document) HasProcessor(layer, name string) bool {
	for _, lp := range d.LinguisticProcessors {
		if lp.Layer == layer && lp.Name == name {
			return true
		}
	}
	return false
}

// AddProcessor registers lp unless one with the same layer and name exists.
func (d *Document) AddProcessor(lp *LinguisticProcessor) {
	if lp == nil || d.HasProcessor(lp.Layer, lp.Name) {
		return
	}
	d.LinguisticProcessors = append(d.LinguisticProcessors, lp)
}

// Ptr returns a pointer to v. Handy for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}
