package codec

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/nafstore/pkg/anchor"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

// DocumentRecord is a whole document in one JSON value: the header, the
// processors, the raw text and one payload per non-empty layer keyed by wire
// name. It is the exchange format of the HTTP API, the queue and the CLI.
type DocumentRecord struct {
	Header     HeaderRecord               `json:"header"`
	Processors []ProcessorRecord          `json:"linguisticProcessors,omitempty"`
	Raw        *string                    `json:"raw,omitempty"`
	Layers     map[string]json.RawMessage `json:"layers,omitempty"`
}

func FlattenDocument(doc *naf.Document) (*DocumentRecord, error) {
	rec := &DocumentRecord{
		Header: FlattenHeader(doc.Header),
		Raw:    doc.RawText,
		Layers: map[string]json.RawMessage{},
	}
	for _, lp := range doc.LinguisticProcessors {
		rec.Processors = append(rec.Processors, FlattenProcessor(lp))
	}
	for _, k := range layer.Order() {
		c, err := For(k)
		if err != nil {
			return nil, err
		}
		payload, n, err := c.Flatten(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		if n > 0 {
			rec.Layers[k.Name()] = payload
		}
	}
	return rec, nil
}

// HydrateDocument rebuilds the graph held by rec, layer by layer in
// dependency order.
func HydrateDocument(rec *DocumentRecord) (*naf.Document, error) {
	for name := range rec.Layers {
		if _, err := layer.Parse(name); err != nil {
			return nil, err
		}
	}

	doc := &naf.Document{}
	if err := HydrateHeader(rec.Header, &doc.Header, true); err != nil {
		return nil, err
	}
	for _, p := range rec.Processors {
		doc.AddProcessor(HydrateProcessor(p))
	}
	doc.RawText = rec.Raw

	idx := anchor.NewIndices()
	for _, k := range layer.Order() {
		payload, ok := rec.Layers[k.Name()]
		if !ok {
			continue
		}
		c, err := For(k)
		if err != nil {
			return nil, err
		}
		if _, err := c.Hydrate(payload, doc, idx); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
	}
	return doc, nil
}
