package codec

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

// SchemaVersion is written into every header record.
const SchemaVersion = 1

type FileDescRecord struct {
	Author       *string `json:"author,omitempty"`
	Title        *string `json:"title,omitempty"`
	Filename     *string `json:"filename,omitempty"`
	Filetype     *string `json:"filetype,omitempty"`
	Pages        *int    `json:"pages,omitempty"`
	CreationTime *string `json:"creationtime,omitempty"`
}

type PublicRecord struct {
	PublicID *string `json:"publicId,omitempty"`
	URI      *string `json:"uri,omitempty"`
}

type HeaderRecord struct {
	Lang          string          `json:"lang"`
	Version       string          `json:"version"`
	SchemaVersion int             `json:"schema_version"`
	FileDesc      *FileDescRecord `json:"fileDesc,omitempty"`
	Public        *PublicRecord   `json:"public,omitempty"`
}

type ProcessorRecord struct {
	Layer          string  `json:"layer"`
	Name           string  `json:"name"`
	Version        *string `json:"version,omitempty"`
	Timestamp      *string `json:"timestamp,omitempty"`
	BeginTimestamp *string `json:"beginTimestamp,omitempty"`
	EndTimestamp   *string `json:"endTimestamp,omitempty"`
	Hostname       *string `json:"hostname,omitempty"`
}

type ProcessorsRecord struct {
	Processors []ProcessorRecord `json:"processors"`
}

type RawRecord struct {
	Raw string `json:"raw"`
}

func FlattenHeader(h naf.Header) HeaderRecord {
	rec := HeaderRecord{Lang: h.Lang, Version: h.Version, SchemaVersion: SchemaVersion}
	if fd := h.FileDesc; fd != nil {
		rec.FileDesc = &FileDescRecord{
			Author:       fd.Author,
			Title:        fd.Title,
			Filename:     fd.Filename,
			Filetype:     fd.Filetype,
			Pages:        fd.Pages,
			CreationTime: fd.CreationTime,
		}
	}
	if p := h.Public; p != nil {
		rec.Public = &PublicRecord{PublicID: p.PublicID, URI: p.URI}
	}
	return rec
}

// HydrateHeader copies rec into h. FileDesc and Public are only copied when
// full is set.
func HydrateHeader(rec HeaderRecord, h *naf.Header, full bool) error {
	if rec.SchemaVersion > SchemaVersion {
		return fmt.Errorf("%w: header schema version %d is newer than %d", layer.ErrMalformedRecord, rec.SchemaVersion, SchemaVersion)
	}
	h.Lang = rec.Lang
	h.Version = rec.Version
	if !full {
		return nil
	}
	if fd := rec.FileDesc; fd != nil {
		h.FileDesc = &naf.FileDesc{
			Author:       fd.Author,
			Title:        fd.Title,
			Filename:     fd.Filename,
			Filetype:     fd.Filetype,
			Pages:        fd.Pages,
			CreationTime: fd.CreationTime,
		}
	}
	if p := rec.Public; p != nil {
		h.Public = &naf.Public{PublicID: p.PublicID, URI: p.URI}
	}
	return nil
}

func FlattenProcessor(lp *naf.LinguisticProcessor) ProcessorRecord {
	return ProcessorRecord{
		Layer:          lp.Layer,
		Name:           lp.Name,
		Version:        lp.Version,
		Timestamp:      lp.Timestamp,
		BeginTimestamp: lp.BeginTimestamp,
		EndTimestamp:   lp.EndTimestamp,
		Hostname:       lp.Hostname,
	}
}

func HydrateProcessor(rec ProcessorRecord) *naf.LinguisticProcessor {
	return &naf.LinguisticProcessor{
		Layer:          rec.Layer,
		Name:           rec.Name,
		Version:        rec.Version,
		Timestamp:      rec.Timestamp,
		BeginTimestamp: rec.BeginTimestamp,
		EndTimestamp:   rec.EndTimestamp,
		Hostname:       rec.Hostname,
	}
}

// MergeProcessors appends the processors of add whose name is not yet in
// stored. It reports whether anything was added.
func MergeProcessors(stored *ProcessorsRecord, add []*naf.LinguisticProcessor) bool {
	names := make(map[string]bool, len(stored.Processors))
	for _, p := range stored.Processors {
		names[p.Name] = true
	}
	changed := false
	for _, lp := range add {
		if names[lp.Name] {
			continue
		}
		names[lp.Name] = true
		stored.Processors = append(stored.Processors, FlattenProcessor(lp))
		changed = true
	}
	return changed
}

// Encode marshals a document level record.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals a document level record.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", layer.ErrMalformedRecord, err)
	}
	return nil
}
