package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record shapes are the stored wire format. Field names are stable across
// writer and reader processes; optional fields are omitted, never null.

type ExternalRefRecord struct {
	Resource    string             `json:"resource"`
	Reference   string             `json:"reference"`
	Confidence  *float64           `json:"confidence,omitempty"`
	ExternalRef *ExternalRefRecord `json:"external_reference,omitempty"`
}

type WFRecord struct {
	ID     string  `json:"id"`
	Form   string  `json:"form"`
	Sent   int     `json:"sent"`
	Para   *int    `json:"para,omitempty"`
	Page   *int    `json:"page,omitempty"`
	Offset *int    `json:"offset,omitempty"`
	Length *int    `json:"length,omitempty"`
	Xpath  *string `json:"xpath,omitempty"`
}

type MorphoRecord struct {
	Type       *string `json:"type,omitempty"`
	Lemma      *string `json:"lemma,omitempty"`
	Pos        *string `json:"pos,omitempty"`
	Morphofeat *string `json:"morphofeat,omitempty"`
	Case       *string `json:"case,omitempty"`
}

type SentimentRecord struct {
	Resource                *string `json:"resource,omitempty"`
	Polarity                *string `json:"polarity,omitempty"`
	Strength                *string `json:"strength,omitempty"`
	Subjectivity            *string `json:"subjectivity,omitempty"`
	SentimentSemanticType   *string `json:"sentimentSemanticType,omitempty"`
	SentimentModifier       *string `json:"sentimentModifier,omitempty"`
	SentimentMarker         *string `json:"sentimentMarker,omitempty"`
	SentimentProductFeature *string `json:"sentimentProductFeature,omitempty"`
}

type ComponentRecord struct {
	ID string `json:"id"`
	MorphoRecord
	Head         Flag                `json:"head,omitempty"`
	ExternalRefs []ExternalRefRecord `json:"external_references,omitempty"`
}

type TermRecord struct {
	ID string `json:"id"`
	MorphoRecord
	Sentiment    *SentimentRecord    `json:"sentiment,omitempty"`
	Components   []ComponentRecord   `json:"components,omitempty"`
	Anchor       []string            `json:"anchor,omitempty"`
	ExternalRefs []ExternalRefRecord `json:"external_references,omitempty"`
}

type EntityRecord struct {
	ID           string              `json:"id"`
	Type         *string             `json:"type,omitempty"`
	Anchor       SpanList            `json:"anchor,omitempty"`
	ExternalRefs []ExternalRefRecord `json:"external_references,omitempty"`
}

type DepRecord struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Rfunc string  `json:"rfunc"`
	Case  *string `json:"case,omitempty"`
}

type TerminalRecord struct {
	ID     string   `json:"id"`
	Anchor []string `json:"anchor,omitempty"`
}

type NonTerminalRecord struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// EdgeRecord links a child (From) to its parent (To).
type EdgeRecord struct {
	ID   string `json:"id,omitempty"`
	From string `json:"from"`
	To   string `json:"to"`
	Head Flag   `json:"head,omitempty"`
}

type TreeRecord struct {
	Terminals    []TerminalRecord    `json:"terminals"`
	NonTerminals []NonTerminalRecord `json:"non_terminals"`
	Edges        []EdgeRecord        `json:"edges"`
}

type ChunkRecord struct {
	ID     string   `json:"id"`
	Phrase *string  `json:"phrase,omitempty"`
	Case   *string  `json:"case,omitempty"`
	Anchor []string `json:"anchor,omitempty"`
}

type CorefRecord struct {
	ID     string     `json:"id"`
	Type   *string    `json:"type,omitempty"`
	Anchor [][]string `json:"anchor,omitempty"`
}

type OpinionHolderRecord struct {
	Type   *string  `json:"type,omitempty"`
	Anchor []string `json:"anchor,omitempty"`
}

type OpinionTargetRecord struct {
	Anchor []string `json:"anchor,omitempty"`
}

type OpinionExpressionRecord struct {
	Polarity                *string  `json:"polarity,omitempty"`
	Strength                *string  `json:"strength,omitempty"`
	Subjectivity            *string  `json:"subjectivity,omitempty"`
	SentimentSemanticType   *string  `json:"sentiment_semantic_type,omitempty"`
	SentimentProductFeature *string  `json:"sentiment_product_feature,omitempty"`
	Anchor                  []string `json:"anchor,omitempty"`
}

type OpinionRecord struct {
	ID         string                   `json:"id"`
	Holder     *OpinionHolderRecord     `json:"opinion_holder,omitempty"`
	Target     *OpinionTargetRecord     `json:"opinion_target,omitempty"`
	Expression *OpinionExpressionRecord `json:"opinion_expression,omitempty"`
}

type RoleRecord struct {
	ID           string              `json:"id"`
	SemRole      string              `json:"sem_role"`
	Anchor       []string            `json:"anchor,omitempty"`
	ExternalRefs []ExternalRefRecord `json:"external_references,omitempty"`
}

type PredicateRecord struct {
	ID           string              `json:"id"`
	URI          *string             `json:"uri,omitempty"`
	Confidence   *float64            `json:"confidence,omitempty"`
	Anchor       []string            `json:"anchor,omitempty"`
	ExternalRefs []ExternalRefRecord `json:"external_references,omitempty"`
	Roles        []RoleRecord        `json:"roles,omitempty"`
}

// FactualityRecord is keyed by the word form it annotates.
type FactualityRecord struct {
	ID         string   `json:"id"`
	Prediction string   `json:"prediction"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type TimexRecord struct {
	ID                 string    `json:"id"`
	Type               string    `json:"type"`
	BeginPoint         *string   `json:"beginPoint,omitempty"`
	EndPoint           *string   `json:"endPoint,omitempty"`
	Quant              *string   `json:"quant,omitempty"`
	Freq               *string   `json:"freq,omitempty"`
	FunctionInDocument *string   `json:"functionInDocument,omitempty"`
	TemporalFunction   *TextBool `json:"temporalFunction,omitempty"`
	Value              *string   `json:"value,omitempty"`
	ValueFromFunction  *string   `json:"valueFromFunction,omitempty"`
	Mod                *string   `json:"mod,omitempty"`
	AnchorTimeID       *string   `json:"anchorTimeId,omitempty"`
	Comment            *string   `json:"comment,omitempty"`
	Anchor             []string  `json:"anchor,omitempty"`
}

type TLinkRecord struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	FromType string `json:"fromType"`
	ToType   string `json:"toType"`
	RelType  string `json:"relType"`
}

type CLinkRecord struct {
	ID      string  `json:"id"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	RelType *string `json:"relType,omitempty"`
}

// Payload is the body of one layer record.
type Payload[R any] struct {
	Annotations []R `json:"annotations"`
}

// Flag is a boolean stored as "yes". Reading also accepts JSON booleans and
// "true"/"no"/"false".
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"yes"`), nil
	}
	return []byte(`"no"`), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	v, err := parseBool(data, "yes", "no")
	if err != nil {
		return err
	}
	*f = Flag(v)
	return nil
}

// TextBool is a boolean stored as "true" or "false". Reading also accepts
// JSON booleans.
type TextBool bool

func (b TextBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatBool(bool(b)))
}

func (b *TextBool) UnmarshalJSON(data []byte) error {
	v, err := parseBool(data, "true", "false")
	if err != nil {
		return err
	}
	*b = TextBool(v)
	return nil
}

func parseBool(data []byte, yes, no string) (bool, error) {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		return true, nil
	case "false", "null":
		return false, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return false, fmt.Errorf("flag: %w", err)
	}
	switch s {
	case yes, "true", "yes":
		return true, nil
	case no, "false", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("flag: unexpected value %q", s)
}

// SpanList is a list of spans. Older records stored a single span as a flat
// id list, which decodes as one span.
type SpanList [][]string

func (s *SpanList) UnmarshalJSON(data []byte) error {
	var nested [][]string
	if err := json.Unmarshal(data, &nested); err == nil {
		*s = nested
		return nil
	}
	var flat []string
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("anchor: %w", err)
	}
	if flat == nil {
		*s = nil
		return nil
	}
	*s = SpanList{flat}
	return nil
}
