package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

// ErrMalformedMessage marks a message body that can never be processed.
var ErrMalformedMessage = errors.New("malformed message")

var validate = validator.New()

// StoreMsg asks the worker to store one document. The document travels
// inline or as an S3 key.
type StoreMsg struct {
	Message       string                `json:"message,omitempty"`
	CorrelationID string                `json:"correlation_id"`
	SessionID     int                   `json:"session_id" validate:"min=0"`
	DocID         string                `json:"doc_id" validate:"required"`
	Paragraph     *int                  `json:"paragraph,omitempty" validate:"omitempty,min=0"`
	Sentence      *int                  `json:"sentence,omitempty" validate:"omitempty,min=0"`
	BySentence    bool                  `json:"by_sentence,omitempty"`
	Document      *codec.DocumentRecord `json:"document,omitempty"`
	S3Key         string                `json:"s3_key,omitempty"`
}

type DeleteMsg struct {
	CorrelationID string `json:"correlation_id"`
	SessionID     int    `json:"session_id" validate:"min=0"`
	DocID         string `json:"doc_id" validate:"required"`
}

func NewStoreMsg(sessionID int, docID string) *StoreMsg {
	return &StoreMsg{CorrelationID: uuid.NewString(), SessionID: sessionID, DocID: docID}
}

func NewDeleteMsg(sessionID int, docID string) *DeleteMsg {
	return &DeleteMsg{CorrelationID: uuid.NewString(), SessionID: sessionID, DocID: docID}
}

// Part returns the scope narrowing of the write.
func (m *StoreMsg) Part() layer.Part {
	return layer.Part{Paragraph: m.Paragraph, Sentence: m.Sentence}
}

// Validate checks the fields and the combination of document source and
// write scope.
func (m *StoreMsg) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}
	if (m.Document == nil) == (m.S3Key == "") {
		return errors.New("exactly one of document and s3_key must be set")
	}
	if m.Sentence != nil && m.Paragraph == nil {
		return errors.New("sentence requires paragraph")
	}
	if m.BySentence && m.Paragraph != nil {
		return errors.New("by_sentence cannot be combined with a part")
	}
	return nil
}

func DecodeStoreMsg(body []byte) (*StoreMsg, error) {
	msg := new(StoreMsg)
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return msg, nil
}

func DecodeDeleteMsg(body []byte) (*DeleteMsg, error) {
	msg := new(DeleteMsg)
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return msg, nil
}
