package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/nafstore/internal/storage"
	"github.com/OFFIS-RIT/nafstore/internal/util"
	"github.com/OFFIS-RIT/nafstore/pkg/assembler"
	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/scopelock"
)

// DocumentSource fetches serialized documents referenced by s3_key.
type DocumentSource interface {
	GetFile(ctx context.Context, key string) ([]byte, error)
}

// Processor applies queue messages to the store. Writers of one document
// are serialized through Locker.
type Processor struct {
	Assembler  *assembler.Assembler
	Locker     scopelock.Locker
	Source     DocumentSource
	FetchTries int
}

// Process dispatches a message body by the queue it arrived on.
func (p *Processor) Process(ctx context.Context, queueName string, body []byte) error {
	switch queueName {
	case StoreQueue:
		return p.ProcessStoreMessage(ctx, body)
	case DeleteQueue:
		return p.ProcessDeleteMessage(ctx, body)
	}
	return fmt.Errorf("%w: unknown queue %s", ErrMalformedMessage, queueName)
}

func (p *Processor) ProcessStoreMessage(ctx context.Context, body []byte) error {
	msg, err := DecodeStoreMsg(body)
	if err != nil {
		return err
	}
	start := time.Now()

	rec := msg.Document
	if rec == nil {
		rec, err = p.fetch(ctx, msg.S3Key)
		if err != nil {
			return err
		}
	}

	doc, err := codec.HydrateDocument(rec)
	if err != nil {
		return fmt.Errorf("decode document %s: %w", msg.DocID, err)
	}

	err = p.Locker.WithScope(ctx, msg.SessionID, msg.DocID, func(ctx context.Context) error {
		if msg.BySentence {
			return p.Assembler.StoreDocumentBySentence(ctx, msg.SessionID, msg.DocID, doc)
		}
		return p.Assembler.StoreDocument(ctx, msg.SessionID, msg.DocID, doc, msg.Part())
	})
	if err != nil {
		return err
	}

	logger.Info("[Queue] Stored document",
		"correlation_id", msg.CorrelationID,
		"session", msg.SessionID,
		"doc", msg.DocID,
		"by_sentence", msg.BySentence,
		"duration", time.Since(start),
	)
	return nil
}

func (p *Processor) ProcessDeleteMessage(ctx context.Context, body []byte) error {
	msg, err := DecodeDeleteMsg(body)
	if err != nil {
		return err
	}

	err = p.Locker.WithScope(ctx, msg.SessionID, msg.DocID, func(ctx context.Context) error {
		return p.Assembler.RemoveDocument(ctx, msg.SessionID, msg.DocID)
	})
	if err != nil {
		return err
	}

	logger.Info("[Queue] Removed document", "correlation_id", msg.CorrelationID, "session", msg.SessionID, "doc", msg.DocID)
	return nil
}

func (p *Processor) fetch(ctx context.Context, key string) (*codec.DocumentRecord, error) {
	if p.Source == nil {
		return nil, fmt.Errorf("%w: s3_key given but no bucket is configured", ErrMalformedMessage)
	}

	data, err := util.RetryWithContext(ctx, p.FetchTries, func(ctx context.Context) ([]byte, error) {
		data, err := p.Source.GetFile(ctx, key)
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, util.Permanent(err)
		}
		if err != nil {
			logger.Debug("[Queue] Fetch failed", "key", key, "err", err)
		}
		return data, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", key, err)
	}

	rec := new(codec.DocumentRecord)
	if err := codec.Decode(data, rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", key, err)
	}
	return rec, nil
}
