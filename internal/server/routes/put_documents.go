package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/nafstore/internal/queue"
	"github.com/OFFIS-RIT/nafstore/internal/server/middleware"
	"github.com/OFFIS-RIT/nafstore/internal/server/util"
	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
)

// PutDocumentHandler stores the document in the request body. The optional
// paragraph and sentence query parameters narrow the write scope and
// by_sentence splits the document into sentence records. With async=true the
// write is queued instead.
func PutDocumentHandler(c echo.Context) error {
	var sessionID int
	var docID string
	var bySentence, async bool
	paragraph, sentence := -1, -1

	err := echo.PathParamsBinder(c).
		MustInt("session", &sessionID).
		MustString("doc", &docID).
		BindError()
	if err == nil {
		err = echo.QueryParamsBinder(c).
			Int("paragraph", &paragraph).
			Int("sentence", &sentence).
			Bool("by_sentence", &bySentence).
			Bool("async", &async).
			BindError()
	}
	if err != nil || sessionID < 0 || docID == "" {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}

	msg := queue.NewStoreMsg(sessionID, docID)
	msg.BySentence = bySentence
	if paragraph >= 0 {
		msg.Paragraph = &paragraph
	}
	if sentence >= 0 {
		msg.Sentence = &sentence
	}

	rec := new(codec.DocumentRecord)
	if err := json.NewDecoder(c.Request().Body).Decode(rec); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid document"})
	}
	msg.Document = rec
	if err := msg.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	if async {
		if app.Queue == nil {
			return c.JSON(http.StatusNotImplemented, messageResponse{Message: "Asynchronous writes are disabled"})
		}
		return publish(c, app, queue.StoreQueue, msg, msg.CorrelationID)
	}

	doc, err := codec.HydrateDocument(rec)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	}

	err = app.Locker.WithScope(ctx, sessionID, docID, func(ctx context.Context) error {
		if bySentence {
			return app.Assembler.StoreDocumentBySentence(ctx, sessionID, docID, doc)
		}
		return app.Assembler.StoreDocument(ctx, sessionID, docID, doc, msg.Part())
	})
	if err != nil {
		logger.Error("[Server] Failed to store document", "session", sessionID, "doc", docID, "err", err)
		return c.JSON(util.StatusFor(err), messageResponse{Message: util.Message(err)})
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Document stored"})
}

func publish(c echo.Context, app *middleware.App, queueName string, msg any, correlationID string) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}
	if err := queue.PublishFIFO(app.Queue, queueName, body); err != nil {
		logger.Error("[Server] Failed to publish message", "queue", queueName, "err", err)
		return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "Queue unavailable"})
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: "Queued", CorrelationID: correlationID})
}
