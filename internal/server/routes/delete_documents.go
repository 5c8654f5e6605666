package routes

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/nafstore/internal/queue"
	"github.com/OFFIS-RIT/nafstore/internal/server/middleware"
	"github.com/OFFIS-RIT/nafstore/internal/server/util"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
)

func DeleteDocumentHandler(c echo.Context) error {
	type deleteDocumentData struct {
		SessionID int    `param:"session" validate:"min=0"`
		DocID     string `param:"doc" validate:"required"`
		Async     bool   `query:"async"`
	}

	data := new(deleteDocumentData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App

	if data.Async {
		if app.Queue == nil {
			return c.JSON(http.StatusNotImplemented, messageResponse{Message: "Asynchronous writes are disabled"})
		}
		msg := queue.NewDeleteMsg(data.SessionID, data.DocID)
		return publish(c, app, queue.DeleteQueue, msg, msg.CorrelationID)
	}

	ctx := c.Request().Context()
	err := app.Locker.WithScope(ctx, data.SessionID, data.DocID, func(ctx context.Context) error {
		return app.Assembler.RemoveDocument(ctx, data.SessionID, data.DocID)
	})
	if err != nil {
		logger.Error("[Server] Failed to remove document", "session", data.SessionID, "doc", data.DocID, "err", err)
		return c.JSON(util.StatusFor(err), messageResponse{Message: util.Message(err)})
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Document removed"})
}
