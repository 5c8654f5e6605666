package routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/nafstore/internal/server/middleware"
	"github.com/OFFIS-RIT/nafstore/internal/server/util"
	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
)

type messageResponse struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// GetDocumentHandler loads the requested layers of a document at the
// requested granularity. layers is a comma separated list of layer names,
// "raw" for the raw text alone, and defaults to all.
func GetDocumentHandler(c echo.Context) error {
	type getDocumentData struct {
		SessionID   int    `param:"session" validate:"min=0"`
		DocID       string `param:"doc" validate:"required"`
		Layers      string `query:"layers"`
		Granularity string `query:"granularity"`
		Part        int    `query:"part" validate:"min=0"`
	}

	data := new(getDocumentData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request params"})
	}

	layers := layer.All()
	if data.Layers != "" {
		set, err := layer.ParseSet(strings.Split(data.Layers, ","))
		if err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
		}
		layers = set
	}
	gran, err := layer.ParseGranularity(data.Granularity)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	doc, err := app.Assembler.LoadDocument(ctx, data.SessionID, data.DocID, layers, gran, data.Part)
	if err != nil {
		logger.Error("[Server] Failed to load document", "session", data.SessionID, "doc", data.DocID, "err", err)
		return c.JSON(util.StatusFor(err), messageResponse{Message: util.Message(err)})
	}

	rec, err := codec.FlattenDocument(doc)
	if err != nil {
		logger.Error("[Server] Failed to encode document", "session", data.SessionID, "doc", data.DocID, "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, rec)
}
