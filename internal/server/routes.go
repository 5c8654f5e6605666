package server

import (
	"github.com/OFFIS-RIT/nafstore/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiRoutes := e.Group("/api")

	apiRoutes.GET("/sessions/:session/documents/:doc", routes.GetDocumentHandler)
	apiRoutes.PUT("/sessions/:session/documents/:doc", routes.PutDocumentHandler)
	apiRoutes.DELETE("/sessions/:session/documents/:doc", routes.DeleteDocumentHandler)
}
