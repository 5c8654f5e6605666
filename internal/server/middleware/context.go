package middleware

import (
	"github.com/OFFIS-RIT/nafstore/internal/queue"
	"github.com/OFFIS-RIT/nafstore/pkg/assembler"
	"github.com/OFFIS-RIT/nafstore/pkg/scopelock"

	"github.com/labstack/echo/v4"
)

type App struct {
	Assembler *assembler.Assembler
	Locker    scopelock.Locker
	// Queue is nil unless asynchronous writes are enabled.
	Queue queue.Publisher
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
