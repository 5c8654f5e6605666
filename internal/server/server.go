package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/nafstore/internal/backend"
	"github.com/OFFIS-RIT/nafstore/internal/config"
	"github.com/OFFIS-RIT/nafstore/internal/queue"
	mid "github.com/OFFIS-RIT/nafstore/internal/server/middleware"
	"github.com/OFFIS-RIT/nafstore/pkg/assembler"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance serving app.
func New(app *mid.App, bodyLimit string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	if bodyLimit != "" {
		e.Use(middleware.BodyLimit(bodyLimit))
	}

	RegisterRoutes(e)
	return e
}

// Init opens the configured store and serves the API until SIGINT or
// SIGTERM.
func Init(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := backend.Open(ctx, cfg.Store, cfg.Worker.LockTTL, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to open store", "err", err)
	}
	defer be.Close()

	opts := []assembler.Option{assembler.WithDefaults(cfg.NAF.Lang, cfg.NAF.Version)}
	if cfg.Store.AppendOnly {
		opts = append(opts, assembler.WithAppendOnly())
	}
	app := &mid.App{
		Assembler: assembler.New(be.Store, opts...),
		Locker:    be.Locker,
	}

	if cfg.Server.Queue {
		conn, err := queue.Init(cfg.RabbitMQ)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", "err", err)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, queue.Queues()); err != nil {
			logger.Fatal("Failed to declare queues", "err", err)
		}
		app.Queue = ch
	}

	e := New(app, cfg.Server.BodyLimit)

	go func() {
		logger.Info("Starting server", "port", cfg.Server.Port, "backend", be.Name)
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
