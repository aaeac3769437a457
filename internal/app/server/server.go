package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sifan077/TinyLink/internal/app/service"
	inthttp "github.com/sifan077/TinyLink/internal/http/handler"
	"github.com/sifan077/TinyLink/internal/http/middleware"
	"go.uber.org/zap"
)

const (
	ServiceName = "URL Shortener"
	Version     = "1.0.0"
)

// Dependencies bundles what the HTTP server needs to serve requests.
// Metrics and CreateLimiter are optional.
type Dependencies struct {
	Logger        *zap.Logger
	Links         service.LinkService
	BaseURL       string
	BodyLimit     int
	Metrics       middleware.RequestObserver
	CreateLimiter fiber.Handler
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               ServiceName,
		Immutable:             true,
		BodyLimit:             deps.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr and serves until ctx is done. See Serve.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve serves requests from ln until ctx is done, then stops accepting
// connections and returns once in-flight requests have finished or
// shutdownTimeout has passed.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	served := make(chan error, 1)
	go func() {
		served <- s.app.Listener(ln)
	}()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}

	s.deps.Logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return <-served
}

// Shutdown gracefully stops the Fiber server, waiting for open connections until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Metrics != nil {
		s.app.Use(middleware.Metrics(s.deps.Metrics))
	}
}

func (s *Server) registerRoutes() {
	inthttp.NewHealthHandler(inthttp.HealthDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.Links,
		Service:     ServiceName,
		Version:     Version,
	}).Register(s.app)

	inthttp.NewShortURLHandler(inthttp.ShortURLDeps{
		Logger:        s.deps.Logger,
		LinkService:   s.deps.Links,
		BaseURL:       s.deps.BaseURL,
		CreateLimiter: s.deps.CreateLimiter,
	}).Register(s.app)
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		title := "Server failure"
		message := "Internal server error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
			title = utils.StatusMessage(status)
			message = fiberErr.Message
		} else {
			logger.Error("unhandled request error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(inthttp.ErrorResponse{Error: title, Message: message})
	}
}
