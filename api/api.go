package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/crmchat/api/mcp"
	"github.com/papercomputeco/crmchat/pkg/engine"
)

// Engine is the part of *engine.Engine the server needs.
type Engine interface {
	Ask(ctx context.Context, req engine.Request) (*engine.Answer, error)
	Stats() engine.Stats
	EmbeddingModel() string
	ChatModel() string
	TopK() int
}

// Server is the API server answering questions over HTTP.
type Server struct {
	config Config
	engine Engine
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server around a built engine.
func NewServer(config Config, eng Engine) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config.AllowedOrigins == "" {
		config.AllowedOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config: config,
		engine: eng,
		logger: logger,
		app:    app,
	}

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(s.requestLogger)

	app.Get("/ping", s.handlePing)
	app.Post("/chatbot", s.handleChatbot)
	app.Get("/chatbot/index", s.handleIndexStats)

	if config.MCP {
		mcpServer, err := mcp.NewServer(mcp.Config{Asker: eng, Logger: logger})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp", s.config.MCP,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server, waiting for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

// errorHandler renders fiber errors (unknown routes, bad methods) in the same
// {error} shape as the handlers.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
