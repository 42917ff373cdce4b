// Package emulator is a local stand-in for the backend-as-a-service platform.
// It serves the account, database and storage routes the feed client uses,
// backed by GORM, so development and end-to-end tests need no cloud project.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"feedsync/internal/config"
	"feedsync/internal/emulator/repository"
	"feedsync/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const (
	defaultSessionTTL  = 365 * 24 * time.Hour
	defaultBodyLimitMB = 32
	defaultListLimit   = 25
)

// Options configure the emulator.
type Options struct {
	ProjectID  string
	JWTSecret  string
	UploadDir  string
	SessionTTL time.Duration
	BodyLimit  int
}

// OptionsFromConfig derives emulator options from the shared configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ProjectID: cfg.ProjectID,
		JWTSecret: cfg.EmulatorJWTSecret,
		UploadDir: cfg.EmulatorUploadDir,
		BodyLimit: (cfg.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
	}
}

// Server holds dependencies for the emulator's HTTP surface.
type Server struct {
	opts   Options
	secret []byte
	db     *gorm.DB
	app    *fiber.App

	registry       *prometheus.Registry
	promMiddleware *fiberprometheus.FiberPrometheus

	accounts  repository.AccountRepository
	sessions  repository.SessionRepository
	documents repository.DocumentRepository
	files     repository.FileRepository
}

// NewServer wires repositories on db and builds the route table.
func NewServer(opts Options, db *gorm.DB) (*Server, error) {
	if opts.ProjectID == "" {
		return nil, errors.New("emulator: project id is required")
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("emulator: jwt secret is required")
	}
	if opts.UploadDir == "" {
		opts.UploadDir = os.TempDir()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaultBodyLimitMB * 1024 * 1024
	}
	if err := os.MkdirAll(opts.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("emulator: create upload dir: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		opts:           opts,
		secret:         []byte(opts.JWTSecret),
		db:             db,
		registry:       registry,
		promMiddleware: fiberprometheus.NewWithRegistry(registry, "feedsync-emulator", "feedsync", "emulator", nil),
		accounts:       repository.NewAccountRepository(db),
		sessions:       repository.NewSessionRepository(db),
		documents:      repository.NewDocumentRepository(db),
		files:          repository.NewFileRepository(db),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "feedsync emulator",
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          respondError,
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)
	return s, nil
}

// App returns the fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Registry returns the emulator's Prometheus registry.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// SetupMiddleware configures the middleware chain.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(s.promMiddleware.Middleware)
	app.Use(ContextMiddleware())
	// Errors are rendered here, so outer middleware sees the final status.
	app.Use(StructuredLogger())
}

// SetupRoutes configures all routes for the emulator.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := app.Group("/v1", s.ProjectRequired())

	account := v1.Group("/account")
	account.Post("/", s.CreateAccount)
	account.Post("/sessions/email", s.CreateEmailPasswordSession)
	account.Get("/", s.SessionRequired(), s.GetAccount)
	account.Delete("/sessions", s.SessionRequired(), s.DeleteSessions)

	docs := v1.Group("/databases/:databaseId/collections/:collectionId/documents", s.SessionRequired())
	docs.Get("/", s.ListDocuments)
	docs.Post("/", s.CreateDocument)
	docs.Get("/:documentId", s.GetDocument)
	docs.Patch("/:documentId", s.UpdateDocument)
	docs.Delete("/:documentId", s.DeleteDocument)

	files := v1.Group("/storage/buckets/:bucketId/files")
	// Image URLs are embedded in posts and rendered without a session.
	files.Get("/:fileId/view", s.ViewFile)
	files.Post("/", s.SessionRequired(), s.CreateFile)
}

// HealthCheck reports database reachability.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := fiber.StatusOK
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"database": status,
		"time":     time.Now().UTC(),
	})
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	observability.Logger().Info("emulator listening",
		slog.String("addr", addr),
		slog.String("project", s.opts.ProjectID),
	)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
