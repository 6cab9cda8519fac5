package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fu2re/jati/internal/config"
	"github.com/fu2re/jati/internal/routes"
	"github.com/fu2re/jati/internal/transfer"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app       *fiber.App
	cfg       config.Config
	transfers *transfer.Service
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	transfers, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, transfers: transfers}, nil
}

// Transfers exposes the transfer service for startup tasks such as the
// stale-entry reconciliation sweep.
func (s *Server) Transfers() *transfer.Service {
	return s.transfers
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
