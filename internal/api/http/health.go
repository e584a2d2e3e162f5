// Package http exposes the worker's small operational surface: liveness,
// readiness and pipeline counters. The ticket-facing web tier lives in a
// separate service.
package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-ingest/internal/config"
	"github.com/spec-kit/ticket-ingest/internal/observability"
	"github.com/spec-kit/ticket-ingest/internal/persistence"
)

// HealthServer responds to liveness and readiness probes.
type HealthServer struct {
	app      *fiber.App
	cfg      config.AppConfig
	postgres *persistence.Postgres
	redis    *persistence.Redis
	metrics  *observability.Metrics
}

// NewHealthServer builds the fiber app and registers routes.
func NewHealthServer(cfg config.AppConfig, postgres *persistence.Postgres, redis *persistence.Redis, metrics *observability.Metrics) *HealthServer {
	s := &HealthServer{
		app:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		cfg:      cfg,
		postgres: postgres,
		redis:    redis,
		metrics:  metrics,
	}

	s.app.Get("/health/live", s.live)
	s.app.Get("/health/ready", s.ready)
	s.app.Get("/metrics", s.counters)
	return s
}

// Listen blocks serving HTTP on the configured address.
func (s *HealthServer) Listen() error {
	return s.app.Listen(s.cfg.Addr())
}

// Shutdown stops the server gracefully.
func (s *HealthServer) Shutdown() error {
	return s.app.Shutdown()
}

func (s *HealthServer) live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": s.cfg.Name,
		"version": s.cfg.Version,
	})
}

func (s *HealthServer) ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if err := s.postgres.Ping(ctx); err != nil {
		depStatus["postgres"] = err.Error()
		ready = false
	} else {
		depStatus["postgres"] = "ok"
	}

	if err := s.redis.Ping(ctx); err != nil {
		depStatus["redis"] = err.Error()
		ready = false
	} else {
		depStatus["redis"] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

func (s *HealthServer) counters(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"counters": s.metrics.Snapshot()})
}
