// Package server exposes the worker's health and counters over HTTP.
package server

import (
	"context"
	"time"

	"airbnb-pricer/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const pingTimeout = 5 * time.Second

// StatsSource reports worker counters
type StatsSource interface {
	Stats() worker.Stats
}

// Pinger checks that the page renderer is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusServer serves /health, /ready and /status
type StatusServer struct {
	app    *fiber.App
	stats  StatsSource
	pinger Pinger
	logger logrus.FieldLogger
}

func NewStatusServer(stats StatsSource, pinger Pinger, logger logrus.FieldLogger) *StatusServer {
	s := &StatusServer{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
		}),
		stats:  stats,
		pinger: pinger,
		logger: logger.WithField("component", "status"),
	}
	s.app.Get("/health", s.health)
	s.app.Get("/ready", s.ready)
	s.app.Get("/status", s.status)
	return s
}

// App returns the underlying fiber app
func (s *StatusServer) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called
func (s *StatusServer) Listen(addr string) error {
	s.logger.Infof("Status server listening on %s", addr)
	return s.app.Listen(addr)
}

func (s *StatusServer) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *StatusServer) health(c *fiber.Ctx) error {
	st := s.stats.Stats()
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": st.Version,
		"host":    st.Host,
		"uptime":  time.Since(st.StartedAt).Round(time.Second).String(),
	})
}

func (s *StatusServer) ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		s.logger.Warnf("Renderer not ready: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "page renderer unavailable",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *StatusServer) status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    s.stats.Stats(),
	})
}
