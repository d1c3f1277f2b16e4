// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package health exposes liveness and readiness endpoints for operators.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/crowdward/backersbot/internal/repository"
)

// Server is the small ops HTTP listener.
type Server struct {
	echo *echo.Echo
}

// New builds the ops server. Readiness runs one cheap query against the
// backers table.
func New(repo *repository.Repository) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(requestLogger)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/readyz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if _, err := repo.CountBackers(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.String(http.StatusOK, "ready")
	})

	return &Server{echo: e}
}

// Handler exposes the routes for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving on addr until Shutdown.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		slog.Info("request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}
