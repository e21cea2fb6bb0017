// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server is the local companion viewer: a small HTTP API over one
// session that a browser page polls or streams over a websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pdiddy/mathnote/internal/session"
	"github.com/pdiddy/mathnote/pkg/types"
)

const shutdownTimeout = 5 * time.Second

// Session is the part of session.Session the viewer uses.
type Session interface {
	Snapshot() session.State
	Subscribe() (<-chan session.State, func())
	CaptureSOS(t float64) (types.SosEvent, error)
	Export(ctx context.Context) (string, error)
}

// Server serves the viewer API.
type Server struct {
	sess   Session
	engine *gin.Engine
	done   chan struct{}
}

// New wires the routes for sess.
func New(sess Session) *Server {
	s := &Server{sess: sess, engine: gin.New(), done: make(chan struct{})}
	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.GET("/note", s.handleNote)
		api.GET("/slides", s.handleSlides)
		api.GET("/slides/:number", s.handleSlide)
		api.GET("/sos", s.handleListSOS)
		api.POST("/sos", s.handleCaptureSOS)
		api.POST("/export", s.handleExport)
	}
	s.engine.GET("/ws", s.handleStream)
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	slog.Info("viewer listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	close(s.done)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down viewer: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()
		slog.Debug("viewer request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", id,
		)
	}
}
