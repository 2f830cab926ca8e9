package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 5 * time.Second

// NewRouter registers the status routes.
func NewRouter(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	e.GET("/api/progress", h.GetProgress)
	e.GET("/api/config", h.GetConfig)
	return e
}

// Server is the status server running alongside a scan.
type Server struct {
	addr string
	echo *echo.Echo
	done chan struct{}

	started bool
}

func NewServer(addr string, h *Handler) *Server {
	return &Server{addr: addr, echo: NewRouter(h), done: make(chan struct{})}
}

// Start serves in the background until Close is called.
func (s *Server) Start() {
	log.Printf("Starting status server on %s...", s.addr)
	s.started = true
	go func() {
		defer close(s.done)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Warning: status server stopped: %v", err)
		}
	}()
}

// Close shuts the server down gracefully.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.echo.Shutdown(ctx)
	if s.started {
		<-s.done
	}
	return err
}
