package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/existflow/ironhabit/internal/logger"
)

// Server is the document store server
type Server struct {
	store DocumentStore
	echo  *echo.Echo
}

// New opens the store at dbURL and creates a server on it.
func New(dbURL string) (*Server, error) {
	store, err := OpenStore(dbURL)
	if err != nil {
		return nil, err
	}
	return NewWithStore(store), nil
}

// NewWithStore creates a server on an already opened store.
func NewWithStore(store DocumentStore) *Server {
	s := &Server{store: store}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// Health check
	e.GET("/health", s.handleHealth)

	// API v1
	api := e.Group("/api/v1")

	// Auth endpoints (public)
	api.POST("/auth/anonymous", s.handleAnonymousSignIn)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/auth/me", s.handleMe)

	docs := protected.Group("/users/:uid/:collection")
	docs.Use(ownerOnly)
	docs.GET("", s.handleListDocuments)
	docs.PUT("/:id", s.handleUpsertDocument)
	docs.DELETE("/:id", s.handleDeleteDocument)

	s.echo = e
}

// requestLogger logs every request through the application logger.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)

		res := c.Response()
		logger.Info("HTTP Response",
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("duration", time.Since(start).String()))

		return err
	}
}

// Close closes the underlying store
func (s *Server) Close() error {
	return s.store.Close()
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
