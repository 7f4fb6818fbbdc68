// Package server exposes the loaded datasets as a JSON dashboard API.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/KaramelBytes/ineqdash/internal/ai"
	"github.com/KaramelBytes/ineqdash/internal/catalog"
	"github.com/KaramelBytes/ineqdash/internal/metrics"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures a Server.
type Options struct {
	Addr string
	// Chat is the assistant backend; nil disables POST /api/chat.
	Chat        ai.Runtime
	ChatOptions ai.ConversationOptions
	// Quiet drops the per-request access log.
	Quiet bool
}

type Server struct {
	store *catalog.Store
	opts  Options
	e     *echo.Echo

	mu    sync.Mutex
	convs map[string]*ai.Conversation
}

func NewServer(store *catalog.Store, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	s := &Server{store: store, opts: opts, convs: make(map[string]*ai.Conversation)}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	if !opts.Quiet {
		e.Use(middleware.Logger())
	}
	e.Use(countRequests)
	s.e = e
	s.RegisterRoutes(e)
	return s
}

func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/datasets", s.handleDatasets)
	api.GET("/datasets/:name/series", s.handleSeries)
	api.GET("/datasets/:name/records", s.handleRecords)
	api.GET("/datasets/:name/audit", s.handleAudit)
	api.GET("/datasets/:name/deltas", s.handleDeltas)
	api.GET("/datasets/:name/map", s.handleMap)
	api.GET("/ratios", s.handleRatios)
	api.GET("/ratios/reconcile", s.handleReconcile)
	api.POST("/chat", s.handleChat)
}

func (s *Server) Handler() http.Handler { return s.e }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("dashboard API listening on %s", s.opts.Addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("dashboard API stopped")
	return nil
}

func countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		endpoint := c.Path()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
		return err
	}
}
