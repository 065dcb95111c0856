package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vmsite/collector/internal/config"
	"github.com/vmsite/collector/internal/export"
	"github.com/vmsite/collector/internal/metrics"
	"github.com/vmsite/collector/internal/stats"
	"github.com/vmsite/collector/internal/store"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

//go:embed assets/admin.html
var adminHTML []byte

// Server serves ingestion, stats and export endpoints.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	stats    *stats.Engine
	exporter *export.Exporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	router   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the wall clock used for ingestion fallbacks and
// aggregation windows.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the router. The store must stay open for the server's lifetime.
func New(cfg *config.Config, st *store.Store, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	s.stats = stats.New(st, s.logger)
	s.exporter = export.New(s.stats, st)

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(
		requestID(),
		requestLogger(s.logger),
		observe(s.metrics),
		gin.CustomRecovery(s.recovered),
		cors(),
	)

	r.GET("/healthz", s.healthz)
	r.GET("/admin", s.admin)
	r.GET("/metrics", auth(cfg.Token), gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api", auth(cfg.Token))
	api.POST("/collect", s.collect)
	api.GET("/stats/summary", s.summary)
	api.GET("/stats/dashboard", s.dashboard)
	api.GET("/export/:view", s.export)

	r.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	s.router = r
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) recovered(c *gin.Context, err any) {
	s.logger.Error("handler panicked", "panic", err, "path", c.Request.URL.Path, "request_id", c.GetString(requestIDKey))
	c.AbortWithStatus(http.StatusInternalServerError)
}
