package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sovereignctl/internal/analysis"
	"sovereignctl/internal/auth"
	"sovereignctl/internal/metrics"
	"sovereignctl/internal/model"
)

// Platform is the state owner the API reads from and triggers actions on.
type Platform interface {
	State() model.State
	Snapshot() model.Snapshot
	Logs() []string
	RunAnalysis(ctx context.Context) analysis.Result
	CopyScript() string
	Subscribe() (<-chan model.State, func())
}

// Options configure the HTTP server.
type Options struct {
	Listen      string
	CORSOrigins []string
	// Tokens guards POST /v1/analysis when set.
	Tokens  *auth.TokenService
	Metrics *metrics.Registry
	Logger  *zap.Logger
}

// Server provides the platform HTTP API.
type Server struct {
	platform Platform
	opts     Options
	logger   *zap.Logger
	router   *gin.Engine
}

// New builds the router. Nothing listens until ListenAndServe.
func New(p Platform, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{platform: p, opts: opts, logger: opts.Logger}

	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog())
	if s.opts.Metrics != nil {
		router.Use(s.instrument())
	}
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	s.setupRoutes(router)
	s.router = router
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the HTTP server until ctx is done, then shuts it down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.opts.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	if s.opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promHandler(s.opts.Metrics)))
	}

	v1 := router.Group("/v1")
	{
		v1.GET("/state", s.getState)
		v1.GET("/snapshot", s.getSnapshot)
		v1.GET("/nodes", s.getNodes)
		v1.GET("/metrics", s.getMetrics)
		v1.GET("/telemetry", s.getTelemetry)
		v1.GET("/logs", s.getLogs)
		v1.GET("/analysis", s.getAnalysis)
		v1.POST("/analysis", s.requireToken(), s.postAnalysis)
		v1.GET("/bootstrap-script", s.getBootstrapScript)
		v1.GET("/stream", s.stream)
	}
}
