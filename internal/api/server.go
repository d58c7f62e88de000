// Package api implements the HTTP control surface: trigger endpoints, the
// automation toggle, and status reporting.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gopunch/internal/attendance"
	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

// triggerTimeout bounds a manually triggered attempt. An attempt spans login
// simulation, a log scrape, and the posting call, each with its own portal
// timeout, plus up to two session refreshes.
const triggerTimeout = 2 * time.Minute

// Executor runs one attendance attempt. Satisfied by attendance.Runner.
type Executor interface {
	Execute(
		ctx context.Context,
		action domain.Action,
		trigger domain.Trigger,
		observers ...attendance.PhaseFunc,
	) (attendance.Result, error)
}

// History reads recent attempts from the local journal.
type History interface {
	Recent(limit int) ([]domain.Attempt, error)
}

// Server is the control API server.
type Server struct {
	cfg      config.ServerConfig
	state    *attendance.State
	executor Executor
	history  History
	logger   logger.Interface
	httpSrv  *http.Server
}

// NewServer creates the control API server. history may be nil when no
// journal is configured; GET /history then reports it as unavailable.
func NewServer(
	cfg config.ServerConfig,
	state *attendance.State,
	executor Executor,
	history History,
	log logger.Interface,
) *Server {
	s := &Server{
		cfg:      cfg,
		state:    state,
		executor: executor,
		history:  history,
		logger:   log.WithComponent("api"),
	}

	s.httpSrv = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// setupRouter creates and configures the Gin router with all routes.
func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())

	router.GET("/health", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.POST("/enable", s.handleEnable)
	router.POST("/disable", s.handleDisable)
	router.POST("/clockin", s.triggerHandler(domain.ActionClockIn))
	router.POST("/clockout", s.triggerHandler(domain.ActionClockOut))
	router.GET("/history", s.handleHistory)

	return router
}

// loggingMiddleware logs each request with its latency and status.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String())
	}
}

// Start runs the server until it is shut down. It returns nil on a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("control API listening", "address", s.cfg.Address)

	if err := s.httpSrv.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("control API shutting down")
	return s.httpSrv.Shutdown(ctx)
}
