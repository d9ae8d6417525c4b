// Package api serves the control panel: config editing, run triggering and
// the live run log.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"digestbot/config"
	"digestbot/orchestrator"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Server is the control panel HTTP server
type Server struct {
	svc        *orchestrator.Service
	httpServer *http.Server
	cron       *cron.Cron
	cronID     cron.EntryID
	mu         sync.Mutex
	logger     zerolog.Logger

	pingInterval  time.Duration
	streamTimeout time.Duration
}

// NewServer creates a control panel bound to port
func NewServer(svc *orchestrator.Service, port int, logger zerolog.Logger) *Server {
	s := &Server{
		svc:           svc,
		cron:          cron.New(),
		logger:        logger,
		pingInterval:  config.StreamPingInterval,
		streamTimeout: config.StreamIdleTimeout,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; access logging stays off
	r.Use(gin.Recovery(), allowCORS())

	RegisterPageRoutes(r)
	RegisterConfigRoutes(r, s)
	RegisterRunRoutes(r, s)
	RegisterHealthRoutes(r)
	return r
}

// allowCORS lets a page served elsewhere drive the API
func allowCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ListenAndServe blocks until the server stops
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Str("config", s.svc.ConfigPath()).Msg("control panel listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control panel: %w", err)
	}
	return nil
}

// StartCron schedules runs with the given cron spec
func (s *Server) StartCron(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(schedule, func() {
		s.logger.Info().Msg("cron triggered: starting scheduled digest")
		if err := s.svc.Start(orchestrator.Options{}); err != nil {
			s.logger.Warn().Err(err).Msg("cron skipped")
		}
	})
	if err != nil {
		return fmt.Errorf("%w: cron %q: %v", config.ErrInvalid, schedule, err)
	}

	s.cronID = id
	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("cron job started")
	return nil
}

// Shutdown stops the scheduler and the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down control panel")
	<-s.cron.Stop().Done()
	return s.httpServer.Shutdown(ctx)
}
