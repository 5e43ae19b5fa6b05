// File: internal/api/server.go
// ============================================
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wti-trading-bot/internal/bot"
	"wti-trading-bot/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatusSource is the read side of the orchestrator.
type StatusSource interface {
	Snapshot() bot.Snapshot
}

// Server is the read-only operations API: health, status, positions and
// Prometheus metrics.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     types.APIConfig
	source     StatusSource
	logger     zerolog.Logger
}

func NewServer(config types.APIConfig, source StatusSource, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		config: config,
		source: source,
		logger: logger.With().Str("component", "api").Logger(),
	}
	router.Use(s.requestLogger())

	router.GET("/healthz", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/positions", s.handlePositions)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.source.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"mode":            snap.Mode,
		"symbol":          snap.Symbol,
		"running":         snap.Running,
		"ticks":           snap.Ticks,
		"last_tick":       snap.LastTick,
		"trading_allowed": snap.TradingAllowed,
		"filters":         snap.Filters,
		"last_signal":     snap.LastSignal,
		"current_price":   snap.CurrentPrice,
		"current_atr":     snap.CurrentATR,
		"account":         snap.Account,
		"risk":            snap.Risk,
		"open_positions":  len(snap.Positions),
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	snap := s.source.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"count":     len(snap.Positions),
		"positions": snap.Positions,
	})
}
