// Package server exposes the relay's status, reset and test controls over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/synaptecltd/relay"
	"github.com/synaptecltd/relay/emulator"
	"github.com/synaptecltd/relay/metrics"
)

// Relay is the part of relay.Channel the server controls. Reset is expected to
// clear any trip outputs along with the functions.
type Relay interface {
	Status() relay.Status
	Reset()
	SetEnabled(name string, enabled bool) error
}

// GooseStatus reports the trip publisher counters.
type GooseStatus interface {
	SqNum() uint32
	StNum() uint32
	LastTripState() bool
}

// EventTrigger starts emulated events, e.g. emulator.AdcSource.
type EventTrigger interface {
	StartEvent(eventType int)
}

// Options configures a Server. Goose and Events are optional.
type Options struct {
	Relay  Relay
	Goose  GooseStatus
	Events EventTrigger
	Logger zerolog.Logger
}

// Server serves the relay HTTP API.
type Server struct {
	options Options
	router  *gin.Engine
	started time.Time
}

// NewServer returns a Server with its routes registered.
func NewServer(options Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		options: options,
		router:  gin.New(),
		started: time.Now(),
	}
	s.router.Use(gin.Recovery(), RequestLogger(options.Logger), RequestMetrics())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.health)
	s.router.GET("/status", s.status)
	s.router.POST("/reset", s.reset)
	s.router.POST("/functions/:name/enable", s.setEnabled(true))
	s.router.POST("/functions/:name/disable", s.setEnabled(false))
	s.router.POST("/events/:name", s.startEvent)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// Handler returns the HTTP handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.options.Logger.Info().Str("addr", addr).Msg("status server listening")
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

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

type gooseResponse struct {
	SqNum uint32 `json:"sq_num"`
	StNum uint32 `json:"st_num"`
	Trip  bool   `json:"trip"`
}

type statusResponse struct {
	relay.Status
	Goose *gooseResponse `json:"goose,omitempty"`
}

func (s *Server) status(c *gin.Context) {
	response := statusResponse{Status: s.options.Relay.Status()}
	if s.options.Goose != nil {
		response.Goose = &gooseResponse{
			SqNum: s.options.Goose.SqNum(),
			StNum: s.options.Goose.StNum(),
			Trip:  s.options.Goose.LastTripState(),
		}
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) reset(c *gin.Context) {
	s.options.Relay.Reset()
	s.options.Logger.Info().Msg("relay reset")
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) setEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if err := s.options.Relay.SetEnabled(name, enabled); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, relay.ErrFunctionNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		s.options.Logger.Info().Str("function", name).Bool("enabled", enabled).Msg("protection function switched")
		c.JSON(http.StatusOK, gin.H{"function": name, "enabled": enabled})
	}
}

func (s *Server) startEvent(c *gin.Context) {
	if s.options.Events == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no emulated source"})
		return
	}
	name := c.Param("name")
	eventType, err := emulator.GetEventTypeFromName(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.options.Events.StartEvent(eventType)
	s.options.Logger.Warn().Str("event", name).Msg("emulated event started")
	c.JSON(http.StatusAccepted, gin.H{"event": name})
}
