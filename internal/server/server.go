// Package server exposes a read-only status API over the watcher's stored
// state. It never triggers checks.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go-jobwatch/internal/ledger"
	"go-jobwatch/internal/models"
	"go-jobwatch/internal/storage"
	"go-jobwatch/internal/watcher"
)

type Server struct {
	targets []models.Target
	store   storage.Store
	engine  *gin.Engine
	logger  zerolog.Logger
}

// New builds the API over store. Every request reads the store afresh since
// check runs write it from other processes.
func New(targets []models.Target, store storage.Store, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		targets: targets,
		store:   store,
		engine:  gin.New(),
		logger:  logger.With().Str("component", "server").Logger(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.health)
	s.engine.GET("/status", s.status)
	s.engine.GET("/targets", s.listTargets)
	s.engine.GET("/targets/:name/items", s.targetItems)
	s.engine.GET("/targets/:name/screenshot", s.targetScreenshot)
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("🌐 Status API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("🛑 Shutting down status API")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Job watcher API is running!",
		"status":  "healthy",
		"targets": len(s.targets),
	})
}

func (s *Server) status(c *gin.Context) {
	state, err := watcher.LoadState(c.Request.Context(), s.store)
	if err != nil && !errors.Is(err, models.ErrCorruptSlot) {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if state.TotalChecks == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "no checks recorded yet", "state": state})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": state})
}

type targetView struct {
	models.Target
	KnownItems int `json:"known_items"`
}

func (s *Server) listTargets(c *gin.Context) {
	out := make([]targetView, 0, len(s.targets))
	for _, t := range s.targets {
		entries, err := ledger.ReadEntries(c.Request.Context(), s.store, t)
		if err != nil {
			s.fail(c, http.StatusInternalServerError, err)
			return
		}
		out = append(out, targetView{Target: t, KnownItems: len(entries)})
	}
	c.JSON(http.StatusOK, gin.H{"targets": out})
}

func (s *Server) targetItems(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	entries, err := ledger.ReadEntries(c.Request.Context(), s.store, t)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": t.Name, "items": entries})
}

func (s *Server) targetScreenshot(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	if !t.IsImage() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target is not in screenshot mode"})
		return
	}

	data, err := s.store.Load(c.Request.Context(), t.FingerprintSlot())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no screenshot stored yet"})
		return
	}
	img, err := storage.DecodeImageSlot(data)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

// lookup matches the :name param against target names, then slot prefixes
func (s *Server) lookup(c *gin.Context) (models.Target, bool) {
	name := c.Param("name")
	for _, t := range s.targets {
		if t.Name == name || t.SlotPrefix() == name {
			return t, true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown target"})
	return models.Target{}, false
}

func (s *Server) fail(c *gin.Context, code int, err error) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("❌ Request failed")
	c.JSON(code, gin.H{"error": err.Error()})
}
