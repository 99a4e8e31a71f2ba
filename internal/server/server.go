// =============================================================================
// Deliberation List Generator - HTTP Surface
// =============================================================================
//
// A small local API over one deliberation.Session: upload a submission, read
// back the report and a preview, download the list.
//
// ROUTES:
//   POST   /api/deliberations?type=       upload (multipart field "file")
//   GET    /api/deliberations             last report
//   GET    /api/deliberations/preview     first rows of the list
//   GET    /api/deliberations/export      list as an attachment
//   DELETE /api/deliberations             reset
//
// The session holds a single result: an upload replaces the previous one and
// a failed upload clears it.
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/boundou-sig/deliblist/internal/config"
	"github.com/boundou-sig/deliblist/internal/converter"
	"github.com/boundou-sig/deliblist/internal/deliberation"
)

// Server serves the deliberation API.
type Server struct {
	cfg     *config.MainConfig
	conv    *converter.Converter
	session *deliberation.Session
	limiter *rate.Limiter
	logger  *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// New creates a Server with an empty session.
func New(cfg *config.MainConfig, conv *converter.Converter, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		conv:    conv,
		session: deliberation.NewSession(),
		limiter: uploadLimiter(cfg.Server.UploadsPerMinute, cfg.Server.UploadBurst),
		logger:  logger,
		now:     time.Now,
	}
}

// Session returns the session the server works on.
func (s *Server) Session() *deliberation.Session {
	return s.session
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	router := gin.New()

	router.Use(RequestID())
	router.Use(RequestLogger(s.logger))
	router.Use(Recovery(s.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/deliberations")
	api.POST("", RateLimit(s.limiter), BodyLimit(s.cfg.MaxUploadBytes()), s.handleUpload)
	api.GET("", s.handleCurrent)
	api.GET("/preview", s.handlePreview)
	api.GET("/export", s.handleExport)
	api.DELETE("", s.handleReset)

	return router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}
