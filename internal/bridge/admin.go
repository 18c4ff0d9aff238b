package bridge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/marsipan/internal/auth"
	"github.com/danmuck/marsipan/internal/commands"
	"github.com/danmuck/marsipan/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const adminService = "marsipan-admin"

// Router builds the admin HTTP surface: /health, /status and /metrics.
// /health is always open.
func (s *Service) Router() *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(adminService))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		if !s.connected.Load() {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    status,
			"uptime":    time.Since(s.startedAt).String(),
			"component": adminService,
			"version":   commands.Version,
		})
	})

	private := r.Group("/")
	if token := strings.TrimSpace(s.cfg.AdminToken); token != "" {
		private.Use(auth.Require(auth.StaticToken{Token: token}))
	}
	private.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status())
	})
	private.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (s *Service) serveAdmin(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Msg("admin listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
