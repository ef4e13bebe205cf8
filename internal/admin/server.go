// Package admin serves a read-only HTTP view of a settings registry.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	logs "github.com/danmuck/fwsettings/internal/logging"
	"github.com/danmuck/fwsettings/internal/observability"
	"github.com/danmuck/fwsettings/internal/settings"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Executor runs fn on the goroutine that owns the registry.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Catalog is the registry view served over HTTP.
type Catalog interface {
	Snapshot() []settings.Entry
	Describe(section, name string) (settings.Entry, bool)
}

type Config struct {
	ID           string
	Addr         string
	CORSOrigins  []string
	QueryTimeout time.Duration
	Logger       zerolog.Logger
	// Token guards the /settings routes when set.
	Token string
}

func DefaultConfig() Config {
	return Config{
		ID:           "settingsd",
		Addr:         "127.0.0.1:8088",
		CORSOrigins:  []string{"http://localhost:3000"},
		QueryTimeout: 2 * time.Second,
		Logger:       zerolog.Nop(),
	}
}

type Server struct {
	cfg      Config
	exec     Executor
	catalog  Catalog
	router   *gin.Engine
	appeared time.Time
}

func New(cfg Config, exec Executor, catalog Catalog) *Server {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}
	observability.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger, "/metrics", "/health"))
	r.Use(RequestMetrics(cfg.ID))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:      cfg,
		exec:     exec,
		catalog:  catalog,
		router:   r,
		appeared: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": s.cfg.ID,
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	routes := s.router.Group("/settings")
	if s.cfg.Token != "" {
		routes.Use(RequireToken(StaticToken{Token: s.cfg.Token}))
	}
	routes.GET("", s.listSettings)
	routes.GET("/:section/:name", s.getSetting)
}

// query runs fn on the registry owner, bounded by QueryTimeout. fn must only
// write variables owned by the caller: when Do fails after handing fn over,
// fn may still run later on the loop, so those variables are never read on
// the error path.
func (s *Server) query(c *gin.Context, fn func()) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.QueryTimeout)
	defer cancel()
	if err := s.exec.Do(ctx, fn); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) listSettings(c *gin.Context) {
	var entries []settings.Entry
	if !s.query(c, func() { entries = s.catalog.Snapshot() }) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": entries})
}

func (s *Server) getSetting(c *gin.Context) {
	section := c.Param("section")
	name := c.Param("name")
	var (
		entry settings.Entry
		found bool
	)
	if !s.query(c, func() { entry, found = s.catalog.Describe(section, name) }) {
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": settings.ErrUnknownSetting.Error(), "section": section, "name": name})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Serve listens on cfg.Addr until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logs.Infof("admin.Server.Serve listening addr=%q", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logs.Warnf("admin.Server.Serve shutdown err=%v", err)
			return err
		}
		logs.Infof("admin.Server.Serve stopped addr=%q", s.cfg.Addr)
		return nil
	}
}
