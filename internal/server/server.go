package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/guarzo/pkmpricedash/internal/dashboard"
	"github.com/guarzo/pkmpricedash/internal/logging"
	"github.com/guarzo/pkmpricedash/internal/prices"
	"github.com/guarzo/pkmpricedash/internal/proxy"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const requestIDHeader = "X-Request-ID"

// ProviderFunc builds the acquisition provider once the listener is up.
// localAPI is the base URL of this server's own /api proxy.
type ProviderFunc func(localAPI string) prices.Provider

type Options struct {
	Address  string
	Provider ProviderFunc
	// Proxy is optional; nil serves no /api routes.
	Proxy *proxy.Proxy
	// RefreshSchedule is a cron expression; empty mounts the view once.
	RefreshSchedule string
}

// Server serves the dashboard page, its JSON form, and the /api proxy.
type Server struct {
	opts     Options
	log      *logging.Log
	router   *gin.Engine
	provider atomic.Pointer[prices.Provider]
	view     atomic.Pointer[dashboard.View]
	schedule cron.Schedule
}

func New(opts Options, log *logging.Log) (*Server, error) {
	if opts.Provider == nil {
		return nil, errors.New("server: a provider is required")
	}
	if log == nil {
		log = logging.Discard()
	}

	s := &Server{opts: opts, log: log}
	if opts.RefreshSchedule != "" {
		sched, err := cron.ParseStandard(opts.RefreshSchedule)
		if err != nil {
			return nil, fmt.Errorf("parse refresh schedule %q: %w", opts.RefreshSchedule, err)
		}
		s.schedule = sched
	}

	router, err := s.buildRouter()
	if err != nil {
		return nil, err
	}
	s.router = router
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// View returns the currently mounted view, or nil before the first Mount.
func (s *Server) View() *dashboard.View {
	return s.view.Load()
}

// Mount creates a fresh view and starts its single acquisition in the
// background. The page shows the loading state until it concludes.
func (s *Server) Mount(ctx context.Context, provider prices.Provider) *dashboard.View {
	s.provider.Store(&provider)
	v := dashboard.NewView(provider, s.log)
	if old := s.view.Swap(v); old != nil {
		old.Close()
	}
	go v.Load(ctx)
	return v
}

// Refresh mounts a new view, loads it, and only then swaps it in so the
// page never drops back to the loading state. A failed acquisition leaves
// the current view in place.
func (s *Server) Refresh(ctx context.Context) {
	p := s.provider.Load()
	if p == nil {
		return
	}
	log := s.log.WithComponent("refresh")

	v := dashboard.NewView(*p, s.log)
	v.Load(ctx)
	if err := v.Err(); err != nil {
		v.Close()
		log.WithError(err).Warn("refresh failed, keeping current view")
		return
	}

	if old := s.view.Swap(v); old != nil {
		old.Close()
	}
	log.WithFields(logging.Fields{"records": len(v.Records())}).Info("view remounted")
}

// Run listens, mounts the view, and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Address, err)
	}

	localAPI := "http://" + ln.Addr().String() + proxy.DefaultPrefix
	if s.opts.Proxy != nil {
		localAPI = "http://" + ln.Addr().String() + s.opts.Proxy.Prefix()
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.Mount(ctx, s.opts.Provider(localAPI))
	s.log.WithComponent("server").WithFields(logging.Fields{"address": ln.Addr().String()}).Info("dashboard listening")

	if s.schedule != nil {
		c := cron.New()
		c.Schedule(s.schedule, cron.FuncJob(func() { s.Refresh(ctx) }))
		c.Start()
		defer c.Stop()
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if v := s.view.Load(); v != nil {
			v.Close()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	tmpl, err := template.New("dashboard").ParseFS(templatesFS, "templates/index.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.tmpl", s.render(c))
	})

	router.GET("/dashboard.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.render(c))
	})

	router.GET("/healthz", func(c *gin.Context) {
		loading := true
		if v := s.view.Load(); v != nil {
			loading = v.Loading()
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "loading": loading})
	})

	if s.opts.Proxy != nil {
		h := gin.WrapH(s.opts.Proxy)
		router.Any(s.opts.Proxy.Prefix()+"/*path", h)
	}

	return router, nil
}

func (s *Server) render(c *gin.Context) dashboard.Page {
	state := dashboard.State{
		Search: c.Query("search"),
		Rarity: c.Query("rarity"),
	}
	if state.Rarity == "" {
		state.Rarity = dashboard.AllRarities
	}
	v := s.view.Load()
	if v == nil {
		return dashboard.BuildPage(nil, true, state)
	}
	return v.Render(state)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	entry := s.log.WithComponent("http")
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		entry.WithFields(logging.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		}).Debug("request")
	}
}
