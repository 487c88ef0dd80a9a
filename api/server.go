package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/tunshare/api/controllers"
	"github.com/moyoez/tunshare/api/middlewares"
	"github.com/moyoez/tunshare/api/notifyhub"
	"github.com/moyoez/tunshare/archive"
	"github.com/moyoez/tunshare/metrics"
	"github.com/moyoez/tunshare/tool"
	"github.com/moyoez/tunshare/types"
)

// ServerOptions configures the browse interface.
type ServerOptions struct {
	Port           int
	Root           string
	Archiver       *archive.Archiver
	Sharer         controllers.Sharer
	Hub            *notifyhub.Hub // nil disables /_/events
	LocalOnly      bool
	ArchiveTimeout time.Duration
}

// Server is the browse interface: directory listings, file pages and share requests.
type Server struct {
	opts   ServerOptions
	engine *gin.Engine
	server *http.Server
	closed bool
	mu     sync.Mutex
}

// NewServer creates a browse server. Nothing is bound until Start.
func NewServer(opts ServerOptions) *Server {
	return &Server{opts: opts}
}

func setGinMode() {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	setGinMode()
	engine := gin.Default()
	if err := engine.SetTrustedProxies(nil); err != nil {
		tool.DefaultLogger.Warnf("Failed to reset trusted proxies: %v", err)
	}
	engine.SetHTMLTemplate(loadTemplates())
	engine.Use(middlewares.RecordMetrics)
	if s.opts.LocalOnly {
		engine.Use(middlewares.OnlyAllowLocal)
	}

	browseCtrl := controllers.NewBrowseController(s.opts.Root, s.opts.Archiver, s.opts.Sharer, s.opts.ArchiveTimeout)

	// helper routes live under /_/ so they never shadow a browsed path
	helpers := engine.Group("/_")
	{
		helpers.GET("/qrcode", controllers.GenerateQRCode)
		helpers.GET("/status", browseCtrl.HandleStatus)
		helpers.GET("/metrics", gin.WrapH(metrics.Handler()))
		if s.opts.Hub != nil {
			helpers.GET("/events", notifyhub.HandleNotifyWS(s.opts.Hub))
		}
	}

	// GET and POST of every other path are browse and share requests
	engine.NoRoute(browseCtrl.Handle)
	return engine
}

// Handler returns the routed engine, building it on first use.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		s.engine = s.setupRoutes()
	}
	return s.engine
}

// Start binds the interface port and serves until Shutdown.
func (s *Server) Start() error {
	handler := s.Handler()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.opts.Port))
	if err != nil {
		return fmt.Errorf("%w: interface port %d: %w", types.ErrPortBind, s.opts.Port, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting browse interface on http://0.0.0.0:%d, serving %s", s.opts.Port, s.opts.Root)
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting browse requests and waits for in-flight ones.
// A Start that has not begun serving yet returns without serving.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	server := s.server
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
