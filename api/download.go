package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/tunshare/api/controllers"
	"github.com/moyoez/tunshare/archive"
	"github.com/moyoez/tunshare/tool"
	"github.com/moyoez/tunshare/types"
)

// DownloadServer serves a single artifact on the share port. It is never reused:
// a new share gets a new server.
type DownloadServer struct {
	port     int
	server   *http.Server
	closeOne sync.Once
	closeErr error
	done     chan struct{}
}

func downloadRoutes(artifact *archive.Artifact, publicURL string) *gin.Engine {
	setGinMode()
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(loadTemplates())

	ctrl := controllers.NewDownloadController(artifact, publicURL)
	engine.GET("/", ctrl.HandleLanding)
	engine.GET("/download", ctrl.HandleDownload)
	engine.HEAD("/download", ctrl.HandleDownload)
	engine.NoRoute(ctrl.HandleNotFound)
	return engine
}

// StartDownloadServer binds port and serves artifact in the background.
// A bind failure is returned as types.ErrPortBind before anything is served.
func StartDownloadServer(port int, artifact *archive.Artifact, publicURL string) (*DownloadServer, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("%w: port %d: %w", types.ErrPortBind, port, err)
	}

	d := &DownloadServer{
		port: listener.Addr().(*net.TCPAddr).Port,
		server: &http.Server{
			Handler:           downloadRoutes(artifact, publicURL),
			ReadHeaderTimeout: 10 * time.Second,
		},
		done: make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		if err := d.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			tool.DefaultLogger.Errorf("[Download] Server on port %d stopped: %v", d.port, err)
		}
	}()

	tool.DefaultLogger.Infof("[Download] Serving %s on http://0.0.0.0:%d", artifact.Name, d.port)
	if publicURL != "" {
		tool.DefaultLogger.Infof("[Download] Download link: %s", tool.DownloadLink(publicURL))
	}
	return d, nil
}

// Port is the bound port.
func (d *DownloadServer) Port() int {
	return d.port
}

// Close closes the listener and every connection, then waits for the serve loop to return.
func (d *DownloadServer) Close() error {
	d.closeOne.Do(func() {
		d.closeErr = d.server.Close()
		<-d.done
	})
	return d.closeErr
}
