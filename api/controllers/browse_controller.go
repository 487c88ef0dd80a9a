package controllers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/tunshare/archive"
	"github.com/moyoez/tunshare/share"
	"github.com/moyoez/tunshare/tool"
	"github.com/moyoez/tunshare/types"
)

// Sharer is the session coordinator as seen by the browse interface.
type Sharer interface {
	StartSession(ctx context.Context, artifact *archive.Artifact) (*share.Result, error)
	Status() types.SessionStatus
}

// BrowseController serves listings of root and turns POSTs into shares.
type BrowseController struct {
	root           string
	rootName       string
	archiver       *archive.Archiver
	sharer         Sharer
	archiveTimeout time.Duration
}

// NewBrowseController returns a controller serving root.
func NewBrowseController(root string, archiver *archive.Archiver, sharer Sharer, archiveTimeout time.Duration) *BrowseController {
	return &BrowseController{
		root:           root,
		rootName:       filepath.Base(root),
		archiver:       archiver,
		sharer:         sharer,
		archiveTimeout: archiveTimeout,
	}
}

// Handle dispatches every path not claimed by a fixed route.
// GET /{path} renders, POST /{path} shares; anything else is not found.
func (b *BrowseController) Handle(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead:
		b.HandleBrowse(c)
	case http.MethodPost:
		b.HandleShare(c)
	default:
		b.notFound(c)
	}
}

// HandleBrowse renders a directory listing or a file page.
func (b *BrowseController) HandleBrowse(c *gin.Context) {
	resolved, err := tool.Resolve(b.root, c.Request.URL.Path)
	if err != nil {
		tool.DefaultLogger.Debugf("[Browse] %s: %v", c.Request.URL.Path, err)
		b.notFound(c)
		return
	}
	c.HTML(http.StatusOK, templateFor(resolved.Kind), pageData(b.title(resolved), resolved))
}

// HandleShare archives (or reads) the target, hands it to the coordinator and waits for the link.
func (b *BrowseController) HandleShare(c *gin.Context) {
	resolved, err := tool.Resolve(b.root, c.Request.URL.Path)
	if err != nil {
		tool.DefaultLogger.Debugf("[Browse] share %s: %v", c.Request.URL.Path, err)
		b.notFound(c)
		return
	}
	request := tool.ShareRequestFor(resolved)
	data := pageData(b.title(resolved), resolved)
	page := templateFor(resolved.Kind)

	artifact, err := b.buildArtifact(c.Request.Context(), request)
	if err != nil {
		tool.DefaultLogger.Errorf("[Browse] Failed to prepare %s for sharing: %v", b.title(resolved), err)
		data["Error"] = "Could not prepare " + b.title(resolved) + " for sharing."
		c.HTML(http.StatusInternalServerError, page, data)
		return
	}

	result, err := b.sharer.StartSession(c.Request.Context(), artifact)
	if err != nil {
		tool.DefaultLogger.Errorf("[Browse] Failed to share %s: %v", artifact.Name, err)
		if errors.Is(err, types.ErrPortBind) {
			data["Error"] = "Could not start the download server, is the serve port already in use?"
		} else {
			data["Error"] = "Could not start sharing " + artifact.Name + "."
		}
		c.HTML(http.StatusInternalServerError, page, data)
		return
	}

	c.HTML(http.StatusOK, page, withResult(data, result))
}

// buildArtifact zips directories and reads files, bounded by archiveTimeout.
func (b *BrowseController) buildArtifact(ctx context.Context, request types.ShareRequest) (*archive.Artifact, error) {
	if b.archiveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.archiveTimeout)
		defer cancel()
	}
	if request.Kind == types.KindDirectory {
		return b.archiver.Archive(ctx, request.AbsPath)
	}
	return b.archiver.FromFile(ctx, request.AbsPath)
}

// HandleStatus returns the session slot snapshot.
// GET /_/status
func (b *BrowseController) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(b.sharer.Status()))
}

func (b *BrowseController) title(resolved *types.Resolved) string {
	if resolved.Relative == "" {
		return b.rootName
	}
	return filepath.Base(resolved.AbsPath)
}

func (b *BrowseController) notFound(c *gin.Context) {
	data := pageData("Not found", nil)
	data["Live"] = false
	c.HTML(http.StatusNotFound, TemplateNotFound, data)
}
