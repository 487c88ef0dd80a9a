package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/tunshare/archive"
	"github.com/moyoez/tunshare/metrics"
	"github.com/moyoez/tunshare/tool"
	"github.com/moyoez/tunshare/types"
)

// DownloadController serves the one artifact of a download server.
type DownloadController struct {
	artifact  *archive.Artifact
	publicURL string
}

// NewDownloadController returns a controller for artifact. publicURL may be empty.
func NewDownloadController(artifact *archive.Artifact, publicURL string) *DownloadController {
	return &DownloadController{artifact: artifact, publicURL: publicURL}
}

// HandleLanding renders the artifact name, size and download button.
// GET /
func (d *DownloadController) HandleLanding(c *gin.Context) {
	data := pageData(d.artifact.Name, nil)
	data["Live"] = false
	data["Download"] = true
	data["DownloadURL"] = tool.DownloadLink(d.publicURL)
	data["File"] = &types.FileMeta{Name: d.artifact.Name, Size: d.artifact.Size}
	c.HTML(http.StatusOK, TemplateFile, data)
}

// HandleDownload streams the artifact as an attachment.
// GET /download
func (d *DownloadController) HandleDownload(c *gin.Context) {
	reader, err := d.artifact.Open()
	if err != nil {
		if errors.Is(err, archive.ErrReleased) {
			c.JSON(http.StatusGone, tool.FastReturnError("Share has ended"))
			return
		}
		tool.DefaultLogger.Errorf("[Download] Failed to open %s: %v", d.artifact.Name, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to read file"))
		return
	}

	c.Header("Content-Disposition", ContentDisposition(d.artifact.Name))
	c.Header("Content-Type", tool.ContentTypeFor(d.artifact.Name))

	tool.DefaultLogger.Infof("[Download] Serving %s (%s) to %s", d.artifact.Name, tool.HumanSize(d.artifact.Size), c.ClientIP())
	counter := &countingWriter{ResponseWriter: c.Writer}
	http.ServeContent(counter, c.Request, d.artifact.Name, time.Time{}, reader)
	metrics.RecordDownload(counter.n)
}

// HandleNotFound answers every other path of the download server.
func (d *DownloadController) HandleNotFound(c *gin.Context) {
	data := pageData("Not found", nil)
	data["Live"] = false
	c.HTML(http.StatusNotFound, TemplateNotFound, data)
}

// ContentDisposition builds an attachment header for name.
func ContentDisposition(name string) string {
	name = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "").Replace(name)
	return `attachment; filename="` + name + `"`
}

type countingWriter struct {
	gin.ResponseWriter
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.n += int64(n)
	return n, err
}
