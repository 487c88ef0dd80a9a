package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/moyoez/tunshare/tool"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
	maxQRData     = 1024
	qrCacheTTL    = 10 * time.Minute
)

// keyed by "<size>|<link>"; share pages re-request the same link on every render
var qrCache = ttlworker.NewCache[string, []byte](qrCacheTTL)

// GenerateQRCode renders a share link as a PNG QR code.
// GET /_/qrcode?size=200x200&data=<url-encoded link>
func GenerateQRCode(c *gin.Context) {
	link := c.Query("data")
	if link == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: data"))
		return
	}
	if !isShareLink(link) {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("data must be an http(s) link"))
		return
	}

	size := min(parseSize(c.Query("size")), maxQRSize)
	if size <= 0 {
		size = defaultQRSize
	}

	key := strconv.Itoa(size) + "|" + link
	png := qrCache.Get(key)
	if png == nil {
		var err error
		png, err = qrcode.Encode(link, qrcode.Medium, size)
		if err != nil {
			tool.DefaultLogger.Errorf("[Browse] Failed to encode QR code: %v", err)
			c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code"))
			return
		}
		qrCache.Set(key, png)
	}
	c.Header("Cache-Control", "private, max-age=600")
	c.Data(http.StatusOK, "image/png", png)
}

func isShareLink(link string) bool {
	if len(link) > maxQRData {
		return false
	}
	u, err := url.Parse(link)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// parseSize accepts "200" or "200x200".
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if w, _, ok := strings.Cut(s, "x"); ok {
		s = strings.TrimSpace(w)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
