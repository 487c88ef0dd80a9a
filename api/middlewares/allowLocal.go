package middlewares

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/tunshare/tool"
)

// OnlyAllowLocal rejects clients that are not on loopback. Used when the browse interface is restricted to this machine.
func OnlyAllowLocal(c *gin.Context) {
	ip := net.ParseIP(c.ClientIP())
	if ip != nil && ip.IsLoopback() {
		c.Next()
		return
	}
	tool.DefaultLogger.Debugf("[Browse] Rejected non-local client %s", c.ClientIP())
	c.AbortWithStatusJSON(http.StatusForbidden, tool.FastReturnError("Forbidden"))
}
