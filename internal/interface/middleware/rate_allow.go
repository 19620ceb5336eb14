package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP bypasses limits for loopback and private-range clients.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		ip := net.ParseIP(ipFromCtx(c))
		return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
	}
}

// RequirePrivateIP rejects requests from public addresses with 404.
func RequirePrivateIP() gin.HandlerFunc {
	allow := AllowPrivateIP()
	return func(c *gin.Context) {
		if !allow(c) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Next()
	}
}
