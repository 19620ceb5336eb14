package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-water-tracker/internal/container"
	"github.com/oksasatya/go-water-tracker/internal/interface/middleware"
)

type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

// Register exposes expvar to private-network clients only. Loopback callers
// skip the rate limit.
func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", middleware.RequirePrivateIP(), rl, gin.WrapH(expvar.Handler()))
}
