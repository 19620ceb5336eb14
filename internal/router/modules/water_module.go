package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-water-tracker/internal/container"
	handlers "github.com/oksasatya/go-water-tracker/internal/interface/http"
	"github.com/oksasatya/go-water-tracker/internal/interface/middleware"
)

// WaterModule wires intake entries, the daily view, the monthly report and
// the goal endpoint.
type WaterModule struct {
	Handler *handlers.WaterHandler
	Auth    gin.HandlerFunc
}

func NewWaterModule(h *handlers.WaterHandler, auth gin.HandlerFunc) *WaterModule {
	return &WaterModule{Handler: h, Auth: auth}
}

func (m *WaterModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(m.Auth, middleware.RateLimit(container.GetRedis(), 240, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/water", m.Handler.Add)
		auth.PUT("/water/:intakeId", m.Handler.Update)
		auth.DELETE("/water/:intakeId", m.Handler.Remove)
		auth.GET("/today", m.Handler.Today)
		auth.GET("/month", m.Handler.Month)
		auth.PATCH("/waterrate", m.Handler.WaterRate)
	}
}
