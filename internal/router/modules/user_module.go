package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-water-tracker/internal/container"
	handlers "github.com/oksasatya/go-water-tracker/internal/interface/http"
	"github.com/oksasatya/go-water-tracker/internal/interface/middleware"
)

// UserModule wires profile, avatar, account deletion and search routes.
// Every route requires a valid access token.
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    gin.HandlerFunc
}

func NewUserModule(h *handlers.UserHandler, auth gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, Auth: auth}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	auth := rg.Group("/")
	auth.Use(m.Auth)
	auth.Use(
		middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/user/current", m.Handler.Current)
		auth.PATCH("/user", m.Handler.Update)
		auth.PATCH("/user/avatars", middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByUserID(), nil), m.Handler.UploadAvatar)
		auth.POST("/user/validate", middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByUserID(), nil), m.Handler.ValidatePassword)
		auth.DELETE("/user", m.Handler.Delete)
		auth.GET("/users/search", m.Handler.Search)
	}
}
