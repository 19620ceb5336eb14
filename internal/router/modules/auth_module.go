package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-water-tracker/internal/container"
	handlers "github.com/oksasatya/go-water-tracker/internal/interface/http"
	"github.com/oksasatya/go-water-tracker/internal/interface/middleware"
)

// AuthModule wires registration, verification, sessions and password
// recovery under /api/auth.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    gin.HandlerFunc
}

func NewAuthModule(h *handlers.AuthHandler, auth gin.HandlerFunc) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	signupLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)   // 10 req/min per IP
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil) // 60 req/min per IP
	recoverLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	tokenLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	g := rg.Group("/auth")
	g.POST("/register", signupLimiter, m.Handler.Register)
	g.GET("/verify/:verificationToken", tokenLimiter, m.Handler.Verify)
	g.POST("/verify", recoverLimiter, m.Handler.ResendVerification)
	g.POST("/login", loginLimiter, m.Handler.Login)
	g.POST("/refresh", refreshLimiter, m.Handler.Refresh)
	g.POST("/recover-password", recoverLimiter, m.Handler.RecoverPassword)
	g.POST("/recover-password/:passwordRecoveryToken", tokenLimiter, m.Handler.ResetPassword)

	g.POST("/logout", m.Auth, m.Handler.Logout)
}
