package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/internal/application"
	"github.com/oksasatya/go-water-tracker/pkg/helpers"
	"github.com/oksasatya/go-water-tracker/pkg/response"
)

type AuthHandler struct {
	Svc     *application.Service
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type newPasswordRequest struct {
	Password string `json:"password" binding:"required,pwd"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), req.Email, req.Password, requestMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, userView(u), "registration successful, check your email", nil)
}

// Verify GET /api/auth/verify/:verificationToken
func (h *AuthHandler) Verify(c *gin.Context) {
	if err := h.Svc.Verify(c.Request.Context(), c.Param("verificationToken")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verified": true}, "verification successful", nil)
}

// ResendVerification POST /api/auth/verify {email}
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Svc.ResendVerification(c.Request.Context(), req.Email, requestMeta(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": true}, "verification email sent", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password, requestMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"user":          userView(u),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	}, "login successful", map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry})
}

// Refresh POST /api/auth/refresh. The refresh cookie wins over the body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, _ := c.Cookie(helpers.RefreshCookie)
	if refresh == "" {
		var req refreshRequest
		_ = c.ShouldBindJSON(&req)
		refresh = req.RefreshToken
	}
	if refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, _, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	}, "token refreshed", map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry})
}

// RecoverPassword POST /api/auth/recover-password {email}
func (h *AuthHandler) RecoverPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email, requestMeta(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": true}, "if the email exists, a recovery link was sent", nil)
}

// ResetPassword POST /api/auth/recover-password/:passwordRecoveryToken {password}
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req newPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), c.Param("passwordRecoveryToken"), req.Password); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), c.GetString("userID")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}
