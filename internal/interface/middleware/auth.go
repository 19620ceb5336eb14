package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/repository"
	"github.com/oksasatya/go-water-tracker/pkg/helpers"
	"github.com/oksasatya/go-water-tracker/pkg/response"
)

const CtxUserIDKey = "userID"

// tokenFromRequest prefers "Authorization: Bearer" and falls back to the
// access_token cookie.
func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	tok, _ := c.Cookie(helpers.AccessCookie)
	return tok
}

// Auth validates the access token and ensures the session it was issued for
// is still the active one. It sets userID, userName and userEmail in the Gin
// context on success.
func Auth(sessions repository.SessionStore, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}

		sess, err := sessions.Get(c.Request.Context(), claims.UserID)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			response.Abort(c, http.StatusUnauthorized, "session not found", nil)
			return
		case err != nil:
			_ = c.Error(err)
			response.Abort(c, http.StatusInternalServerError, "internal server error", nil)
			return
		case sess.SessionID != claims.SessionID:
			response.Abort(c, http.StatusUnauthorized, "session not found", nil)
			return
		}

		c.Set(CtxUserIDKey, sess.UserID)
		c.Set("userName", sess.Name)
		c.Set("userEmail", sess.Email)
		c.Next()
	}
}
