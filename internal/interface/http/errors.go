package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/internal/application"
	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/pkg/response"
	"github.com/oksasatya/go-water-tracker/pkg/validation"
)

// statusFor maps an application error to its HTTP status and client message.
// Store and foreign errors never leak their cause.
func statusFor(err error) (int, string) {
	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return http.StatusBadRequest, apperror.Message(err, "invalid request")
	case apperror.KindNotFound:
		return http.StatusNotFound, apperror.Message(err, "not found")
	case apperror.KindConflict:
		return http.StatusConflict, apperror.Message(err, "conflict")
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized, apperror.Message(err, "unauthorized")
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	response.Error[any](c, status, msg, nil)
}

func bindError(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func requestMeta(c *gin.Context) application.RequestMeta {
	return application.RequestMeta{IP: clientIP(c), UserAgent: c.GetHeader("User-Agent")}
}
