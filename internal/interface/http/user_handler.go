package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/internal/application"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/pkg/response"
)

const defaultAvatarMaxBytes = 5 << 20

type UserHandler struct {
	Svc            *application.Service
	Logger         *logrus.Logger
	AvatarMaxBytes int64
}

func NewUserHandler(svc *application.Service, logger *logrus.Logger, avatarMaxBytes int64) *UserHandler {
	if avatarMaxBytes <= 0 {
		avatarMaxBytes = defaultAvatarMaxBytes
	}
	return &UserHandler{Svc: svc, Logger: logger, AvatarMaxBytes: avatarMaxBytes}
}

func userView(u *entity.User) gin.H {
	return gin.H{
		"id":               u.ID,
		"email":            u.Email,
		"name":             u.Name,
		"gender":           u.Gender,
		"daily_water_goal": u.DailyWaterGoal,
		"avatar_url":       u.AvatarURL,
		"is_verified":      u.IsVerified,
		"created_at":       u.CreatedAt,
		"updated_at":       u.UpdatedAt,
	}
}

type updateUserRequest struct {
	BasicInfo struct {
		Name   *string `json:"name" binding:"omitempty,min=1,max=32"`
		Gender *string `json:"gender" binding:"omitempty,gender"`
		Email  *string `json:"email" binding:"omitempty,email"`
	} `json:"basic_info"`
	SecurityCredentials struct {
		OldPassword string `json:"old_password" binding:"required_with=NewPassword"`
		NewPassword string `json:"new_password" binding:"omitempty,pwd,nefield=OldPassword"`
	} `json:"security_credentials"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

// Current GET /api/user/current
func (h *UserHandler) Current(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "profile", nil)
}

// Update PATCH /api/user
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	in := application.UpdateProfileInput{
		Name:        req.BasicInfo.Name,
		Gender:      req.BasicInfo.Gender,
		Email:       req.BasicInfo.Email,
		OldPassword: req.SecurityCredentials.OldPassword,
		NewPassword: req.SecurityCredentials.NewPassword,
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), c.GetString("userID"), in, requestMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "profile updated", nil)
}

// UploadAvatar PATCH /api/user/avatars (multipart field "avatar")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.AvatarMaxBytes+1<<20)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	if fh.Size > h.AvatarMaxBytes {
		response.Error[any](c, http.StatusBadRequest, "avatar is too large", gin.H{"max_bytes": h.AvatarMaxBytes})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error[any](c, http.StatusBadRequest, "avatar must be an image", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "cannot read avatar", nil)
		return
	}
	defer func() { _ = f.Close() }()

	u, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString("userID"), f, fh.Filename, contentType)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": u.AvatarURL}, "avatar updated", nil)
}

// ValidatePassword POST /api/user/validate
func (h *UserHandler) ValidatePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ok, err := h.Svc.ValidatePassword(c.Request.Context(), c.GetString("userID"), req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"is_password_verified": ok}, "password checked", nil)
}

// Delete DELETE /api/user
func (h *UserHandler) Delete(c *gin.Context) {
	res, err := h.Svc.DeleteAccount(c.Request.Context(), c.GetString("userID"), requestMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, res, "account deleted", nil)
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	out, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, out, "users", map[string]any{"count": len(out)})
}
