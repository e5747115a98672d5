package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/cakeshop/internal/auth"
	"github.com/d60-Lab/cakeshop/pkg/response"
)

type sendOTPRequest struct {
	Mobile string `json:"mobile" binding:"required"`
}

type loginRequest struct {
	Mobile string `json:"mobile" binding:"required"`
	OTP    string `json:"otp" binding:"required,len=6,numeric"`
}

// SendOTP 向白名单手机号发送登录验证码
// @Summary 发送管理员 OTP
// @Tags 管理员
// @Accept json
// @Produce json
// @Param request body sendOTPRequest true "手机号"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/admin/send-otp [post]
func (h *Handler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if err := h.admin.SendOTP(c.Request.Context(), req.Mobile); err != nil {
		if errors.Is(err, auth.ErrNotAllowed) {
			response.Forbidden(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}

// Login OTP 登录
// @Summary 管理员登录
// @Tags 管理员
// @Accept json
// @Produce json
// @Param request body loginRequest true "手机号与 OTP"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/admin/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	token, expires, err := h.admin.Login(c.Request.Context(), req.Mobile, req.OTP)
	switch {
	case errors.Is(err, auth.ErrNotAllowed), errors.Is(err, auth.ErrInvalidOTP):
		response.Unauthorized(c, err.Error())
		return
	case err != nil:
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "expiresAt": expires})
}
