package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func write(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Code: status, Message: message, Data: data})
}

// Success 200
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, "success", data)
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, "created", data)
}

func BadRequest(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, message, nil)
}

// ValidationFailed 400，附带字段级错误
func ValidationFailed(c *gin.Context, message string, fields map[string]string) {
	write(c, http.StatusBadRequest, message, gin.H{"fields": fields})
}

func Unauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, message, nil)
}

func Forbidden(c *gin.Context, message string) {
	write(c, http.StatusForbidden, message, nil)
}

// NotFound 404；data 可携带排查信息
func NotFound(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusNotFound, message, data)
}

func TooManyRequests(c *gin.Context, message string) {
	write(c, http.StatusTooManyRequests, message, nil)
}

// ServiceUnavailable 503，可重试
func ServiceUnavailable(c *gin.Context, err error) {
	write(c, http.StatusServiceUnavailable, err.Error(), nil)
}

// InternalError 500
func InternalError(c *gin.Context, err error) {
	_ = c.Error(err)
	write(c, http.StatusInternalServerError, err.Error(), nil)
}
