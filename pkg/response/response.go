package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/pkg/apperror"
)

// Response 是所有接口统一的返回结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success 以 200 返回成功数据
func Success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: message, Data: data})
}

// SuccessWithStatus 以指定状态码返回数据，用于 201 / 207 等场景
func SuccessWithStatus(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{Code: status, Message: message, Data: data})
}

// Fail 返回失败响应
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Code: code, Message: message})
}

// FailWithError 根据业务错误类型选择状态码，未知错误记录日志后按 500 返回
func FailWithError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		if appErr.Code == apperror.CodeInternal || appErr.Code == apperror.CodeExternal {
			log.Printf("[接口错误] %s %s: %v", c.Request.Method, c.FullPath(), err)
		}
		c.JSON(appErr.HTTPStatus(), Response{Code: appErr.HTTPStatus(), Message: appErr.Message, Data: appErr.Details})
		return
	}
	log.Printf("[接口错误] %s %s: %v", c.Request.Method, c.FullPath(), err)
	Fail(c, http.StatusInternalServerError, "服务器内部错误")
}
