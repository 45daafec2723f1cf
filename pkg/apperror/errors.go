// Package apperror 定义了业务层统一使用的错误类型。
//
// 服务层返回带 Code 的 *Error，处理器通过 HTTPStatus 映射为响应状态码：
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
//
//	var appErr *apperror.Error
//	if errors.As(err, &appErr) {
//	    response.Fail(c, appErr.HTTPStatus(), appErr.Message)
//	}
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 是机器可读的错误码
type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeNotFound     Code = "NOT_FOUND"
	CodeForbidden    Code = "FORBIDDEN"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeConflict     Code = "CONFLICT"
	CodeExternal     Code = "EXTERNAL"
	CodeInternal     Code = "INTERNAL"
)

// HTTPStatus 返回错误码对应的 HTTP 状态码
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	case CodeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error 是带错误码的业务错误
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is 只比较错误码，便于与哨兵错误做 errors.Is 判断
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails 返回附带详情的新错误
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause 返回包装了底层错误的新错误
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// 哨兵错误，用于 errors.Is
var (
	ErrValidation   = &Error{Code: CodeValidation, Message: "参数校验失败"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "资源不存在"}
	ErrForbidden    = &Error{Code: CodeForbidden, Message: "无权操作"}
	ErrUnauthorized = &Error{Code: CodeUnauthorized, Message: "未登录"}
	ErrConflict     = &Error{Code: CodeConflict, Message: "资源冲突"}
	ErrExternal     = &Error{Code: CodeExternal, Message: "外部服务异常"}
	ErrInternal     = &Error{Code: CodeInternal, Message: "服务器内部错误"}
)

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// External 表示对象存储、视觉模型等外部依赖失败
func External(msg string, cause error) *Error {
	return &Error{Code: CodeExternal, Message: msg, cause: cause}
}

func Internal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: cause}
}

// CodeOf 提取错误码，非 *Error 一律视为内部错误
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
