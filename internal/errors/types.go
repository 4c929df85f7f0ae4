package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind 错误类别标签，按类别分发而不是按运行时类型判断
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindExternalService Kind = "external_service"
	KindInternal        Kind = "internal"
)

// AppError 应用错误结构体
type AppError struct {
	Kind     Kind   `json:"kind"`
	Message  string `json:"message"`
	HTTPCode int    `json:"-"`
	Provider string `json:"provider,omitempty"`
	Cause    error  `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	switch {
	case e.Provider != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	default:
		return e.Message
	}
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:     KindValidation,
		Message:  message,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewNotFoundError 创建资源未找到错误
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Kind:     KindNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		HTTPCode: http.StatusNotFound,
	}
}

// NewExternalServiceError 创建外部服务错误，provider标识出错的服务提供方
func NewExternalServiceError(provider, message string) *AppError {
	return &AppError{
		Kind:     KindExternalService,
		Message:  message,
		Provider: provider,
		HTTPCode: http.StatusBadGateway,
	}
}

// NewInternalError 创建系统内部错误
func NewInternalError(message string) *AppError {
	return &AppError{
		Kind:     KindInternal,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// KindOf 返回错误的类别；非AppError一律视为internal
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPCodeOf 根据错误类别返回HTTP状态码
func HTTPCodeOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.HTTPCode != 0 {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}

// AsAppError 获取AppError，如果不是则包装为内部错误
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("internal server error").WithCause(err)
}
