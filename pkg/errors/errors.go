// Package errors 带错误码的错误类型
//
// 轮询各阶段的失败按错误码分类 (TRANSPORT_ERROR, DECODE_ERROR, ...)，
// 日志、指标与 HTTP 响应都使用同一错误码。
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error 带错误码的错误
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Cause      error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage 返回替换消息后的副本，原错误码不变
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	return &c
}

// WithMessagef 格式化替换错误消息
func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// New 定义错误码
func New(code, message string, httpStatus int) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap 包装底层错误
func Wrap(err *Error, cause error) *Error {
	c := *err
	c.Cause = cause
	return &c
}

// Wrapf 在消息后追加上下文
func Wrapf(err *Error, format string, args ...interface{}) *Error {
	c := *err
	c.Message = err.Message + ": " + fmt.Sprintf(format, args...)
	return &c
}

// WrapWithCause 包装底层错误并追加上下文
func WrapWithCause(err *Error, cause error, format string, args ...interface{}) *Error {
	c := Wrapf(err, format, args...)
	c.Cause = cause
	return c
}

// 错误码
var (
	ErrInternal    = New("INTERNAL_ERROR", "内部错误", http.StatusInternalServerError)
	ErrNotFound    = New("NOT_FOUND", "资源不存在", http.StatusNotFound)
	ErrInvalidArgs = New("INVALID_REQUEST", "请求参数无效", http.StatusBadRequest)

	// ErrTransport RPC 调用失败或超时
	ErrTransport = New("TRANSPORT_ERROR", "链上调用失败", http.StatusBadGateway)
	// ErrDecode 链上返回或持久化内容无法解析
	ErrDecode = New("DECODE_ERROR", "数据解析失败", http.StatusInternalServerError)
	// ErrArithmetic 质押统计计算失败 (除零等)
	ErrArithmetic = New("ARITHMETIC_ERROR", "数值计算失败", http.StatusInternalServerError)
	// ErrPersistence 快照写入失败
	ErrPersistence = New("PERSISTENCE_ERROR", "快照持久化失败", http.StatusInternalServerError)
)

// FromError 转换为 *Error，未分类的错误归为 ErrInternal
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	return Wrap(ErrInternal, err)
}

// Is 判断错误链中是否包含 target 错误码
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	return errors.Is(err, target)
}

// GetCode 获取错误码，未分类错误返回 UNKNOWN
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return "UNKNOWN"
}

// ToHTTPStatus 获取 HTTP 状态码
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var coded *Error
	if errors.As(err, &coded) && coded.HTTPStatus != 0 {
		return coded.HTTPStatus
	}
	return http.StatusInternalServerError
}
