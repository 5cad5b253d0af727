package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown        ErrorCode = 1000
	ErrInvalidParam   ErrorCode = 1001
	ErrNotFound       ErrorCode = 1002
	ErrTimeout        ErrorCode = 1005
	ErrCanceled       ErrorCode = 1006
	ErrNotImplemented ErrorCode = 1007

	// 转动错误 (2000-2999)
	ErrInsufficientBalance ErrorCode = 2000
	ErrInvalidBet          ErrorCode = 2001
	ErrSpinInProgress      ErrorCode = 2002
	ErrFeatureTransition   ErrorCode = 2003
	ErrInFreeSpins         ErrorCode = 2004
	ErrNotInFreeSpins      ErrorCode = 2005
	ErrAutoplayNotAllowed  ErrorCode = 2006
	ErrInvalidState        ErrorCode = 2007

	// 结果服务错误 (3000-3999)
	ErrOutcomeFetch   ErrorCode = 3000
	ErrOutcomeTimeout ErrorCode = 3001
	ErrInvalidOutcome ErrorCode = 3002

	// 表现层错误 (4000-4999)
	ErrMissingTexture ErrorCode = 4000
	ErrCueFailed      ErrorCode = 4001
	ErrCuePanic       ErrorCode = 4002

	// 配置错误 (6000-6999)
	ErrConfigLoad       ErrorCode = 6000
	ErrConfigParse      ErrorCode = 6001
	ErrConfigValidate   ErrorCode = 6002
	ErrConfigMissing    ErrorCode = 6003
	ErrMissingReelStrip ErrorCode = 6004
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	ErrUnknown:        "未知错误",
	ErrInvalidParam:   "无效的参数",
	ErrNotFound:       "资源未找到",
	ErrTimeout:        "操作超时",
	ErrCanceled:       "操作已取消",
	ErrNotImplemented: "功能未实现",

	ErrInsufficientBalance: "余额不足",
	ErrInvalidBet:          "无效的投注金额",
	ErrSpinInProgress:      "转轮正在进行中",
	ErrFeatureTransition:   "特性切换进行中",
	ErrInFreeSpins:         "免费旋转进行中",
	ErrNotInFreeSpins:      "当前不在免费旋转中",
	ErrAutoplayNotAllowed:  "当前不允许自动旋转",
	ErrInvalidState:        "游戏状态错误",

	ErrOutcomeFetch:   "获取转动结果失败",
	ErrOutcomeTimeout: "获取转动结果超时",
	ErrInvalidOutcome: "无效的转动结果",

	ErrMissingTexture: "符号贴图缺失",
	ErrCueFailed:      "动画执行失败",
	ErrCuePanic:       "动画执行异常",

	ErrConfigLoad:       "配置加载失败",
	ErrConfigParse:      "配置解析失败",
	ErrConfigValidate:   "配置验证失败",
	ErrConfigMissing:    "配置项缺失",
	ErrMissingReelStrip: "卷轴条缺失",
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`            // 错误码
	Message string       `json:"message"`         // 错误消息
	Details string       `json:"details"`         // 详细信息
	Cause   error        `json:"-"`               // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"` // 调用栈
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装错误，已经是AppError时保留原始错误码
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	wrapped := New(code, details...)
	wrapped.Cause = err
	if wrapped.Details == "" {
		wrapped.Details = err.Error()
	}
	return wrapped
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Is 判断错误链中是否包含指定错误码
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrUnknown
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, "runtime.") &&
			!strings.Contains(frame.Function, "slot-client/internal/errors") {
			e.Stack = append(e.Stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}
		// 只保留前10个栈帧
		if !more || len(e.Stack) >= 10 {
			break
		}
	}
}

// GetStack 获取格式化的调用栈
func (e *AppError) GetStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, frame := range e.Stack {
		builder.WriteString(fmt.Sprintf("%d. %s\n   %s:%d\n",
			i+1, frame.Function, frame.File, frame.Line))
	}
	return builder.String()
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code == ErrInvalidParam, e.Code == ErrInvalidBet:
		return 400
	case e.Code == ErrNotFound:
		return 404
	case e.Code == ErrInsufficientBalance:
		return 402
	case e.Code >= 2002 && e.Code <= 2007:
		return 409
	case e.Code == ErrTimeout, e.Code == ErrOutcomeTimeout:
		return 504
	case e.Code >= 3000 && e.Code <= 3999:
		return 502
	default:
		return 500
	}
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case ErrTimeout, ErrOutcomeFetch, ErrOutcomeTimeout, ErrSpinInProgress, ErrFeatureTransition:
		return true
	default:
		return false
	}
}

// ErrorResponse API错误响应结构
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(err *AppError) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     err,
		Timestamp: time.Now().Unix(),
	}
}
