package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于调用方判断错误类型（订单子系统据此决定是否重试）
// 2. Message是可读的提示信息，可以携带具体数值
// 3. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配
// 领域层的预定义错误只是"错误种类"，实际返回的错误可能带有具体数值（Newf），
// 因此errors.Is(err, stock.ErrInsufficientStock)比较的是Code而不是指针。
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf 创建带格式化信息的AppError
func Newf(code int, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 包装系统错误
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WrapDB 包装持久化层错误
// 数据库不可用时必须以独立的错误码暴露，调用方不能把它当成业务失败处理
func WrapDB(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeDatabaseError,
		Message: message,
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、外部服务调用失败）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误（持久化层不可用）
	ErrCodeRedisError    = 50002 // Redis错误
	ErrCodeBrokerError   = 50003 // 消息队列错误

	// 资源错误（40400-40499）
	ErrCodeNotFound            = 40400 // 资源不存在(通用)
	ErrCodeProductNotFound     = 40401 // 商品库存记录不存在
	ErrCodeAdjustmentNotFound  = 40402 // 库存调整单不存在
	ErrCodeAlertNotFound       = 40403 // 补货告警不存在
	ErrCodeReservationNotFound = 40404 // 预占记录不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError           = 40000 // 业务错误(通用)
	ErrCodeInsufficientStock       = 40001 // 库存不足
	ErrCodeDuplicateEntry          = 40009 // 重复记录(通用)
	ErrCodeProductUnavailable      = 40010 // 商品已下架或冻结
	ErrCodeInvalidReservationState = 40011 // 预占状态不允许此操作
	ErrCodeInvalidStateTransition  = 40012 // 调整单/告警状态不允许此操作
	ErrCodeConcurrentModification  = 40013 // 并发修改冲突（重试耗尽）

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError    = New(ErrCodeRedisError, "缓存服务错误")
	ErrBrokerError   = New(ErrCodeBrokerError, "消息服务错误")

	// 资源不存在
	ErrNotFound = New(ErrCodeNotFound, "资源不存在")

	// 业务规则
	ErrInsufficientStock      = New(ErrCodeInsufficientStock, "库存不足")
	ErrConcurrentModification = New(ErrCodeConcurrentModification, "库存被并发修改，请稍后重试")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// CodeOf 返回错误码，非AppError返回ErrCodeInternal
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	return GetAppError(err).Code
}

// IsUnavailable 判断是否为基础设施不可用错误（5xxxx）
func IsUnavailable(err error) bool {
	code := CodeOf(err)
	return code >= 50000 && code < 60000
}
