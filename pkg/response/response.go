package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

// LoggerKey 请求级zap.Logger在gin.Context中的键（由RequestLogger中间件写入）
const LoggerKey = "logger"

// Response 统一响应结构
// 设计说明：
// 1. Code是业务错误码（非HTTP状态码），调用方据此区分库存不足、并发冲突等
// 2. Message是用户友好的提示信息
// 3. Data是业务数据，成功时返回，失败时为null
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应（Code=0表示成功）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应（自动处理AppError）
// 内部错误只写日志，不返回给客户端
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)

	if appErr.Err != nil || apperrors.IsUnavailable(appErr) {
		loggerFrom(c).Error("请求处理失败",
			zap.Int("code", appErr.Code),
			zap.String("message", appErr.Message),
			zap.Error(appErr.Err),
		)
	}

	c.JSON(http.StatusOK, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
		Data:    nil,
	})
}

// ErrorWithCode 自定义错误码和消息
func ErrorWithCode(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

func loggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.L()
}

// =========================================
// 分页响应结构
// =========================================

// PageData 分页数据封装
// 账本查询使用limit/offset分页
type PageData struct {
	List   interface{} `json:"list"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// NewPageData 创建分页数据
func NewPageData(list interface{}, total int64, limit, offset int) *PageData {
	return &PageData{
		List:   list,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list interface{}, total int64, limit, offset int) {
	Success(c, NewPageData(list, total, limit, offset))
}
