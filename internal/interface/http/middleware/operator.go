package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/stockledger/pkg/errors"
	"github.com/xiebiao/stockledger/pkg/response"
)

// OperatorHeader 操作人请求头
// 鉴权由网关完成，账本只记录网关透传的操作人
const OperatorHeader = "X-Operator"

const operatorKey = "operator"

// Operator 读取操作人写入Context，缺失时不拦截
//
//	r.Use(middleware.Operator())
//	v1.POST("/adjustments", middleware.RequireOperator(), h.CreateAdjustment)
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if op := strings.TrimSpace(c.GetHeader(OperatorHeader)); op != "" {
			c.Set(operatorKey, op)
		}
		c.Next()
	}
}

// RequireOperator 要求携带操作人（审批、告警处理等需要留痕的接口）
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetOperator(c) == "" {
			response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "缺少操作人请求头"+OperatorHeader)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetOperator 当前操作人，没有时返回空串
func GetOperator(c *gin.Context) string {
	if v, ok := c.Get(operatorKey); ok {
		if op, ok := v.(string); ok {
			return op
		}
	}
	return strings.TrimSpace(c.GetHeader(OperatorHeader))
}
