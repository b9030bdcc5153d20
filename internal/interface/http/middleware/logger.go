package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/pkg/response"
	"github.com/xiebiao/stockledger/pkg/tracing"
)

// RequestIDHeader 请求ID响应头，客户端传入时沿用
const RequestIDHeader = "X-Request-ID"

// slowRequest 超过该耗时记WARN
const slowRequest = 3 * time.Second

// RequestLogger 请求日志中间件
// 1. 生成或沿用请求ID，写回响应头
// 2. 把带request_id的logger放入Context，response.Error记录内部错误时使用
// 3. 请求结束后输出方法、路由、状态码、耗时
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		fields := []zap.Field{zap.String("request_id", requestID)}
		if traceID := tracing.ExtractTraceID(c.Request.Context()); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		reqLog := log.With(fields...)
		c.Set(response.LoggerKey, reqLog)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		logFields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if op := GetOperator(c); op != "" {
			logFields = append(logFields, zap.String("operator", op))
		}
		if len(c.Errors) > 0 {
			logFields = append(logFields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			reqLog.Error("请求失败", logFields...)
		case latency > slowRequest:
			reqLog.Warn("慢请求", logFields...)
		default:
			reqLog.Info("请求完成", logFields...)
		}
	}
}
