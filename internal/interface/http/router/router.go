package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/internal/infrastructure/config"
	"github.com/xiebiao/stockledger/internal/interface/http/handler"
	"github.com/xiebiao/stockledger/internal/interface/http/middleware"
	"github.com/xiebiao/stockledger/pkg/response"
)

// New 创建Gin引擎并注册全部路由
//
// 中间件顺序：Recovery → Tracing → RequestLogger → Metrics → Operator
// Tracing在RequestLogger之前，日志才能带上trace_id
func New(
	cfg *config.Config,
	log *zap.Logger,
	ledgerHandler *handler.LedgerHandler,
	adjustmentHandler *handler.AdjustmentHandler,
	alertHandler *handler.AlertHandler,
) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.Tracing(cfg.Tracing.ServiceName),
		middleware.RequestLogger(log),
		middleware.Metrics(),
		middleware.Operator(),
	)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 访问 http://localhost:8080/swagger/index.html 查看API文档
	if cfg.Server.Mode != "release" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.POST("", ledgerHandler.CreateProduct)
			products.GET("", ledgerHandler.ListProducts)
			products.GET("/:id", ledgerHandler.GetProduct)
			products.PUT("/:id/status", ledgerHandler.UpdateStatus)
			products.PUT("/:id/reorder-settings", ledgerHandler.UpdateReorderSettings)
			products.GET("/:id/validate", ledgerHandler.ValidateStock)
			products.GET("/:id/reconcile", ledgerHandler.Reconcile)

			products.POST("/:id/reservations", ledgerHandler.Reserve)
			products.POST("/:id/reservations/:order_id/fulfill", ledgerHandler.Fulfill)
			products.POST("/:id/reservations/:order_id/cancel", ledgerHandler.Cancel)
			products.POST("/:id/returns", ledgerHandler.ProcessReturn)
			products.POST("/:id/receipts", ledgerHandler.ReceiveReorder)
		}

		reservations := v1.Group("/reservations")
		{
			reservations.GET("", ledgerHandler.ListReservations)
			reservations.GET("/due", ledgerHandler.ListDueReservations)
			reservations.POST("/:id/expire", ledgerHandler.ExpireReservation)
		}

		v1.GET("/audit-logs", ledgerHandler.ListAuditLogs)

		// 审批和告警处理必须留下操作人
		adjustments := v1.Group("/adjustments")
		{
			adjustments.GET("", adjustmentHandler.ListAdjustments)
			adjustments.GET("/:id", adjustmentHandler.GetAdjustment)
			adjustments.POST("", middleware.RequireOperator(), adjustmentHandler.CreateAdjustment)
			adjustments.POST("/:id/decision", middleware.RequireOperator(), adjustmentHandler.Decide)
		}

		alerts := v1.Group("/alerts")
		{
			alerts.GET("", alertHandler.ListAlerts)
			alerts.GET("/:id", alertHandler.GetAlert)
			alerts.PUT("/:id/status", middleware.RequireOperator(), alertHandler.UpdateStatus)
		}
	}

	return r
}
