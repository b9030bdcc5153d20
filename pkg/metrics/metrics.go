// Package metrics 提供基于Prometheus的指标收集
//
// 指标分三组：
//   - HTTP：请求数、耗时、处理中的请求数
//   - 账本：按操作和结果统计的库存变更、CAS冲突重试、操作耗时、告警
//   - 通知：熔断器状态、告警消息发布结果
//
// 使用方式：
//
//	metrics.InitMetrics()
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	start := time.Now()
//	err := doReserve(ctx)
//	metrics.ObserveLedgerOperation("reserve", start, err)
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

var (
	once sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path（路由模板，如/api/v1/products/:id）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// 账本指标

	// LedgerOperationsTotal 账本操作总数
	// 标签：operation（reserve/fulfill/cancel/...）、result（success或错误码）
	LedgerOperationsTotal *prometheus.CounterVec

	// LedgerOperationDuration 账本操作耗时（含CAS重试）
	LedgerOperationDuration *prometheus.HistogramVec

	// LedgerCASConflictsTotal 版本冲突次数（每次冲突触发一次重试）
	LedgerCASConflictsTotal *prometheus.CounterVec

	// 告警指标

	// AlertsRaisedTotal 新创建的补货告警数
	// 标签：alert_type（low_stock/out_of_stock/overstock）
	AlertsRaisedTotal *prometheus.CounterVec

	// AlertsResolvedTotal 条件消失后自动关闭的告警数
	AlertsResolvedTotal *prometheus.CounterVec

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// 消息通知指标

	// MessagesPublishedTotal 告警消息发布总数
	// 标签：driver（rabbitmq/redis）、result（success/failure）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 初始化所有Prometheus指标，重复调用无副作用
func InitMetrics() {
	once.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "库存账本操作总数",
		},
		[]string{"operation", "result"},
	)

	LedgerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ledger_operation_duration_seconds",
			Help: "库存账本操作耗时（秒，含重试）",
			// 单次事务通常在10ms内，冲突重试会拉长到百毫秒级
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	LedgerCASConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_cas_conflicts_total",
			Help: "库存版本冲突次数",
		},
		[]string{"operation"},
	)

	AlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reorder_alerts_raised_total",
			Help: "新创建的补货告警数",
		},
		[]string{"alert_type"},
	)

	AlertsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reorder_alerts_resolved_total",
			Help: "自动关闭的补货告警数",
		},
		[]string{"alert_type"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_messages_published_total",
			Help: "告警消息发布总数",
		},
		[]string{"driver", "result"},
	)
}

// ResultLabel 把错误转换成result标签：nil为success，否则为错误码
// 错误码是有限集合，不会造成高基数
func ResultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return strconv.Itoa(apperrors.CodeOf(err))
}

// ObserveLedgerOperation 记录一次账本操作的结果和耗时
func ObserveLedgerOperation(operation string, start time.Time, err error) {
	if LedgerOperationsTotal == nil {
		return
	}
	LedgerOperationsTotal.WithLabelValues(operation, ResultLabel(err)).Inc()
	LedgerOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncCASConflict 记录一次版本冲突
func IncCASConflict(operation string) {
	if LedgerCASConflictsTotal == nil {
		return
	}
	LedgerCASConflictsTotal.WithLabelValues(operation).Inc()
}

// IncAlertRaised 记录新告警
func IncAlertRaised(alertType string) {
	if AlertsRaisedTotal == nil {
		return
	}
	AlertsRaisedTotal.WithLabelValues(alertType).Inc()
}

// IncAlertResolved 记录自动关闭的告警
func IncAlertResolved(alertType string) {
	if AlertsResolvedTotal == nil {
		return
	}
	AlertsResolvedTotal.WithLabelValues(alertType).Inc()
}

// IncMessagePublished 记录告警消息发布结果
func IncMessagePublished(driver string, err error) {
	if MessagesPublishedTotal == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	MessagesPublishedTotal.WithLabelValues(driver, result).Inc()
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
