package messaging

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/pkg/circuitbreaker"
	"github.com/xiebiao/stockledger/pkg/metrics"
)

// BreakerConfig 通知熔断配置
type BreakerConfig struct {
	Failures       uint32        // 连续失败多少次熔断
	Timeout        time.Duration // 熔断持续时间
	PublishTimeout time.Duration // 单次发布超时
}

// GuardedNotifier 用熔断器保护下游通知
// 熔断打开时直接返回ErrOpenState，不再等待故障的中间件
type GuardedNotifier struct {
	next    alert.Notifier
	driver  string
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewGuardedNotifier 创建带熔断的通知
func NewGuardedNotifier(next alert.Notifier, driver string, cfg BreakerConfig, logger *zap.Logger) *GuardedNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}

	name := "alert-notifier-" + driver
	breaker := circuitbreaker.NewCircuitBreaker(name, circuitbreaker.Config{
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: circuitbreaker.ConsecutiveFailures(cfg.Failures),
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			logger.Warn("熔断器状态变化",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if metrics.CircuitBreakerState != nil {
				metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": name}, float64(to))
			}
		},
	})

	return &GuardedNotifier{
		next:    next,
		driver:  driver,
		breaker: breaker,
		timeout: cfg.PublishTimeout,
		logger:  logger,
	}
}

// Notify 经熔断器发布
func (g *GuardedNotifier) Notify(ctx context.Context, a *alert.Alert) error {
	err := g.breaker.Execute(func() error {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return g.next.Notify(callCtx, a)
	})

	g.record(err)
	// 熔断拒绝的请求没有真正发布
	if !errors.Is(err, circuitbreaker.ErrOpenState) {
		metrics.IncMessagePublished(g.driver, err)
	}
	return err
}

// State 当前熔断状态
func (g *GuardedNotifier) State() circuitbreaker.State {
	return g.breaker.State()
}

func (g *GuardedNotifier) record(err error) {
	if metrics.CircuitBreakerRequests == nil {
		return
	}
	result := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpenState):
		result = "rejected"
	case err != nil:
		result = "failure"
	}
	metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{
		"name":   g.breaker.Name(),
		"result": result,
	})
}
