package messaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/infrastructure/config"
	redisstore "github.com/xiebiao/stockledger/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/stockledger/pkg/mq"
)

// NewNotifier 按notify.driver创建告警通知，返回的cleanup关闭底层连接
//   - none：不发送
//   - rabbitmq：发布到rabbitmq.exchange，routing key为notify.channel
//   - redis：PUBLISH到notify.channel
func NewNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (alert.Notifier, func(), error) {
	breakerCfg := BreakerConfig{
		Failures:       cfg.Notify.BreakerFailures,
		Timeout:        cfg.Notify.BreakerTimeout,
		PublishTimeout: cfg.Notify.PublishTimeout,
	}

	switch cfg.Notify.Driver {
	case "", "none":
		return alert.NopNotifier{}, func() {}, nil

	case "rabbitmq":
		exchangeType := cfg.RabbitMQ.ExchangeType
		if exchangeType == "" {
			exchangeType = "topic"
		}
		pub, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, exchangeType, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := pub.Close(); err != nil {
				logger.Warn("关闭RabbitMQ连接失败", zap.Error(err))
			}
		}
		n := NewRabbitMQNotifier(pub, cfg.Notify.Channel)
		return NewGuardedNotifier(n, "rabbitmq", breakerCfg, logger), cleanup, nil

	case "redis":
		client, err := redisstore.NewClient(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Warn("关闭Redis连接失败", zap.Error(err))
			}
		}
		n := redisstore.NewAlertNotifier(client, cfg.Notify.Channel, logger)
		return NewGuardedNotifier(n, "redis", breakerCfg, logger), cleanup, nil

	default:
		return nil, nil, fmt.Errorf("不支持的告警通知驱动: %s", cfg.Notify.Driver)
	}
}
