package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/internal/domain/alert"
)

// publisher redis.Client中通知用到的部分
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// AlertNotifier 通过Redis Pub/Sub推送新告警
// Pub/Sub不持久化，没有订阅者时消息丢失；需要可靠投递时使用RabbitMQ
type AlertNotifier struct {
	client  publisher
	channel string
	logger  *zap.Logger
}

// NewAlertNotifier 创建Redis告警通知
func NewAlertNotifier(client publisher, channel string, logger *zap.Logger) *AlertNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertNotifier{client: client, channel: channel, logger: logger}
}

// Notify 发布告警消息
func (n *AlertNotifier) Notify(ctx context.Context, a *alert.Alert) error {
	body, err := json.Marshal(alert.NewEvent(a))
	if err != nil {
		return fmt.Errorf("告警消息序列化失败: %w", err)
	}

	receivers, err := n.client.Publish(ctx, n.channel, body).Result()
	if err != nil {
		return fmt.Errorf("发布告警消息失败: %w", err)
	}

	n.logger.Debug("告警消息已发布",
		zap.String("channel", n.channel),
		zap.Uint("alert_id", a.ID),
		zap.Int64("receivers", receivers),
	)
	return nil
}
