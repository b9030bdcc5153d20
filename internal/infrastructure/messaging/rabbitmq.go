package messaging

import (
	"context"

	"github.com/xiebiao/stockledger/internal/domain/alert"
)

// publisher mq.Publisher中通知用到的部分
type publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// RabbitMQNotifier 把新告警发布到Topic Exchange
type RabbitMQNotifier struct {
	publisher  publisher
	routingKey string
}

// NewRabbitMQNotifier 创建RabbitMQ告警通知
func NewRabbitMQNotifier(p publisher, routingKey string) *RabbitMQNotifier {
	return &RabbitMQNotifier{publisher: p, routingKey: routingKey}
}

// Notify 发布告警消息
func (n *RabbitMQNotifier) Notify(ctx context.Context, a *alert.Alert) error {
	return n.publisher.Publish(ctx, n.routingKey, alert.NewEvent(a))
}
