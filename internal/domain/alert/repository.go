package alert

import (
	"context"
	"time"
)

// Repository 告警仓储接口
type Repository interface {
	Create(ctx context.Context, a *Alert) error

	// FindByID 不存在返回ErrAlertNotFound
	FindByID(ctx context.Context, id uint) (*Alert, error)

	// FindOpenByProduct 商品所有未关闭（active/acknowledged）的告警
	FindOpenByProduct(ctx context.Context, productID uint) ([]*Alert, error)

	// Refresh 只写数值列（current_stock、reorder_point、threshold、
	// suggested_reorder_quantity、updated_at），条件为告警仍未关闭
	// 返回false表示告警已被关闭，未写入
	Refresh(ctx context.Context, a *Alert) (bool, error)

	// UpdateStatus 只写状态列（status、updated_at、resolved_at），
	// handled_by与notes为空时保留原值
	// 条件：WHERE id = ? AND status IN (expected)，返回false表示状态已被并发修改
	UpdateStatus(ctx context.Context, a *Alert, expected ...Status) (bool, error)

	List(ctx context.Context, filter Filter) ([]*Alert, int64, error)
}

// Filter 告警查询条件
type Filter struct {
	ProductID uint
	Type      Type
	Status    Status
	Limit     int
	Offset    int
}

// Notifier 新告警通知（提交后调用，失败不影响库存）
type Notifier interface {
	Notify(ctx context.Context, a *Alert) error
}

// NopNotifier 不发送通知
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *Alert) error { return nil }

// Event 新告警消息体
type Event struct {
	AlertID                  uint      `json:"alert_id"`
	ProductID                uint      `json:"product_id"`
	AlertType                Type      `json:"alert_type"`
	CurrentStock             int       `json:"current_stock"`
	ReorderPoint             int       `json:"reorder_point"`
	Threshold                int       `json:"threshold"`
	SuggestedReorderQuantity int       `json:"suggested_reorder_quantity"`
	CreatedAt                time.Time `json:"created_at"`
}

// NewEvent 由告警生成消息体
func NewEvent(a *Alert) Event {
	return Event{
		AlertID:                  a.ID,
		ProductID:                a.ProductID,
		AlertType:                a.Type,
		CurrentStock:             a.CurrentStock,
		ReorderPoint:             a.ReorderPoint,
		Threshold:                a.Threshold,
		SuggestedReorderQuantity: a.SuggestedReorderQuantity,
		CreatedAt:                a.CreatedAt,
	}
}
