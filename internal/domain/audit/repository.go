package audit

import (
	"context"
	"time"

	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

var ErrInvalidOperationType = apperrors.New(apperrors.ErrCodeInvalidParams, "无效的库存变更类型")

// Repository 审计日志仓储
// 只提供追加和查询，没有修改、删除接口
type Repository interface {
	// Append 追加一条记录，必须在库存变更的事务中调用
	Append(ctx context.Context, e *Entry) error

	// List 按条件查询，按时间倒序
	List(ctx context.Context, filter Filter) ([]*Entry, int64, error)

	// SumPhysicalChange 商品所有记录的实物库存变化量之和
	SumPhysicalChange(ctx context.Context, productID uint) (int64, error)
}

// Filter 审计日志查询条件，零值字段不参与过滤
type Filter struct {
	ProductID uint
	OrderID   string
	Operation OperationType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
