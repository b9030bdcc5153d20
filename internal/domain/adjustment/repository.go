package adjustment

import "context"

// Repository 调整单仓储接口
type Repository interface {
	Create(ctx context.Context, a *Adjustment) error

	// FindByID 不存在返回ErrAdjustmentNotFound
	FindByID(ctx context.Context, id uint) (*Adjustment, error)

	// UpdateDecision 条件更新审批结果：WHERE id = ? AND approval_status = from
	// 影响行数为0（已被并发审批）时返回ErrInvalidStateTransition
	UpdateDecision(ctx context.Context, a *Adjustment, from ApprovalStatus) error

	List(ctx context.Context, filter Filter) ([]*Adjustment, int64, error)
}

// Filter 调整单查询条件
type Filter struct {
	ProductID uint
	Status    ApprovalStatus
	Limit     int
	Offset    int
}
