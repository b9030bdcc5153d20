package stock

import (
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

// 库存领域错误定义
// 调用方用errors.Is判断种类，返回时可以用Newf附带具体数值
var (
	ErrProductNotFound     = apperrors.New(apperrors.ErrCodeProductNotFound, "商品库存记录不存在")
	ErrReservationNotFound = apperrors.New(apperrors.ErrCodeReservationNotFound, "预占记录不存在")
	ErrDuplicateProduct    = apperrors.New(apperrors.ErrCodeDuplicateEntry, "商品库存记录已存在")

	ErrInsufficientStock       = apperrors.New(apperrors.ErrCodeInsufficientStock, "可用库存不足")
	ErrProductUnavailable      = apperrors.New(apperrors.ErrCodeProductUnavailable, "商品已下架或暂停销售")
	ErrInvalidReservationState = apperrors.New(apperrors.ErrCodeInvalidReservationState, "预占状态不允许此操作")
	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidStateTransition, "商品状态不允许此变更")

	// ErrVersionConflict 乐观锁冲突，由账本内部重试，不直接返回给调用方
	ErrVersionConflict = apperrors.New(apperrors.ErrCodeConcurrentModification, "库存版本冲突")

	ErrInvalidQuantity          = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")
	ErrInvalidOrderID           = apperrors.New(apperrors.ErrCodeInvalidParams, "订单号不能为空")
	ErrInvalidExpiry            = apperrors.New(apperrors.ErrCodeInvalidParams, "过期时间必须晚于当前时间")
	ErrInvalidStatus            = apperrors.New(apperrors.ErrCodeInvalidParams, "无效的库存状态")
	ErrInvalidReservationStatus = apperrors.New(apperrors.ErrCodeInvalidParams, "无效的预占状态")
	ErrInvalidReorderSettings   = apperrors.New(apperrors.ErrCodeInvalidParams, "补货参数不能为负数")

	// 以下两个错误意味着账本数据已损坏，不应出现
	ErrNegativeStock           = apperrors.New(apperrors.ErrCodeInternal, "库存不能为负数")
	ErrReservedExceedsPhysical = apperrors.New(apperrors.ErrCodeInternal, "预占库存超过实物库存")
)
