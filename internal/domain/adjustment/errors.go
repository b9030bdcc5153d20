package adjustment

import (
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

// 调整单领域错误定义
var (
	ErrAdjustmentNotFound = apperrors.New(apperrors.ErrCodeAdjustmentNotFound, "库存调整单不存在")

	// ErrInvalidStateTransition 调整单不是pending（重复审批）
	ErrInvalidStateTransition = apperrors.New(apperrors.ErrCodeInvalidStateTransition, "调整单已处理，不能重复审批")

	ErrInvalidType           = apperrors.New(apperrors.ErrCodeInvalidParams, "无效的调整方式")
	ErrInvalidReason         = apperrors.New(apperrors.ErrCodeInvalidParams, "无效的调整原因")
	ErrInvalidApprovalStatus = apperrors.New(apperrors.ErrCodeInvalidParams, "无效的审批状态")
	ErrInvalidDecision       = apperrors.New(apperrors.ErrCodeInvalidParams, "审批结果只能是approved或rejected")
	ErrReasonMismatch        = apperrors.New(apperrors.ErrCodeInvalidParams, "调整原因与调整方式不匹配")
	ErrInvalidQuantity       = apperrors.New(apperrors.ErrCodeInvalidParams, "调整数量不合法")
	ErrNoEffect              = apperrors.New(apperrors.ErrCodeInvalidParams, "调整后库存没有变化")
	ErrMissingOperator       = apperrors.New(apperrors.ErrCodeInvalidParams, "缺少操作人")
)
