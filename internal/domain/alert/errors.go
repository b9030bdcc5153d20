package alert

import (
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

// 告警领域错误定义
var (
	ErrAlertNotFound = apperrors.New(apperrors.ErrCodeAlertNotFound, "补货告警不存在")

	// ErrInvalidStateTransition 只有active告警可以人工处理
	ErrInvalidStateTransition = apperrors.New(apperrors.ErrCodeInvalidStateTransition, "告警不是active状态，不能处理")

	ErrInvalidType    = apperrors.New(apperrors.ErrCodeInvalidParams, "无效的告警类型")
	ErrInvalidStatus  = apperrors.New(apperrors.ErrCodeInvalidParams, "无效的告警状态")
	ErrInvalidPercent = apperrors.New(apperrors.ErrCodeInvalidParams, "告警百分比必须在0到1000之间")
)
