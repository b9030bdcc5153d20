package alert

import "time"

// Type 告警类型
type Type string

const (
	TypeLowStock   Type = "low_stock"
	TypeOutOfStock Type = "out_of_stock"
	TypeOverstock  Type = "overstock"
)

// Types 引擎按此顺序评估
var Types = []Type{TypeLowStock, TypeOutOfStock, TypeOverstock}

// ParseType 解析告警类型
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeLowStock, TypeOutOfStock, TypeOverstock:
		return t, nil
	}
	return "", ErrInvalidType
}

// Status 告警状态
//
//	active ──人工──> acknowledged | resolved | dismissed
//	active | acknowledged ──引擎（条件消失）──> resolved
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusDismissed    Status = "dismissed"
)

// OpenStatuses 未关闭的告警状态，同一(商品, 类型)最多一条
var OpenStatuses = []Status{StatusActive, StatusAcknowledged}

// manualTransitions 人工操作只能从active出发
var manualTransitions = map[Status][]Status{
	StatusActive:       {StatusAcknowledged, StatusResolved, StatusDismissed},
	StatusAcknowledged: {},
	StatusResolved:     {},
	StatusDismissed:    {},
}

// ParseStatus 解析告警状态
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := manualTransitions[st]; !ok {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// IsOpen 是否未关闭
func (s Status) IsOpen() bool {
	return s == StatusActive || s == StatusAcknowledged
}

// Alert 补货告警
type Alert struct {
	ID        uint
	ProductID uint
	Type      Type

	// CurrentStock 低库存/缺货为可售库存，积压为实物库存
	CurrentStock             int
	ReorderPoint             int
	Threshold                int
	SuggestedReorderQuantity int

	Status    Status
	Notes     string
	HandledBy string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// IsOpen 是否未关闭
func (a *Alert) IsOpen() bool {
	return a.Status.IsOpen()
}

// CanTransitionTo 人工状态转换是否合法
func (a *Alert) CanTransitionTo(target Status) bool {
	for _, allowed := range manualTransitions[a.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 人工状态转换
func (a *Alert) TransitionTo(target Status, handledBy, notes string, now time.Time) error {
	if !a.CanTransitionTo(target) {
		return ErrInvalidStateTransition
	}
	a.Status = target
	a.HandledBy = handledBy
	if notes != "" {
		a.Notes = notes
	}
	a.UpdatedAt = now
	if target == StatusResolved || target == StatusDismissed {
		a.ResolvedAt = &now
	}
	return nil
}

// resolve 引擎在条件消失时关闭告警
func (a *Alert) resolve(now time.Time) {
	a.Status = StatusResolved
	a.UpdatedAt = now
	a.ResolvedAt = &now
}
