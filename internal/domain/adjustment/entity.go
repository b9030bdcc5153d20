package adjustment

import "time"

// Type 调整方式
type Type string

const (
	TypeIncrease Type = "increase"
	TypeDecrease Type = "decrease"
	TypeSet      Type = "set"
)

// ParseType 解析调整方式
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeIncrease, TypeDecrease, TypeSet:
		return t, nil
	}
	return "", ErrInvalidType
}

// ReasonCode 调整原因
type ReasonCode string

const (
	ReasonReceived         ReasonCode = "received"
	ReasonCustomerReturn   ReasonCode = "customer_return"
	ReasonSupplierDelivery ReasonCode = "supplier_delivery"
	ReasonDamaged          ReasonCode = "damaged"
	ReasonLost             ReasonCode = "lost"
	ReasonSale             ReasonCode = "sale"
	ReasonPhysicalCount    ReasonCode = "physical_count"
)

// reasonTypes 每种原因只能搭配一种调整方式
// 盘点（physical_count）是唯一允许直接设置库存的原因
var reasonTypes = map[ReasonCode]Type{
	ReasonReceived:         TypeIncrease,
	ReasonCustomerReturn:   TypeIncrease,
	ReasonSupplierDelivery: TypeIncrease,
	ReasonDamaged:          TypeDecrease,
	ReasonLost:             TypeDecrease,
	ReasonSale:             TypeDecrease,
	ReasonPhysicalCount:    TypeSet,
}

// ParseReasonCode 解析调整原因
func ParseReasonCode(s string) (ReasonCode, error) {
	r := ReasonCode(s)
	if _, ok := reasonTypes[r]; !ok {
		return "", ErrInvalidReason
	}
	return r, nil
}

// ApprovalStatus 审批状态
// pending → approved | rejected，只能转换一次
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

var transitions = map[ApprovalStatus][]ApprovalStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {},
	StatusRejected: {},
}

// ParseApprovalStatus 解析审批状态
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	st := ApprovalStatus(s)
	if _, ok := transitions[st]; !ok {
		return "", ErrInvalidApprovalStatus
	}
	return st, nil
}

// Adjustment 库存调整单
// 创建时只记录申请，不改动库存；审批通过时才计算并写入新的实物库存
type Adjustment struct {
	ID        uint
	ProductID uint
	Type      Type
	Reason    ReasonCode
	Quantity  int

	// PreviousPhysicalStock 申请时为当时的实物库存，审批通过后更新为实际生效前的值
	PreviousPhysicalStock int
	// NewPhysicalStock 审批通过后才有值
	NewPhysicalStock *int

	Status      ApprovalStatus
	RequestedBy string
	ApprovedBy  string
	Notes       string
	Decision    string // 审批意见

	CreatedAt time.Time
	DecidedAt *time.Time
}

// NewAdjustment 校验并创建待审批的调整单
// current为申请时的实物库存，用来拒绝无效调整（设置为当前值）
func NewAdjustment(productID uint, t Type, reason ReasonCode, quantity, current int, requestedBy, notes string, now time.Time) (*Adjustment, error) {
	if err := Validate(t, reason, quantity, current); err != nil {
		return nil, err
	}
	return &Adjustment{
		ProductID:             productID,
		Type:                  t,
		Reason:                reason,
		Quantity:              quantity,
		PreviousPhysicalStock: current,
		Status:                StatusPending,
		RequestedBy:           requestedBy,
		Notes:                 notes,
		CreatedAt:             now,
	}, nil
}

// Validate 调整单业务规则
func Validate(t Type, reason ReasonCode, quantity, current int) error {
	expected, ok := reasonTypes[reason]
	if !ok {
		return ErrInvalidReason
	}
	if expected != t {
		return ErrReasonMismatch
	}

	switch t {
	case TypeIncrease, TypeDecrease:
		if quantity <= 0 {
			return ErrInvalidQuantity
		}
		if t == TypeDecrease && current == 0 {
			return ErrNoEffect
		}
	case TypeSet:
		if quantity < 0 {
			return ErrInvalidQuantity
		}
		if quantity == current {
			return ErrNoEffect
		}
	default:
		return ErrInvalidType
	}
	return nil
}

// ComputeNewPhysical 按审批时的实物库存计算调整后的值，扣减不低于0
func (a *Adjustment) ComputeNewPhysical(current int) int {
	switch a.Type {
	case TypeIncrease:
		return current + a.Quantity
	case TypeDecrease:
		if current < a.Quantity {
			return 0
		}
		return current - a.Quantity
	default:
		return a.Quantity
	}
}

// IsPending 是否待审批
func (a *Adjustment) IsPending() bool {
	return a.Status == StatusPending
}

// CanTransitionTo 检查状态转换是否合法
func (a *Adjustment) CanTransitionTo(target ApprovalStatus) bool {
	for _, allowed := range transitions[a.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Approve 审批通过，记录生效前后的实物库存
func (a *Adjustment) Approve(approver, decision string, previous, newPhysical int, now time.Time) error {
	if !a.CanTransitionTo(StatusApproved) {
		return ErrInvalidStateTransition
	}
	a.Status = StatusApproved
	a.ApprovedBy = approver
	a.Decision = decision
	a.PreviousPhysicalStock = previous
	a.NewPhysicalStock = &newPhysical
	a.DecidedAt = &now
	return nil
}

// Reject 驳回，不触碰库存
func (a *Adjustment) Reject(approver, decision string, now time.Time) error {
	if !a.CanTransitionTo(StatusRejected) {
		return ErrInvalidStateTransition
	}
	a.Status = StatusRejected
	a.ApprovedBy = approver
	a.Decision = decision
	a.DecidedAt = &now
	return nil
}
