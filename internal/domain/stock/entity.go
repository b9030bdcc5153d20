package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status 商品库存状态
// in_stock/low_stock/out_of_stock由告警引擎根据库存重新计算；
// discontinued/on_hold是人工设置的状态，重新计算时保持不变
type Status string

const (
	StatusInStock      Status = "in_stock"
	StatusLowStock     Status = "low_stock"
	StatusOutOfStock   Status = "out_of_stock"
	StatusDiscontinued Status = "discontinued"
	StatusOnHold       Status = "on_hold"
)

// Valid 判断是否为合法状态
func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusLowStock, StatusOutOfStock, StatusDiscontinued, StatusOnHold:
		return true
	}
	return false
}

// IsManual 是否为人工设置的状态
func (s Status) IsManual() bool {
	return s == StatusDiscontinued || s == StatusOnHold
}

// ParseStatus 解析库存状态，未知值返回错误
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// Availability 人工可设置的销售状态
// active表示恢复为按库存自动计算的状态
type Availability string

const (
	AvailabilityActive       Availability = "active"
	AvailabilityOnHold       Availability = "on_hold"
	AvailabilityDiscontinued Availability = "discontinued"
)

// ParseAvailability 解析销售状态
func ParseAvailability(s string) (Availability, error) {
	switch a := Availability(s); a {
	case AvailabilityActive, AvailabilityOnHold, AvailabilityDiscontinued:
		return a, nil
	}
	return "", ErrInvalidStatus
}

// ProductStock 商品库存（聚合根）
//
// 不变量：
//   - 0 ≤ ReservedStock ≤ PhysicalStock
//   - Available = PhysicalStock - ReservedStock
//   - Version每次成功变更+1，用于乐观锁
//
// 库存记录不删除，下架通过discontinued状态表达
type ProductStock struct {
	ID       uint
	SKU      string
	Category string // 告警阈值按类目覆盖

	PhysicalStock        int // 实物库存
	ReservedStock        int // 已被订单预占
	InitialPhysicalStock int // 建档时的实物库存，用于对账

	ReorderPoint    int
	ReorderQuantity int
	MaxStockLevel   int // 0表示不设上限（不检查积压）

	// 商品级告警阈值覆盖（百分比，相对MaxStockLevel）
	LowStockPercent  decimal.NullDecimal
	OverstockPercent decimal.NullDecimal

	Status  Status
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available 可售库存
func (p *ProductStock) Available() int {
	return p.PhysicalStock - p.ReservedStock
}

// IsSellable 是否允许新的预占
func (p *ProductStock) IsSellable() bool {
	return !p.Status.IsManual()
}

// Validate 校验库存不变量
func (p *ProductStock) Validate() error {
	if p.PhysicalStock < 0 || p.ReservedStock < 0 {
		return ErrNegativeStock
	}
	if p.ReservedStock > p.PhysicalStock {
		return ErrReservedExceedsPhysical
	}
	if p.ReorderPoint < 0 || p.ReorderQuantity < 0 || p.MaxStockLevel < 0 {
		return ErrInvalidReorderSettings
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Clone 复制一份快照，变更在副本上计算
func (p *ProductStock) Clone() *ProductStock {
	c := *p
	return &c
}

// Availability 当前销售状态
func (p *ProductStock) Availability() Availability {
	switch p.Status {
	case StatusOnHold:
		return AvailabilityOnHold
	case StatusDiscontinued:
		return AvailabilityDiscontinued
	default:
		return AvailabilityActive
	}
}

// ChangeAvailability 人工变更销售状态
// discontinued是终态；active只把状态恢复为in_stock，实际状态由调用方按库存重新计算
func (p *ProductStock) ChangeAvailability(target Availability) error {
	current := p.Availability()
	if current == target || current == AvailabilityDiscontinued {
		return ErrInvalidStatusTransition
	}

	switch target {
	case AvailabilityActive:
		p.Status = StatusInStock
	case AvailabilityOnHold:
		p.Status = StatusOnHold
	case AvailabilityDiscontinued:
		p.Status = StatusDiscontinued
	default:
		return ErrInvalidStatus
	}
	return nil
}
