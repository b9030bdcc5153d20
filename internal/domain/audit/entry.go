package audit

import "time"

// OperationType 库存变更类型
type OperationType string

const (
	OpOrderReservation  OperationType = "order_reservation"
	OpOrderFulfillment  OperationType = "order_fulfillment"
	OpOrderCancellation OperationType = "order_cancellation"
	OpReturnProcessing  OperationType = "return_processing"
	OpManualAdjustment  OperationType = "manual_adjustment"
	OpReorderReceived   OperationType = "reorder_received"
)

// Valid 判断是否为合法类型
func (o OperationType) Valid() bool {
	switch o {
	case OpOrderReservation, OpOrderFulfillment, OpOrderCancellation,
		OpReturnProcessing, OpManualAdjustment, OpReorderReceived:
		return true
	}
	return false
}

// ParseOperationType 解析变更类型
func ParseOperationType(s string) (OperationType, error) {
	op := OperationType(s)
	if !op.Valid() {
		return "", ErrInvalidOperationType
	}
	return op, nil
}

// Snapshot 变更前或变更后的库存数值
type Snapshot struct {
	Physical int
	Reserved int
}

// Available 可售库存
func (s Snapshot) Available() int {
	return s.Physical - s.Reserved
}

// Entry 库存审计日志（只增不改）
// 每次成功的库存变更恰好对应一条记录，与变更在同一事务中写入
type Entry struct {
	ID        uint
	ProductID uint
	Operation OperationType

	Before Snapshot
	After  Snapshot

	QuantityAffected int

	OrderID       string
	ReservationID uint
	AdjustmentID  uint

	Reason       string
	PerformedBy  string
	VersionAfter int64
	CreatedAt    time.Time
}

// NewEntry 创建审计记录
func NewEntry(productID uint, op OperationType, before, after Snapshot, quantity int) *Entry {
	return &Entry{
		ProductID:        productID,
		Operation:        op,
		Before:           before,
		After:            after,
		QuantityAffected: quantity,
	}
}

// PhysicalChange 实物库存变化量（对账用）
func (e *Entry) PhysicalChange() int {
	return e.After.Physical - e.Before.Physical
}

// ReservedChange 预占库存变化量
func (e *Entry) ReservedChange() int {
	return e.After.Reserved - e.Before.Reserved
}

// AvailableChange 可售库存变化量
func (e *Entry) AvailableChange() int {
	return e.After.Available() - e.Before.Available()
}
