package stock

import "time"

// ReservationStatus 预占状态
// active → fulfilled | cancelled | expired，终态不可再变
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationActive:    {ReservationFulfilled, ReservationCancelled, ReservationExpired},
	ReservationFulfilled: {},
	ReservationCancelled: {},
	ReservationExpired:   {},
}

// Valid 判断是否为合法状态
func (s ReservationStatus) Valid() bool {
	_, ok := reservationTransitions[s]
	return ok
}

// IsTerminal 是否终态
func (s ReservationStatus) IsTerminal() bool {
	return s.Valid() && s != ReservationActive
}

// ParseReservationStatus 解析预占状态
func ParseReservationStatus(s string) (ReservationStatus, error) {
	st := ReservationStatus(s)
	if !st.Valid() {
		return "", ErrInvalidReservationStatus
	}
	return st, nil
}

// Reservation 订单预占记录
// Quantity是预占总量，FulfilledQuantity是已履约数量，支持分批发货
type Reservation struct {
	ID                uint
	ProductID         uint
	OrderID           string
	Quantity          int
	FulfilledQuantity int
	Status            ReservationStatus
	ReservedAt        time.Time
	ExpiresAt         *time.Time
	ClosedAt          *time.Time
	UpdatedAt         time.Time
}

// NewReservation 创建有效预占
func NewReservation(productID uint, orderID string, quantity int, expiresAt *time.Time, now time.Time) *Reservation {
	return &Reservation{
		ProductID:  productID,
		OrderID:    orderID,
		Quantity:   quantity,
		Status:     ReservationActive,
		ReservedAt: now,
		ExpiresAt:  expiresAt,
		UpdatedAt:  now,
	}
}

// Remaining 尚未履约的预占数量
func (r *Reservation) Remaining() int {
	return r.Quantity - r.FulfilledQuantity
}

// IsActive 是否有效
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// IsDue 是否已到过期时间
func (r *Reservation) IsDue(now time.Time) bool {
	return r.IsActive() && r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// CanTransitionTo 检查状态转换是否合法
func (r *Reservation) CanTransitionTo(target ReservationStatus) bool {
	for _, allowed := range reservationTransitions[r.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
func (r *Reservation) TransitionTo(target ReservationStatus, now time.Time) error {
	if !r.CanTransitionTo(target) {
		return ErrInvalidReservationState
	}
	r.Status = target
	r.ClosedAt = &now
	r.UpdatedAt = now
	return nil
}

// Fulfill 履约quantity件，剩余为0时转为fulfilled
func (r *Reservation) Fulfill(quantity int, now time.Time) error {
	if !r.IsActive() || quantity > r.Remaining() {
		return ErrInvalidReservationState
	}
	r.FulfilledQuantity += quantity
	r.UpdatedAt = now
	if r.Remaining() == 0 {
		return r.TransitionTo(ReservationFulfilled, now)
	}
	return nil
}
