package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

// ReasonReservationExpired 过期释放的审计原因
const ReasonReservationExpired = "reservation expired"

// ReserveRequest 预占请求
type ReserveRequest struct {
	ProductID   uint
	OrderID     string
	Quantity    int
	ExpiresAt   *time.Time // 为空表示不过期
	PerformedBy string
}

// Reserve 为订单预占库存
// 下架/冻结的商品返回ErrProductUnavailable，可售不足返回ErrInsufficientStock
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*Result, error) {
	if req.Quantity <= 0 {
		return nil, stock.ErrInvalidQuantity
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, stock.ErrInvalidOrderID
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, stock.ErrInvalidExpiry
	}

	return s.mutate(ctx, "reserve", req.ProductID, func(ctx context.Context, p *stock.ProductStock, now time.Time) (*change, error) {
		if !p.IsSellable() {
			return nil, apperrors.Newf(apperrors.ErrCodeProductUnavailable,
				"商品%d当前状态为%s，不能预占", p.ID, p.Status)
		}

		latest, err := s.reservations.FindLatestByOrder(ctx, p.ID, orderID)
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.IsActive() {
			return nil, apperrors.Newf(apperrors.ErrCodeInvalidReservationState,
				"订单%s已有有效预占(id=%d)", orderID, latest.ID)
		}

		if p.Available() < req.Quantity {
			return nil, apperrors.Newf(apperrors.ErrCodeInsufficientStock,
				"可用库存不足，可用:%d，需要:%d", p.Available(), req.Quantity)
		}

		p.ReservedStock += req.Quantity
		return &change{
			op:                audit.OpOrderReservation,
			quantity:          req.Quantity,
			orderID:           orderID,
			performedBy:       req.PerformedBy,
			reservation:       stock.NewReservation(p.ID, orderID, req.Quantity, req.ExpiresAt, now),
			createReservation: true,
		}, nil
	})
}

// FulfillRequest 履约请求
type FulfillRequest struct {
	ProductID   uint
	OrderID     string
	Quantity    int
	PerformedBy string
}

// FulfillOrder 订单发货，扣减实物库存并释放对应预占
// 支持分批履约，剩余数量为0时预占转为fulfilled
func (s *Service) FulfillOrder(ctx context.Context, req FulfillRequest) (*Result, error) {
	if req.Quantity <= 0 {
		return nil, stock.ErrInvalidQuantity
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, stock.ErrInvalidOrderID
	}

	return s.mutate(ctx, "fulfill", req.ProductID, func(ctx context.Context, p *stock.ProductStock, now time.Time) (*change, error) {
		r, err := s.activeReservation(ctx, p.ID, orderID)
		if err != nil {
			return nil, err
		}
		if req.Quantity > r.Remaining() {
			return nil, apperrors.Newf(apperrors.ErrCodeInvalidReservationState,
				"履约数量%d超过预占剩余数量%d", req.Quantity, r.Remaining())
		}
		if err := r.Fulfill(req.Quantity, now); err != nil {
			return nil, err
		}

		p.PhysicalStock -= req.Quantity
		p.ReservedStock -= req.Quantity
		return &change{
			op:          audit.OpOrderFulfillment,
			quantity:    req.Quantity,
			orderID:     orderID,
			performedBy: req.PerformedBy,
			reservation: r,
		}, nil
	})
}

// CancelReservation 取消订单预占，释放剩余预占数量
// 预占已是终态时返回ErrInvalidReservationState
func (s *Service) CancelReservation(ctx context.Context, productID uint, orderID, performedBy string) (*Result, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, stock.ErrInvalidOrderID
	}

	return s.mutate(ctx, "cancel", productID, func(ctx context.Context, p *stock.ProductStock, now time.Time) (*change, error) {
		r, err := s.activeReservation(ctx, p.ID, orderID)
		if err != nil {
			return nil, err
		}
		released := r.Remaining()
		if err := r.TransitionTo(stock.ReservationCancelled, now); err != nil {
			return nil, err
		}

		p.ReservedStock -= released
		return &change{
			op:          audit.OpOrderCancellation,
			quantity:    released,
			orderID:     orderID,
			performedBy: performedBy,
			reservation: r,
		}, nil
	})
}

// ExpireIfDue 预占到期则释放，幂等
// 未到期、已终态或没有过期时间时返回false，不做任何修改
func (s *Service) ExpireIfDue(ctx context.Context, reservationID uint, now time.Time) (bool, *Result, error) {
	r, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return false, nil, err
	}
	if !r.IsDue(now) {
		return false, nil, nil
	}

	result, err := s.mutate(ctx, "expire", r.ProductID, func(ctx context.Context, p *stock.ProductStock, at time.Time) (*change, error) {
		// 重新读取，快照之后的变化由版本号保证
		r, err := s.reservations.FindByID(ctx, reservationID)
		if err != nil {
			return nil, err
		}
		if !r.IsDue(now) {
			return nil, nil
		}
		released := r.Remaining()
		if err := r.TransitionTo(stock.ReservationExpired, at); err != nil {
			return nil, err
		}

		p.ReservedStock -= released
		return &change{
			op:          audit.OpOrderCancellation,
			quantity:    released,
			orderID:     r.OrderID,
			reason:      ReasonReservationExpired,
			performedBy: "system",
			reservation: r,
		}, nil
	})
	if err != nil {
		return false, nil, err
	}
	return result != nil, result, nil
}

// activeReservation 订单在商品上最近一条预占，必须是active
func (s *Service) activeReservation(ctx context.Context, productID uint, orderID string) (*stock.Reservation, error) {
	r, err := s.reservations.FindLatestByOrder(ctx, productID, orderID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperrors.Newf(apperrors.ErrCodeReservationNotFound,
			"订单%s在商品%d上没有预占记录", orderID, productID)
	}
	if !r.IsActive() {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidReservationState,
			"订单%s的预占已是%s状态", orderID, r.Status)
	}
	return r, nil
}

// ListDueReservations 已到期但仍为active的预占，供外部定时任务调用ExpireIfDue
func (s *Service) ListDueReservations(ctx context.Context, now time.Time, limit int) ([]*stock.Reservation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.reservations.ListDue(ctx, now, limit)
}

// ListReservations 分页查询预占
func (s *Service) ListReservations(ctx context.Context, filter stock.ReservationFilter) ([]*stock.Reservation, int64, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.reservations.List(ctx, filter)
}
