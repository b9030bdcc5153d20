package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

// ReturnRequest 退货入库请求
type ReturnRequest struct {
	ProductID   uint
	OrderID     string
	Quantity    int
	Reason      string
	PerformedBy string
}

// ProcessReturn 退货入库，实物库存增加
// 已下架商品同样接受退货
func (s *Service) ProcessReturn(ctx context.Context, req ReturnRequest) (*Result, error) {
	if req.Quantity <= 0 {
		return nil, stock.ErrInvalidQuantity
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, stock.ErrInvalidOrderID
	}

	return s.mutate(ctx, "return", req.ProductID, func(_ context.Context, p *stock.ProductStock, _ time.Time) (*change, error) {
		p.PhysicalStock += req.Quantity
		return &change{
			op:          audit.OpReturnProcessing,
			quantity:    req.Quantity,
			orderID:     orderID,
			reason:      req.Reason,
			performedBy: req.PerformedBy,
		}, nil
	})
}

// ReceiptRequest 补货到货请求
type ReceiptRequest struct {
	ProductID   uint
	Quantity    int
	Reference   string // 采购单号等
	PerformedBy string
}

// ReceiveReorder 供应商补货到货
func (s *Service) ReceiveReorder(ctx context.Context, req ReceiptRequest) (*Result, error) {
	if req.Quantity <= 0 {
		return nil, stock.ErrInvalidQuantity
	}

	return s.mutate(ctx, "receive", req.ProductID, func(_ context.Context, p *stock.ProductStock, _ time.Time) (*change, error) {
		p.PhysicalStock += req.Quantity
		return &change{
			op:          audit.OpReorderReceived,
			quantity:    req.Quantity,
			reason:      req.Reference,
			performedBy: req.PerformedBy,
		}, nil
	})
}

// StockCheck 库存校验结果
type StockCheck struct {
	ProductID  uint         `json:"product_id"`
	Available  int          `json:"available_stock"`
	Requested  int          `json:"requested_quantity"`
	Sufficient bool         `json:"sufficient"`
	Sellable   bool         `json:"sellable"`
	Status     stock.Status `json:"stock_status"`
}

// ValidateStock 只读校验可售库存是否满足quantity
func (s *Service) ValidateStock(ctx context.Context, productID uint, quantity int) (*StockCheck, error) {
	if quantity <= 0 {
		return nil, stock.ErrInvalidQuantity
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &StockCheck{
		ProductID:  p.ID,
		Available:  p.Available(),
		Requested:  quantity,
		Sufficient: p.IsSellable() && p.Available() >= quantity,
		Sellable:   p.IsSellable(),
		Status:     p.Status,
	}, nil
}

// PhysicalChange 直接改写实物库存（库存调整审批使用）
type PhysicalChange struct {
	ProductID    uint
	AdjustmentID uint
	Reason       string
	PerformedBy  string

	// Target 根据当前库存计算新的实物库存，每次重试都会重新调用
	Target func(current *stock.ProductStock) (int, error)

	// InTx 在同一事务中执行，返回error时整个变更回滚
	InTx func(txCtx context.Context, before, after *stock.ProductStock) error
}

// ApplyPhysicalStock 把实物库存改为Target计算出的值，写一条manual_adjustment审计
// 新值低于已预占数量时返回ErrInsufficientStock
func (s *Service) ApplyPhysicalStock(ctx context.Context, req PhysicalChange) (*Result, error) {
	if req.Target == nil {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidParams, "缺少目标库存计算函数")
	}

	return s.mutate(ctx, "apply_physical", req.ProductID, func(_ context.Context, p *stock.ProductStock, _ time.Time) (*change, error) {
		target, err := req.Target(p)
		if err != nil {
			return nil, err
		}
		if target < 0 {
			return nil, stock.ErrNegativeStock
		}
		if target < p.ReservedStock {
			return nil, apperrors.Newf(apperrors.ErrCodeInsufficientStock,
				"调整后实物库存%d低于已预占数量%d", target, p.ReservedStock)
		}

		delta := target - p.PhysicalStock
		if delta < 0 {
			delta = -delta
		}
		p.PhysicalStock = target
		return &change{
			op:           audit.OpManualAdjustment,
			quantity:     delta,
			adjustmentID: req.AdjustmentID,
			reason:       req.Reason,
			performedBy:  req.PerformedBy,
			inTx:         req.InTx,
		}, nil
	})
}
