package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
	"github.com/xiebiao/stockledger/pkg/metrics"
	"github.com/xiebiao/stockledger/pkg/tracing"
)

// ReorderSettings 补货参数
type ReorderSettings struct {
	ReorderPoint     int
	ReorderQuantity  int
	MaxStockLevel    int
	LowStockPercent  decimal.NullDecimal
	OverstockPercent decimal.NullDecimal
}

func (rs ReorderSettings) validate() error {
	if rs.ReorderPoint < 0 || rs.ReorderQuantity < 0 || rs.MaxStockLevel < 0 {
		return stock.ErrInvalidReorderSettings
	}
	return alert.Override{LowStock: rs.LowStockPercent, Overstock: rs.OverstockPercent}.Validate()
}

func (rs ReorderSettings) applyTo(p *stock.ProductStock) {
	p.ReorderPoint = rs.ReorderPoint
	p.ReorderQuantity = rs.ReorderQuantity
	p.MaxStockLevel = rs.MaxStockLevel
	p.LowStockPercent = rs.LowStockPercent
	p.OverstockPercent = rs.OverstockPercent
}

// CreateProductRequest 建档请求，ID由商品目录分配
type CreateProductRequest struct {
	ID            uint
	SKU           string
	Category      string
	PhysicalStock int
	Settings      ReorderSettings
}

// CreateProduct 为新商品建立库存记录
// 建档不写审计，初始实物库存记入InitialPhysicalStock用于对账
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (p *stock.ProductStock, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracing.LedgerTracer, "ledger.create_product")
	defer func() {
		tracing.End(span, err)
		metrics.ObserveLedgerOperation("create_product", start, err)
	}()

	if req.ID == 0 {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidParams, "商品ID不能为空")
	}
	if req.PhysicalStock < 0 {
		return nil, stock.ErrNegativeStock
	}
	if err := req.Settings.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	p = &stock.ProductStock{
		ID:                   req.ID,
		SKU:                  strings.TrimSpace(req.SKU),
		Category:             strings.TrimSpace(req.Category),
		PhysicalStock:        req.PhysicalStock,
		InitialPhysicalStock: req.PhysicalStock,
		Status:               stock.StatusInStock,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	req.Settings.applyTo(p)
	p.Status = s.engine.Policy().StockStatus(p)

	var ev *alert.Evaluation
	err = s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		if err := s.products.Create(txCtx, p); err != nil {
			return err
		}
		ev, err = s.engine.Evaluate(txCtx, nil, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("商品库存建档",
		zap.Uint("product_id", p.ID),
		zap.String("sku", p.SKU),
		zap.Int("physical_stock", p.PhysicalStock),
	)
	s.afterCommit(ctx, ev)
	return p, nil
}

// GetProduct 查询商品库存
func (s *Service) GetProduct(ctx context.Context, productID uint) (*stock.ProductStock, error) {
	return s.products.FindByID(ctx, productID)
}

// ListProducts 分页查询商品库存
func (s *Service) ListProducts(ctx context.Context, filter stock.ProductFilter) ([]*stock.ProductStock, int64, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.products.List(ctx, filter)
}

// UpdateProductStatus 人工设置销售状态
// discontinued/on_hold不再随库存变化；active恢复按库存计算
func (s *Service) UpdateProductStatus(ctx context.Context, productID uint, target stock.Availability) (*Result, error) {
	return s.mutate(ctx, "update_status", productID, func(_ context.Context, p *stock.ProductStock, _ time.Time) (*change, error) {
		if err := p.ChangeAvailability(target); err != nil {
			return nil, err
		}
		return &change{}, nil
	})
}

// UpdateReorderSettings 整体替换补货参数和商品级阈值覆盖
func (s *Service) UpdateReorderSettings(ctx context.Context, productID uint, settings ReorderSettings) (*Result, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "update_settings", productID, func(_ context.Context, p *stock.ProductStock, _ time.Time) (*change, error) {
		settings.applyTo(p)
		return &change{}, nil
	})
}

// ReconcileReport 对账结果
// Consistent表示审计记录的实物变化量之和 = 当前实物库存 - 建档库存
type ReconcileReport struct {
	ProductID            uint  `json:"product_id"`
	InitialPhysicalStock int   `json:"initial_physical_stock"`
	CurrentPhysicalStock int   `json:"current_physical_stock"`
	AuditPhysicalChange  int64 `json:"audit_physical_change"`
	Discrepancy          int64 `json:"discrepancy"`
	Consistent           bool  `json:"consistent"`
}

// Reconcile 用审计日志核对实物库存
func (s *Service) Reconcile(ctx context.Context, productID uint) (*ReconcileReport, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	sum, err := s.audits.SumPhysicalChange(ctx, productID)
	if err != nil {
		return nil, err
	}

	expected := int64(p.PhysicalStock - p.InitialPhysicalStock)
	report := &ReconcileReport{
		ProductID:            p.ID,
		InitialPhysicalStock: p.InitialPhysicalStock,
		CurrentPhysicalStock: p.PhysicalStock,
		AuditPhysicalChange:  sum,
		Discrepancy:          expected - sum,
		Consistent:           expected == sum,
	}
	if !report.Consistent {
		s.logger.Error("库存对账不一致",
			zap.Uint("product_id", productID),
			zap.Int64("expected", expected),
			zap.Int64("audit_sum", sum),
		)
	}
	return report, nil
}

// ListAuditLogs 查询审计日志
func (s *Service) ListAuditLogs(ctx context.Context, filter audit.Filter) ([]*audit.Entry, int64, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return s.audits.List(ctx, filter)
}

// normalizePage 默认每页20条，最多100条
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
