package adjustment

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/internal/application/ledger"
	"github.com/xiebiao/stockledger/internal/domain/adjustment"
	"github.com/xiebiao/stockledger/internal/domain/stock"
)

// Service 库存调整审批流程
// 创建只登记申请；审批通过时经账本按当时库存计算新值，
// 调整单状态与库存变更在同一事务中提交
type Service struct {
	repo     adjustment.Repository
	products stock.Repository
	ledger   *ledger.Service
	logger   *zap.Logger
	now      func() time.Time
}

// NewService 创建调整审批服务
func NewService(repo adjustment.Repository, products stock.Repository, ledgerSvc *ledger.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		products: products,
		ledger:   ledgerSvc,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRequest 调整申请
type CreateRequest struct {
	ProductID   uint
	Type        adjustment.Type
	Reason      adjustment.ReasonCode
	Quantity    int
	RequestedBy string
	Notes       string
}

// CreateAdjustment 创建待审批的调整单，不改动库存
func (s *Service) CreateAdjustment(ctx context.Context, req CreateRequest) (*adjustment.Adjustment, error) {
	requestedBy := strings.TrimSpace(req.RequestedBy)
	if requestedBy == "" {
		return nil, adjustment.ErrMissingOperator
	}

	p, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	a, err := adjustment.NewAdjustment(p.ID, req.Type, req.Reason, req.Quantity, p.PhysicalStock,
		requestedBy, strings.TrimSpace(req.Notes), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("库存调整申请",
		zap.Uint("adjustment_id", a.ID),
		zap.Uint("product_id", a.ProductID),
		zap.String("type", string(a.Type)),
		zap.String("reason", string(a.Reason)),
		zap.Int("quantity", a.Quantity),
		zap.String("requested_by", a.RequestedBy),
	)
	return a, nil
}

// DecisionRequest 审批请求
type DecisionRequest struct {
	AdjustmentID uint
	Decision     adjustment.ApprovalStatus // approved | rejected
	Approver     string
	Notes        string
}

// Decision 审批结果
type Decision struct {
	Adjustment *adjustment.Adjustment
	Ledger     *ledger.Result // 驳回时为nil
}

// ApproveAdjustment 审批调整单
// 非pending返回ErrInvalidStateTransition；
// 通过后新库存低于已预占时返回ErrInsufficientStock，调整单保持pending；
// 审批时计算出的新库存与当前相同返回ErrNoEffect，同样保持pending
func (s *Service) ApproveAdjustment(ctx context.Context, req DecisionRequest) (*Decision, error) {
	approver := strings.TrimSpace(req.Approver)
	if approver == "" {
		return nil, adjustment.ErrMissingOperator
	}
	if req.Decision != adjustment.StatusApproved && req.Decision != adjustment.StatusRejected {
		return nil, adjustment.ErrInvalidDecision
	}

	a, err := s.repo.FindByID(ctx, req.AdjustmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsPending() {
		return nil, adjustment.ErrInvalidStateTransition
	}

	if req.Decision == adjustment.StatusRejected {
		if err := a.Reject(approver, req.Notes, s.now()); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateDecision(ctx, a, adjustment.StatusPending); err != nil {
			return nil, err
		}
		s.logger.Info("库存调整驳回",
			zap.Uint("adjustment_id", a.ID),
			zap.String("approved_by", approver),
		)
		return &Decision{Adjustment: a}, nil
	}

	var approved *adjustment.Adjustment
	res, err := s.ledger.ApplyPhysicalStock(ctx, ledger.PhysicalChange{
		ProductID:    a.ProductID,
		AdjustmentID: a.ID,
		Reason:       string(a.Reason),
		PerformedBy:  approver,
		Target: func(current *stock.ProductStock) (int, error) {
			// 申请后库存已变化到目标值（或减少时已为0），不产生空调整
			next := a.ComputeNewPhysical(current.PhysicalStock)
			if next == current.PhysicalStock {
				return 0, adjustment.ErrNoEffect
			}
			return next, nil
		},
		InTx: func(txCtx context.Context, before, after *stock.ProductStock) error {
			// 每次重试都从pending副本开始
			next := *a
			if err := next.Approve(approver, req.Notes, before.PhysicalStock, after.PhysicalStock, s.now()); err != nil {
				return err
			}
			if err := s.repo.UpdateDecision(txCtx, &next, adjustment.StatusPending); err != nil {
				return err
			}
			approved = &next
			return nil
		},
	})
	if err != nil {
		s.logger.Warn("库存调整审批失败",
			zap.Uint("adjustment_id", a.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("库存调整生效",
		zap.Uint("adjustment_id", approved.ID),
		zap.Uint("product_id", approved.ProductID),
		zap.Int("previous_physical_stock", approved.PreviousPhysicalStock),
		zap.Int("new_physical_stock", res.Product.PhysicalStock),
		zap.String("approved_by", approver),
	)
	return &Decision{Adjustment: approved, Ledger: res}, nil
}

// GetAdjustment 查询调整单
func (s *Service) GetAdjustment(ctx context.Context, id uint) (*adjustment.Adjustment, error) {
	return s.repo.FindByID(ctx, id)
}

// ListAdjustments 分页查询调整单
func (s *Service) ListAdjustments(ctx context.Context, filter adjustment.Filter) ([]*adjustment.Adjustment, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}
