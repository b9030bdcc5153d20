package alert

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/infrastructure/config"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

// Service 补货告警的人工处理与查询
// 告警的创建和自动关闭由账本事务内的引擎负责
type Service struct {
	repo   alert.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService 创建告警服务
func NewService(repo alert.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// StatusRequest 人工处理请求
type StatusRequest struct {
	AlertID   uint
	Status    alert.Status
	HandledBy string
	Notes     string
}

// UpdateAlertStatus 只有active告警可以被确认、解决或忽略
func (s *Service) UpdateAlertStatus(ctx context.Context, req StatusRequest) (*alert.Alert, error) {
	handledBy := strings.TrimSpace(req.HandledBy)
	if handledBy == "" {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidParams, "处理人不能为空")
	}

	a, err := s.repo.FindByID(ctx, req.AlertID)
	if err != nil {
		return nil, err
	}
	if err := a.TransitionTo(req.Status, handledBy, strings.TrimSpace(req.Notes), s.now()); err != nil {
		return nil, err
	}

	// 与引擎的自动关闭竞争：只有仍为active时才写入，引擎刷新的数值列不受影响
	ok, err := s.repo.UpdateStatus(ctx, a, alert.StatusActive)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, alert.ErrInvalidStateTransition
	}

	s.logger.Info("补货告警处理",
		zap.Uint("alert_id", a.ID),
		zap.Uint("product_id", a.ProductID),
		zap.String("status", string(a.Status)),
		zap.String("handled_by", handledBy),
	)
	return a, nil
}

// GetAlert 查询告警
func (s *Service) GetAlert(ctx context.Context, id uint) (*alert.Alert, error) {
	return s.repo.FindByID(ctx, id)
}

// ListAlerts 分页查询告警
func (s *Service) ListAlerts(ctx context.Context, filter alert.Filter) ([]*alert.Alert, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// NewPolicy 由配置构建阈值策略
// 类目配置中留空的百分比沿用全局默认值
func NewPolicy(cfg *config.Config) (*alert.Policy, error) {
	low, err := requirePercent(cfg.Alerts.Defaults.LowStockPercent, "20")
	if err != nil {
		return nil, err
	}
	over, err := requirePercent(cfg.Alerts.Defaults.OverstockPercent, "100")
	if err != nil {
		return nil, err
	}

	categories := make(map[string]alert.Override, len(cfg.Alerts.Categories))
	for name, th := range cfg.Alerts.Categories {
		var o alert.Override
		if o.LowStock, err = alert.ParsePercent(th.LowStockPercent); err != nil {
			return nil, err
		}
		if o.Overstock, err = alert.ParsePercent(th.OverstockPercent); err != nil {
			return nil, err
		}
		categories[name] = o
	}

	return alert.NewPolicy(alert.Percentages{LowStock: low, Overstock: over}, categories)
}

func requirePercent(s, fallback string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		s = fallback
	}
	p, err := alert.ParsePercent(s)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Decimal, nil
}
