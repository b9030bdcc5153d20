package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
	"github.com/xiebiao/stockledger/pkg/metrics"
	"github.com/xiebiao/stockledger/pkg/tracing"
)

// TxManager 事务管理器
// fn内所有仓储操作在同一事务中执行，fn返回error时回滚
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Config 乐观锁重试配置
type Config struct {
	MaxRetries   uint64
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultConfig 默认重试5次
func DefaultConfig() Config {
	return Config{
		MaxRetries:   5,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
	}
}

// Service 库存账本
//
// 每个变更操作的流程：
//  1. 事务外读取商品快照（版本V），在副本上计算变更
//  2. 事务内：UPDATE ... WHERE version = V + 写预占 + 追加审计 + 告警评估
//  3. 版本冲突时按指数退避重试，其他错误直接返回
//  4. 提交后发送新告警通知，失败只记日志
//
// 同一商品的预占记录变化都会使商品版本+1，
// 所以先读商品再读预占，CAS成功即说明读到的预占没有被并发修改
type Service struct {
	txManager    TxManager
	products     stock.Repository
	reservations stock.ReservationRepository
	audits       audit.Repository
	engine       *alert.Engine
	notifier     alert.Notifier
	logger       *zap.Logger
	cfg          Config
	now          func() time.Time
}

// NewService 创建库存账本
func NewService(
	txManager TxManager,
	products stock.Repository,
	reservations stock.ReservationRepository,
	audits audit.Repository,
	engine *alert.Engine,
	notifier alert.Notifier,
	logger *zap.Logger,
	cfg Config,
) *Service {
	if notifier == nil {
		notifier = alert.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		txManager:    txManager,
		products:     products,
		reservations: reservations,
		audits:       audits,
		engine:       engine,
		notifier:     notifier,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Result 一次变更的结果
type Result struct {
	Product     *stock.ProductStock
	Reservation *stock.Reservation
	Entry       *audit.Entry // 不写审计的操作为nil
	Alerts      *alert.Evaluation
}

// change 在商品副本上计算出的变更
// op为空表示不写审计（状态、补货参数变更）
type change struct {
	op           audit.OperationType
	quantity     int
	orderID      string
	adjustmentID uint
	reason       string
	performedBy  string

	reservation       *stock.Reservation
	createReservation bool

	// inTx 与库存变更在同一事务中执行的附加写入
	inTx func(txCtx context.Context, before, after *stock.ProductStock) error
}

// planFunc 根据快照计算变更，p是可修改的副本
// 返回(nil, nil)表示无需变更
type planFunc func(ctx context.Context, p *stock.ProductStock, now time.Time) (*change, error)

// mutate 执行一次带乐观锁重试的库存变更
// 返回nil Result表示plan判定无需变更
func (s *Service) mutate(ctx context.Context, operation string, productID uint, plan planFunc) (result *Result, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracing.LedgerTracer, "ledger."+operation)
	defer func() {
		tracing.End(span, err)
		metrics.ObserveLedgerOperation(operation, start, err)
	}()

	attempt := func() error {
		r, err := s.attempt(ctx, productID, plan)
		if err == nil {
			result = r
			return nil
		}
		if errors.Is(err, stock.ErrVersionConflict) {
			metrics.IncCASConflict(operation)
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Debug("库存版本冲突，准备重试",
			zap.String("operation", operation),
			zap.Uint("product_id", productID),
			zap.Duration("wait", wait),
		)
	}

	err = backoff.RetryNotify(attempt, s.retryPolicy(ctx), notify)
	if err != nil {
		if errors.Is(err, stock.ErrVersionConflict) {
			s.logger.Warn("库存并发修改重试耗尽",
				zap.String("operation", operation),
				zap.Uint("product_id", productID),
				zap.Uint64("max_retries", s.cfg.MaxRetries),
			)
			err = apperrors.ErrConcurrentModification
		}
		return nil, err
	}

	if result != nil {
		s.afterCommit(ctx, result.Alerts)
	}
	return result, nil
}

func (s *Service) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialDelay
	b.MaxInterval = s.cfg.MaxDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.MaxRetries), ctx)
}

// attempt 一次读取-计算-提交
func (s *Service) attempt(ctx context.Context, productID uint, plan planFunc) (*Result, error) {
	before, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	after := before.Clone()
	c, err := plan(ctx, after, now)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	after.Status = s.engine.Policy().StockStatus(after)
	after.UpdatedAt = now
	if err := after.Validate(); err != nil {
		return nil, err
	}

	result := &Result{Product: after, Reservation: c.reservation}
	err = s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		if err := s.products.UpdateWithVersion(txCtx, after, before.Version); err != nil {
			return err
		}

		if c.reservation != nil {
			write := s.reservations.Update
			if c.createReservation {
				write = s.reservations.Create
			}
			if err := write(txCtx, c.reservation); err != nil {
				return err
			}
		}

		if c.op != "" {
			entry := audit.NewEntry(productID, c.op,
				audit.Snapshot{Physical: before.PhysicalStock, Reserved: before.ReservedStock},
				audit.Snapshot{Physical: after.PhysicalStock, Reserved: after.ReservedStock},
				c.quantity,
			)
			entry.OrderID = c.orderID
			entry.AdjustmentID = c.adjustmentID
			entry.Reason = c.reason
			entry.PerformedBy = c.performedBy
			entry.VersionAfter = after.Version
			entry.CreatedAt = now
			if c.reservation != nil {
				entry.ReservationID = c.reservation.ID
			}
			if err := s.audits.Append(txCtx, entry); err != nil {
				return err
			}
			result.Entry = entry
		}

		if c.inTx != nil {
			if err := c.inTx(txCtx, before, after); err != nil {
				return err
			}
		}

		ev, err := s.engine.Evaluate(txCtx, before, after)
		if err != nil {
			return err
		}
		result.Alerts = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// afterCommit 记录告警指标并发送新告警通知
func (s *Service) afterCommit(ctx context.Context, ev *alert.Evaluation) {
	if ev == nil {
		return
	}
	for _, a := range ev.Resolved {
		metrics.IncAlertResolved(string(a.Type))
	}
	for _, a := range ev.Raised {
		metrics.IncAlertRaised(string(a.Type))
		s.logger.Info("新补货告警",
			zap.Uint("alert_id", a.ID),
			zap.Uint("product_id", a.ProductID),
			zap.String("alert_type", string(a.Type)),
			zap.Int("current_stock", a.CurrentStock),
		)
		if err := s.notifier.Notify(ctx, a); err != nil {
			s.logger.Warn("告警通知发送失败",
				zap.Uint("alert_id", a.ID),
				zap.Error(err),
			)
		}
	}
}
