package alert

import (
	"context"
	"time"

	"github.com/xiebiao/stockledger/internal/domain/stock"
)

// Evaluation 一次评估的结果
type Evaluation struct {
	Raised   []*Alert // 新建（提交后需要通知）
	Updated  []*Alert
	Resolved []*Alert
}

// Engine 补货告警引擎
// 每次库存变更后在同一事务中调用Evaluate：
//   - 已有未关闭告警：条件仍成立则刷新数值，条件消失则自动resolved
//   - 没有未关闭告警：只在本次变更中条件由假变真时新建active告警，
//     人工关闭后条件一直成立不会重复告警
//   - discontinued商品不评估，已有告警全部关闭
type Engine struct {
	repo   Repository
	policy *Policy
	now    func() time.Time
}

// NewEngine 创建告警引擎
func NewEngine(repo Repository, policy *Policy) *Engine {
	return &Engine{repo: repo, policy: policy, now: time.Now}
}

// Policy 阈值策略
func (e *Engine) Policy() *Policy {
	return e.policy
}

// Evaluate before为nil表示新建商品
func (e *Engine) Evaluate(ctx context.Context, before, after *stock.ProductStock) (*Evaluation, error) {
	open, err := e.repo.FindOpenByProduct(ctx, after.ID)
	if err != nil {
		return nil, err
	}

	byType := make(map[Type]*Alert, len(open))
	for _, a := range open {
		byType[a.Type] = a
	}

	now := e.now()
	result := &Evaluation{}

	if after.Status == stock.StatusDiscontinued {
		for _, a := range open {
			if err := e.resolve(ctx, a, now, result); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	th := e.policy.ThresholdsFor(after)
	var prevTh Thresholds
	if before != nil {
		prevTh = e.policy.ThresholdsFor(before)
	}

	for _, t := range Types {
		holdsNow := holds(t, after, th)
		heldBefore := before != nil && before.Status != stock.StatusDiscontinued && holds(t, before, prevTh)
		existing := byType[t]

		switch {
		case existing != nil && holdsNow:
			e.refresh(existing, t, after, th, now)
			ok, err := e.repo.Refresh(ctx, existing)
			if err != nil {
				return nil, err
			}
			if ok {
				result.Updated = append(result.Updated, existing)
			}

		case existing != nil && !holdsNow:
			if err := e.resolve(ctx, existing, now, result); err != nil {
				return nil, err
			}

		case existing == nil && holdsNow && !heldBefore:
			a := &Alert{
				ProductID: after.ID,
				Type:      t,
				Status:    StatusActive,
				CreatedAt: now,
			}
			e.refresh(a, t, after, th, now)
			if err := e.repo.Create(ctx, a); err != nil {
				return nil, err
			}
			result.Raised = append(result.Raised, a)
		}
	}

	return result, nil
}

func (e *Engine) refresh(a *Alert, t Type, ps *stock.ProductStock, th Thresholds, now time.Time) {
	a.ReorderPoint = ps.ReorderPoint
	a.SuggestedReorderQuantity = suggestedQuantity(t, ps, th)
	if t == TypeOverstock {
		a.CurrentStock = ps.PhysicalStock
		a.Threshold = th.Overstock
	} else {
		a.CurrentStock = ps.Available()
		a.Threshold = th.LowStock
	}
	a.UpdatedAt = now
}

func (e *Engine) resolve(ctx context.Context, a *Alert, now time.Time, result *Evaluation) error {
	a.resolve(now)
	ok, err := e.repo.UpdateStatus(ctx, a, OpenStatuses...)
	if err != nil {
		return err
	}
	if ok {
		result.Resolved = append(result.Resolved, a)
	}
	return nil
}
