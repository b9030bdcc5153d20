package memory

import (
	"context"
	"sort"

	"github.com/xiebiao/stockledger/internal/domain/adjustment"
)

type adjustmentRepository struct {
	store *Store
}

// NewAdjustmentRepository 创建调整单仓储
func NewAdjustmentRepository(store *Store) adjustment.Repository {
	return &adjustmentRepository{store: store}
}

func cloneAdjustment(a *adjustment.Adjustment) *adjustment.Adjustment {
	c := *a
	if a.NewPhysicalStock != nil {
		v := *a.NewPhysicalStock
		c.NewPhysicalStock = &v
	}
	return &c
}

func (r *adjustmentRepository) Create(ctx context.Context, a *adjustment.Adjustment) error {
	return r.store.write(ctx, func(tx *txState) error {
		r.store.adjustmentSeq++
		a.ID = r.store.adjustmentSeq
		r.store.adjustments[a.ID] = cloneAdjustment(a)

		id := a.ID
		record(tx, func() {
			delete(r.store.adjustments, id)
			r.store.adjustmentSeq--
		})
		return nil
	})
}

func (r *adjustmentRepository) FindByID(ctx context.Context, id uint) (*adjustment.Adjustment, error) {
	var found *adjustment.Adjustment
	r.store.read(ctx, func() {
		if a, ok := r.store.adjustments[id]; ok {
			found = cloneAdjustment(a)
		}
	})
	if found == nil {
		return nil, adjustment.ErrAdjustmentNotFound
	}
	return found, nil
}

func (r *adjustmentRepository) UpdateDecision(ctx context.Context, a *adjustment.Adjustment, from adjustment.ApprovalStatus) error {
	return r.store.write(ctx, func(tx *txState) error {
		cur, ok := r.store.adjustments[a.ID]
		if !ok {
			return adjustment.ErrAdjustmentNotFound
		}
		if cur.Status != from {
			return adjustment.ErrInvalidStateTransition
		}
		r.store.adjustments[a.ID] = cloneAdjustment(a)
		record(tx, func() { r.store.adjustments[a.ID] = cur })
		return nil
	})
}

func (r *adjustmentRepository) List(ctx context.Context, filter adjustment.Filter) ([]*adjustment.Adjustment, int64, error) {
	var items []*adjustment.Adjustment
	r.store.read(ctx, func() {
		for _, a := range r.store.adjustments {
			if filter.ProductID != 0 && a.ProductID != filter.ProductID {
				continue
			}
			if filter.Status != "" && a.Status != filter.Status {
				continue
			}
			items = append(items, cloneAdjustment(a))
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return page(items, filter.Limit, filter.Offset), int64(len(items)), nil
}
