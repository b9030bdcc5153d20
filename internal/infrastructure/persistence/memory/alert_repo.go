package memory

import (
	"context"
	"sort"

	"github.com/xiebiao/stockledger/internal/domain/alert"
)

type alertRepository struct {
	store *Store
}

// NewAlertRepository 创建告警仓储
func NewAlertRepository(store *Store) alert.Repository {
	return &alertRepository{store: store}
}

func cloneAlert(a *alert.Alert) *alert.Alert {
	c := *a
	return &c
}

func (r *alertRepository) Create(ctx context.Context, a *alert.Alert) error {
	return r.store.write(ctx, func(tx *txState) error {
		// 同一(商品, 类型)最多一条未关闭告警
		for _, cur := range r.store.alerts {
			if cur.ProductID == a.ProductID && cur.Type == a.Type && cur.IsOpen() {
				return alert.ErrInvalidStateTransition
			}
		}

		r.store.alertSeq++
		a.ID = r.store.alertSeq
		r.store.alerts[a.ID] = cloneAlert(a)

		id := a.ID
		record(tx, func() {
			delete(r.store.alerts, id)
			r.store.alertSeq--
		})
		return nil
	})
}

func (r *alertRepository) FindByID(ctx context.Context, id uint) (*alert.Alert, error) {
	var found *alert.Alert
	r.store.read(ctx, func() {
		if a, ok := r.store.alerts[id]; ok {
			found = cloneAlert(a)
		}
	})
	if found == nil {
		return nil, alert.ErrAlertNotFound
	}
	return found, nil
}

func (r *alertRepository) FindOpenByProduct(ctx context.Context, productID uint) ([]*alert.Alert, error) {
	var items []*alert.Alert
	r.store.read(ctx, func() {
		for _, a := range r.store.alerts {
			if a.ProductID == productID && a.IsOpen() {
				items = append(items, cloneAlert(a))
			}
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Refresh 只复制数值列
func (r *alertRepository) Refresh(ctx context.Context, a *alert.Alert) (bool, error) {
	return r.modify(ctx, a.ID, alert.OpenStatuses, func(next *alert.Alert) {
		next.CurrentStock = a.CurrentStock
		next.ReorderPoint = a.ReorderPoint
		next.Threshold = a.Threshold
		next.SuggestedReorderQuantity = a.SuggestedReorderQuantity
		next.UpdatedAt = a.UpdatedAt
	})
}

// UpdateStatus 只复制状态列，handled_by与notes为空时保留原值
func (r *alertRepository) UpdateStatus(ctx context.Context, a *alert.Alert, expected ...alert.Status) (bool, error) {
	return r.modify(ctx, a.ID, expected, func(next *alert.Alert) {
		next.Status = a.Status
		next.UpdatedAt = a.UpdatedAt
		next.ResolvedAt = a.ResolvedAt
		if a.HandledBy != "" {
			next.HandledBy = a.HandledBy
		}
		if a.Notes != "" {
			next.Notes = a.Notes
		}
	})
}

// modify 当前状态属于expected时在副本上应用apply
func (r *alertRepository) modify(ctx context.Context, id uint, expected []alert.Status, apply func(next *alert.Alert)) (bool, error) {
	var updated bool
	err := r.store.write(ctx, func(tx *txState) error {
		cur, ok := r.store.alerts[id]
		if !ok {
			return alert.ErrAlertNotFound
		}
		for _, s := range expected {
			if cur.Status == s {
				updated = true
				break
			}
		}
		if !updated {
			return nil
		}
		next := cloneAlert(cur)
		apply(next)
		r.store.alerts[id] = next
		record(tx, func() { r.store.alerts[id] = cur })
		return nil
	})
	return updated, err
}

func (r *alertRepository) List(ctx context.Context, filter alert.Filter) ([]*alert.Alert, int64, error) {
	var items []*alert.Alert
	r.store.read(ctx, func() {
		for _, a := range r.store.alerts {
			if filter.ProductID != 0 && a.ProductID != filter.ProductID {
				continue
			}
			if filter.Type != "" && a.Type != filter.Type {
				continue
			}
			if filter.Status != "" && a.Status != filter.Status {
				continue
			}
			items = append(items, cloneAlert(a))
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return page(items, filter.Limit, filter.Offset), int64(len(items)), nil
}
