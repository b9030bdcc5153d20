package memory

import (
	"context"

	"github.com/xiebiao/stockledger/internal/domain/audit"
)

type auditRepository struct {
	store *Store
}

// NewAuditRepository 创建审计日志仓储
func NewAuditRepository(store *Store) audit.Repository {
	return &auditRepository{store: store}
}

func (r *auditRepository) Append(ctx context.Context, e *audit.Entry) error {
	if !e.Operation.Valid() {
		return audit.ErrInvalidOperationType
	}
	return r.store.write(ctx, func(tx *txState) error {
		r.store.auditSeq++
		e.ID = r.store.auditSeq
		c := *e
		r.store.audits = append(r.store.audits, &c)

		n := len(r.store.audits) - 1
		record(tx, func() {
			r.store.audits = r.store.audits[:n]
			r.store.auditSeq--
		})
		return nil
	})
}

func (r *auditRepository) List(ctx context.Context, filter audit.Filter) ([]*audit.Entry, int64, error) {
	var items []*audit.Entry
	r.store.read(ctx, func() {
		// 倒序：最新的在前
		for i := len(r.store.audits) - 1; i >= 0; i-- {
			e := r.store.audits[i]
			if !matchAudit(e, filter) {
				continue
			}
			c := *e
			items = append(items, &c)
		}
	})
	return page(items, filter.Limit, filter.Offset), int64(len(items)), nil
}

func matchAudit(e *audit.Entry, f audit.Filter) bool {
	if f.ProductID != 0 && e.ProductID != f.ProductID {
		return false
	}
	if f.OrderID != "" && e.OrderID != f.OrderID {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func (r *auditRepository) SumPhysicalChange(ctx context.Context, productID uint) (int64, error) {
	var sum int64
	r.store.read(ctx, func() {
		for _, e := range r.store.audits {
			if e.ProductID == productID {
				sum += int64(e.PhysicalChange())
			}
		}
	})
	return sum, nil
}
