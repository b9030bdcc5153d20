package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xiebiao/stockledger/internal/domain/stock"
)

type productRepository struct {
	store *Store
}

// NewProductRepository 创建商品库存仓储
func NewProductRepository(store *Store) stock.Repository {
	return &productRepository{store: store}
}

func (r *productRepository) Create(ctx context.Context, p *stock.ProductStock) error {
	return r.store.write(ctx, func(tx *txState) error {
		if _, ok := r.store.products[p.ID]; ok {
			return stock.ErrDuplicateProduct
		}
		r.store.products[p.ID] = p.Clone()
		record(tx, func() { delete(r.store.products, p.ID) })
		return nil
	})
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*stock.ProductStock, error) {
	var found *stock.ProductStock
	r.store.read(ctx, func() {
		if p, ok := r.store.products[id]; ok {
			found = p.Clone()
		}
	})
	if found == nil {
		return nil, stock.ErrProductNotFound
	}
	return found, nil
}

func (r *productRepository) UpdateWithVersion(ctx context.Context, p *stock.ProductStock, expected int64) error {
	return r.store.write(ctx, func(tx *txState) error {
		cur, ok := r.store.products[p.ID]
		if !ok {
			return stock.ErrProductNotFound
		}
		if cur.Version != expected {
			return stock.ErrVersionConflict
		}

		p.Version = expected + 1
		r.store.products[p.ID] = p.Clone()
		record(tx, func() { r.store.products[p.ID] = cur })
		return nil
	})
}

func (r *productRepository) List(ctx context.Context, filter stock.ProductFilter) ([]*stock.ProductStock, int64, error) {
	var items []*stock.ProductStock
	r.store.read(ctx, func() {
		for _, p := range r.store.products {
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			items = append(items, p.Clone())
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return page(items, filter.Limit, filter.Offset), int64(len(items)), nil
}

type reservationRepository struct {
	store *Store
}

// NewReservationRepository 创建预占仓储
func NewReservationRepository(store *Store) stock.ReservationRepository {
	return &reservationRepository{store: store}
}

func cloneReservation(r *stock.Reservation) *stock.Reservation {
	c := *r
	return &c
}

func (r *reservationRepository) Create(ctx context.Context, res *stock.Reservation) error {
	return r.store.write(ctx, func(tx *txState) error {
		for _, cur := range r.store.reservations {
			if cur.ProductID == res.ProductID && cur.OrderID == res.OrderID && cur.IsActive() {
				return stock.ErrInvalidReservationState
			}
		}

		r.store.reservationSeq++
		res.ID = r.store.reservationSeq
		r.store.reservations[res.ID] = cloneReservation(res)

		id := res.ID
		record(tx, func() {
			delete(r.store.reservations, id)
			r.store.reservationSeq--
		})
		return nil
	})
}

func (r *reservationRepository) Update(ctx context.Context, res *stock.Reservation) error {
	return r.store.write(ctx, func(tx *txState) error {
		cur, ok := r.store.reservations[res.ID]
		if !ok {
			return stock.ErrReservationNotFound
		}
		r.store.reservations[res.ID] = cloneReservation(res)
		record(tx, func() { r.store.reservations[res.ID] = cur })
		return nil
	})
}

func (r *reservationRepository) FindByID(ctx context.Context, id uint) (*stock.Reservation, error) {
	var found *stock.Reservation
	r.store.read(ctx, func() {
		if res, ok := r.store.reservations[id]; ok {
			found = cloneReservation(res)
		}
	})
	if found == nil {
		return nil, stock.ErrReservationNotFound
	}
	return found, nil
}

func (r *reservationRepository) FindLatestByOrder(ctx context.Context, productID uint, orderID string) (*stock.Reservation, error) {
	var latest *stock.Reservation
	r.store.read(ctx, func() {
		for _, res := range r.store.reservations {
			if res.ProductID != productID || res.OrderID != orderID {
				continue
			}
			if latest == nil || res.ID > latest.ID {
				latest = res
			}
		}
		if latest != nil {
			latest = cloneReservation(latest)
		}
	})
	return latest, nil
}

func (r *reservationRepository) List(ctx context.Context, filter stock.ReservationFilter) ([]*stock.Reservation, int64, error) {
	var items []*stock.Reservation
	r.store.read(ctx, func() {
		for _, res := range r.store.reservations {
			if filter.ProductID != 0 && res.ProductID != filter.ProductID {
				continue
			}
			if filter.OrderID != "" && res.OrderID != filter.OrderID {
				continue
			}
			if filter.Status != "" && res.Status != filter.Status {
				continue
			}
			items = append(items, cloneReservation(res))
		}
	})
	// 最新的在前
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return page(items, filter.Limit, filter.Offset), int64(len(items)), nil
}

func (r *reservationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*stock.Reservation, error) {
	var items []*stock.Reservation
	r.store.read(ctx, func() {
		for _, res := range r.store.reservations {
			if res.IsDue(now) {
				items = append(items, cloneReservation(res))
			}
		}
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].ExpiresAt.Equal(*items[j].ExpiresAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].ExpiresAt.Before(*items[j].ExpiresAt)
	})
	return page(items, limit, 0), nil
}
