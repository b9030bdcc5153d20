package stock

import (
	"context"
	"time"
)

// Repository 商品库存仓储接口
// 事务通过context传递，实现层从ctx中取事务连接
type Repository interface {
	// Create 新建库存记录，ID由商品目录分配，重复返回ErrDuplicateProduct
	Create(ctx context.Context, p *ProductStock) error

	// FindByID 不存在返回ErrProductNotFound
	FindByID(ctx context.Context, id uint) (*ProductStock, error)

	// UpdateWithVersion 乐观锁更新
	// UPDATE ... SET version = version + 1 WHERE id = ? AND version = expected
	// 影响行数为0时返回ErrVersionConflict；成功后p.Version = expected + 1
	UpdateWithVersion(ctx context.Context, p *ProductStock, expected int64) error

	// List 按条件分页查询
	List(ctx context.Context, filter ProductFilter) ([]*ProductStock, int64, error)
}

// ProductFilter 商品库存查询条件
type ProductFilter struct {
	Category string
	Status   Status
	Limit    int
	Offset   int
}

// ReservationRepository 预占仓储接口
type ReservationRepository interface {
	Create(ctx context.Context, r *Reservation) error
	Update(ctx context.Context, r *Reservation) error

	// FindByID 不存在返回ErrReservationNotFound
	FindByID(ctx context.Context, id uint) (*Reservation, error)

	// FindLatestByOrder 返回该订单在该商品上最近的一条预占，没有时返回(nil, nil)
	// 同一(商品, 订单)同时最多一条active预占，所以active记录一定是最近一条
	FindLatestByOrder(ctx context.Context, productID uint, orderID string) (*Reservation, error)

	List(ctx context.Context, filter ReservationFilter) ([]*Reservation, int64, error)

	// ListDue 返回expires_at ≤ now的active预占，按过期时间升序
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Reservation, error)
}

// ReservationFilter 预占查询条件
type ReservationFilter struct {
	ProductID uint
	OrderID   string
	Status    ReservationStatus
	Limit     int
	Offset    int
}
