package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/stockledger/internal/domain/stock"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

// productRepository 商品库存仓储（MySQL）
// 负责领域实体与GORM模型之间的转换，数据库错误统一转换为ErrCodeDatabaseError
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品库存仓储
func NewProductRepository(db *gorm.DB) stock.Repository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *stock.ProductStock) error {
	model := toProductModel(p)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return stock.ErrDuplicateProduct
		}
		return apperrors.WrapDB(err, "创建商品库存失败")
	}
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*stock.ProductStock, error) {
	var model ProductStockModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, stock.ErrProductNotFound
		}
		return nil, apperrors.WrapDB(err, "查询商品库存失败")
	}
	return toProductEntity(&model), nil
}

// UpdateWithVersion 乐观锁更新
// UPDATE product_stocks SET ..., version = expected + 1 WHERE id = ? AND version = expected
func (r *productRepository) UpdateWithVersion(ctx context.Context, p *stock.ProductStock, expected int64) error {
	db := getDB(ctx, r.db)
	result := db.Model(&ProductStockModel{}).
		Where("id = ? AND version = ?", p.ID, expected).
		Updates(map[string]interface{}{
			"physical_stock":    p.PhysicalStock,
			"reserved_stock":    p.ReservedStock,
			"reorder_point":     p.ReorderPoint,
			"reorder_quantity":  p.ReorderQuantity,
			"max_stock_level":   p.MaxStockLevel,
			"low_stock_percent": p.LowStockPercent,
			"overstock_percent": p.OverstockPercent,
			"status":            string(p.Status),
			"version":           expected + 1,
			"updated_at":        p.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.WrapDB(result.Error, "更新商品库存失败")
	}

	if result.RowsAffected == 0 {
		// 区分记录不存在和版本冲突
		var count int64
		if err := db.Model(&ProductStockModel{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
			return apperrors.WrapDB(err, "查询商品库存失败")
		}
		if count == 0 {
			return stock.ErrProductNotFound
		}
		return stock.ErrVersionConflict
	}

	p.Version = expected + 1
	return nil
}

func (r *productRepository) List(ctx context.Context, filter stock.ProductFilter) ([]*stock.ProductStock, int64, error) {
	query := getDB(ctx, r.db).Model(&ProductStockModel{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "统计商品库存失败")
	}

	var models []ProductStockModel
	if err := query.Order("id ASC").Scopes(paginate(filter.Limit, filter.Offset)).Find(&models).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "查询商品库存列表失败")
	}

	items := make([]*stock.ProductStock, len(models))
	for i := range models {
		items[i] = toProductEntity(&models[i])
	}
	return items, total, nil
}

func toProductModel(p *stock.ProductStock) *ProductStockModel {
	return &ProductStockModel{
		ID:                   p.ID,
		SKU:                  p.SKU,
		Category:             p.Category,
		PhysicalStock:        p.PhysicalStock,
		ReservedStock:        p.ReservedStock,
		InitialPhysicalStock: p.InitialPhysicalStock,
		ReorderPoint:         p.ReorderPoint,
		ReorderQuantity:      p.ReorderQuantity,
		MaxStockLevel:        p.MaxStockLevel,
		LowStockPercent:      p.LowStockPercent,
		OverstockPercent:     p.OverstockPercent,
		Status:               string(p.Status),
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toProductEntity(m *ProductStockModel) *stock.ProductStock {
	return &stock.ProductStock{
		ID:                   m.ID,
		SKU:                  m.SKU,
		Category:             m.Category,
		PhysicalStock:        m.PhysicalStock,
		ReservedStock:        m.ReservedStock,
		InitialPhysicalStock: m.InitialPhysicalStock,
		ReorderPoint:         m.ReorderPoint,
		ReorderQuantity:      m.ReorderQuantity,
		MaxStockLevel:        m.MaxStockLevel,
		LowStockPercent:      m.LowStockPercent,
		OverstockPercent:     m.OverstockPercent,
		Status:               stock.Status(m.Status),
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// reservationRepository 预占仓储（MySQL）
type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预占仓储
func NewReservationRepository(db *gorm.DB) stock.ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, res *stock.Reservation) error {
	model := toReservationModel(res)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.WrapDB(err, "创建预占失败")
	}
	res.ID = model.ID
	return nil
}

func (r *reservationRepository) Update(ctx context.Context, res *stock.Reservation) error {
	result := getDB(ctx, r.db).Model(&ReservationModel{}).
		Where("id = ?", res.ID).
		Updates(map[string]interface{}{
			"fulfilled_quantity": res.FulfilledQuantity,
			"status":             string(res.Status),
			"closed_at":          res.ClosedAt,
			"updated_at":         res.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.WrapDB(result.Error, "更新预占失败")
	}
	if result.RowsAffected == 0 {
		return stock.ErrReservationNotFound
	}
	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uint) (*stock.Reservation, error) {
	var model ReservationModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, stock.ErrReservationNotFound
		}
		return nil, apperrors.WrapDB(err, "查询预占失败")
	}
	return toReservationEntity(&model), nil
}

func (r *reservationRepository) FindLatestByOrder(ctx context.Context, productID uint, orderID string) (*stock.Reservation, error) {
	var model ReservationModel
	err := getDB(ctx, r.db).
		Where("product_id = ? AND order_id = ?", productID, orderID).
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.WrapDB(err, "查询订单预占失败")
	}
	return toReservationEntity(&model), nil
}

func (r *reservationRepository) List(ctx context.Context, filter stock.ReservationFilter) ([]*stock.Reservation, int64, error) {
	query := getDB(ctx, r.db).Model(&ReservationModel{})
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "统计预占失败")
	}

	var models []ReservationModel
	if err := query.Order("id DESC").Scopes(paginate(filter.Limit, filter.Offset)).Find(&models).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "查询预占列表失败")
	}
	return toReservationEntities(models), total, nil
}

func (r *reservationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*stock.Reservation, error) {
	var models []ReservationModel
	err := getDB(ctx, r.db).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", string(stock.ReservationActive), now).
		Order("expires_at ASC, id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.WrapDB(err, "查询到期预占失败")
	}
	return toReservationEntities(models), nil
}

func toReservationModel(res *stock.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:                res.ID,
		ProductID:         res.ProductID,
		OrderID:           res.OrderID,
		Quantity:          res.Quantity,
		FulfilledQuantity: res.FulfilledQuantity,
		Status:            string(res.Status),
		ReservedAt:        res.ReservedAt,
		ExpiresAt:         res.ExpiresAt,
		ClosedAt:          res.ClosedAt,
		UpdatedAt:         res.UpdatedAt,
	}
}

func toReservationEntity(m *ReservationModel) *stock.Reservation {
	return &stock.Reservation{
		ID:                m.ID,
		ProductID:         m.ProductID,
		OrderID:           m.OrderID,
		Quantity:          m.Quantity,
		FulfilledQuantity: m.FulfilledQuantity,
		Status:            stock.ReservationStatus(m.Status),
		ReservedAt:        m.ReservedAt,
		ExpiresAt:         m.ExpiresAt,
		ClosedAt:          m.ClosedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toReservationEntities(models []ReservationModel) []*stock.Reservation {
	items := make([]*stock.Reservation, len(models))
	for i := range models {
		items[i] = toReservationEntity(&models[i])
	}
	return items
}
