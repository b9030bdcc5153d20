package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/stockledger/internal/domain/audit"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

// auditRepository 审计日志仓储（只插入）
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建审计日志仓储
func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, e *audit.Entry) error {
	if !e.Operation.Valid() {
		return audit.ErrInvalidOperationType
	}
	model := toAuditModel(e)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.WrapDB(err, "写入审计日志失败")
	}
	e.ID = model.ID
	return nil
}

func (r *auditRepository) List(ctx context.Context, filter audit.Filter) ([]*audit.Entry, int64, error) {
	query := getDB(ctx, r.db).Model(&AuditLogModel{})
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", string(filter.Operation))
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "统计审计日志失败")
	}

	var models []AuditLogModel
	if err := query.Order("id DESC").Scopes(paginate(filter.Limit, filter.Offset)).Find(&models).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "查询审计日志失败")
	}

	items := make([]*audit.Entry, len(models))
	for i := range models {
		items[i] = toAuditEntity(&models[i])
	}
	return items, total, nil
}

// SumPhysicalChange SELECT COALESCE(SUM(physical_stock_change), 0) ...
func (r *auditRepository) SumPhysicalChange(ctx context.Context, productID uint) (int64, error) {
	var sum int64
	err := getDB(ctx, r.db).Model(&AuditLogModel{}).
		Select("COALESCE(SUM(physical_stock_change), 0)").
		Where("product_id = ?", productID).
		Scan(&sum).Error
	if err != nil {
		return 0, apperrors.WrapDB(err, "汇总审计日志失败")
	}
	return sum, nil
}

func toAuditModel(e *audit.Entry) *AuditLogModel {
	return &AuditLogModel{
		ProductID:            e.ProductID,
		Operation:            string(e.Operation),
		PhysicalBefore:       e.Before.Physical,
		ReservedBefore:       e.Before.Reserved,
		PhysicalAfter:        e.After.Physical,
		ReservedAfter:        e.After.Reserved,
		PhysicalStockChange:  e.PhysicalChange(),
		ReservedStockChange:  e.ReservedChange(),
		AvailableStockChange: e.AvailableChange(),
		QuantityAffected:     e.QuantityAffected,
		OrderID:              e.OrderID,
		ReservationID:        e.ReservationID,
		AdjustmentID:         e.AdjustmentID,
		Reason:               e.Reason,
		PerformedBy:          e.PerformedBy,
		VersionAfter:         e.VersionAfter,
		CreatedAt:            e.CreatedAt,
	}
}

func toAuditEntity(m *AuditLogModel) *audit.Entry {
	return &audit.Entry{
		ID:               m.ID,
		ProductID:        m.ProductID,
		Operation:        audit.OperationType(m.Operation),
		Before:           audit.Snapshot{Physical: m.PhysicalBefore, Reserved: m.ReservedBefore},
		After:            audit.Snapshot{Physical: m.PhysicalAfter, Reserved: m.ReservedAfter},
		QuantityAffected: m.QuantityAffected,
		OrderID:          m.OrderID,
		ReservationID:    m.ReservationID,
		AdjustmentID:     m.AdjustmentID,
		Reason:           m.Reason,
		PerformedBy:      m.PerformedBy,
		VersionAfter:     m.VersionAfter,
		CreatedAt:        m.CreatedAt,
	}
}
