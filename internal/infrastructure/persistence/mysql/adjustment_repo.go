package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/stockledger/internal/domain/adjustment"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

type adjustmentRepository struct {
	db *gorm.DB
}

// NewAdjustmentRepository 创建调整单仓储
func NewAdjustmentRepository(db *gorm.DB) adjustment.Repository {
	return &adjustmentRepository{db: db}
}

func (r *adjustmentRepository) Create(ctx context.Context, a *adjustment.Adjustment) error {
	model := toAdjustmentModel(a)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.WrapDB(err, "创建调整单失败")
	}
	a.ID = model.ID
	return nil
}

func (r *adjustmentRepository) FindByID(ctx context.Context, id uint) (*adjustment.Adjustment, error) {
	var model AdjustmentModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, adjustment.ErrAdjustmentNotFound
		}
		return nil, apperrors.WrapDB(err, "查询调整单失败")
	}
	return toAdjustmentEntity(&model), nil
}

// UpdateDecision UPDATE ... WHERE id = ? AND status = from
func (r *adjustmentRepository) UpdateDecision(ctx context.Context, a *adjustment.Adjustment, from adjustment.ApprovalStatus) error {
	result := getDB(ctx, r.db).Model(&AdjustmentModel{}).
		Where("id = ? AND status = ?", a.ID, string(from)).
		Updates(map[string]interface{}{
			"status":                  string(a.Status),
			"previous_physical_stock": a.PreviousPhysicalStock,
			"new_physical_stock":      a.NewPhysicalStock,
			"approved_by":             a.ApprovedBy,
			"decision":                a.Decision,
			"decided_at":              a.DecidedAt,
		})
	if result.Error != nil {
		return apperrors.WrapDB(result.Error, "更新调整单失败")
	}
	if result.RowsAffected == 0 {
		return adjustment.ErrInvalidStateTransition
	}
	return nil
}

func (r *adjustmentRepository) List(ctx context.Context, filter adjustment.Filter) ([]*adjustment.Adjustment, int64, error) {
	query := getDB(ctx, r.db).Model(&AdjustmentModel{})
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "统计调整单失败")
	}

	var models []AdjustmentModel
	if err := query.Order("id DESC").Scopes(paginate(filter.Limit, filter.Offset)).Find(&models).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "查询调整单列表失败")
	}

	items := make([]*adjustment.Adjustment, len(models))
	for i := range models {
		items[i] = toAdjustmentEntity(&models[i])
	}
	return items, total, nil
}

func toAdjustmentModel(a *adjustment.Adjustment) *AdjustmentModel {
	return &AdjustmentModel{
		ID:                    a.ID,
		ProductID:             a.ProductID,
		Type:                  string(a.Type),
		Reason:                string(a.Reason),
		Quantity:              a.Quantity,
		PreviousPhysicalStock: a.PreviousPhysicalStock,
		NewPhysicalStock:      a.NewPhysicalStock,
		Status:                string(a.Status),
		RequestedBy:           a.RequestedBy,
		ApprovedBy:            a.ApprovedBy,
		Notes:                 a.Notes,
		Decision:              a.Decision,
		CreatedAt:             a.CreatedAt,
		DecidedAt:             a.DecidedAt,
	}
}

func toAdjustmentEntity(m *AdjustmentModel) *adjustment.Adjustment {
	return &adjustment.Adjustment{
		ID:                    m.ID,
		ProductID:             m.ProductID,
		Type:                  adjustment.Type(m.Type),
		Reason:                adjustment.ReasonCode(m.Reason),
		Quantity:              m.Quantity,
		PreviousPhysicalStock: m.PreviousPhysicalStock,
		NewPhysicalStock:      m.NewPhysicalStock,
		Status:                adjustment.ApprovalStatus(m.Status),
		RequestedBy:           m.RequestedBy,
		ApprovedBy:            m.ApprovedBy,
		Notes:                 m.Notes,
		Decision:              m.Decision,
		CreatedAt:             m.CreatedAt,
		DecidedAt:             m.DecidedAt,
	}
}
