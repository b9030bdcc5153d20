package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/stockledger/internal/domain/alert"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
)

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository 创建告警仓储
func NewAlertRepository(db *gorm.DB) alert.Repository {
	return &alertRepository{db: db}
}

// Create 同一商品同一类型只允许一条未关闭告警
// 调用方在持有商品版本的事务内创建，检查与插入之间不会并发
func (r *alertRepository) Create(ctx context.Context, a *alert.Alert) error {
	db := getDB(ctx, r.db)

	var open int64
	err := db.Model(&AlertModel{}).
		Where("product_id = ? AND type = ? AND status IN ?", a.ProductID, string(a.Type), statusStrings(alert.OpenStatuses)).
		Count(&open).Error
	if err != nil {
		return apperrors.WrapDB(err, "查询告警失败")
	}
	if open > 0 {
		return alert.ErrInvalidStateTransition
	}

	model := toAlertModel(a)
	if err := db.Create(model).Error; err != nil {
		return apperrors.WrapDB(err, "创建告警失败")
	}
	a.ID = model.ID
	return nil
}

func (r *alertRepository) FindByID(ctx context.Context, id uint) (*alert.Alert, error) {
	var model AlertModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, alert.ErrAlertNotFound
		}
		return nil, apperrors.WrapDB(err, "查询告警失败")
	}
	return toAlertEntity(&model), nil
}

func (r *alertRepository) FindOpenByProduct(ctx context.Context, productID uint) ([]*alert.Alert, error) {
	var models []AlertModel
	err := getDB(ctx, r.db).
		Where("product_id = ? AND status IN ?", productID, statusStrings(alert.OpenStatuses)).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.WrapDB(err, "查询未关闭告警失败")
	}
	return toAlertEntities(models), nil
}

// Refresh 只更新数值列，人工处理写入的状态与备注不会被覆盖
func (r *alertRepository) Refresh(ctx context.Context, a *alert.Alert) (bool, error) {
	result := getDB(ctx, r.db).Model(&AlertModel{}).
		Where("id = ? AND status IN ?", a.ID, statusStrings(alert.OpenStatuses)).
		Updates(map[string]interface{}{
			"current_stock":              a.CurrentStock,
			"reorder_point":              a.ReorderPoint,
			"threshold":                  a.Threshold,
			"suggested_reorder_quantity": a.SuggestedReorderQuantity,
			"updated_at":                 a.UpdatedAt,
		})
	if result.Error != nil {
		return false, apperrors.WrapDB(result.Error, "刷新告警失败")
	}
	return result.RowsAffected > 0, nil
}

// UpdateStatus UPDATE ... WHERE id = ? AND status IN (expected)
func (r *alertRepository) UpdateStatus(ctx context.Context, a *alert.Alert, expected ...alert.Status) (bool, error) {
	query := getDB(ctx, r.db).Model(&AlertModel{}).Where("id = ?", a.ID)
	if len(expected) > 0 {
		query = query.Where("status IN ?", statusStrings(expected))
	}

	columns := map[string]interface{}{
		"status":      string(a.Status),
		"updated_at":  a.UpdatedAt,
		"resolved_at": a.ResolvedAt,
	}
	if a.HandledBy != "" {
		columns["handled_by"] = a.HandledBy
	}
	if a.Notes != "" {
		columns["notes"] = a.Notes
	}

	result := query.Updates(columns)
	if result.Error != nil {
		return false, apperrors.WrapDB(result.Error, "更新告警状态失败")
	}
	return result.RowsAffected > 0, nil
}

func (r *alertRepository) List(ctx context.Context, filter alert.Filter) ([]*alert.Alert, int64, error) {
	query := getDB(ctx, r.db).Model(&AlertModel{})
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "统计告警失败")
	}

	var models []AlertModel
	if err := query.Order("id DESC").Scopes(paginate(filter.Limit, filter.Offset)).Find(&models).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "查询告警列表失败")
	}
	return toAlertEntities(models), total, nil
}

func statusStrings(statuses []alert.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func toAlertModel(a *alert.Alert) *AlertModel {
	return &AlertModel{
		ID:                       a.ID,
		ProductID:                a.ProductID,
		Type:                     string(a.Type),
		CurrentStock:             a.CurrentStock,
		ReorderPoint:             a.ReorderPoint,
		Threshold:                a.Threshold,
		SuggestedReorderQuantity: a.SuggestedReorderQuantity,
		Status:                   string(a.Status),
		Notes:                    a.Notes,
		HandledBy:                a.HandledBy,
		CreatedAt:                a.CreatedAt,
		UpdatedAt:                a.UpdatedAt,
		ResolvedAt:               a.ResolvedAt,
	}
}

func toAlertEntity(m *AlertModel) *alert.Alert {
	return &alert.Alert{
		ID:                       m.ID,
		ProductID:                m.ProductID,
		Type:                     alert.Type(m.Type),
		CurrentStock:             m.CurrentStock,
		ReorderPoint:             m.ReorderPoint,
		Threshold:                m.Threshold,
		SuggestedReorderQuantity: m.SuggestedReorderQuantity,
		Status:                   alert.Status(m.Status),
		Notes:                    m.Notes,
		HandledBy:                m.HandledBy,
		CreatedAt:                m.CreatedAt,
		UpdatedAt:                m.UpdatedAt,
		ResolvedAt:               m.ResolvedAt,
	}
}

func toAlertEntities(models []AlertModel) []*alert.Alert {
	items := make([]*alert.Alert, len(models))
	for i := range models {
		items[i] = toAlertEntity(&models[i])
	}
	return items
}
