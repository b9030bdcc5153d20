package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/domain/stock"
	"github.com/xiebiao/stockledger/internal/infrastructure/config"
	"github.com/xiebiao/stockledger/internal/infrastructure/persistence/memory"
)

func seedAlert(t *testing.T, repo alert.Repository, typ alert.Type) *alert.Alert {
	t.Helper()
	a := &alert.Alert{
		ProductID:    1,
		Type:         typ,
		CurrentStock: 5,
		ReorderPoint: 10,
		Status:       alert.StatusActive,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func TestUpdateAlertStatus(t *testing.T) {
	repo := memory.NewAlertRepository(memory.NewStore())
	svc := NewService(repo, zaptest.NewLogger(t))
	ctx := context.Background()
	a := seedAlert(t, repo, alert.TypeLowStock)

	got, err := svc.UpdateAlertStatus(ctx, StatusRequest{AlertID: a.ID, Status: alert.StatusAcknowledged, HandledBy: "ops", Notes: "已下采购单"})
	require.NoError(t, err)
	assert.Equal(t, alert.StatusAcknowledged, got.Status)
	assert.Equal(t, "ops", got.HandledBy)
	assert.Equal(t, "已下采购单", got.Notes)
	assert.Nil(t, got.ResolvedAt)

	// 只有active可以人工处理
	_, err = svc.UpdateAlertStatus(ctx, StatusRequest{AlertID: a.ID, Status: alert.StatusResolved, HandledBy: "ops"})
	assert.ErrorIs(t, err, alert.ErrInvalidStateTransition)

	b := seedAlert(t, repo, alert.TypeOverstock)
	got, err = svc.UpdateAlertStatus(ctx, StatusRequest{AlertID: b.ID, Status: alert.StatusDismissed, HandledBy: "ops"})
	require.NoError(t, err)
	assert.NotNil(t, got.ResolvedAt)

	_, err = svc.UpdateAlertStatus(ctx, StatusRequest{AlertID: b.ID, Status: alert.StatusActive, HandledBy: "ops"})
	assert.ErrorIs(t, err, alert.ErrInvalidStateTransition)

	_, err = svc.UpdateAlertStatus(ctx, StatusRequest{AlertID: 99, Status: alert.StatusResolved, HandledBy: "ops"})
	assert.ErrorIs(t, err, alert.ErrAlertNotFound)

	_, err = svc.UpdateAlertStatus(ctx, StatusRequest{AlertID: b.ID, Status: alert.StatusResolved})
	assert.Error(t, err)

	list, total, err := svc.ListAlerts(ctx, alert.Filter{Status: alert.StatusDismissed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

// refreshOnFind 读取告警后、写入之前，引擎先提交一次数值刷新
type refreshOnFind struct {
	alert.Repository
	current int
}

func (r *refreshOnFind) FindByID(ctx context.Context, id uint) (*alert.Alert, error) {
	a, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	refreshed := *a
	refreshed.CurrentStock = r.current
	refreshed.UpdatedAt = time.Now()
	if _, err := r.Repository.Refresh(ctx, &refreshed); err != nil {
		return nil, err
	}
	return a, nil
}

func TestUpdateAlertStatus_KeepsConcurrentRefresh(t *testing.T) {
	base := memory.NewAlertRepository(memory.NewStore())
	a := seedAlert(t, base, alert.TypeLowStock)
	svc := NewService(&refreshOnFind{Repository: base, current: 2}, zaptest.NewLogger(t))
	ctx := context.Background()

	got, err := svc.UpdateAlertStatus(ctx, StatusRequest{AlertID: a.ID, Status: alert.StatusAcknowledged, HandledBy: "ops"})
	require.NoError(t, err)
	assert.Equal(t, alert.StatusAcknowledged, got.Status)

	stored, err := base.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusAcknowledged, stored.Status)
	assert.Equal(t, "ops", stored.HandledBy)
	assert.Equal(t, 2, stored.CurrentStock)
}

func TestNewPolicy_FromConfig(t *testing.T) {
	cfg := &config.Config{
		Alerts: config.AlertsConfig{
			Defaults: config.ThresholdConfig{LowStockPercent: "25", OverstockPercent: "150"},
			Categories: map[string]config.ThresholdConfig{
				"perishable": {LowStockPercent: "40"},
			},
		},
	}

	policy, err := NewPolicy(cfg)
	require.NoError(t, err)

	ps := &stock.ProductStock{MaxStockLevel: 100}
	assert.Equal(t, alert.Thresholds{LowStock: 25, Overstock: 150}, policy.ThresholdsFor(ps))

	ps.Category = "perishable"
	assert.Equal(t, alert.Thresholds{LowStock: 40, Overstock: 150}, policy.ThresholdsFor(ps))

	cfg.Alerts.Categories["broken"] = config.ThresholdConfig{OverstockPercent: "lots"}
	_, err = NewPolicy(cfg)
	assert.ErrorIs(t, err, alert.ErrInvalidPercent)
}

func TestNewPolicy_EmptyConfigUsesDefaults(t *testing.T) {
	policy, err := NewPolicy(&config.Config{})
	require.NoError(t, err)

	ps := &stock.ProductStock{MaxStockLevel: 100}
	assert.Equal(t, alert.Thresholds{LowStock: 20, Overstock: 100}, policy.ThresholdsFor(ps))
}
