package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/stockledger/internal/domain/adjustment"
	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
)

func seedProduct(t *testing.T, store *Store, id uint, physical int) {
	t.Helper()
	err := NewProductRepository(store).Create(context.Background(), &stock.ProductStock{
		ID:                   id,
		PhysicalStock:        physical,
		InitialPhysicalStock: physical,
		Status:               stock.StatusInStock,
		Version:              1,
	})
	require.NoError(t, err)
}

func TestProductRepository_UpdateWithVersion(t *testing.T) {
	store := NewStore()
	repo := NewProductRepository(store)
	ctx := context.Background()
	seedProduct(t, store, 1, 10)

	p, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)

	p.ReservedStock = 3
	require.NoError(t, repo.UpdateWithVersion(ctx, p, 1))
	assert.Equal(t, int64(2), p.Version)

	// 旧版本写入失败
	stale := p.Clone()
	stale.ReservedStock = 5
	err = repo.UpdateWithVersion(ctx, stale, 1)
	assert.ErrorIs(t, err, stock.ErrVersionConflict)

	got, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ReservedStock)
	assert.Equal(t, int64(2), got.Version)
}

func TestProductRepository_Duplicate(t *testing.T) {
	store := NewStore()
	seedProduct(t, store, 1, 10)

	err := NewProductRepository(store).Create(context.Background(), &stock.ProductStock{ID: 1})
	assert.ErrorIs(t, err, stock.ErrDuplicateProduct)

	_, err = NewProductRepository(store).FindByID(context.Background(), 2)
	assert.ErrorIs(t, err, stock.ErrProductNotFound)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	store := NewStore()
	tm := NewTxManager(store)
	products := NewProductRepository(store)
	reservations := NewReservationRepository(store)
	audits := NewAuditRepository(store)
	ctx := context.Background()
	seedProduct(t, store, 1, 10)

	boom := errors.New("boom")
	err := tm.Transaction(ctx, func(txCtx context.Context) error {
		p, err := products.FindByID(txCtx, 1)
		require.NoError(t, err)
		p.ReservedStock = 4
		require.NoError(t, products.UpdateWithVersion(txCtx, p, 1))

		r := stock.NewReservation(1, "SO-1", 4, nil, time.Now())
		require.NoError(t, reservations.Create(txCtx, r))

		require.NoError(t, audits.Append(txCtx, audit.NewEntry(1, audit.OpOrderReservation,
			audit.Snapshot{Physical: 10}, audit.Snapshot{Physical: 10, Reserved: 4}, 4)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := products.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, p.ReservedStock)
	assert.Equal(t, int64(1), p.Version)

	latest, err := reservations.FindLatestByOrder(ctx, 1, "SO-1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, total, err := audits.List(ctx, audit.Filter{ProductID: 1})
	require.NoError(t, err)
	assert.Zero(t, total)

	// 回滚后序号也恢复
	r := stock.NewReservation(1, "SO-2", 1, nil, time.Now())
	require.NoError(t, reservations.Create(ctx, r))
	assert.Equal(t, uint(1), r.ID)
}

func TestTxManager_CancelledContextRollsBack(t *testing.T) {
	store := NewStore()
	tm := NewTxManager(store)
	products := NewProductRepository(store)
	seedProduct(t, store, 1, 10)

	ctx, cancel := context.WithCancel(context.Background())
	err := tm.Transaction(ctx, func(txCtx context.Context) error {
		p, err := products.FindByID(txCtx, 1)
		require.NoError(t, err)
		p.PhysicalStock = 99
		require.NoError(t, products.UpdateWithVersion(txCtx, p, 1))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	p, err := products.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 10, p.PhysicalStock)

	err = tm.Transaction(ctx, func(context.Context) error {
		t.Fatal("已取消的ctx不应执行事务")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReservationRepository_ListDueAndLatest(t *testing.T) {
	store := NewStore()
	repo := NewReservationRepository(store)
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	early := now.Add(-2 * time.Hour)
	late := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	r1 := stock.NewReservation(1, "SO-1", 1, &late, now.Add(-3*time.Hour))
	r2 := stock.NewReservation(1, "SO-2", 1, &early, now.Add(-3*time.Hour))
	r3 := stock.NewReservation(1, "SO-3", 1, &future, now)
	r4 := stock.NewReservation(2, "SO-4", 1, nil, now)
	for _, r := range []*stock.Reservation{r1, r2, r3, r4} {
		require.NoError(t, repo.Create(ctx, r))
	}

	due, err := repo.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, r2.ID, due[0].ID)
	assert.Equal(t, r1.ID, due[1].ID)

	// 同一订单不能有两条active预占
	err = repo.Create(ctx, stock.NewReservation(1, "SO-1", 2, nil, now))
	assert.ErrorIs(t, err, stock.ErrInvalidReservationState)

	require.NoError(t, r1.TransitionTo(stock.ReservationCancelled, now))
	require.NoError(t, repo.Update(ctx, r1))
	again := stock.NewReservation(1, "SO-1", 2, nil, now)
	require.NoError(t, repo.Create(ctx, again))

	latest, err := repo.FindLatestByOrder(ctx, 1, "SO-1")
	require.NoError(t, err)
	assert.Equal(t, again.ID, latest.ID)
	assert.True(t, latest.IsActive())
}

func TestAdjustmentRepository_UpdateDecisionIsConditional(t *testing.T) {
	store := NewStore()
	repo := NewAdjustmentRepository(store)
	ctx := context.Background()
	now := time.Now()

	a, err := adjustment.NewAdjustment(1, adjustment.TypeIncrease, adjustment.ReasonReceived, 5, 10, "alice", "", now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, a))

	first := cloneAdjustment(a)
	require.NoError(t, first.Reject("bob", "重复申请", now))
	require.NoError(t, repo.UpdateDecision(ctx, first, adjustment.StatusPending))

	second := cloneAdjustment(a)
	require.NoError(t, second.Approve("carol", "", 10, 15, now))
	err = repo.UpdateDecision(ctx, second, adjustment.StatusPending)
	assert.ErrorIs(t, err, adjustment.ErrInvalidStateTransition)

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, adjustment.StatusRejected, got.Status)
}

func TestAlertRepository_ConditionalUpdate(t *testing.T) {
	store := NewStore()
	repo := NewAlertRepository(store)
	ctx := context.Background()
	now := time.Now()

	a := &alert.Alert{ProductID: 1, Type: alert.TypeLowStock, Status: alert.StatusActive, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, a))

	dup := &alert.Alert{ProductID: 1, Type: alert.TypeLowStock, Status: alert.StatusActive, CreatedAt: now}
	assert.Error(t, repo.Create(ctx, dup))

	acked := cloneAlert(a)
	require.NoError(t, acked.TransitionTo(alert.StatusAcknowledged, "ops", "", now))
	ok, err := repo.UpdateStatus(ctx, acked, alert.StatusActive)
	require.NoError(t, err)
	assert.True(t, ok)

	dismissed := cloneAlert(a)
	require.NoError(t, dismissed.TransitionTo(alert.StatusDismissed, "ops", "", now))
	ok, err = repo.UpdateStatus(ctx, dismissed, alert.StatusActive)
	require.NoError(t, err)
	assert.False(t, ok)

	open, err := repo.FindOpenByProduct(ctx, 1)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, alert.StatusAcknowledged, open[0].Status)
}

func TestAlertRepository_RefreshAndStatusTouchSeparateColumns(t *testing.T) {
	repo := NewAlertRepository(NewStore())
	ctx := context.Background()
	now := time.Now()

	a := &alert.Alert{ProductID: 1, Type: alert.TypeLowStock, CurrentStock: 15, Threshold: 20, Status: alert.StatusActive, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, a))

	// 两份快照同时读出
	stale := cloneAlert(a)
	fresh := cloneAlert(a)

	require.NoError(t, fresh.TransitionTo(alert.StatusAcknowledged, "ops", "已下采购单", now))
	ok, err := repo.UpdateStatus(ctx, fresh, alert.StatusActive)
	require.NoError(t, err)
	require.True(t, ok)

	stale.CurrentStock = 12
	stale.Threshold = 25
	ok, err = repo.Refresh(ctx, stale)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusAcknowledged, got.Status)
	assert.Equal(t, "ops", got.HandledBy)
	assert.Equal(t, "已下采购单", got.Notes)
	assert.Equal(t, 12, got.CurrentStock)
	assert.Equal(t, 25, got.Threshold)

	// 关闭后不再刷新
	closed := cloneAlert(got)
	closed.Status = alert.StatusResolved
	closed.ResolvedAt = &now
	ok, err = repo.UpdateStatus(ctx, closed, alert.OpenStatuses...)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Refresh(ctx, stale)
	require.NoError(t, err)
	assert.False(t, ok)
}
