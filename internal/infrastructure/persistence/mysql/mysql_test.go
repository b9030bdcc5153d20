package mysql_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/stockledger/internal/application/ledger"
	"github.com/xiebiao/stockledger/internal/domain/adjustment"
	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
	"github.com/xiebiao/stockledger/internal/infrastructure/persistence/mysql"
)

// 需要真实MySQL：
//
//	LEDGER_TEST_MYSQL_DSN="root:root@tcp(127.0.0.1:3306)/ledger_test?charset=utf8mb4&parseTime=True&loc=Local" go test ./internal/infrastructure/persistence/mysql/
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("未设置LEDGER_TEST_MYSQL_DSN，跳过MySQL测试")
	}

	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, mysql.AutoMigrate(db))

	for _, table := range []string{"product_stocks", "stock_reservations", "stock_audit_logs", "stock_adjustments", "reorder_alerts"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, id uint, physical int) *stock.ProductStock {
	t.Helper()
	now := time.Now().Truncate(time.Second)
	p := &stock.ProductStock{
		ID:                   id,
		SKU:                  "SKU-TEST",
		PhysicalStock:        physical,
		InitialPhysicalStock: physical,
		ReorderPoint:         10,
		ReorderQuantity:      50,
		Status:               stock.StatusInStock,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, mysql.NewProductRepository(db).Create(context.Background(), p))
	return p
}

func TestProductRepository_UpdateWithVersion(t *testing.T) {
	db := openTestDB(t)
	repo := mysql.NewProductRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, 1, 100)

	assert.ErrorIs(t, repo.Create(ctx, p.Clone()), stock.ErrDuplicateProduct)

	p.ReservedStock = 10
	require.NoError(t, repo.UpdateWithVersion(ctx, p, 1))
	assert.Equal(t, int64(2), p.Version)

	stale := p.Clone()
	stale.ReservedStock = 20
	assert.ErrorIs(t, repo.UpdateWithVersion(ctx, stale, 1), stock.ErrVersionConflict)

	missing := &stock.ProductStock{ID: 404, Status: stock.StatusInStock}
	assert.ErrorIs(t, repo.UpdateWithVersion(ctx, missing, 1), stock.ErrProductNotFound)

	got, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ReservedStock)
	assert.Equal(t, int64(2), got.Version)
}

func TestTxManager_Rollback(t *testing.T) {
	db := openTestDB(t)
	txm := mysql.NewTxManager(db)
	products := mysql.NewProductRepository(db)
	audits := mysql.NewAuditRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, 1, 100)

	err := txm.Transaction(ctx, func(txCtx context.Context) error {
		p.PhysicalStock = 90
		if err := products.UpdateWithVersion(txCtx, p, 1); err != nil {
			return err
		}
		e := audit.NewEntry(1, audit.OpManualAdjustment, audit.Snapshot{Physical: 100}, audit.Snapshot{Physical: 90}, 10)
		e.CreatedAt = time.Now()
		if err := audits.Append(txCtx, e); err != nil {
			return err
		}
		return stock.ErrInsufficientStock
	})
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)

	got, err := products.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 100, got.PhysicalStock)
	assert.Equal(t, int64(1), got.Version)

	sum, err := audits.SumPhysicalChange(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestConditionalUpdates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	adjustments := mysql.NewAdjustmentRepository(db)
	a, err := adjustment.NewAdjustment(1, adjustment.TypeDecrease, adjustment.ReasonLost, 2, 10, "alice", "", now)
	require.NoError(t, err)
	require.NoError(t, adjustments.Create(ctx, a))

	require.NoError(t, a.Reject("bob", "找到了", now))
	require.NoError(t, adjustments.UpdateDecision(ctx, a, adjustment.StatusPending))
	assert.ErrorIs(t, adjustments.UpdateDecision(ctx, a, adjustment.StatusPending), adjustment.ErrInvalidStateTransition)

	alerts := mysql.NewAlertRepository(db)
	al := &alert.Alert{ProductID: 1, Type: alert.TypeLowStock, Status: alert.StatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, alerts.Create(ctx, al))

	dup := &alert.Alert{ProductID: 1, Type: alert.TypeLowStock, Status: alert.StatusActive, CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, alerts.Create(ctx, dup), alert.ErrInvalidStateTransition)

	// 引擎持有的旧快照只刷新数值列，不回滚人工确认
	stale := *al
	acked := *al
	require.NoError(t, acked.TransitionTo(alert.StatusAcknowledged, "ops", "已下采购单", now))
	ok, err := alerts.UpdateStatus(ctx, &acked, alert.StatusActive)
	require.NoError(t, err)
	require.True(t, ok)

	stale.CurrentStock = 12
	ok, err = alerts.Refresh(ctx, &stale)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := alerts.FindByID(ctx, al.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusAcknowledged, got.Status)
	assert.Equal(t, "ops", got.HandledBy)
	assert.Equal(t, "已下采购单", got.Notes)
	assert.Equal(t, 12, got.CurrentStock)

	got.Status = alert.StatusResolved
	got.ResolvedAt = &now
	ok, err = alerts.UpdateStatus(ctx, got, alert.StatusActive)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = alerts.UpdateStatus(ctx, got, alert.StatusAcknowledged)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = alerts.Refresh(ctx, &stale)
	require.NoError(t, err)
	assert.False(t, ok)

	open, err := alerts.FindOpenByProduct(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestLedger_ConcurrentReserveOnMySQL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cfg := ledger.DefaultConfig()
	cfg.MaxRetries = 20
	svc := ledger.NewService(
		mysql.NewTxManager(db),
		mysql.NewProductRepository(db),
		mysql.NewReservationRepository(db),
		mysql.NewAuditRepository(db),
		alert.NewEngine(mysql.NewAlertRepository(db), alert.DefaultPolicy()),
		nil,
		zaptest.NewLogger(t),
		cfg,
	)
	_, err := svc.CreateProduct(ctx, ledger.CreateProductRequest{ID: 7, PhysicalStock: 10})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Reserve(ctx, ledger.ReserveRequest{
				ProductID: 7,
				OrderID:   "ORD-" + string(rune('A'+i)),
				Quantity:  3,
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, success)

	p, err := svc.GetProduct(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 9, p.ReservedStock)
	assert.Equal(t, int64(1+success), p.Version)

	report, err := svc.Reconcile(ctx, 7)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}
