package adjustment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiebiao/stockledger/internal/application/ledger"
	"github.com/xiebiao/stockledger/internal/domain/adjustment"
	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
	"github.com/xiebiao/stockledger/internal/infrastructure/persistence/memory"
)

type fixture struct {
	svc      *Service
	ledger   *ledger.Service
	products stock.Repository
	audits   audit.Repository
}

func newFixture(t *testing.T, physical int) *fixture {
	t.Helper()
	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	audits := memory.NewAuditRepository(store)
	logger := zaptest.NewLogger(t)

	ledgerSvc := ledger.NewService(
		memory.NewTxManager(store),
		products,
		memory.NewReservationRepository(store),
		audits,
		alert.NewEngine(memory.NewAlertRepository(store), alert.DefaultPolicy()),
		nil,
		logger,
		ledger.DefaultConfig(),
	)
	_, err := ledgerSvc.CreateProduct(context.Background(), ledger.CreateProductRequest{ID: 1, PhysicalStock: physical})
	require.NoError(t, err)

	return &fixture{
		svc:      NewService(memory.NewAdjustmentRepository(store), products, ledgerSvc, logger),
		ledger:   ledgerSvc,
		products: products,
		audits:   audits,
	}
}

func (f *fixture) product(t *testing.T) *stock.ProductStock {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), 1)
	require.NoError(t, err)
	return p
}

func (f *fixture) auditCount(t *testing.T) int {
	t.Helper()
	_, total, err := f.audits.List(context.Background(), audit.Filter{ProductID: 1, Limit: 100})
	require.NoError(t, err)
	return int(total)
}

func TestApproveAdjustment_IncreaseScenario(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	before := f.product(t)

	a, err := f.svc.CreateAdjustment(ctx, CreateRequest{
		ProductID:   1,
		Type:        adjustment.TypeIncrease,
		Reason:      adjustment.ReasonReceived,
		Quantity:    20,
		RequestedBy: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, adjustment.StatusPending, a.Status)
	assert.Equal(t, before.Version, f.product(t).Version, "创建申请不改动库存")
	assert.Zero(t, f.auditCount(t))

	d, err := f.svc.ApproveAdjustment(ctx, DecisionRequest{
		AdjustmentID: a.ID,
		Decision:     adjustment.StatusApproved,
		Approver:     "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, adjustment.StatusApproved, d.Adjustment.Status)
	assert.Equal(t, 100, d.Adjustment.PreviousPhysicalStock)
	require.NotNil(t, d.Adjustment.NewPhysicalStock)
	assert.Equal(t, 120, *d.Adjustment.NewPhysicalStock)

	after := f.product(t)
	assert.Equal(t, 120, after.PhysicalStock)
	assert.Equal(t, before.Version+1, after.Version)
	assert.Equal(t, 1, f.auditCount(t))
	assert.Equal(t, a.ID, d.Ledger.Entry.AdjustmentID)
	assert.Equal(t, audit.OpManualAdjustment, d.Ledger.Entry.Operation)

	_, err = f.svc.ApproveAdjustment(ctx, DecisionRequest{
		AdjustmentID: a.ID,
		Decision:     adjustment.StatusApproved,
		Approver:     "bob",
	})
	assert.ErrorIs(t, err, adjustment.ErrInvalidStateTransition)
	assert.Equal(t, 120, f.product(t).PhysicalStock)
	assert.Equal(t, 1, f.auditCount(t))
}

func TestApproveAdjustment_ComputedAtApprovalTime(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	a, err := f.svc.CreateAdjustment(ctx, CreateRequest{
		ProductID:   1,
		Type:        adjustment.TypeDecrease,
		Reason:      adjustment.ReasonDamaged,
		Quantity:    8,
		RequestedBy: "alice",
	})
	require.NoError(t, err)

	// 申请之后库存发生变化
	_, err = f.ledger.ReceiveReorder(ctx, ledger.ReceiptRequest{ProductID: 1, Quantity: 5})
	require.NoError(t, err)

	d, err := f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: a.ID, Decision: adjustment.StatusApproved, Approver: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 15, d.Adjustment.PreviousPhysicalStock)
	assert.Equal(t, 7, *d.Adjustment.NewPhysicalStock)
	assert.Equal(t, 7, f.product(t).PhysicalStock)
}

func TestApproveAdjustment_BelowReservedStaysPending(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.ledger.Reserve(ctx, ledger.ReserveRequest{ProductID: 1, OrderID: "O1", Quantity: 6})
	require.NoError(t, err)

	a, err := f.svc.CreateAdjustment(ctx, CreateRequest{
		ProductID:   1,
		Type:        adjustment.TypeSet,
		Reason:      adjustment.ReasonPhysicalCount,
		Quantity:    4,
		RequestedBy: "alice",
	})
	require.NoError(t, err)

	_, err = f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: a.ID, Decision: adjustment.StatusApproved, Approver: "bob"})
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)

	got, err := f.svc.GetAdjustment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, adjustment.StatusPending, got.Status)
	assert.Nil(t, got.NewPhysicalStock)
	assert.Equal(t, 10, f.product(t).PhysicalStock)
	assert.Equal(t, 1, f.auditCount(t))
}

func TestApproveAdjustment_Reject(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	before := f.product(t)

	a, err := f.svc.CreateAdjustment(ctx, CreateRequest{
		ProductID:   1,
		Type:        adjustment.TypeDecrease,
		Reason:      adjustment.ReasonLost,
		Quantity:    2,
		RequestedBy: "alice",
	})
	require.NoError(t, err)

	d, err := f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: a.ID, Decision: adjustment.StatusRejected, Approver: "bob", Notes: "已找到"})
	require.NoError(t, err)
	assert.Equal(t, adjustment.StatusRejected, d.Adjustment.Status)
	assert.Equal(t, "已找到", d.Adjustment.Decision)
	assert.Nil(t, d.Ledger)

	after := f.product(t)
	assert.Equal(t, before.Version, after.Version)
	assert.Zero(t, f.auditCount(t))

	_, err = f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: a.ID, Decision: adjustment.StatusApproved, Approver: "bob"})
	assert.ErrorIs(t, err, adjustment.ErrInvalidStateTransition)
}

func TestCreateAdjustment_Validation(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.CreateAdjustment(ctx, CreateRequest{ProductID: 1, Type: adjustment.TypeSet, Reason: adjustment.ReasonPhysicalCount, Quantity: 10, RequestedBy: "alice"})
	assert.ErrorIs(t, err, adjustment.ErrNoEffect)

	_, err = f.svc.CreateAdjustment(ctx, CreateRequest{ProductID: 1, Type: adjustment.TypeIncrease, Reason: adjustment.ReasonDamaged, Quantity: 1, RequestedBy: "alice"})
	assert.ErrorIs(t, err, adjustment.ErrReasonMismatch)

	_, err = f.svc.CreateAdjustment(ctx, CreateRequest{ProductID: 1, Type: adjustment.TypeIncrease, Reason: adjustment.ReasonReceived, Quantity: 1})
	assert.ErrorIs(t, err, adjustment.ErrMissingOperator)

	_, err = f.svc.CreateAdjustment(ctx, CreateRequest{ProductID: 2, Type: adjustment.TypeIncrease, Reason: adjustment.ReasonReceived, Quantity: 1, RequestedBy: "alice"})
	assert.ErrorIs(t, err, stock.ErrProductNotFound)

	_, err = f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: 1, Decision: adjustment.StatusPending, Approver: "bob"})
	assert.ErrorIs(t, err, adjustment.ErrInvalidDecision)

	_, err = f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: 99, Decision: adjustment.StatusApproved, Approver: "bob"})
	assert.ErrorIs(t, err, adjustment.ErrAdjustmentNotFound)

	list, total, err := f.svc.ListAdjustments(ctx, adjustment.Filter{ProductID: 1})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
}

func TestApproveAdjustment_NoEffectAtApprovalTime(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	set, err := f.svc.CreateAdjustment(ctx, CreateRequest{ProductID: 1, Type: adjustment.TypeSet, Reason: adjustment.ReasonPhysicalCount, Quantity: 15, RequestedBy: "alice"})
	require.NoError(t, err)

	// 到货后库存恰好等于盘点值
	_, err = f.ledger.ReceiveReorder(ctx, ledger.ReceiptRequest{ProductID: 1, Quantity: 5})
	require.NoError(t, err)
	before := f.product(t)

	_, err = f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: set.ID, Decision: adjustment.StatusApproved, Approver: "bob"})
	assert.ErrorIs(t, err, adjustment.ErrNoEffect)

	got, err := f.svc.GetAdjustment(ctx, set.ID)
	require.NoError(t, err)
	assert.Equal(t, adjustment.StatusPending, got.Status)
	assert.Equal(t, before.Version, f.product(t).Version)
	assert.Equal(t, 1, f.auditCount(t))
}

func TestApproveAdjustment_DecreaseClampedAtZeroHasNoEffect(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	req := CreateRequest{ProductID: 1, Type: adjustment.TypeDecrease, Reason: adjustment.ReasonLost, Quantity: 3, RequestedBy: "alice"}
	first, err := f.svc.CreateAdjustment(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.CreateAdjustment(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: first.ID, Decision: adjustment.StatusApproved, Approver: "bob"})
	require.NoError(t, err)
	require.Zero(t, f.product(t).PhysicalStock)
	before := f.product(t)

	_, err = f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: second.ID, Decision: adjustment.StatusApproved, Approver: "bob"})
	assert.ErrorIs(t, err, adjustment.ErrNoEffect)
	assert.Equal(t, before.Version, f.product(t).Version)
	assert.Equal(t, 1, f.auditCount(t))
}

func TestApproveAdjustment_ConcurrentOnlyOnce(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	a, err := f.svc.CreateAdjustment(ctx, CreateRequest{ProductID: 1, Type: adjustment.TypeIncrease, Reason: adjustment.ReasonReceived, Quantity: 7, RequestedBy: "alice"})
	require.NoError(t, err)

	const approvers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		others    []error
	)
	for i := 0; i < approvers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApproveAdjustment(ctx, DecisionRequest{AdjustmentID: a.ID, Decision: adjustment.StatusApproved, Approver: "bob"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, adjustment.ErrInvalidStateTransition):
				rejected++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, approvers-1, rejected)
	assert.Equal(t, 107, f.product(t).PhysicalStock)
	assert.Equal(t, 1, f.auditCount(t))
}
