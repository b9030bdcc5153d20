// Package memory 内存版仓储，用于测试和单机嵌入式运行
//
// 并发模型：
//   - 事务持有Store的写锁直到提交或回滚，事务之间串行
//   - 事务外的读操作持有读锁，写操作持有写锁
//   - 回滚通过undo日志逆序恢复
package memory

import (
	"context"
	"sync"

	"github.com/xiebiao/stockledger/internal/domain/adjustment"
	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
)

// Store 所有内存表共享一把锁
// 表中保存的是副本，读写都会复制，调用方拿到的实体可以随意修改
type Store struct {
	mu sync.RWMutex

	products     map[uint]*stock.ProductStock
	reservations map[uint]*stock.Reservation
	audits       []*audit.Entry
	adjustments  map[uint]*adjustment.Adjustment
	alerts       map[uint]*alert.Alert

	reservationSeq uint
	auditSeq       uint
	adjustmentSeq  uint
	alertSeq       uint
}

// NewStore 创建空的内存存储
func NewStore() *Store {
	return &Store{
		products:     make(map[uint]*stock.ProductStock),
		reservations: make(map[uint]*stock.Reservation),
		adjustments:  make(map[uint]*adjustment.Adjustment),
		alerts:       make(map[uint]*alert.Alert),
	}
}

type txKey struct{}

// txState 一个事务的undo日志
type txState struct {
	store *Store
	undo  []func()
}

func (tx *txState) onRollback(fn func()) {
	tx.undo = append(tx.undo, fn)
}

func (tx *txState) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (s *Store) txFrom(ctx context.Context) *txState {
	tx, ok := ctx.Value(txKey{}).(*txState)
	if !ok || tx.store != s {
		return nil
	}
	return tx
}

// TxManager 内存事务管理器
type TxManager struct {
	store *Store
}

// NewTxManager 创建事务管理器
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Transaction 执行事务
// 已在事务中时直接加入外层事务；ctx在提交前被取消则回滚
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.store.txFrom(ctx) != nil {
		return fn(ctx)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	tx := &txState{store: m.store}
	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// write 写操作：事务内直接执行并记录undo，事务外持有写锁
func (s *Store) write(ctx context.Context, fn func(tx *txState) error) error {
	if tx := s.txFrom(ctx); tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(nil)
}

// read 读操作：事务内已持有写锁
func (s *Store) read(ctx context.Context, fn func()) {
	if s.txFrom(ctx) != nil {
		fn()
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// record 事务内登记回滚动作
func record(tx *txState, fn func()) {
	if tx != nil {
		tx.onRollback(fn)
	}
}

// page 对已排序的结果分页
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
