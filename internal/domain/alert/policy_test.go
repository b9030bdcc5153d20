package alert

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/stockledger/internal/domain/stock"
)

func pct(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestPolicy_ThresholdsFor(t *testing.T) {
	policy, err := NewPolicy(
		Percentages{LowStock: decimal.NewFromInt(20), Overstock: decimal.NewFromInt(100)},
		map[string]Override{
			"perishable": {LowStock: pct(30)},
			"bulky":      {Overstock: pct(80)},
		},
	)
	require.NoError(t, err)

	tests := []struct {
		name string
		ps   *stock.ProductStock
		want Thresholds
	}{
		{
			name: "再订货点高于百分比",
			ps:   &stock.ProductStock{ReorderPoint: 25, MaxStockLevel: 100},
			want: Thresholds{LowStock: 25, Overstock: 100},
		},
		{
			name: "百分比高于再订货点",
			ps:   &stock.ProductStock{ReorderPoint: 5, MaxStockLevel: 100},
			want: Thresholds{LowStock: 20, Overstock: 100},
		},
		{
			name: "向下取整",
			ps:   &stock.ProductStock{ReorderPoint: 0, MaxStockLevel: 33},
			want: Thresholds{LowStock: 6, Overstock: 33},
		},
		{
			name: "未设置上限不检查积压",
			ps:   &stock.ProductStock{ReorderPoint: 10},
			want: Thresholds{LowStock: 10, Overstock: 0},
		},
		{
			name: "类目覆盖低库存",
			ps:   &stock.ProductStock{Category: "perishable", ReorderPoint: 5, MaxStockLevel: 100},
			want: Thresholds{LowStock: 30, Overstock: 100},
		},
		{
			name: "类目覆盖积压",
			ps:   &stock.ProductStock{Category: "bulky", MaxStockLevel: 50},
			want: Thresholds{LowStock: 10, Overstock: 40},
		},
		{
			name: "商品覆盖优先于类目",
			ps: &stock.ProductStock{
				Category:        "perishable",
				MaxStockLevel:   100,
				LowStockPercent: decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
			},
			want: Thresholds{LowStock: 12, Overstock: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ThresholdsFor(tt.ps))
		})
	}
}

func TestPolicy_StockStatus(t *testing.T) {
	policy := DefaultPolicy()

	ps := &stock.ProductStock{PhysicalStock: 100, ReorderPoint: 10, Status: stock.StatusInStock}
	assert.Equal(t, stock.StatusInStock, policy.StockStatus(ps))

	ps.ReservedStock = 90
	assert.Equal(t, stock.StatusLowStock, policy.StockStatus(ps))

	ps.ReservedStock = 100
	assert.Equal(t, stock.StatusOutOfStock, policy.StockStatus(ps))

	ps.Status = stock.StatusOnHold
	assert.Equal(t, stock.StatusOnHold, policy.StockStatus(ps), "人工状态不被覆盖")

	ps.Status = stock.StatusDiscontinued
	assert.Equal(t, stock.StatusDiscontinued, policy.StockStatus(ps))
}

func TestNewPolicy_InvalidPercent(t *testing.T) {
	_, err := NewPolicy(Percentages{LowStock: decimal.NewFromInt(-1), Overstock: decimal.NewFromInt(100)}, nil)
	assert.ErrorIs(t, err, ErrInvalidPercent)

	_, err = NewPolicy(
		Percentages{LowStock: decimal.NewFromInt(20), Overstock: decimal.NewFromInt(100)},
		map[string]Override{"x": {Overstock: pct(1001)}},
	)
	assert.ErrorIs(t, err, ErrInvalidPercent)
}

func TestSuggestedQuantity(t *testing.T) {
	th := Thresholds{LowStock: 20, Overstock: 100}

	ps := &stock.ProductStock{PhysicalStock: 15, ReorderQuantity: 50}
	assert.Equal(t, 50, suggestedQuantity(TypeLowStock, ps, th))

	ps = &stock.ProductStock{PhysicalStock: 0, ReorderQuantity: 5}
	assert.Equal(t, 21, suggestedQuantity(TypeOutOfStock, ps, th))

	ps = &stock.ProductStock{PhysicalStock: 150, ReorderQuantity: 5}
	assert.Equal(t, 0, suggestedQuantity(TypeOverstock, ps, th))
}

func TestParsePercent(t *testing.T) {
	p, err := ParsePercent(" 12.5 ")
	require.NoError(t, err)
	assert.True(t, p.Valid)
	assert.Equal(t, "12.5", p.Decimal.String())

	p, err = ParsePercent("")
	require.NoError(t, err)
	assert.False(t, p.Valid)

	_, err = ParsePercent("abc")
	assert.ErrorIs(t, err, ErrInvalidPercent)

	_, err = ParsePercent("-3")
	assert.ErrorIs(t, err, ErrInvalidPercent)
}
