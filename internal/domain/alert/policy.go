package alert

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockledger/internal/domain/stock"
)

var (
	hundred    = decimal.NewFromInt(100)
	maxPercent = decimal.NewFromInt(1000)
)

// Percentages 告警阈值百分比（相对max_stock_level）
type Percentages struct {
	LowStock  decimal.Decimal
	Overstock decimal.Decimal
}

// Override 类目或商品级覆盖，Valid=false的字段沿用上一级
type Override struct {
	LowStock  decimal.NullDecimal
	Overstock decimal.NullDecimal
}

// Thresholds 换算成件数的阈值
type Thresholds struct {
	LowStock  int // 可售库存 ≤ LowStock 视为低库存
	Overstock int // 实物库存 > Overstock 视为积压，0表示不检查
}

// Policy 阈值策略：全局默认 → 类目覆盖 → 商品覆盖
type Policy struct {
	defaults   Percentages
	categories map[string]Override
}

// NewPolicy 创建阈值策略
func NewPolicy(defaults Percentages, categories map[string]Override) (*Policy, error) {
	if err := ValidatePercent(defaults.LowStock); err != nil {
		return nil, err
	}
	if err := ValidatePercent(defaults.Overstock); err != nil {
		return nil, err
	}
	for _, o := range categories {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	if categories == nil {
		categories = map[string]Override{}
	}
	return &Policy{defaults: defaults, categories: categories}, nil
}

// DefaultPolicy 低库存20%，积压100%
func DefaultPolicy() *Policy {
	return &Policy{
		defaults: Percentages{
			LowStock:  decimal.NewFromInt(20),
			Overstock: decimal.NewFromInt(100),
		},
		categories: map[string]Override{},
	}
}

// ValidatePercent 百分比取值范围[0, 1000]
func ValidatePercent(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(maxPercent) {
		return ErrInvalidPercent
	}
	return nil
}

// ParsePercent 解析百分比字符串，空串表示未设置
func ParsePercent(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, ErrInvalidPercent
	}
	if err := ValidatePercent(d); err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// Validate 校验覆盖值
func (o Override) Validate() error {
	if o.LowStock.Valid {
		if err := ValidatePercent(o.LowStock.Decimal); err != nil {
			return err
		}
	}
	if o.Overstock.Valid {
		if err := ValidatePercent(o.Overstock.Decimal); err != nil {
			return err
		}
	}
	return nil
}

func (o Override) apply(p Percentages) Percentages {
	if o.LowStock.Valid {
		p.LowStock = o.LowStock.Decimal
	}
	if o.Overstock.Valid {
		p.Overstock = o.Overstock.Decimal
	}
	return p
}

// PercentagesFor 商品生效的百分比
func (p *Policy) PercentagesFor(ps *stock.ProductStock) Percentages {
	pct := p.defaults
	if o, ok := p.categories[ps.Category]; ok {
		pct = o.apply(pct)
	}
	return Override{LowStock: ps.LowStockPercent, Overstock: ps.OverstockPercent}.apply(pct)
}

// ThresholdsFor 计算商品阈值
// 低库存阈值 = max(reorder_point, max_stock_level × low% / 100)，向下取整
// 积压阈值 = max_stock_level × overstock% / 100，max_stock_level为0时不检查
func (p *Policy) ThresholdsFor(ps *stock.ProductStock) Thresholds {
	th := Thresholds{LowStock: ps.ReorderPoint}
	if ps.MaxStockLevel <= 0 {
		return th
	}

	pct := p.PercentagesFor(ps)
	max := decimal.NewFromInt(int64(ps.MaxStockLevel))

	low := int(max.Mul(pct.LowStock).Div(hundred).Floor().IntPart())
	if low > th.LowStock {
		th.LowStock = low
	}
	th.Overstock = int(max.Mul(pct.Overstock).Div(hundred).Floor().IntPart())
	return th
}

// StockStatus 按库存重新计算状态，人工状态保持不变
func (p *Policy) StockStatus(ps *stock.ProductStock) stock.Status {
	if ps.Status.IsManual() {
		return ps.Status
	}
	available := ps.Available()
	switch {
	case available <= 0:
		return stock.StatusOutOfStock
	case available <= p.ThresholdsFor(ps).LowStock:
		return stock.StatusLowStock
	default:
		return stock.StatusInStock
	}
}

// holds 判断告警条件是否成立
// 低库存与缺货互斥：可售库存 ≤ 0 只算缺货
func holds(t Type, ps *stock.ProductStock, th Thresholds) bool {
	available := ps.Available()
	switch t {
	case TypeOutOfStock:
		return available <= 0
	case TypeLowStock:
		return available > 0 && available <= th.LowStock
	case TypeOverstock:
		return th.Overstock > 0 && ps.PhysicalStock > th.Overstock
	}
	return false
}

// suggestedQuantity 建议补货量 = max(reorder_quantity, 低库存阈值 - 可售 + 1)
// 积压告警为0
func suggestedQuantity(t Type, ps *stock.ProductStock, th Thresholds) int {
	if t == TypeOverstock {
		return 0
	}
	gap := th.LowStock - ps.Available() + 1
	if gap > ps.ReorderQuantity {
		return gap
	}
	return ps.ReorderQuantity
}
