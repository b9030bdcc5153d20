package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockledger/internal/application/ledger"
	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
)

// TimeLayout 响应中的时间格式
const TimeLayout = "2006-01-02 15:04:05"

// ReorderSettingsRequest 补货参数
// 百分比为空表示沿用类目或全局默认值
type ReorderSettingsRequest struct {
	ReorderPoint     int                 `json:"reorder_point" binding:"min=0" example:"20"`
	ReorderQuantity  int                 `json:"reorder_quantity" binding:"min=0" example:"50"`
	MaxStockLevel    int                 `json:"max_stock_level" binding:"min=0" example:"500"`
	LowStockPercent  decimal.NullDecimal `json:"low_stock_percent" swaggertype:"string" example:"20"`
	OverstockPercent decimal.NullDecimal `json:"overstock_percent" swaggertype:"string" example:"100"`
}

// Settings 转换为账本参数
func (r ReorderSettingsRequest) Settings() ledger.ReorderSettings {
	return ledger.ReorderSettings{
		ReorderPoint:     r.ReorderPoint,
		ReorderQuantity:  r.ReorderQuantity,
		MaxStockLevel:    r.MaxStockLevel,
		LowStockPercent:  r.LowStockPercent,
		OverstockPercent: r.OverstockPercent,
	}
}

// CreateProductRequest 建立商品库存档案
type CreateProductRequest struct {
	ID            uint   `json:"id" binding:"required" example:"1001"`
	SKU           string `json:"sku" binding:"max=64" example:"SKU-1001"`
	Category      string `json:"category" binding:"max=64" example:"perishable"`
	PhysicalStock int    `json:"physical_stock" binding:"min=0" example:"100"`
	ReorderSettingsRequest
}

// UpdateStatusRequest 人工变更销售状态
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active on_hold discontinued" example:"on_hold"`
}

// ReserveRequest 订单预占
type ReserveRequest struct {
	OrderID   string     `json:"order_id" binding:"required,max=64" example:"ORD-20240301-0001"`
	Quantity  int        `json:"quantity" binding:"required,min=1" example:"2"`
	ExpiresAt *time.Time `json:"expires_at" example:"2024-03-01T10:15:00+08:00"`
}

// FulfillRequest 发货履约，可以分批
type FulfillRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1" example:"2"`
}

// ReturnRequest 退货入库
type ReturnRequest struct {
	OrderID  string `json:"order_id" binding:"required,max=64" example:"ORD-20240301-0001"`
	Quantity int    `json:"quantity" binding:"required,min=1" example:"1"`
	Reason   string `json:"reason" binding:"max=255" example:"七天无理由"`
}

// ReceiptRequest 采购到货
type ReceiptRequest struct {
	Quantity  int    `json:"quantity" binding:"required,min=1" example:"50"`
	Reference string `json:"reference" binding:"max=255" example:"PO-8812"`
}

// ListQuery 通用分页参数
type ListQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
	Offset int `form:"offset" binding:"omitempty,min=0" example:"0"`
}

// PageLimit 未指定时与服务层默认值一致
func (q ListQuery) PageLimit() int {
	if q.Limit <= 0 {
		return 20
	}
	return q.Limit
}

// ListProductsQuery 商品库存列表
type ListProductsQuery struct {
	ListQuery
	Category string `form:"category"`
	Status   string `form:"status" binding:"omitempty,oneof=in_stock low_stock out_of_stock discontinued on_hold"`
}

// ListReservationsQuery 预占列表
type ListReservationsQuery struct {
	ListQuery
	ProductID uint   `form:"product_id"`
	OrderID   string `form:"order_id"`
	Status    string `form:"status" binding:"omitempty,oneof=active fulfilled cancelled expired"`
}

// DueReservationsQuery 到期预占
type DueReservationsQuery struct {
	Before *time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListAuditLogsQuery 审计日志查询
type ListAuditLogsQuery struct {
	ListQuery
	ProductID uint       `form:"product_id"`
	OrderID   string     `form:"order_id"`
	Operation string     `form:"operation"`
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ProductResponse 商品库存
type ProductResponse struct {
	ID                   uint                `json:"id" example:"1001"`
	SKU                  string              `json:"sku" example:"SKU-1001"`
	Category             string              `json:"category" example:"perishable"`
	PhysicalStock        int                 `json:"physical_stock" example:"100"`
	ReservedStock        int                 `json:"reserved_stock" example:"85"`
	AvailableStock       int                 `json:"available_stock" example:"15"`
	InitialPhysicalStock int                 `json:"initial_physical_stock" example:"100"`
	ReorderPoint         int                 `json:"reorder_point" example:"20"`
	ReorderQuantity      int                 `json:"reorder_quantity" example:"50"`
	MaxStockLevel        int                 `json:"max_stock_level" example:"500"`
	LowStockPercent      decimal.NullDecimal `json:"low_stock_percent" swaggertype:"string"`
	OverstockPercent     decimal.NullDecimal `json:"overstock_percent" swaggertype:"string"`
	Status               string              `json:"stock_status" example:"low_stock"`
	Version              int64               `json:"version" example:"3"`
	CreatedAt            string              `json:"created_at" example:"2024-03-01 10:00:00"`
	UpdatedAt            string              `json:"updated_at" example:"2024-03-01 10:05:00"`
}

// ReservationResponse 订单预占
type ReservationResponse struct {
	ID                uint    `json:"id" example:"1"`
	ProductID         uint    `json:"product_id" example:"1001"`
	OrderID           string  `json:"order_id" example:"ORD-20240301-0001"`
	Quantity          int     `json:"quantity" example:"2"`
	FulfilledQuantity int     `json:"fulfilled_quantity" example:"0"`
	Status            string  `json:"status" example:"active"`
	ReservedAt        string  `json:"reserved_at" example:"2024-03-01 10:00:00"`
	ExpiresAt         *string `json:"expires_at,omitempty"`
	ClosedAt          *string `json:"closed_at,omitempty"`
}

// AuditLogResponse 审计日志
type AuditLogResponse struct {
	ID                   uint   `json:"id" example:"1"`
	ProductID            uint   `json:"product_id" example:"1001"`
	Operation            string `json:"operation_type" example:"order_reservation"`
	PhysicalStockBefore  int    `json:"physical_stock_before" example:"100"`
	ReservedStockBefore  int    `json:"reserved_stock_before" example:"0"`
	AvailableStockBefore int    `json:"available_stock_before" example:"100"`
	PhysicalStockAfter   int    `json:"physical_stock_after" example:"100"`
	ReservedStockAfter   int    `json:"reserved_stock_after" example:"2"`
	AvailableStockAfter  int    `json:"available_stock_after" example:"98"`
	QuantityAffected     int    `json:"quantity_affected" example:"2"`
	OrderID              string `json:"order_id,omitempty"`
	ReservationID        uint   `json:"reservation_id,omitempty"`
	AdjustmentID         uint   `json:"adjustment_id,omitempty"`
	Reason               string `json:"reason,omitempty"`
	PerformedBy          string `json:"performed_by,omitempty"`
	VersionAfter         int64  `json:"version_after" example:"2"`
	CreatedAt            string `json:"created_at" example:"2024-03-01 10:00:00"`
}

// LedgerResultResponse 一次库存变更的结果
type LedgerResultResponse struct {
	Product        *ProductResponse     `json:"product"`
	Reservation    *ReservationResponse `json:"reservation,omitempty"`
	AuditLog       *AuditLogResponse    `json:"audit_log,omitempty"`
	AlertsRaised   []*AlertResponse     `json:"alerts_raised,omitempty"`
	AlertsResolved []*AlertResponse     `json:"alerts_resolved,omitempty"`
}

// ExpireResponse 过期检查结果
type ExpireResponse struct {
	Expired bool                  `json:"expired"`
	Result  *LedgerResultResponse `json:"result,omitempty"`
}

func formatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToProductResponse 商品库存转换
func ToProductResponse(p *stock.ProductStock) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{
		ID:                   p.ID,
		SKU:                  p.SKU,
		Category:             p.Category,
		PhysicalStock:        p.PhysicalStock,
		ReservedStock:        p.ReservedStock,
		AvailableStock:       p.Available(),
		InitialPhysicalStock: p.InitialPhysicalStock,
		ReorderPoint:         p.ReorderPoint,
		ReorderQuantity:      p.ReorderQuantity,
		MaxStockLevel:        p.MaxStockLevel,
		LowStockPercent:      p.LowStockPercent,
		OverstockPercent:     p.OverstockPercent,
		Status:               string(p.Status),
		Version:              p.Version,
		CreatedAt:            formatTime(p.CreatedAt),
		UpdatedAt:            formatTime(p.UpdatedAt),
	}
}

// ToProductList 列表转换
func ToProductList(items []*stock.ProductStock) []*ProductResponse {
	out := make([]*ProductResponse, len(items))
	for i, p := range items {
		out[i] = ToProductResponse(p)
	}
	return out
}

// ToReservationResponse 预占转换
func ToReservationResponse(r *stock.Reservation) *ReservationResponse {
	if r == nil {
		return nil
	}
	return &ReservationResponse{
		ID:                r.ID,
		ProductID:         r.ProductID,
		OrderID:           r.OrderID,
		Quantity:          r.Quantity,
		FulfilledQuantity: r.FulfilledQuantity,
		Status:            string(r.Status),
		ReservedAt:        formatTime(r.ReservedAt),
		ExpiresAt:         formatTimePtr(r.ExpiresAt),
		ClosedAt:          formatTimePtr(r.ClosedAt),
	}
}

// ToReservationList 列表转换
func ToReservationList(items []*stock.Reservation) []*ReservationResponse {
	out := make([]*ReservationResponse, len(items))
	for i, r := range items {
		out[i] = ToReservationResponse(r)
	}
	return out
}

// ToAuditLogResponse 审计日志转换
func ToAuditLogResponse(e *audit.Entry) *AuditLogResponse {
	if e == nil {
		return nil
	}
	return &AuditLogResponse{
		ID:                   e.ID,
		ProductID:            e.ProductID,
		Operation:            string(e.Operation),
		PhysicalStockBefore:  e.Before.Physical,
		ReservedStockBefore:  e.Before.Reserved,
		AvailableStockBefore: e.Before.Available(),
		PhysicalStockAfter:   e.After.Physical,
		ReservedStockAfter:   e.After.Reserved,
		AvailableStockAfter:  e.After.Available(),
		QuantityAffected:     e.QuantityAffected,
		OrderID:              e.OrderID,
		ReservationID:        e.ReservationID,
		AdjustmentID:         e.AdjustmentID,
		Reason:               e.Reason,
		PerformedBy:          e.PerformedBy,
		VersionAfter:         e.VersionAfter,
		CreatedAt:            formatTime(e.CreatedAt),
	}
}

// ToAuditLogList 列表转换
func ToAuditLogList(items []*audit.Entry) []*AuditLogResponse {
	out := make([]*AuditLogResponse, len(items))
	for i, e := range items {
		out[i] = ToAuditLogResponse(e)
	}
	return out
}

// ToLedgerResult 账本结果转换
func ToLedgerResult(r *ledger.Result) *LedgerResultResponse {
	if r == nil {
		return nil
	}
	out := &LedgerResultResponse{
		Product:     ToProductResponse(r.Product),
		Reservation: ToReservationResponse(r.Reservation),
		AuditLog:    ToAuditLogResponse(r.Entry),
	}
	if r.Alerts != nil {
		out.AlertsRaised = toAlertSlice(r.Alerts.Raised)
		out.AlertsResolved = toAlertSlice(r.Alerts.Resolved)
	}
	return out
}

func toAlertSlice(items []*alert.Alert) []*AlertResponse {
	if len(items) == 0 {
		return nil
	}
	return ToAlertList(items)
}
