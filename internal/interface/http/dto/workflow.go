package dto

import (
	"github.com/xiebiao/stockledger/internal/domain/adjustment"
	"github.com/xiebiao/stockledger/internal/domain/alert"
)

// =========================================
// 库存调整
// =========================================

// CreateAdjustmentRequest 调整申请，申请人取自X-Operator
type CreateAdjustmentRequest struct {
	ProductID uint   `json:"product_id" binding:"required" example:"1001"`
	Type      string `json:"adjustment_type" binding:"required,oneof=increase decrease set" example:"decrease"`
	Reason    string `json:"reason_code" binding:"required" example:"damaged"`
	Quantity  int    `json:"quantity" binding:"min=0" example:"3"`
	Notes     string `json:"notes" binding:"max=2000" example:"运输破损"`
}

// DecisionRequest 审批，审批人取自X-Operator
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved rejected" example:"approved"`
	Notes    string `json:"notes" binding:"max=500" example:"已核实"`
}

// ListAdjustmentsQuery 调整单列表
type ListAdjustmentsQuery struct {
	ListQuery
	ProductID uint   `form:"product_id"`
	Status    string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}

// AdjustmentResponse 调整单
type AdjustmentResponse struct {
	ID                    uint    `json:"id" example:"1"`
	ProductID             uint    `json:"product_id" example:"1001"`
	Type                  string  `json:"adjustment_type" example:"decrease"`
	Reason                string  `json:"reason_code" example:"damaged"`
	Quantity              int     `json:"quantity" example:"3"`
	PreviousPhysicalStock int     `json:"previous_physical_stock" example:"100"`
	NewPhysicalStock      *int    `json:"new_physical_stock,omitempty" example:"97"`
	Status                string  `json:"approval_status" example:"approved"`
	RequestedBy           string  `json:"requested_by" example:"alice"`
	ApprovedBy            string  `json:"approved_by,omitempty" example:"bob"`
	Notes                 string  `json:"notes,omitempty"`
	Decision              string  `json:"decision_notes,omitempty"`
	CreatedAt             string  `json:"created_at" example:"2024-03-01 10:00:00"`
	DecidedAt             *string `json:"decided_at,omitempty"`
}

// DecisionResponse 审批结果，驳回时Ledger为空
type DecisionResponse struct {
	Adjustment *AdjustmentResponse   `json:"adjustment"`
	Ledger     *LedgerResultResponse `json:"ledger,omitempty"`
}

// ToAdjustmentResponse 调整单转换
func ToAdjustmentResponse(a *adjustment.Adjustment) *AdjustmentResponse {
	if a == nil {
		return nil
	}
	return &AdjustmentResponse{
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
		CreatedAt:             formatTime(a.CreatedAt),
		DecidedAt:             formatTimePtr(a.DecidedAt),
	}
}

// ToAdjustmentList 列表转换
func ToAdjustmentList(items []*adjustment.Adjustment) []*AdjustmentResponse {
	out := make([]*AdjustmentResponse, len(items))
	for i, a := range items {
		out[i] = ToAdjustmentResponse(a)
	}
	return out
}

// =========================================
// 补货告警
// =========================================

// AlertStatusRequest 人工处理告警，处理人取自X-Operator
type AlertStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=acknowledged resolved dismissed" example:"acknowledged"`
	Notes  string `json:"notes" binding:"max=500" example:"已下采购单"`
}

// ListAlertsQuery 告警列表
type ListAlertsQuery struct {
	ListQuery
	ProductID uint   `form:"product_id"`
	Type      string `form:"alert_type" binding:"omitempty,oneof=low_stock out_of_stock overstock"`
	Status    string `form:"status" binding:"omitempty,oneof=active acknowledged resolved dismissed"`
}

// AlertResponse 补货告警
type AlertResponse struct {
	ID                       uint    `json:"id" example:"1"`
	ProductID                uint    `json:"product_id" example:"1001"`
	Type                     string  `json:"alert_type" example:"low_stock"`
	CurrentStock             int     `json:"current_stock" example:"15"`
	ReorderPoint             int     `json:"reorder_point" example:"20"`
	Threshold                int     `json:"threshold" example:"20"`
	SuggestedReorderQuantity int     `json:"suggested_reorder_quantity" example:"50"`
	Status                   string  `json:"alert_status" example:"active"`
	Notes                    string  `json:"notes,omitempty"`
	HandledBy                string  `json:"handled_by,omitempty"`
	CreatedAt                string  `json:"created_at" example:"2024-03-01 10:00:00"`
	UpdatedAt                string  `json:"updated_at" example:"2024-03-01 10:00:00"`
	ResolvedAt               *string `json:"resolved_at,omitempty"`
}

// ToAlertResponse 告警转换
func ToAlertResponse(a *alert.Alert) *AlertResponse {
	if a == nil {
		return nil
	}
	return &AlertResponse{
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
		CreatedAt:                formatTime(a.CreatedAt),
		UpdatedAt:                formatTime(a.UpdatedAt),
		ResolvedAt:               formatTimePtr(a.ResolvedAt),
	}
}

// ToAlertList 列表转换
func ToAlertList(items []*alert.Alert) []*AlertResponse {
	out := make([]*AlertResponse, len(items))
	for i, a := range items {
		out[i] = ToAlertResponse(a)
	}
	return out
}
