package handler

import (
	"github.com/gin-gonic/gin"

	appadjustment "github.com/xiebiao/stockledger/internal/application/adjustment"
	"github.com/xiebiao/stockledger/internal/domain/adjustment"
	"github.com/xiebiao/stockledger/internal/interface/http/dto"
	"github.com/xiebiao/stockledger/internal/interface/http/middleware"
	"github.com/xiebiao/stockledger/pkg/response"
)

// AdjustmentHandler 库存调整审批HTTP处理器
type AdjustmentHandler struct {
	svc *appadjustment.Service
}

// NewAdjustmentHandler 创建调整处理器
func NewAdjustmentHandler(svc *appadjustment.Service) *AdjustmentHandler {
	return &AdjustmentHandler{svc: svc}
}

// CreateAdjustment 提交调整申请
// @Summary      提交库存调整
// @Description  只登记申请，审批通过前不改动库存
// @Tags         调整
// @Accept       json
// @Produce      json
// @Param        X-Operator header string true "申请人"
// @Param        request body dto.CreateAdjustmentRequest true "调整申请"
// @Success      200 {object} response.Response{data=dto.AdjustmentResponse}
// @Router       /api/v1/adjustments [post]
func (h *AdjustmentHandler) CreateAdjustment(c *gin.Context) {
	var req dto.CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	typ, err := adjustment.ParseType(req.Type)
	if err != nil {
		response.Error(c, err)
		return
	}
	reason, err := adjustment.ParseReasonCode(req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	a, err := h.svc.CreateAdjustment(c.Request.Context(), appadjustment.CreateRequest{
		ProductID:   req.ProductID,
		Type:        typ,
		Reason:      reason,
		Quantity:    req.Quantity,
		RequestedBy: middleware.GetOperator(c),
		Notes:       req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToAdjustmentResponse(a))
}

// Decide 审批调整单
// @Summary      审批库存调整
// @Description  通过时按当前库存计算新值；新库存低于已预占返回40001，调整单保持pending
// @Tags         调整
// @Accept       json
// @Produce      json
// @Param        id path int true "调整单ID"
// @Param        X-Operator header string true "审批人"
// @Param        request body dto.DecisionRequest true "审批结果"
// @Success      200 {object} response.Response{data=dto.DecisionResponse}
// @Router       /api/v1/adjustments/{id}/decision [post]
func (h *AdjustmentHandler) Decide(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	decision, err := adjustment.ParseApprovalStatus(req.Decision)
	if err != nil {
		response.Error(c, err)
		return
	}

	d, err := h.svc.ApproveAdjustment(c.Request.Context(), appadjustment.DecisionRequest{
		AdjustmentID: id,
		Decision:     decision,
		Approver:     middleware.GetOperator(c),
		Notes:        req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.DecisionResponse{
		Adjustment: dto.ToAdjustmentResponse(d.Adjustment),
		Ledger:     dto.ToLedgerResult(d.Ledger),
	})
}

// GetAdjustment 查询调整单
// @Summary      查询调整单
// @Tags         调整
// @Produce      json
// @Param        id path int true "调整单ID"
// @Success      200 {object} response.Response{data=dto.AdjustmentResponse}
// @Router       /api/v1/adjustments/{id} [get]
func (h *AdjustmentHandler) GetAdjustment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.GetAdjustment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToAdjustmentResponse(a))
}

// ListAdjustments 调整单列表
// @Summary      调整单列表
// @Tags         调整
// @Produce      json
// @Param        product_id query int false "商品ID"
// @Param        status query string false "审批状态"
// @Param        limit query int false "每页数量"
// @Param        offset query int false "偏移量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.AdjustmentResponse}}
// @Router       /api/v1/adjustments [get]
func (h *AdjustmentHandler) ListAdjustments(c *gin.Context) {
	var q dto.ListAdjustmentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	items, total, err := h.svc.ListAdjustments(c.Request.Context(), adjustment.Filter{
		ProductID: q.ProductID,
		Status:    adjustment.ApprovalStatus(q.Status),
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToAdjustmentList(items), total, q.PageLimit(), q.Offset)
}
