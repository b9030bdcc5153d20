package handler

import (
	"github.com/gin-gonic/gin"

	appalert "github.com/xiebiao/stockledger/internal/application/alert"
	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/interface/http/dto"
	"github.com/xiebiao/stockledger/internal/interface/http/middleware"
	"github.com/xiebiao/stockledger/pkg/response"
)

// AlertHandler 补货告警HTTP处理器
type AlertHandler struct {
	svc *appalert.Service
}

// NewAlertHandler 创建告警处理器
func NewAlertHandler(svc *appalert.Service) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// UpdateStatus 人工处理告警
// @Summary      处理补货告警
// @Description  只有active告警可以确认、解决或忽略，否则返回40012
// @Tags         告警
// @Accept       json
// @Produce      json
// @Param        id path int true "告警ID"
// @Param        X-Operator header string true "处理人"
// @Param        request body dto.AlertStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.AlertResponse}
// @Router       /api/v1/alerts/{id}/status [put]
func (h *AlertHandler) UpdateStatus(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.AlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	status, err := alert.ParseStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	a, err := h.svc.UpdateAlertStatus(c.Request.Context(), appalert.StatusRequest{
		AlertID:   id,
		Status:    status,
		HandledBy: middleware.GetOperator(c),
		Notes:     req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToAlertResponse(a))
}

// GetAlert 查询告警
// @Summary      查询补货告警
// @Tags         告警
// @Produce      json
// @Param        id path int true "告警ID"
// @Success      200 {object} response.Response{data=dto.AlertResponse}
// @Router       /api/v1/alerts/{id} [get]
func (h *AlertHandler) GetAlert(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.GetAlert(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToAlertResponse(a))
}

// ListAlerts 告警列表
// @Summary      补货告警列表
// @Tags         告警
// @Produce      json
// @Param        product_id query int false "商品ID"
// @Param        alert_type query string false "告警类型"
// @Param        status query string false "告警状态"
// @Param        limit query int false "每页数量"
// @Param        offset query int false "偏移量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.AlertResponse}}
// @Router       /api/v1/alerts [get]
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	var q dto.ListAlertsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	items, total, err := h.svc.ListAlerts(c.Request.Context(), alert.Filter{
		ProductID: q.ProductID,
		Type:      alert.Type(q.Type),
		Status:    alert.Status(q.Status),
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToAlertList(items), total, q.PageLimit(), q.Offset)
}
