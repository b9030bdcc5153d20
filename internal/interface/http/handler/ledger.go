package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockledger/internal/application/ledger"
	"github.com/xiebiao/stockledger/internal/domain/audit"
	"github.com/xiebiao/stockledger/internal/domain/stock"
	"github.com/xiebiao/stockledger/internal/interface/http/dto"
	"github.com/xiebiao/stockledger/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/stockledger/pkg/errors"
	"github.com/xiebiao/stockledger/pkg/response"
)

// LedgerHandler 库存账本HTTP处理器
type LedgerHandler struct {
	ledger *ledger.Service
}

// NewLedgerHandler 创建账本处理器
func NewLedgerHandler(ledgerSvc *ledger.Service) *LedgerHandler {
	return &LedgerHandler{ledger: ledgerSvc}
}

// CreateProduct 建立商品库存档案
// @Summary      建立商品库存
// @Description  商品目录分配ID后登记初始实物库存和补货参数
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        X-Operator header string false "操作人"
// @Param        request body dto.CreateProductRequest true "商品库存"
// @Success      200 {object} response.Response{data=dto.ProductResponse}
// @Failure      200 {object} response.Response "40009 商品已存在 / 40900 参数错误"
// @Router       /api/v1/products [post]
func (h *LedgerHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	p, err := h.ledger.CreateProduct(c.Request.Context(), ledger.CreateProductRequest{
		ID:            req.ID,
		SKU:           req.SKU,
		Category:      req.Category,
		PhysicalStock: req.PhysicalStock,
		Settings:      req.Settings(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToProductResponse(p))
}

// GetProduct 查询商品库存
// @Summary      查询商品库存
// @Tags         库存
// @Produce      json
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response{data=dto.ProductResponse}
// @Router       /api/v1/products/{id} [get]
func (h *LedgerHandler) GetProduct(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	p, err := h.ledger.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToProductResponse(p))
}

// ListProducts 商品库存列表
// @Summary      商品库存列表
// @Tags         库存
// @Produce      json
// @Param        category query string false "类目"
// @Param        status query string false "库存状态"
// @Param        limit query int false "每页数量"
// @Param        offset query int false "偏移量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.ProductResponse}}
// @Router       /api/v1/products [get]
func (h *LedgerHandler) ListProducts(c *gin.Context) {
	var q dto.ListProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	filter := stock.ProductFilter{
		Category: q.Category,
		Status:   stock.Status(q.Status),
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	items, total, err := h.ledger.ListProducts(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToProductList(items), total, q.PageLimit(), q.Offset)
}

// UpdateStatus 人工变更销售状态
// @Summary      变更销售状态
// @Description  active恢复按库存自动计算；on_hold暂停销售；discontinued下架（终态）
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        id path int true "商品ID"
// @Param        request body dto.UpdateStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.LedgerResultResponse}
// @Router       /api/v1/products/{id}/status [put]
func (h *LedgerHandler) UpdateStatus(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	target, err := stock.ParseAvailability(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.ledger.UpdateProductStatus(c.Request.Context(), id, target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToLedgerResult(res))
}

// UpdateReorderSettings 修改补货参数
// @Summary      修改补货参数
// @Description  修改后立即重新评估告警
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        id path int true "商品ID"
// @Param        request body dto.ReorderSettingsRequest true "补货参数"
// @Success      200 {object} response.Response{data=dto.LedgerResultResponse}
// @Router       /api/v1/products/{id}/reorder-settings [put]
func (h *LedgerHandler) UpdateReorderSettings(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReorderSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.ledger.UpdateReorderSettings(c.Request.Context(), id, req.Settings())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToLedgerResult(res))
}

// Reserve 订单预占
// @Summary      订单预占
// @Description  可售库存不足返回40001；同一订单已有有效预占返回40011
// @Tags         预占
// @Accept       json
// @Produce      json
// @Param        id path int true "商品ID"
// @Param        X-Operator header string false "操作人"
// @Param        request body dto.ReserveRequest true "预占信息"
// @Success      200 {object} response.Response{data=dto.LedgerResultResponse}
// @Router       /api/v1/products/{id}/reservations [post]
func (h *LedgerHandler) Reserve(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.ledger.Reserve(c.Request.Context(), ledger.ReserveRequest{
		ProductID:   id,
		OrderID:     req.OrderID,
		Quantity:    req.Quantity,
		ExpiresAt:   req.ExpiresAt,
		PerformedBy: middleware.GetOperator(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToLedgerResult(res))
}

// Fulfill 订单发货
// @Summary      订单发货
// @Description  扣减实物库存并释放对应预占，支持分批
// @Tags         预占
// @Accept       json
// @Produce      json
// @Param        id path int true "商品ID"
// @Param        order_id path string true "订单号"
// @Param        request body dto.FulfillRequest true "发货数量"
// @Success      200 {object} response.Response{data=dto.LedgerResultResponse}
// @Router       /api/v1/products/{id}/reservations/{order_id}/fulfill [post]
func (h *LedgerHandler) Fulfill(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.ledger.FulfillOrder(c.Request.Context(), ledger.FulfillRequest{
		ProductID:   id,
		OrderID:     c.Param("order_id"),
		Quantity:    req.Quantity,
		PerformedBy: middleware.GetOperator(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToLedgerResult(res))
}

// Cancel 取消预占
// @Summary      取消预占
// @Tags         预占
// @Produce      json
// @Param        id path int true "商品ID"
// @Param        order_id path string true "订单号"
// @Success      200 {object} response.Response{data=dto.LedgerResultResponse}
// @Router       /api/v1/products/{id}/reservations/{order_id}/cancel [post]
func (h *LedgerHandler) Cancel(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	res, err := h.ledger.CancelReservation(c.Request.Context(), id, c.Param("order_id"), middleware.GetOperator(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToLedgerResult(res))
}

// ProcessReturn 退货入库
// @Summary      退货入库
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        id path int true "商品ID"
// @Param        request body dto.ReturnRequest true "退货信息"
// @Success      200 {object} response.Response{data=dto.LedgerResultResponse}
// @Router       /api/v1/products/{id}/returns [post]
func (h *LedgerHandler) ProcessReturn(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.ledger.ProcessReturn(c.Request.Context(), ledger.ReturnRequest{
		ProductID:   id,
		OrderID:     req.OrderID,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		PerformedBy: middleware.GetOperator(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToLedgerResult(res))
}

// ReceiveReorder 采购到货
// @Summary      采购到货
// @Description  增加实物库存，低库存告警随之自动关闭
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        id path int true "商品ID"
// @Param        request body dto.ReceiptRequest true "到货信息"
// @Success      200 {object} response.Response{data=dto.LedgerResultResponse}
// @Router       /api/v1/products/{id}/receipts [post]
func (h *LedgerHandler) ReceiveReorder(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.ledger.ReceiveReorder(c.Request.Context(), ledger.ReceiptRequest{
		ProductID:   id,
		Quantity:    req.Quantity,
		Reference:   req.Reference,
		PerformedBy: middleware.GetOperator(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToLedgerResult(res))
}

// ValidateStock 检查可售库存
// @Summary      检查可售库存
// @Description  只读，不预占
// @Tags         库存
// @Produce      json
// @Param        id path int true "商品ID"
// @Param        quantity query int true "需要的数量"
// @Success      200 {object} response.Response{data=ledger.StockCheck}
// @Router       /api/v1/products/{id}/validate [get]
func (h *LedgerHandler) ValidateStock(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	qty, err := strconv.Atoi(c.Query("quantity"))
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "无效的quantity")
		return
	}

	check, err := h.ledger.ValidateStock(c.Request.Context(), id, qty)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, check)
}

// Reconcile 库存对账
// @Summary      库存对账
// @Description  初始实物库存加审计日志变化量之和应等于当前实物库存
// @Tags         审计
// @Produce      json
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response{data=ledger.ReconcileReport}
// @Router       /api/v1/products/{id}/reconcile [get]
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	report, err := h.ledger.Reconcile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// ListReservations 预占列表
// @Summary      预占列表
// @Tags         预占
// @Produce      json
// @Param        product_id query int false "商品ID"
// @Param        order_id query string false "订单号"
// @Param        status query string false "预占状态"
// @Param        limit query int false "每页数量"
// @Param        offset query int false "偏移量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.ReservationResponse}}
// @Router       /api/v1/reservations [get]
func (h *LedgerHandler) ListReservations(c *gin.Context) {
	var q dto.ListReservationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	items, total, err := h.ledger.ListReservations(c.Request.Context(), stock.ReservationFilter{
		ProductID: q.ProductID,
		OrderID:   q.OrderID,
		Status:    stock.ReservationStatus(q.Status),
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToReservationList(items), total, q.PageLimit(), q.Offset)
}

// ListDueReservations 已到期的有效预占
// @Summary      到期预占
// @Description  供外部定时任务逐条调用过期接口
// @Tags         预占
// @Produce      json
// @Param        before query string false "截止时间（RFC3339），默认当前时间"
// @Param        limit query int false "数量上限"
// @Success      200 {object} response.Response{data=[]dto.ReservationResponse}
// @Router       /api/v1/reservations/due [get]
func (h *LedgerHandler) ListDueReservations(c *gin.Context) {
	var q dto.DueReservationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	now := time.Now()
	if q.Before != nil {
		now = *q.Before
	}

	items, err := h.ledger.ListDueReservations(c.Request.Context(), now, q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToReservationList(items))
}

// ExpireReservation 预占到期释放（幂等）
// @Summary      预占过期
// @Description  未到期或已终态时expired=false，不做修改
// @Tags         预占
// @Produce      json
// @Param        id path int true "预占ID"
// @Success      200 {object} response.Response{data=dto.ExpireResponse}
// @Router       /api/v1/reservations/{id}/expire [post]
func (h *LedgerHandler) ExpireReservation(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	expired, res, err := h.ledger.ExpireIfDue(c.Request.Context(), id, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.ExpireResponse{Expired: expired, Result: dto.ToLedgerResult(res)})
}

// ListAuditLogs 审计日志
// @Summary      审计日志
// @Tags         审计
// @Produce      json
// @Param        product_id query int false "商品ID"
// @Param        order_id query string false "订单号"
// @Param        operation query string false "变更类型"
// @Param        from query string false "起始时间（RFC3339）"
// @Param        to query string false "截止时间（RFC3339）"
// @Param        limit query int false "每页数量"
// @Param        offset query int false "偏移量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.AuditLogResponse}}
// @Router       /api/v1/audit-logs [get]
func (h *LedgerHandler) ListAuditLogs(c *gin.Context) {
	var q dto.ListAuditLogsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	filter := audit.Filter{
		ProductID: q.ProductID,
		OrderID:   q.OrderID,
		From:      q.From,
		To:        q.To,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if q.Operation != "" {
		op, err := audit.ParseOperationType(q.Operation)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Operation = op
	}

	items, total, err := h.ledger.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToAuditLogList(items), total, q.PageLimit(), q.Offset)
}
