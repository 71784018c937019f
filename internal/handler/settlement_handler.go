package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/logic"
	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SettlementHandler struct {
	settlementLogic *logic.SettlementLogic
}

func NewSettlementHandler(db *gorm.DB, cfg config.SettlementConfig) *SettlementHandler {
	return &SettlementHandler{
		settlementLogic: logic.NewSettlementLogic(db, cfg),
	}
}

// PreviewSettlement 结算预览，不落库
func (h *SettlementHandler) PreviewSettlement(c *gin.Context) {
	if strings.TrimSpace(c.Query("strategy")) == "" {
		ErrorResponse(c, http.StatusBadRequest, "结算策略不能为空")
		return
	}

	req, err := h.previewRequest(c.Query("settlementTime"), c.Query("strategy"), c.Query("billAccount"), c.Query("carryRatio"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.settlementLogic.Preview(req)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "结算预览成功", ToPreviewResponse(result))
}

// CreateSettlement 创建结算批次
func (h *SettlementHandler) CreateSettlement(c *gin.Context) {
	var body CreateBatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.previewRequest(body.SettlementTime, body.Strategy, body.BillAccount, "")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	req.CarryRatio = body.CarryRatio

	batch, err := h.settlementLogic.Create(logic.CreateRequest{PreviewRequest: req, Note: strings.TrimSpace(body.Note)})
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "结算批次创建成功", ToBatchResponse(batch))
}

// GetSettlements 获取结算批次列表
func (h *SettlementHandler) GetSettlements(c *gin.Context) {
	var strategy *model.Strategy
	if s := c.Query("strategy"); s != "" {
		st := model.Strategy(s)
		strategy = &st
	}
	var billAccount *string
	if a, ok := c.GetQuery("billAccount"); ok {
		a = strings.TrimSpace(a)
		billAccount = &a
	}

	batches, err := h.settlementLogic.ListBatches(strategy, billAccount)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取结算批次列表成功", ToBatchResponseList(batches))
}

// GetSettlement 获取结算批次详情
func (h *SettlementHandler) GetSettlement(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的批次ID")
		return
	}

	batch, err := h.settlementLogic.GetBatch(id)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取结算批次成功", ToBatchResponse(batch))
}

// DeleteSettlement 结算批次不可删除
func (h *SettlementHandler) DeleteSettlement(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	HandleError(c, h.settlementLogic.DeleteBatch(id))
}

func (h *SettlementHandler) previewRequest(settlementTime, strategy, billAccount, carryRatio string) (logic.PreviewRequest, error) {
	var req logic.PreviewRequest

	t, err := logic.ParseSettlementTime(settlementTime, h.settlementLogic.Location())
	if err != nil {
		return req, err
	}
	req.SettlementTime = t

	req.Strategy = h.settlementLogic.DefaultStrategy()
	if strategy = strings.TrimSpace(strategy); strategy != "" {
		req.Strategy = model.Strategy(strategy)
	}
	req.BillAccount = strings.TrimSpace(billAccount)

	if carryRatio != "" {
		r, err := money.ParseRatio(carryRatio)
		if err != nil {
			return req, err
		}
		req.CarryRatio = &r
	}
	return req, nil
}
