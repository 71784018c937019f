package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2ue/total-gmn/internal/logic"
	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxPageSize = 500

type TransactionHandler struct {
	transactionLogic *logic.TransactionLogic
	loc              *time.Location
}

func NewTransactionHandler(db *gorm.DB, loc *time.Location) *TransactionHandler {
	return &TransactionHandler{
		transactionLogic: logic.NewTransactionLogic(db),
		loc:              loc,
	}
}

// ImportTransactions 导入已分类交易
func (h *TransactionHandler) ImportTransactions(c *gin.Context) {
	var req ImportTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txs := make([]model.TransactionModel, len(req.Transactions))
	for i, r := range req.Transactions {
		t, err := logic.ParseTime(r.TransactionTime, h.loc)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		txs[i] = model.TransactionModel{
			TransactionTime:  t,
			BillAccount:      r.BillAccount,
			Category:         model.Category(r.Category),
			Direction:        model.Direction(r.Direction),
			Status:           r.Status,
			Amount:           r.Amount,
			InternalTransfer: r.InternalTransfer,
			Counterparty:     r.Counterparty,
			OrderNo:          r.OrderNo,
			Remark:           r.Remark,
		}
	}

	if err := h.transactionLogic.ImportTransactions(txs); err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "交易导入成功", gin.H{"imported": len(txs)})
}

// GetTransactions 分页查询交易
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}

	filter := repository.TransactionFilter{
		BillAccount:   strings.TrimSpace(c.Query("billAccount")),
		Direction:     model.Direction(c.Query("direction")),
		Status:        c.Query("status"),
		UnsettledOnly: c.Query("unsettled") == "true",
		Limit:         pageSize,
		Offset:        (page - 1) * pageSize,
	}
	if category := c.Query("category"); category != "" {
		filter.Categories = []model.Category{model.Category(category)}
	}

	start, end, err := parseRange(c, h.loc)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	filter.Start, filter.End = start, end

	txs, total, err := h.transactionLogic.ListTransactions(filter)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取交易列表成功", gin.H{
		"transactions": ToTransactionResponseList(txs),
		"pagination": Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}

// DeleteTransaction 删除交易
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的交易ID")
		return
	}

	if err := h.transactionLogic.DeleteTransaction(id); err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "交易删除成功", nil)
}

// UpdateCategory 批量修改交易分类
func (h *TransactionHandler) UpdateCategory(c *gin.Context) {
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.transactionLogic.UpdateCategory(req.IDs, model.Category(req.Category), model.Direction(req.Direction)); err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "交易分类修改成功", gin.H{"updated": len(req.IDs)})
}

// parseRange 解析 start/end 查询参数，end 只给日期时包含当天
func parseRange(c *gin.Context, loc *time.Location) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if s := c.Query("start"); s != "" {
		t, err := logic.ParseTime(s, loc)
		if err != nil {
			return nil, nil, err
		}
		start = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := logic.ParseSettlementTime(s, loc)
		if err != nil {
			return nil, nil, err
		}
		end = &t
	}
	return start, end, nil
}
