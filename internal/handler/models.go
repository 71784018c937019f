package handler

import (
	"time"

	"github.com/2ue/total-gmn/internal/logic"
	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/2ue/total-gmn/internal/profit"
	"github.com/shopspring/decimal"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// 金额字段统一输出为2位小数字符串，比例为6位

// SummaryResponse 利润汇总响应
type SummaryResponse struct {
	SettledIncome      string `json:"settledIncome"`
	PendingIncome      string `json:"pendingIncome"`
	Expense            string `json:"expense"`
	TrafficCost        string `json:"trafficCost"`
	PlatformCommission string `json:"platformCommission"`
	ClosedAmount       string `json:"closedAmount"`
	ClosedNet          string `json:"closedNet"`
	RefundExpense      string `json:"refundExpense"`
	PureProfit         string `json:"pureProfit"`
	TransactionCount   int    `json:"transactionCount"`
	IncludeClosedNet   bool   `json:"includeClosedNet"`
}

// AllocationResponse 分配明细响应
type AllocationResponse struct {
	ParticipantID          *int64 `json:"participantId"`
	ParticipantName        string `json:"participantName"`
	ParticipantBillAccount string `json:"participantBillAccount"`
	Ratio                  string `json:"ratio"`
	Amount                 string `json:"amount"`
	AccountHeldAmount      string `json:"accountHeldAmount"`
	ActualTransferAmount   string `json:"actualTransferAmount"`
	Note                   string `json:"note"`
}

// PreviewResponse 结算预览响应
type PreviewResponse struct {
	Strategy                    string               `json:"strategy"`
	BillAccount                 string               `json:"billAccount"`
	SettlementTime              time.Time            `json:"settlementTime"`
	CarryRatio                  string               `json:"carryRatio"`
	PeriodNetAmount             string               `json:"periodNetAmount"`
	PreviousCumulativeNetAmount string               `json:"previousCumulativeNetAmount"`
	PreviousCarryForwardAmount  string               `json:"previousCarryForwardAmount"`
	CumulativeNetAmount         string               `json:"cumulativeNetAmount"`
	SettledBaseAmount           string               `json:"settledBaseAmount"`
	DistributableAmount         string               `json:"distributableAmount"`
	PaidAmount                  string               `json:"paidAmount"`
	CarryForwardAmount          string               `json:"carryForwardAmount"`
	CumulativeSettledAmount     string               `json:"cumulativeSettledAmount"`
	PreviousBatchID             *int64               `json:"previousBatchId"`
	CandidateCount              int                  `json:"candidateCount"`
	Summary                     SummaryResponse      `json:"summary"`
	Allocations                 []AllocationResponse `json:"allocations"`
}

// BatchResponse 结算批次响应
type BatchResponse struct {
	ID                         int64                `json:"id"`
	BatchNo                    string               `json:"batchNo"`
	Strategy                   string               `json:"strategy"`
	BillAccount                string               `json:"billAccount"`
	SettlementTime             time.Time            `json:"settlementTime"`
	CarryRatio                 string               `json:"carryRatio"`
	PeriodNetAmount            string               `json:"periodNetAmount"`
	PreviousCarryForwardAmount string               `json:"previousCarryForwardAmount"`
	CumulativeNetAmount        string               `json:"cumulativeNetAmount"`
	SettledBaseAmount          string               `json:"settledBaseAmount"`
	DistributableAmount        string               `json:"distributableAmount"`
	PaidAmount                 string               `json:"paidAmount"`
	CarryForwardAmount         string               `json:"carryForwardAmount"`
	CumulativeSettledAmount    string               `json:"cumulativeSettledAmount"`
	Note                       string               `json:"note"`
	IsEffective                bool                 `json:"isEffective"`
	CreatedAt                  time.Time            `json:"createdAt"`
	Allocations                []AllocationResponse `json:"allocations"`
}

// CreateBatchRequest 创建结算批次请求
type CreateBatchRequest struct {
	SettlementTime string           `json:"settlementTime" binding:"required"`
	Strategy       string           `json:"strategy"`
	BillAccount    string           `json:"billAccount"`
	CarryRatio     *decimal.Decimal `json:"carryRatio"`
	Note           string           `json:"note"`
}

// ParticipantRequest 参与人请求
type ParticipantRequest struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	BillAccount *string         `json:"billAccount"`
	Ratio       decimal.Decimal `json:"ratio"`
	Note        string          `json:"note"`
}

// SaveParticipantsRequest 整体保存参与人请求
type SaveParticipantsRequest struct {
	Participants []ParticipantRequest `json:"participants"`
}

// ParticipantResponse 参与人响应
type ParticipantResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	BillAccount *string   `json:"billAccount"`
	Ratio       string    `json:"ratio"`
	Note        string    `json:"note"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TransactionRequest 已分类交易导入请求
type TransactionRequest struct {
	TransactionTime  string          `json:"transactionTime" binding:"required"`
	BillAccount      string          `json:"billAccount"`
	Category         string          `json:"category" binding:"required"`
	Direction        string          `json:"direction" binding:"required"`
	Status           string          `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	InternalTransfer bool            `json:"internalTransfer"`
	Counterparty     string          `json:"counterparty"`
	OrderNo          string          `json:"orderNo"`
	Remark           string          `json:"remark"`
}

// ImportTransactionsRequest 批量导入请求
type ImportTransactionsRequest struct {
	Transactions []TransactionRequest `json:"transactions" binding:"required"`
}

// UpdateCategoryRequest 批量修改分类请求
type UpdateCategoryRequest struct {
	IDs       []int64 `json:"ids" binding:"required"`
	Category  string  `json:"category" binding:"required"`
	Direction string  `json:"direction"`
}

// TransactionResponse 交易响应
type TransactionResponse struct {
	ID                           int64      `json:"id"`
	TransactionTime              time.Time  `json:"transactionTime"`
	BillAccount                  string     `json:"billAccount"`
	Category                     string     `json:"category"`
	Direction                    string     `json:"direction"`
	Status                       string     `json:"status"`
	Amount                       string     `json:"amount"`
	InternalTransfer             bool       `json:"internalTransfer"`
	Counterparty                 string     `json:"counterparty"`
	OrderNo                      string     `json:"orderNo"`
	Remark                       string     `json:"remark"`
	IncrementalSettledAt         *time.Time `json:"incrementalSettledAt"`
	IncrementalSettlementBatchID *int64     `json:"incrementalSettlementBatchId"`
}

// 转换函数

// ToSummaryResponse 将利润汇总转换为响应模型
func ToSummaryResponse(s profit.Summary) SummaryResponse {
	return SummaryResponse{
		SettledIncome:      money.FormatAmount(s.SettledIncome),
		PendingIncome:      money.FormatAmount(s.PendingIncome),
		Expense:            money.FormatAmount(s.Expense),
		TrafficCost:        money.FormatAmount(s.TrafficCost),
		PlatformCommission: money.FormatAmount(s.PlatformCommission),
		ClosedAmount:       money.FormatAmount(s.ClosedAmount()),
		ClosedNet:          money.FormatAmount(s.ClosedNet()),
		RefundExpense:      money.FormatAmount(s.RefundExpense),
		PureProfit:         money.FormatAmount(s.PureProfit()),
		TransactionCount:   s.TransactionCount,
		IncludeClosedNet:   s.Policy().IncludeClosedNet,
	}
}

// ToPreviewResponse 将预览结果转换为响应模型
func ToPreviewResponse(r *logic.PreviewResult) PreviewResponse {
	allocations := make([]AllocationResponse, len(r.Allocations))
	for i, a := range r.Allocations {
		allocations[i] = AllocationResponse{
			ParticipantID:          a.ParticipantId,
			ParticipantName:        a.ParticipantName,
			ParticipantBillAccount: a.ParticipantBillAccount,
			Ratio:                  money.FormatRatio(a.Ratio),
			Amount:                 money.FormatAmount(a.Amount),
			AccountHeldAmount:      money.FormatAmount(a.AccountHeldAmount),
			ActualTransferAmount:   money.FormatAmount(a.ActualTransferAmount),
			Note:                   a.Note,
		}
	}

	return PreviewResponse{
		Strategy:                    string(r.Strategy),
		BillAccount:                 r.BillAccount,
		SettlementTime:              r.SettlementTime,
		CarryRatio:                  money.FormatAmount(r.CarryRatio),
		PeriodNetAmount:             money.FormatAmount(r.PeriodNetAmount),
		PreviousCumulativeNetAmount: money.FormatAmount(r.PreviousCumulativeNetAmount),
		PreviousCarryForwardAmount:  money.FormatAmount(r.PreviousCarryForwardAmount),
		CumulativeNetAmount:         money.FormatAmount(r.CumulativeNetAmount),
		SettledBaseAmount:           money.FormatAmount(r.SettledBaseAmount),
		DistributableAmount:         money.FormatAmount(r.DistributableAmount),
		PaidAmount:                  money.FormatAmount(r.PaidAmount),
		CarryForwardAmount:          money.FormatAmount(r.CarryForwardAmount),
		CumulativeSettledAmount:     money.FormatAmount(r.CumulativeSettledAmount),
		PreviousBatchID:             r.PreviousBatchId,
		CandidateCount:              r.CandidateCount,
		Summary:                     ToSummaryResponse(r.Summary),
		Allocations:                 allocations,
	}
}

// ToBatchResponse 将批次数据库模型转换为响应模型
func ToBatchResponse(b *model.SettlementBatchModel) BatchResponse {
	allocations := make([]AllocationResponse, len(b.Allocations))
	for i, a := range b.Allocations {
		allocations[i] = AllocationResponse{
			ParticipantID:          a.ParticipantId,
			ParticipantName:        a.ParticipantName,
			ParticipantBillAccount: a.ParticipantBillAccount,
			Ratio:                  money.FormatRatio(a.Ratio),
			Amount:                 money.FormatAmount(a.Amount),
			AccountHeldAmount:      money.FormatAmount(a.AccountHeldAmount),
			ActualTransferAmount:   money.FormatAmount(a.ActualTransferAmount),
			Note:                   a.Note,
		}
	}

	return BatchResponse{
		ID:                         b.Id,
		BatchNo:                    b.BatchNo,
		Strategy:                   string(b.Strategy),
		BillAccount:                b.BillAccount,
		SettlementTime:             b.SettlementTime,
		CarryRatio:                 money.FormatAmount(b.CarryRatio),
		PeriodNetAmount:            money.FormatAmount(b.PeriodNetAmount),
		PreviousCarryForwardAmount: money.FormatAmount(b.PreviousCarryForwardAmount),
		CumulativeNetAmount:        money.FormatAmount(b.CumulativeNetAmount),
		SettledBaseAmount:          money.FormatAmount(b.SettledBaseAmount),
		DistributableAmount:        money.FormatAmount(b.DistributableAmount),
		PaidAmount:                 money.FormatAmount(b.PaidAmount),
		CarryForwardAmount:         money.FormatAmount(b.CarryForwardAmount),
		CumulativeSettledAmount:    money.FormatAmount(b.CumulativeSettledAmount),
		Note:                       b.Note,
		IsEffective:                b.IsEffective,
		CreatedAt:                  b.CreatedAt,
		Allocations:                allocations,
	}
}

// ToBatchResponseList 将批次列表转换为响应模型列表
func ToBatchResponseList(batches []model.SettlementBatchModel) []BatchResponse {
	result := make([]BatchResponse, len(batches))
	for i := range batches {
		result[i] = ToBatchResponse(&batches[i])
	}
	return result
}

// ToParticipantResponseList 将参与人列表转换为响应模型列表
func ToParticipantResponseList(participants []model.ParticipantModel) []ParticipantResponse {
	result := make([]ParticipantResponse, len(participants))
	for i, p := range participants {
		result[i] = ParticipantResponse{
			ID:          p.Id,
			Name:        p.Name,
			BillAccount: p.BillAccount,
			Ratio:       money.FormatRatio(p.Ratio),
			Note:        p.Note,
			UpdatedAt:   p.UpdatedAt,
		}
	}
	return result
}

// ToTransactionResponseList 将交易列表转换为响应模型列表
func ToTransactionResponseList(txs []model.TransactionModel) []TransactionResponse {
	result := make([]TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionResponse{
			ID:                           t.Id,
			TransactionTime:              t.TransactionTime,
			BillAccount:                  t.BillAccount,
			Category:                     string(t.Category),
			Direction:                    string(t.Direction),
			Status:                       t.Status,
			Amount:                       money.FormatAmount(t.Amount),
			InternalTransfer:             t.InternalTransfer,
			Counterparty:                 t.Counterparty,
			OrderNo:                      t.OrderNo,
			Remark:                       t.Remark,
			IncrementalSettledAt:         t.IncrementalSettledAt,
			IncrementalSettlementBatchID: t.IncrementalSettlementBatchId,
		}
	}
	return result
}
