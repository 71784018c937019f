package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy 结算策略
type Strategy string

const (
	StrategyCumulative  Strategy = "cumulative"  // 累计口径
	StrategyIncremental Strategy = "incremental" // 增量口径
)

// Valid 是否为已知策略
func (s Strategy) Valid() bool {
	return s == StrategyCumulative || s == StrategyIncremental
}

// SettlementBatchModel 结算批次，创建后除 IsEffective 外不可修改
type SettlementBatchModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	BatchNo        string    `json:"batch_no" gorm:"size:32;uniqueIndex;not null"`
	Strategy       Strategy  `json:"strategy" gorm:"size:16;not null;index:idx_batch_scope"`
	BillAccount    string    `json:"bill_account" gorm:"size:128;not null;default:'';index:idx_batch_scope"` // 空串表示全部账户
	SettlementTime time.Time `json:"settlement_time" gorm:"not null"`

	CarryRatio                 decimal.Decimal `json:"carry_ratio" gorm:"type:decimal(5,2);not null"`
	PeriodNetAmount            decimal.Decimal `json:"period_net_amount" gorm:"type:decimal(18,2);not null"`
	PreviousCarryForwardAmount decimal.Decimal `json:"previous_carry_forward_amount" gorm:"type:decimal(18,2);not null"`
	CumulativeNetAmount        decimal.Decimal `json:"cumulative_net_amount" gorm:"type:decimal(18,2);not null"`
	SettledBaseAmount          decimal.Decimal `json:"settled_base_amount" gorm:"type:decimal(18,2);not null"`
	DistributableAmount        decimal.Decimal `json:"distributable_amount" gorm:"type:decimal(18,2);not null"`
	PaidAmount                 decimal.Decimal `json:"paid_amount" gorm:"type:decimal(18,2);not null"`
	CarryForwardAmount         decimal.Decimal `json:"carry_forward_amount" gorm:"type:decimal(18,2);not null"`
	CumulativeSettledAmount    decimal.Decimal `json:"cumulative_settled_amount" gorm:"type:decimal(18,2);not null"`

	Note        string `json:"note" gorm:"type:text"`
	IsEffective bool   `json:"is_effective" gorm:"not null;default:false;index:idx_batch_scope"`

	// 关联
	Allocations []SettlementAllocationModel `json:"allocations,omitempty" gorm:"foreignKey:BatchId"`
}

// TableName 自定义表名
func (SettlementBatchModel) TableName() string {
	return "settlement_batch"
}

// SettlementAllocationModel 批次内每个参与人的分配快照
type SettlementAllocationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	BatchId                int64           `json:"batch_id" gorm:"not null;index"`
	ParticipantId          *int64          `json:"participant_id" gorm:"index"` // 参与人删除后置空
	ParticipantName        string          `json:"participant_name" gorm:"size:64;not null"`
	ParticipantBillAccount string          `json:"participant_bill_account" gorm:"size:128;not null;default:''"`
	Ratio                  decimal.Decimal `json:"ratio" gorm:"type:decimal(12,6);not null"`
	Amount                 decimal.Decimal `json:"amount" gorm:"type:decimal(18,2);not null"`
	AccountHeldAmount      decimal.Decimal `json:"account_held_amount" gorm:"type:decimal(18,2);not null"`
	ActualTransferAmount   decimal.Decimal `json:"actual_transfer_amount" gorm:"type:decimal(18,2);not null"`
	Note                   string          `json:"note" gorm:"type:text"`
}

// TableName 自定义表名
func (SettlementAllocationModel) TableName() string {
	return "settlement_allocation"
}
