package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category 交易分类
type Category string

const (
	CategoryMainIncome         Category = "main-income"         // 主营收入
	CategoryManualIncome       Category = "manual-income"       // 手工录入收入
	CategoryTrafficCost        Category = "traffic-cost"        // 流量费用
	CategoryPlatformCommission Category = "platform-commission" // 平台佣金
	CategoryClosed             Category = "closed"              // 已关闭交易
	CategoryRefundExpense      Category = "refund-expense"      // 退款支出
	CategoryInternalTransfer   Category = "internal-transfer"   // 内部转账
	CategoryOther              Category = "other"               // 其他
)

// Valid 是否为已知分类
func (c Category) Valid() bool {
	switch c {
	case CategoryMainIncome, CategoryManualIncome, CategoryTrafficCost, CategoryPlatformCommission,
		CategoryClosed, CategoryRefundExpense, CategoryInternalTransfer, CategoryOther:
		return true
	}
	return false
}

// IsMain 主营或手工收入类
func (c Category) IsMain() bool {
	return c == CategoryMainIncome || c == CategoryManualIncome
}

// Direction 收支方向
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
	DirectionNeutral Direction = "neutral"
)

// Valid 是否为已知方向
func (d Direction) Valid() bool {
	return d == DirectionIncome || d == DirectionExpense || d == DirectionNeutral
}

// pendingStatuses 账单中视为"未完成"的状态
var pendingStatuses = map[string]struct{}{
	"交易处理中":  {},
	"等待付款":   {},
	"等待确认收货": {},
	"待确认收货":  {},
	"处理中":    {},
	"pending":    {},
	"processing": {},
	"waiting":    {},
}

// IsPendingStatus 判断账单状态是否属于待处理
func IsPendingStatus(status string) bool {
	_, ok := pendingStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// TransactionModel 已分类的账单交易
type TransactionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TransactionTime  time.Time       `json:"transaction_time" gorm:"not null;index"`
	BillAccount      string          `json:"bill_account" gorm:"size:128;not null;default:'';index"`
	Category         Category        `json:"category" gorm:"size:32;not null;index"`
	Direction        Direction       `json:"direction" gorm:"size:16;not null"`
	Status           string          `json:"status" gorm:"size:64"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:decimal(18,2);not null"`
	InternalTransfer bool            `json:"internal_transfer" gorm:"not null;default:false"`
	Counterparty     string          `json:"counterparty" gorm:"size:256"`
	OrderNo          string          `json:"order_no" gorm:"size:128;index"`
	Remark           string          `json:"remark" gorm:"type:text"`

	// 增量结算标记，一旦写入不可再参与增量结算
	IncrementalSettledAt         *time.Time `json:"incremental_settled_at" gorm:"index"`
	IncrementalSettlementBatchId *int64     `json:"incremental_settlement_batch_id" gorm:"index"`
}

// TableName 自定义表名
func (TransactionModel) TableName() string {
	return "ledger_transaction"
}

// IsIncrementalSettled 是否已被增量结算消费
func (t *TransactionModel) IsIncrementalSettled() bool {
	return t.IncrementalSettledAt != nil
}
