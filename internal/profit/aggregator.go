// Package profit 利润汇总、派发与分配计算，不做任何 I/O。
package profit

import (
	"time"

	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/shopspring/decimal"
)

// Policy 一次计算内统一使用的口径开关
type Policy struct {
	IncludeClosedNet    bool // 已关闭交易净额计入纯利润
	DeductRefundExpense bool // 退款支出从纯利润扣除
}

// Filter 汇总时的过滤条件，零值表示不限制
type Filter struct {
	Start       *time.Time
	End         *time.Time
	BillAccount string
}

// Match 判断交易是否落在过滤范围内（End 为闭区间）
func (f Filter) Match(tx *model.TransactionModel) bool {
	if f.Start != nil && tx.TransactionTime.Before(*f.Start) {
		return false
	}
	if f.End != nil && tx.TransactionTime.After(*f.End) {
		return false
	}
	if f.BillAccount != "" && tx.BillAccount != f.BillAccount {
		return false
	}
	return true
}

// Bucket 交易归入的汇总桶
type Bucket int

const (
	BucketNone Bucket = iota
	BucketSettledIncome
	BucketPendingIncome
	BucketExpense
	BucketTrafficCost
	BucketPlatformCommission
	BucketClosed
	BucketRefundExpense
)

// Summary 利润汇总，每次查询重新计算，不落库
type Summary struct {
	SettledIncome      decimal.Decimal `json:"settled_income"`
	PendingIncome      decimal.Decimal `json:"pending_income"`
	Expense            decimal.Decimal `json:"expense"`
	TrafficCost        decimal.Decimal `json:"traffic_cost"`
	PlatformCommission decimal.Decimal `json:"platform_commission"`
	ClosedIncome       decimal.Decimal `json:"closed_income"`
	ClosedExpense      decimal.Decimal `json:"closed_expense"`
	RefundExpense      decimal.Decimal `json:"refund_expense"`
	TransactionCount   int             `json:"transaction_count"`

	policy Policy
}

// Policy 返回计算该汇总时使用的口径
func (s Summary) Policy() Policy {
	return s.policy
}

// ClosedAmount 已关闭交易总额
func (s Summary) ClosedAmount() decimal.Decimal {
	return money.Round2(s.ClosedIncome.Add(s.ClosedExpense))
}

// ClosedNet 已关闭交易净额（收入-支出）
func (s Summary) ClosedNet() decimal.Decimal {
	return money.Round2(s.ClosedIncome.Sub(s.ClosedExpense))
}

// PureProfit 纯利润 = 已结算收入 - 支出 - 流量费 - 佣金 (- 退款) (+ 关闭净额)
func (s Summary) PureProfit() decimal.Decimal {
	p := s.SettledIncome.Sub(s.Expense).Sub(s.TrafficCost).Sub(s.PlatformCommission)
	if s.policy.DeductRefundExpense {
		p = p.Sub(s.RefundExpense)
	}
	if s.policy.IncludeClosedNet {
		p = p.Add(s.ClosedNet())
	}
	return money.Round2(p)
}

// Classify 按 (分类, 方向, 状态) 决策表把交易路由到唯一的桶
func Classify(tx *model.TransactionModel) Bucket {
	if tx.InternalTransfer || tx.Category == model.CategoryInternalTransfer {
		return BucketNone
	}

	switch {
	case tx.Category.IsMain():
		switch tx.Direction {
		case model.DirectionIncome:
			if model.IsPendingStatus(tx.Status) {
				return BucketPendingIncome
			}
			return BucketSettledIncome
		case model.DirectionExpense:
			return BucketExpense
		}
	case tx.Category == model.CategoryTrafficCost:
		return BucketTrafficCost
	case tx.Category == model.CategoryPlatformCommission:
		return BucketPlatformCommission
	case tx.Category == model.CategoryRefundExpense:
		return BucketRefundExpense
	case tx.Category == model.CategoryClosed:
		return BucketClosed
	}
	return BucketNone
}

// Contributes 该桶在当前口径下是否参与纯利润
func (p Policy) Contributes(b Bucket) bool {
	switch b {
	case BucketSettledIncome, BucketExpense, BucketTrafficCost, BucketPlatformCommission:
		return true
	case BucketRefundExpense:
		return p.DeductRefundExpense
	case BucketClosed:
		return p.IncludeClosedNet
	}
	return false
}

// costDelta 费用类桶：支出方向累加，收入方向视为冲回
func costDelta(tx *model.TransactionModel) decimal.Decimal {
	switch tx.Direction {
	case model.DirectionExpense:
		return tx.Amount
	case model.DirectionIncome:
		return tx.Amount.Neg()
	}
	return decimal.Zero
}

// Accumulator 单次遍历累加器
type Accumulator struct {
	summary Summary
}

// NewAccumulator 创建累加器，口径在创建时固定
func NewAccumulator(policy Policy) *Accumulator {
	return &Accumulator{summary: Summary{
		SettledIncome:      decimal.Zero,
		PendingIncome:      decimal.Zero,
		Expense:            decimal.Zero,
		TrafficCost:        decimal.Zero,
		PlatformCommission: decimal.Zero,
		ClosedIncome:       decimal.Zero,
		ClosedExpense:      decimal.Zero,
		RefundExpense:      decimal.Zero,
		policy:             policy,
	}}
}

// Add 累加一笔交易，返回其所在桶
func (a *Accumulator) Add(tx *model.TransactionModel) Bucket {
	s := &a.summary
	b := Classify(tx)
	switch b {
	case BucketSettledIncome:
		s.SettledIncome = money.Add(s.SettledIncome, tx.Amount)
	case BucketPendingIncome:
		s.PendingIncome = money.Add(s.PendingIncome, tx.Amount)
	case BucketExpense:
		s.Expense = money.Add(s.Expense, tx.Amount)
	case BucketTrafficCost:
		s.TrafficCost = money.Add(s.TrafficCost, costDelta(tx))
	case BucketPlatformCommission:
		s.PlatformCommission = money.Add(s.PlatformCommission, costDelta(tx))
	case BucketRefundExpense:
		s.RefundExpense = money.Add(s.RefundExpense, costDelta(tx))
	case BucketClosed:
		switch tx.Direction {
		case model.DirectionIncome:
			s.ClosedIncome = money.Add(s.ClosedIncome, tx.Amount)
		case model.DirectionExpense:
			s.ClosedExpense = money.Add(s.ClosedExpense, tx.Amount)
		}
	default:
		return BucketNone
	}
	s.TransactionCount++
	return b
}

// Summary 返回当前累计结果
func (a *Accumulator) Summary() Summary {
	return a.summary
}

// Aggregate 对交易切片做一次遍历汇总
func Aggregate(txs []model.TransactionModel, filter Filter, policy Policy) Summary {
	acc := NewAccumulator(policy)
	for i := range txs {
		if !filter.Match(&txs[i]) {
			continue
		}
		acc.Add(&txs[i])
	}
	return acc.Summary()
}

// IncrementalScan 增量扫描结果
type IncrementalScan struct {
	Summary      Summary
	NetAmount    decimal.Decimal
	CandidateIds []int64 // 创建批次时需要标记为已结算的交易
}

// ScanIncremental 只扫描未被增量结算的交易，收集符合口径的候选 id
func ScanIncremental(txs []model.TransactionModel, filter Filter, policy Policy) IncrementalScan {
	acc := NewAccumulator(policy)
	ids := make([]int64, 0)
	for i := range txs {
		tx := &txs[i]
		if tx.IsIncrementalSettled() || !filter.Match(tx) {
			continue
		}
		if b := acc.Add(tx); policy.Contributes(b) {
			ids = append(ids, tx.Id)
		}
	}
	s := acc.Summary()
	return IncrementalScan{Summary: s, NetAmount: s.PureProfit(), CandidateIds: ids}
}

// AccountNets 按账户计算截至 end 的纯利润，用于账户留存拆分
func AccountNets(txs []model.TransactionModel, accounts []string, end time.Time, policy Policy) map[string]decimal.Decimal {
	accs := make(map[string]*Accumulator, len(accounts))
	for _, a := range accounts {
		accs[a] = NewAccumulator(policy)
	}
	for i := range txs {
		tx := &txs[i]
		acc, ok := accs[tx.BillAccount]
		if !ok || tx.TransactionTime.After(end) {
			continue
		}
		acc.Add(tx)
	}

	nets := make(map[string]decimal.Decimal, len(accounts))
	for a, acc := range accs {
		nets[a] = acc.Summary().PureProfit()
	}
	return nets
}
