package profit

import (
	"github.com/2ue/total-gmn/internal/money"
	"github.com/shopspring/decimal"
)

// Payout 派发计算结果
type Payout struct {
	CarryRatio              decimal.Decimal
	DistributableAmount     decimal.Decimal
	PaidAmount              decimal.Decimal
	CarryForwardAmount      decimal.Decimal
	CumulativeSettledAmount decimal.Decimal
}

// CalculatePayout 根据累计净额与已结算基数计算本期派发。
// 可分配为正时按留存比例保留，其余派发；为负时不派发并把差额作为亏损结转。
func CalculatePayout(cumulativeNet, settledBase, carryRatio decimal.Decimal) Payout {
	ratio := money.ClampCarryRatio(carryRatio)
	distributable := money.Round2(cumulativeNet.Sub(settledBase))

	paid := decimal.Zero
	carry := decimal.Zero
	switch distributable.Sign() {
	case 1:
		carry = money.Round2(distributable.Mul(ratio))
		paid = money.Round2(distributable.Sub(carry))
	case -1:
		carry = distributable.Abs()
	}

	return Payout{
		CarryRatio:              ratio,
		DistributableAmount:     distributable,
		PaidAmount:              paid,
		CarryForwardAmount:      carry,
		CumulativeSettledAmount: money.Round2(settledBase.Add(paid)),
	}
}
