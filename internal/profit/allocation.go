package profit

import (
	"fmt"

	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/shopspring/decimal"
)

// DefaultHeldNudgeTolerance 账户留存合计与派发额的小额差异修正上限
var DefaultHeldNudgeTolerance = decimal.RequireFromString("0.05")

// Allocation 单个参与人的分配结果
type Allocation struct {
	ParticipantId          *int64
	ParticipantName        string
	ParticipantBillAccount string
	Ratio                  decimal.Decimal
	Amount                 decimal.Decimal
	AccountHeldAmount      decimal.Decimal
	ActualTransferAmount   decimal.Decimal
	Note                   string
}

// AllocationInput 分配计算输入
type AllocationInput struct {
	Participants []model.ParticipantModel // 已按稳定顺序排列
	PaidAmount   decimal.Decimal
	// CumulativeBase 累计已结算总额，账户留存按此口径做全生命周期拆分
	CumulativeBase decimal.Decimal
	// AccountNets 绑定账户截至结算时点的纯利润，范围外账户应为0
	AccountNets map[string]decimal.Decimal
	// PreviousHeld 同一范围内历史批次中各账户已计的留存金额合计
	PreviousHeld   map[string]decimal.Decimal
	NudgeTolerance decimal.Decimal
}

// Allocate 计算批次应分金额与账户留存金额
func Allocate(in AllocationInput) []Allocation {
	n := len(in.Participants)
	allocs := make([]Allocation, n)
	if n == 0 {
		return allocs
	}

	ratios := make([]decimal.Decimal, n)
	for i, p := range in.Participants {
		ratios[i] = money.Round6(p.Ratio)
	}
	amounts := money.Split(in.PaidAmount, ratios)
	held := accountHeld(in)

	for i, p := range in.Participants {
		id := p.Id
		allocs[i] = Allocation{
			ParticipantId:          &id,
			ParticipantName:        p.Name,
			ParticipantBillAccount: p.BoundAccount(),
			Ratio:                  ratios[i],
			Amount:                 amounts[i],
			AccountHeldAmount:      held[i],
			ActualTransferAmount:   money.Round2(amounts[i].Sub(held[i])),
		}
	}

	nudgeHeld(allocs, in)
	return allocs
}

// accountHeld 把累计已结算总额按绑定账户的利润贡献拆分，再扣除历史已计留存
func accountHeld(in AllocationInput) []decimal.Decimal {
	held := make([]decimal.Decimal, len(in.Participants))
	for i := range held {
		held[i] = decimal.Zero
	}

	bound, weights := boundWeights(in)
	if len(bound) == 0 {
		return held
	}

	targets := make([]decimal.Decimal, len(bound))
	if decimal.Sum(decimal.Zero, weights...).IsPositive() {
		targets = money.Split(in.CumulativeBase, weights)
	} else {
		for j := range targets {
			targets[j] = decimal.Zero
		}
	}

	for j, i := range bound {
		prev := in.PreviousHeld[in.Participants[i].BoundAccount()]
		held[i] = money.Round2(targets[j].Sub(prev))
	}
	return held
}

// boundWeights 返回绑定账户的参与人下标及其账户贡献
func boundWeights(in AllocationInput) ([]int, []decimal.Decimal) {
	var bound []int
	var weights []decimal.Decimal
	for i, p := range in.Participants {
		account := p.BoundAccount()
		if account == "" {
			continue
		}
		w, ok := in.AccountNets[account]
		if !ok {
			w = decimal.Zero
		}
		bound = append(bound, i)
		weights = append(weights, w)
	}
	return bound, weights
}

// nudgeHeld 留存合计与派发额只差几分钱时，把差额补到贡献最大的绑定行；
// 差额较大（存在未绑定参与人）时保持原样
func nudgeHeld(allocs []Allocation, in AllocationInput) {
	bound, weights := boundWeights(in)
	if len(bound) == 0 {
		return
	}

	tolerance := in.NudgeTolerance
	if tolerance.IsZero() {
		tolerance = DefaultHeldNudgeTolerance
	}

	heldSum := decimal.Zero
	for _, a := range allocs {
		heldSum = heldSum.Add(a.AccountHeldAmount)
	}
	diff := money.Round2(in.PaidAmount.Sub(heldSum))
	if diff.IsZero() || diff.Abs().GreaterThan(tolerance) {
		return
	}

	i := bound[money.LargestWeightIndex(weights)]
	a := &allocs[i]
	a.AccountHeldAmount = money.Round2(a.AccountHeldAmount.Add(diff))
	a.ActualTransferAmount = money.Round2(a.Amount.Sub(a.AccountHeldAmount))
	a.Note = fmt.Sprintf("账户留存差额修正 %s", money.FormatAmount(diff))
}
