package profit

import (
	"testing"

	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participant(id int64, name, account, ratio string) model.ParticipantModel {
	p := model.ParticipantModel{Id: id, Name: name, Ratio: d(ratio)}
	if account != "" {
		p.BillAccount = &account
	}
	return p
}

func sumAmounts(allocs []Allocation) (amount, held decimal.Decimal) {
	amount, held = decimal.Zero, decimal.Zero
	for _, a := range allocs {
		amount = amount.Add(a.Amount)
		held = held.Add(a.AccountHeldAmount)
	}
	return amount, held
}

func TestAllocateBatchOwedSplit(t *testing.T) {
	allocs := Allocate(AllocationInput{
		Participants: []model.ParticipantModel{
			participant(1, "甲", "", "0.6"),
			participant(2, "乙", "", "0.4"),
		},
		PaidAmount:     d("46.00"),
		CumulativeBase: d("46.00"),
	})

	require.Len(t, allocs, 2)
	assert.Equal(t, "27.60", money.FormatAmount(allocs[0].Amount))
	assert.Equal(t, "18.40", money.FormatAmount(allocs[1].Amount))
	for _, a := range allocs {
		assert.True(t, a.AccountHeldAmount.IsZero())
		assert.True(t, a.ActualTransferAmount.Equal(a.Amount))
	}
	require.NotNil(t, allocs[0].ParticipantId)
	assert.Equal(t, int64(1), *allocs[0].ParticipantId)
}

func TestAllocateBoundAndUnbound(t *testing.T) {
	allocs := Allocate(AllocationInput{
		Participants: []model.ParticipantModel{
			participant(1, "甲", "acc-a", "0.5"),
			participant(2, "乙", "", "0.5"),
		},
		PaidAmount:     d("100"),
		CumulativeBase: d("100"),
		AccountNets:    map[string]decimal.Decimal{"acc-a": d("100")},
	})

	require.Len(t, allocs, 2)
	assert.Equal(t, "50.00", money.FormatAmount(allocs[0].Amount))
	assert.Equal(t, "100.00", money.FormatAmount(allocs[0].AccountHeldAmount))
	assert.Equal(t, "-50.00", money.FormatAmount(allocs[0].ActualTransferAmount))
	assert.Equal(t, "acc-a", allocs[0].ParticipantBillAccount)

	assert.True(t, allocs[1].AccountHeldAmount.IsZero())
	assert.True(t, allocs[1].ActualTransferAmount.Equal(allocs[1].Amount))
	assert.Empty(t, allocs[1].ParticipantBillAccount)
}

func TestAllocateSubtractsPreviousHeld(t *testing.T) {
	allocs := Allocate(AllocationInput{
		Participants: []model.ParticipantModel{
			participant(1, "甲", "acc-a", "0.5"),
			participant(2, "乙", "acc-b", "0.5"),
		},
		PaidAmount:     d("50"),
		CumulativeBase: d("150"),
		AccountNets:    map[string]decimal.Decimal{"acc-a": d("200"), "acc-b": d("100")},
		PreviousHeld:   map[string]decimal.Decimal{"acc-a": d("70"), "acc-b": d("30")},
	})

	// 目标 100/50，减去历史 70/30
	assert.Equal(t, "30.00", money.FormatAmount(allocs[0].AccountHeldAmount))
	assert.Equal(t, "20.00", money.FormatAmount(allocs[1].AccountHeldAmount))
	amount, held := sumAmounts(allocs)
	assert.True(t, amount.Equal(d("50")))
	assert.True(t, held.Equal(d("50")))
}

func TestAllocateNonPositiveContributions(t *testing.T) {
	allocs := Allocate(AllocationInput{
		Participants: []model.ParticipantModel{
			participant(1, "甲", "acc-a", "0.5"),
			participant(2, "乙", "acc-b", "0.5"),
		},
		PaidAmount:     d("0"),
		CumulativeBase: d("100"),
		AccountNets:    map[string]decimal.Decimal{"acc-a": d("-40"), "acc-b": d("10")},
	})
	for _, a := range allocs {
		assert.True(t, a.AccountHeldAmount.IsZero())
		assert.True(t, a.Amount.IsZero())
	}
}

func TestAllocateHeldNudge(t *testing.T) {
	participants := []model.ParticipantModel{
		participant(1, "甲", "acc-a", "0.5"),
		participant(2, "乙", "acc-b", "0.5"),
	}
	nets := map[string]decimal.Decimal{"acc-a": d("1"), "acc-b": d("2")}

	t.Run("small difference nudged to largest contribution", func(t *testing.T) {
		allocs := Allocate(AllocationInput{
			Participants:   participants,
			PaidAmount:     d("100"),
			CumulativeBase: d("100"),
			AccountNets:    nets,
			PreviousHeld:   map[string]decimal.Decimal{"acc-a": d("0.03")},
		})

		assert.Equal(t, "33.30", money.FormatAmount(allocs[0].AccountHeldAmount))
		assert.Empty(t, allocs[0].Note)
		assert.Equal(t, "66.70", money.FormatAmount(allocs[1].AccountHeldAmount))
		assert.Equal(t, "-16.70", money.FormatAmount(allocs[1].ActualTransferAmount))
		assert.Contains(t, allocs[1].Note, "0.03")

		_, held := sumAmounts(allocs)
		assert.True(t, held.Equal(d("100")))
	})

	t.Run("large difference left visible", func(t *testing.T) {
		allocs := Allocate(AllocationInput{
			Participants:   participants,
			PaidAmount:     d("100"),
			CumulativeBase: d("100"),
			AccountNets:    nets,
			PreviousHeld:   map[string]decimal.Decimal{"acc-a": d("1.00")},
		})

		assert.Equal(t, "32.33", money.FormatAmount(allocs[0].AccountHeldAmount))
		assert.Equal(t, "66.67", money.FormatAmount(allocs[1].AccountHeldAmount))
		assert.Empty(t, allocs[1].Note)
	})

	t.Run("custom tolerance", func(t *testing.T) {
		allocs := Allocate(AllocationInput{
			Participants:   participants,
			PaidAmount:     d("100"),
			CumulativeBase: d("100"),
			AccountNets:    nets,
			PreviousHeld:   map[string]decimal.Decimal{"acc-a": d("1.00")},
			NudgeTolerance: d("2"),
		})
		assert.Equal(t, "67.67", money.FormatAmount(allocs[1].AccountHeldAmount))
	})
}

func TestAllocateConservation(t *testing.T) {
	ratioSets := [][]string{
		{"1"},
		{"0.5", "0.5"},
		{"0.333333", "0.333333", "0.333334"},
		{"0.1", "0.2", "0.3", "0.4"},
		{"0.142857", "0.142857", "0.142857", "0.142857", "0.142857", "0.142857", "0.142858"},
	}
	paids := []string{"0", "0.01", "0.07", "46.00", "999.99", "12345.67", "100000.03"}

	for _, ratios := range ratioSets {
		participants := make([]model.ParticipantModel, len(ratios))
		for i, r := range ratios {
			participants[i] = participant(int64(i+1), "p", "", r)
		}
		for _, paid := range paids {
			allocs := Allocate(AllocationInput{Participants: participants, PaidAmount: d(paid), CumulativeBase: d(paid)})
			amount, _ := sumAmounts(allocs)
			assert.True(t, amount.Equal(d(paid)), "ratios=%v paid=%s sum=%s", ratios, paid, amount)
		}
	}
}

func TestAllocateNoParticipants(t *testing.T) {
	allocs := Allocate(AllocationInput{PaidAmount: d("10")})
	assert.NotNil(t, allocs)
	assert.Empty(t, allocs)
}
