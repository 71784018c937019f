package profit

import (
	"testing"

	"github.com/2ue/total-gmn/internal/money"
	"github.com/stretchr/testify/assert"
)

func TestCalculatePayout(t *testing.T) {
	cases := []struct {
		name                                          string
		cumulativeNet, settledBase, carryRatio        string
		distributable, paid, carry, cumulativeSettled string
	}{
		{"no carry", "1000.50", "250.25", "0", "750.25", "750.25", "0.00", "1000.50"},
		{"carry twenty percent", "1000", "500", "0.20", "500.00", "400.00", "100.00", "900.00"},
		{"deficit carried", "300", "500.50", "0.5", "-200.50", "0.00", "200.50", "500.50"},
		{"nothing to pay", "500", "500", "0.3", "0.00", "0.00", "0.00", "500.00"},
		{"ratio clamped high", "100", "0", "1.5", "100.00", "0.00", "100.00", "0.00"},
		{"ratio clamped low", "100", "0", "-1", "100.00", "100.00", "0.00", "100.00"},
		{"ratio truncated", "100", "0", "0.259", "100.00", "75.00", "25.00", "75.00"},
		{"carry rounded", "0.05", "0", "0.5", "0.05", "0.02", "0.03", "0.02"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := CalculatePayout(d(tc.cumulativeNet), d(tc.settledBase), d(tc.carryRatio))
			assert.Equal(t, tc.distributable, money.FormatAmount(p.DistributableAmount))
			assert.Equal(t, tc.paid, money.FormatAmount(p.PaidAmount))
			assert.Equal(t, tc.carry, money.FormatAmount(p.CarryForwardAmount))
			assert.Equal(t, tc.cumulativeSettled, money.FormatAmount(p.CumulativeSettledAmount))
		})
	}
}

func TestCalculatePayoutMonotonic(t *testing.T) {
	settled := d("0")
	for _, net := range []string{"100", "80", "250.75", "250.75", "400"} {
		p := CalculatePayout(d(net), settled, d("0.1"))
		assert.False(t, p.CumulativeSettledAmount.LessThan(settled))
		settled = p.CumulativeSettledAmount
	}
}
