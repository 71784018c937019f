// Package money 定点金额工具：金额保留2位，比例保留6位，均为四舍五入（远离零）。
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	AmountPlaces int32 = 2
	RatioPlaces  int32 = 6
)

var (
	// RatioEpsilon 比例合计允许的误差
	RatioEpsilon = decimal.New(1, -6)
	one          = decimal.NewFromInt(1)
)

// Round2 金额保留2位小数
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// Round6 比例保留6位小数
func Round6(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatioPlaces)
}

// Add 逐笔相加并在每次相加后保留2位，防止误差累积
func Add(values ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = Round2(sum.Add(v))
	}
	return sum
}

// ClampCarryRatio 留存比例限制在 [0,1] 并截断到2位小数，越界静默修正
func ClampCarryRatio(r decimal.Decimal) decimal.Decimal {
	if r.IsNegative() {
		return decimal.Zero
	}
	if r.GreaterThan(one) {
		return one
	}
	return r.Truncate(2)
}

// ParseAmount 解析金额字符串，允许千分位逗号
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("金额不能为空")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("无效的金额 %q: %w", s, err)
	}
	return Round2(d), nil
}

// ParseRatio 解析比例字符串
func ParseRatio(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("无效的比例 %q: %w", s, err)
	}
	return Round6(d), nil
}

// FormatAmount 金额输出为固定2位小数字符串
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

// FormatRatio 比例输出为固定6位小数字符串
func FormatRatio(d decimal.Decimal) string {
	return d.StringFixed(RatioPlaces)
}

// RatioSumValid 比例合计是否等于1
func RatioSumValid(ratios []decimal.Decimal) bool {
	return decimal.Sum(decimal.Zero, ratios...).Sub(one).Abs().LessThan(RatioEpsilon)
}

// LargestWeightIndex 返回权重绝对值最大的下标，相同取靠前者；空切片返回 -1
func LargestWeightIndex(weights []decimal.Decimal) int {
	idx := -1
	for i, w := range weights {
		if idx == -1 || w.Abs().GreaterThan(weights[idx].Abs()) {
			idx = i
		}
	}
	return idx
}

// Split 按权重拆分 total：每份 round2(total*weight/weightSum)，
// 舍入差额整体补到权重最大的一份上，保证合计精确等于 total。
// weightSum 为零时全部返回0。
func Split(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(weights))
	if len(weights) == 0 {
		return parts
	}

	weightSum := decimal.Sum(decimal.Zero, weights...)
	if weightSum.IsZero() {
		for i := range parts {
			parts[i] = decimal.Zero
		}
		return parts
	}

	allocated := decimal.Zero
	for i, w := range weights {
		parts[i] = Round2(total.Mul(w).Div(weightSum))
		allocated = allocated.Add(parts[i])
	}

	if delta := Round2(total).Sub(allocated); !delta.IsZero() {
		idx := LargestWeightIndex(weights)
		parts[idx] = parts[idx].Add(delta)
	}
	return parts
}
