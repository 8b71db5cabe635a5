package decimalx

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Mean 平均值, 空切片返回0
func Mean(ds []decimal.Decimal) decimal.Decimal {
	if len(ds) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, ds...).Div(decimal.NewFromInt(int64(len(ds))))
}

// PctChange (to - from) / from * 100, from 为0时 ok=false
func PctChange(from, to decimal.Decimal) (pct decimal.Decimal, ok bool) {
	if from.IsZero() {
		return decimal.Zero, false
	}
	return to.Sub(from).Div(from).Mul(hundred), true
}
