package decimalx

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseAll 按顺序解析, 任意一个失败整体失败, 错误里带上出错的下标
func ParseAll(ss ...string) ([]decimal.Decimal, error) {
	res := make([]decimal.Decimal, len(ss))
	for i, s := range ss {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parse decimal #%d %q: %w", i, s, err)
		}
		res[i] = d
	}
	return res, nil
}

// OrZero 交易所过滤器里偶尔有空字符串, 解析失败当 0
func OrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MustFromString 只用于常量和测试数据
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
