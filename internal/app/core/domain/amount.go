package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountScale 金額固定精度：小數點後 2 位
// 所有金額在進入系統時四捨五入 (half-up) 至此精度
const AmountScale int32 = 2

// NormalizeAmount 將金額四捨五入到 AmountScale
// decimal.Round 對正數即為 half-up
func NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(AmountScale)
}

// ParseAmount 解析字串金額並正規化，不檢查正負
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return NormalizeAmount(d), nil
}

// FormatAmount 以固定兩位小數輸出，例如 "70.00"
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(AmountScale)
}

// ValidateAmount 正規化之後金額必須 > 0
func ValidateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	normalized := NormalizeAmount(amount)
	if !normalized.IsPositive() {
		return normalized, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}
	return normalized, nil
}
