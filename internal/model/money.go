package model

import "fmt"

// Money は補助通貨単位（1.00 = 100）で表した金額。
// 浮動小数点による丸め誤差を避けるため整数で保持する。
type Money int64

// MoneyFromUnits は主通貨単位の整数からMoneyを生成する。
func MoneyFromUnits(units int64) Money {
	return Money(units * 100)
}

// Times は金額をn倍した値を返す。
func (m Money) Times(n int64) Money {
	return Money(int64(m) * n)
}

// IsZero は金額がゼロかどうかを返す。
func (m Money) IsZero() bool {
	return m == 0
}

// String は小数点以下2桁の文字列表現を返す（例: "12.50"）。
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
