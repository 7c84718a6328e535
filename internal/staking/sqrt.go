package staking

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DecimalPlaces 除法与开方保留的小数位数，末位四舍五入
const DecimalPlaces int32 = 20

// Sqrt 返回 x 的平方根，保留 places 位小数 (四舍五入)
//
// 先多算一位并向下取整，再按 places 位四舍五入。x < 0 时 ok 为 false。
func Sqrt(x decimal.Decimal, places int32) (decimal.Decimal, bool) {
	if x.Sign() < 0 {
		return decimal.Zero, false
	}
	if x.IsZero() {
		return decimal.Zero, true
	}

	scale := places + 1
	n := x.Shift(2 * scale).Truncate(0).BigInt()
	root := new(big.Int).Sqrt(n)
	return decimal.NewFromBigInt(root, -scale).Round(places), true
}
