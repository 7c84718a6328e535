// Package staking 计算质押统计快照
package staking

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/pkg/errors"
)

// 计算常量
var (
	// HashPrecision 算力精度
	HashPrecision = decimal.NewFromInt(100000000)
	// CollectionSupply LawPunks 总量
	CollectionSupply = decimal.NewFromInt(model.MaxTokenID)
)

// Floors 返回两种币种的最低正价格，没有挂单时为 0
func Floors(market *model.MarketSet) (bch, law decimal.Decimal) {
	bch, law = decimal.Zero, decimal.Zero
	if market == nil {
		return bch, law
	}

	for _, r := range market.Records() {
		if r.BchPrice.IsPositive() && (bch.IsZero() || r.BchPrice.LessThan(bch)) {
			bch = r.BchPrice
		}
		if r.LawPrice.IsPositive() && (law.IsZero() || r.LawPrice.LessThan(law)) {
			law = r.LawPrice
		}
	}
	return bch, law
}

// HashRate 返回 Σ sqrt(totalScore / 1e8)，每项保留 DecimalPlaces 位小数
func HashRate(scores []uint64) decimal.Decimal {
	sum := decimal.Zero
	for _, score := range scores {
		if score == 0 {
			continue
		}
		// 非负输入必然成功
		root, _ := Sqrt(decimal.NewFromBigInt(new(big.Int).SetUint64(score), -8), DecimalPlaces)
		sum = sum.Add(root)
	}
	return sum
}

// Calculate 根据元宇宙属性、本轮在售集合和质押总量计算快照
func Calculate(metaverse *model.MetaverseSet, market *model.MarketSet, totalHashRateStaked *big.Int) (*model.StakingSnapshot, error) {
	if totalHashRateStaked == nil {
		return nil, errors.ErrArithmetic.WithMessage("staked total supply is missing")
	}
	switch totalHashRateStaked.Sign() {
	case -1:
		return nil, errors.ErrArithmetic.WithMessagef("negative staked total supply: %s", totalHashRateStaked)
	case 0:
		return nil, errors.ErrArithmetic.WithMessage("staked total supply is zero")
	}

	bchFloor, lawFloor := Floors(market)

	var scores []uint64
	if metaverse != nil {
		scores = metaverse.TotalScores()
	}
	hashRate := HashRate(scores)
	if hashRate.IsZero() {
		return nil, errors.ErrArithmetic.WithMessage("total hash rate is zero")
	}

	staked := decimal.NewFromBigInt(totalHashRateStaked, 0)
	valueLocked := staked.
		DivRound(HashPrecision, DecimalPlaces).
		DivRound(hashRate, DecimalPlaces).
		Mul(bchFloor).
		Mul(CollectionSupply).
		Floor()

	return &model.StakingSnapshot{
		BchFloor:                  bchFloor,
		LawFloor:                  lawFloor,
		TotalHashRate:             hashRate.Mul(HashPrecision).Floor(),
		TotalHashRateStaked:       staked,
		TotalPunkValueLockedInBch: valueLocked,
	}, nil
}
