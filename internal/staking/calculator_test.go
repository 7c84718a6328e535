package staking

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/pkg/errors"
)

func TestSqrt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"zero", "0", "0"},
		{"perfect square", "16", "4"},
		{"fraction", "0.25", "0.5"},
		{"two rounds down", "2", "1.41421356237309504880"},
		{"three rounds up", "3", "1.73205080756887729353"},
		{"tiny", "0.00000005", "0.00022360679774997897"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Sqrt(decimal.RequireFromString(tt.in), DecimalPlaces)
			require.True(t, ok)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}

	_, ok := Sqrt(decimal.NewFromInt(-1), DecimalPlaces)
	assert.False(t, ok)
}

func TestFloors(t *testing.T) {
	market := model.NewMarketSet()
	market.Put(model.NewMarketRecord(&model.MarketListing{TokenID: 5, MinValue: big.NewInt(100), MinLawValue: big.NewInt(0)}))
	market.Put(model.NewMarketRecord(&model.MarketListing{TokenID: 9, MinValue: big.NewInt(50), MinLawValue: big.NewInt(200)}))

	bch, law := Floors(market)
	assert.Equal(t, "50", bch.String())
	assert.Equal(t, "200", law.String())

	bch, law = Floors(model.NewMarketSet())
	assert.True(t, bch.IsZero())
	assert.True(t, law.IsZero())
}

// scenarioMetaverse totalScore = k² × 1e8, k = 0..29
func scenarioMetaverse(t *testing.T) *model.MetaverseSet {
	t.Helper()
	set := model.NewMetaverseSet(model.MaxTokenID)
	entries := make([]model.MetaverseEntry, 30)
	for k := 0; k < 30; k++ {
		entries[k] = model.MetaverseEntry{
			TokenID: uint64(k + 1),
			Record:  model.MetaverseRecord{TotalScore: uint64(k*k) * 100000000},
		}
	}
	require.NoError(t, set.Apply(entries))
	return set
}

func TestCalculate_HashRateScenario(t *testing.T) {
	market := model.NewMarketSet()
	market.Put(model.NewMarketRecord(&model.MarketListing{TokenID: 5, MinValue: big.NewInt(100), MinLawValue: big.NewInt(0)}))
	market.Put(model.NewMarketRecord(&model.MarketListing{TokenID: 9, MinValue: big.NewInt(50), MinLawValue: big.NewInt(200)}))

	snap, err := Calculate(scenarioMetaverse(t), market, big.NewInt(1000000000000))
	require.NoError(t, err)

	assert.Equal(t, "50", snap.BchFloor.String())
	assert.Equal(t, "200", snap.LawFloor.String())
	assert.Equal(t, "43500000000", snap.TotalHashRate.String())
	assert.Equal(t, "1000000000000", snap.TotalHashRateStaked.String())
	// floor(round20(round20(1e12/1e8) / 435) × 50 × 10000)
	assert.Equal(t, "11494252", snap.TotalPunkValueLockedInBch.String())

	data, err := snap.Encode()
	require.NoError(t, err)
	assert.Equal(t,
		`{"bchFloor":"50","lawFloor":"200","totalHashRate":"43500000000","totalHashRateStaked":"1000000000000","totalPunkValueLockedInBch":"11494252"}`,
		string(data))
}

func TestCalculate_IrrationalRoots(t *testing.T) {
	set := model.NewMetaverseSet(10)
	require.NoError(t, set.Apply([]model.MetaverseEntry{
		{TokenID: 1, Record: model.MetaverseRecord{TotalScore: 200000000}},
		{TokenID: 2, Record: model.MetaverseRecord{TotalScore: 300000000}},
		{TokenID: 3, Record: model.MetaverseRecord{TotalScore: 100000000}},
	}))
	market := model.NewMarketSet()
	market.Put(model.NewMarketRecord(&model.MarketListing{TokenID: 1, MinValue: big.NewInt(70)}))

	staked, _ := new(big.Int).SetString("123456789012345", 10)
	snap, err := Calculate(set, market, staked)
	require.NoError(t, err)

	assert.Equal(t, "414626436", snap.TotalHashRate.String())
	assert.Equal(t, "208427983838", snap.TotalPunkValueLockedInBch.String())
	assert.True(t, snap.LawFloor.IsZero())
}

func TestCalculate_NoListingsGivesZeroValueLocked(t *testing.T) {
	snap, err := Calculate(scenarioMetaverse(t), model.NewMarketSet(), big.NewInt(1000000000000))
	require.NoError(t, err)
	assert.Equal(t, "0", snap.BchFloor.String())
	assert.Equal(t, "0", snap.TotalPunkValueLockedInBch.String())
}

func TestCalculate_ZeroHashRate(t *testing.T) {
	_, err := Calculate(model.NewMetaverseSet(10), model.NewMarketSet(), big.NewInt(1))
	assert.True(t, errors.Is(err, errors.ErrArithmetic))
}

func TestCalculate_ZeroStaked(t *testing.T) {
	snap, err := Calculate(scenarioMetaverse(t), model.NewMarketSet(), big.NewInt(0))
	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, errors.ErrArithmetic))
}

func TestCalculate_InvalidStaked(t *testing.T) {
	_, err := Calculate(scenarioMetaverse(t), model.NewMarketSet(), big.NewInt(-1))
	assert.True(t, errors.Is(err, errors.ErrArithmetic))

	_, err = Calculate(scenarioMetaverse(t), model.NewMarketSet(), nil)
	assert.True(t, errors.Is(err, errors.ErrArithmetic))
}

// TestCalculate_OrderInvariant 记录与挂单的插入顺序不影响结果
func TestCalculate_OrderInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	entries := make([]model.MetaverseEntry, 200)
	listings := make([]model.MarketListing, 50)
	for i := range entries {
		entries[i] = model.MetaverseEntry{
			TokenID: uint64(i + 1),
			Record:  model.MetaverseRecord{TotalScore: uint64(rng.Int63n(1e12))},
		}
	}
	for i := range listings {
		listings[i] = model.MarketListing{
			TokenID:     uint64(i + 1),
			MinValue:    big.NewInt(rng.Int63n(1e15)),
			MinLawValue: big.NewInt(rng.Int63n(1e18)),
		}
	}

	build := func(order []int) *model.StakingSnapshot {
		set := model.NewMetaverseSet(model.MaxTokenID)
		market := model.NewMarketSet()
		for _, i := range order {
			require.NoError(t, set.Apply([]model.MetaverseEntry{entries[i]}))
		}
		for _, i := range rng.Perm(len(listings)) {
			market.Put(model.NewMarketRecord(&listings[i]))
		}
		snap, err := Calculate(set, market, big.NewInt(987654321987))
		require.NoError(t, err)
		return snap
	}

	a := build(rng.Perm(len(entries)))
	b := build(rng.Perm(len(entries)))
	ea, err := a.Encode()
	require.NoError(t, err)
	eb, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(ea), string(eb))
}
