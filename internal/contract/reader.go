package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/lawpunks/punk-watcher/internal/metrics"
	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/pkg/errors"
	"github.com/lawpunks/punk-watcher/pkg/logger"
)

// Addresses 合约地址
type Addresses struct {
	Aggregator common.Address // metaverseByIndex
	MarketUtil common.Address // tokensOfMarketByPage
	Punk       common.Address // LawPunks ERC721
	Dex        common.Address // 市场托管合约
	Level      common.Address
	Stake      common.Address
}

// ParseAddresses 解析十六进制地址
func ParseAddresses(aggregator, marketUtil, punk, dex, level, stake string) (Addresses, error) {
	var out Addresses
	fields := []struct {
		name string
		hex  string
		dst  *common.Address
	}{
		{"aggregator", aggregator, &out.Aggregator},
		{"market_util", marketUtil, &out.MarketUtil},
		{"punk", punk, &out.Punk},
		{"dex", dex, &out.Dex},
		{"level", level, &out.Level},
		{"stake", stake, &out.Stake},
	}
	for _, f := range fields {
		if !common.IsHexAddress(f.hex) {
			return Addresses{}, fmt.Errorf("invalid %s contract address: %q", f.name, f.hex)
		}
		*f.dst = common.HexToAddress(f.hex)
	}
	return out, nil
}

// metaverseSound metaverseByIndex 返回的 sounds 元组
type metaverseSound struct {
	TokenId     *big.Int
	Owner       common.Address
	OwnerSlogan string
	PunkSlogan  string
}

// metaverseInfo metaverseByIndex 返回的 infos 元组
type metaverseInfo struct {
	PunkId      *big.Int
	Level       *big.Int
	BaseScore   *big.Int
	WanderScore *big.Int
	OutlawScore *big.Int
	TotalScore  *big.Int
}

type metaverseByIndexOutput struct {
	Sounds    []metaverseSound
	Infos     []metaverseInfo
	LockTimes []*big.Int
}

// marketToken tokensOfMarketByPage 返回的元组
type marketToken struct {
	Id          *big.Int
	IsForSale   bool
	Seller      common.Address
	MinValue    *big.Int
	MinLawValue *big.Int
	BidLawValue *big.Int
	Bidder      common.Address
	OnlySellTo  common.Address
	BidBchValue *big.Int
	BchBidder   common.Address
}

// Reader LawPunks 合约只读调用
type Reader struct {
	caller bind.ContractCaller
	addrs  Addresses

	aggregatorABI abi.ABI
	marketUtilABI abi.ABI
	punkABI       abi.ABI
	stakeABI      abi.ABI
}

// NewReader 创建合约读取器
func NewReader(caller bind.ContractCaller, addrs Addresses) (*Reader, error) {
	parsed := make([]abi.ABI, 4)
	for i, def := range []string{AggregatorABI, MarketUtilABI, PunkABI, StakeABI} {
		a, err := abi.JSON(strings.NewReader(def))
		if err != nil {
			return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
		}
		parsed[i] = a
	}

	return &Reader{
		caller:        caller,
		addrs:         addrs,
		aggregatorABI: parsed[0],
		marketUtilABI: parsed[1],
		punkABI:       parsed[2],
		stakeABI:      parsed[3],
	}, nil
}

// Addresses 返回配置的合约地址
func (r *Reader) Addresses() Addresses {
	return r.addrs
}

// call 打包参数、执行 eth_call 并解包到 out
func (r *Reader) call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, out interface{}, args ...interface{}) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "decode_error").Inc()
		return errors.WrapWithCause(errors.ErrDecode, err, "pack %s", method)
	}

	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "transport_error").Inc()
		return errors.WrapWithCause(errors.ErrTransport, err, "call %s", method)
	}

	if err := contractABI.UnpackIntoInterface(out, method, result); err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "decode_error").Inc()
		return errors.WrapWithCause(errors.ErrDecode, err, "unpack %s", method)
	}

	metrics.RPCCallsTotal.WithLabelValues(method, "success").Inc()
	return nil
}

// FetchMetaverseRange 查询 [start, end] 区间的元宇宙属性
func (r *Reader) FetchMetaverseRange(ctx context.Context, start, end uint64) ([]model.MetaverseEntry, error) {
	var out metaverseByIndexOutput
	err := r.call(ctx, r.aggregatorABI, r.addrs.Aggregator, methodMetaverseByIndex, &out,
		r.addrs.Dex, r.addrs.Level, new(big.Int).SetUint64(start), new(big.Int).SetUint64(end))
	if err != nil {
		return nil, err
	}

	if len(out.Infos) != len(out.Sounds) || len(out.LockTimes) != len(out.Sounds) {
		return nil, errors.Wrapf(errors.ErrDecode,
			"metaverseByIndex length mismatch: sounds=%d infos=%d lockTimes=%d",
			len(out.Sounds), len(out.Infos), len(out.LockTimes))
	}

	entries := make([]model.MetaverseEntry, 0, len(out.Sounds))
	for i, s := range out.Sounds {
		info := out.Infos[i]
		nums, err := toUint64s(s.TokenId, info.Level, info.BaseScore, info.WanderScore,
			info.OutlawScore, info.TotalScore, out.LockTimes[i])
		if err != nil {
			return nil, errors.WrapWithCause(errors.ErrDecode, err, "metaverseByIndex entry %d", i)
		}

		entries = append(entries, model.MetaverseEntry{
			TokenID: nums[0],
			Record: model.MetaverseRecord{
				Level:       nums[1],
				BaseScore:   nums[2],
				WanderScore: nums[3],
				OutlawScore: nums[4],
				TotalScore:  nums[5],
				Owner:       s.Owner.Hex(),
				OwnerSlogan: s.OwnerSlogan,
				PunkSlogan:  s.PunkSlogan,
				LockTime:    nums[6],
			},
		})
	}

	logger.Debug("metaverse range fetched",
		zap.Uint64("start", start),
		zap.Uint64("end", end),
		zap.Int("entries", len(entries)))
	return entries, nil
}

// FetchMarketPage 查询市场第 pageNo 页 (从 0 开始)
func (r *Reader) FetchMarketPage(ctx context.Context, pageNo, pageSize uint64) ([]model.MarketListing, error) {
	var rets []marketToken
	err := r.call(ctx, r.marketUtilABI, r.addrs.MarketUtil, methodTokensOfMarketByPage, &rets,
		r.addrs.Dex, r.addrs.Punk, new(big.Int).SetUint64(pageNo), new(big.Int).SetUint64(pageSize))
	if err != nil {
		return nil, err
	}

	listings := make([]model.MarketListing, 0, len(rets))
	for i, t := range rets {
		if t.Id == nil || !t.Id.IsUint64() {
			return nil, errors.Wrapf(errors.ErrDecode, "tokensOfMarketByPage entry %d: token id out of range", i)
		}
		listings = append(listings, model.MarketListing{
			TokenID:     t.Id.Uint64(),
			IsForSale:   t.IsForSale,
			Seller:      t.Seller.Hex(),
			MinValue:    t.MinValue,
			MinLawValue: t.MinLawValue,
			BidLawValue: t.BidLawValue,
			Bidder:      t.Bidder.Hex(),
			OnlySellTo:  t.OnlySellTo.Hex(),
			BidBchValue: t.BidBchValue,
			BchBidder:   t.BchBidder.Hex(),
		})
	}
	return listings, nil
}

// FetchTokenBalance 查询 owner 持有的 LawPunks 数量
func (r *Reader) FetchTokenBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := r.call(ctx, r.punkABI, r.addrs.Punk, methodBalanceOf, &balance, owner); err != nil {
		return nil, err
	}
	return balance, nil
}

// FetchStakedTotalSupply 查询质押合约 totalSupply
func (r *Reader) FetchStakedTotalSupply(ctx context.Context) (*big.Int, error) {
	var supply *big.Int
	if err := r.call(ctx, r.stakeABI, r.addrs.Stake, methodTotalSupply, &supply); err != nil {
		return nil, err
	}
	return supply, nil
}

func toUint64s(values ...*big.Int) ([]uint64, error) {
	out := make([]uint64, len(values))
	for i, v := range values {
		if v == nil || !v.IsUint64() {
			return nil, fmt.Errorf("value %v at position %d does not fit uint64", v, i)
		}
		out[i] = v.Uint64()
	}
	return out, nil
}
