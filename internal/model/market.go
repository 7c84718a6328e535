package model

import (
	"math/big"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MarketListing 市场合约返回的挂单 (tokensOfMarketByPage)
type MarketListing struct {
	TokenID     uint64
	IsForSale   bool
	Seller      string
	MinValue    *big.Int // BCH 标价 (最小单位)
	MinLawValue *big.Int // LAW 标价 (最小单位)
	BidLawValue *big.Int
	Bidder      string
	OnlySellTo  string
	BidBchValue *big.Int
	BchBidder   string
}

// HasPrice 任一币种标价非零
func (l *MarketListing) HasPrice() bool {
	return isPositive(l.MinValue) || isPositive(l.MinLawValue)
}

// MarketRecord 在售 token 的两种币种标价
type MarketRecord struct {
	TokenID  uint64          `json:"tokenId"`
	BchPrice decimal.Decimal `json:"bch"`
	LawPrice decimal.Decimal `json:"law"`
}

// NewMarketRecord 从挂单创建记录，保留原始整数价格
func NewMarketRecord(l *MarketListing) MarketRecord {
	return MarketRecord{
		TokenID:  l.TokenID,
		BchPrice: bigToDecimal(l.MinValue),
		LawPrice: bigToDecimal(l.MinLawValue),
	}
}

// MarketSet 本轮在售 token 集合，每轮重建
type MarketSet struct {
	mu      sync.RWMutex
	records map[uint64]MarketRecord
}

// NewMarketSet 创建空集合
func NewMarketSet() *MarketSet {
	return &MarketSet{records: make(map[uint64]MarketRecord)}
}

// Put 写入记录，相同 token id 后写覆盖
func (s *MarketSet) Put(r MarketRecord) {
	s.mu.Lock()
	s.records[r.TokenID] = r
	s.mu.Unlock()
}

// Get 获取记录
func (s *MarketSet) Get(tokenID uint64) (MarketRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[tokenID]
	return r, ok
}

// Len 记录数
func (s *MarketSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records 按 token id 升序返回记录副本
func (s *MarketSet) Records() []MarketRecord {
	s.mu.RLock()
	out := make([]MarketRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

func isPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

func bigToDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}
