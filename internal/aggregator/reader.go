// Package aggregator 分页拉取链上数据并合并到内存集合
package aggregator

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lawpunks/punk-watcher/internal/model"
)

// ChainReader 链上只读查询
type ChainReader interface {
	// FetchMetaverseRange 查询 [start, end] 区间的元宇宙属性
	FetchMetaverseRange(ctx context.Context, start, end uint64) ([]model.MetaverseEntry, error)
	// FetchMarketPage 查询市场第 pageNo 页，pageNo 从 0 开始
	FetchMarketPage(ctx context.Context, pageNo, pageSize uint64) ([]model.MarketListing, error)
	// FetchTokenBalance 查询 owner 持有的 token 数量
	FetchTokenBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	// FetchStakedTotalSupply 查询质押总量
	FetchStakedTotalSupply(ctx context.Context) (*big.Int, error)
}
