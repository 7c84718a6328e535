package aggregator

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/lawpunks/punk-watcher/internal/metrics"
	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/internal/pool"
	"github.com/lawpunks/punk-watcher/pkg/errors"
	"github.com/lawpunks/punk-watcher/pkg/logger"
)

// DefaultMarketPageSize 市场每页挂单数
const DefaultMarketPageSize = 100

// MarketConfig 市场聚合配置
type MarketConfig struct {
	// MarketAddress 市场托管合约，其持有的 token 数即挂单数
	MarketAddress  common.Address
	PageSize       int
	MaxConcurrency int
}

// MarketAggregator 市场挂单聚合，每轮从空集合重建
type MarketAggregator struct {
	reader ChainReader
	cfg    MarketConfig
}

// NewMarketAggregator 创建市场聚合器
func NewMarketAggregator(reader ChainReader, cfg MarketConfig) *MarketAggregator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultMarketPageSize
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = pool.DefaultLimit
	}
	return &MarketAggregator{reader: reader, cfg: cfg}
}

// Rebuild 重建本轮在售集合，任一页失败则丢弃整个集合
func (a *MarketAggregator) Rebuild(ctx context.Context) (*model.MarketSet, error) {
	startTime := time.Now()

	balance, err := a.reader.FetchTokenBalance(ctx, a.cfg.MarketAddress)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Sign() < 0 || !balance.IsInt64() {
		return nil, errors.Wrapf(errors.ErrDecode, "invalid market balance: %v", balance)
	}

	count := balance.Int64()
	if count > model.MaxTokenID {
		return nil, errors.Wrapf(errors.ErrDecode, "market balance %d exceeds collection size %d", count, model.MaxTokenID)
	}
	pageSize := int64(a.cfg.PageSize)
	pages := (count + pageSize - 1) / pageSize

	set := model.NewMarketSet()
	tasks := make([]pool.Task, pages)
	for i := int64(0); i < pages; i++ {
		pageNo := uint64(i)
		tasks[i] = func(ctx context.Context) error {
			return a.fetchPage(ctx, set, pageNo)
		}
	}

	if err := pool.RunWaves(ctx, tasks, a.cfg.MaxConcurrency); err != nil {
		return nil, err
	}

	metrics.MarketListingsGauge.Set(float64(set.Len()))
	logger.WithContext(ctx).Info("market rebuilt",
		zap.Int64("count", count),
		zap.Int64("pages", pages),
		zap.Int("listings", set.Len()),
		zap.Duration("duration", time.Since(startTime)))
	return set, nil
}

func (a *MarketAggregator) fetchPage(ctx context.Context, set *model.MarketSet, pageNo uint64) error {
	listings, err := a.reader.FetchMarketPage(ctx, pageNo, uint64(a.cfg.PageSize))
	if err != nil {
		logger.WithContext(ctx).Error("market page failed",
			zap.Uint64("page_no", pageNo),
			zap.Int("page_size", a.cfg.PageSize),
			zap.Error(err))
		return err
	}

	for i := range listings {
		if listings[i].HasPrice() {
			set.Put(model.NewMarketRecord(&listings[i]))
		}
	}
	return nil
}
