package aggregator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/internal/pool"
	"github.com/lawpunks/punk-watcher/pkg/errors"
	"github.com/lawpunks/punk-watcher/pkg/logger"
)

// DefaultMetaversePageSize 每页 token 数
const DefaultMetaversePageSize = 30

// MetaverseConfig 元宇宙聚合配置
type MetaverseConfig struct {
	MaxTokenID     int
	PageSize       int
	MaxConcurrency int
}

// Range 闭区间 [Start, End]
type Range struct {
	Start uint64
	End   uint64
}

// MetaverseAggregator 元宇宙属性聚合
type MetaverseAggregator struct {
	reader ChainReader
	cfg    MetaverseConfig
}

// NewMetaverseAggregator 创建元宇宙聚合器
func NewMetaverseAggregator(reader ChainReader, cfg MetaverseConfig) *MetaverseAggregator {
	if cfg.MaxTokenID <= 0 {
		cfg.MaxTokenID = model.MaxTokenID
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultMetaversePageSize
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = pool.DefaultLimit
	}
	return &MetaverseAggregator{reader: reader, cfg: cfg}
}

// Pages 把 1..MaxTokenID 按页大小切分
func (a *MetaverseAggregator) Pages() []Range {
	maxID := uint64(a.cfg.MaxTokenID)
	size := uint64(a.cfg.PageSize)

	pages := make([]Range, 0, (maxID+size-1)/size)
	for start := uint64(1); start <= maxID; start += size {
		end := start + size - 1
		if end > maxID {
			end = maxID
		}
		pages = append(pages, Range{Start: start, End: end})
	}
	return pages
}

// Refresh 刷新全部页面
//
// 任一页失败时返回错误，失败前已合并的页面保留在集合中。
func (a *MetaverseAggregator) Refresh(ctx context.Context, set *model.MetaverseSet) error {
	startTime := time.Now()
	pages := a.Pages()

	tasks := make([]pool.Task, len(pages))
	for i, p := range pages {
		p := p
		tasks[i] = func(ctx context.Context) error {
			return a.RefreshRange(ctx, set, p.Start, p.End)
		}
	}

	if err := pool.RunWaves(ctx, tasks, a.cfg.MaxConcurrency); err != nil {
		return err
	}

	logger.WithContext(ctx).Info("metaverse refreshed",
		zap.Int("pages", len(pages)),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}

// RefreshRange 拉取单页并整条覆盖到集合
func (a *MetaverseAggregator) RefreshRange(ctx context.Context, set *model.MetaverseSet, start, end uint64) error {
	if maxID := uint64(a.cfg.MaxTokenID); end > maxID {
		end = maxID
	}

	entries, err := a.reader.FetchMetaverseRange(ctx, start, end)
	if err != nil {
		logger.WithContext(ctx).Error("metaverse page failed",
			zap.Uint64("start", start),
			zap.Uint64("end", end),
			zap.Error(err))
		return err
	}

	if err := set.Apply(entries); err != nil {
		logger.WithContext(ctx).Error("metaverse page rejected",
			zap.Uint64("start", start),
			zap.Uint64("end", end),
			zap.Error(err))
		return errors.WrapWithCause(errors.ErrDecode, err, "metaverse page %d-%d", start, end)
	}
	return nil
}
