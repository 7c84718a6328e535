// Package service 轮询编排
package service

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lawpunks/punk-watcher/internal/kafka"
	"github.com/lawpunks/punk-watcher/internal/metrics"
	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/internal/staking"
	"github.com/lawpunks/punk-watcher/internal/store"
	"github.com/lawpunks/punk-watcher/pkg/errors"
	"github.com/lawpunks/punk-watcher/pkg/logger"
)

// DefaultReloadInterval 上一轮结束到下一轮开始的间隔
const DefaultReloadInterval = 3 * time.Minute

// State 轮询状态
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
)

// 阶段名
const (
	PhaseMetaverse = "metaverse"
	PhaseMarket    = "market"
	PhaseStaking   = "staking"
	PhasePersist   = "persist"
)

// MetaverseRefresher 刷新元宇宙属性
type MetaverseRefresher interface {
	Refresh(ctx context.Context, set *model.MetaverseSet) error
}

// MarketRebuilder 重建在售集合
type MarketRebuilder interface {
	Rebuild(ctx context.Context) (*model.MarketSet, error)
}

// StakedSupplyReader 查询质押总量
type StakedSupplyReader interface {
	FetchStakedTotalSupply(ctx context.Context) (*big.Int, error)
}

// SnapshotSaver 保存快照
type SnapshotSaver interface {
	Save(ctx context.Context, metaverse *model.MetaverseSet, staking *model.StakingSnapshot) (store.SaveResult, error)
}

// SnapshotPublisher 快照变更通知
type SnapshotPublisher interface {
	PublishSnapshotUpdated(ctx context.Context, event *kafka.SnapshotUpdatedEvent) error
}

// CycleResult 单轮执行结果
type CycleResult struct {
	CycleID     string        `json:"cycle_id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	FailedPhase string        `json:"failed_phase,omitempty"`
	ErrorCode   string        `json:"error_code,omitempty"`
	Error       string        `json:"error,omitempty"`
	BlobsSaved  []string      `json:"blobs_saved,omitempty"`
}

// Status 服务状态
type Status struct {
	State         State        `json:"state"`
	Cycles        int64        `json:"cycles"`
	LastCycle     *CycleResult `json:"last_cycle,omitempty"`
	LastSuccessAt *time.Time   `json:"last_success_at,omitempty"`
	NextRunAt     *time.Time   `json:"next_run_at,omitempty"`
}

// PollerDeps 依赖
type PollerDeps struct {
	Metaverse MetaverseRefresher
	Market    MarketRebuilder
	Supply    StakedSupplyReader
	Saver     SnapshotSaver
	Publisher SnapshotPublisher // 可选
}

// PollerConfig 配置
type PollerConfig struct {
	ReloadInterval time.Duration
}

// PollerService 轮询服务
//
// 每轮依次执行 元宇宙刷新 → 市场重建 → 质押统计 → 持久化，任一阶段失败即结束本轮且不持久化。
// 无论成败，下一轮在本轮结束 ReloadInterval 之后开始。
type PollerService struct {
	deps     PollerDeps
	interval time.Duration

	metaverse *model.MetaverseSet

	mu            sync.RWMutex
	state         State
	cycles        int64
	staking       *model.StakingSnapshot
	market        *model.MarketSet
	lastCycle     *CycleResult
	lastSuccessAt time.Time
	nextRunAt     time.Time

	// cycleMu 保证同一时刻只有一轮在执行
	cycleMu sync.Mutex

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewPollerService 创建轮询服务，metaverse 与 staking 为启动时加载的快照
func NewPollerService(deps PollerDeps, cfg PollerConfig, metaverse *model.MetaverseSet, initial *model.StakingSnapshot) *PollerService {
	interval := cfg.ReloadInterval
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	if metaverse == nil {
		metaverse = model.NewMetaverseSet(model.MaxTokenID)
	}

	return &PollerService{
		deps:      deps,
		interval:  interval,
		metaverse: metaverse,
		state:     StateIdle,
		staking:   initial,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start 启动轮询循环，第一轮立即执行
func (s *PollerService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.loop(ctx)
	})
}

// Stop 停止轮询，正在执行的一轮结束后返回
func (s *PollerService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	if s.started.Load() {
		<-s.doneCh
	}
}

func (s *PollerService) loop(ctx context.Context) {
	defer close(s.doneCh)

	logger.Info("poller started", zap.Duration("reload_interval", s.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("poller stopped", zap.String("reason", "context canceled"))
			return
		case <-s.stopCh:
			logger.Info("poller stopped")
			return
		case <-timer.C:
		}

		// 失败已在 RunCycle 内记录，下一轮照常调度
		s.RunCycle(ctx)

		next := time.Now().Add(s.interval)
		s.mu.Lock()
		s.nextRunAt = next
		s.mu.Unlock()
		timer.Reset(s.interval)
	}
}

// RunCycle 执行一轮
func (s *PollerService) RunCycle(ctx context.Context) error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	cycleID := uuid.New().String()
	ctx = logger.NewContext(ctx, zap.String("cycle_id", cycleID))
	log := logger.WithContext(ctx)

	result := &CycleResult{CycleID: cycleID, StartedAt: time.Now()}
	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	log.Info("cycle started")
	snapshot, market, saved, err := s.runPhases(ctx, result)

	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Success = err == nil
	if err != nil {
		result.ErrorCode = errors.GetCode(err)
		result.Error = err.Error()
	}
	if saved.MetaverseWritten {
		result.BlobsSaved = append(result.BlobsSaved, store.MetaverseKey)
	}
	if saved.StakingWritten {
		result.BlobsSaved = append(result.BlobsSaved, store.StakingKey)
	}

	s.mu.Lock()
	s.state = StateIdle
	s.cycles++
	s.lastCycle = result
	if err == nil {
		s.staking = snapshot
		s.market = market
		s.lastSuccessAt = result.FinishedAt
	}
	s.mu.Unlock()

	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		log.Error("cycle failed",
			zap.String("phase", result.FailedPhase),
			zap.String("code", result.ErrorCode),
			zap.Duration("duration", result.Duration),
			zap.Error(err))
		return err
	}

	metrics.CyclesTotal.WithLabelValues("success").Inc()
	metrics.LastSuccessTimestamp.Set(float64(result.FinishedAt.Unix()))
	log.Info("cycle succeeded",
		zap.Duration("duration", result.Duration),
		zap.Strings("blobs_saved", result.BlobsSaved))
	return nil
}

func (s *PollerService) runPhases(ctx context.Context, result *CycleResult) (*model.StakingSnapshot, *model.MarketSet, store.SaveResult, error) {
	var (
		market   *model.MarketSet
		snapshot *model.StakingSnapshot
		saved    store.SaveResult
	)

	phases := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{PhaseMetaverse, func(ctx context.Context) error {
			return s.deps.Metaverse.Refresh(ctx, s.metaverse)
		}},
		{PhaseMarket, func(ctx context.Context) error {
			var err error
			market, err = s.deps.Market.Rebuild(ctx)
			return err
		}},
		{PhaseStaking, func(ctx context.Context) error {
			staked, err := s.deps.Supply.FetchStakedTotalSupply(ctx)
			if err != nil {
				return err
			}
			snapshot, err = staking.Calculate(s.metaverse, market, staked)
			return err
		}},
		{PhasePersist, func(ctx context.Context) error {
			var err error
			saved, err = s.deps.Saver.Save(ctx, s.metaverse, snapshot)
			return err
		}},
	}

	for _, phase := range phases {
		if err := s.runPhase(ctx, phase.name, phase.run); err != nil {
			result.FailedPhase = phase.name
			return nil, nil, saved, err
		}
	}

	s.observe(snapshot)
	if saved.StakingWritten {
		s.publish(ctx, result.CycleID, saved, snapshot)
	}
	return snapshot, market, saved, nil
}

// runPhase 执行单个阶段并记录耗时
func (s *PollerService) runPhase(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.PhaseDuration.WithLabelValues(name, status).Observe(elapsed.Seconds())

	log := logger.WithContext(ctx)
	if err != nil {
		log.Error("phase failed",
			zap.String("phase", name),
			zap.Duration("elapsed", elapsed),
			zap.String("code", errors.GetCode(err)),
			zap.Error(err))
		return err
	}
	log.Info("phase succeeded",
		zap.String("phase", name),
		zap.Duration("elapsed", elapsed))
	return nil
}

func (s *PollerService) observe(snapshot *model.StakingSnapshot) {
	bch, _ := snapshot.BchFloor.Float64()
	law, _ := snapshot.LawFloor.Float64()
	hashRate, _ := snapshot.TotalHashRate.Float64()
	metrics.FloorPriceGauge.WithLabelValues("bch").Set(bch)
	metrics.FloorPriceGauge.WithLabelValues("law").Set(law)
	metrics.TotalHashRateGauge.Set(hashRate)
}

// publish 通知失败只记录日志，不影响本轮结果
func (s *PollerService) publish(ctx context.Context, cycleID string, saved store.SaveResult, snapshot *model.StakingSnapshot) {
	if s.deps.Publisher == nil {
		return
	}

	blobs := []string{store.StakingKey}
	if saved.MetaverseWritten {
		blobs = append([]string{store.MetaverseKey}, blobs...)
	}
	event := &kafka.SnapshotUpdatedEvent{
		CycleID:   cycleID,
		Blobs:     blobs,
		Staking:   snapshot,
		UpdatedAt: time.Now().UnixMilli(),
	}
	if err := s.deps.Publisher.PublishSnapshotUpdated(ctx, event); err != nil {
		logger.WithContext(ctx).Warn("failed to publish snapshot update", zap.Error(err))
	}
}

// Status 当前状态
func (s *PollerService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:  s.state,
		Cycles: s.cycles,
	}
	if s.lastCycle != nil {
		c := *s.lastCycle
		st.LastCycle = &c
	}
	if !s.lastSuccessAt.IsZero() {
		t := s.lastSuccessAt
		st.LastSuccessAt = &t
	}
	if !s.nextRunAt.IsZero() {
		t := s.nextRunAt
		st.NextRunAt = &t
	}
	return st
}

// Staking 最近一次成功计算 (或启动时加载) 的质押快照
func (s *PollerService) Staking() *model.StakingSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staking
}

// Market 最近一次成功轮询的在售集合
func (s *PollerService) Market() *model.MarketSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market
}

// Metaverse 内存中的元宇宙属性集合
//
// 失败的一轮中已合并的页面也会反映在这里。
func (s *PollerService) Metaverse() *model.MetaverseSet {
	return s.metaverse
}
