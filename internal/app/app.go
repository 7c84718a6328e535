// Package app punk-watcher 应用入口
//
// 启动顺序: 链客户端 → 快照存储 (加载上次快照) → Kafka (可选) → 轮询服务 → HTTP 接口。
// 关闭顺序相反，正在执行的一轮结束后才关闭存储。
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lawpunks/punk-watcher/internal/aggregator"
	"github.com/lawpunks/punk-watcher/internal/blockchain"
	"github.com/lawpunks/punk-watcher/internal/config"
	"github.com/lawpunks/punk-watcher/internal/contract"
	"github.com/lawpunks/punk-watcher/internal/handler"
	"github.com/lawpunks/punk-watcher/internal/kafka"
	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/internal/service"
	"github.com/lawpunks/punk-watcher/internal/store"
	"github.com/lawpunks/punk-watcher/pkg/logger"
)

// App 应用
type App struct {
	cfg *config.Config

	chain      *blockchain.Client
	snapshots  *store.SnapshotStore
	producer   *kafka.Producer
	poller     *service.PollerService
	health     *handler.HealthHandler
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建应用实例
func New(cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run 初始化依赖并启动轮询与 HTTP 服务
func (a *App) Run() error {
	// 1. 链客户端
	if err := a.initChain(); err != nil {
		return fmt.Errorf("failed to init chain client: %w", err)
	}

	// 2. 快照存储
	blobs, err := newBlobStore(a.ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to init snapshot storage: %w", err)
	}
	a.snapshots = store.NewSnapshotStore(blobs, a.cfg.Poller.MaxTokenID)
	logger.Info("snapshot storage initialized", zap.String("driver", a.cfg.Storage.Driver))

	metaverse, staking := a.snapshots.Load(a.ctx)

	// 3. Kafka (可选)
	if a.cfg.Kafka.Enabled {
		a.producer, err = kafka.NewProducer(&kafka.ProducerConfig{
			Brokers:  a.cfg.Kafka.Brokers,
			ClientID: a.cfg.Kafka.ClientID,
			Topic:    a.cfg.Kafka.Topic,
		})
		if err != nil {
			return fmt.Errorf("failed to init kafka producer: %w", err)
		}
		logger.Info("kafka producer initialized",
			zap.Strings("brokers", a.cfg.Kafka.Brokers),
			zap.String("topic", a.cfg.Kafka.Topic))
	}

	// 4. 轮询服务
	if err := a.initPoller(metaverse, staking); err != nil {
		return err
	}

	// 5. HTTP
	a.health = handler.NewHealthHandler(&handler.HealthDeps{Chain: a.chain})
	router := handler.NewRouter(a.health, handler.NewSnapshotHandler(a.poller))
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Service.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.Int("port", a.cfg.Service.HTTPPort))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	a.poller.Start(a.ctx)
	a.health.SetReady(true)
	return nil
}

// initChain 连接 RPC 节点
func (a *App) initChain() error {
	chain, err := blockchain.NewClient(a.ctx, &blockchain.ClientConfig{
		ChainID:     a.cfg.Blockchain.ChainID,
		RPCURLs:     a.cfg.Blockchain.RPCURLs(),
		CallTimeout: time.Duration(a.cfg.Blockchain.CallTimeout) * time.Second,
	})
	if err != nil {
		return err
	}
	a.chain = chain

	logger.Info("chain client connected",
		zap.Int64("chain_id", chain.ChainID()),
		zap.Int("endpoints", len(a.cfg.Blockchain.RPCURLs())),
		zap.Int("healthy_endpoints", len(chain.GetHealthyEndpoints())))
	return nil
}

// initPoller 组装聚合器与轮询服务
func (a *App) initPoller(metaverse *model.MetaverseSet, staking *model.StakingSnapshot) error {
	c := a.cfg.Contracts
	addrs, err := contract.ParseAddresses(c.Aggregator, c.MarketUtil, c.Punk, c.Dex, c.Level, c.Stake)
	if err != nil {
		return err
	}
	reader, err := contract.NewReader(a.chain, addrs)
	if err != nil {
		return err
	}

	deps := service.PollerDeps{
		Metaverse: aggregator.NewMetaverseAggregator(reader, aggregator.MetaverseConfig{
			MaxTokenID:     a.cfg.Poller.MaxTokenID,
			PageSize:       a.cfg.Poller.MetaversePageSize,
			MaxConcurrency: a.cfg.Poller.MaxConcurrency,
		}),
		Market: aggregator.NewMarketAggregator(reader, aggregator.MarketConfig{
			MarketAddress:  addrs.Dex,
			PageSize:       a.cfg.Poller.MarketPageSize,
			MaxConcurrency: a.cfg.Poller.MaxConcurrency,
		}),
		Supply: reader,
		Saver:  a.snapshots,
	}
	if a.producer != nil {
		deps.Publisher = a.producer
	}

	a.poller = service.NewPollerService(deps, service.PollerConfig{
		ReloadInterval: a.cfg.Poller.ReloadDuration(),
	}, metaverse, staking)
	return nil
}

// Shutdown 优雅关闭
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("shutting down punk-watcher...")

	if a.health != nil {
		a.health.SetReady(false)
	}

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
		}
	}

	// 取消进行中的 RPC 调用，等待当前一轮结束
	a.cancel()
	if a.poller != nil {
		a.poller.Stop()
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Error("kafka producer close error", zap.Error(err))
		}
	}
	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			logger.Error("snapshot storage close error", zap.Error(err))
		}
	}
	if a.chain != nil {
		a.chain.Close()
	}

	logger.Info("punk-watcher stopped")
	return nil
}

// newBlobStore 按配置选择存储驱动
func newBlobStore(ctx context.Context, cfg config.StorageConfig) (store.BlobStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "file":
		return store.NewFileStore(cfg.File.Dir)
	case "redis":
		return store.NewRedisStore(ctx, store.RedisOptions{
			Addresses: cfg.Redis.Addresses,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			PoolSize:  cfg.Redis.PoolSize,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
	case "leveldb":
		return store.NewLevelDBStore(cfg.LevelDB.Path)
	case "postgres":
		db, err := store.OpenPostgres(store.PostgresOptions{
			DSN:             cfg.Postgres.DSN(),
			MaxOpenConns:    cfg.Postgres.MaxConnections,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return store.NewGormStore(db)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
