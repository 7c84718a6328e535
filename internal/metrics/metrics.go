// Package metrics 提供 punk-watcher 服务的 Prometheus 监控指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "punk_watcher"

// 轮询周期指标
var (
	// CyclesTotal 轮询周期总数
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "轮询周期总数",
		},
		[]string{"status"}, // success, failed
	)

	// PhaseDuration 各阶段耗时
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "轮询阶段耗时(秒)",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"phase", "status"}, // phase: metaverse, market, staking, persist
	)

	// LastSuccessTimestamp 最近一次成功周期的时间戳
	LastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp",
			Help:      "最近一次成功周期的 Unix 时间戳",
		},
	)
)

// 链上调用指标
var (
	// RPCCallsTotal 合约调用总数
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "合约只读调用总数",
		},
		[]string{"method", "status"}, // status: success, transport_error, decode_error
	)
)

// 快照指标
var (
	// SnapshotWritesTotal 快照写入次数
	SnapshotWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_writes_total",
			Help:      "快照写入次数",
		},
		[]string{"blob", "result"}, // result: written, unchanged, failed
	)

	// MarketListingsGauge 本轮在售数量
	MarketListingsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "market_listings",
			Help:      "本轮有标价的在售 token 数量",
		},
	)

	// FloorPriceGauge 地板价 (最小单位，精度有损，仅用于监控)
	FloorPriceGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "floor_price",
			Help:      "地板价 (原始最小单位)",
		},
		[]string{"currency"}, // bch, law
	)

	// TotalHashRateGauge 总算力 (已乘 1e8)
	TotalHashRateGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_hash_rate",
			Help:      "总算力 (乘以 1e8 后取整)",
		},
	)
)
