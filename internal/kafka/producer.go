// Package kafka 快照变更通知
//
// Topic: staking-snapshot-updated
//   - 生产者: punk-watcher (每轮持久化后，仅当 stakingInfo.json 实际写入时发送)
//   - Partition Key: cycle_id
//   - 消息格式: SnapshotUpdatedEvent
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/lawpunks/punk-watcher/internal/model"
	"github.com/lawpunks/punk-watcher/pkg/logger"
)

// TopicSnapshotUpdated 默认 topic
const TopicSnapshotUpdated = "staking-snapshot-updated"

// SnapshotUpdatedEvent 快照变更事件
type SnapshotUpdatedEvent struct {
	CycleID   string                 `json:"cycle_id"`
	Blobs     []string               `json:"blobs"`
	Staking   *model.StakingSnapshot `json:"staking"`
	UpdatedAt int64                  `json:"updated_at"` // 毫秒
}

// Producer Kafka 同步生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	mu       sync.RWMutex
	closed   bool
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	Brokers      []string
	ClientID     string
	Topic        string
	RequiredAcks sarama.RequiredAcks
	MaxRetries   int
	RetryBackoff time.Duration
}

// NewProducer 创建生产者
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.ClientID = cfg.ClientID
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	requiredAcks := cfg.RequiredAcks
	if requiredAcks == 0 {
		requiredAcks = sarama.WaitForAll
	}
	config.Producer.RequiredAcks = requiredAcks

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	config.Producer.Retry.Max = maxRetries

	retryBackoff := cfg.RetryBackoff
	if retryBackoff == 0 {
		retryBackoff = 100 * time.Millisecond
	}
	config.Producer.Retry.Backoff = retryBackoff

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, err
	}

	return NewProducerWithClient(producer, cfg.Topic), nil
}

// NewProducerWithClient 使用已有的 SyncProducer
func NewProducerWithClient(producer sarama.SyncProducer, topic string) *Producer {
	if topic == "" {
		topic = TopicSnapshotUpdated
	}
	return &Producer{producer: producer, topic: topic}
}

// Close 关闭生产者
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	return p.producer.Close()
}

func (p *Producer) send(key string, value []byte) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return errors.New("producer is closed")
	}
	p.mu.RUnlock()

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		logger.Error("failed to send kafka message",
			zap.String("topic", p.topic),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	logger.Debug("kafka message sent",
		zap.String("topic", p.topic),
		zap.String("key", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// PublishSnapshotUpdated 发送快照变更事件
func (p *Producer) PublishSnapshotUpdated(ctx context.Context, event *SnapshotUpdatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.send(event.CycleID, data)
}
